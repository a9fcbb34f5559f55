package schema

import "fmt"

// Collector accumulates validation errors while a document is walked.
// The zero value is ready to use.
type Collector struct {
	errs []error
}

// Add records a single failure at the given field path.
func (c *Collector) Add(path, format string, args ...any) {
	c.errs = append(c.errs, Errf(path, format, args...))
}

// AddValue records a failure including the offending value.
func (c *Collector) AddValue(path string, value any, format string, args ...any) {
	c.errs = append(c.errs, &ValidationError{
		Path:   path,
		Reason: fmt.Sprintf(format, args...),
		Value:  value,
	})
}

// Require records a failure when the string field is empty.
func (c *Collector) Require(path, value string) {
	if value == "" {
		c.Add(path, "required")
	}
}

// Empty reports whether no errors were collected.
func (c *Collector) Empty() bool {
	return len(c.errs) == 0
}

// Err returns the aggregated error, or nil when the document was clean.
func (c *Collector) Err() error {
	return Aggregate(c.errs)
}
