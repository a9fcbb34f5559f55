// Package compiler turns manifest and script documents into immutable
// graph definitions.
//
// Parsing is all-or-nothing: a document either yields a complete
// GraphDefinition or a single aggregated error listing every violation,
// each tagged with its field path. No partially built graph ever escapes.
package compiler

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/wefthq/weft/pkg/domain"
	"github.com/wefthq/weft/pkg/schema"
)

// Parser converts raw document bytes into graph definitions.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// stageSpec mirrors one entry of a manifest's stages list.
type stageSpec struct {
	ID           string          `mapstructure:"id"`
	Name         string          `mapstructure:"name"`
	Phase        string          `mapstructure:"phase"`
	Previous     []string        `mapstructure:"previous"`
	Optional     bool            `mapstructure:"optional"`
	Structural   bool            `mapstructure:"structural"`
	Produces     []string        `mapstructure:"produces"`
	Defaults     map[string]any  `mapstructure:"defaults"`
	Instructions string          `mapstructure:"instructions"`
	Commands     []string        `mapstructure:"commands"`
	Handler      string          `mapstructure:"handler"`
	SkipPolicy   *skipPolicySpec `mapstructure:"skip_policy"`
}

type skipPolicySpec struct {
	Short         string `mapstructure:"short"`
	Reason        string `mapstructure:"reason"`
	WarnThreshold int    `mapstructure:"warn_threshold"`
}

type headerSpec struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Persona     string `mapstructure:"persona"`
	Description string `mapstructure:"description"`
}

type overrideSpec struct {
	Stage      string         `mapstructure:"stage"`
	Skip       bool           `mapstructure:"skip"`
	Reason     string         `mapstructure:"reason"`
	Parameters map[string]any `mapstructure:"parameters"`
}

// Manifest parses a full topology document into a GraphDefinition.
func (p *Parser) Manifest(data []byte) (*domain.GraphDefinition, error) {
	raw, err := unmarshalDocument(data)
	if err != nil {
		return nil, err
	}

	var c schema.Collector

	var header headerSpec
	decodeInto(raw, "document", &header, &c)
	c.Require("name", header.Name)

	specs := decodeStages(raw, &c)
	if len(specs) == 0 && c.Empty() {
		c.Add("stages", "at least one stage is required")
	}

	// First pass: index ids so dangling references can be reported with
	// every other violation in the same error.
	seen := make(map[string]bool, len(specs))
	for i, spec := range specs {
		path := fmt.Sprintf("stages[%d]", i)
		if spec == nil {
			continue
		}
		if spec.ID == "" {
			c.Add(path+".id", "required")
			continue
		}
		if seen[spec.ID] {
			c.Add(path+".id", "duplicate stage id %q", spec.ID)
			continue
		}
		seen[spec.ID] = true
	}

	// Second pass: per-stage field rules and parent resolution.
	for i, spec := range specs {
		if spec == nil || spec.ID == "" {
			continue
		}
		path := fmt.Sprintf("stages[%d]", i)

		if len(spec.Produces) == 0 {
			c.Add(path+".produces", "must list at least one artifact: every stage materializes output")
		}
		if spec.Previous != nil && len(spec.Previous) == 0 {
			c.AddValue(path+".previous", spec.Previous, "must be null for a root, not []")
		}
		for j, parent := range spec.Previous {
			if parent == "" {
				c.Add(fmt.Sprintf("%s.previous[%d]", path, j), "empty parent id")
				continue
			}
			if !seen[parent] {
				c.Add(fmt.Sprintf("%s.previous[%d]", path, j), "unknown stage %q", parent)
			}
		}
	}

	if err := c.Err(); err != nil {
		return nil, err
	}

	def := &domain.GraphDefinition{
		Source: domain.SourceManifest,
		Header: domain.Header{
			Name:        header.Name,
			Version:     header.Version,
			Persona:     header.Persona,
			Description: header.Description,
		},
		Nodes: make(map[string]*domain.StageNode, len(specs)),
	}
	for _, spec := range specs {
		node := spec.toNode()
		def.Nodes[node.ID] = node
		def.Order = append(def.Order, node.ID)
	}
	deriveTopology(def)
	return def, nil
}

// Script parses a parameter/skip overlay anchored to a manifest. The
// manifest's nodes are deep-cloned before any override is applied, so the
// anchoring definition is never mutated.
func (p *Parser) Script(data []byte, manifest *domain.GraphDefinition) (*domain.GraphDefinition, error) {
	if manifest == nil {
		return nil, fmt.Errorf("script parsing requires an anchoring manifest")
	}

	raw, err := unmarshalDocument(data)
	if err != nil {
		return nil, err
	}

	var c schema.Collector

	var ref struct {
		Manifest string `mapstructure:"manifest"`
	}
	decodeInto(raw, "document", &ref, &c)
	c.Require("manifest", ref.Manifest)
	if ref.Manifest != "" && ref.Manifest != manifest.Header.Name {
		c.Add("manifest", "script targets %q but is anchored to manifest %q", ref.Manifest, manifest.Header.Name)
	}

	overrides := decodeOverrides(raw, &c)
	for i, ov := range overrides {
		path := fmt.Sprintf("overrides[%d]", i)
		if ov == nil {
			continue
		}
		if ov.Stage == "" {
			c.Add(path+".stage", "required")
			continue
		}
		if manifest.Node(ov.Stage) == nil {
			c.Add(path+".stage", "unknown stage %q", ov.Stage)
		}
	}

	if err := c.Err(); err != nil {
		return nil, err
	}

	def := &domain.GraphDefinition{
		Source:    domain.SourceScript,
		Header:    manifest.Header,
		Nodes:     make(map[string]*domain.StageNode, len(manifest.Nodes)),
		Order:     append([]string(nil), manifest.Order...),
		Edges:     append([]domain.Edge(nil), manifest.Edges...),
		Roots:     append([]string(nil), manifest.Roots...),
		Terminals: append([]string(nil), manifest.Terminals...),
	}
	for id, node := range manifest.Nodes {
		def.Nodes[id] = node.Clone()
	}

	// Overrides apply in declaration order; for duplicate entries targeting
	// one stage, later entries win.
	for _, ov := range overrides {
		node := def.Nodes[ov.Stage]
		node.Parameters = node.Parameters.Merge(ov.Parameters)
		if ov.Skip {
			node.Parameters.Skip = &domain.SkipMarker{Reason: ov.Reason}
		}
	}
	return def, nil
}

// toNode builds the immutable stage node for a validated spec. Effective
// parameters start as a copy of the defaults.
func (s *stageSpec) toNode() *domain.StageNode {
	node := &domain.StageNode{
		ID:           s.ID,
		Name:         s.Name,
		Phase:        s.Phase,
		Previous:     s.Previous,
		Optional:     s.Optional,
		Structural:   s.Structural,
		Produces:     s.Produces,
		Defaults:     s.Defaults,
		Instructions: s.Instructions,
		Commands:     s.Commands,
		Handler:      s.Handler,
	}
	if s.SkipPolicy != nil {
		node.SkipPolicy = &domain.SkipPolicy{
			Short:         s.SkipPolicy.Short,
			Reason:        s.SkipPolicy.Reason,
			WarnThreshold: s.SkipPolicy.WarnThreshold,
		}
	}
	if s.Defaults != nil {
		node.Parameters = domain.StageParameters{}.Merge(s.Defaults)
	}
	return node
}

// deriveTopology inverts the child→parent declarations into a parent→child
// edge list and computes root and terminal id sets. Forward edges live only
// on the definition, never on the nodes.
func deriveTopology(def *domain.GraphDefinition) {
	isParent := make(map[string]bool, len(def.Order))
	for _, id := range def.Order {
		node := def.Nodes[id]
		if node.IsRoot() {
			def.Roots = append(def.Roots, id)
		}
		for _, parent := range node.Previous {
			def.Edges = append(def.Edges, domain.Edge{From: parent, To: id})
			isParent[parent] = true
		}
	}
	for _, id := range def.Order {
		if !isParent[id] {
			def.Terminals = append(def.Terminals, id)
		}
	}
}

// unmarshalDocument decodes the YAML bytes into a generic mapping. A
// malformed document is terminal before any field validation runs.
func unmarshalDocument(data []byte) (map[string]any, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed document: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("malformed document: empty")
	}
	return raw, nil
}

// decodeInto decodes a raw mapping into a typed spec, translating decoder
// failures into path-tagged validation errors.
func decodeInto(raw map[string]any, path string, out any, c *schema.Collector) {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "mapstructure",
	})
	if err != nil {
		c.Add(path, "internal decoder error: %v", err)
		return
	}
	if err := dec.Decode(raw); err != nil {
		if merr, ok := err.(*mapstructure.Error); ok {
			for _, e := range merr.Errors {
				c.Add(path, "%s", e)
			}
			return
		}
		c.Add(path, "%v", err)
	}
}

func decodeStages(raw map[string]any, c *schema.Collector) []*stageSpec {
	entries, ok := raw["stages"].([]any)
	if !ok {
		if raw["stages"] == nil {
			c.Add("stages", "required")
		} else {
			c.AddValue("stages", raw["stages"], "must be a list")
		}
		return nil
	}

	specs := make([]*stageSpec, len(entries))
	for i, entry := range entries {
		path := fmt.Sprintf("stages[%d]", i)
		m, ok := entry.(map[string]any)
		if !ok {
			c.AddValue(path, entry, "must be a mapping")
			continue
		}
		var spec stageSpec
		decodeInto(m, path, &spec, c)
		specs[i] = &spec
	}
	return specs
}

func decodeOverrides(raw map[string]any, c *schema.Collector) []*overrideSpec {
	if raw["overrides"] == nil {
		return nil
	}
	entries, ok := raw["overrides"].([]any)
	if !ok {
		c.AddValue("overrides", raw["overrides"], "must be a list")
		return nil
	}

	specs := make([]*overrideSpec, len(entries))
	for i, entry := range entries {
		path := fmt.Sprintf("overrides[%d]", i)
		m, ok := entry.(map[string]any)
		if !ok {
			c.AddValue(path, entry, "must be a mapping")
			continue
		}
		var spec overrideSpec
		decodeInto(m, path, &spec, c)
		specs[i] = &spec
	}
	return specs
}
