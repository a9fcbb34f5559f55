package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_Deterministic(t *testing.T) {
	content := map[string]any{"sources": []string{"a", "b"}, "count": 2}
	parents := map[string]string{"search": "aaa", "gather": "bbb"}

	first, err := Fingerprint(content, parents)
	require.NoError(t, err)
	second, err := Fingerprint(content, parents)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestFingerprint_ParentOrderIrrelevant(t *testing.T) {
	content := "payload"

	a, err := Fingerprint(content, map[string]string{"x": "1", "y": "2", "z": "3"})
	require.NoError(t, err)
	b, err := Fingerprint(content, map[string]string{"z": "3", "x": "1", "y": "2"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestFingerprint_ChangeSensitivity(t *testing.T) {
	base, err := Fingerprint("payload", map[string]string{"p": "abc"})
	require.NoError(t, err)

	changedContent, err := Fingerprint("payload2", map[string]string{"p": "abc"})
	require.NoError(t, err)
	assert.NotEqual(t, base, changedContent)

	changedParent, err := Fingerprint("payload", map[string]string{"p": "abd"})
	require.NoError(t, err)
	assert.NotEqual(t, base, changedParent)

	changedParentID, err := Fingerprint("payload", map[string]string{"q": "abc"})
	require.NoError(t, err)
	assert.NotEqual(t, base, changedParentID)
}

func TestFingerprint_FieldBoundaries(t *testing.T) {
	// Concatenating adjacent fields differently must not collide.
	a, err := Fingerprint("ab", map[string]string{"c": "d"})
	require.NoError(t, err)
	b, err := Fingerprint("a", map[string]string{"bc": "d"})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestFingerprint_NoParents(t *testing.T) {
	withNil, err := Fingerprint("root", nil)
	require.NoError(t, err)
	withEmpty, err := Fingerprint("root", map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, withNil, withEmpty)
}

func TestFingerprint_UnserializableContent(t *testing.T) {
	_, err := Fingerprint(make(chan int), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not serializable")
}
