package setutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	declared := []string{"featured", "new", "clearance", "seasonal", "limited"}

	csv, err := Canonicalize([]string{"seasonal", "featured", "seasonal"}, declared)
	require.NoError(t, err)
	assert.Equal(t, "featured,seasonal", csv)
}

func TestCanonicalize_EmptySet(t *testing.T) {
	declared := []string{"featured", "new"}
	csv, err := Canonicalize([]string{}, declared)
	require.NoError(t, err)
	assert.Equal(t, "", csv)
}

func TestCanonicalize_UnknownMember(t *testing.T) {
	declared := []string{"featured", "new"}
	_, err := Canonicalize([]string{"featured", "invalid"}, declared)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown set member")
}

func TestCanonicalizeValue_CSVString(t *testing.T) {
	declared := []string{"featured", "new", "clearance"}

	csv, err := CanonicalizeValue("new,featured", declared)
	require.NoError(t, err)
	assert.Equal(t, "featured,new", csv)

	csv, err = CanonicalizeValue("", declared)
	require.NoError(t, err)
	assert.Equal(t, "", csv)
}

func TestCanonicalizeValue_Slices(t *testing.T) {
	declared := []string{"featured", "new", "clearance"}

	csv, err := CanonicalizeValue([]any{"new", "featured"}, declared)
	require.NoError(t, err)
	assert.Equal(t, "featured,new", csv)

	csv, err = CanonicalizeValue([]string{"clearance"}, declared)
	require.NoError(t, err)
	assert.Equal(t, "clearance", csv)
}

func TestCanonicalizeValue_RejectsBadShapes(t *testing.T) {
	declared := []string{"featured", "new"}

	_, err := CanonicalizeValue([]any{"new", 7}, declared)
	require.Error(t, err)

	_, err = CanonicalizeValue(7, declared)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "member list or CSV string")
}
