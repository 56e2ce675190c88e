package locale

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestWith_RoundTrips(t *testing.T) {
	ctx := With(context.Background(), language.German)

	tag, ok := From(ctx)
	require.True(t, ok)
	assert.Equal(t, "de", tag.String())
}

func TestFrom_UnsetContext(t *testing.T) {
	_, ok := From(context.Background())
	assert.False(t, ok)
}

func TestFromOr_Fallback(t *testing.T) {
	got := FromOr(context.Background(), language.English)
	assert.Equal(t, "en", got.String())

	ctx := With(context.Background(), language.French)
	got = FromOr(ctx, language.English)
	assert.Equal(t, "fr", got.String())
}

func TestParse_Valid(t *testing.T) {
	tag, err := Parse(" pt-BR ")
	require.NoError(t, err)
	assert.Equal(t, "pt-BR", tag.String())
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse("!!")
	assert.Error(t, err)
}

func TestEqual(t *testing.T) {
	a, err := Parse("en")
	require.NoError(t, err)

	assert.True(t, Equal(a, language.English))
	assert.False(t, Equal(a, language.German))
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("de", language.German))
	assert.True(t, Matches(" DE ", language.German))
	assert.False(t, Matches("en", language.German))
	assert.False(t, Matches("", language.German))
}
