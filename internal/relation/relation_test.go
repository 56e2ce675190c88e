package relation

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"record-i18n/internal/record"
	"record-i18n/internal/schema"
	"record-i18n/internal/store"
)

func newResolverFixture(t *testing.T) (*Resolver, *store.MemStore, *schema.Association) {
	t.Helper()

	reg := schema.NewRegistry()
	require.NoError(t, reg.RegisterType(&schema.RecordType{
		Name:       "article",
		Table:      "articles",
		PrimaryKey: "id",
		Columns: []schema.Column{
			{Name: "id", DataType: "bigint", IsPrimaryKey: true, IsAutoIncrement: true},
			{Name: "slug", DataType: "varchar"},
		},
	}))
	require.NoError(t, reg.RegisterType(&schema.RecordType{
		Name:       "article_translation",
		Table:      "article_translations",
		PrimaryKey: "id",
		Columns: []schema.Column{
			{Name: "id", DataType: "bigint", IsPrimaryKey: true, IsAutoIncrement: true},
			{Name: "article_id", DataType: "bigint"},
			{Name: "locale", DataType: "varchar"},
			{Name: "content_id", DataType: "char"},
			{Name: "title", DataType: "varchar", IsNullable: true},
		},
	}))
	require.NoError(t, reg.RegisterAssociation(&schema.Association{
		Owner:             "article",
		Name:              "translations",
		Target:            "article_translation",
		ForeignKey:        "article_id",
		Collection:        true,
		TranslationShared: true,
	}))

	ms := store.NewMemStore(reg)
	assoc, ok := reg.Association("article", "translations")
	require.True(t, ok)
	return NewResolver(ms), ms, assoc
}

func translationRecord(id int64, loc, contentID string) *record.Record {
	return record.Hydrate("article_translation", map[string]any{
		"id":         id,
		"article_id": int64(1),
		"locale":     loc,
		"content_id": contentID,
		"title":      "t",
	})
}

func TestFindExisting_CandidateHit(t *testing.T) {
	resolver, ms, assoc := newResolverFixture(t)

	candidates := CandidateSet{
		translationRecord(1, "en", "c-1"),
		translationRecord(2, "de", "c-2"),
	}

	rec, err := resolver.FindExisting(context.Background(), assoc, "2", candidates)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.ID())
	assert.Equal(t, "de", rec.Locale())
	assert.Equal(t, 0, ms.Stats().FindByID, "candidate hit must not query the store")
}

func TestFindExisting_CandidateFirstMatchWins(t *testing.T) {
	resolver, _, assoc := newResolverFixture(t)

	first := translationRecord(7, "en", "c-first")
	second := translationRecord(7, "de", "c-second")

	rec, err := resolver.FindExisting(context.Background(), assoc, int64(7), CandidateSet{first, second})
	require.NoError(t, err)
	assert.Same(t, first, rec)
}

func TestFindExisting_CandidateMiss(t *testing.T) {
	resolver, ms, assoc := newResolverFixture(t)
	require.NoError(t, ms.Seed(translationRecord(99, "en", "c-99")))

	_, err := resolver.FindExisting(context.Background(), assoc, 99, CandidateSet{translationRecord(1, "en", "c-1")})
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 0, ms.Stats().FindByID, "a snapshot miss must not fall back to the store")
}

func TestFindExisting_EmptyCandidateSetIsAuthoritative(t *testing.T) {
	resolver, ms, assoc := newResolverFixture(t)
	require.NoError(t, ms.Seed(translationRecord(3, "en", "c-3")))

	_, err := resolver.FindExisting(context.Background(), assoc, 3, CandidateSet{})
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 0, ms.Stats().FindByID)
}

func TestFindExisting_StoreFallback(t *testing.T) {
	resolver, ms, assoc := newResolverFixture(t)
	require.NoError(t, ms.Seed(translationRecord(5, "fr", "c-5")))

	rec, err := resolver.FindExisting(context.Background(), assoc, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), rec.ID())
	assert.Equal(t, "fr", rec.Locale())
	assert.Equal(t, 1, ms.Stats().FindByID)
}

func TestFindExisting_StoreFallbackNotFound(t *testing.T) {
	resolver, ms, assoc := newResolverFixture(t)

	_, err := resolver.FindExisting(context.Background(), assoc, 42, nil)
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 1, ms.Stats().FindByID)
}

func TestFindExisting_IdentifierCoercion(t *testing.T) {
	resolver, _, assoc := newResolverFixture(t)
	candidates := CandidateSet{translationRecord(2, "en", "c-2")}

	tests := []struct {
		name    string
		id      any
		wantHit bool
	}{
		{"int", 2, true},
		{"int64", int64(2), true},
		{"whole float", float64(2), true},
		{"json number", json.Number("2"), true},
		{"digit string", "2", true},
		{"fractional float", 2.5, false},
		{"word string", "two", false},
		{"unsupported type", struct{}{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := resolver.FindExisting(context.Background(), assoc, tt.id, candidates)
			if tt.wantHit {
				require.NoError(t, err)
				assert.Equal(t, int64(2), rec.ID())
				return
			}
			require.ErrorIs(t, err, store.ErrNotFound)
		})
	}
}
