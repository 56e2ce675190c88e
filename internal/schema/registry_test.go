package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"record-i18n/internal/record"
)

func articleType() *RecordType {
	return &RecordType{
		Name:       "article",
		Table:      "articles",
		PrimaryKey: "id",
		Columns: []Column{
			{Name: "id", DataType: "bigint", IsPrimaryKey: true, IsAutoIncrement: true},
			{Name: "slug", DataType: "varchar"},
		},
	}
}

func translationType() *RecordType {
	return &RecordType{
		Name:       "article_translation",
		Table:      "article_translations",
		PrimaryKey: "id",
		Columns: []Column{
			{Name: "id", DataType: "bigint", IsPrimaryKey: true, IsAutoIncrement: true},
			{Name: "article_id", DataType: "bigint"},
			{Name: "locale", DataType: "varchar"},
			{Name: "content_id", DataType: "char"},
			{Name: "title", DataType: "varchar", IsNullable: true},
		},
	}
}

func commentType() *RecordType {
	return &RecordType{
		Name:       "comment",
		Table:      "comments",
		PrimaryKey: "id",
		Columns: []Column{
			{Name: "id", DataType: "bigint", IsPrimaryKey: true, IsAutoIncrement: true},
			{Name: "article_id", DataType: "bigint"},
			{Name: "body", DataType: "text", IsNullable: true},
		},
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, r.RegisterType(articleType()))
	require.NoError(t, r.RegisterType(translationType()))
	require.NoError(t, r.RegisterType(commentType()))
	return r
}

func TestRegistry_RegisterTypeValidation(t *testing.T) {
	r := NewRegistry()

	assert.Error(t, r.RegisterType(nil))
	assert.Error(t, r.RegisterType(&RecordType{Table: "articles", PrimaryKey: "id"}))
	assert.Error(t, r.RegisterType(&RecordType{Name: "article", Table: "articles"}))

	require.NoError(t, r.RegisterType(articleType()))
	assert.Error(t, r.RegisterType(articleType()), "duplicate type must be rejected")
}

func TestRegistry_RegisterAssociation(t *testing.T) {
	r := newTestRegistry(t)

	err := r.RegisterAssociation(&Association{
		Owner:      "article",
		Name:       "comments",
		Target:     "comment",
		ForeignKey: "article_id",
		Collection: true,
	})
	require.NoError(t, err)

	a, ok := r.Association("article", "comments")
	require.True(t, ok)
	assert.Equal(t, "comment", a.Target)
	assert.True(t, a.IsCollection())
}

func TestRegistry_RegisterAssociationUnknownTypes(t *testing.T) {
	r := newTestRegistry(t)

	err := r.RegisterAssociation(&Association{
		Owner:      "book",
		Name:       "comments",
		Target:     "comment",
		ForeignKey: "article_id",
		Collection: true,
	})
	assert.Error(t, err)

	err = r.RegisterAssociation(&Association{
		Owner:      "article",
		Name:       "chapters",
		Target:     "chapter",
		ForeignKey: "article_id",
		Collection: true,
	})
	assert.Error(t, err)
}

func TestRegistry_RegisterAssociationMissingForeignKey(t *testing.T) {
	r := newTestRegistry(t)

	err := r.RegisterAssociation(&Association{
		Owner:      "article",
		Name:       "comments",
		Target:     "comment",
		ForeignKey: "post_id",
		Collection: true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "post_id")
}

func TestRegistry_TranslationSharingAllowsAnyTarget(t *testing.T) {
	r := newTestRegistry(t)

	err := r.RegisterAssociation(&Association{
		Owner:             "article",
		Name:              "comments",
		Target:            "comment",
		ForeignKey:        "article_id",
		Collection:        true,
		TranslationShared: true,
	})
	require.NoError(t, err, "sharing a non-translatable child across translations is legal")

	err = r.RegisterAssociation(&Association{
		Owner:             "article",
		Name:              "translations",
		Target:            "article_translation",
		ForeignKey:        "article_id",
		Collection:        true,
		TranslationShared: true,
	})
	assert.NoError(t, err)
}

func TestRegistry_ConfigureSharing(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.RegisterAssociation(&Association{
		Owner:      "article",
		Name:       "translations",
		Target:     "article_translation",
		ForeignKey: "article_id",
		Collection: true,
	}))

	require.NoError(t, r.ConfigureSharing("article", "translations", false, true))
	a, _ := r.Association("article", "translations")
	assert.False(t, a.TranslationShared)
	assert.True(t, a.TranslationSharedOnInitialize)

	assert.Error(t, r.ConfigureSharing("article", "missing", true, false))
}

func TestRegistry_ConfigureSharingNonTranslatableTarget(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.RegisterAssociation(&Association{
		Owner:      "article",
		Name:       "comments",
		Target:     "comment",
		ForeignKey: "article_id",
		Collection: true,
	}))

	require.NoError(t, r.ConfigureSharing("article", "comments", true, false))
	a, _ := r.Association("article", "comments")
	assert.True(t, a.TranslationShared)
}

func TestRegistry_AssociationsSorted(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.RegisterAssociation(&Association{
		Owner: "article", Name: "translations", Target: "article_translation",
		ForeignKey: "article_id", Collection: true,
	}))
	require.NoError(t, r.RegisterAssociation(&Association{
		Owner: "article", Name: "comments", Target: "comment",
		ForeignKey: "article_id", Collection: true,
	}))

	assocs := r.Associations("article")
	require.Len(t, assocs, 2)
	assert.Equal(t, "comments", assocs[0].Name)
	assert.Equal(t, "translations", assocs[1].Name)
}

func TestRecordType_Translatable(t *testing.T) {
	assert.True(t, translationType().Translatable())
	assert.False(t, articleType().Translatable())
}

func TestAssociation_SharedFor(t *testing.T) {
	newParent := record.New("page", map[string]any{"slug": "home"})
	savedParent := record.Hydrate("page", map[string]any{"id": int64(1), "slug": "home"})

	always := &Association{TranslationShared: true}
	assert.True(t, always.SharedFor(newParent))
	assert.True(t, always.SharedFor(savedParent))

	onInit := &Association{TranslationSharedOnInitialize: true}
	assert.True(t, onInit.SharedFor(newParent))
	assert.False(t, onInit.SharedFor(savedParent))
	assert.False(t, onInit.SharedFor(nil))

	plain := &Association{}
	assert.False(t, plain.SharedFor(newParent))
	assert.False(t, plain.SharedFor(savedParent))
}
