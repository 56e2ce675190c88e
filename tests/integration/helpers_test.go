//go:build integration
// +build integration

package integration

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"

	"record-i18n/internal/dbexec"
	"record-i18n/internal/naming"
	"record-i18n/internal/nested"
	"record-i18n/internal/schema"
	"record-i18n/internal/schemafilter"
	"record-i18n/internal/store"
)

// The fixture tables follow the translation table convention, so discovery
// registers reci18n_article.translations as a translation shared collection.
var fixtureTables = []string{
	`CREATE TABLE reci18n_articles (
		id BIGINT PRIMARY KEY AUTO_INCREMENT,
		slug VARCHAR(191) NOT NULL
	)`,
	`CREATE TABLE reci18n_article_translations (
		id BIGINT PRIMARY KEY AUTO_INCREMENT,
		reci18n_article_id BIGINT NOT NULL,
		locale VARCHAR(16) NOT NULL,
		content_id CHAR(36) NOT NULL,
		title VARCHAR(191),
		CONSTRAINT fk_reci18n_article FOREIGN KEY (reci18n_article_id) REFERENCES reci18n_articles (id)
	)`,
}

var fixtureDrops = []string{
	`DROP TABLE IF EXISTS reci18n_article_translations`,
	`DROP TABLE IF EXISTS reci18n_articles`,
}

type fixture struct {
	db       *sql.DB
	registry *schema.Registry
	store    *store.SQLStore
	assigner *nested.Assigner
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("mysql", testDSN())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "database should be reachable")
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := openTestDB(t)
	ctx := context.Background()

	dropFixtureTables(t, db)
	for _, stmt := range fixtureTables {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err, "fixture table setup failed")
	}
	t.Cleanup(func() { dropFixtureTables(t, db) })

	var databaseName string
	require.NoError(t, db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&databaseName))
	require.NotEmpty(t, databaseName, "RECI18N_TEST_DSN must select a database")

	registry, err := schema.Discover(ctx, db, databaseName, naming.Default(), schemafilter.Config{
		AllowTables: []string{"reci18n_*"},
	})
	require.NoError(t, err)

	assoc, ok := registry.Association("reci18n_article", "translations")
	require.True(t, ok, "discovery should register the translations collection")
	require.True(t, assoc.TranslationShared, "translations should be discovered as translation shared")

	st := store.NewSQLStore(dbexec.NewStandardExecutor(db), registry, nil)
	assigner := nested.NewAssigner(registry, st, nil)
	for _, typeName := range registry.TypeNames() {
		for _, a := range registry.Associations(typeName) {
			require.NoError(t, assigner.RegisterBase(a.Owner, a.Name))
		}
	}

	return &fixture{db: db, registry: registry, store: st, assigner: assigner}
}

func dropFixtureTables(t *testing.T, db *sql.DB) {
	t.Helper()
	for _, stmt := range fixtureDrops {
		if _, err := db.ExecContext(context.Background(), stmt); err != nil {
			t.Logf("fixture drop failed: %v", err)
		}
	}
}

func seedArticle(t *testing.T, db *sql.DB, slug string) int64 {
	t.Helper()
	res, err := db.ExecContext(context.Background(),
		"INSERT INTO reci18n_articles (slug) VALUES (?)", slug)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func seedTranslation(t *testing.T, db *sql.DB, articleID int64, locale, contentID, title string) int64 {
	t.Helper()
	res, err := db.ExecContext(context.Background(),
		"INSERT INTO reci18n_article_translations (reci18n_article_id, locale, content_id, title) VALUES (?, ?, ?, ?)",
		articleID, locale, contentID, title)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func translationCount(t *testing.T, db *sql.DB, articleID int64) int {
	t.Helper()
	var count int
	require.NoError(t, db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM reci18n_article_translations WHERE reci18n_article_id = ?", articleID).Scan(&count))
	return count
}

func translationTitle(t *testing.T, db *sql.DB, id int64) string {
	t.Helper()
	var title string
	require.NoError(t, db.QueryRowContext(context.Background(),
		"SELECT title FROM reci18n_article_translations WHERE id = ?", id).Scan(&title))
	return title
}
