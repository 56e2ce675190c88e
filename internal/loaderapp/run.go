package loaderapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"record-i18n/internal/dbexec"
	"record-i18n/internal/locale"
	"record-i18n/internal/logging"
	"record-i18n/internal/nested"
	"record-i18n/internal/observability"
	"record-i18n/internal/record"
	"record-i18n/internal/store"
)

// errDryRunRollback forces the document transaction to roll back after a
// successful dry-run apply.
var errDryRunRollback = errors.New("dry run rollback")

// Summary reports the outcome of one loader run.
type Summary struct {
	RunID     string
	Documents int
	Applied   int
	Failed    int
	DryRun    bool
	Duration  time.Duration
}

// Run reads the configured input and applies every document. Each document
// runs in its own transaction, so with continue_on_error a failure loses only
// that document. Dry runs apply normally and roll the transaction back.
func (a *App) Run(ctx context.Context) (*Summary, error) {
	a.stateMu.Lock()
	initialized := a.initialized
	a.stateMu.Unlock()
	if !initialized {
		return nil, fmt.Errorf("application is not initialized")
	}

	runID := uuid.NewString()
	logger := a.logger.WithRun(runID)

	docs, err := ReadDocuments(a.cfg.Loader.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to read input document: %w", err)
	}

	if a.assignMetrics != nil {
		ctx = observability.ContextWithAssignmentMetrics(ctx, a.assignMetrics)
	}

	start := time.Now()
	summary := &Summary{
		RunID:     runID,
		Documents: len(docs),
		DryRun:    a.cfg.Loader.DryRun,
	}

	logger.Info("starting loader run",
		slog.Int("documents", len(docs)),
		slog.Bool("dry_run", summary.DryRun),
	)

	for i, doc := range docs {
		docLogger := logger.WithFields(
			slog.Int("document", i),
			slog.String("record_type", doc.Type),
		)
		if err := a.applyDocument(ctx, docLogger, doc); err != nil {
			summary.Failed++
			if !a.cfg.Loader.ContinueOnError {
				return nil, fmt.Errorf("document %d (%s): %w", i, doc.Type, err)
			}
			docLogger.Error("document failed", slog.String("error", err.Error()))
			continue
		}
		summary.Applied++
	}

	summary.Duration = time.Since(start)
	logger.Info("loader run complete",
		slog.Int("documents", summary.Documents),
		slog.Int("applied", summary.Applied),
		slog.Int("failed", summary.Failed),
		slog.Bool("dry_run", summary.DryRun),
		slog.Duration("duration", summary.Duration),
	)
	return summary, nil
}

func (a *App) applyDocument(ctx context.Context, logger *logging.Logger, doc Document) error {
	if a.cfg.Loader.ApplyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Loader.ApplyTimeout)
		defer cancel()
	}

	tag, hasLocale, err := a.documentLocale(doc)
	if err != nil {
		return err
	}
	if hasLocale {
		ctx = locale.With(ctx, tag)
	}

	err = dbexec.WithTransaction(ctx, a.db, func(exec dbexec.QueryExecutor) error {
		st := a.store.WithExecutor(exec)
		assigner, err := a.newAssigner(st)
		if err != nil {
			return err
		}

		parent, err := a.loadParent(ctx, st, doc, tag, hasLocale)
		if err != nil {
			return err
		}

		names := make([]string, 0, len(doc.Nested))
		for name := range doc.Nested {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := assigner.Assign(ctx, parent, name, doc.Nested[name]); err != nil {
				return err
			}
		}

		staged := a.stagedWriteCounts(parent)

		if err := st.Save(ctx, parent); err != nil {
			return err
		}
		if a.assignMetrics != nil {
			for typeName, count := range staged {
				a.assignMetrics.RecordSavedRecords(ctx, count, typeName)
			}
		}

		logger.Info("document applied", slog.Int64("record_id", parent.ID()))

		if a.cfg.Loader.DryRun {
			return errDryRunRollback
		}
		return nil
	})
	if errors.Is(err, errDryRunRollback) {
		if err != errDryRunRollback { // rollback failure attached
			return err
		}
		logger.Info("dry run, transaction rolled back")
		return nil
	}
	return err
}

// documentLocale resolves the locale a document runs under: its own locale
// field, else the configured default. The second result reports whether any
// locale was resolved; documents that never touch translatable rows work
// without one.
func (a *App) documentLocale(doc Document) (language.Tag, bool, error) {
	raw := strings.TrimSpace(doc.Locale)
	if raw == "" {
		raw = strings.TrimSpace(a.cfg.Locale.Default)
	}
	if raw == "" {
		return language.Und, false, nil
	}
	if a.cfg.Locale.Strict {
		tag, err := locale.Parse(raw)
		if err != nil {
			return language.Und, false, err
		}
		return tag, true, nil
	}
	return language.Make(raw), true, nil
}

// newAssigner builds a transaction-scoped assigner with the built-in base
// setter wired for every discovered association.
func (a *App) newAssigner(st store.Store) (*nested.Assigner, error) {
	assigner := nested.NewAssigner(a.registry, st, a.logger.Logger)
	for _, typeName := range a.registry.TypeNames() {
		for _, assoc := range a.registry.Associations(typeName) {
			if err := assigner.RegisterBase(assoc.Owner, assoc.Name); err != nil {
				return nil, err
			}
		}
	}
	return assigner, nil
}

// loadParent resolves the document's parent record: by id when given, else a
// new record built from the direct fields. New translatable parents are
// stamped with the run locale and a fresh content identity, matching how
// nested assignment builds children.
func (a *App) loadParent(ctx context.Context, st *store.SQLStore, doc Document, tag language.Tag, hasLocale bool) (*record.Record, error) {
	if doc.ID != nil {
		id, ok := record.CoerceID(doc.ID)
		if !ok {
			return nil, fmt.Errorf("invalid record id %v for type %q", doc.ID, doc.Type)
		}
		parent, err := st.FindByID(ctx, doc.Type, id)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(doc.Fields))
		for name := range doc.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			parent.Set(name, doc.Fields[name])
		}
		return parent, nil
	}

	t, ok := a.registry.Type(doc.Type)
	if !ok {
		return nil, fmt.Errorf("unknown record type %q", doc.Type)
	}
	parent := record.New(doc.Type, doc.Fields)
	if t.Translatable() {
		if hasLocale && parent.Locale() == "" {
			parent.Set(record.FieldLocale, tag.String())
		}
		if parent.ContentID() == "" {
			parent.Set(record.FieldContentID, record.NewContentID())
		}
	}
	return parent, nil
}

// stagedWriteCounts tallies the rows a save of this graph will write or
// delete, per record type. Reference associations are skipped the way save
// skips them, and new children marked for destroy are dropped, not written.
func (a *App) stagedWriteCounts(rec *record.Record) map[string]int64 {
	counts := make(map[string]int64)
	a.countStagedWrites(rec, counts)
	return counts
}

func (a *App) countStagedWrites(rec *record.Record, counts map[string]int64) {
	if rec.IsNewRecord() || len(rec.ChangedFields()) > 0 {
		counts[rec.TypeName()]++
	}
	for _, name := range rec.AssociationNames() {
		assoc, ok := a.registry.Association(rec.TypeName(), name)
		if !ok || !assoc.IsCollection() {
			continue
		}
		children, _ := rec.Associated(name)
		for _, child := range children {
			if child.MarkedForDestroy() {
				if !child.IsNewRecord() {
					counts[child.TypeName()]++
				}
				continue
			}
			a.countStagedWrites(child, counts)
		}
	}
}
