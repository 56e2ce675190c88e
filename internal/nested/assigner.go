// Package nested routes nested attribute assignment for translation-shared
// associations. The Assigner wraps a base assignment primitive registered per
// association and, before delegating, rewrites each incoming payload based on
// destroy intent, locale match and sharing mode: updates stay in place,
// cross-locale edits are redirected to create a sibling translation sharing
// the same content identity, and destroy instructions generated by a parent
// creation cascade are suppressed.
//
// The direct-update branch for non-translatable targets applies the payload
// to the existing row immediately and the base primitive still runs
// afterwards. That side effect is at-least-once, not atomic with the rest of
// the batch; callers needing atomicity run the whole assignment inside one
// transaction via dbexec.WithTransaction and a store bound to it.
package nested

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"

	"record-i18n/internal/locale"
	"record-i18n/internal/observability"
	"record-i18n/internal/record"
	"record-i18n/internal/relation"
	"record-i18n/internal/schema"
	"record-i18n/internal/store"
)

// SetterFunc is the base nested-attribute assignment primitive for one
// association. The Assigner wraps it, never replaces it.
type SetterFunc func(ctx context.Context, parent *record.Record, raw any) error

// Payload routing decisions, recorded per payload.
const (
	decisionPass         = "pass"
	decisionRedirect     = "redirect"
	decisionSuppress     = "suppress"
	decisionDirectUpdate = "direct_update"
	decisionCreate       = "create"
)

// Assigner dispatches nested attribute input to per-association base setters,
// applying translation-shared routing first. Setters are registered once at
// setup time; Assign is safe for concurrent use afterwards.
type Assigner struct {
	registry *schema.Registry
	store    store.Store
	resolver *relation.Resolver
	logger   *slog.Logger

	mu      sync.RWMutex
	setters map[string]SetterFunc
}

// NewAssigner creates an assigner over the registry and store.
func NewAssigner(registry *schema.Registry, st store.Store, logger *slog.Logger) *Assigner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assigner{
		registry: registry,
		store:    st,
		resolver: relation.NewResolver(st),
		logger:   logger,
		setters:  make(map[string]SetterFunc),
	}
}

// Register wires a base setter for one association. The association must be
// registered in the schema registry and may only get one setter.
func (a *Assigner) Register(owner, name string, base SetterFunc) error {
	if base == nil {
		return fmt.Errorf("association %s.%s: base setter is required", owner, name)
	}
	if _, ok := a.registry.Association(owner, name); !ok {
		return fmt.Errorf("unknown association %s.%s", owner, name)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	key := setterKey(owner, name)
	if _, exists := a.setters[key]; exists {
		return fmt.Errorf("association %s.%s already has a base setter", owner, name)
	}
	a.setters[key] = base
	return nil
}

// RegisterBase wires the built-in base setter (see base.go) for one
// association.
func (a *Assigner) RegisterBase(owner, name string) error {
	return a.Register(owner, name, a.baseSetter(name))
}

// Assign assigns nested attributes for one association of the parent record.
// Raw input accepts a mapping for singular associations and a sequence or
// index-keyed mapping for collections; see record.NormalizeCollection. For
// translation-shared associations payloads are routed per the package
// documentation, everything else passes through to the base setter untouched.
func (a *Assigner) Assign(ctx context.Context, parent *record.Record, name string, raw any) error {
	start := time.Now()
	ctx, span := startSpan(ctx, "nested.assign",
		attribute.String("association", name),
	)
	defer span.End()

	err := a.assign(ctx, span, parent, name, raw)
	if err != nil {
		recordSpanError(span, err)
	}
	if m := observability.AssignmentMetricsFromContext(ctx); m != nil {
		m.RecordAssignment(ctx, time.Since(start), err != nil, name)
	}
	return err
}

func (a *Assigner) assign(ctx context.Context, span trace.Span, parent *record.Record, name string, raw any) error {
	if parent == nil {
		return fmt.Errorf("parent record is required")
	}
	span.SetAttributes(attribute.String("record.type", parent.TypeName()))

	assoc, ok := a.registry.Association(parent.TypeName(), name)
	if !ok {
		return fmt.Errorf("unknown association %s.%s", parent.TypeName(), name)
	}
	base := a.setterFor(parent.TypeName(), name)
	if base == nil {
		return fmt.Errorf("no base setter registered for %s.%s", parent.TypeName(), name)
	}

	if !assoc.SharedFor(parent) {
		return base(ctx, parent, raw)
	}

	payloads, single, err := a.normalize(assoc, raw)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", assoc.Owner, assoc.Name, err)
	}
	span.SetAttributes(attribute.Int("payloads.count", len(payloads)))

	target, ok := a.registry.Type(assoc.Target)
	if !ok {
		return fmt.Errorf("association %s.%s: unknown target type %q", assoc.Owner, assoc.Name, assoc.Target)
	}

	// The direct-update branch for non-translatable targets never consults
	// the locale, so only translatable targets require one.
	var current language.Tag
	if target.Translatable() {
		current, ok = locale.From(ctx)
		if !ok {
			return fmt.Errorf("%s.%s is translation shared and no locale is set on the context", assoc.Owner, assoc.Name)
		}
		span.SetAttributes(attribute.String("locale", current.String()))
	}

	candidates, err := a.snapshot(ctx, parent, assoc)
	if err != nil {
		return err
	}

	for i, payload := range payloads {
		decision, err := a.route(ctx, parent, assoc, target, current, candidates, payload)
		if err != nil {
			return err
		}
		if decision == decisionSuppress {
			payloads[i] = record.NewPayload()
		}
		if m := observability.AssignmentMetricsFromContext(ctx); m != nil {
			m.RecordPayloadDecision(ctx, assoc.Name, decision)
		}
	}

	if single {
		return base(ctx, parent, payloads[0])
	}
	return base(ctx, parent, payloads)
}

// route decides what happens to one payload and applies in-payload rewrites.
// Suppression is reported back instead of applied because the payload object
// itself gets replaced.
func (a *Assigner) route(ctx context.Context, parent *record.Record, assoc *schema.Association, target *schema.RecordType, current language.Tag, candidates relation.CandidateSet, payload *record.Payload) (string, error) {
	id, ok := payload.ID()
	if !ok {
		return decisionCreate, nil
	}

	existing, err := a.resolver.FindExisting(ctx, assoc, id, candidates)
	if m := observability.AssignmentMetricsFromContext(ctx); m != nil {
		source := "store"
		if candidates != nil {
			source = "candidates"
		}
		m.RecordLookup(ctx, assoc.Name, source)
	}
	if err != nil {
		return "", err
	}

	if !target.Translatable() {
		fields := payload.Fields()
		delete(fields, record.FieldID)
		delete(fields, record.FieldDestroy)
		if len(fields) > 0 {
			if err := a.store.Update(ctx, existing, fields); err != nil {
				return "", fmt.Errorf("failed to update %s id %d: %w", assoc.Target, existing.ID(), err)
			}
		}
		return decisionDirectUpdate, nil
	}

	if locale.Matches(existing.Locale(), current) {
		return decisionPass, nil
	}

	destroy := payload.MarkedForDestroy()
	switch {
	case destroy && assoc.TranslationSharedOnInitialize && parent.IsNewRecord():
		a.logger.Debug("suppressing cascade destroy for sibling locale",
			slog.String("association", assoc.Name),
			slog.Int64("existing_id", existing.ID()),
			slog.String("existing_locale", existing.Locale()),
			slog.String("locale", current.String()),
		)
		return decisionSuppress, nil
	case !destroy:
		payload.ClearID()
		payload.Set(record.FieldContentID, existing.ContentID())
		a.logger.Debug("redirecting payload to new translation",
			slog.String("association", assoc.Name),
			slog.Int64("existing_id", existing.ID()),
			slog.String("content_id", existing.ContentID()),
			slog.String("existing_locale", existing.Locale()),
			slog.String("locale", current.String()),
		)
		return decisionRedirect, nil
	default:
		return decisionPass, nil
	}
}

// normalize validates the raw input shape. Singular associations take one
// mapping and delegate it as one mapping; collections delegate the ordered
// sequence whatever form they arrived in.
func (a *Assigner) normalize(assoc *schema.Association, raw any) ([]*record.Payload, bool, error) {
	if assoc.IsCollection() {
		payloads, _, err := record.NormalizeCollection(raw)
		if err != nil {
			return nil, false, err
		}
		return payloads, false, nil
	}
	payload, err := record.NormalizeSingle(raw)
	if err != nil {
		return nil, true, err
	}
	return []*record.Payload{payload}, true, nil
}

// snapshot loads the parent's current related rows once per assignment call.
// New parents have no persisted relations, so no snapshot exists and lookups
// fall back to the store. A loaded empty set still counts as a snapshot.
func (a *Assigner) snapshot(ctx context.Context, parent *record.Record, assoc *schema.Association) (relation.CandidateSet, error) {
	if parent.IsNewRecord() {
		return nil, nil
	}

	if rows, ok := parent.Associated(assoc.Name); ok {
		if rows == nil {
			rows = []*record.Record{}
		}
		return relation.CandidateSet(rows), nil
	}

	rows, err := a.loadRelated(ctx, parent, assoc)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []*record.Record{}
	}
	parent.SetAssociated(assoc.Name, rows)
	if m := observability.AssignmentMetricsFromContext(ctx); m != nil {
		m.RecordSnapshotSize(ctx, assoc.Name, int64(len(rows)))
	}
	return relation.CandidateSet(rows), nil
}

// loadRelated reads the rows currently associated with the parent. A
// reference association resolves the parent's foreign key; a missing or
// dangling key yields an empty set rather than an error.
func (a *Assigner) loadRelated(ctx context.Context, parent *record.Record, assoc *schema.Association) ([]*record.Record, error) {
	if assoc.IsCollection() {
		return a.store.ListRelated(ctx, parent, assoc)
	}

	fk, ok := parent.Get(assoc.ForeignKey)
	if !ok || fk == nil {
		return []*record.Record{}, nil
	}
	id, ok := record.CoerceID(fk)
	if !ok || id == 0 {
		return []*record.Record{}, nil
	}
	rec, err := a.store.FindByID(ctx, assoc.Target, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return []*record.Record{}, nil
		}
		return nil, err
	}
	return []*record.Record{rec}, nil
}

func (a *Assigner) setterFor(owner, name string) SetterFunc {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.setters[setterKey(owner, name)]
}

func setterKey(owner, name string) string {
	return owner + "." + name
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer("record-i18n/nested")
	ctx, span := tracer.Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

func recordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
