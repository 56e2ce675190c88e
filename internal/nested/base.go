package nested

import (
	"context"
	"fmt"
	"log/slog"

	"record-i18n/internal/locale"
	"record-i18n/internal/record"
	"record-i18n/internal/schema"
	"record-i18n/internal/store"
)

// baseSetter returns the built-in assignment primitive for one association.
// It implements the usual nested-attribute semantics on the parent's staged
// children: payloads with an id update or destroy the matching loaded child,
// id-less payloads build new children under the current locale, and empty
// payloads are skipped. Changes stay in memory until the record graph is
// saved.
func (a *Assigner) baseSetter(name string) SetterFunc {
	return func(ctx context.Context, parent *record.Record, raw any) error {
		return a.applyBase(ctx, parent, name, raw)
	}
}

func (a *Assigner) applyBase(ctx context.Context, parent *record.Record, name string, raw any) error {
	assoc, ok := a.registry.Association(parent.TypeName(), name)
	if !ok {
		return fmt.Errorf("unknown association %s.%s", parent.TypeName(), name)
	}
	target, ok := a.registry.Type(assoc.Target)
	if !ok {
		return fmt.Errorf("association %s.%s: unknown target type %q", assoc.Owner, assoc.Name, assoc.Target)
	}

	if assoc.IsCollection() {
		payloads, _, err := record.NormalizeCollection(raw)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", assoc.Owner, assoc.Name, err)
		}
		return a.applyCollection(ctx, parent, assoc, target, payloads)
	}

	payload, err := record.NormalizeSingle(raw)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", assoc.Owner, assoc.Name, err)
	}
	return a.applySingle(ctx, parent, assoc, target, payload)
}

func (a *Assigner) applyCollection(ctx context.Context, parent *record.Record, assoc *schema.Association, target *schema.RecordType, payloads []*record.Payload) error {
	children, err := a.loadChildren(ctx, parent, assoc)
	if err != nil {
		return err
	}

	touched := make(map[*record.Record]struct{}, len(payloads))
	for _, payload := range payloads {
		if payload.Empty() {
			continue
		}

		if rawID, ok := payload.ID(); ok {
			child, err := matchChild(assoc, children, rawID)
			if err != nil {
				return err
			}
			touched[child] = struct{}{}
			if payload.MarkedForDestroy() {
				child.MarkForDestroy()
				continue
			}
			applyFields(child, payload)
			continue
		}

		if payload.MarkedForDestroy() {
			continue
		}

		child, err := a.buildChild(ctx, assoc, target, payload)
		if err != nil {
			return err
		}
		children = append(children, child)
		touched[child] = struct{}{}
	}

	if assoc.TranslationSharedOnInitialize && parent.IsNewRecord() {
		children = a.pruneUnlisted(assoc, children, touched)
	}
	parent.SetAssociated(assoc.Name, children)
	return nil
}

func (a *Assigner) applySingle(ctx context.Context, parent *record.Record, assoc *schema.Association, target *schema.RecordType, payload *record.Payload) error {
	if payload.Empty() {
		return nil
	}

	children, err := a.loadChildren(ctx, parent, assoc)
	if err != nil {
		return err
	}

	if rawID, ok := payload.ID(); ok {
		child, err := matchChild(assoc, children, rawID)
		if err != nil {
			return err
		}
		if payload.MarkedForDestroy() {
			child.MarkForDestroy()
		} else {
			applyFields(child, payload)
		}
		parent.SetAssociated(assoc.Name, children)
		return nil
	}

	if payload.MarkedForDestroy() {
		return nil
	}

	child, err := a.buildChild(ctx, assoc, target, payload)
	if err != nil {
		return err
	}
	// A new child replaces the staged set; what happens to a previously
	// associated row is the host's dependent-cleanup policy, not ours.
	parent.SetAssociated(assoc.Name, []*record.Record{child})
	return nil
}

// buildChild constructs a new unsaved child from a payload. Translatable
// children are stamped with the current locale and get a fresh content
// identity unless the payload already carries one, as redirected payloads do.
func (a *Assigner) buildChild(ctx context.Context, assoc *schema.Association, target *schema.RecordType, payload *record.Payload) (*record.Record, error) {
	fields := payload.Fields()
	delete(fields, record.FieldID)
	delete(fields, record.FieldDestroy)
	child := record.New(assoc.Target, fields)

	if target.Translatable() {
		if child.Locale() == "" {
			tag, ok := locale.From(ctx)
			if !ok {
				return nil, fmt.Errorf("building %s.%s requires a locale in context or payload", assoc.Owner, assoc.Name)
			}
			child.Set(record.FieldLocale, tag.String())
		}
		if child.ContentID() == "" {
			child.Set(record.FieldContentID, record.NewContentID())
		}
	}
	return child, nil
}

// loadChildren returns the staged child set, loading it from the store once
// for persisted parents. The routing pass populates the same cache, so base
// assignment after routing reuses its snapshot.
func (a *Assigner) loadChildren(ctx context.Context, parent *record.Record, assoc *schema.Association) ([]*record.Record, error) {
	if rows, ok := parent.Associated(assoc.Name); ok {
		return rows, nil
	}
	if parent.IsNewRecord() {
		return nil, nil
	}

	rows, err := a.loadRelated(ctx, parent, assoc)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []*record.Record{}
	}
	parent.SetAssociated(assoc.Name, rows)
	return rows, nil
}

// pruneUnlisted implements the propagation auto-destroy that runs while a
// parent is first created: staged children not named by the assignment are
// dropped, persisted ones are marked for destruction.
func (a *Assigner) pruneUnlisted(assoc *schema.Association, children []*record.Record, touched map[*record.Record]struct{}) []*record.Record {
	kept := make([]*record.Record, 0, len(children))
	for _, child := range children {
		if _, ok := touched[child]; ok {
			kept = append(kept, child)
			continue
		}
		if child.IsNewRecord() {
			a.logger.Debug("dropping unlisted staged child during creation cascade",
				slog.String("association", assoc.Name),
				slog.String("record_type", child.TypeName()),
			)
			continue
		}
		child.MarkForDestroy()
		kept = append(kept, child)
	}
	return kept
}

func matchChild(assoc *schema.Association, children []*record.Record, rawID any) (*record.Record, error) {
	id, ok := record.CoerceID(rawID)
	if !ok {
		return nil, fmt.Errorf("%s.%s id %v is not a record identifier: %w",
			assoc.Owner, assoc.Name, rawID, store.ErrNotFound)
	}
	for _, child := range children {
		if child != nil && child.ID() == id {
			return child, nil
		}
	}
	return nil, fmt.Errorf("%s.%s id %d not in loaded set: %w",
		assoc.Owner, assoc.Name, id, store.ErrNotFound)
}

func applyFields(child *record.Record, payload *record.Payload) {
	for _, key := range payload.Keys() {
		if key == record.FieldID || key == record.FieldDestroy {
			continue
		}
		v, _ := payload.Get(key)
		child.Set(key, v)
	}
}
