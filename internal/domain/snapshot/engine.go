package snapshot

import (
	"context"
	"fmt"
	"time"
)

// Engine reconciles a freshly fetched batch of entities against the stored
// view, persisting the incoming state and recording a dated snapshot for
// every entity whose observable fields changed.
type Engine struct {
	snapshots Repository
	now       func() time.Time
}

// NewEngine creates a snapshot engine. now is injectable for tests; pass
// nil to use time.Now.
func NewEngine(snapshots Repository, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{snapshots: snapshots, now: now}
}

// Config describes how to reconcile one entity kind.
type Config[E any] struct {
	Kind Kind

	// Key returns the entity's stable id.
	Key func(e E) string

	// Parent returns the id of the entity's parent container (a holding's
	// account, for example). When nil, removal detection is disabled for
	// this kind: stored entities missing from the incoming batch are left
	// alone.
	Parent func(e E) string

	// Parents optionally lists the parent ids the provider reported this
	// cycle. When nil, parents are derived from the incoming batch; set it
	// when a parent can legitimately appear with zero children (an account
	// whose last position was sold) so those children still get removed.
	Parents []string

	// Equal reports whether the observable fields of two entities match.
	// Unequal pairs get a fresh snapshot.
	Equal func(a, b E) bool

	// Capture extracts the snapshot values from an entity.
	Capture func(e E) (Values, string)

	// Zero produces the terminal snapshot values recorded when an entity
	// disappears from its provider.
	Zero func(e E) (Values, string)

	// Upsert persists the entity's current state.
	Upsert func(ctx context.Context, e E) error
}

// Result reports what a Diff call did. Removed lists stored entities that
// vanished from the provider; the caller owns deleting them after their
// terminal snapshots have been written.
type Result[E any] struct {
	Upserted  []E
	Removed   []E
	Snapshots int
	Errors    []error
}

// Diff reconciles incoming against existing under cfg. Every incoming
// entity is upserted; a snapshot is written when the entity is new or its
// observable fields changed. Stored entities absent from incoming are
// marked removed only when their parent appears in the incoming batch, and
// each gets a terminal zero snapshot before being reported. Failures are
// isolated per entity so one bad write never blocks the rest of the batch.
func Diff[E any](ctx context.Context, eng *Engine, incoming, existing []E, cfg Config[E]) Result[E] {
	var res Result[E]
	date := SquashDate(eng.now())

	stored := make(map[string]E, len(existing))
	for _, e := range existing {
		stored[cfg.Key(e)] = e
	}

	seen := make(map[string]bool, len(incoming))
	for _, e := range incoming {
		key := cfg.Key(e)
		seen[key] = true

		prev, ok := stored[key]
		changed := !ok || !cfg.Equal(prev, e)

		if changed {
			values, currency := cfg.Capture(e)
			if err := eng.write(ctx, cfg.Kind, key, date, currency, values); err != nil {
				res.Errors = append(res.Errors, err)
				continue
			}
			res.Snapshots++
		}

		if err := cfg.Upsert(ctx, e); err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("failed to upsert %s %s: %w", cfg.Kind, key, err))
			continue
		}
		res.Upserted = append(res.Upserted, e)
	}

	if cfg.Parent == nil {
		return res
	}

	// A stored entity missing from the batch only counts as removed when
	// its parent was actually reported; an absent parent means the provider
	// omitted the whole container, not that the entity is gone.
	parents := make(map[string]bool, len(incoming))
	if cfg.Parents != nil {
		for _, id := range cfg.Parents {
			parents[id] = true
		}
	} else {
		for _, e := range incoming {
			parents[cfg.Parent(e)] = true
		}
	}

	for _, e := range existing {
		key := cfg.Key(e)
		if seen[key] || !parents[cfg.Parent(e)] {
			continue
		}
		values, currency := cfg.Zero(e)
		if err := eng.write(ctx, cfg.Kind, key, date, currency, values); err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		res.Snapshots++
		res.Removed = append(res.Removed, e)
	}

	return res
}

func (eng *Engine) write(ctx context.Context, kind Kind, entityID, date, currency string, values Values) error {
	snap := &Snapshot{
		ID:       ID(entityID, date),
		EntityID: entityID,
		Kind:     kind,
		Date:     date,
		Currency: currency,
		Values:   values,
	}
	if err := eng.snapshots.Upsert(ctx, snap); err != nil {
		return fmt.Errorf("failed to store %s snapshot for %s: %w", kind, entityID, err)
	}
	return nil
}
