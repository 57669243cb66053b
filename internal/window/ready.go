package window

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/readrhq/readr/internal/edition"
	"github.com/readrhq/readr/internal/store"
)

// Composer builds an uncommitted edition for a window label.
type Composer interface {
	ComposeFromTemplate(ctx context.Context, windowLabel string, template *edition.Edition) (*edition.Edition, error)
}

// Readiness ensures exactly one edition and session exist per window
// label, tolerant of concurrent callers for the same label.
type Readiness struct {
	db       *store.DB
	composer Composer
}

// NewReadiness creates a readiness orchestrator.
func NewReadiness(db *store.DB, composer Composer) *Readiness {
	return &Readiness{db: db, composer: composer}
}

// EnsureWindowReady makes the window label's edition and session durable.
// Idempotent: a ready edition is left untouched, a seeded placeholder is
// recomposed in place, an absent edition is composed from the most recent
// prior edition as a structural template. Creation races lose gracefully
// via the uniqueness constraint; only composition failures propagate.
func (r *Readiness) EnsureWindowReady(ctx context.Context, windowLabel string) error {
	existing, err := r.db.GetEditionByLabel(windowLabel)
	if err != nil {
		return fmt.Errorf("loading edition for %s: %w", windowLabel, err)
	}

	if existing != nil && !existing.IsPlaceholder() {
		return r.ensureSession(windowLabel)
	}

	template := existing
	if template == nil {
		template, err = r.db.GetLatestEdition()
		if err != nil {
			return fmt.Errorf("loading template edition: %w", err)
		}
	}

	composed, err := r.composer.ComposeFromTemplate(ctx, windowLabel, template)
	if err != nil {
		return err
	}

	if existing != nil {
		// Placeholder: replace its card rows, keep the edition row.
		if err := r.db.ReplaceEditionCards(existing.ID, composed.Cards); err != nil {
			return fmt.Errorf("replacing placeholder cards for %s: %w", windowLabel, err)
		}
		return r.ensureSession(windowLabel)
	}

	if err := r.db.InsertEdition(composed); err != nil {
		if !errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("persisting edition for %s: %w", windowLabel, err)
		}
		// Lost the creation race; the winner's edition is the one.
		log.Printf("edition for %s already created by another caller", windowLabel)
	}

	return r.ensureSession(windowLabel)
}

func (r *Readiness) ensureSession(windowLabel string) error {
	existing, err := r.db.GetSession(windowLabel)
	if err != nil {
		return fmt.Errorf("loading session for %s: %w", windowLabel, err)
	}
	if existing != nil {
		return nil
	}

	if err := r.db.InsertSession(windowLabel); err != nil && !errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("creating session for %s: %w", windowLabel, err)
	}
	return nil
}
