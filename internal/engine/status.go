package engine

import (
	"context"
	"database/sql"
	"errors"

	"petiqa/internal/domain"
	"petiqa/internal/repo"
)

// StatusValues carries optional per-metric values. Nil fields are left
// untouched by both set and increment updates.
type StatusValues struct {
	Energy    *int
	Mood      *int
	Satiation *int
	Vitality  *int
}

func (v *StatusValues) empty() bool {
	return v == nil || (v.Energy == nil && v.Mood == nil && v.Satiation == nil && v.Vitality == nil)
}

// StatusUpdate applies sets first, then increments, clamping every metric
// into [0,100] after each phase.
type StatusUpdate struct {
	Set    *StatusValues
	Inc    *StatusValues
	Source string
}

func clampMetric(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func applyStatusValues(s *domain.StatusSnapshot, set, inc *StatusValues) {
	if set != nil {
		if set.Energy != nil {
			s.Energy = clampMetric(*set.Energy)
		}
		if set.Mood != nil {
			s.Mood = clampMetric(*set.Mood)
		}
		if set.Satiation != nil {
			s.Satiation = clampMetric(*set.Satiation)
		}
		if set.Vitality != nil {
			s.Vitality = clampMetric(*set.Vitality)
		}
	}
	if inc != nil {
		if inc.Energy != nil {
			s.Energy = clampMetric(s.Energy + *inc.Energy)
		}
		if inc.Mood != nil {
			s.Mood = clampMetric(s.Mood + *inc.Mood)
		}
		if inc.Satiation != nil {
			s.Satiation = clampMetric(s.Satiation + *inc.Satiation)
		}
		if inc.Vitality != nil {
			s.Vitality = clampMetric(s.Vitality + *inc.Vitality)
		}
	}
}

func (e Engine) GetStatus(ctx context.Context, petID string) (domain.StatusSnapshot, error) {
	pet, err := e.GetPet(ctx, petID)
	if err != nil {
		return domain.StatusSnapshot{}, err
	}
	return pet.Status, nil
}

func (e Engine) UpdateStatus(ctx context.Context, petID string, upd StatusUpdate) (domain.StatusSnapshot, error) {
	if err := checkPetID(petID); err != nil {
		return domain.StatusSnapshot{}, err
	}
	if upd.Set.empty() && upd.Inc.empty() {
		return domain.StatusSnapshot{}, invalidRequest("no status fields supplied", nil)
	}
	unlock := e.locks.lock(petID)
	defer unlock()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.StatusSnapshot{}, err
	}
	defer tx.Rollback()

	snap, err := e.applyStatusTx(ctx, tx, petID, upd, nil)
	if err != nil {
		return domain.StatusSnapshot{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.StatusSnapshot{}, err
	}
	return snap, nil
}

// applyStatusTx mutates the stored snapshot inside the caller's
// transaction. lastTickAt, when non-nil, stamps the tick watermark.
func (e Engine) applyStatusTx(ctx context.Context, tx *sql.Tx, petID string, upd StatusUpdate, lastTickAt *string) (domain.StatusSnapshot, error) {
	pet, err := e.Repo.GetPetTx(ctx, tx, petID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.StatusSnapshot{}, petNotFound(petID)
	}
	if err != nil {
		return domain.StatusSnapshot{}, err
	}
	applyStatusValues(&pet.Status, upd.Set, upd.Inc)
	pet.Status.UpdatedAt = e.timestamp()
	if err := e.Repo.UpdatePetStatus(ctx, tx, petID, pet.Status, lastTickAt); err != nil {
		return domain.StatusSnapshot{}, err
	}
	return pet.Status, nil
}

// Tick simulates the passage of time: satiation and mood decay by one
// point per tick interval while energy recovers, capped per call.
func (e Engine) Tick(ctx context.Context, petID string, minutes int) (domain.StatusSnapshot, error) {
	if err := checkPetID(petID); err != nil {
		return domain.StatusSnapshot{}, err
	}
	interval := e.Config.Tick.IntervalMinutes
	if minutes == 0 {
		minutes = interval
	}
	if minutes < 1 || minutes > e.Config.Tick.MaxMinutes {
		return domain.StatusSnapshot{}, invalidRequest("minutes out of range", map[string]any{
			"minutes": minutes,
			"min":     1,
			"max":     e.Config.Tick.MaxMinutes,
		})
	}
	decay := minutes / interval
	gain := decay
	if limit := e.Config.Tick.EnergyGainCap; gain > limit {
		gain = limit
	}
	negDecay := -decay
	upd := StatusUpdate{
		Inc: &StatusValues{
			Energy:    &gain,
			Mood:      &negDecay,
			Satiation: &negDecay,
		},
		Source: "tick",
	}

	unlock := e.locks.lock(petID)
	defer unlock()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.StatusSnapshot{}, err
	}
	defer tx.Rollback()

	tickedAt := e.timestamp()
	snap, err := e.applyStatusTx(ctx, tx, petID, upd, &tickedAt)
	if err != nil {
		return domain.StatusSnapshot{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.StatusSnapshot{}, err
	}
	return snap, nil
}
