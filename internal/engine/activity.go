package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"petiqa/internal/domain"
	"petiqa/internal/repo"
)

type ActivityResult struct {
	Score           *int     `json:"score,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
	Success         *bool    `json:"success,omitempty"`
}

type WalletEffect struct {
	Currency string `json:"currency"`
	Amount   int    `json:"amount"`
}

// ActivityEffects bundles the state changes an activity carries. All of
// them apply in the activity's transaction or not at all.
type ActivityEffects struct {
	Status    *StatusValues
	Wallet    []WalletEffect
	Inventory []InventoryAdjustment
}

type ActivityCompletion struct {
	Result   *ActivityResult
	Effects  *ActivityEffects
	Metadata map[string]any
}

// RecordActivityCompletion logs a finished activity and applies its
// declared effects. A positive score also accrues total experience.
func (e Engine) RecordActivityCompletion(ctx context.Context, petID, activityID string, opts ActivityCompletion) (domain.ActivityLog, error) {
	if err := checkPetID(petID); err != nil {
		return domain.ActivityLog{}, err
	}
	if activityID == "" {
		return domain.ActivityLog{}, invalidRequest("activity id is required", nil)
	}
	unlock := e.locks.lock(petID)
	defer unlock()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ActivityLog{}, err
	}
	defer tx.Rollback()

	pet, err := e.Repo.GetPetTx(ctx, tx, petID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.ActivityLog{}, petNotFound(petID)
	}
	if err != nil {
		return domain.ActivityLog{}, err
	}

	if opts.Effects != nil {
		if !opts.Effects.Status.empty() {
			upd := StatusUpdate{Inc: opts.Effects.Status, Source: "activity"}
			if _, err := e.applyStatusTx(ctx, tx, petID, upd, nil); err != nil {
				return domain.ActivityLog{}, err
			}
		}
		for _, w := range opts.Effects.Wallet {
			amount := w.Amount
			inc := WalletValues{}
			// Anything other than the point currency lands in coins.
			if w.Currency == domain.CurrencyPoint {
				inc.Points = &amount
			} else {
				inc.Coins = &amount
			}
			// The completion metadata rides along on each ledger row.
			metadata := map[string]any{}
			for k, v := range opts.Metadata {
				metadata[k] = v
			}
			metadata["activity_id"] = activityID
			if _, err := e.applyWalletTx(ctx, tx, &pet, WalletUpdate{
				Inc:      &inc,
				Reason:   fmt.Sprintf("Activity reward: %s", activityID),
				Metadata: metadata,
			}); err != nil {
				return domain.ActivityLog{}, err
			}
		}
		if len(opts.Effects.Inventory) > 0 {
			if _, err := e.applyInventoryTx(ctx, tx, petID, opts.Effects.Inventory); err != nil {
				return domain.ActivityLog{}, err
			}
		}
	}

	ts := e.timestamp()
	if opts.Result != nil && opts.Result.Score != nil && *opts.Result.Score > 0 {
		if err := e.Repo.AddPetExperience(ctx, tx, petID, *opts.Result.Score, ts); err != nil {
			return domain.ActivityLog{}, err
		}
	}

	entry := domain.ActivityLog{
		ID:         uuid.New().String(),
		PetID:      petID,
		ActivityID: activityID,
		CreatedAt:  ts,
	}
	if entry.ResultJSON, err = marshalOptional(opts.Result); err != nil {
		return domain.ActivityLog{}, err
	}
	if entry.EffectsJSON, err = marshalOptional(opts.Effects); err != nil {
		return domain.ActivityLog{}, err
	}
	if entry.MetadataJSON, err = marshalOptional(opts.Metadata); err != nil {
		return domain.ActivityLog{}, err
	}
	if err := e.Repo.InsertActivityLog(ctx, tx, entry); err != nil {
		return domain.ActivityLog{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.ActivityLog{}, err
	}
	return entry, nil
}

func marshalOptional(v any) (*string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case *ActivityResult:
		if t == nil {
			return nil, nil
		}
	case *ActivityEffects:
		if t == nil {
			return nil, nil
		}
	case map[string]any:
		if len(t) == 0 {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func (e Engine) ListActivityLogs(ctx context.Context, petID string, limit int) ([]domain.ActivityLog, error) {
	if _, err := e.GetPet(ctx, petID); err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = 50
	}
	if limit < 1 {
		return nil, invalidRequest("limit must be positive", map[string]any{"limit": limit})
	}
	return e.Repo.ListActivityLogs(ctx, petID, limit)
}

// LogEvent records a free-form gameplay event. Effects are stored for
// audit, not applied.
func (e Engine) LogEvent(ctx context.Context, petID, evtType, description string, effects, metadata map[string]any) (domain.EventLog, error) {
	if err := checkPetID(petID); err != nil {
		return domain.EventLog{}, err
	}
	if evtType == "" {
		return domain.EventLog{}, invalidRequest("event type is required", nil)
	}
	if description == "" {
		return domain.EventLog{}, invalidRequest("event description is required", nil)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.EventLog{}, err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetPetTx(ctx, tx, petID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.EventLog{}, petNotFound(petID)
		}
		return domain.EventLog{}, err
	}
	entry, err := e.Events.Append(ctx, tx, petID, evtType, description, effects, metadata)
	if err != nil {
		return domain.EventLog{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.EventLog{}, err
	}
	return entry, nil
}

func (e Engine) ListEventLogs(ctx context.Context, petID string, limit int) ([]domain.EventLog, error) {
	if _, err := e.GetPet(ctx, petID); err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = 50
	}
	if limit < 1 {
		return nil, invalidRequest("limit must be positive", map[string]any{"limit": limit})
	}
	return e.Repo.ListEventLogs(ctx, petID, limit)
}
