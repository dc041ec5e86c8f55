package engine

import (
	"context"
	"errors"

	"petiqa/internal/domain"
	"petiqa/internal/repo"
)

func (e Engine) Achievements(ctx context.Context, petID string) ([]domain.AchievementState, error) {
	if _, err := e.GetPet(ctx, petID); err != nil {
		return nil, err
	}
	return e.Repo.ListAchievements(ctx, petID)
}

// ClaimAchievement marks an achievement completed and claimed. Claiming
// again returns the stored state untouched; completed_at keeps its first
// value.
func (e Engine) ClaimAchievement(ctx context.Context, petID, achievementID string) (domain.AchievementState, error) {
	if err := checkPetID(petID); err != nil {
		return domain.AchievementState{}, err
	}
	if achievementID == "" {
		return domain.AchievementState{}, invalidRequest("achievement id is required", nil)
	}
	unlock := e.locks.lock(petID)
	defer unlock()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.AchievementState{}, err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetPetTx(ctx, tx, petID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.AchievementState{}, petNotFound(petID)
		}
		return domain.AchievementState{}, err
	}
	state, err := e.Repo.GetAchievement(ctx, tx, petID, achievementID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return domain.AchievementState{}, err
	}
	if err == nil && state.Claimed {
		return state, nil
	}
	ts := e.timestamp()
	state.PetID = petID
	state.AchievementID = achievementID
	state.Completed = true
	if state.CompletedAt == nil {
		state.CompletedAt = &ts
	}
	state.Claimed = true
	state.ClaimedAt = &ts
	if err := e.Repo.UpsertAchievement(ctx, tx, state); err != nil {
		return domain.AchievementState{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.AchievementState{}, err
	}
	return state, nil
}
