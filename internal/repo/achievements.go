package repo

import (
	"context"
	"database/sql"

	"petiqa/internal/domain"
)

func scanAchievement(scan func(dest ...any) error) (domain.AchievementState, error) {
	var a domain.AchievementState
	var completedAt, claimedAt sql.NullString
	err := scan(&a.PetID, &a.AchievementID, &a.Completed, &a.Claimed, &completedAt, &claimedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.String
	}
	if claimedAt.Valid {
		a.ClaimedAt = &claimedAt.String
	}
	return a, nil
}

func (r Repo) GetAchievement(ctx context.Context, tx *sql.Tx, petID, achievementID string) (domain.AchievementState, error) {
	row := tx.QueryRowContext(ctx, `SELECT pet_id,achievement_id,completed,claimed,completed_at,claimed_at FROM achievements WHERE pet_id=? AND achievement_id=?`, petID, achievementID)
	return scanAchievement(row.Scan)
}

func (r Repo) ListAchievements(ctx context.Context, petID string) ([]domain.AchievementState, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT pet_id,achievement_id,completed,claimed,completed_at,claimed_at FROM achievements WHERE pet_id=? ORDER BY achievement_id ASC`, petID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.AchievementState
	for rows.Next() {
		a, err := scanAchievement(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) UpsertAchievement(ctx context.Context, tx *sql.Tx, a domain.AchievementState) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO achievements(pet_id,achievement_id,completed,claimed,completed_at,claimed_at) VALUES (?,?,?,?,?,?)
ON CONFLICT(pet_id,achievement_id) DO UPDATE SET completed=excluded.completed, claimed=excluded.claimed, completed_at=excluded.completed_at, claimed_at=excluded.claimed_at`,
		a.PetID, a.AchievementID, a.Completed, a.Claimed, nullableStringPtr(a.CompletedAt), nullableStringPtr(a.ClaimedAt))
	return err
}
