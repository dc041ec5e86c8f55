package repo

import (
	"context"
	"database/sql"

	"petiqa/internal/domain"
)

// GetTaskCycle fetches a cycle and its ordered task records.
func (r Repo) GetTaskCycle(ctx context.Context, tx *sql.Tx, petID, cycleKey string) (domain.TaskCycle, error) {
	var c domain.TaskCycle
	err := tx.QueryRowContext(ctx, `SELECT id,pet_id,cycle_key,created_at FROM task_cycles WHERE pet_id=? AND cycle_key=?`, petID, cycleKey).
		Scan(&c.ID, &c.PetID, &c.CycleKey, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	tasks, err := r.listTaskRecords(ctx, tx, c.ID)
	if err != nil {
		return c, err
	}
	c.Tasks = tasks
	return c, nil
}

func (r Repo) InsertTaskCycle(ctx context.Context, tx *sql.Tx, petID, cycleKey, createdAt string, tasks []domain.TaskRecord) (domain.TaskCycle, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO task_cycles(pet_id,cycle_key,created_at) VALUES (?,?,?)`, petID, cycleKey, createdAt)
	if err != nil {
		return domain.TaskCycle{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.TaskCycle{}, err
	}
	for i, t := range tasks {
		if _, err := tx.ExecContext(ctx, `INSERT INTO task_records(cycle_id,position,task_id,completed,reward_claimed,completed_at,claimed_at,reward_currency,reward_amount) VALUES (?,?,?,?,?,?,?,?,?)`,
			id, i, t.TaskID, t.Completed, t.RewardClaimed, nullableStringPtr(t.CompletedAt), nullableStringPtr(t.ClaimedAt), t.RewardCurrency, t.RewardAmount); err != nil {
			return domain.TaskCycle{}, err
		}
	}
	return domain.TaskCycle{ID: id, PetID: petID, CycleKey: cycleKey, Tasks: tasks, CreatedAt: createdAt}, nil
}

func (r Repo) UpdateTaskRecord(ctx context.Context, tx *sql.Tx, cycleID int64, t domain.TaskRecord) error {
	res, err := tx.ExecContext(ctx, `UPDATE task_records SET completed=?, reward_claimed=?, completed_at=?, claimed_at=? WHERE cycle_id=? AND task_id=?`,
		t.Completed, t.RewardClaimed, nullableStringPtr(t.CompletedAt), nullableStringPtr(t.ClaimedAt), cycleID, t.TaskID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) listTaskRecords(ctx context.Context, tx *sql.Tx, cycleID int64) ([]domain.TaskRecord, error) {
	rows, err := tx.QueryContext(ctx, `SELECT task_id,completed,reward_claimed,completed_at,claimed_at,reward_currency,reward_amount FROM task_records WHERE cycle_id=? ORDER BY position ASC`, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TaskRecord
	for rows.Next() {
		var t domain.TaskRecord
		var completedAt, claimedAt sql.NullString
		if err := rows.Scan(&t.TaskID, &t.Completed, &t.RewardClaimed, &completedAt, &claimedAt, &t.RewardCurrency, &t.RewardAmount); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			t.CompletedAt = &completedAt.String
		}
		if claimedAt.Valid {
			t.ClaimedAt = &claimedAt.String
		}
		res = append(res, t)
	}
	return res, rows.Err()
}
