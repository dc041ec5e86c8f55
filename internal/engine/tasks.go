package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"petiqa/internal/domain"
	"petiqa/internal/repo"
)

// cycleKey identifies the daily cycle by UTC calendar date.
func (e Engine) cycleKey() string {
	return e.now().UTC().Format("2006-01-02")
}

// ensureCycleTx returns today's task cycle, creating it from the daily
// task catalog on first access.
func (e Engine) ensureCycleTx(ctx context.Context, tx *sql.Tx, petID string) (domain.TaskCycle, error) {
	key := e.cycleKey()
	cycle, err := e.Repo.GetTaskCycle(ctx, tx, petID, key)
	if err == nil {
		return cycle, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return domain.TaskCycle{}, err
	}
	var tasks []domain.TaskRecord
	for _, t := range e.Config.Tasks.Daily {
		tasks = append(tasks, domain.TaskRecord{
			TaskID:         t.ID,
			RewardCurrency: t.RewardCurrency,
			RewardAmount:   t.RewardAmount,
		})
	}
	return e.Repo.InsertTaskCycle(ctx, tx, petID, key, e.timestamp(), tasks)
}

// DailyTasks returns the pet's task list for the current UTC day,
// creating the cycle if this is the first call of the day.
func (e Engine) DailyTasks(ctx context.Context, petID string) (domain.TaskCycle, error) {
	if err := checkPetID(petID); err != nil {
		return domain.TaskCycle{}, err
	}
	unlock := e.locks.lock(petID)
	defer unlock()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.TaskCycle{}, err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetPetTx(ctx, tx, petID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.TaskCycle{}, petNotFound(petID)
		}
		return domain.TaskCycle{}, err
	}
	cycle, err := e.ensureCycleTx(ctx, tx, petID)
	if err != nil {
		return domain.TaskCycle{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.TaskCycle{}, err
	}
	return cycle, nil
}

// CompleteTask marks a daily task done and pays its reward in one step.
// Completing an already-claimed task is a no-op that returns the stored
// record, so retried requests never double-pay.
func (e Engine) CompleteTask(ctx context.Context, petID, taskID, source string) (domain.TaskRecord, error) {
	if err := checkPetID(petID); err != nil {
		return domain.TaskRecord{}, err
	}
	if taskID == "" {
		return domain.TaskRecord{}, invalidRequest("task id is required", nil)
	}
	unlock := e.locks.lock(petID)
	defer unlock()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.TaskRecord{}, err
	}
	defer tx.Rollback()

	pet, err := e.Repo.GetPetTx(ctx, tx, petID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.TaskRecord{}, petNotFound(petID)
	}
	if err != nil {
		return domain.TaskRecord{}, err
	}
	cycle, err := e.ensureCycleTx(ctx, tx, petID)
	if err != nil {
		return domain.TaskRecord{}, err
	}
	var task *domain.TaskRecord
	for i := range cycle.Tasks {
		if cycle.Tasks[i].TaskID == taskID {
			task = &cycle.Tasks[i]
			break
		}
	}
	if task == nil {
		return domain.TaskRecord{}, notFound("task not in today's cycle", map[string]any{"task_id": taskID})
	}
	if task.RewardClaimed {
		return *task, nil
	}

	ts := e.timestamp()
	task.Completed = true
	task.RewardClaimed = true
	if task.CompletedAt == nil {
		task.CompletedAt = &ts
	}
	task.ClaimedAt = &ts
	if err := e.Repo.UpdateTaskRecord(ctx, tx, cycle.ID, *task); err != nil {
		return domain.TaskRecord{}, err
	}

	if task.RewardAmount > 0 {
		inc := WalletValues{}
		if task.RewardCurrency == domain.CurrencyPoint {
			inc.Points = &task.RewardAmount
		} else {
			inc.Coins = &task.RewardAmount
		}
		metadata := map[string]any{"task_id": taskID, "cycle_key": cycle.CycleKey}
		if source != "" {
			metadata["source"] = source
		}
		if _, err := e.applyWalletTx(ctx, tx, &pet, WalletUpdate{
			Inc:      &inc,
			Reason:   fmt.Sprintf("Task reward: %s", taskID),
			Metadata: metadata,
		}); err != nil {
			return domain.TaskRecord{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.TaskRecord{}, err
	}
	return *task, nil
}
