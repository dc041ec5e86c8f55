package engine

import (
	"context"

	"petiqa/internal/domain"
)

// Progress aggregates the sections a client dashboard renders in one
// call. Only requested sections are populated.
type Progress struct {
	PetID           string                           `json:"pet_id"`
	TotalExperience int                              `json:"total_experience"`
	Status          *domain.StatusSnapshot           `json:"status,omitempty"`
	Wallet          *domain.WalletSnapshot           `json:"wallet,omitempty"`
	Inventory       map[string]domain.InventoryEntry `json:"inventory,omitempty"`
	Tasks           []domain.TaskRecord              `json:"tasks,omitempty"`
	Achievements    []domain.AchievementState        `json:"achievements,omitempty"`
}

const (
	SectionStatus       = "status"
	SectionWallet       = "wallet"
	SectionInventory    = "inventory"
	SectionTasks        = "tasks"
	SectionAchievements = "achievements"
)

// GetProgress builds the snapshot. An empty include list means every
// section; unknown section names are ignored.
func (e Engine) GetProgress(ctx context.Context, petID string, include []string) (Progress, error) {
	pet, err := e.GetPet(ctx, petID)
	if err != nil {
		return Progress{}, err
	}
	want := func(section string) bool {
		if len(include) == 0 {
			return true
		}
		for _, s := range include {
			if s == section {
				return true
			}
		}
		return false
	}
	p := Progress{PetID: pet.ID, TotalExperience: pet.TotalExperience}
	if want(SectionStatus) {
		status := pet.Status
		p.Status = &status
	}
	if want(SectionWallet) {
		wallet := pet.Wallet
		p.Wallet = &wallet
	}
	if want(SectionInventory) {
		inv, err := e.Repo.ListInventory(ctx, petID)
		if err != nil {
			return Progress{}, err
		}
		p.Inventory = inv
	}
	if want(SectionTasks) {
		cycle, err := e.DailyTasks(ctx, petID)
		if err != nil {
			return Progress{}, err
		}
		p.Tasks = cycle.Tasks
	}
	if want(SectionAchievements) {
		achievements, err := e.Repo.ListAchievements(ctx, petID)
		if err != nil {
			return Progress{}, err
		}
		p.Achievements = achievements
	}
	return p, nil
}
