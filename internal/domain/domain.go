package domain

import "time"

// Metric and currency tags are stored as plain strings so the schema
// stays readable; the engine only ever writes the constants below.

const (
	MetricEnergy    = "energy"
	MetricMood      = "mood"
	MetricSatiation = "satiation"
	MetricVitality  = "vitality"
)

const (
	CurrencyCoin  = "coin"
	CurrencyPoint = "point"
)

const (
	ItemKindFood      = "food"
	ItemKindToy       = "toy"
	ItemKindCosmetic  = "cosmetic"
	ItemKindInsurance = "insurance"
	ItemKindMaterial  = "material"
	ItemKindMisc      = "misc"
)

type Pet struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Character       *string        `json:"character,omitempty"`
	Status          StatusSnapshot `json:"status"`
	Wallet          WalletSnapshot `json:"wallet"`
	TotalExperience int            `json:"total_experience"`
	LastTickAt      *string        `json:"last_status_tick_at,omitempty" format:"date-time"`
	CreatedAt       string         `json:"created_at" format:"date-time"`
	UpdatedAt       string         `json:"updated_at" format:"date-time"`
}

// StatusSnapshot holds the four bounded lifecycle metrics, each in [0,100].
type StatusSnapshot struct {
	Energy    int    `json:"energy" minimum:"0" maximum:"100"`
	Mood      int    `json:"mood" minimum:"0" maximum:"100"`
	Satiation int    `json:"satiation" minimum:"0" maximum:"100"`
	Vitality  int    `json:"vitality" minimum:"0" maximum:"100"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type WalletSnapshot struct {
	Coins     int    `json:"coins" minimum:"0"`
	Points    int    `json:"points" minimum:"0"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type InventoryEntry struct {
	Name      string `json:"name"`
	Kind      string `json:"kind" enum:"food,toy,cosmetic,insurance,material,misc"`
	Quantity  int    `json:"quantity" minimum:"0"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

// LedgerEntry is one immutable record of a non-zero balance change.
type LedgerEntry struct {
	ID           int64   `json:"id"`
	PetID        string  `json:"pet_id"`
	Currency     string  `json:"currency" enum:"coin,point"`
	Amount       int     `json:"amount"`
	BalanceAfter int     `json:"balance_after"`
	Reason       *string `json:"reason,omitempty"`
	MetadataJSON *string `json:"metadata_json,omitempty"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
}

// TaskRecord tracks one daily task inside a cycle. Completion and reward
// claim are fused: completing an unclaimed task pays the reward in the
// same call.
type TaskRecord struct {
	TaskID         string  `json:"task_id"`
	Completed      bool    `json:"completed"`
	RewardClaimed  bool    `json:"reward_claimed"`
	CompletedAt    *string `json:"completed_at,omitempty" format:"date-time"`
	ClaimedAt      *string `json:"claimed_at,omitempty" format:"date-time"`
	RewardCurrency string  `json:"reward_currency" enum:"coin,point"`
	RewardAmount   int     `json:"reward_amount" minimum:"0"`
}

type TaskCycle struct {
	ID        int64        `json:"id"`
	PetID     string       `json:"pet_id"`
	CycleKey  string       `json:"cycle_key"`
	Tasks     []TaskRecord `json:"tasks"`
	CreatedAt string       `json:"created_at" format:"date-time"`
}

type AchievementState struct {
	PetID         string  `json:"pet_id"`
	AchievementID string  `json:"achievement_id"`
	Completed     bool    `json:"completed"`
	Claimed       bool    `json:"claimed"`
	CompletedAt   *string `json:"completed_at,omitempty" format:"date-time"`
	ClaimedAt     *string `json:"claimed_at,omitempty" format:"date-time"`
}

type ActivityLog struct {
	ID           string  `json:"id"`
	PetID        string  `json:"pet_id"`
	ActivityID   string  `json:"activity_id"`
	ResultJSON   *string `json:"result_json,omitempty"`
	EffectsJSON  *string `json:"effects_json,omitempty"`
	MetadataJSON *string `json:"metadata_json,omitempty"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
}

type EventLog struct {
	ID           string  `json:"id"`
	PetID        string  `json:"pet_id"`
	Type         string  `json:"type"`
	Description  string  `json:"description"`
	EffectsJSON  *string `json:"effects_json,omitempty"`
	MetadataJSON *string `json:"metadata_json,omitempty"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
}

// NewPet builds a fully populated pet document. All nested defaults live
// here rather than in the schema, so a created pet never depends on
// storage-layer default injection.
func NewPet(id, name string, character *string, now time.Time) Pet {
	ts := now.UTC().Format(time.RFC3339)
	return Pet{
		ID:        id,
		Name:      name,
		Character: character,
		Status: StatusSnapshot{
			Energy:    100,
			Mood:      100,
			Satiation: 100,
			Vitality:  100,
			UpdatedAt: ts,
		},
		Wallet: WalletSnapshot{
			Coins:     0,
			Points:    0,
			UpdatedAt: ts,
		},
		TotalExperience: 0,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
}
