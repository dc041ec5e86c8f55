package server

import (
	"petiqa/internal/domain"
	"petiqa/internal/engine"
)

type CreatePetRequest struct {
	Name      string  `json:"name" example:"Momo"`
	Character *string `json:"character,omitempty" example:"A cheerful axolotl"`
}

type UpdatePetRequest struct {
	Name      *string `json:"name,omitempty"`
	Character *string `json:"character,omitempty"`
}

type StatusValuesRequest struct {
	Energy    *int `json:"energy,omitempty"`
	Mood      *int `json:"mood,omitempty"`
	Satiation *int `json:"satiation,omitempty"`
	Vitality  *int `json:"vitality,omitempty"`
}

func (r *StatusValuesRequest) toEngine() *engine.StatusValues {
	if r == nil {
		return nil
	}
	return &engine.StatusValues{
		Energy:    r.Energy,
		Mood:      r.Mood,
		Satiation: r.Satiation,
		Vitality:  r.Vitality,
	}
}

type UpdateStatusRequest struct {
	Set *StatusValuesRequest `json:"set,omitempty"`
	Inc *StatusValuesRequest `json:"inc,omitempty"`
}

type TickRequest struct {
	Minutes int `json:"minutes,omitempty" minimum:"0" maximum:"360"`
}

type WalletValuesRequest struct {
	Coins  *int `json:"coins,omitempty"`
	Points *int `json:"points,omitempty"`
}

func (r *WalletValuesRequest) toEngine() *engine.WalletValues {
	if r == nil {
		return nil
	}
	return &engine.WalletValues{Coins: r.Coins, Points: r.Points}
}

type UpdateWalletRequest struct {
	Set      *WalletValuesRequest `json:"set,omitempty"`
	Inc      *WalletValuesRequest `json:"inc,omitempty"`
	Reason   string               `json:"reason,omitempty"`
	Metadata map[string]any       `json:"metadata,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

type InventoryAdjustmentRequest struct {
	Item  string `json:"item" example:"Apple"`
	Delta int    `json:"delta" example:"2"`
}

type AdjustInventoryRequest struct {
	Adjustments []InventoryAdjustmentRequest `json:"adjustments"`
	// Reason is accepted for client-side bookkeeping; quantities carry no ledger.
	Reason string `json:"reason,omitempty"`
}

func (r AdjustInventoryRequest) toEngine() []engine.InventoryAdjustment {
	out := make([]engine.InventoryAdjustment, 0, len(r.Adjustments))
	for _, a := range r.Adjustments {
		out = append(out, engine.InventoryAdjustment{Item: a.Item, Delta: a.Delta})
	}
	return out
}

type UseItemRequest struct {
	Item     string `json:"item" example:"Apple"`
	Quantity int    `json:"quantity,omitempty" minimum:"0"`
	// ApplyEffects opts into the configured consumption boost; a bare
	// use only consumes stock.
	ApplyEffects bool `json:"apply_effects,omitempty"`
}

type CompleteTaskRequest struct {
	Source string `json:"source,omitempty" example:"mobile"`
}

type ActivityResultRequest struct {
	Score           *int     `json:"score,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
	Success         *bool    `json:"success,omitempty"`
}

type ActivityEffectsRequest struct {
	Status    *StatusValuesRequest         `json:"status,omitempty"`
	Wallet    []WalletEffectRequest        `json:"wallet,omitempty"`
	Inventory []InventoryAdjustmentRequest `json:"inventory,omitempty"`
}

type WalletEffectRequest struct {
	Currency string `json:"currency" enum:"coin,point"`
	Amount   int    `json:"amount"`
}

type ActivityCompleteRequest struct {
	Result   *ActivityResultRequest  `json:"result,omitempty"`
	Effects  *ActivityEffectsRequest `json:"effects,omitempty"`
	Metadata map[string]any          `json:"metadata,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

func (r ActivityCompleteRequest) toEngine() engine.ActivityCompletion {
	opts := engine.ActivityCompletion{Metadata: r.Metadata}
	if r.Result != nil {
		opts.Result = &engine.ActivityResult{
			Score:           r.Result.Score,
			DurationSeconds: r.Result.DurationSeconds,
			Success:         r.Result.Success,
		}
	}
	if r.Effects != nil {
		effects := &engine.ActivityEffects{Status: r.Effects.Status.toEngine()}
		for _, w := range r.Effects.Wallet {
			effects.Wallet = append(effects.Wallet, engine.WalletEffect{Currency: w.Currency, Amount: w.Amount})
		}
		for _, a := range r.Effects.Inventory {
			effects.Inventory = append(effects.Inventory, engine.InventoryAdjustment{Item: a.Item, Delta: a.Delta})
		}
		opts.Effects = effects
	}
	return opts
}

type CreateEventRequest struct {
	Type        string         `json:"type" example:"vet.visit"`
	Description string         `json:"description" example:"Annual checkup"`
	Effects     map[string]any `json:"effects,omitempty" jsonschema:"type=object,additionalProperties=true"`
	Metadata    map[string]any `json:"metadata,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

type InventoryResponse struct {
	Items map[string]domain.InventoryEntry `json:"items"`
}

type TransactionsResponse struct {
	Items []domain.LedgerEntry `json:"items"`
}

type ActivityLogsResponse struct {
	Items []domain.ActivityLog `json:"items"`
}

type EventLogsResponse struct {
	Items []domain.EventLog `json:"items"`
}

type AchievementsResponse struct {
	Items []domain.AchievementState `json:"items"`
}
