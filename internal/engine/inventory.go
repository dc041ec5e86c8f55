package engine

import (
	"context"
	"database/sql"
	"errors"

	"petiqa/internal/domain"
	"petiqa/internal/repo"
)

type InventoryAdjustment struct {
	Item  string
	Delta int
}

// GetInventory returns the pet's inventory, optionally filtered to the
// named items. Requested items the pet has never held are omitted.
func (e Engine) GetInventory(ctx context.Context, petID string, items []string) (map[string]domain.InventoryEntry, error) {
	if _, err := e.GetPet(ctx, petID); err != nil {
		return nil, err
	}
	all, err := e.Repo.ListInventory(ctx, petID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return all, nil
	}
	filtered := map[string]domain.InventoryEntry{}
	for _, name := range items {
		if entry, ok := all[name]; ok {
			filtered[name] = entry
		}
	}
	return filtered, nil
}

func (e Engine) itemKind(name string) string {
	if spec, ok := e.Config.Items.Catalog[name]; ok {
		return spec.Kind
	}
	return domain.ItemKindMisc
}

// AdjustInventory applies a batch of quantity deltas atomically. Every
// delta is validated against current stock before any row is written, so
// one underflow rejects the whole batch.
func (e Engine) AdjustInventory(ctx context.Context, petID string, adjustments []InventoryAdjustment) (map[string]domain.InventoryEntry, error) {
	if err := checkPetID(petID); err != nil {
		return nil, err
	}
	if len(adjustments) == 0 {
		return nil, invalidRequest("no inventory adjustments supplied", nil)
	}
	for _, adj := range adjustments {
		if adj.Item == "" {
			return nil, invalidRequest("inventory adjustment is missing an item name", nil)
		}
	}
	unlock := e.locks.lock(petID)
	defer unlock()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetPetTx(ctx, tx, petID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, petNotFound(petID)
		}
		return nil, err
	}
	result, err := e.applyInventoryTx(ctx, tx, petID, adjustments)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

func (e Engine) applyInventoryTx(ctx context.Context, tx *sql.Tx, petID string, adjustments []InventoryAdjustment) (map[string]domain.InventoryEntry, error) {
	current, err := e.Repo.ListInventoryTx(ctx, tx, petID)
	if err != nil {
		return nil, err
	}
	next := map[string]domain.InventoryEntry{}
	for _, adj := range adjustments {
		entry, ok := next[adj.Item]
		if !ok {
			entry, ok = current[adj.Item]
			if !ok {
				entry = domain.InventoryEntry{Name: adj.Item, Kind: e.itemKind(adj.Item), Quantity: 0}
			}
		}
		quantity := entry.Quantity + adj.Delta
		if quantity < 0 {
			return nil, invalidRequest("insufficient item quantity", map[string]any{
				"item":     adj.Item,
				"delta":    adj.Delta,
				"quantity": entry.Quantity,
			})
		}
		entry.Quantity = quantity
		next[adj.Item] = entry
	}

	ts := e.timestamp()
	for name, entry := range next {
		entry.UpdatedAt = ts
		if err := e.Repo.UpsertInventoryEntry(ctx, tx, petID, entry); err != nil {
			return nil, err
		}
		next[name] = entry
	}
	for name, entry := range current {
		if _, touched := next[name]; !touched {
			next[name] = entry
		}
	}
	return next, nil
}

// UseItem consumes stock and, unless suppressed, applies the configured
// consumption boost to the pet's status in the same transaction.
func (e Engine) UseItem(ctx context.Context, petID, item string, quantity int, applyEffects bool) (map[string]domain.InventoryEntry, error) {
	if err := checkPetID(petID); err != nil {
		return nil, err
	}
	if item == "" {
		return nil, invalidRequest("item name is required", nil)
	}
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return nil, invalidRequest("quantity must be positive", map[string]any{"quantity": quantity})
	}
	unlock := e.locks.lock(petID)
	defer unlock()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetPetTx(ctx, tx, petID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, petNotFound(petID)
		}
		return nil, err
	}
	result, err := e.applyInventoryTx(ctx, tx, petID, []InventoryAdjustment{{Item: item, Delta: -quantity}})
	if err != nil {
		return nil, err
	}
	if applyEffects {
		effects := e.Config.Items.UseEffects
		inc := StatusValues{}
		if effects.Energy != 0 {
			inc.Energy = &effects.Energy
		}
		if effects.Mood != 0 {
			inc.Mood = &effects.Mood
		}
		if effects.Satiation != 0 {
			inc.Satiation = &effects.Satiation
		}
		if effects.Vitality != 0 {
			inc.Vitality = &effects.Vitality
		}
		if !inc.empty() {
			if _, err := e.applyStatusTx(ctx, tx, petID, StatusUpdate{Inc: &inc, Source: "item"}, nil); err != nil {
				return nil, err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}
