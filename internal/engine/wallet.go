package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"petiqa/internal/domain"
	"petiqa/internal/repo"
)

type WalletValues struct {
	Coins  *int
	Points *int
}

func (v *WalletValues) empty() bool {
	return v == nil || (v.Coins == nil && v.Points == nil)
}

// WalletUpdate applies absolute sets before increments. Balances never go
// below zero: sets and increments alike are floored, and the ledger
// records the observed delta, not the requested one.
type WalletUpdate struct {
	Set      *WalletValues
	Inc      *WalletValues
	Reason   string
	Metadata map[string]any
}

func (e Engine) GetWallet(ctx context.Context, petID string) (domain.WalletSnapshot, error) {
	pet, err := e.GetPet(ctx, petID)
	if err != nil {
		return domain.WalletSnapshot{}, err
	}
	return pet.Wallet, nil
}

func (e Engine) UpdateWallet(ctx context.Context, petID string, upd WalletUpdate) (domain.WalletSnapshot, error) {
	if err := checkPetID(petID); err != nil {
		return domain.WalletSnapshot{}, err
	}
	if upd.Set.empty() && upd.Inc.empty() {
		return domain.WalletSnapshot{}, invalidRequest("no wallet fields supplied", nil)
	}
	unlock := e.locks.lock(petID)
	defer unlock()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WalletSnapshot{}, err
	}
	defer tx.Rollback()

	pet, err := e.Repo.GetPetTx(ctx, tx, petID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.WalletSnapshot{}, petNotFound(petID)
	}
	if err != nil {
		return domain.WalletSnapshot{}, err
	}
	snap, err := e.applyWalletTx(ctx, tx, &pet, upd)
	if err != nil {
		return domain.WalletSnapshot{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WalletSnapshot{}, err
	}
	return snap, nil
}

func floorBalance(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// applyWalletTx updates balances inside the caller's transaction and
// appends one ledger entry per currency whose balance actually moved.
// The pet's wallet fields are updated in place so later steps of a
// compound operation see the new balances.
func (e Engine) applyWalletTx(ctx context.Context, tx *sql.Tx, pet *domain.Pet, upd WalletUpdate) (domain.WalletSnapshot, error) {
	coins, points := pet.Wallet.Coins, pet.Wallet.Points
	if upd.Set != nil {
		if upd.Set.Coins != nil {
			coins = floorBalance(*upd.Set.Coins)
		}
		if upd.Set.Points != nil {
			points = floorBalance(*upd.Set.Points)
		}
	}
	if upd.Inc != nil {
		if upd.Inc.Coins != nil {
			coins = floorBalance(coins + *upd.Inc.Coins)
		}
		if upd.Inc.Points != nil {
			points = floorBalance(points + *upd.Inc.Points)
		}
	}

	ts := e.timestamp()
	var metadataJSON *string
	if len(upd.Metadata) > 0 {
		b, err := json.Marshal(upd.Metadata)
		if err != nil {
			return domain.WalletSnapshot{}, err
		}
		s := string(b)
		metadataJSON = &s
	}
	var reason *string
	if upd.Reason != "" {
		reason = &upd.Reason
	}
	record := func(currency string, delta, balanceAfter int) error {
		return e.Repo.InsertLedgerEntry(ctx, tx, domain.LedgerEntry{
			PetID:        pet.ID,
			Currency:     currency,
			Amount:       delta,
			BalanceAfter: balanceAfter,
			Reason:       reason,
			MetadataJSON: metadataJSON,
			CreatedAt:    ts,
		})
	}
	if coins != pet.Wallet.Coins {
		if err := record(domain.CurrencyCoin, coins-pet.Wallet.Coins, coins); err != nil {
			return domain.WalletSnapshot{}, err
		}
	}
	if points != pet.Wallet.Points {
		if err := record(domain.CurrencyPoint, points-pet.Wallet.Points, points); err != nil {
			return domain.WalletSnapshot{}, err
		}
	}

	pet.Wallet.Coins = coins
	pet.Wallet.Points = points
	pet.Wallet.UpdatedAt = ts
	if err := e.Repo.UpdatePetWallet(ctx, tx, pet.ID, pet.Wallet); err != nil {
		return domain.WalletSnapshot{}, err
	}
	return pet.Wallet, nil
}

// ListTransactions returns ledger entries most recent first. limit 0
// defaults to 50.
func (e Engine) ListTransactions(ctx context.Context, petID, currency string, limit int) ([]domain.LedgerEntry, error) {
	if _, err := e.GetPet(ctx, petID); err != nil {
		return nil, err
	}
	if currency != "" && currency != domain.CurrencyCoin && currency != domain.CurrencyPoint {
		return nil, invalidRequest("unknown currency", map[string]any{"currency": currency})
	}
	if limit == 0 {
		limit = 50
	}
	if limit < 1 {
		return nil, invalidRequest("limit must be positive", map[string]any{"limit": limit})
	}
	return e.Repo.ListLedgerEntries(ctx, repo.LedgerFilters{PetID: petID, Currency: currency, Limit: limit})
}
