package repo

import (
	"context"
	"database/sql"
	"strings"

	"petiqa/internal/domain"
)

func (r Repo) InsertLedgerEntry(ctx context.Context, tx *sql.Tx, e domain.LedgerEntry) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO wallet_transactions(pet_id,currency,amount,balance_after,reason,metadata_json,created_at) VALUES (?,?,?,?,?,?,?)`,
		e.PetID, e.Currency, e.Amount, e.BalanceAfter, nullableStringPtr(e.Reason), nullableStringPtr(e.MetadataJSON), e.CreatedAt)
	return err
}

type LedgerFilters struct {
	PetID    string
	Currency string
	Limit    int
}

// ListLedgerEntries returns ledger entries most recent first.
func (r Repo) ListLedgerEntries(ctx context.Context, f LedgerFilters) ([]domain.LedgerEntry, error) {
	clauses := []string{"pet_id=?"}
	args := []any{f.PetID}
	if f.Currency != "" {
		clauses = append(clauses, "currency=?")
		args = append(args, f.Currency)
	}
	query := `SELECT id,pet_id,currency,amount,balance_after,reason,metadata_json,created_at FROM wallet_transactions WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var reason, metadata sql.NullString
		if err := rows.Scan(&e.ID, &e.PetID, &e.Currency, &e.Amount, &e.BalanceAfter, &reason, &metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		if reason.Valid {
			e.Reason = &reason.String
		}
		if metadata.Valid {
			e.MetadataJSON = &metadata.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
