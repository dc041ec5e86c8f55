package repo

import (
	"context"
	"database/sql"

	"petiqa/internal/domain"
)

// ListInventory returns the full inventory mapping for a pet.
func (r Repo) ListInventory(ctx context.Context, petID string) (map[string]domain.InventoryEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT item,kind,quantity,updated_at FROM inventory WHERE pet_id=?`, petID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]domain.InventoryEntry{}
	for rows.Next() {
		var e domain.InventoryEntry
		if err := rows.Scan(&e.Name, &e.Kind, &e.Quantity, &e.UpdatedAt); err != nil {
			return nil, err
		}
		res[e.Name] = e
	}
	return res, rows.Err()
}

func (r Repo) ListInventoryTx(ctx context.Context, tx *sql.Tx, petID string) (map[string]domain.InventoryEntry, error) {
	rows, err := tx.QueryContext(ctx, `SELECT item,kind,quantity,updated_at FROM inventory WHERE pet_id=?`, petID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]domain.InventoryEntry{}
	for rows.Next() {
		var e domain.InventoryEntry
		if err := rows.Scan(&e.Name, &e.Kind, &e.Quantity, &e.UpdatedAt); err != nil {
			return nil, err
		}
		res[e.Name] = e
	}
	return res, rows.Err()
}

func (r Repo) UpsertInventoryEntry(ctx context.Context, tx *sql.Tx, petID string, e domain.InventoryEntry) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO inventory(pet_id,item,kind,quantity,updated_at) VALUES (?,?,?,?,?)
ON CONFLICT(pet_id,item) DO UPDATE SET kind=excluded.kind, quantity=excluded.quantity, updated_at=excluded.updated_at`,
		petID, e.Name, e.Kind, e.Quantity, e.UpdatedAt)
	return err
}
