package repo

import (
	"context"
	"database/sql"

	"petiqa/internal/domain"
)

func (r Repo) InsertActivityLog(ctx context.Context, tx *sql.Tx, a domain.ActivityLog) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO activity_logs(id,pet_id,activity_id,result_json,effects_json,metadata_json,created_at) VALUES (?,?,?,?,?,?,?)`,
		a.ID, a.PetID, a.ActivityID, nullableStringPtr(a.ResultJSON), nullableStringPtr(a.EffectsJSON), nullableStringPtr(a.MetadataJSON), a.CreatedAt)
	return err
}

func (r Repo) ListActivityLogs(ctx context.Context, petID string, limit int) ([]domain.ActivityLog, error) {
	query := `SELECT id,pet_id,activity_id,result_json,effects_json,metadata_json,created_at FROM activity_logs WHERE pet_id=? ORDER BY created_at DESC, id DESC`
	args := []any{petID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ActivityLog
	for rows.Next() {
		var a domain.ActivityLog
		var result, effects, metadata sql.NullString
		if err := rows.Scan(&a.ID, &a.PetID, &a.ActivityID, &result, &effects, &metadata, &a.CreatedAt); err != nil {
			return nil, err
		}
		if result.Valid {
			a.ResultJSON = &result.String
		}
		if effects.Valid {
			a.EffectsJSON = &effects.String
		}
		if metadata.Valid {
			a.MetadataJSON = &metadata.String
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) ListEventLogs(ctx context.Context, petID string, limit int) ([]domain.EventLog, error) {
	query := `SELECT id,pet_id,type,description,effects_json,metadata_json,created_at FROM event_logs WHERE pet_id=? ORDER BY created_at DESC, id DESC`
	args := []any{petID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.EventLog
	for rows.Next() {
		var e domain.EventLog
		var effects, metadata sql.NullString
		if err := rows.Scan(&e.ID, &e.PetID, &e.Type, &e.Description, &effects, &metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		if effects.Valid {
			e.EffectsJSON = &effects.String
		}
		if metadata.Valid {
			e.MetadataJSON = &metadata.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
