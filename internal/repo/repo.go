package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"petiqa/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var (
	ErrNotFound = errors.New("not found")
	// ErrNameTaken reports a write rejected by the pets.name unique
	// constraint. Callers that pre-check the name can still hit it when
	// a concurrent writer wins the race.
	ErrNameTaken = errors.New("pet name taken")
)

func mapNameConstraint(err error) error {
	if err != nil && strings.Contains(err.Error(), "pets.name") {
		return ErrNameTaken
	}
	return err
}

const petColumns = `id,name,character,energy,mood,satiation,vitality,status_updated_at,coins,points,wallet_updated_at,total_experience,last_tick_at,created_at,updated_at`

func scanPet(scan func(dest ...any) error) (domain.Pet, error) {
	var p domain.Pet
	var character, lastTick sql.NullString
	err := scan(
		&p.ID, &p.Name, &character,
		&p.Status.Energy, &p.Status.Mood, &p.Status.Satiation, &p.Status.Vitality, &p.Status.UpdatedAt,
		&p.Wallet.Coins, &p.Wallet.Points, &p.Wallet.UpdatedAt,
		&p.TotalExperience, &lastTick, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if character.Valid {
		p.Character = &character.String
	}
	if lastTick.Valid {
		p.LastTickAt = &lastTick.String
	}
	return p, nil
}

func (r Repo) InsertPet(ctx context.Context, tx *sql.Tx, p domain.Pet) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO pets(`+petColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Name, nullableStringPtr(p.Character),
		p.Status.Energy, p.Status.Mood, p.Status.Satiation, p.Status.Vitality, p.Status.UpdatedAt,
		p.Wallet.Coins, p.Wallet.Points, p.Wallet.UpdatedAt,
		p.TotalExperience, nullableStringPtr(p.LastTickAt), p.CreatedAt, p.UpdatedAt)
	return mapNameConstraint(err)
}

func (r Repo) GetPet(ctx context.Context, id string) (domain.Pet, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+petColumns+` FROM pets WHERE id=?`, id)
	return scanPet(row.Scan)
}

func (r Repo) GetPetTx(ctx context.Context, tx *sql.Tx, id string) (domain.Pet, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+petColumns+` FROM pets WHERE id=?`, id)
	return scanPet(row.Scan)
}

func (r Repo) GetPetByName(ctx context.Context, name string) (domain.Pet, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+petColumns+` FROM pets WHERE name=?`, name)
	return scanPet(row.Scan)
}

// PetNameExistsTx reports whether another pet already uses the name. It
// runs in the caller's transaction so the answer holds until commit.
func (r Repo) PetNameExistsTx(ctx context.Context, tx *sql.Tx, name, excludeID string) (bool, error) {
	row := tx.QueryRowContext(ctx, `SELECT 1 FROM pets WHERE name=? AND id != ? LIMIT 1`, name, excludeID)
	var one int
	err := row.Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r Repo) ListPets(ctx context.Context) ([]domain.Pet, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+petColumns+` FROM pets ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Pet
	for rows.Next() {
		p, err := scanPet(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) UpdatePetIdentity(ctx context.Context, tx *sql.Tx, id, name string, character *string, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE pets SET name=?, character=?, updated_at=? WHERE id=?`,
		name, nullableStringPtr(character), updatedAt, id)
	if err != nil {
		return mapNameConstraint(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpdatePetStatus(ctx context.Context, tx *sql.Tx, id string, s domain.StatusSnapshot, lastTickAt *string) error {
	res, err := tx.ExecContext(ctx, `UPDATE pets SET energy=?, mood=?, satiation=?, vitality=?, status_updated_at=?, last_tick_at=COALESCE(?, last_tick_at), updated_at=? WHERE id=?`,
		s.Energy, s.Mood, s.Satiation, s.Vitality, s.UpdatedAt, nullableStringPtr(lastTickAt), s.UpdatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpdatePetWallet(ctx context.Context, tx *sql.Tx, id string, w domain.WalletSnapshot) error {
	res, err := tx.ExecContext(ctx, `UPDATE pets SET coins=?, points=?, wallet_updated_at=?, updated_at=? WHERE id=?`,
		w.Coins, w.Points, w.UpdatedAt, w.UpdatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) AddPetExperience(ctx context.Context, tx *sql.Tx, id string, delta int, updatedAt string) error {
	_, err := tx.ExecContext(ctx, `UPDATE pets SET total_experience=total_experience+?, updated_at=? WHERE id=?`,
		delta, updatedAt, id)
	return err
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}
