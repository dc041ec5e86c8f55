package engine

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"petiqa/internal/config"
	"petiqa/internal/domain"
	"petiqa/internal/events"
	"petiqa/internal/repo"
)

// Engine owns all game-state mutations. Every write runs under the pet's
// mutex and inside a single transaction, so concurrent callers observe
// either the full effect of an operation or none of it.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time

	locks *petLocks
}

func New(db *sql.DB, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
		locks:  newPetLocks(),
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

// checkPetID rejects identifiers that cannot name a pet before any query
// runs, so malformed input surfaces as invalid_request rather than a miss.
func checkPetID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return invalidRequest("invalid pet id", map[string]any{"id": id})
	}
	return nil
}

func petNotFound(id string) *Error {
	return notFound("pet not found", map[string]any{"id": id})
}

func nameConflict(name string) *Error {
	return conflict("pet name already in use", map[string]any{"name": name})
}

type IdentityUpdate struct {
	Name *string
	// Character updates distinguish "leave alone" (CharacterSet false)
	// from "clear" (CharacterSet true, Character nil).
	Character    *string
	CharacterSet bool
}

func (e Engine) CreatePet(ctx context.Context, name string, character *string) (domain.Pet, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Pet{}, invalidRequest("pet name is required", nil)
	}
	pet := domain.NewPet(uuid.New().String(), name, character, e.now())
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Pet{}, err
	}
	defer tx.Rollback()
	exists, err := e.Repo.PetNameExistsTx(ctx, tx, name, "")
	if err != nil {
		return domain.Pet{}, err
	}
	if exists {
		return domain.Pet{}, nameConflict(name)
	}
	if err := e.Repo.InsertPet(ctx, tx, pet); err != nil {
		// A concurrent create can slip past the check and hit the
		// unique constraint instead.
		if errors.Is(err, repo.ErrNameTaken) {
			return domain.Pet{}, nameConflict(name)
		}
		return domain.Pet{}, err
	}
	if _, err := e.Events.Append(ctx, tx, pet.ID, "pet.created", "Pet profile created", nil, events.Payload{"name": name}); err != nil {
		return domain.Pet{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Pet{}, err
	}
	return pet, nil
}

func (e Engine) GetPet(ctx context.Context, id string) (domain.Pet, error) {
	if err := checkPetID(id); err != nil {
		return domain.Pet{}, err
	}
	pet, err := e.Repo.GetPet(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Pet{}, petNotFound(id)
	}
	return pet, err
}

func (e Engine) ListPets(ctx context.Context) ([]domain.Pet, error) {
	return e.Repo.ListPets(ctx)
}

// UpdatePetIdentity renames a pet or replaces its character sheet.
func (e Engine) UpdatePetIdentity(ctx context.Context, id string, upd IdentityUpdate) (domain.Pet, error) {
	if err := checkPetID(id); err != nil {
		return domain.Pet{}, err
	}
	if upd.Name == nil && !upd.CharacterSet {
		return domain.Pet{}, invalidRequest("no identity fields supplied", nil)
	}
	unlock := e.locks.lock(id)
	defer unlock()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Pet{}, err
	}
	defer tx.Rollback()

	pet, err := e.Repo.GetPetTx(ctx, tx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Pet{}, petNotFound(id)
	}
	if err != nil {
		return domain.Pet{}, err
	}
	renamed := false
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return domain.Pet{}, invalidRequest("pet name must not be empty", nil)
		}
		if name != pet.Name {
			exists, err := e.Repo.PetNameExistsTx(ctx, tx, name, id)
			if err != nil {
				return domain.Pet{}, err
			}
			if exists {
				return domain.Pet{}, nameConflict(name)
			}
			renamed = true
		}
		pet.Name = name
	}
	if upd.CharacterSet {
		pet.Character = upd.Character
	}
	pet.UpdatedAt = e.timestamp()
	if err := e.Repo.UpdatePetIdentity(ctx, tx, id, pet.Name, pet.Character, pet.UpdatedAt); err != nil {
		if errors.Is(err, repo.ErrNameTaken) {
			return domain.Pet{}, nameConflict(pet.Name)
		}
		return domain.Pet{}, err
	}
	if renamed {
		if _, err := e.Events.Append(ctx, tx, id, "pet.renamed", "Pet renamed", nil, events.Payload{"name": pet.Name}); err != nil {
			return domain.Pet{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Pet{}, err
	}
	return pet, nil
}
