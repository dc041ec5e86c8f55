package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"petiqa/internal/domain"
	"petiqa/internal/repo"
)

// ResolvePet picks the pet a CLI command targets. An override may be a
// pet id or a pet name; with no override, a workspace holding exactly
// one pet resolves to it.
func ResolvePet(ctx context.Context, override string, r repo.Repo) (domain.Pet, error) {
	if override != "" {
		if _, err := uuid.Parse(override); err == nil {
			pet, err := r.GetPet(ctx, override)
			if err == nil {
				return pet, nil
			}
			if !errors.Is(err, repo.ErrNotFound) {
				return domain.Pet{}, err
			}
		}
		pet, err := r.GetPetByName(ctx, override)
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Pet{}, fmt.Errorf("pet %q not found", override)
		}
		return pet, err
	}
	pets, err := r.ListPets(ctx)
	if err != nil {
		return domain.Pet{}, err
	}
	switch len(pets) {
	case 0:
		return domain.Pet{}, fmt.Errorf("no pets in workspace; run pq pet create")
	case 1:
		return pets[0], nil
	default:
		return domain.Pet{}, fmt.Errorf("multiple pets in workspace; use --pet")
	}
}
