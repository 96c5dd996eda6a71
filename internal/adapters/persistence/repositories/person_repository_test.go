package repositories

import (
	"context"
	"testing"

	"diglab-api/internal/adapters/persistence/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func makePerson(pnr, first, last string) *models.Person {
	return &models.Person{
		Personnummer: pnr,
		FirstName:    first,
		LastName:     last,
	}
}

func TestPersonCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewPersonRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, makePerson("01010112345", "Ola", "Nordmann")))

	got, err := repo.GetByPersonnummer(ctx, "01010112345")
	require.NoError(t, err)
	require.Equal(t, "Ola", got.FirstName)

	_, err = repo.GetByPersonnummer(ctx, "99999999999")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	err = repo.Create(ctx, makePerson("01010112345", "Other", "Person"))
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestPersonUpdateContact(t *testing.T) {
	db := newTestDB(t)
	repo := NewPersonRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, makePerson("01010112345", "Ola", "Nordmann")))

	err := repo.UpdateContact(ctx, "01010112345", map[string]interface{}{
		"address_line1": "Storgata 1",
		"postal_code":   "0155",
		"city":          "Oslo",
	})
	require.NoError(t, err)

	got, err := repo.GetByPersonnummer(ctx, "01010112345")
	require.NoError(t, err)
	require.Equal(t, "Storgata 1", *got.AddressLine1)
	require.Equal(t, "Oslo", *got.City)
	require.NotNil(t, got.UpdatedAtUtc)

	err = repo.UpdateContact(ctx, "99999999999", map[string]interface{}{"city": "Oslo"})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPersonSearch(t *testing.T) {
	db := newTestDB(t)
	repo := NewPersonRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, makePerson("01010112345", "Ola", "Nordmann")))
	require.NoError(t, repo.Create(ctx, makePerson("02020254321", "Kari", "Nordmann")))
	require.NoError(t, repo.Create(ctx, makePerson("03030311223", "Per", "Hansen")))

	byPnr, err := repo.Search(ctx, "0101", 10)
	require.NoError(t, err)
	require.Len(t, byPnr, 1)
	require.Equal(t, "Ola", byPnr[0].FirstName)

	byLast, err := repo.Search(ctx, "Nordmann", 10)
	require.NoError(t, err)
	require.Len(t, byLast, 2)

	byFirst, err := repo.Search(ctx, "Per", 10)
	require.NoError(t, err)
	require.Len(t, byFirst, 1)

	none, err := repo.Search(ctx, "zzz", 10)
	require.NoError(t, err)
	require.Empty(t, none)
}
