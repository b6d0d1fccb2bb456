package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vet-clinic-records/internal/domain/owners"
)

// Corre contra un Postgres real solo si TEST_DATABASE_URL está seteada.
func TestIntegration_SaveAndReload(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}
	ctx := context.Background()

	sqlDB, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := NewMigrator(sqlDB)
	require.NoError(t, err)
	_, err = m.DownTo(ctx, 0)
	require.NoError(t, err)
	_, err = m.Up(ctx)
	require.NoError(t, err)

	pool, err := OpenPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := NewOwnersRepo(pool)
	tm := NewTransactionManager(pool)

	saved, err := repo.Save(ctx, owners.Owner{
		FirstName: "Jean", LastName: "Coleman", Address: "105 N. Lake St.", City: "Monona", Telephone: "6085552654",
		Pets: []owners.Pet{{
			Name:      "Samantha",
			BirthDate: time.Date(2012, 9, 4, 0, 0, 0, 0, time.UTC),
			Type:      owners.PetType{ID: 2, Name: "cat"},
			Attributes: []owners.Attribute{
				{Name: "color", Value: "grey", Order: intp(2)},
				{Name: "weight", Value: "4kg", Order: intp(1)},
			},
		}},
	})
	require.NoError(t, err)
	petID := saved.Pets[0].ID

	// rollback: nada de lo hecho adentro queda
	_ = tm.WithTransaction(ctx, func(ctx context.Context) error {
		o := saved
		o.Pets = nil
		_, err := repo.Save(ctx, o)
		require.NoError(t, err)
		return assert.AnError
	})

	got, err := repo.FindByPetID(ctx, petID)
	require.NoError(t, err)
	require.Len(t, got.Pets, 1)
	attrs := got.Pets[0].Attributes
	require.Len(t, attrs, 2)
	assert.Equal(t, "weight", attrs[0].Name)

	// blank attribute violates the check constraint
	got.Pets[0].Attributes = append(got.Pets[0].Attributes, owners.Attribute{Name: " ", Value: ""})
	_, err = repo.Save(ctx, got)
	assert.ErrorIs(t, err, owners.ErrInvalidInput)
}
