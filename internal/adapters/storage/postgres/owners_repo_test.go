package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vet-clinic-records/internal/domain/owners"
)

var bd = time.Date(2020, 9, 7, 0, 0, 0, 0, time.UTC)

func newRepo() *OwnersRepo {
	r := NewOwnersRepo(nil)
	r.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return r
}

func TestOwnersRepo_Save_NewOwnerWithPet(t *testing.T) {
	mock := newMock(t)
	repo := newRepo()

	mock.ExpectQuery("INSERT INTO owners").
		WithArgs("George", "Franklin", "110 W. Liberty St.", "Madison", "6085551023", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery("SELECT id FROM pets WHERE owner_id").
		WithArgs(1).
		WillReturnRows(mock.NewRows([]string{"id"}))
	mock.ExpectQuery("INSERT INTO pets").
		WithArgs(1, 3, "Leo", bd).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectQuery("INSERT INTO attributes").
		WithArgs(10, "weight", "10kg", sql.NullInt32{Int32: 1, Valid: true}).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(100))
	mock.ExpectQuery("INSERT INTO attributes").
		WithArgs(10, "color", "black", sql.NullInt32{}).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(101))

	saved, err := repo.Save(mockContext(mock), owners.Owner{
		FirstName: "George",
		LastName:  "Franklin",
		Address:   "110 W. Liberty St.",
		City:      "Madison",
		Telephone: "6085551023",
		Pets: []owners.Pet{{
			Name:      "Leo",
			BirthDate: bd,
			Type:      owners.PetType{ID: 3, Name: "dog"},
			Attributes: []owners.Attribute{
				{Name: "weight", Value: "10kg", Order: intp(1)},
				{Name: "color", Value: "black"},
			},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, saved.ID)
	require.Len(t, saved.Pets, 1)
	assert.Equal(t, 10, saved.Pets[0].ID)
	assert.Equal(t, 1, saved.Pets[0].OwnerID)
	require.Len(t, saved.Pets[0].Attributes, 2)
	assert.Equal(t, 100, *saved.Pets[0].Attributes[0].ID)
	assert.Equal(t, 101, *saved.Pets[0].Attributes[1].ID)
	assert.Equal(t, 10, saved.Pets[0].Attributes[1].PetID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnersRepo_Save_ReconcilesChildren(t *testing.T) {
	mock := newMock(t)
	repo := newRepo()
	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("UPDATE owners").
		WithArgs(1, "George", "Franklin", "110 W. Liberty St.", "Madison", "6085551023", pgxmock.AnyArg()).
		WillReturnRows(mock.NewRows([]string{"created_at"}).AddRow(created))
	mock.ExpectQuery("SELECT id FROM pets WHERE owner_id").
		WithArgs(1).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(10).AddRow(11))
	mock.ExpectExec("DELETE FROM pets").
		WithArgs(1, []int{10}).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("UPDATE pets SET").
		WithArgs(10, 3, "Leo", bd).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("SELECT id FROM attributes WHERE pet_id").
		WithArgs(10).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(100).AddRow(101))
	mock.ExpectExec("DELETE FROM attributes").
		WithArgs(10, []int{100}).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("UPDATE attributes SET").
		WithArgs(100, "weight", "11kg", sql.NullInt32{Int32: 1, Valid: true}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("INSERT INTO attributes").
		WithArgs(10, "diet", "kibble", sql.NullInt32{}).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(102))

	saved, err := repo.Save(mockContext(mock), owners.Owner{
		ID:        1,
		FirstName: "George",
		LastName:  "Franklin",
		Address:   "110 W. Liberty St.",
		City:      "Madison",
		Telephone: "6085551023",
		Pets: []owners.Pet{{
			ID:        10,
			Name:      "Leo",
			BirthDate: bd,
			Type:      owners.PetType{ID: 3, Name: "dog"},
			Attributes: []owners.Attribute{
				{ID: intp(100), Name: "weight", Value: "11kg", Order: intp(1)},
				{Name: "diet", Value: "kibble"},
			},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, created, saved.CreatedAt)
	attrs := saved.Pets[0].Attributes
	require.Len(t, attrs, 2)
	assert.Equal(t, 100, *attrs[0].ID)
	assert.Equal(t, 102, *attrs[1].ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnersRepo_Save_UnknownOwner(t *testing.T) {
	mock := newMock(t)
	repo := newRepo()

	mock.ExpectQuery("UPDATE owners").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Save(mockContext(mock), owners.Owner{ID: 9, FirstName: "x"})
	assert.ErrorIs(t, err, owners.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnersRepo_Save_ForeignPet(t *testing.T) {
	mock := newMock(t)
	repo := newRepo()

	mock.ExpectQuery("UPDATE owners").
		WillReturnRows(mock.NewRows([]string{"created_at"}).AddRow(bd))
	mock.ExpectQuery("SELECT id FROM pets WHERE owner_id").
		WithArgs(1).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(10))

	_, err := repo.Save(mockContext(mock), owners.Owner{ID: 1, Pets: []owners.Pet{{ID: 77, Name: "Basil"}}})
	assert.ErrorIs(t, err, owners.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnersRepo_Save_CheckViolation(t *testing.T) {
	mock := newMock(t)
	repo := newRepo()

	mock.ExpectQuery("INSERT INTO owners").
		WillReturnError(&pgconn.PgError{Code: "23514", Message: "attributes_not_blank"})

	_, err := repo.Save(mockContext(mock), owners.Owner{FirstName: "x"})
	assert.ErrorIs(t, err, owners.ErrInvalidInput)
}

func TestOwnersRepo_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := newRepo()
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM owners WHERE id").
		WithArgs(1).
		WillReturnRows(mock.NewRows([]string{"id", "first_name", "last_name", "address", "city", "telephone", "created_at", "updated_at"}).
			AddRow(1, "George", "Franklin", "110 W. Liberty St.", "Madison", "6085551023", now, now))
	mock.ExpectQuery("FROM pets p").
		WithArgs([]int{1}).
		WillReturnRows(mock.NewRows([]string{"id", "owner_id", "name", "birth_date", "type_id", "type_name"}).
			AddRow(10, 1, "Leo", bd, 3, "dog").
			AddRow(11, 1, "Basil", bd, 2, "cat"))
	mock.ExpectQuery("FROM attributes a").
		WithArgs([]int{1}).
		WillReturnRows(mock.NewRows([]string{"id", "pet_id", "name", "attr_value", "ord"}).
			AddRow(100, 10, "weight", "10kg", sql.NullInt32{Int32: 1, Valid: true}).
			AddRow(101, 11, "diet", "fish", sql.NullInt32{Int32: 2, Valid: true}).
			AddRow(102, 10, "chip", "123", sql.NullInt32{}))

	o, err := repo.GetByID(mockContext(mock), 1)
	require.NoError(t, err)

	assert.Equal(t, "Franklin", o.LastName)
	require.Len(t, o.Pets, 2)
	leo := o.Pets[0]
	assert.Equal(t, "dog", leo.Type.Name)
	require.Len(t, leo.Attributes, 2)
	assert.Equal(t, "weight", leo.Attributes[0].Name)
	assert.Equal(t, 1, *leo.Attributes[0].Order)
	assert.Nil(t, leo.Attributes[1].Order)
	require.Len(t, o.Pets[1].Attributes, 1)
	assert.Equal(t, 11, o.Pets[1].Attributes[0].PetID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnersRepo_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := newRepo()

	mock.ExpectQuery("FROM owners WHERE id").
		WithArgs(5).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(mockContext(mock), 5)
	assert.ErrorIs(t, err, owners.ErrNotFound)
}

func TestOwnersRepo_FindByPetID_Unknown(t *testing.T) {
	mock := newMock(t)
	repo := newRepo()

	mock.ExpectQuery("SELECT owner_id FROM pets").
		WithArgs(404).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindByPetID(mockContext(mock), 404)
	assert.ErrorIs(t, err, owners.ErrNotFound)
}

func TestOwnersRepo_GetAttribute(t *testing.T) {
	mock := newMock(t)
	repo := newRepo()

	mock.ExpectQuery("FROM attributes").
		WithArgs(100).
		WillReturnRows(mock.NewRows([]string{"id", "pet_id", "name", "attr_value", "ord"}).
			AddRow(100, 10, "weight", "10kg", sql.NullInt32{Int32: 3, Valid: true}))

	a, err := repo.GetAttribute(mockContext(mock), 100)
	require.NoError(t, err)
	assert.Equal(t, 100, *a.ID)
	assert.Equal(t, 10, a.PetID)
	assert.Equal(t, 3, *a.Order)
}

func TestOwnersRepo_ListPetTypes(t *testing.T) {
	mock := newMock(t)
	repo := newRepo()

	mock.ExpectQuery("SELECT id, name FROM types").
		WillReturnRows(mock.NewRows([]string{"id", "name"}).AddRow(1, "bird").AddRow(2, "cat"))

	types, err := repo.ListPetTypes(mockContext(mock))
	require.NoError(t, err)
	assert.Equal(t, []owners.PetType{{ID: 1, Name: "bird"}, {ID: 2, Name: "cat"}}, types)
}

func TestRunInTx(t *testing.T) {
	mock := newMock(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()
	tx, err := mock.Begin(mockContext(mock))
	require.NoError(t, err)

	err = runInTx(t.Context(), tx, func(ctx context.Context) error {
		assert.NotNil(t, GetTx(ctx))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	mock.ExpectBegin()
	mock.ExpectCommit()
	tx, err = mock.Begin(t.Context())
	require.NoError(t, err)
	require.NoError(t, runInTx(t.Context(), tx, func(context.Context) error { return nil }))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnersRepo_Save_ValueTooLong(t *testing.T) {
	mock := newMock(t)
	repo := newRepo()

	mock.ExpectQuery("UPDATE owners").
		WillReturnRows(mock.NewRows([]string{"created_at"}).AddRow(bd))
	mock.ExpectQuery("SELECT id FROM pets WHERE owner_id").
		WithArgs(1).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectExec("UPDATE pets SET").
		WillReturnError(&pgconn.PgError{Code: "22001", Message: "value too long for type character varying(30)"})

	_, err := repo.Save(mockContext(mock), owners.Owner{ID: 1, Pets: []owners.Pet{
		{ID: 10, Name: strings.Repeat("L", 31), Type: owners.PetType{ID: 3}, BirthDate: bd},
	}})
	assert.ErrorIs(t, err, owners.ErrInvalidInput)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnersRepo_Save_OrderOutOfRange(t *testing.T) {
	mock := newMock(t)
	repo := newRepo()

	// se corta antes de tocar la base
	_, err := repo.Save(mockContext(mock), owners.Owner{ID: 1, Pets: []owners.Pet{
		{ID: 10, Name: "Leo", Type: owners.PetType{ID: 3}, BirthDate: bd,
			Attributes: []owners.Attribute{{Name: "chip", Value: "abc", Order: intp(3000000000)}}},
	}})
	assert.ErrorIs(t, err, owners.ErrInvalidInput)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_RollbackFailureKeepsCause(t *testing.T) {
	mock := newMock(t)
	connLost := errors.New("conn closed")

	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(connLost)
	tx, err := mock.Begin(t.Context())
	require.NoError(t, err)

	err = runInTx(t.Context(), tx, func(context.Context) error {
		return fmt.Errorf("load: %w", owners.ErrNotFound)
	})
	assert.ErrorIs(t, err, owners.ErrNotFound)
	assert.ErrorIs(t, err, connLost)
	require.NoError(t, mock.ExpectationsWereMet())
}
