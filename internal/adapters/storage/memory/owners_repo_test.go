package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vet-clinic-records/internal/domain/owners"
)

func intp(v int) *int { return &v }

func dog() owners.PetType { return owners.PetType{ID: 3, Name: "dog"} }

func seedOwner(t *testing.T, r *OwnerRepo) owners.Owner {
	t.Helper()
	o, err := r.Save(context.Background(), owners.Owner{
		FirstName: "George",
		LastName:  "Franklin",
		Address:   "110 W. Liberty St.",
		City:      "Madison",
		Telephone: "6085551023",
		Pets: []owners.Pet{{
			Name:      "Leo",
			BirthDate: time.Date(2020, 9, 7, 0, 0, 0, 0, time.UTC),
			Type:      dog(),
			Attributes: []owners.Attribute{
				{Name: "weight", Value: "10kg", Order: intp(1)},
				{Name: "color", Value: "black", Order: intp(2)},
			},
		}},
	})
	require.NoError(t, err)
	return o
}

func TestOwnerRepo_SaveAssignsIDsInOrder(t *testing.T) {
	r := NewOwnerRepo()
	o := seedOwner(t, r)

	require.Equal(t, 1, o.ID)
	require.Len(t, o.Pets, 1)
	p := o.Pets[0]
	assert.Equal(t, 1, p.ID)
	assert.Equal(t, o.ID, p.OwnerID)
	require.Len(t, p.Attributes, 2)
	assert.Equal(t, "weight", p.Attributes[0].Name)
	assert.Equal(t, 1, *p.Attributes[0].ID)
	assert.Equal(t, 2, *p.Attributes[1].ID)
	assert.Equal(t, p.ID, p.Attributes[1].PetID)
	assert.False(t, o.CreatedAt.IsZero())
}

func TestOwnerRepo_CascadeDeletesMissingChildren(t *testing.T) {
	ctx := context.Background()
	r := NewOwnerRepo()
	o := seedOwner(t, r)
	weightID := *o.Pets[0].Attributes[0].ID
	colorID := *o.Pets[0].Attributes[1].ID

	// se queda solo con color
	o.Pets[0].Attributes = o.Pets[0].Attributes[1:]
	_, err := r.Save(ctx, o)
	require.NoError(t, err)

	_, err = r.GetAttribute(ctx, weightID)
	assert.ErrorIs(t, err, owners.ErrNotFound)
	a, err := r.GetAttribute(ctx, colorID)
	require.NoError(t, err)
	assert.Equal(t, "black", a.Value)

	// quitar la mascota borra sus atributos
	o.Pets = nil
	_, err = r.Save(ctx, o)
	require.NoError(t, err)

	_, err = r.GetAttribute(ctx, colorID)
	assert.ErrorIs(t, err, owners.ErrNotFound)
	_, err = r.FindByPetID(ctx, 1)
	assert.ErrorIs(t, err, owners.ErrNotFound)
}

func TestOwnerRepo_RejectsBlankAttributeAndUnknownType(t *testing.T) {
	ctx := context.Background()
	r := NewOwnerRepo()
	o := seedOwner(t, r)

	bad := o
	bad.Pets = append([]owners.Pet(nil), o.Pets...)
	bad.Pets[0].Attributes = []owners.Attribute{{Name: " ", Value: ""}}
	_, err := r.Save(ctx, bad)
	assert.ErrorIs(t, err, owners.ErrInvalidInput)

	bad.Pets[0].Attributes = nil
	bad.Pets[0].Type = owners.PetType{ID: 99}
	_, err = r.Save(ctx, bad)
	assert.ErrorIs(t, err, owners.ErrInvalidInput)

	// nada cambió
	got, err := r.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, got.Pets[0].Attributes, 2)
	assert.Equal(t, "dog", got.Pets[0].Type.Name)
}

func TestOwnerRepo_ForeignPetID(t *testing.T) {
	ctx := context.Background()
	r := NewOwnerRepo()
	a := seedOwner(t, r)
	b := seedOwner(t, r)

	// b intenta adueñarse de la mascota de a
	b.Pets = append(b.Pets, a.Pets[0])
	_, err := r.Save(ctx, b)
	assert.ErrorIs(t, err, owners.ErrNotFound)

	_, err = r.Save(ctx, owners.Owner{ID: 42, FirstName: "x"})
	assert.ErrorIs(t, err, owners.ErrNotFound)
}

func TestOwnerRepo_ReadsSortAttributes(t *testing.T) {
	ctx := context.Background()
	r := NewOwnerRepo()
	o := seedOwner(t, r)

	o.Pets[0].Attributes = append(o.Pets[0].Attributes,
		owners.Attribute{Name: "chip", Value: "123"},
		owners.Attribute{Name: "first", Value: "x", Order: intp(0)},
	)
	_, err := r.Save(ctx, o)
	require.NoError(t, err)

	got, err := r.GetByID(ctx, o.ID)
	require.NoError(t, err)
	var names []string
	for _, a := range got.Pets[0].Attributes {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"first", "weight", "color", "chip"}, names)
}

func TestOwnerRepo_WithTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	r := NewOwnerRepo()
	o := seedOwner(t, r)

	boom := errors.New("boom")
	err := r.WithTransaction(ctx, func(ctx context.Context) error {
		o.Pets[0].Attributes = nil
		if _, err := r.Save(ctx, o); err != nil {
			return err
		}
		// anidada: reutiliza la misma transacción
		return r.WithTransaction(ctx, func(context.Context) error { return boom })
	})
	require.ErrorIs(t, err, boom)

	got, err := r.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, got.Pets[0].Attributes, 2)

	// el contador de ids también vuelve atrás
	n, err := r.Save(ctx, owners.Owner{FirstName: "Betty", LastName: "Davis"})
	require.NoError(t, err)
	assert.Equal(t, 2, n.ID)
}

func TestOwnerRepo_OnCommitFailureReverts(t *testing.T) {
	ctx := context.Background()
	r := NewOwnerRepo()
	o := seedOwner(t, r)

	var commits int
	r.OnCommit(func(s Snapshot) error {
		commits++
		if commits > 1 {
			return errors.New("disk full")
		}
		return nil
	})

	o.City = "Sun Prairie"
	_, err := r.Save(ctx, o)
	require.NoError(t, err)

	o.City = "Monona"
	_, err = r.Save(ctx, o)
	require.Error(t, err)

	got, err := r.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sun Prairie", got.City)
}

func TestOwnerRepo_ListFilterAndPaging(t *testing.T) {
	ctx := context.Background()
	r := NewOwnerRepo()
	for _, ln := range []string{"Davis", "Franklin", "davidson", "Escobito"} {
		_, err := r.Save(ctx, owners.Owner{FirstName: "X", LastName: ln})
		require.NoError(t, err)
	}

	got, err := r.List(ctx, owners.ListFilter{LastName: "dav"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Davis", got[0].LastName)

	got, err = r.List(ctx, owners.ListFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Escobito", got[0].LastName)

	got, err = r.List(ctx, owners.ListFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOwnerRepo_SnapshotRestore(t *testing.T) {
	ctx := context.Background()
	r := NewOwnerRepo()
	seedOwner(t, r)

	other := NewOwnerRepo()
	other.Restore(r.Snapshot())

	o, err := other.FindByPetID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Franklin", o.LastName)

	a, err := other.GetAttribute(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "color", a.Name)

	n, err := other.Save(ctx, owners.Owner{FirstName: "Jean", LastName: "Coleman"})
	require.NoError(t, err)
	assert.Equal(t, 2, n.ID)

	types, err := other.ListPetTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, types, len(DefaultPetTypes))
}

func TestOwnerRepo_ReadsDoNotSeeOpenTransaction(t *testing.T) {
	ctx := context.Background()
	r := NewOwnerRepo()
	o := seedOwner(t, r)

	saved := make(chan struct{})
	release := make(chan struct{})
	txErr := make(chan error, 1)
	boom := errors.New("boom")

	go func() {
		txErr <- r.WithTransaction(ctx, func(ctx context.Context) error {
			changed := o
			changed.City = "Monona"
			if _, err := r.Save(ctx, changed); err != nil {
				return err
			}
			close(saved)
			<-release
			return boom
		})
	}()
	<-saved

	read := make(chan owners.Owner, 1)
	go func() {
		got, _ := r.GetByID(ctx, o.ID)
		read <- got
	}()

	// la lectura espera al fin de la transacción
	select {
	case got := <-read:
		t.Fatalf("read returned during open transaction: city=%q", got.City)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.ErrorIs(t, <-txErr, boom)
	assert.Equal(t, "Madison", (<-read).City)
}
