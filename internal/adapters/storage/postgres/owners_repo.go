package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"vet-clinic-records/internal/domain/owners"
)

// OwnersRepo persiste el agregado Owner en las tablas owners / pets / attributes.
type OwnersRepo struct {
	pool *pgxpool.Pool
	tm   *TransactionManager
	now  func() time.Time
}

func NewOwnersRepo(pool *pgxpool.Pool) *OwnersRepo {
	return &OwnersRepo{pool: pool, tm: NewTransactionManager(pool), now: time.Now}
}

func (r *OwnersRepo) conn(ctx context.Context) dbConn {
	return GetConn(ctx, r.pool)
}

// Save sincroniza owner, mascotas y atributos. Si no hay tx en el contexto abre una.
func (r *OwnersRepo) Save(ctx context.Context, o owners.Owner) (owners.Owner, error) {
	var out owners.Owner
	err := r.tm.WithTransaction(ctx, func(ctx context.Context) error {
		saved, err := r.save(ctx, o)
		if err != nil {
			return err
		}
		out = saved
		return nil
	})
	if err != nil {
		return owners.Owner{}, mapPgError(err)
	}
	return out, nil
}

func (r *OwnersRepo) save(ctx context.Context, o owners.Owner) (owners.Owner, error) {
	for _, p := range o.Pets {
		if err := owners.ValidateAttributes(p.Attributes); err != nil {
			return owners.Owner{}, err
		}
	}

	db := r.conn(ctx)
	now := r.now().UTC()
	o.Pets = append([]owners.Pet(nil), o.Pets...)

	if o.IsNew() {
		o.CreatedAt = now
		o.UpdatedAt = now
		err := db.QueryRow(ctx, `
			INSERT INTO owners (first_name, last_name, address, city, telephone, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, o.FirstName, o.LastName, o.Address, o.City, o.Telephone, o.CreatedAt, o.UpdatedAt).Scan(&o.ID)
		if err != nil {
			return owners.Owner{}, fmt.Errorf("insert owner: %w", err)
		}
	} else {
		o.UpdatedAt = now
		err := db.QueryRow(ctx, `
			UPDATE owners
			SET first_name = $2, last_name = $3, address = $4, city = $5, telephone = $6, updated_at = $7
			WHERE id = $1
			RETURNING created_at
		`, o.ID, o.FirstName, o.LastName, o.Address, o.City, o.Telephone, o.UpdatedAt).Scan(&o.CreatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return owners.Owner{}, fmt.Errorf("%w: owner %d", owners.ErrNotFound, o.ID)
			}
			return owners.Owner{}, fmt.Errorf("update owner: %w", err)
		}
	}

	current, err := r.ids(ctx, `SELECT id FROM pets WHERE owner_id = $1`, o.ID)
	if err != nil {
		return owners.Owner{}, fmt.Errorf("select pet ids: %w", err)
	}

	keep := make([]int, 0, len(o.Pets))
	for _, p := range o.Pets {
		if p.IsNew() {
			continue
		}
		if !current[p.ID] {
			return owners.Owner{}, fmt.Errorf("%w: pet %d for owner %d", owners.ErrNotFound, p.ID, o.ID)
		}
		keep = append(keep, p.ID)
	}

	// cascade: los atributos de las mascotas borradas caen por FK
	if len(keep) < len(current) {
		if _, err := db.Exec(ctx, `DELETE FROM pets WHERE owner_id = $1 AND NOT (id = ANY($2))`, o.ID, keep); err != nil {
			return owners.Owner{}, fmt.Errorf("delete pets: %w", err)
		}
	}

	for i := range o.Pets {
		p := &o.Pets[i]
		p.OwnerID = o.ID
		isNew := p.IsNew()

		if isNew {
			err = db.QueryRow(ctx, `
				INSERT INTO pets (owner_id, type_id, name, birth_date)
				VALUES ($1, $2, $3, $4)
				RETURNING id
			`, o.ID, p.Type.ID, p.Name, p.BirthDate).Scan(&p.ID)
		} else {
			_, err = db.Exec(ctx, `
				UPDATE pets SET type_id = $2, name = $3, birth_date = $4
				WHERE id = $1
			`, p.ID, p.Type.ID, p.Name, p.BirthDate)
		}
		if err != nil {
			return owners.Owner{}, fmt.Errorf("save pet %q: %w", p.Name, err)
		}

		if err := r.saveAttributes(ctx, p, isNew); err != nil {
			return owners.Owner{}, err
		}
	}

	return o, nil
}

func (r *OwnersRepo) saveAttributes(ctx context.Context, p *owners.Pet, isNewPet bool) error {
	db := r.conn(ctx)

	current := map[int]bool{}
	if !isNewPet {
		var err error
		current, err = r.ids(ctx, `SELECT id FROM attributes WHERE pet_id = $1`, p.ID)
		if err != nil {
			return fmt.Errorf("select attribute ids: %w", err)
		}
	}

	keep := make([]int, 0, len(p.Attributes))
	for _, a := range p.Attributes {
		if a.ID != nil && current[*a.ID] {
			keep = append(keep, *a.ID)
		}
	}
	if len(keep) < len(current) {
		if _, err := db.Exec(ctx, `DELETE FROM attributes WHERE pet_id = $1 AND NOT (id = ANY($2))`, p.ID, keep); err != nil {
			return fmt.Errorf("delete attributes: %w", err)
		}
	}

	attrs := make([]owners.Attribute, len(p.Attributes))
	for i, a := range p.Attributes {
		a.PetID = p.ID

		// un id que no era de esta mascota se trata como alta
		if a.ID != nil && current[*a.ID] {
			_, err := db.Exec(ctx, `
				UPDATE attributes SET name = $2, attr_value = $3, ord = $4
				WHERE id = $1
			`, *a.ID, a.Name, a.Value, nullOrder(a.Order))
			if err != nil {
				return fmt.Errorf("update attribute %d: %w", *a.ID, err)
			}
		} else {
			var id int
			err := db.QueryRow(ctx, `
				INSERT INTO attributes (pet_id, name, attr_value, ord)
				VALUES ($1, $2, $3, $4)
				RETURNING id
			`, p.ID, a.Name, a.Value, nullOrder(a.Order)).Scan(&id)
			if err != nil {
				return fmt.Errorf("insert attribute %q: %w", a.Name, err)
			}
			a.ID = &id
		}
		attrs[i] = a
	}
	p.Attributes = attrs
	return nil
}

func (r *OwnersRepo) GetByID(ctx context.Context, id int) (owners.Owner, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	o, err := scanOwner(r.conn(ctx).QueryRow(ctx, selectOwners+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return owners.Owner{}, fmt.Errorf("%w: owner %d", owners.ErrNotFound, id)
		}
		return owners.Owner{}, fmt.Errorf("get owner: %w", err)
	}

	pets, err := r.loadPets(ctx, []int{o.ID})
	if err != nil {
		return owners.Owner{}, err
	}
	o.Pets = pets[o.ID]
	return o, nil
}

func (r *OwnersRepo) List(ctx context.Context, f owners.ListFilter) ([]owners.Owner, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	q := selectOwners + `
		WHERE ($1 = '' OR lower(last_name) LIKE lower($1) || '%')
		ORDER BY last_name, first_name, id
		LIMIT $2 OFFSET $3`

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.conn(ctx).Query(ctx, q, strings.TrimSpace(f.LastName), limit, max(f.Offset, 0))
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	defer rows.Close()

	out := make([]owners.Owner, 0)
	ids := make([]int, 0)
	for rows.Next() {
		o, err := scanOwner(rows)
		if err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	pets, err := r.loadPets(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Pets = pets[out[i].ID]
	}
	return out, nil
}

func (r *OwnersRepo) FindByPetID(ctx context.Context, petID int) (owners.Owner, error) {
	var ownerID int
	err := r.conn(ctx).QueryRow(ctx, `SELECT owner_id FROM pets WHERE id = $1`, petID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return owners.Owner{}, fmt.Errorf("%w: pet %d", owners.ErrNotFound, petID)
		}
		return owners.Owner{}, fmt.Errorf("find pet owner: %w", err)
	}
	return r.GetByID(ctx, ownerID)
}

func (r *OwnersRepo) GetAttribute(ctx context.Context, id int) (owners.Attribute, error) {
	a, err := scanAttribute(r.conn(ctx).QueryRow(ctx, `
		SELECT id, pet_id, name, attr_value, ord
		FROM attributes
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return owners.Attribute{}, fmt.Errorf("%w: attribute %d", owners.ErrNotFound, id)
		}
		return owners.Attribute{}, fmt.Errorf("get attribute: %w", err)
	}
	return a, nil
}

func (r *OwnersRepo) ListPetTypes(ctx context.Context) ([]owners.PetType, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, name FROM types ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list types: %w", err)
	}
	defer rows.Close()

	out := make([]owners.PetType, 0)
	for rows.Next() {
		var t owners.PetType
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan type: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ---------- carga ----------

const selectOwners = `
	SELECT id, first_name, last_name, address, city, telephone, created_at, updated_at
	FROM owners`

// loadPets trae mascotas y atributos de varios owners en dos queries.
func (r *OwnersRepo) loadPets(ctx context.Context, ownerIDs []int) (map[int][]owners.Pet, error) {
	db := r.conn(ctx)

	rows, err := db.Query(ctx, `
		SELECT p.id, p.owner_id, p.name, p.birth_date, t.id, t.name
		FROM pets p
		JOIN types t ON t.id = p.type_id
		WHERE p.owner_id = ANY($1)
		ORDER BY p.owner_id, p.id
	`, ownerIDs)
	if err != nil {
		return nil, fmt.Errorf("select pets: %w", err)
	}

	byOwner := make(map[int][]owners.Pet, len(ownerIDs))
	where := make(map[int][2]int) // pet id -> (owner id, índice)
	for rows.Next() {
		var p owners.Pet
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.BirthDate, &p.Type.ID, &p.Type.Name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan pet: %w", err)
		}
		where[p.ID] = [2]int{p.OwnerID, len(byOwner[p.OwnerID])}
		byOwner[p.OwnerID] = append(byOwner[p.OwnerID], p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select pets: %w", err)
	}
	if len(where) == 0 {
		return byOwner, nil
	}

	rows, err = db.Query(ctx, `
		SELECT a.id, a.pet_id, a.name, a.attr_value, a.ord
		FROM attributes a
		JOIN pets p ON p.id = a.pet_id
		WHERE p.owner_id = ANY($1)
		ORDER BY a.ord ASC NULLS LAST, a.id
	`, ownerIDs)
	if err != nil {
		return nil, fmt.Errorf("select attributes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAttribute(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attribute: %w", err)
		}
		loc, ok := where[a.PetID]
		if !ok {
			continue
		}
		p := &byOwner[loc[0]][loc[1]]
		p.Attributes = append(p.Attributes, a)
	}
	return byOwner, rows.Err()
}

func scanOwner(row pgx.Row) (owners.Owner, error) {
	var o owners.Owner
	err := row.Scan(&o.ID, &o.FirstName, &o.LastName, &o.Address, &o.City, &o.Telephone, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func scanAttribute(row pgx.Row) (owners.Attribute, error) {
	var (
		a   owners.Attribute
		id  int
		ord sql.NullInt32
	)
	if err := row.Scan(&id, &a.PetID, &a.Name, &a.Value, &ord); err != nil {
		return owners.Attribute{}, err
	}
	a.ID = &id
	if ord.Valid {
		v := int(ord.Int32)
		a.Order = &v
	}
	return a, nil
}

// ---------- helpers ----------

func (r *OwnersRepo) ids(ctx context.Context, q string, arg int) (map[int]bool, error) {
	rows, err := r.conn(ctx).Query(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func nullOrder(o *int) sql.NullInt32 {
	if o == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*o), Valid: true}
}

// mapPgError traduce violaciones de constraints a errores de dominio.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23503", "23514", "23502": // foreign_key, check, not_null
		return fmt.Errorf("%w: %s", owners.ErrInvalidInput, pgErr.Message)
	case "23505": // unique_violation
		return fmt.Errorf("%w: %s", owners.ErrDuplicateName, pgErr.Message)
	case "22001", "22003": // string_data_right_truncation, numeric_value_out_of_range
		return fmt.Errorf("%w: %s", owners.ErrInvalidInput, pgErr.Message)
	}
	return err
}
