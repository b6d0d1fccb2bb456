package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"vet-clinic-records/internal/domain/owners"
)

// DefaultPetTypes es el catálogo con el que arranca un store vacío.
var DefaultPetTypes = []owners.PetType{
	{ID: 1, Name: "bird"},
	{ID: 2, Name: "cat"},
	{ID: 3, Name: "dog"},
	{ID: 4, Name: "hamster"},
	{ID: 5, Name: "lizard"},
	{ID: 6, Name: "snake"},
}

// Snapshot es el estado completo del store. Lo usa el adapter sqlite para persistir.
type Snapshot struct {
	Owners []owners.Owner   `json:"owners"`
	Types  []owners.PetType `json:"types"`

	NextOwnerID     int `json:"next_owner_id"`
	NextPetID       int `json:"next_pet_id"`
	NextAttributeID int `json:"next_attribute_id"`
}

type txKey struct{}

// OwnerRepo guarda agregados Owner en memoria. Implementa owners.Repository y
// owners.TxManager (rollback = volver al snapshot previo).
type OwnerRepo struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	owners   map[int]owners.Owner
	types    []owners.PetType
	petOwner map[int]int // pet id -> owner id
	attrPet  map[int]int // attribute id -> pet id

	nextOwner int
	nextPet   int
	nextAttr  int

	now      func() time.Time
	onCommit func(Snapshot) error
}

func NewOwnerRepo() *OwnerRepo {
	r := &OwnerRepo{now: time.Now}
	r.reset(Snapshot{Types: DefaultPetTypes})
	return r
}

// OnCommit registra un hook que recibe el estado tras cada commit.
// Si el hook falla, el commit se revierte.
func (r *OwnerRepo) OnCommit(fn func(Snapshot) error) {
	r.onCommit = fn
}

// ---------- TxManager ----------

func (r *OwnerRepo) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if r.inTx(ctx) {
		return fn(ctx)
	}

	r.txMu.Lock()
	defer r.txMu.Unlock()

	before := r.Snapshot()
	defer func() {
		if p := recover(); p != nil {
			r.Restore(before)
			panic(p)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, r)); err != nil {
		r.Restore(before)
		return err
	}
	if err = r.commit(); err != nil {
		r.Restore(before)
		return err
	}
	return nil
}

func (r *OwnerRepo) inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(*OwnerRepo)
	return v == r
}

// readLock serializa las lecturas fuera de una transacción con las
// transacciones en curso: nunca se ve una escritura sin commit.
func (r *OwnerRepo) readLock(ctx context.Context) func() {
	if r.inTx(ctx) {
		return func() {}
	}
	r.txMu.Lock()
	return r.txMu.Unlock
}

func (r *OwnerRepo) commit() error {
	if r.onCommit == nil {
		return nil
	}
	if err := r.onCommit(r.Snapshot()); err != nil {
		return fmt.Errorf("memory.commit: %w", err)
	}
	return nil
}

// ---------- Repository ----------

// Save fuera de una transacción abre la suya propia.
func (r *OwnerRepo) Save(ctx context.Context, o owners.Owner) (owners.Owner, error) {
	if r.inTx(ctx) {
		return r.save(o)
	}

	var out owners.Owner
	err := r.WithTransaction(ctx, func(context.Context) error {
		var err error
		out, err = r.save(o)
		return err
	})
	if err != nil {
		return owners.Owner{}, err
	}
	return out, nil
}

func (r *OwnerRepo) save(o owners.Owner) (owners.Owner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	o = cloneOwner(o)

	var prev owners.Owner
	if o.IsNew() {
		r.nextOwner++
		o.ID = r.nextOwner
		o.CreatedAt = now
	} else {
		cur, ok := r.owners[o.ID]
		if !ok {
			return owners.Owner{}, fmt.Errorf("%w: owner %d", owners.ErrNotFound, o.ID)
		}
		prev = cur
		o.CreatedAt = cur.CreatedAt
	}
	o.UpdatedAt = now

	// ids que el owner ya tenía; lo que no vuelva a aparecer se borra
	oldPets := make(map[int]bool, len(prev.Pets))
	oldAttrs := make(map[int]int)
	for _, p := range prev.Pets {
		oldPets[p.ID] = true
		for _, a := range p.Attributes {
			oldAttrs[*a.ID] = p.ID
		}
	}

	for i := range o.Pets {
		p := &o.Pets[i]
		if !p.IsNew() && !oldPets[p.ID] {
			return owners.Owner{}, fmt.Errorf("%w: pet %d for owner %d", owners.ErrNotFound, p.ID, o.ID)
		}
		pt, err := r.petType(p.Type)
		if err != nil {
			return owners.Owner{}, err
		}
		p.Type = pt
		for _, a := range p.Attributes {
			if a.IsEmpty() {
				return owners.Owner{}, fmt.Errorf("%w: blank attribute for pet %q", owners.ErrInvalidInput, p.Name)
			}
			if err := a.Validate(); err != nil {
				return owners.Owner{}, err
			}
		}
	}

	// validado: a partir de acá no hay errores, se asignan ids y se indexa
	for _, p := range prev.Pets {
		delete(r.petOwner, p.ID)
		for _, a := range p.Attributes {
			delete(r.attrPet, *a.ID)
		}
	}

	for i := range o.Pets {
		p := &o.Pets[i]
		if p.IsNew() {
			r.nextPet++
			p.ID = r.nextPet
		}
		p.OwnerID = o.ID
		r.petOwner[p.ID] = o.ID

		for j := range p.Attributes {
			a := &p.Attributes[j]
			// un id que no era de esta mascota se trata como alta
			if a.ID == nil || oldAttrs[*a.ID] != p.ID {
				r.nextAttr++
				id := r.nextAttr
				a.ID = &id
			}
			a.PetID = p.ID
			r.attrPet[*a.ID] = p.ID
		}
	}

	r.owners[o.ID] = o
	return cloneOwner(o), nil
}

func (r *OwnerRepo) GetByID(ctx context.Context, id int) (owners.Owner, error) {
	defer r.readLock(ctx)()

	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.owners[id]
	if !ok {
		return owners.Owner{}, fmt.Errorf("%w: owner %d", owners.ErrNotFound, id)
	}
	return readOwner(o), nil
}

func (r *OwnerRepo) List(ctx context.Context, f owners.ListFilter) ([]owners.Owner, error) {
	defer r.readLock(ctx)()

	r.mu.RLock()
	defer r.mu.RUnlock()

	prefix := strings.ToLower(strings.TrimSpace(f.LastName))
	out := make([]owners.Owner, 0, len(r.owners))
	for _, o := range r.owners {
		if prefix != "" && !strings.HasPrefix(strings.ToLower(o.LastName), prefix) {
			continue
		}
		out = append(out, o)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		if out[i].FirstName != out[j].FirstName {
			return out[i].FirstName < out[j].FirstName
		}
		return out[i].ID < out[j].ID
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []owners.Owner{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}

	for i := range out {
		out[i] = readOwner(out[i])
	}
	return out, nil
}

func (r *OwnerRepo) FindByPetID(ctx context.Context, petID int) (owners.Owner, error) {
	defer r.readLock(ctx)()

	r.mu.RLock()
	defer r.mu.RUnlock()

	ownerID, ok := r.petOwner[petID]
	if !ok {
		return owners.Owner{}, fmt.Errorf("%w: pet %d", owners.ErrNotFound, petID)
	}
	return readOwner(r.owners[ownerID]), nil
}

func (r *OwnerRepo) GetAttribute(ctx context.Context, id int) (owners.Attribute, error) {
	defer r.readLock(ctx)()

	r.mu.RLock()
	defer r.mu.RUnlock()

	petID, ok := r.attrPet[id]
	if !ok {
		return owners.Attribute{}, fmt.Errorf("%w: attribute %d", owners.ErrNotFound, id)
	}
	o := r.owners[r.petOwner[petID]]
	p, err := o.PetByID(petID)
	if err != nil {
		return owners.Attribute{}, err
	}
	a, err := p.AttributeByID(id)
	if err != nil {
		return owners.Attribute{}, err
	}
	return cloneAttribute(*a), nil
}

func (r *OwnerRepo) ListPetTypes(_ context.Context) ([]owners.PetType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := append([]owners.PetType(nil), r.types...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ---------- snapshot ----------

// Snapshot devuelve una copia profunda del estado actual.
func (r *OwnerRepo) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Snapshot{
		Owners:          make([]owners.Owner, 0, len(r.owners)),
		Types:           append([]owners.PetType(nil), r.types...),
		NextOwnerID:     r.nextOwner,
		NextPetID:       r.nextPet,
		NextAttributeID: r.nextAttr,
	}
	for _, o := range r.owners {
		s.Owners = append(s.Owners, cloneOwner(o))
	}
	sort.Slice(s.Owners, func(i, j int) bool { return s.Owners[i].ID < s.Owners[j].ID })
	return s
}

// Restore reemplaza el estado completo por s.
func (r *OwnerRepo) Restore(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset(s)
}

func (r *OwnerRepo) reset(s Snapshot) {
	r.owners = make(map[int]owners.Owner, len(s.Owners))
	r.petOwner = make(map[int]int)
	r.attrPet = make(map[int]int)
	r.types = append([]owners.PetType(nil), s.Types...)
	if len(r.types) == 0 {
		r.types = append(r.types, DefaultPetTypes...)
	}
	r.nextOwner, r.nextPet, r.nextAttr = s.NextOwnerID, s.NextPetID, s.NextAttributeID

	for _, o := range s.Owners {
		o = cloneOwner(o)
		r.owners[o.ID] = o
		r.nextOwner = max(r.nextOwner, o.ID)
		for _, p := range o.Pets {
			r.petOwner[p.ID] = o.ID
			r.nextPet = max(r.nextPet, p.ID)
			for _, a := range p.Attributes {
				if a.ID == nil {
					continue
				}
				r.attrPet[*a.ID] = p.ID
				r.nextAttr = max(r.nextAttr, *a.ID)
			}
		}
	}
}

// ---------- helpers ----------

func (r *OwnerRepo) petType(t owners.PetType) (owners.PetType, error) {
	for _, known := range r.types {
		if (t.ID != 0 && known.ID == t.ID) || (t.ID == 0 && strings.EqualFold(known.Name, t.Name)) {
			return known, nil
		}
	}
	return owners.PetType{}, fmt.Errorf("%w: unknown pet type %d %q", owners.ErrInvalidInput, t.ID, t.Name)
}

// readOwner clona y deja los atributos en orden de presentación.
func readOwner(o owners.Owner) owners.Owner {
	o = cloneOwner(o)
	for i := range o.Pets {
		owners.SortAttributes(o.Pets[i].Attributes)
	}
	return o
}

func cloneOwner(o owners.Owner) owners.Owner {
	if o.Pets == nil {
		return o
	}
	pets := make([]owners.Pet, len(o.Pets))
	for i, p := range o.Pets {
		if p.Attributes != nil {
			attrs := make([]owners.Attribute, len(p.Attributes))
			for j, a := range p.Attributes {
				attrs[j] = cloneAttribute(a)
			}
			p.Attributes = attrs
		}
		pets[i] = p
	}
	o.Pets = pets
	return o
}

func cloneAttribute(a owners.Attribute) owners.Attribute {
	if a.ID != nil {
		id := *a.ID
		a.ID = &id
	}
	if a.Order != nil {
		ord := *a.Order
		a.Order = &ord
	}
	return a
}
