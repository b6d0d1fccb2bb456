package owners

import (
	"fmt"
	"strings"
)

// NameMatcher decide si dos nombres de mascota colisionan.
type NameMatcher func(a, b string) bool

// CaseInsensitive es la política por defecto (igual que el formulario original).
func CaseInsensitive(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func CaseSensitive(a, b string) bool {
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}

// PetByID busca una mascota persistida dentro del owner (búsqueda lineal).
// Devuelve un puntero al elemento del slice para poder mutarlo in place.
func (o *Owner) PetByID(id int) (*Pet, error) {
	if id > 0 {
		for i := range o.Pets {
			if o.Pets[i].ID == id {
				return &o.Pets[i], nil
			}
		}
	}
	return nil, fmt.Errorf("%w: pet %d for owner %d", ErrNotFound, id, o.ID)
}

// PetByName busca por nombre según match. Con ignoreNew=true se saltan las
// mascotas aún no persistidas (se usa en el alta para chequear duplicados).
func (o *Owner) PetByName(name string, ignoreNew bool, match NameMatcher) *Pet {
	if match == nil {
		match = CaseInsensitive
	}
	for i := range o.Pets {
		p := &o.Pets[i]
		if ignoreNew && p.IsNew() {
			continue
		}
		if match(p.Name, name) {
			return p
		}
	}
	return nil
}

// AddPet agrega la mascota al agregado; queda ligada al owner.
func (o *Owner) AddPet(p Pet) *Pet {
	p.OwnerID = o.ID
	o.Pets = append(o.Pets, p)
	return &o.Pets[len(o.Pets)-1]
}

// RemovePet quita la mascota del agregado. Al guardar, el cascade borra sus atributos.
func (o *Owner) RemovePet(id int) error {
	for i := range o.Pets {
		if o.Pets[i].ID == id && id > 0 {
			o.Pets = append(o.Pets[:i], o.Pets[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: pet %d for owner %d", ErrNotFound, id, o.ID)
}

// AttributeByID busca un atributo persistido de la mascota.
func (p *Pet) AttributeByID(id int) (*Attribute, error) {
	for i := range p.Attributes {
		a := &p.Attributes[i]
		if a.ID != nil && *a.ID == id {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: attribute %d for pet %d", ErrNotFound, id, p.ID)
}
