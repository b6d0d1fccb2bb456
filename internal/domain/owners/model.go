package owners

import (
	"strings"
	"time"
)

// PetType es una entrada del catálogo de tipos (cat, dog, ...).
type PetType struct {
	ID   int
	Name string
}

// Attribute es un par nombre/valor libre asociado a una mascota.
// ID es nil hasta que se persiste. Order nil ordena al final.
type Attribute struct {
	ID    *int
	PetID int // back-reference, solo para consultas

	Name  string
	Value string
	Order *int
}

// IsEmpty: nombre y valor en blanco. Un atributo vacío nunca se persiste.
func (a Attribute) IsEmpty() bool {
	return strings.TrimSpace(a.Name) == "" && strings.TrimSpace(a.Value) == ""
}

func (a Attribute) IsNew() bool {
	return a.ID == nil
}

// Pet pertenece a un único Owner y es dueña exclusiva de sus atributos.
type Pet struct {
	ID      int // 0 = todavía no persistida
	OwnerID int

	Name      string
	BirthDate time.Time
	Type      PetType

	Attributes []Attribute
}

func (p Pet) IsNew() bool {
	return p.ID == 0
}

// Owner es la raíz del agregado: guardar el owner guarda sus mascotas y atributos.
type Owner struct {
	ID int

	FirstName string
	LastName  string
	Address   string
	City      string
	Telephone string

	Pets []Pet

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (o Owner) IsNew() bool {
	return o.ID == 0
}

// ListFilter filtra el listado de owners.
type ListFilter struct {
	LastName string // prefijo, case-insensitive
	Limit    int
	Offset   int
}
