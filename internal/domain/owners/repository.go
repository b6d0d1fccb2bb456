package owners

import "context"

// Repository persiste el agregado Owner completo (pets + atributos).
type Repository interface {
	// Save inserta (ID==0) o actualiza el owner y sincroniza en cascada sus
	// mascotas y atributos: lo que no está en el agregado se borra.
	// Devuelve el owner con ids asignados, respetando el orden de los slices.
	Save(ctx context.Context, o Owner) (Owner, error)

	GetByID(ctx context.Context, id int) (Owner, error)
	List(ctx context.Context, filter ListFilter) ([]Owner, error)

	// FindByPetID resuelve el owner dueño de la mascota. ErrNotFound si no hay.
	FindByPetID(ctx context.Context, petID int) (Owner, error)

	GetAttribute(ctx context.Context, id int) (Attribute, error)
	ListPetTypes(ctx context.Context) ([]PetType, error)
}

// TxManager delimita la transacción de un request: commit si fn devuelve nil,
// rollback en cualquier otro caso. Llamadas anidadas reutilizan la transacción.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
