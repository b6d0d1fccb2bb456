package owners

import "errors"

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("not found")
	ErrDuplicateName = errors.New("duplicate name")
	ErrInvalidDate   = errors.New("invalid date")

	// ErrInvalidArgument: el id de mascota no pertenece a ningún owner.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrWrongPet: el atributo existe pero cuelga de otra mascota.
	ErrWrongPet = errors.New("attribute belongs to another pet")
)
