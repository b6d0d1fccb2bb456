package owners

import (
	"fmt"
	"math"
	"unicode/utf8"
)

// Largos máximos (en caracteres); los mismos que las columnas en migrations/.
const (
	MaxPersonNameLen = 30
	MaxAddressLen    = 255
	MaxCityLen       = 80
	MaxPetNameLen    = 30
	MaxAttributeLen  = 255
)

// Rango de Order: la columna ord es INTEGER.
const (
	MinOrder = math.MinInt32
	MaxOrder = math.MaxInt32
)

func tooLong(s string, limit int) bool {
	return utf8.RuneCountInString(s) > limit
}

// Validate chequea largo de nombre/valor y rango de Order.
// Los atributos vacíos pasan: se descartan antes de guardar.
func (a Attribute) Validate() error {
	if a.IsEmpty() {
		return nil
	}
	if tooLong(a.Name, MaxAttributeLen) {
		return fmt.Errorf("%w: attribute name longer than %d characters", ErrInvalidInput, MaxAttributeLen)
	}
	if tooLong(a.Value, MaxAttributeLen) {
		return fmt.Errorf("%w: attribute value longer than %d characters", ErrInvalidInput, MaxAttributeLen)
	}
	if a.Order != nil && (*a.Order < MinOrder || *a.Order > MaxOrder) {
		return fmt.Errorf("%w: attribute order %d out of range", ErrInvalidInput, *a.Order)
	}
	return nil
}

// ValidateAttributes devuelve el primer error de Validate.
func ValidateAttributes(attrs []Attribute) error {
	for _, a := range attrs {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func validatePetName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if tooLong(name, MaxPetNameLen) {
		return fmt.Errorf("%w: name longer than %d characters", ErrInvalidInput, MaxPetNameLen)
	}
	return nil
}
