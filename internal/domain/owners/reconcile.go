package owners

import "sort"

// ReconcileStats resume qué hizo una reconciliación.
type ReconcileStats struct {
	Inserted  int
	Updated   int
	Deleted   int
	Discarded int // enviados en blanco
}

// ReconcileAttributes calcula la colección de atributos a persistir para la
// mascota petID a partir de los existentes y los enviados (form o API).
//
//   - enviados con nombre y valor en blanco se descartan;
//   - enviados con id conocido actualizan el existente (el id no cambia);
//   - el resto se agrega como nuevo ligado a petID (un id desconocido se ignora);
//   - existentes no referenciados quedan fuera del resultado;
//   - el resultado se ordena de forma estable por Order, nil al final.
//
// Nunca falla; el resultado reemplaza entero a la colección anterior.
func ReconcileAttributes(petID int, existing, submitted []Attribute) []Attribute {
	out, _ := ReconcileAttributesStats(petID, existing, submitted)
	return out
}

// ReconcileAttributesStats es ReconcileAttributes más los contadores.
func ReconcileAttributesStats(petID int, existing, submitted []Attribute) ([]Attribute, ReconcileStats) {
	var st ReconcileStats

	byID := make(map[int]Attribute, len(existing))
	for _, a := range existing {
		if a.ID != nil {
			byID[*a.ID] = a
		}
	}

	// id -> posición en out; un id repetido en el envío pisa al anterior
	seen := make(map[int]int, len(byID))
	out := make([]Attribute, 0, len(submitted))

	for _, s := range submitted {
		if s.IsEmpty() {
			st.Discarded++
			continue
		}

		if s.ID != nil {
			if cur, ok := byID[*s.ID]; ok {
				cur.PetID = petID
				cur.Name = s.Name
				cur.Value = s.Value
				cur.Order = copyInt(s.Order)

				if idx, dup := seen[*s.ID]; dup {
					out[idx] = cur
					continue
				}
				seen[*s.ID] = len(out)
				out = append(out, cur)
				st.Updated++
				continue
			}
		}

		out = append(out, Attribute{
			PetID: petID,
			Name:  s.Name,
			Value: s.Value,
			Order: copyInt(s.Order),
		})
		st.Inserted++
	}

	st.Deleted = len(byID) - len(seen)

	SortAttributes(out)
	return out, st
}

// SortAttributes ordena in place por Order ascendente, nil al final.
// Estable: a igual Order se respeta el orden de entrada.
func SortAttributes(attrs []Attribute) {
	sort.SliceStable(attrs, func(i, j int) bool {
		return orderLess(attrs[i].Order, attrs[j].Order)
	})
}

func orderLess(a, b *int) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return *a < *b
}

// NewAttributes filtra los vacíos y devuelve el resto como atributos nuevos de petID.
func NewAttributes(petID int, attrs []Attribute) []Attribute {
	out := make([]Attribute, 0, len(attrs))
	for _, a := range attrs {
		if a.IsEmpty() {
			continue
		}
		out = append(out, Attribute{
			PetID: petID,
			Name:  a.Name,
			Value: a.Value,
			Order: copyInt(a.Order),
		})
	}
	SortAttributes(out)
	return out
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
