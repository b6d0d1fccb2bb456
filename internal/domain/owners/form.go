package owners

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// attributes[3].name, attributes[3].order, ...
var attrFieldRe = regexp.MustCompile(`^attributes\[(\d+)\]\.(id|name|value|order)$`)

// createPetFormHandler godoc
// @Summary Alta de mascota (formulario)
// @Description Form urlencoded: name, birthDate (YYYY-MM-DD), type, attributes[i].name|value|order. Responde 303 al owner.
// @Tags pets
// @Accept x-www-form-urlencoded
// @Param ownerID path int true "ID del owner"
// @Success 303
// @Failure 400 {string} string "formulario inválido"
// @Failure 409 {string} string "nombre duplicado"
// @Router /owners/{ownerID}/pets/new [post]
func createPetFormHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := pathID(w, r, "ownerID")
		if !ok {
			return
		}
		in, err := parsePetForm(r)
		if err != nil {
			writeFormError(w, err)
			return
		}

		if _, err := svc.AddPet(r.Context(), ownerID, in); err != nil {
			writeError(w, err)
			return
		}
		http.Redirect(w, r, fmt.Sprintf("/owners/%d", ownerID), http.StatusSeeOther)
	}
}

// updatePetFormHandler godoc
// @Summary Edición de mascota (formulario)
// @Description Igual que el alta pero attributes[i].id identifica atributos existentes; los omitidos se borran.
// @Tags pets
// @Accept x-www-form-urlencoded
// @Param ownerID path int true "ID del owner"
// @Param petID path int true "ID de la mascota"
// @Success 303
// @Failure 400 {string} string "formulario inválido"
// @Failure 404 {string} string "not found"
// @Failure 409 {string} string "nombre duplicado"
// @Router /owners/{ownerID}/pets/{petID}/edit [post]
func updatePetFormHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := pathID(w, r, "ownerID")
		if !ok {
			return
		}
		petID, ok := pathID(w, r, "petID")
		if !ok {
			return
		}
		in, err := parsePetForm(r)
		if err != nil {
			writeFormError(w, err)
			return
		}

		if _, err := svc.UpdatePet(r.Context(), ownerID, petID, in); err != nil {
			writeError(w, err)
			return
		}
		http.Redirect(w, r, fmt.Sprintf("/owners/%d", ownerID), http.StatusSeeOther)
	}
}

func writeFormError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func parsePetForm(r *http.Request) (PetInput, error) {
	if err := r.ParseForm(); err != nil {
		return PetInput{}, fmt.Errorf("invalid form: %w", err)
	}
	f := r.PostForm

	in := PetInput{
		Name: f.Get("name"),
		Type: f.Get("type"),
	}
	if bd := strings.TrimSpace(f.Get("birthDate")); bd != "" {
		t, err := time.Parse(dateLayout, bd)
		if err != nil {
			return PetInput{}, fmt.Errorf("birthDate must be YYYY-MM-DD")
		}
		in.BirthDate = t
	}

	attrs, err := parseAttributeFields(f)
	if err != nil {
		return PetInput{}, err
	}
	in.Attributes = attrs
	return in, nil
}

// parseAttributeFields arma los atributos indexados del form respetando el índice.
// Huecos en la numeración se ignoran.
func parseAttributeFields(f url.Values) ([]Attribute, error) {
	byIdx := map[int]*Attribute{}
	for key, vals := range f {
		m := attrFieldRe.FindStringSubmatch(key)
		if m == nil || len(vals) == 0 {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		a, ok := byIdx[idx]
		if !ok {
			a = &Attribute{}
			byIdx[idx] = a
		}

		v := vals[0]
		switch m[2] {
		case "name":
			a.Name = v
		case "value":
			a.Value = v
		case "id", "order":
			if strings.TrimSpace(v) == "" {
				continue
			}
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("%s must be an integer", key)
			}
			if m[2] == "id" {
				a.ID = &n
			} else {
				a.Order = &n
			}
		}
	}

	idxs := make([]int, 0, len(byIdx))
	for i := range byIdx {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)

	out := make([]Attribute, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, *byIdx[i])
	}
	return out, nil
}
