package owners

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"vet-clinic-records/internal/middleware"
)

const dateLayout = "2006-01-02"

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/pettypes", listPetTypesHandler(svc))

	r.Route("/owners", func(or chi.Router) {
		or.Get("/", listOwnersHandler(svc))
		or.With(middleware.RequireStaff).Post("/", createOwnerHandler(svc))

		or.Route("/{ownerID}", func(one chi.Router) {
			one.Get("/", getOwnerHandler(svc))
			one.With(middleware.RequireStaff).Put("/", updateOwnerHandler(svc))

			// JSON
			one.With(middleware.RequireStaff).Post("/pets", createPetHandler(svc))
			one.Get("/pets/{petID}", getPetHandler(svc))
			one.With(middleware.RequireStaff).Put("/pets/{petID}", updatePetHandler(svc))
			one.With(middleware.RequireStaff).Delete("/pets/{petID}", deletePetHandler(svc))

			// Formularios (POST + redirect)
			one.With(middleware.RequireStaff).Post("/pets/new", createPetFormHandler(svc))
			one.With(middleware.RequireStaff).Post("/pets/{petID}/edit", updatePetFormHandler(svc))
		})
	})
}

// AttributeJSON es la representación pública de un atributo.
type AttributeJSON struct {
	ID    *int   `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
	Order *int   `json:"order"`
}

func ToAttributeJSON(a Attribute) AttributeJSON {
	return AttributeJSON{ID: copyInt(a.ID), Name: a.Name, Value: a.Value, Order: copyInt(a.Order)}
}

func (a AttributeJSON) Attribute() Attribute {
	return Attribute{ID: copyInt(a.ID), Name: a.Name, Value: a.Value, Order: copyInt(a.Order)}
}

func ToAttributesJSON(attrs []Attribute) []AttributeJSON {
	out := make([]AttributeJSON, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, ToAttributeJSON(a))
	}
	return out
}

type ownerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Telephone string `json:"telephone"`
}

type ownerResponse struct {
	ID        int           `json:"id"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	Address   string        `json:"address"`
	City      string        `json:"city"`
	Telephone string        `json:"telephone"`
	Pets      []petResponse `json:"pets"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type petRequest struct {
	Name       string          `json:"name"`
	BirthDate  string          `json:"birth_date"` // YYYY-MM-DD
	Type       string          `json:"type"`
	Attributes []AttributeJSON `json:"attributes"`
}

type petResponse struct {
	ID         int             `json:"id"`
	OwnerID    int             `json:"owner_id"`
	Name       string          `json:"name"`
	BirthDate  string          `json:"birth_date"`
	Type       string          `json:"type"`
	Attributes []AttributeJSON `json:"attributes"`
}

type petTypeResponse struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// listPetTypesHandler godoc
// @Summary Listar tipos de mascota
// @Tags pets
// @Produce json
// @Success 200 {array} petTypeResponse
// @Router /pettypes [get]
func listPetTypesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types, err := svc.ListPetTypes(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]petTypeResponse, 0, len(types))
		for _, t := range types {
			out = append(out, petTypeResponse{ID: t.ID, Name: t.Name})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// listOwnersHandler godoc
// @Summary Buscar owners
// @Description Filtra por prefijo de apellido (case-insensitive). Incluye mascotas y atributos.
// @Tags owners
// @Produce json
// @Param lastName query string false "Prefijo de apellido"
// @Param limit query int false "Máximo de resultados (default 50, máx 200)"
// @Param offset query int false "Offset"
// @Success 200 {array} ownerResponse
// @Failure 400 {string} string "limit/offset inválido"
// @Router /owners [get]
func listOwnersHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		limit, err := queryInt(q.Get("limit"))
		if err != nil {
			http.Error(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		offset, err := queryInt(q.Get("offset"))
		if err != nil {
			http.Error(w, "offset must be an integer", http.StatusBadRequest)
			return
		}

		items, err := svc.ListOwners(r.Context(), ListFilter{
			LastName: q.Get("lastName"),
			Limit:    limit,
			Offset:   offset,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		out := make([]ownerResponse, 0, len(items))
		for _, o := range items {
			out = append(out, toOwnerResponse(o))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// createOwnerHandler godoc
// @Summary Alta de owner
// @Description Requiere staff autenticado: `X-Debug-User-ID` (dev) o `Authorization: Bearer <token>`.
// @Tags owners
// @Accept json
// @Produce json
// @Param payload body ownerRequest true "Datos del owner; telephone de 10 dígitos"
// @Success 201 {object} ownerResponse
// @Failure 400 {string} string "invalid json / validación"
// @Failure 401 {string} string "unauthorized"
// @Router /owners [post]
func createOwnerHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ownerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteDecodeError(w, err)
			return
		}

		o, err := svc.CreateOwner(r.Context(), req.input())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toOwnerResponse(o))
	}
}

// getOwnerHandler godoc
// @Summary Ver owner con sus mascotas
// @Tags owners
// @Produce json
// @Param ownerID path int true "ID del owner"
// @Success 200 {object} ownerResponse
// @Failure 404 {string} string "owner not found"
// @Router /owners/{ownerID} [get]
func getOwnerHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := pathID(w, r, "ownerID")
		if !ok {
			return
		}
		o, err := svc.GetOwner(r.Context(), ownerID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toOwnerResponse(o))
	}
}

// updateOwnerHandler godoc
// @Summary Editar owner
// @Tags owners
// @Accept json
// @Produce json
// @Param ownerID path int true "ID del owner"
// @Param payload body ownerRequest true "Datos del owner"
// @Success 200 {object} ownerResponse
// @Failure 400 {string} string "invalid json / validación"
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "owner not found"
// @Router /owners/{ownerID} [put]
func updateOwnerHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := pathID(w, r, "ownerID")
		if !ok {
			return
		}
		var req ownerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteDecodeError(w, err)
			return
		}

		o, err := svc.UpdateOwner(r.Context(), ownerID, req.input())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toOwnerResponse(o))
	}
}

// createPetHandler godoc
// @Summary Alta de mascota
// @Description Los atributos con nombre y valor vacíos se descartan; los ids enviados se ignoran.
// @Tags pets
// @Accept json
// @Produce json
// @Param ownerID path int true "ID del owner"
// @Param payload body petRequest true "Mascota; birth_date YYYY-MM-DD"
// @Success 201 {object} petResponse
// @Failure 400 {string} string "invalid json / fecha inválida / validación"
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "owner not found"
// @Failure 409 {string} string "nombre duplicado"
// @Router /owners/{ownerID}/pets [post]
func createPetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := pathID(w, r, "ownerID")
		if !ok {
			return
		}
		in, ok := decodePet(w, r)
		if !ok {
			return
		}

		p, err := svc.AddPet(r.Context(), ownerID, in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPetResponse(p))
	}
}

// getPetHandler godoc
// @Summary Ver mascota
// @Tags pets
// @Produce json
// @Param ownerID path int true "ID del owner"
// @Param petID path int true "ID de la mascota"
// @Success 200 {object} petResponse
// @Failure 404 {string} string "not found"
// @Router /owners/{ownerID}/pets/{petID} [get]
func getPetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := pathID(w, r, "ownerID")
		if !ok {
			return
		}
		petID, ok := pathID(w, r, "petID")
		if !ok {
			return
		}

		p, err := svc.GetPet(r.Context(), ownerID, petID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPetResponse(p))
	}
}

// updatePetHandler godoc
// @Summary Editar mascota
// @Description Reconcilia los atributos: id conocido = update, sin id = alta, omitido = baja, vacío = descartado.
// @Tags pets
// @Accept json
// @Produce json
// @Param ownerID path int true "ID del owner"
// @Param petID path int true "ID de la mascota"
// @Param payload body petRequest true "Mascota completa"
// @Success 200 {object} petResponse
// @Failure 400 {string} string "invalid json / fecha inválida / validación"
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "not found"
// @Failure 409 {string} string "nombre duplicado"
// @Router /owners/{ownerID}/pets/{petID} [put]
func updatePetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := pathID(w, r, "ownerID")
		if !ok {
			return
		}
		petID, ok := pathID(w, r, "petID")
		if !ok {
			return
		}
		in, ok := decodePet(w, r)
		if !ok {
			return
		}

		p, err := svc.UpdatePet(r.Context(), ownerID, petID, in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPetResponse(p))
	}
}

// deletePetHandler godoc
// @Summary Baja de mascota (y sus atributos)
// @Tags pets
// @Param ownerID path int true "ID del owner"
// @Param petID path int true "ID de la mascota"
// @Success 204
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "not found"
// @Router /owners/{ownerID}/pets/{petID} [delete]
func deletePetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := pathID(w, r, "ownerID")
		if !ok {
			return
		}
		petID, ok := pathID(w, r, "petID")
		if !ok {
			return
		}

		if err := svc.DeletePet(r.Context(), ownerID, petID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ---------- helpers ----------

func (req ownerRequest) input() OwnerInput {
	return OwnerInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Address:   req.Address,
		City:      req.City,
		Telephone: req.Telephone,
	}
}

func decodePet(w http.ResponseWriter, r *http.Request) (PetInput, bool) {
	var req petRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteDecodeError(w, err)
		return PetInput{}, false
	}

	in := PetInput{Name: req.Name, Type: req.Type}
	if strings.TrimSpace(req.BirthDate) != "" {
		t, err := time.Parse(dateLayout, strings.TrimSpace(req.BirthDate))
		if err != nil {
			http.Error(w, "birth_date must be YYYY-MM-DD", http.StatusBadRequest)
			return PetInput{}, false
		}
		in.BirthDate = t
	}
	for _, a := range req.Attributes {
		in.Attributes = append(in.Attributes, a.Attribute())
	}
	return in, true
}

func toOwnerResponse(o Owner) ownerResponse {
	pets := make([]petResponse, 0, len(o.Pets))
	for _, p := range o.Pets {
		pets = append(pets, toPetResponse(p))
	}
	return ownerResponse{
		ID:        o.ID,
		FirstName: o.FirstName,
		LastName:  o.LastName,
		Address:   o.Address,
		City:      o.City,
		Telephone: o.Telephone,
		Pets:      pets,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func toPetResponse(p Pet) petResponse {
	return petResponse{
		ID:         p.ID,
		OwnerID:    p.OwnerID,
		Name:       p.Name,
		BirthDate:  p.BirthDate.Format(dateLayout),
		Type:       p.Type.Name,
		Attributes: ToAttributesJSON(p.Attributes),
	}
}

func pathID(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, key))
	if err != nil || id <= 0 {
		http.Error(w, key+" must be a positive integer", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func queryInt(s string) (int, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return strconv.Atoi(strings.TrimSpace(s))
}

// StatusFor traduce un error de dominio a status HTTP.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidArgument):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidDate), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrWrongPet):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteDecodeError responde 413 si el body pasó el límite, 400 en otro caso.
func WriteDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	http.Error(w, "invalid json", http.StatusBadRequest)
}

func writeError(w http.ResponseWriter, err error) {
	st := StatusFor(err)
	if st == http.StatusInternalServerError {
		http.Error(w, "internal error", st)
		return
	}
	http.Error(w, err.Error(), st)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
