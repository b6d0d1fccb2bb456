package attributes

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vet-clinic-records/internal/domain/owners"
	"vet-clinic-records/internal/middleware"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/api/pets/{petID}/attributes", func(ar chi.Router) {
		ar.Get("/", listHandler(svc))
		ar.Get("/{attributeID}", getHandler(svc))

		ar.Group(func(wr chi.Router) {
			wr.Use(middleware.RequireStaff)

			wr.Post("/", createHandler(svc))
			wr.Put("/", replaceHandler(svc))
			wr.Put("/{attributeID}", updateHandler(svc))
			wr.Delete("/{attributeID}", deleteHandler(svc))

			wr.Post("/batch", createBatchHandler(svc))
			wr.Put("/batch", updateBatchHandler(svc))
			wr.Delete("/batch", deleteBatchHandler(svc))
		})
	})
}

// listHandler godoc
// @Summary Listar atributos de una mascota
// @Description Ordenados por order ascendente; los que no tienen order van al final.
// @Tags attributes
// @Produce json
// @Param petID path int true "ID de la mascota"
// @Success 200 {array} owners.AttributeJSON
// @Failure 404 {string} string "pet not found"
// @Router /api/pets/{petID}/attributes [get]
func listHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		petID, ok := pathID(w, r, "petID")
		if !ok {
			return
		}
		attrs, err := svc.List(r.Context(), petID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, owners.ToAttributesJSON(attrs))
	}
}

// getHandler godoc
// @Summary Ver un atributo
// @Tags attributes
// @Produce json
// @Param petID path int true "ID de la mascota"
// @Param attributeID path int true "ID del atributo"
// @Success 200 {object} owners.AttributeJSON
// @Failure 404 {string} string "not found"
// @Router /api/pets/{petID}/attributes/{attributeID} [get]
func getHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		petID, ok := pathID(w, r, "petID")
		if !ok {
			return
		}
		attrID, ok := pathID(w, r, "attributeID")
		if !ok {
			return
		}
		a, err := svc.Get(r.Context(), petID, attrID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, owners.ToAttributeJSON(a))
	}
}

// createHandler godoc
// @Summary Crear atributo
// @Description El id enviado se ignora. Nombre y valor vacíos = 400.
// @Tags attributes
// @Accept json
// @Produce json
// @Param petID path int true "ID de la mascota"
// @Param payload body owners.AttributeJSON true "Atributo"
// @Success 201 {object} owners.AttributeJSON
// @Failure 400 {string} string "invalid json / atributo vacío"
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "pet not found"
// @Router /api/pets/{petID}/attributes [post]
func createHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		petID, ok := pathID(w, r, "petID")
		if !ok {
			return
		}
		var req owners.AttributeJSON
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			owners.WriteDecodeError(w, err)
			return
		}

		a, err := svc.Create(r.Context(), petID, toInput(req))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, owners.ToAttributeJSON(a))
	}
}

// replaceHandler godoc
// @Summary Reemplazar todos los atributos
// @Description Reconciliación: id conocido = update, sin id o id desconocido = alta, omitido = baja, vacío = descartado.
// @Tags attributes
// @Accept json
// @Produce json
// @Param petID path int true "ID de la mascota"
// @Param payload body []owners.AttributeJSON true "Colección completa"
// @Success 200 {array} owners.AttributeJSON
// @Failure 400 {string} string "invalid json"
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "pet not found"
// @Router /api/pets/{petID}/attributes [put]
func replaceHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		petID, ok := pathID(w, r, "petID")
		if !ok {
			return
		}
		items, ok := decodeList(w, r)
		if !ok {
			return
		}

		attrs, err := svc.Replace(r.Context(), petID, items)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, owners.ToAttributesJSON(attrs))
	}
}

// updateHandler godoc
// @Summary Editar atributo
// @Tags attributes
// @Accept json
// @Produce json
// @Param petID path int true "ID de la mascota"
// @Param attributeID path int true "ID del atributo"
// @Param payload body owners.AttributeJSON true "Nuevos valores"
// @Success 200 {object} owners.AttributeJSON
// @Failure 400 {string} string "invalid json / atributo de otra mascota / vacío"
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "not found"
// @Router /api/pets/{petID}/attributes/{attributeID} [put]
func updateHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		petID, ok := pathID(w, r, "petID")
		if !ok {
			return
		}
		attrID, ok := pathID(w, r, "attributeID")
		if !ok {
			return
		}
		var req owners.AttributeJSON
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			owners.WriteDecodeError(w, err)
			return
		}

		a, err := svc.Update(r.Context(), petID, attrID, toInput(req))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, owners.ToAttributeJSON(a))
	}
}

// deleteHandler godoc
// @Summary Borrar atributo
// @Tags attributes
// @Param petID path int true "ID de la mascota"
// @Param attributeID path int true "ID del atributo"
// @Success 204
// @Failure 400 {string} string "atributo de otra mascota"
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "not found"
// @Router /api/pets/{petID}/attributes/{attributeID} [delete]
func deleteHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		petID, ok := pathID(w, r, "petID")
		if !ok {
			return
		}
		attrID, ok := pathID(w, r, "attributeID")
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), petID, attrID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// createBatchHandler godoc
// @Summary Crear varios atributos
// @Description Ids ignorados, vacíos salteados.
// @Tags attributes
// @Accept json
// @Produce json
// @Param petID path int true "ID de la mascota"
// @Param payload body []owners.AttributeJSON true "Atributos"
// @Success 201 {array} owners.AttributeJSON
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "pet not found"
// @Router /api/pets/{petID}/attributes/batch [post]
func createBatchHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		petID, ok := pathID(w, r, "petID")
		if !ok {
			return
		}
		items, ok := decodeList(w, r)
		if !ok {
			return
		}

		attrs, err := svc.CreateBatch(r.Context(), petID, items)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, owners.ToAttributesJSON(attrs))
	}
}

// updateBatchHandler godoc
// @Summary Editar varios atributos
// @Description Solo se actualizan los que traen id de esta mascota y contenido; el resto se ignora.
// @Tags attributes
// @Accept json
// @Produce json
// @Param petID path int true "ID de la mascota"
// @Param payload body []owners.AttributeJSON true "Atributos con id"
// @Success 200 {array} owners.AttributeJSON
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "pet not found"
// @Router /api/pets/{petID}/attributes/batch [put]
func updateBatchHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		petID, ok := pathID(w, r, "petID")
		if !ok {
			return
		}
		items, ok := decodeList(w, r)
		if !ok {
			return
		}

		attrs, err := svc.UpdateBatch(r.Context(), petID, items)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, owners.ToAttributesJSON(attrs))
	}
}

// deleteBatchHandler godoc
// @Summary Borrar varios atributos
// @Tags attributes
// @Accept json
// @Param petID path int true "ID de la mascota"
// @Param payload body []int true "Ids a borrar"
// @Success 204
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "pet not found"
// @Router /api/pets/{petID}/attributes/batch [delete]
func deleteBatchHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		petID, ok := pathID(w, r, "petID")
		if !ok {
			return
		}
		var ids []int
		if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
			owners.WriteDecodeError(w, err)
			return
		}

		if err := svc.DeleteBatch(r.Context(), petID, ids); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ---------- helpers ----------

func toInput(a owners.AttributeJSON) Input {
	return Input{ID: a.ID, Name: a.Name, Value: a.Value, Order: a.Order}
}

func decodeList(w http.ResponseWriter, r *http.Request) ([]Input, bool) {
	var req []owners.AttributeJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		owners.WriteDecodeError(w, err)
		return nil, false
	}
	out := make([]Input, 0, len(req))
	for _, a := range req {
		out = append(out, toInput(a))
	}
	return out, true
}

func pathID(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, key))
	if err != nil || id <= 0 {
		http.Error(w, key+" must be a positive integer", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, err error) {
	st := owners.StatusFor(err)
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
