package httpapi

import (
	"fmt"
	"net/http"

	"github.com/Simplici0/smeta/internal/apperr"
	"github.com/Simplici0/smeta/internal/models"
)

type materialResponse struct {
	Message  string          `json:"message"`
	Material models.Material `json:"material"`
}

type materialsResponse struct {
	Message   string            `json:"message"`
	Materials []models.Material `json:"materials"`
}

func (a *API) handleMaterialCreate(w http.ResponseWriter, r *http.Request) {
	var in models.Material
	if err := decodeBody(r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}

	created, err := a.materials.Create(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, materialResponse{
		Message:  fmt.Sprintf("Материал %s успешно сохранён", created.Name),
		Material: created,
	})
}

func (a *API) handleMaterialUpdate(w http.ResponseWriter, r *http.Request) {
	name := nameParam(r)
	if name == "" {
		a.writeError(w, r, apperr.InvalidInput("Отсутствует имя материала"))
		return
	}

	var in models.Material
	if err := decodeBody(r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}

	updated, err := a.materials.Update(r.Context(), name, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, materialResponse{
		Message:  fmt.Sprintf("Материал %s успешно изменён", name),
		Material: updated,
	})
}

func (a *API) handleMaterialDelete(w http.ResponseWriter, r *http.Request) {
	name := nameParam(r)
	if name == "" {
		a.writeError(w, r, apperr.InvalidInput("Отсутствует имя материала"))
		return
	}

	if err := a.materials.Delete(r.Context(), name); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("Материал успешно удалён: %s", name)})
}

func (a *API) handleMaterialsList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	purpose, err := models.ParsePurpose(q.Get("purpose"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	found, err := a.materials.Search(r.Context(), q.Get("search"), purpose)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, materialsResponse{Message: "OK", Materials: found})
}
