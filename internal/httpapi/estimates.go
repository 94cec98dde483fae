package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/Simplici0/smeta/internal/apperr"
	"github.com/Simplici0/smeta/internal/export"
	"github.com/Simplici0/smeta/internal/models"
	"github.com/Simplici0/smeta/internal/pricing"
)

type estimateResponse struct {
	Message  string          `json:"message"`
	Estimate models.Estimate `json:"estimate"`
}

type estimatesResponse struct {
	Message   string                 `json:"message"`
	Estimates []pricing.EstimateView `json:"estimates"`
}

func (a *API) handleEstimateCreate(w http.ResponseWriter, r *http.Request) {
	var in models.Estimate
	if err := decodeBody(r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}

	created, err := a.estimates.Create(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, estimateResponse{
		Message:  fmt.Sprintf("Смета %s успешно сохранена", created.Name),
		Estimate: created,
	})
}

func (a *API) handleEstimateUpdate(w http.ResponseWriter, r *http.Request) {
	name := nameParam(r)
	if name == "" {
		a.writeError(w, r, apperr.InvalidInput("Отсутствует имя сметы"))
		return
	}

	var patch models.EstimatePatch
	if err := decodeBody(r, &patch); err != nil {
		a.writeError(w, r, err)
		return
	}

	updated, err := a.estimates.Update(r.Context(), name, patch)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, estimateResponse{
		Message:  fmt.Sprintf("Смета %s успешно изменена", name),
		Estimate: updated,
	})
}

func (a *API) handleEstimateDelete(w http.ResponseWriter, r *http.Request) {
	name := nameParam(r)
	if name == "" {
		a.writeError(w, r, apperr.InvalidInput("Отсутствует имя сметы"))
		return
	}

	if err := a.estimates.Delete(r.Context(), name); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("Смета успешно удалена: %s", name)})
}

func (a *API) handleEstimatesList(w http.ResponseWriter, r *http.Request) {
	found, err := a.estimates.Search(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, estimatesResponse{Message: "OK", Estimates: found})
}

func (a *API) handleEstimateExport(w http.ResponseWriter, r *http.Request) {
	name := nameParam(r)
	v, err := a.estimates.Get(r.Context(), name)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteEstimateXLSX(&buf, v); err != nil {
		a.writeError(w, r, apperr.StoreFailure(fmt.Sprintf("Не удалось сформировать файл сметы: %s", name), err))
		return
	}

	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="estimate.xlsx"; filename*=UTF-8''%s.xlsx`, url.PathEscape(name)))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		a.log.Warn("write xlsx response", zap.String("name", name), zap.Error(err))
	}
}
