package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/pygmalion/meettodo-back/internal/domain"
)

type stageRequest struct {
	Kind     string           `json:"kind"`
	Date     string           `json:"date"`
	Note     string           `json:"note,omitempty"`
	Location *locationPayload `json:"location,omitempty"`
}

type stageStatusRequest struct {
	Status string `json:"status"`
}

type stageNoteRequest struct {
	Note string `json:"note"`
}

// CompanyRoutes dispatches everything under /v1/companies/{id}:
//
//	{id}                        GET PATCH DELETE
//	{id}/stages                 POST
//	{id}/stages/{sid}           PATCH DELETE
//	{id}/stages/{sid}/status    POST
//	{id}/stages/{sid}/note      PUT
func (api *API) CompanyRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/companies/"), "/")
	segments := strings.Split(rest, "/")
	if rest == "" || segments[0] == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "company id is required")
		return
	}
	companyID := segments[0]

	switch {
	case len(segments) == 1:
		switch r.Method {
		case http.MethodGet:
			api.getCompany(w, r, companyID)
		case http.MethodPatch:
			api.updateCompany(w, r, companyID)
		case http.MethodDelete:
			api.deleteCompany(w, r, companyID)
		default:
			writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		}
	case len(segments) == 2 && segments[1] == "stages":
		if r.Method != http.MethodPost {
			writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		api.addStage(w, r, companyID)
	case len(segments) == 3 && segments[1] == "stages":
		switch r.Method {
		case http.MethodPatch:
			api.updateStage(w, r, companyID, segments[2])
		case http.MethodDelete:
			api.deleteStage(w, r, companyID, segments[2])
		default:
			writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		}
	case len(segments) == 4 && segments[1] == "stages" && segments[3] == "status":
		if r.Method != http.MethodPost {
			writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		api.setStageStatus(w, r, companyID, segments[2])
	case len(segments) == 4 && segments[1] == "stages" && segments[3] == "note":
		if r.Method != http.MethodPut {
			writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		api.updateStageNote(w, r, companyID, segments[2])
	default:
		writeError(w, r, http.StatusNotFound, "not_found", "unknown route")
	}
}

func (api *API) addStage(w http.ResponseWriter, r *http.Request, companyID string) {
	kind, date, location, note, ok := api.decodeStageRequest(w, r)
	if !ok {
		return
	}

	company, stage, err := api.companies.AddStage(r.Context(), companyID, kind, date, location, note)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response := companyResponse(company)
	response["stage_id"] = stage.ID
	writeJSON(w, http.StatusCreated, response)
}

func (api *API) updateStage(w http.ResponseWriter, r *http.Request, companyID, stageID string) {
	kind, date, location, _, ok := api.decodeStageRequest(w, r)
	if !ok {
		return
	}

	company, err := api.companies.UpdateStage(r.Context(), companyID, stageID, kind, date, location)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, companyResponse(company))
}

func (api *API) setStageStatus(w http.ResponseWriter, r *http.Request, companyID, stageID string) {
	var request stageStatusRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}
	status, err := domain.ParseStageStatus(request.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	company, err := api.companies.SetStageStatus(r.Context(), companyID, stageID, status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, companyResponse(company))
}

func (api *API) updateStageNote(w http.ResponseWriter, r *http.Request, companyID, stageID string) {
	var request stageNoteRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}

	company, err := api.companies.UpdateStageNote(r.Context(), companyID, stageID, request.Note)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, companyResponse(company))
}

func (api *API) deleteStage(w http.ResponseWriter, r *http.Request, companyID, stageID string) {
	company, err := api.companies.DeleteStage(r.Context(), companyID, stageID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, companyResponse(company))
}

func (api *API) decodeStageRequest(
	w http.ResponseWriter,
	r *http.Request,
) (domain.StageKind, time.Time, *domain.StageLocation, string, bool) {
	var request stageRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return "", time.Time{}, nil, "", false
	}

	kind, err := domain.ParseStageKind(request.Kind)
	if err != nil {
		writeServiceError(w, r, err)
		return "", time.Time{}, nil, "", false
	}
	date, err := time.Parse(time.RFC3339, request.Date)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "date must be RFC3339")
		return "", time.Time{}, nil, "", false
	}
	location, err := request.Location.toDomain()
	if err != nil {
		writeServiceError(w, r, err)
		return "", time.Time{}, nil, "", false
	}
	return kind, date, location, request.Note, true
}
