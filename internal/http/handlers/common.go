package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/pygmalion/meettodo-back/internal/domain"
	"github.com/pygmalion/meettodo-back/internal/http/middleware"
	"github.com/pygmalion/meettodo-back/internal/repository"
	"github.com/pygmalion/meettodo-back/internal/service"
)

var errInvalidPayload = errors.New("invalid payload")

type API struct {
	companies *service.CompaniesService
}

func NewAPI(companies *service.CompaniesService) *API {
	return &API{companies: companies}
}

type errorPayload struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func writeJSON(w http.ResponseWriter, statusCode int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	payload := errorPayload{RequestID: middleware.GetRequestID(r.Context())}
	payload.Error.Code = code
	payload.Error.Message = message
	writeJSON(w, statusCode, payload)
}

func decodeJSON(r *http.Request, value any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(value); err != nil {
		return errInvalidPayload
	}
	return nil
}

// writeServiceError maps domain and repository sentinels onto the API's
// error envelope.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", "company not found")
	case errors.Is(err, domain.ErrStageNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", "stage not found")
	case errors.Is(err, domain.ErrStageNotAvailable):
		writeError(w, r, http.StatusConflict, "stage_not_available", "stage kind is not available for this company")
	case errors.Is(err, domain.ErrUnknownStageKind),
		errors.Is(err, domain.ErrUnknownStageStatus),
		errors.Is(err, domain.ErrUnknownLocationType):
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, service.ErrEmptyCompanyName),
		errors.Is(err, service.ErrCompanyNameTooLong):
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal_error", "request failed")
	}
}

func parseOptionalDateTime(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, errInvalidPayload
	}
	return &parsed, nil
}

type locationPayload struct {
	Type    string `json:"type"`
	Address string `json:"address"`
}

func (p *locationPayload) toDomain() (*domain.StageLocation, error) {
	if p == nil {
		return nil, nil
	}
	locationType, err := domain.ParseLocationType(p.Type)
	if err != nil {
		return nil, err
	}
	return &domain.StageLocation{Type: locationType, Address: p.Address}, nil
}

// companyResponse embeds the derived fields plus the progress percentage
// and the stage kinds currently addable.
func companyResponse(company *domain.Company) map[string]any {
	available := domain.AvailableForAdd(company.Stages)
	availableValues := make([]string, 0, len(available))
	for _, kind := range available {
		availableValues = append(availableValues, string(kind))
	}

	response := map[string]any{
		"id":                  company.ID,
		"name":                company.Name,
		"icon":                company.Icon,
		"stages":              domain.SortedStages(company.Stages),
		"current_stage_label": company.CurrentStageLabel,
		"overall_status":      company.OverallStatus,
		"progress_percentage": company.OverallStatus.Percentage(),
		"available_stages":    availableValues,
		"pinned":              company.Pinned,
		"timestamp":           company.Timestamp,
		"created_at":          company.CreatedAt,
		"updated_at":          company.UpdatedAt,
	}
	if company.NextActionDate != nil {
		response["next_action_date"] = company.NextActionDate
	}
	if len(company.IconData) > 0 {
		response["icon_data"] = company.IconData
	}
	return response
}
