package handlers

import (
	"net/http"
	"strings"
)

type createCompanyRequest struct {
	Name      string `json:"name"`
	Icon      string `json:"icon,omitempty"`
	AppliedAt string `json:"applied_at,omitempty"`
}

type updateCompanyRequest struct {
	Name      *string `json:"name,omitempty"`
	Icon      *string `json:"icon,omitempty"`
	IconData  []byte  `json:"icon_data,omitempty"`
	TogglePin bool    `json:"toggle_pin,omitempty"`
}

// Companies serves the /v1/companies collection: POST creates, GET lists.
func (api *API) Companies(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		api.createCompany(w, r)
	case http.MethodGet:
		api.listCompanies(w, r)
	default:
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func (api *API) createCompany(w http.ResponseWriter, r *http.Request) {
	var request createCompanyRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}

	appliedAt, err := parseOptionalDateTime(request.AppliedAt)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "applied_at must be RFC3339")
		return
	}

	company, err := api.companies.CreateCompany(r.Context(), strings.TrimSpace(request.Name), request.Icon, appliedAt)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, companyResponse(company))
}

func (api *API) listCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := api.companies.ListCompanies(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	items := make([]map[string]any, 0, len(companies))
	for _, company := range companies {
		items = append(items, companyResponse(company))
	}
	writeJSON(w, http.StatusOK, map[string]any{"companies": items})
}

func (api *API) getCompany(w http.ResponseWriter, r *http.Request, companyID string) {
	company, err := api.companies.GetCompany(r.Context(), companyID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, companyResponse(company))
}

func (api *API) updateCompany(w http.ResponseWriter, r *http.Request, companyID string) {
	var request updateCompanyRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}

	company, err := api.companies.GetCompany(r.Context(), companyID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if request.Name != nil {
		company, err = api.companies.RenameCompany(r.Context(), companyID, strings.TrimSpace(*request.Name))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
	}
	if request.Icon != nil || len(request.IconData) > 0 {
		symbol := ""
		if request.Icon != nil {
			symbol = *request.Icon
		}
		company, err = api.companies.SetCompanyIcon(r.Context(), companyID, symbol, request.IconData)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
	}
	if request.TogglePin {
		company, err = api.companies.TogglePin(r.Context(), companyID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, companyResponse(company))
}

func (api *API) deleteCompany(w http.ResponseWriter, r *http.Request, companyID string) {
	if err := api.companies.DeleteCompany(r.Context(), companyID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
