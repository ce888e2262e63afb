package handlers

import "net/http"

// Agenda lists today's pending stages with their companies.
func (api *API) Agenda(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	entries, err := api.companies.TodayAgenda(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	items := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		items = append(items, map[string]any{
			"company_id":   entry.Company.ID,
			"company_name": entry.Company.Name,
			"stage_id":     entry.Stage.ID,
			"kind":         entry.Stage.Kind,
			"display_name": entry.Stage.DisplayName(),
			"date":         entry.Stage.Date,
			"location":     entry.Stage.Location,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": items})
}

// Statistics reports the aggregate counts across tracked companies.
func (api *API) Statistics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	stats, err := api.companies.Statistics(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// CalendarSync enqueues reminder syncs for everything on today's agenda.
func (api *API) CalendarSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	enqueued, err := api.companies.SyncAllToCalendar(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"enqueued": enqueued})
}
