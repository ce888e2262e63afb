package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/pygmalion/meettodo-back/internal/domain"
	"github.com/pygmalion/meettodo-back/internal/events"
	httpserver "github.com/pygmalion/meettodo-back/internal/http"
	"github.com/pygmalion/meettodo-back/internal/http/handlers"
	"github.com/pygmalion/meettodo-back/internal/queue"
	"github.com/pygmalion/meettodo-back/internal/repository"
	"github.com/pygmalion/meettodo-back/internal/service"
)

func newTestHandler(t *testing.T) (http.Handler, *service.CompaniesService) {
	t.Helper()
	repo := repository.NewMemoryCompaniesRepository()
	localQueue := queue.NewLocalQueue(64, 1, zap.NewNop())
	companiesService := service.NewCompaniesService(repo, localQueue, events.NopProducer{}, zaptest.NewLogger(t))
	api := handlers.NewAPI(companiesService)
	return httpserver.NewRouter(httpserver.RouterDependencies{
		API:            api,
		Logger:         zap.NewNop(),
		RateLimitRPS:   10000,
		RateLimitBurst: 10000,
	}), companiesService
}

func createTestCompany(t *testing.T, svc *service.CompaniesService) *domain.Company {
	t.Helper()
	company, err := svc.CreateCompany(context.Background(), "Acme", "", nil)
	require.NoError(t, err)
	return company
}

func doRequest(handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var request *http.Request
	if body == "" {
		request = httptest.NewRequest(method, target, nil)
	} else {
		request = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestHealthz(t *testing.T) {
	handler, _ := newTestHandler(t)
	response := doRequest(handler, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, response.Code)
	assert.JSONEq(t, `{"status":"ok"}`, response.Body.String())
}

func TestMetricsEndpointExposed(t *testing.T) {
	handler, _ := newTestHandler(t)
	response := doRequest(handler, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, response.Code)
}

func TestCreateCompanyRejectsMalformedJSON(t *testing.T) {
	handler, _ := newTestHandler(t)
	response := doRequest(handler, http.MethodPost, "/v1/companies", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, response.Code)
	assert.Contains(t, response.Body.String(), "invalid_request")
}

func TestCreateCompanyRejectsUnknownFields(t *testing.T) {
	handler, _ := newTestHandler(t)
	response := doRequest(handler, http.MethodPost, "/v1/companies", `{"name":"Acme","surprise":true}`)
	assert.Equal(t, http.StatusBadRequest, response.Code)
}

func TestCreateCompanyRejectsBadAppliedAt(t *testing.T) {
	handler, _ := newTestHandler(t)
	response := doRequest(handler, http.MethodPost, "/v1/companies", `{"name":"Acme","applied_at":"yesterday"}`)
	assert.Equal(t, http.StatusBadRequest, response.Code)
}

func TestCreateCompanyRejectsLongName(t *testing.T) {
	handler, _ := newTestHandler(t)
	body := `{"name":"` + strings.Repeat("a", 60) + `"}`
	response := doRequest(handler, http.MethodPost, "/v1/companies", body)
	assert.Equal(t, http.StatusBadRequest, response.Code)
}

func TestGetCompanyNotFound(t *testing.T) {
	handler, _ := newTestHandler(t)
	response := doRequest(handler, http.MethodGet, "/v1/companies/nope", "")
	assert.Equal(t, http.StatusNotFound, response.Code)
	assert.Contains(t, response.Body.String(), "not_found")
}

func TestAddStageRejectsBadDate(t *testing.T) {
	handler, svc := newTestHandler(t)
	company := createTestCompany(t, svc)

	response := doRequest(handler, http.MethodPost, "/v1/companies/"+company.ID+"/stages",
		`{"kind":"resume","date":"tomorrow"}`)
	assert.Equal(t, http.StatusBadRequest, response.Code)
}

func TestAddStageRejectsUnknownLocationType(t *testing.T) {
	handler, svc := newTestHandler(t)
	company := createTestCompany(t, svc)

	body := `{"kind":"resume","date":"` + time.Now().Format(time.RFC3339) +
		`","location":{"type":"hybrid","address":"HQ"}}`
	response := doRequest(handler, http.MethodPost, "/v1/companies/"+company.ID+"/stages", body)
	assert.Equal(t, http.StatusBadRequest, response.Code)
}

func TestStageStatusRejectsUnknownStatus(t *testing.T) {
	handler, svc := newTestHandler(t)
	company := createTestCompany(t, svc)
	_, stage, err := svc.AddStage(context.Background(), company.ID, domain.StageResume, time.Now(), nil, "")
	require.NoError(t, err)

	response := doRequest(handler, http.MethodPost,
		"/v1/companies/"+company.ID+"/stages/"+stage.ID+"/status", `{"status":"maybe"}`)
	assert.Equal(t, http.StatusBadRequest, response.Code)
}

func TestStageStatusUnknownStageIs404(t *testing.T) {
	handler, svc := newTestHandler(t)
	company := createTestCompany(t, svc)

	response := doRequest(handler, http.MethodPost,
		"/v1/companies/"+company.ID+"/stages/ghost/status", `{"status":"passed"}`)
	assert.Equal(t, http.StatusNotFound, response.Code)
}

func TestStageNoteUpdate(t *testing.T) {
	handler, svc := newTestHandler(t)
	company := createTestCompany(t, svc)
	_, stage, err := svc.AddStage(context.Background(), company.ID, domain.StageResume, time.Now(), nil, "")
	require.NoError(t, err)

	response := doRequest(handler, http.MethodPut,
		"/v1/companies/"+company.ID+"/stages/"+stage.ID+"/note", `{"note":"remember follow-up"}`)
	require.Equal(t, http.StatusOK, response.Code)

	stored, err := svc.GetCompany(context.Background(), company.ID)
	require.NoError(t, err)
	storedStage, ok := stored.Stage(stage.ID)
	require.True(t, ok)
	assert.Equal(t, "remember follow-up", storedStage.Note)
}

func TestMethodNotAllowed(t *testing.T) {
	handler, _ := newTestHandler(t)
	response := doRequest(handler, http.MethodDelete, "/v1/companies", "")
	assert.Equal(t, http.StatusMethodNotAllowed, response.Code)
}

func TestUnknownCompanySubrouteIs404(t *testing.T) {
	handler, svc := newTestHandler(t)
	company := createTestCompany(t, svc)

	response := doRequest(handler, http.MethodGet, "/v1/companies/"+company.ID+"/history", "")
	assert.Equal(t, http.StatusNotFound, response.Code)
}

func TestErrorEnvelopeCarriesRequestID(t *testing.T) {
	handler, _ := newTestHandler(t)

	request := httptest.NewRequest(http.MethodGet, "/v1/companies/nope", nil)
	request.Header.Set("X-Request-Id", "req-123")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"request_id":"req-123"`)
}
