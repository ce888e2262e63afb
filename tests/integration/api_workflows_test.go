package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pygmalion/meettodo-back/internal/calendar"
	"github.com/pygmalion/meettodo-back/internal/events"
	httpserver "github.com/pygmalion/meettodo-back/internal/http"
	"github.com/pygmalion/meettodo-back/internal/http/handlers"
	"github.com/pygmalion/meettodo-back/internal/notify"
	"github.com/pygmalion/meettodo-back/internal/queue"
	"github.com/pygmalion/meettodo-back/internal/repository"
	"github.com/pygmalion/meettodo-back/internal/service"
	"github.com/pygmalion/meettodo-back/internal/worker"
)

type integrationRuntime struct {
	server   *httptest.Server
	notifier *notify.MemoryNotifier
	calendar *calendar.MemoryService
	cancel   context.CancelFunc
}

func startIntegrationRuntime(t *testing.T) integrationRuntime {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	logger := zap.NewNop()
	repo := repository.NewMemoryCompaniesRepository()
	localQueue := queue.NewLocalQueue(2048, 3, logger)
	notifier := notify.NewMemoryNotifier()
	calendarService := calendar.NewMemoryService(true)

	companiesService := service.NewCompaniesService(repo, localQueue, events.NopProducer{}, logger)
	api := handlers.NewAPI(companiesService)
	router := httpserver.NewRouter(httpserver.RouterDependencies{
		API:            api,
		Logger:         logger,
		AuthToken:      "",
		RateLimitRPS:   20000,
		RateLimitBurst: 20000,
	})

	processor := worker.NewProcessor(localQueue, repo, notifier, calendarService, 60, logger)
	go processor.Start(ctx)

	server := httptest.NewServer(router)
	return integrationRuntime{
		server:   server,
		notifier: notifier,
		calendar: calendarService,
		cancel: func() {
			cancel()
			server.Close()
		},
	}
}

func doJSON(
	t *testing.T,
	client *http.Client,
	method string,
	url string,
	payload any,
) (int, map[string]any) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}
	request, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := client.Do(request)
	if err != nil {
		t.Fatalf("execute request: %v", err)
	}
	defer response.Body.Close()

	raw, _ := io.ReadAll(response.Body)
	if len(raw) == 0 {
		return response.StatusCode, map[string]any{}
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode response body (%d): %s", response.StatusCode, string(raw))
	}
	return response.StatusCode, decoded
}

func waitForCalendarEvents(
	t *testing.T,
	calendarService *calendar.MemoryService,
	count int,
	timeout time.Duration,
) []calendar.Event {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		eventList := calendarService.Events()
		if len(eventList) >= count {
			return eventList
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %d calendar events, have %d", count, len(calendarService.Events()))
	return nil
}

func TestCompanyLifecycleFlow(t *testing.T) {
	runtime := startIntegrationRuntime(t)
	defer runtime.cancel()

	client := runtime.server.Client()
	baseURL := runtime.server.URL

	status, body := doJSON(t, client, http.MethodPost, baseURL+"/v1/companies", map[string]any{
		"name": "Acme",
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201 from create, got %d body=%+v", status, body)
	}
	companyID, _ := body["id"].(string)
	if companyID == "" {
		t.Fatalf("expected company id, got %+v", body)
	}
	if label, _ := body["current_stage_label"].(string); label != "not started" {
		t.Fatalf("expected 'not started' label, got %q", label)
	}
	available, _ := body["available_stages"].([]any)
	if len(available) != 1 || fmt.Sprintf("%v", available[0]) != "resume" {
		t.Fatalf("expected only resume to be available, got %+v", available)
	}

	resumeDate := time.Now().Add(24 * time.Hour).Format(time.RFC3339)
	status, body = doJSON(t, client, http.MethodPost, baseURL+"/v1/companies/"+companyID+"/stages", map[string]any{
		"kind": "resume",
		"date": resumeDate,
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201 from add stage, got %d body=%+v", status, body)
	}
	if overall, _ := body["overall_status"].(string); overall != "resume" {
		t.Fatalf("expected overall_status resume, got %q", overall)
	}
	if progress, _ := body["progress_percentage"].(float64); progress != 15 {
		t.Fatalf("expected 15%% progress, got %v", progress)
	}

	interviewDate := time.Now().Add(72 * time.Hour).Format(time.RFC3339)
	status, body = doJSON(t, client, http.MethodPost, baseURL+"/v1/companies/"+companyID+"/stages", map[string]any{
		"kind": "interview",
		"date": interviewDate,
		"location": map[string]any{
			"type":    "online",
			"address": "https://meet.example.com/acme",
		},
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201 from add interview, got %d body=%+v", status, body)
	}
	stageID, _ := body["stage_id"].(string)
	if stageID == "" {
		t.Fatalf("expected stage_id in response, got %+v", body)
	}
	if label, _ := body["current_stage_label"].(string); label != "Round 1 interview" {
		t.Fatalf("expected 'Round 1 interview' label, got %q", label)
	}

	// Reaching the interview auto-passes the earlier resume stage.
	stages, _ := body["stages"].([]any)
	if len(stages) != 2 {
		t.Fatalf("expected 2 stages, got %+v", stages)
	}
	resumeStage, _ := stages[0].(map[string]any)
	if stageStatus, _ := resumeStage["status"].(string); stageStatus != "passed" {
		t.Fatalf("expected resume auto-passed, got %q", stageStatus)
	}

	waitForCalendarEvents(t, runtime.calendar, 1, 4*time.Second)

	status, body = doJSON(t, client, http.MethodPost,
		baseURL+"/v1/companies/"+companyID+"/stages/"+stageID+"/status", map[string]any{
			"status": "failed",
		})
	if status != http.StatusOK {
		t.Fatalf("expected 200 from status update, got %d body=%+v", status, body)
	}
	if overall, _ := body["overall_status"].(string); overall != "failed" {
		t.Fatalf("expected overall_status failed, got %q", overall)
	}
	if label, _ := body["current_stage_label"].(string); label != "Round 1 interview not passed" {
		t.Fatalf("expected failure label, got %q", label)
	}

	status, _ = doJSON(t, client, http.MethodDelete, baseURL+"/v1/companies/"+companyID, nil)
	if status != http.StatusNoContent {
		t.Fatalf("expected 204 from delete, got %d", status)
	}
	status, body = doJSON(t, client, http.MethodGet, baseURL+"/v1/companies/"+companyID, nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d body=%+v", status, body)
	}
}

func TestStageAvailabilityViolationsReturnConflict(t *testing.T) {
	runtime := startIntegrationRuntime(t)
	defer runtime.cancel()

	client := runtime.server.Client()
	baseURL := runtime.server.URL

	status, body := doJSON(t, client, http.MethodPost, baseURL+"/v1/companies", map[string]any{
		"name": "Globex",
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%+v", status, body)
	}
	companyID, _ := body["id"].(string)

	// No resume yet, an interview is out of order.
	status, body = doJSON(t, client, http.MethodPost, baseURL+"/v1/companies/"+companyID+"/stages", map[string]any{
		"kind": "interview",
		"date": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for unavailable stage, got %d body=%+v", status, body)
	}
	errorEnvelope, _ := body["error"].(map[string]any)
	if code, _ := errorEnvelope["code"].(string); code != "stage_not_available" {
		t.Fatalf("expected stage_not_available code, got %+v", body)
	}

	status, body = doJSON(t, client, http.MethodPost, baseURL+"/v1/companies/"+companyID+"/stages", map[string]any{
		"kind": "phone_screen",
		"date": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown kind, got %d body=%+v", status, body)
	}
}

func TestAgendaStatisticsAndCalendarSync(t *testing.T) {
	runtime := startIntegrationRuntime(t)
	defer runtime.cancel()

	client := runtime.server.Client()
	baseURL := runtime.server.URL

	status, body := doJSON(t, client, http.MethodPost, baseURL+"/v1/companies", map[string]any{
		"name":       "Initech",
		"applied_at": time.Now().AddDate(0, 0, -7).Format(time.RFC3339),
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%+v", status, body)
	}
	companyID, _ := body["id"].(string)

	status, body = doJSON(t, client, http.MethodPost, baseURL+"/v1/companies/"+companyID+"/stages", map[string]any{
		"kind": "interview",
		"date": time.Now().Format(time.RFC3339),
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201 from add interview, got %d body=%+v", status, body)
	}

	status, body = doJSON(t, client, http.MethodGet, baseURL+"/v1/agenda/today", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 from agenda, got %d body=%+v", status, body)
	}
	entries, _ := body["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("expected 1 agenda entry, got %+v", body)
	}
	entry, _ := entries[0].(map[string]any)
	if name, _ := entry["company_name"].(string); name != "Initech" {
		t.Fatalf("expected Initech on the agenda, got %+v", entry)
	}

	status, body = doJSON(t, client, http.MethodGet, baseURL+"/v1/statistics", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 from statistics, got %d body=%+v", status, body)
	}
	if total, _ := body["total"].(float64); total != 1 {
		t.Fatalf("expected total=1, got %+v", body)
	}

	status, body = doJSON(t, client, http.MethodPost, baseURL+"/v1/calendar/sync", nil)
	if status != http.StatusAccepted {
		t.Fatalf("expected 202 from calendar sync, got %d body=%+v", status, body)
	}
	if enqueued, _ := body["enqueued"].(float64); enqueued != 1 {
		t.Fatalf("expected 1 enqueued sync, got %+v", body)
	}

	waitForCalendarEvents(t, runtime.calendar, 1, 4*time.Second)
}

func TestPinnedCompaniesListFirst(t *testing.T) {
	runtime := startIntegrationRuntime(t)
	defer runtime.cancel()

	client := runtime.server.Client()
	baseURL := runtime.server.URL

	var secondID string
	for _, name := range []string{"First", "Second", "Third"} {
		status, body := doJSON(t, client, http.MethodPost, baseURL+"/v1/companies", map[string]any{
			"name": name,
		})
		if status != http.StatusCreated {
			t.Fatalf("expected 201, got %d body=%+v", status, body)
		}
		if name == "Second" {
			secondID, _ = body["id"].(string)
		}
		time.Sleep(5 * time.Millisecond)
	}

	status, body := doJSON(t, client, http.MethodPatch, baseURL+"/v1/companies/"+secondID, map[string]any{
		"toggle_pin": true,
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 from pin toggle, got %d body=%+v", status, body)
	}

	status, body = doJSON(t, client, http.MethodGet, baseURL+"/v1/companies", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 from list, got %d body=%+v", status, body)
	}
	companies, _ := body["companies"].([]any)
	if len(companies) != 3 {
		t.Fatalf("expected 3 companies, got %d", len(companies))
	}
	first, _ := companies[0].(map[string]any)
	if name, _ := first["name"].(string); name != "Second" {
		t.Fatalf("expected pinned company first, got %q", name)
	}
}
