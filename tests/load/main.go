package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
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

type scenarioResult struct {
	Name          string   `json:"name"`
	Total         int      `json:"total"`
	Success       int      `json:"success"`
	Errors        int      `json:"errors"`
	P50MS         float64  `json:"p50_ms"`
	P95MS         float64  `json:"p95_ms"`
	P99MS         float64  `json:"p99_ms"`
	MaxMS         float64  `json:"max_ms"`
	ThroughputRPS float64  `json:"throughput_rps"`
	ErrorSamples  []string `json:"error_samples,omitempty"`
}

type runResult struct {
	GeneratedAtUTC string           `json:"generated_at_utc"`
	Environment    string           `json:"environment"`
	Results        []scenarioResult `json:"results"`
	SLOEvaluation  map[string]bool  `json:"slo_evaluation"`
}

type benchmarkEnv struct {
	server *httptest.Server
	cancel context.CancelFunc
}

func main() {
	createTotal := flag.Int("create-total", 200, "total company create requests")
	createConcurrency := flag.Int("create-concurrency", 20, "concurrency for company create requests")
	stagesTotal := flag.Int("stages-total", 200, "total stage add requests")
	stagesConcurrency := flag.Int("stages-concurrency", 24, "concurrency for stage add requests")
	listTotal := flag.Int("list-total", 300, "total company list requests")
	listConcurrency := flag.Int("list-concurrency", 24, "concurrency for company list requests")
	agendaTotal := flag.Int("agenda-total", 150, "total agenda requests")
	agendaConcurrency := flag.Int("agenda-concurrency", 16, "concurrency for agenda requests")
	outputPath := flag.String("output", "", "optional path to persist benchmark results JSON")
	flag.Parse()

	env, err := startBenchmarkEnvironment()
	if err != nil {
		log.Fatalf("failed to start local benchmark environment: %v", err)
	}
	defer env.cancel()
	defer env.server.Close()

	client := &http.Client{Timeout: 10 * time.Second}

	companyIDs := make([]string, 0, *createTotal)
	var companyIDsMu sync.Mutex

	createScenario := runScenario("company_create", *createTotal, *createConcurrency, func(index int) error {
		payload := map[string]any{
			"name": fmt.Sprintf("company-%d", index),
		}
		body, err := postJSON(client, env.server.URL+"/v1/companies", payload, http.StatusCreated)
		if err != nil {
			return err
		}
		if id, _ := body["id"].(string); id != "" {
			companyIDsMu.Lock()
			companyIDs = append(companyIDs, id)
			companyIDsMu.Unlock()
		}
		return nil
	})

	// Interviews repeat, so every stage_add request below is valid once the
	// company holds a resume stage.
	for _, companyID := range companyIDs {
		payload := map[string]any{
			"kind": "resume",
			"date": time.Now().Add(-24 * time.Hour).Format(time.RFC3339),
		}
		if _, err := postJSON(client, env.server.URL+"/v1/companies/"+companyID+"/stages", payload, http.StatusCreated); err != nil {
			log.Fatalf("failed to seed resume stage: %v", err)
		}
	}

	stagesScenario := runScenario("stage_add", *stagesTotal, *stagesConcurrency, func(index int) error {
		companyIDsMu.Lock()
		if len(companyIDs) == 0 {
			companyIDsMu.Unlock()
			return fmt.Errorf("no companies available for stage additions")
		}
		companyID := companyIDs[index%len(companyIDs)]
		companyIDsMu.Unlock()

		payload := map[string]any{
			"kind": "interview",
			"date": time.Now().Add(time.Duration(24+index%48) * time.Hour).Format(time.RFC3339),
		}
		_, err := postJSON(client, env.server.URL+"/v1/companies/"+companyID+"/stages", payload, http.StatusCreated)
		return err
	})

	listScenario := runScenario("company_list", *listTotal, *listConcurrency, func(int) error {
		return getJSON(client, env.server.URL+"/v1/companies", http.StatusOK)
	})

	agendaScenario := runScenario("agenda_today", *agendaTotal, *agendaConcurrency, func(int) error {
		return getJSON(client, env.server.URL+"/v1/agenda/today", http.StatusOK)
	})

	results := []scenarioResult{
		createScenario,
		stagesScenario,
		listScenario,
		agendaScenario,
	}

	slo := map[string]bool{
		"company_create_p95_le_500ms": createScenario.P95MS <= 500,
		"company_list_p95_le_500ms":   listScenario.P95MS <= 500,
		"agenda_p95_le_500ms":         agendaScenario.P95MS <= 500,
	}

	report := runResult{
		GeneratedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
		Environment:    "local-httptest",
		Results:        results,
		SLOEvaluation:  slo,
	}

	encoded, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal benchmark report: %v", err)
	}

	if *outputPath != "" {
		if err := os.WriteFile(*outputPath, encoded, 0o644); err != nil {
			log.Fatalf("failed to write output file: %v", err)
		}
	}

	_, _ = fmt.Fprintln(os.Stdout, string(encoded))
}

func startBenchmarkEnvironment() (*benchmarkEnv, error) {
	ctx, cancel := context.WithCancel(context.Background())
	logger := zap.NewNop()

	repo := repository.NewMemoryCompaniesRepository()
	localQueue := queue.NewLocalQueue(4096, 3, logger)
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
	return &benchmarkEnv{
		server: server,
		cancel: cancel,
	}, nil
}

func runScenario(
	name string,
	total int,
	concurrency int,
	requestFn func(index int) error,
) scenarioResult {
	if total <= 0 {
		return scenarioResult{Name: name}
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	startedAt := time.Now()
	type sample struct {
		durationMS float64
		err        string
	}

	jobs := make(chan int, total)
	results := make(chan sample, total)
	for i := 0; i < total; i++ {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				requestStart := time.Now()
				err := requestFn(index)
				s := sample{
					durationMS: float64(time.Since(requestStart).Microseconds()) / 1000.0,
				}
				if err != nil {
					s.err = err.Error()
				}
				results <- s
			}
		}()
	}
	wg.Wait()
	close(results)

	durations := make([]float64, 0, total)
	errorSamples := make([]string, 0, 5)
	success := 0
	errorsCount := 0
	for item := range results {
		durations = append(durations, item.durationMS)
		if item.err == "" {
			success++
			continue
		}
		errorsCount++
		if len(errorSamples) < 5 {
			errorSamples = append(errorSamples, item.err)
		}
	}

	sort.Float64s(durations)
	elapsedSeconds := time.Since(startedAt).Seconds()
	throughput := 0.0
	if elapsedSeconds > 0 {
		throughput = float64(total) / elapsedSeconds
	}

	result := scenarioResult{
		Name:          name,
		Total:         total,
		Success:       success,
		Errors:        errorsCount,
		P50MS:         percentile(durations, 0.50),
		P95MS:         percentile(durations, 0.95),
		P99MS:         percentile(durations, 0.99),
		MaxMS:         percentile(durations, 1.00),
		ThroughputRPS: round2(throughput),
		ErrorSamples:  errorSamples,
	}
	return result
}

func postJSON(
	client *http.Client,
	url string,
	payload any,
	expectedStatus int,
) (map[string]any, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	request, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if response.StatusCode != expectedStatus {
		return nil, fmt.Errorf("unexpected status %d (expected %d): %s", response.StatusCode, expectedStatus, string(raw))
	}

	var decoded map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}
	return decoded, nil
}

func getJSON(client *http.Client, url string, expectedStatus int) error {
	request, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != expectedStatus {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 1024))
		return fmt.Errorf("unexpected status %d (expected %d): %s", response.StatusCode, expectedStatus, string(body))
	}
	_, _ = io.Copy(io.Discard, response.Body)
	return nil
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if p <= 0 {
		return round2(values[0])
	}
	if p >= 1 {
		return round2(values[len(values)-1])
	}
	rank := int(math.Ceil(float64(len(values))*p)) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(values) {
		rank = len(values) - 1
	}
	return round2(values[rank])
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
