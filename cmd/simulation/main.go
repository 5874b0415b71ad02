package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dmartell/tradejournal/internal/analytics"
	"github.com/dmartell/tradejournal/internal/auth"
	"github.com/dmartell/tradejournal/internal/config"
	"github.com/dmartell/tradejournal/internal/database"
	"github.com/dmartell/tradejournal/internal/journal"
	"github.com/dmartell/tradejournal/internal/store"
	"github.com/dmartell/tradejournal/internal/types"
	"github.com/dmartell/tradejournal/pkg/middleware"
)

const (
	minDays       = 30
	maxDays       = 120
	numWorkers    = 3
	serverAddress = "http://localhost:8080"
	apiKey        = "test-api-key"
	apiSecret     = "test-api-secret"
)

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))
	median = rs.durations[len(rs.durations)/2]

	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationClient handles HTTP communication with the journal API
type simulationClient struct {
	baseURL   string
	authToken string
	client    *http.Client
	stats     map[string]*routeStats
}

// newSimulationClient creates and initializes a new simulation client
// It authenticates with the API and prepares performance tracking
func newSimulationClient() (*simulationClient, error) {
	sc := &simulationClient{
		baseURL: serverAddress,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		stats: map[string]*routeStats{
			"auth":      {name: "Authentication"},
			"create":    {name: "Create Entry"},
			"update":    {name: "Update Entry"},
			"delete":    {name: "Delete Entry"},
			"list":      {name: "List Entries"},
			"calendar":  {name: "Calendar"},
			"evolution": {name: "Evolution"},
			"metrics":   {name: "Metrics"},
		},
	}

	token, err := sc.authenticate()
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	sc.authToken = token

	return sc, nil
}

// authenticate performs API authentication and returns a JWT token
func (sc *simulationClient) authenticate() (string, error) {
	start := time.Now()
	defer func() {
		sc.stats["auth"].addDuration(time.Since(start))
	}()

	credentials := map[string]string{
		"api_key":    apiKey,
		"api_secret": apiSecret,
	}

	body, err := json.Marshal(credentials)
	if err != nil {
		return "", err
	}

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/token", sc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		sc.stats["auth"].failures++
		return "", fmt.Errorf("authentication failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Token string `json:"jwt_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return result.Data.Token, nil
}

// request performs an authenticated API call and decodes the envelope data
func (sc *simulationClient) request(statKey, method, path string, payload interface{}, out interface{}) error {
	start := time.Now()
	defer func() {
		sc.stats[statKey].addDuration(time.Since(start))
	}()

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, sc.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", sc.authToken))
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := sc.client.Do(req)
	if err != nil {
		sc.stats[statKey].failures++
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("response", string(respBody)).Msg("API response")

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		sc.stats[statKey].failures++
		return fmt.Errorf("%s %s failed with status %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}

	envelope := struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}
	return json.Unmarshal(envelope.Data, out)
}

// createEntry submits a trade result and returns the stored entry
func (sc *simulationClient) createEntry(date string, amount float64, notes string) (*types.TradeEntry, error) {
	var entry types.TradeEntry
	err := sc.request("create", http.MethodPost, "/api/v1/entries", types.NewEntryRequest{
		Date:   date,
		Amount: amount,
		Notes:  notes,
	}, &entry)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// simulateDays posts one trade result per day over a worker's date range
// Runs as a worker goroutine, sending created entry IDs to entriesChan
func simulateDays(workerID int, dates []string, sc *simulationClient, entriesChan chan<- string) {
	for _, date := range dates {
		// Skewed towards profits, like an optimistic journal
		amount := rand.Float64()*200 - 80
		amount = math.Round(amount*100) / 100

		entry, err := sc.createEntry(date, amount, fmt.Sprintf("simulated session %d", workerID))
		if err != nil {
			log.Error().Err(err).
				Int("worker_id", workerID).
				Str("date", date).
				Msg("Failed to create entry")
			continue
		}

		entriesChan <- entry.ID
		log.Info().
			Int("worker_id", workerID).
			Str("entry_id", entry.ID).
			Str("date", date).
			Float64("amount", amount).
			Msg("Entry created")

		time.Sleep(time.Duration(rand.Intn(50)) * time.Millisecond)
	}
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (sc *simulationClient) printPerformanceStats() {
	fmt.Println("\nAPI Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, stats := range sc.stats {
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

// main runs the journal simulation
// It starts a local API server, fills a stretch of trading days with
// results, mutates a few of them, and reads back every derived view
func main() {
	go func() {
		if err := startServer(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for server to start
	time.Sleep(2 * time.Second)

	sc, err := newSimulationClient()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize simulation client")
	}

	targetDays := rand.Intn(maxDays-minDays) + minDays
	log.Info().Int("target_days", targetDays).Msg("Starting simulation")

	// One date per day walking backwards from today, split across workers
	// in disjoint ranges so the upsert-by-date path is not racing itself.
	dates := make([]string, targetDays)
	for i := range dates {
		dates[i] = time.Now().AddDate(0, 0, -i).Format("2006-01-02")
	}

	entriesChan := make(chan string, targetDays)
	var wg sync.WaitGroup
	chunk := (targetDays + numWorkers - 1) / numWorkers
	for i := 0; i < numWorkers; i++ {
		lo := i * chunk
		hi := lo + chunk
		if hi > targetDays {
			hi = targetDays
		}
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(workerID int, span []string) {
			defer wg.Done()
			simulateDays(workerID, span, sc, entriesChan)
		}(i, dates[lo:hi])
	}

	wg.Wait()
	close(entriesChan)

	var entryIDs []string
	for id := range entriesChan {
		entryIDs = append(entryIDs, id)
	}
	log.Info().Int("entries_created", len(entryIDs)).Msg("All entries created")

	start := time.Now()

	// Revise a handful of days, the way a trader corrects fat-fingered numbers
	for i := 0; i < len(entryIDs)/10; i++ {
		id := entryIDs[rand.Intn(len(entryIDs))]
		amount := math.Round((rand.Float64()*300-100)*100) / 100
		var updated types.TradeEntry
		err := sc.request("update", http.MethodPut, "/api/v1/entries/"+id, types.UpdateEntryRequest{
			Amount: amount,
			Notes:  "revised",
		}, &updated)
		if err != nil {
			log.Error().Err(err).Str("entry_id", id).Msg("Failed to update entry")
		}
	}

	// And scrub a few days entirely
	deleted := make(map[string]bool)
	for i := 0; i < len(entryIDs)/20; i++ {
		id := entryIDs[rand.Intn(len(entryIDs))]
		if deleted[id] {
			continue
		}
		if err := sc.request("delete", http.MethodDelete, "/api/v1/entries/"+id, nil, nil); err != nil {
			log.Error().Err(err).Str("entry_id", id).Msg("Failed to delete entry")
			continue
		}
		deleted[id] = true
	}

	// Read back the journal and every derived view
	var listing types.EntriesResponse
	if err := sc.request("list", http.MethodGet, "/api/v1/entries", nil, &listing); err != nil {
		log.Fatal().Err(err).Msg("Failed to list entries")
	}

	now := time.Now()
	var days []types.DayWithTrade
	calendarPath := fmt.Sprintf("/api/v1/calendar/%d/%d", now.Year(), int(now.Month()))
	if err := sc.request("calendar", http.MethodGet, calendarPath, nil, &days); err != nil {
		log.Error().Err(err).Msg("Failed to fetch calendar")
	}

	var series []analytics.BalancePoint
	if err := sc.request("evolution", http.MethodGet, "/api/v1/analytics/evolution", nil, &series); err != nil {
		log.Error().Err(err).Msg("Failed to fetch evolution series")
	}

	var metrics analytics.Metrics
	for _, period := range []string{"all", "day", "week", "month", "year"} {
		if err := sc.request("metrics", http.MethodGet, "/api/v1/analytics/metrics?period="+period, nil, &metrics); err != nil {
			log.Error().Err(err).Str("period", period).Msg("Failed to fetch metrics")
		}
	}

	// Check the balance invariant: total equals seed plus the entry sum
	var entrySum float64
	for _, entry := range listing.Entries {
		entrySum += entry.Amount
	}
	drift := listing.TotalBalance - (store.SeedBalance + entrySum)

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Printf("Entries kept:        %d\n", len(listing.Entries))
	fmt.Printf("Total balance:       %.2f\n", listing.TotalBalance)
	fmt.Printf("Entry sum:           %.2f\n", entrySum)
	fmt.Printf("Invariant drift:     %.6f\n", drift)
	if len(series) > 0 {
		fmt.Printf("Evolution points:    %d (start %.2f, end %.2f)\n",
			len(series), series[0].Balance, series[len(series)-1].Balance)
	}
	fmt.Println(strings.Repeat("=", 80))

	log.Info().
		Int("entries", len(listing.Entries)).
		Float64("total_balance", listing.TotalBalance).
		Float64("invariant_drift", drift).
		Dur("duration", time.Since(start)).
		Msg("Simulation completed")

	sc.printPerformanceStats()
}

// startServer initializes and starts the journal API server in local mode
// Sets up all required services, handlers and routes
func startServer() error {
	db, err := database.NewDatabase("simulation.db")
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	cfg := &config.Config{
		Port:      "8080",
		JWTSecret: "journal-secret-key",
		APIKey:    apiKey,
		APISecret: apiSecret,
	}

	local := store.NewLocal(db)

	authService := auth.NewService(cfg.JWTSecret)
	authService.RegisterAPICredentials(cfg.APIKey, cfg.APISecret)
	authHandlers := auth.NewGinHandlers(authService)

	journalService := journal.NewService(local, local)
	journalService.Load(context.Background())
	journalHandlers := journal.NewGinHandlers(journalService)

	analyticsService := analytics.NewService(journalService)
	analyticsHandlers := analytics.NewGinHandlers(analyticsService)

	router := gin.Default()
	setupRoutes(router, cfg.JWTSecret, authHandlers, journalHandlers, analyticsHandlers)

	return router.Run(":" + cfg.Port)
}

// setupRoutes configures all API endpoints and their handlers
// Groups routes by functionality and applies appropriate middleware
func setupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authHandlers *auth.GinHandlers,
	journalHandlers *journal.GinHandlers,
	analyticsHandlers *analytics.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(jwtSecret))
		{
			protected.GET("/entries", journalHandlers.ListEntriesHandler())
			protected.POST("/entries", journalHandlers.CreateEntryHandler())
			protected.PUT("/entries/:id", journalHandlers.UpdateEntryHandler())
			protected.DELETE("/entries/:id", journalHandlers.DeleteEntryHandler())
			protected.GET("/entries/date/:date", journalHandlers.EntriesForDateHandler())
			protected.GET("/balance", journalHandlers.BalanceHandler())
			protected.GET("/calendar/:year/:month", journalHandlers.CalendarHandler())

			protected.GET("/analytics/evolution", analyticsHandlers.EvolutionHandler())
			protected.GET("/analytics/metrics", analyticsHandlers.MetricsHandler())
		}
	}
}
