// README: Bench cases: environment, migration, ride lifecycle, concurrent accept and throughput checks.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client

	// scenario state shared by consecutive cases
	runID        string
	riderToken   string
	driverTokens []string
	rideID       string
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
		runID: strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{Name: "Env: Postgres connect", Run: checkPostgres},
		{Name: "Env: Redis connect", Run: checkRedis},
		{Name: "Migration: apply (optional)", Run: applyMigration},
		{Name: "Migration: tables exist", Run: checkTables},
		{Name: "API: health", Run: func(ctx context.Context, r *Runner) Result {
			res, _ := r.call(ctx, http.MethodGet, "/health", "", nil, nil)
			return expectStatus(res, http.StatusOK)
		}},
		{Name: "Auth: register rider", Run: registerRider},
		{Name: "Auth: register drivers", Run: registerDrivers},
		{Name: "Auth: protected route without token -> 401", Run: func(ctx context.Context, r *Runner) Result {
			res, _ := r.call(ctx, http.MethodGet, "/api/rides/history", "", nil, nil)
			return expectStatus(res, http.StatusUnauthorized)
		}},
		{Name: "Auth: rider on driver route -> 403", Run: func(ctx context.Context, r *Runner) Result {
			res, _ := r.call(ctx, http.MethodGet, "/api/rides/available", r.riderToken, nil, nil)
			return expectStatus(res, http.StatusForbidden)
		}},
		{Name: "Drivers: go online", Run: driversOnline},
		{Name: "Drivers: nearby search", Run: func(ctx context.Context, r *Runner) Result {
			var out struct {
				Drivers []json.RawMessage `json:"drivers"`
			}
			res, _ := r.call(ctx, http.MethodGet, "/api/drivers/nearby?longitude=121.565&latitude=25.033", "", nil, &out)
			if res.Status == statusPass && len(out.Drivers) == 0 {
				return Result{Status: statusFail, Latency: res.Latency, Note: "no drivers returned"}
			}
			return expectStatus(res, http.StatusOK)
		}},
		{Name: "Pricing: estimate", Run: func(ctx context.Context, r *Runner) Result {
			res, _ := r.call(ctx, http.MethodGet,
				"/api/rides/estimate?pickup_lng=121.565&pickup_lat=25.033&dest_lng=121.5318&dest_lat=25.0478", "", nil, nil)
			return expectStatus(res, http.StatusOK)
		}},
		{Name: "Rides: request (invalid coords -> 400)", Run: func(ctx context.Context, r *Runner) Result {
			body := map[string]any{
				"pickup_location": map[string]any{"coordinates": []float64{456, 123}},
				"destination":     map[string]any{"coordinates": []float64{121.5318, 25.0478}},
			}
			res, _ := r.call(ctx, http.MethodPost, "/api/rides/request", r.riderToken, body, nil)
			return expectStatus(res, http.StatusBadRequest)
		}},
		{Name: "Rides: request", Run: requestRide},
		{Name: "Concurrency: multi accept same ride", Run: concurrentAccept},
		{Name: "Rides: start", Run: func(ctx context.Context, r *Runner) Result {
			return r.transition(ctx, "start", nil, http.StatusOK)
		}},
		{Name: "Rides: complete", Run: func(ctx context.Context, r *Runner) Result {
			return r.transition(ctx, "complete", map[string]any{"actual_fare": 5.5}, http.StatusOK)
		}},
		{Name: "Rides: completed cannot be cancelled", Run: func(ctx context.Context, r *Runner) Result {
			res, _ := r.call(ctx, http.MethodPut, "/api/rides/"+r.rideID+"/cancel", r.riderToken, nil, nil)
			return expectStatus(res, http.StatusConflict)
		}},
		{Name: "Rides: rider rates driver", Run: func(ctx context.Context, r *Runner) Result {
			res, _ := r.call(ctx, http.MethodPut, "/api/rides/"+r.rideID+"/rate", r.riderToken, map[string]any{"rating": 5}, nil)
			return expectStatus(res, http.StatusOK)
		}},
		{Name: "Rides: history", Run: func(ctx context.Context, r *Runner) Result {
			res, _ := r.call(ctx, http.MethodGet, "/api/rides/history", r.riderToken, nil, nil)
			return expectStatus(res, http.StatusOK)
		}},
		{Name: "Perf: location update throughput", Run: func(ctx context.Context, r *Runner) Result {
			if len(r.driverTokens) == 0 {
				return Result{Status: statusSkip, Note: "no driver session"}
			}
			return perfLoad(ctx, r, http.MethodPut, "/api/drivers/location", r.driverTokens[0], map[string]any{
				"coordinates": []float64{121.565, 25.033},
			})
		}},
		{Name: "Perf: estimate throughput", Run: func(ctx context.Context, r *Runner) Result {
			return perfLoad(ctx, r, http.MethodGet,
				"/api/rides/estimate?pickup_lng=121.565&pickup_lat=25.033&dest_lng=121.5318&dest_lat=25.0478", "", nil)
		}},
	}
}

func checkPostgres(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusSkip, Note: "db not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.db.Ping(ctx); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass}
}

func checkRedis(ctx context.Context, r *Runner) Result {
	if r.redis == nil {
		return Result{Status: statusSkip, Note: "redis not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass}
}

func applyMigration(ctx context.Context, r *Runner) Result {
	if !r.cfg.ApplyMigration {
		return Result{Status: statusSkip, Note: "apply-migration=false"}
	}
	if r.db == nil {
		return Result{Status: statusFail, Note: "db not configured"}
	}
	sql, err := os.ReadFile(r.cfg.MigrationPath)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	for _, s := range splitSQL(string(sql)) {
		if _, err := r.db.Exec(ctx, s); err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
	}
	return Result{Status: statusPass}
}

func checkTables(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusSkip, Note: "db not configured"}
	}
	tables, err := extractTables(r.cfg.MigrationPath)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	for _, t := range tables {
		var exists bool
		err := r.db.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)", t,
		).Scan(&exists)
		if err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
		if !exists {
			return Result{Status: statusFail, Note: "missing table: " + t}
		}
	}
	return Result{Status: statusPass, Note: fmt.Sprintf("%d tables", len(tables))}
}

type session struct {
	Token string `json:"token"`
}

func registerRider(ctx context.Context, r *Runner) Result {
	var s session
	res, _ := r.call(ctx, http.MethodPost, "/api/riders/register", "", map[string]any{
		"name": "Bench Rider", "email": fmt.Sprintf("rider-%s@bench.local", r.runID),
		"phone": "0900000000", "password": "bench-pass",
	}, &s)
	r.riderToken = s.Token
	return expectStatus(res, http.StatusCreated)
}

func registerDrivers(ctx context.Context, r *Runner) Result {
	start := time.Now()
	for i := 0; i < r.cfg.Concurrency; i++ {
		var s session
		res, _ := r.call(ctx, http.MethodPost, "/api/drivers/register", "", map[string]any{
			"name": fmt.Sprintf("Bench Driver %d", i), "email": fmt.Sprintf("driver-%s-%d@bench.local", r.runID, i),
			"phone": "0911000000", "password": "bench-pass", "bike_model": "Kymco",
			"license_plate": fmt.Sprintf("B%s-%d", r.runID, i), "license_number": fmt.Sprintf("L%s%d", r.runID, i),
		}, &s)
		if out := expectStatus(res, http.StatusCreated); out.Status != statusPass {
			return out
		}
		r.driverTokens = append(r.driverTokens, s.Token)
	}
	return Result{Status: statusPass, Latency: time.Since(start), Note: fmt.Sprintf("drivers=%d", len(r.driverTokens))}
}

func driversOnline(ctx context.Context, r *Runner) Result {
	start := time.Now()
	for _, token := range r.driverTokens {
		res, _ := r.call(ctx, http.MethodPut, "/api/drivers/availability", token, map[string]any{
			"is_available": true,
			"location":     map[string]any{"coordinates": []float64{121.5651, 25.0331}},
		}, nil)
		if out := expectStatus(res, http.StatusOK); out.Status != statusPass {
			return out
		}
	}
	return Result{Status: statusPass, Latency: time.Since(start)}
}

func requestRide(ctx context.Context, r *Runner) Result {
	var out struct {
		Ride struct {
			ID string `json:"id"`
		} `json:"ride"`
	}
	res, _ := r.call(ctx, http.MethodPost, "/api/rides/request", r.riderToken, map[string]any{
		"pickup_location": map[string]any{"coordinates": []float64{121.565, 25.033}, "address": "Taipei 101"},
		"destination":     map[string]any{"coordinates": []float64{121.5318, 25.0478}, "address": "Taipei Main Station"},
		"payment_method":  "cash",
	}, &out)
	r.rideID = out.Ride.ID
	return expectStatus(res, http.StatusCreated)
}

// concurrentAccept fires one accept per driver at the same ride; exactly one
// must win and the rest must see 409.
func concurrentAccept(ctx context.Context, r *Runner) Result {
	if r.rideID == "" || len(r.driverTokens) == 0 {
		return Result{Status: statusSkip, Note: "no ride or drivers"}
	}
	var wg sync.WaitGroup
	var wins, conflicts, other atomic.Int64
	winner := make(chan string, 1)
	start := time.Now()
	for _, token := range r.driverTokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			_, code := r.call(ctx, http.MethodPut, "/api/rides/"+r.rideID+"/accept", token, nil, nil)
			switch {
			case code == http.StatusOK:
				wins.Add(1)
				select {
				case winner <- token:
				default:
				}
			case code == http.StatusConflict:
				conflicts.Add(1)
			default:
				other.Add(1)
			}
		}(token)
	}
	wg.Wait()
	close(winner)
	if tok, ok := <-winner; ok {
		for i, t := range r.driverTokens {
			if t == tok {
				r.driverTokens[0], r.driverTokens[i] = r.driverTokens[i], r.driverTokens[0]
				break
			}
		}
	}

	note := fmt.Sprintf("success=%d conflict=%d other=%d", wins.Load(), conflicts.Load(), other.Load())
	if wins.Load() != 1 || other.Load() != 0 {
		return Result{Status: statusFail, Latency: time.Since(start), Note: note}
	}
	return Result{Status: statusPass, Latency: time.Since(start), Note: note}
}

// transition drives the ride with the accepting driver, which concurrentAccept
// moved to driverTokens[0].
func (r *Runner) transition(ctx context.Context, action string, body any, want int) Result {
	if r.rideID == "" || len(r.driverTokens) == 0 {
		return Result{Status: statusSkip, Note: "no ride"}
	}
	res, _ := r.call(ctx, http.MethodPut, "/api/rides/"+r.rideID+"/"+action, r.driverTokens[0], body, nil)
	return expectStatus(res, want)
}

// call performs one request. The returned Result carries the latency and the
// status code in Note; expectStatus turns it into PASS/FAIL.
func (r *Runner) call(ctx context.Context, method, path, token string, body, out any) (Result, int) {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, reader)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}, 0
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}, 0
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	latency := time.Since(start)
	if out != nil && resp.StatusCode < 300 {
		_ = json.Unmarshal(data, out)
	}
	return Result{Status: statusPass, Latency: latency, Note: fmt.Sprintf("status=%d", resp.StatusCode)}, resp.StatusCode
}

func expectStatus(res Result, want int) Result {
	if res.Status == statusFail {
		return res
	}
	if res.Note != fmt.Sprintf("status=%d", want) {
		res.Status = statusFail
		res.Note += fmt.Sprintf(" want=%d", want)
	}
	return res
}

func perfLoad(ctx context.Context, r *Runner, method, path, token string, payload any) Result {
	var b []byte
	if payload != nil {
		b, _ = json.Marshal(payload)
	}
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				var body io.Reader
				if b != nil {
					body = bytes.NewReader(b)
				}
				req, _ := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, body)
				req.Header.Set("Content-Type", "application/json")
				if token != "" {
					req.Header.Set("Authorization", "Bearer "+token)
				}
				resp, err := r.httpc.Do(req)
				if err != nil {
					errCount.Add(1)
					continue
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				if resp.StatusCode >= 300 {
					errCount.Add(1)
					continue
				}
				count.Add(1)
			}
		}()
	}
	wg.Wait()

	if count.Load() == 0 {
		return Result{Status: statusFail, Note: fmt.Sprintf("no requests succeeded, errors=%d", errCount.Load())}
	}
	rps := float64(count.Load()) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount.Load())}
}

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	matches := re.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	parts := strings.Split(strings.Join(filtered, "\n"), ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
