package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	cvxlab "cvxlab"
	"cvxlab/internal/api"
	"cvxlab/internal/audit"
	"cvxlab/internal/catalog"
	"cvxlab/internal/config"
	"cvxlab/internal/events"
	"cvxlab/internal/lock"
	"cvxlab/internal/solve"
)

func main() {
	ctx := context.Background()

	// 1. Configuration
	cfg := initConfig()

	// 2. Ambient infrastructure
	bus := initEventBus()
	defer bus.Close()

	locker := initLocker()

	// 3. Model definition
	modelPath := os.Getenv("CVXLAB_MODEL_FILE")
	if modelPath == "" {
		log.Fatal("CVXLAB_MODEL_FILE must name a JSON model definition")
	}
	src, err := loadModelFile(modelPath)
	if err != nil {
		log.Fatalf("failed to load model file: %v", err)
	}

	storeDir := envOr("CVXLAB_STORE_DIR", "./cvxlab-data")
	storeFile := envOr("CVXLAB_STORE_FILE", "model.sqlite")

	// 4. Solver wiring. The real solver is an external black box; this
	// demo wiring plugs in a solver that always reports optimal, for
	// exercising the engine's coupling machinery standalone.
	solver := &stubSolver{}

	logger := audit.NewAsyncLogger(nil)
	defer logger.Close()

	m := cvxlab.NewModel(cfg, solver, bus, logger)

	storeName := envOr("CVXLAB_LOCK_NAME", storeFile)
	heldLock, err := locker.Acquire(ctx, storeName)
	if err != nil {
		log.Fatalf("failed to acquire store lock: %v", err)
	}
	defer heldLock.Release(ctx)

	if err := m.LoadModelCoordinates(src); err != nil {
		log.Fatalf("failed to load model coordinates: %v", err)
	}
	if err := m.InitializeBlankDataStructure(ctx, storeDir, storeFile); err != nil {
		log.Fatalf("failed to initialize store: %v", err)
	}
	if err := m.InitializeProblems(ctx, false, nil); err != nil {
		log.Fatalf("failed to initialize problems: %v", err)
	}

	integrated := os.Getenv("CVXLAB_INTEGRATED") == "true"
	if err := m.Run(ctx, solver, integrated, nil); err != nil {
		log.Fatalf("run failed: %v", err)
	}

	// 5. Inspector surface
	router := api.NewServer(m)
	port := envOr("PORT", "8080")
	log.Printf("cvxlab inspector running on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("inspector server error: %v", err)
	}
}

func initConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	if v := os.Getenv("CVXLAB_TOLERANCE_CONVERGENCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.ToleranceCouplingConvergence = f
		}
	}
	if v := os.Getenv("CVXLAB_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxIterationsCoupling = n
		}
	}
	cfg.AllowNoneValues = os.Getenv("CVXLAB_ALLOW_NONE") == "true"
	return cfg
}

func initEventBus() events.Bus {
	brokers := os.Getenv("CVXLAB_KAFKA_BROKERS")
	if brokers == "" {
		return events.NoopBus{}
	}
	return events.NewKafkaBus([]string{brokers}, envOr("CVXLAB_KAFKA_TOPIC", "cvxlab-events"))
}

func initLocker() *lock.RedisLocker {
	addr := envOr("REDIS_URL", "localhost:6379")
	client := redis.NewClient(&redis.Options{Addr: addr})
	return lock.NewRedisLocker(client, 30*time.Second)
}

// loadModelFile reads a JSON model definition directly into the
// catalog's ingestion shapes. The spreadsheet/YAML loader a production
// deployment would use is a separate collaborator; this is the minimal
// glue needed to run the engine standalone.
func loadModelFile(path string) (catalog.SetupSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var doc struct {
		Sets     map[string]catalog.RawSet                 `json:"sets"`
		Tables   map[string]catalog.RawTable                `json:"tables"`
		Problems map[catalog.ProblemKey]catalog.RawProblem `json:"problems"`
	}
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return nil, err
	}
	return &catalog.InMemorySource{Sets: doc.Sets, Tables: doc.Tables, ProblemsM: doc.Problems}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// stubSolver always reports optimal without doing any actual convex
// solving; a placeholder for the real cvxpy-equivalent black box, in
// the same spirit as a demo stand-in for an out-of-scope dependency.
type stubSolver struct{}

func (s *stubSolver) Solve(ctx context.Context, problem catalog.ProblemKey, scenario int, opts map[string]any) (solve.Status, error) {
	return solve.StatusOptimal, nil
}
