package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/finscore/internal/api"
	"github.com/wonny/finscore/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 캐시 정리 스케줄러 시작 (CACHE_SWEEP_SCHEDULE)

Endpoints:
  GET  /status                    - Liveness
  GET  /health                    - Dependency checks
  GET  /financial-score?ticker=X  - Peer-relative financial score
  GET  /metrics                   - Prometheus metrics (METRICS_ENABLED)

Example:
  go run ./cmd/finscore api
  go run ./cmd/finscore api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort    string
	apiMigrate bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: PORT)")
	apiCmd.Flags().BoolVar(&apiMigrate, "migrate", true, "시작 시 스키마 적용")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== finscore API Server ===")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	a.log.WithFields(map[string]interface{}{
		"port":          cfg.Port,
		"env":           cfg.Env,
		"cache_backend": cfg.Cache.Backend,
	}).Info("Initializing API server")

	if apiMigrate {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		err := a.migrate(ctx)
		cancel()
		if err != nil {
			return err
		}
	}

	h := api.Handlers{
		Status: handlers.NewStatusHandler(cfg.Port, a.healthChecks()),
		Score:  handlers.NewScoreHandler(a.analysis, a.audit, a.log),
	}
	if a.metrics != nil {
		h.Metrics = a.metrics.Handler()
	}

	router := api.NewRouter(h, cfg.AllowedOrigins, a.metrics, a.log)
	server := api.New(cfg, a.log, router)

	a.scheduler.Start()
	defer a.scheduler.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /status")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /financial-score?ticker=AAPL")
	if a.metrics != nil {
		fmt.Println("  GET  /metrics")
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-quit:
	}

	a.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
