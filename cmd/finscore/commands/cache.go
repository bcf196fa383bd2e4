package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/finscore/internal/marketdata"
	"github.com/wonny/finscore/internal/scheduler/jobs"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "캐시 관리",
	Long: `fetch 캐시를 관리합니다.

Example:
  go run ./cmd/finscore cache sweep
  go run ./cmd/finscore cache datasets`,
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "만료된 캐시 항목 삭제",
	Long: `TTL이 지난 캐시 항목을 즉시 삭제합니다.
api 서버에서는 CACHE_SWEEP_SCHEDULE 주기로 자동 실행됩니다.`,
	RunE: runCacheSweep,
}

var cacheDatasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "데이터셋별 TTL 조회",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		PrintHeader(out, "Cached datasets")
		for _, ds := range marketdata.Datasets {
			fmt.Fprintf(out, "  %-20s: %s\n", ds.Name, ds.TTL)
		}
		PrintSeparator(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheSweepCmd)
	cacheCmd.AddCommand(cacheDatasetsCmd)
}

func runCacheSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	result, err := a.scheduler.RunJob(ctx, jobs.CacheSweepName)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("❌ cache sweep failed: %s", result.Error)
	}

	fmt.Printf("✅ Cache sweep completed in %.2fs (%s backend)\n", result.Duration.Seconds(), cfg.Cache.Backend)
	return nil
}
