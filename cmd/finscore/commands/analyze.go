package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [ticker]",
	Short: "재무 점수 계산",
	Long: `종목 하나의 동종업계 대비 재무 점수를 계산하고 비교표를 출력합니다.

Example:
  go run ./cmd/finscore analyze AAPL
  go run ./cmd/finscore analyze msft --company-only`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var (
	analyzeCompanyOnly bool
	analyzeTimeout     time.Duration
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().BoolVar(&analyzeCompanyOnly, "company-only", false, "동종업계 비교 없이 회사 지표만 조회")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 2*time.Minute, "전체 분석 제한 시간")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), analyzeTimeout)
	defer cancel()

	ticker := args[0]
	out := os.Stdout

	if analyzeCompanyOnly {
		rec, err := a.analysis.FetchMainCompanyFinancials(ctx, ticker)
		if err != nil {
			return fmt.Errorf("❌ %w", err)
		}
		PrintHeader(out, "Company metrics: "+ticker)
		PrintMetricRecord(out, rec)
		PrintSeparator(out)
		return nil
	}

	start := time.Now()
	result, err := a.analysis.RunFinancialAnalysis(ctx, ticker)
	if err != nil {
		return fmt.Errorf("❌ %w", err)
	}

	PrintHeader(out, "Financial score: "+result.Symbol)
	fmt.Fprintf(out, "  Peers     : %v\n", result.Peers)
	PrintSeparator(out)
	PrintScoredTable(out, result.Table)
	PrintSeparator(out)
	fmt.Fprintf(out, "  Score     : %.4f\n", result.Score)
	fmt.Fprintf(out, "\n✅ Completed in %.2fs\n", time.Since(start).Seconds())

	return nil
}
