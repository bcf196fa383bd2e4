package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/finscore/internal/contracts"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate [ticker...]",
	Short: "종목 코드 검증",
	Long: `종목 코드 형식을 검사하고 상장 여부를 조회합니다.

Example:
  go run ./cmd/finscore validate AAPL brk.b XXXXXXX`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	invalid := 0
	for _, ticker := range args {
		symbol, err := a.validator.Validate(ctx, ticker)
		switch {
		case err == nil:
			fmt.Printf("  ✅ %-8s valid (%s)\n", ticker, symbol)
		case errors.Is(err, contracts.ErrInvalidSymbol):
			invalid++
			fmt.Printf("  ❌ %-8s invalid\n", ticker)
		default:
			return fmt.Errorf("validate %s: %w", ticker, err)
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d symbols invalid", invalid, len(args))
	}
	return nil
}
