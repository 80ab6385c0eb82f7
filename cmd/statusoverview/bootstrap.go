package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Swap-nul/statusoverview/internal/orchestrator"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Run one-shot bootstrap and exit",
	Long: `Bootstrap prepares every dependency of the dashboard: it migrates the
Postgres schema, provisions the NATS deployments stream and checks that
Redis and Jenkins answer.

The command runs once, prints a JSON result to stdout, and exits 0 on
success or non-zero on failure.`,
	RunE: runBootstrap,
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Bootstrap.Timeout)
	defer cancel()
	defer app.close()

	slog.Info("starting bootstrap")

	result, err := app.orchestrator.RunBootstrap(ctx)
	if err != nil {
		printResult(os.Stdout, "error", err.Error())
		return fmt.Errorf("bootstrap failed: %w", err)
	}

	printBootstrapResult(os.Stdout, result)
	if result.Status == orchestrator.StatusError {
		return errors.New("bootstrap completed with errors")
	}

	slog.Info("bootstrap completed successfully")
	return nil
}

func printBootstrapResult(w io.Writer, result *orchestrator.BootstrapResult) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(w, `{"status":%q}`+"\n", result.Status)
	}
}

func printResult(w io.Writer, status, errMsg string) {
	result := map[string]string{"status": status}
	if errMsg != "" {
		result["error"] = errMsg
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(w, `{"status":%q}`+"\n", status)
	}
}
