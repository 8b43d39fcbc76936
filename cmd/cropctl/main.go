// Package main implements cropctl, the operator CLI for cropwise.
// It shares the server's environment configuration.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kiranshivaraju/cropwise/internal/config"
	"github.com/kiranshivaraju/cropwise/internal/knowledge"
	"github.com/kiranshivaraju/cropwise/internal/ledger"
	"github.com/kiranshivaraju/cropwise/internal/model"
	"github.com/kiranshivaraju/cropwise/internal/recommend"
	"github.com/kiranshivaraju/cropwise/internal/store"
	"github.com/kiranshivaraju/cropwise/pkg/models"
	"github.com/spf13/cobra"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cropctl",
		Short: "Crop recommendation tooling",
		Long: `cropctl runs predictions offline and manages the prediction ledger.

Configuration is read from the same environment variables as the server
(MODEL_PATH, CROP_DETAILS_PATH, LEDGER_DRIVER, SQLITE_PATH, DATABASE_URL).`,
		SilenceUsage: true,
	}
	root.AddCommand(newPredictCmd(), newRecentCmd(), newExportCmd(), newMigrateCmd())
	return root
}

// =============================================================================
// PREDICT
// =============================================================================

func newPredictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Recommend a crop for one sample without logging it",
		Args:  cobra.NoArgs,
		RunE:  runPredict,
	}
	for _, name := range models.FeatureNames {
		cmd.Flags().Float64(name, 0, fmt.Sprintf("%s value", name))
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func runPredict(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	raw := make(map[string]any, models.NumFeatures)
	for _, name := range models.FeatureNames {
		v, err := cmd.Flags().GetFloat64(name)
		if err != nil {
			return err
		}
		raw[name] = v
	}

	adapter, err := model.Load(cfg.Model.Path)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	rec, err := predictOffline(cmd.Context(), adapter, knowledge.Load(cfg.Knowledge.Path), raw)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), rec)
}

// predictOffline runs the same pipeline as the server without logging.
func predictOffline(ctx context.Context, m recommend.Inferrer, k *knowledge.Table, raw map[string]any) (*recommend.Recommendation, error) {
	svc := recommend.NewService(m, k, offlineLedger{}, recommend.Options{})
	defer svc.Close()
	return svc.Recommend(ctx, raw)
}

// offlineLedger discards predictions made from the command line.
type offlineLedger struct{}

func (offlineLedger) Append(context.Context, models.FeatureVector, string) {}

func (offlineLedger) Recent(context.Context, int) ([]models.PredictionRecord, error) {
	return nil, errOffline
}

func (offlineLedger) Export(context.Context, io.Writer) error { return errOffline }

func (offlineLedger) Ping(context.Context) error { return nil }

var errOffline = errors.New("offline predictions are not logged")

// =============================================================================
// LEDGER
// =============================================================================

func newRecentCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Print the most recent logged predictions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLedger(cmd.Context(), func(l *ledger.Ledger) error {
				records, err := l.Recent(cmd.Context(), min(max(limit, 1), ledger.DefaultRecentLimit))
				if err != nil {
					return err
				}
				if records == nil {
					records = []models.PredictionRecord{}
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{"recent": records})
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", ledger.DefaultRecentLimit, "maximum number of records (1-100)")
	return cmd
}

func newExportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the full prediction history as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLedger(cmd.Context(), func(l *ledger.Ledger) error {
				var buf bytes.Buffer
				if err := l.Export(cmd.Context(), &buf); err != nil {
					return err
				}
				if output == "" || output == "-" {
					_, err := cmd.OutOrStdout().Write(buf.Bytes())
					return err
				}
				if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "exported to %s\n", output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "destination file, - for stdout")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the ledger schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			// store.Open migrates Postgres and creates the SQLite table.
			s, err := store.Open(cmd.Context(), cfg.Ledger)
			if err != nil {
				return err
			}
			defer s.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "%s ledger schema is up to date\n", cfg.Ledger.Driver)
			return nil
		},
	}
}

func withLedger(ctx context.Context, fn func(*ledger.Ledger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// Reading must not create an empty SQLite ledger at a mistyped path.
	if cfg.Ledger.Driver == config.DriverSQLite {
		if _, err := os.Stat(cfg.Ledger.SQLitePath); err != nil {
			return fmt.Errorf("open ledger: %w (run cropctl migrate to create it)", err)
		}
	}
	s, err := store.Open(ctx, cfg.Ledger)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer s.Close()
	return fn(ledger.New(s))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
