package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/lsp/app"
	"github.com/kilianp07/lsp/core/lsp"
	"github.com/kilianp07/lsp/infra/logger"
)

var (
	outputPath    string
	outputFormat  string
	listen        bool
	listenFor     time.Duration
	reconcilePath string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Schedule the selected plan and export it",
	Long: `Schedule runs one planning cycle over the selected plan of the configured
scenario, writes the plan elements as JSON or CSV, archives the snapshot and
publishes it to the fleet. With --listen it then records execution events
until interrupted and reconciles plans with the recorded logs.`,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVarP(&outputPath, "output", "o", "", "plan output file (default from config, stdout when empty)")
	scheduleCmd.Flags().StringVarP(&outputFormat, "format", "f", "", "plan output format: json or csv")
	scheduleCmd.Flags().BoolVar(&listen, "listen", false, "record execution events after scheduling")
	scheduleCmd.Flags().DurationVar(&listenFor, "listen-for", 0, "stop listening after this duration (0 waits for a signal)")
	scheduleCmd.Flags().StringVar(&reconcilePath, "reconciliation", "", "write the reconciliation as JSON to this file")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := logger.New("cli")

	if outputPath != "" {
		cfg.Export.Path = outputPath
	}
	if outputFormat != "" {
		cfg.Export.Format = outputFormat
		if err := cfg.Export.Validate(); err != nil {
			return err
		}
	}

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Errorf("service close: %v", err)
		}
	}()

	res, err := svc.Schedule(ctx)
	if err != nil {
		return err
	}
	if err := writeTo(cfg.Export.Path, cmd.OutOrStdout(), func(w io.Writer) error {
		return svc.Export(w, res.Rows())
	}); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if !listen {
		return nil
	}

	if listenFor > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, listenFor)
		defer cancel()
	}
	log.Infof("listening for execution events")
	recs, err := svc.Listen(ctx)
	if err != nil {
		return err
	}
	summarize(log, recs)
	if reconcilePath == "" {
		return nil
	}
	return writeTo(reconcilePath, nil, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	})
}

func summarize(log logger.Logger, recs []lsp.ShipmentReconciliation) {
	complete := 0
	for _, r := range recs {
		if r.Complete() {
			complete++
			continue
		}
		log.Debugw("shipment deviates from plan", map[string]any{
			"shipment":   r.Shipment,
			"missing":    len(r.Missing),
			"unexpected": len(r.Unexpected),
			"max_delta":  r.MaxAbsDelta(),
		})
	}
	log.Infof("%d of %d shipments executed as planned", complete, len(recs))
}

// writeTo writes to path, or to fallback when path is empty.
func writeTo(path string, fallback io.Writer, fn func(io.Writer) error) error {
	if path == "" {
		return fn(fallback)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
