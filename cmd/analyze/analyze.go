// Package analyze implements the analyze command, which runs one analysis
// without the HTTP service.
package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	infralogger "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/bootstrap"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/orchestrator"
)

type options struct {
	industry    string
	competitors []string
	deep        bool
	identity    string
}

// Command returns the analyze command. cfgFile is bound to the root's
// persistent --config flag.
func Command(cfgFile *string) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "analyze <domain>",
		Short: "Analyze one domain and print the report as JSON",
		Long: `Analyze runs every analyzer unit against the domain with an in-memory
cache and no persistence. Progress is written to stderr and the final
report to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := bootstrap.LoadConfig(*cfgFile)
			if err != nil {
				return err
			}
			cfg.Logging.OutputPaths = []string{"stderr"}
			log, err := bootstrap.CreateLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			orch := bootstrap.NewStandaloneOrchestrator(cfg, log)
			defer orch.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			req := domain.AnalysisRequest{
				Domain:       args[0],
				DeepAnalysis: opts.deep,
				Industry:     opts.industry,
				Competitors:  opts.competitors,
				Identity:     opts.identity,
			}
			return run(ctx, orch, req, cmd.ErrOrStderr(), cmd.OutOrStdout(), log)
		},
	}

	cmd.Flags().StringVar(&opts.industry, "industry", "", "industry hint, e.g. saas or ecommerce")
	cmd.Flags().StringSliceVar(&opts.competitors, "competitor", nil, "competitor domain (repeatable)")
	cmd.Flags().BoolVar(&opts.deep, "deep", false, "request deep analysis (subject to the deep_analysis feature)")
	cmd.Flags().StringVar(&opts.identity, "identity", "", "identity used for feature rollout decisions")
	return cmd
}

// run submits req, streams progress lines to progress and writes the terminal
// report to out. Interrupting ctx cancels the run and still prints the
// partial report.
func run(
	ctx context.Context,
	orch *orchestrator.Orchestrator,
	req domain.AnalysisRequest,
	progress, out io.Writer,
	log infralogger.Logger,
) error {
	snapshot, err := orch.Submit(ctx, req)
	if err != nil {
		return fmt.Errorf("submit analysis: %w", err)
	}
	id := snapshot.ID

	events, err := orch.SubscribeAfter(context.WithoutCancel(ctx), id, 0)
	if err != nil {
		return fmt.Errorf("subscribe to progress: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			if cancelErr := orch.Cancel(id); cancelErr != nil {
				log.Debug("Cancel after interrupt", infralogger.Error(cancelErr))
			}
			ctx = context.WithoutCancel(ctx)
		case ev, ok := <-events:
			if !ok {
				return writeReport(ctx, orch, id, out)
			}
			_, _ = fmt.Fprintf(progress, "[%3d%%] %s\n", ev.ProgressPercent, ev.Message)
		}
	}
}

func writeReport(ctx context.Context, orch *orchestrator.Orchestrator, id string, out io.Writer) error {
	report, err := orch.Report(ctx, id)
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
