// mirador discovers, ranks and persists news mentions of tracked entities,
// on a schedule bounded by per-plan quotas.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bbxlabs/mirador/internal/logger"
)

var monitorAddr string

func main() {
	logger.Init()

	root := &cobra.Command{
		Use:           "mirador",
		Short:         "News mention discovery for tracked entities",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler daemon with auto-ingestion and cron alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			startMonitoring(ctx, monitorAddr, a.store)
			return a.sched.Start(ctx)
		},
	}
	runCmd.Flags().StringVar(&monitorAddr, "monitor-addr", ":8080", "address for the health/metrics endpoints")

	var campaignID string
	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run one discovery pass for a campaign immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			if campaignID == "" {
				return fmt.Errorf("--campaign is required")
			}
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			return a.sched.KickoffCampaignIngest(cmd.Context(), campaignID)
		},
	}
	ingestCmd.Flags().StringVar(&campaignID, "campaign", "", "campaign id to ingest")

	var alertID string
	alertCmd := &cobra.Command{
		Use:   "alert",
		Short: "Run one alert immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			if alertID == "" {
				return fmt.Errorf("--id is required")
			}
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			return a.sched.RunAlertNow(cmd.Context(), alertID)
		},
	}
	alertCmd.Flags().StringVar(&alertID, "id", "", "alert id to run")

	root.AddCommand(runCmd, ingestCmd, alertCmd)

	if err := root.ExecuteContext(context.Background()); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
