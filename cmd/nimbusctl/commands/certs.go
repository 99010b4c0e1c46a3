package commands

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nimbusops/nimbusctl/pkg/certs"
	"github.com/nimbusops/nimbusctl/pkg/config"
	"github.com/nimbusops/nimbusctl/pkg/gateway"
	"github.com/nimbusops/nimbusctl/pkg/reconcile"
)

func newCertsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "certs",
		Short: "Reconcile TLS certificates",
	}
	cmd.AddCommand(newCertsPlanCommand())
	cmd.AddCommand(newCertsApplyCommand())
	return cmd
}

// loadCertificateBatches loads the input file and runs the PEM preflight
// over every batch. A single unreadable or unparsable file aborts the
// whole run before anything is sent to the gateway.
func loadCertificateBatches(inputPath string) (string, []config.CertificateBatch, error) {
	input, err := config.Load(inputPath)
	if err != nil {
		return "", nil, err
	}
	batches := input.CertificateBatches()
	for _, batch := range batches {
		if err := certs.Preflight(input.BaseDir(), batch.Desired); err != nil {
			return "", nil, err
		}
	}
	return input.BaseDir(), batches, nil
}

// planCertificateBatches lists each program's certificate inventory and
// matches the desired certificates against it.
func planCertificateBatches(ctx context.Context, store certs.Store, baseDir string, batches []config.CertificateBatch) ([]*reconcile.Plan, error) {
	plans := make([]*reconcile.Plan, 0, len(batches))
	for _, batch := range batches {
		remote, err := store.Certificates(ctx, batch.ProgramID)
		if err != nil {
			return nil, err
		}
		plan, err := certs.PlanCertificates(batch.ProgramID, baseDir, batch.Desired, remote)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func newCertsPlanCommand() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the certificate changes an apply would make",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			baseDir, batches, err := loadCertificateBatches(inputPath)
			if err != nil {
				return err
			}
			client, err := newGatewayClient(ctx)
			if err != nil {
				return err
			}

			plans, err := planCertificateBatches(ctx, client, baseDir, batches)
			if err != nil {
				return err
			}
			for i, plan := range plans {
				log.Info().Int64("program", batches[i].ProgramID).Msg("Planning certificates")
				logPlan(plan)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "file", "f", "environments.yaml", "desired-state input file")
	return cmd
}

func newCertsApplyCommand() *cobra.Command {
	var (
		inputPath string
		flags     applyFlags
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Upload new and changed certificates",
		Long: `Upload every declared certificate whose serial number differs from the
remote copy. Certificates already current are skipped; certificates
outside their validity window are reported as failed without upload.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			baseDir, batches, err := loadCertificateBatches(inputPath)
			if err != nil {
				return err
			}
			client, err := newGatewayClient(ctx)
			if err != nil {
				return err
			}
			tracer, err := newTracer()
			if err != nil {
				return err
			}
			defer func() { _ = tracer.Shutdown(context.Background()) }()

			ctx, span := tracer.Start(ctx, "certs.apply")
			defer span.End()

			metrics := newMetrics(ctx)
			coordinator := reconcile.NewCoordinator(client, gateway.NewCertificateMutator(client), log.Logger).
				WithMetrics(metrics)

			plans, err := planCertificateBatches(ctx, client, baseDir, batches)
			if err != nil {
				return err
			}
			outcome := reconcile.NewRunOutcome("")
			for _, plan := range plans {
				outcome.Merge(coordinator.Apply(ctx, plan, flags.options()))
			}
			return reportOutcome(outcome)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "file", "f", "environments.yaml", "desired-state input file")
	flags.register(cmd)
	return cmd
}
