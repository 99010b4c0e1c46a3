package commands

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nimbusops/nimbusctl/pkg/config"
	"github.com/nimbusops/nimbusctl/pkg/gateway"
	"github.com/nimbusops/nimbusctl/pkg/reconcile"
)

func newDomainsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domains",
		Short: "Register custom domains",
	}
	cmd.AddCommand(newDomainsApplyCommand())
	return cmd
}

func newDomainsApplyCommand() *cobra.Command {
	var (
		inputPath string
		flags     applyFlags
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Register domains that are not yet known to the platform",
		Long: `Register every declared domain that the platform does not know yet.
Each new registration gets a generated site-verification TXT record;
add it to the domain's DNS zone before the platform will validate it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			input, err := config.Load(inputPath)
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

			ctx, span := tracer.Start(ctx, "domains.apply")
			defer span.End()

			metrics := newMetrics(ctx)
			coordinator := reconcile.NewCoordinator(client, gateway.NewDomainMutator(client), log.Logger).
				WithMetrics(metrics)

			outcome := reconcile.NewRunOutcome("")
			for _, batch := range input.DomainBatches() {
				existing, err := client.Domains(ctx, batch.ProgramID)
				if err != nil {
					return err
				}
				plan, err := gateway.PlanDomains(batch.ProgramID, batch.Desired, existing)
				if err != nil {
					return err
				}
				for _, reg := range batch.Desired {
					log.Info().
						Str("domain", reg.Name).
						Str("txt_record", reg.DNSTxtRecord).
						Msg("Verification record")
				}
				outcome.Merge(coordinator.Apply(ctx, plan, flags.options()))
			}
			return reportOutcome(outcome)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "file", "f", "environments.yaml", "desired-state input file")
	flags.register(cmd)
	return cmd
}
