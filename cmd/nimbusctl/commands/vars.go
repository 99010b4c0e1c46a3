package commands

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nimbusops/nimbusctl/pkg/config"
	"github.com/nimbusops/nimbusctl/pkg/gateway"
	"github.com/nimbusops/nimbusctl/pkg/reconcile"
)

func newVarsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vars",
		Short: "Reconcile environment and pipeline variables",
	}
	cmd.AddCommand(newVarsPlanCommand())
	cmd.AddCommand(newVarsApplyCommand())
	return cmd
}

// loadVariableBatches loads the input file and resolves every secret
// reference, so a missing key or an encrypted plain value fails here,
// before any network call.
func loadVariableBatches(inputPath string) ([]config.VariableBatch, error) {
	input, err := config.Load(inputPath)
	if err != nil {
		return nil, err
	}
	codec, err := newCodec()
	if err != nil {
		return nil, err
	}
	return input.VariableBatches(codec)
}

// planVariableBatches fetches the remote variable set of each batch and
// diffs it against the desired state. Plans come back in batch order.
func planVariableBatches(ctx context.Context, store reconcile.VariableStore, batches []config.VariableBatch) ([]*reconcile.Plan, error) {
	plans := make([]*reconcile.Plan, 0, len(batches))
	for _, batch := range batches {
		remote, err := store.Variables(ctx, batch.Ref)
		if err != nil {
			return nil, err
		}
		plan, err := reconcile.PlanVariables(batch.Ref, batch.Desired, remote)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func newVarsPlanCommand() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the variable changes an apply would make",
		Example: `  # Plan against the default connection config
  nimbusctl vars plan -f environments.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			batches, err := loadVariableBatches(inputPath)
			if err != nil {
				return err
			}
			client, err := newGatewayClient(ctx)
			if err != nil {
				return err
			}

			plans, err := planVariableBatches(ctx, client, batches)
			if err != nil {
				return err
			}
			for i, plan := range plans {
				log.Info().Str("resource", batches[i].Ref.String()).Msg("Planning variables")
				logPlan(plan)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "file", "f", "environments.yaml", "desired-state input file")
	return cmd
}

func newVarsApplyCommand() *cobra.Command {
	var (
		inputPath string
		flags     applyFlags
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply the desired variable state",
		Long: `Apply the desired variable state to every environment and pipeline
declared in the input file.

Busy resources are polled until ready (bounded by --max-wait) before
mutation; with --ci they are skipped instead and reported as deferred.`,
		Example: `  # Wait for busy resources (interactive runs)
  nimbusctl vars apply -f environments.yaml

  # Skip busy resources (CI runs)
  nimbusctl vars apply -f environments.yaml --ci`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			batches, err := loadVariableBatches(inputPath)
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

			ctx, span := tracer.Start(ctx, "vars.apply")
			defer span.End()

			metrics := newMetrics(ctx)
			coordinator := reconcile.NewCoordinator(client, gateway.NewVariableMutator(client), log.Logger).
				WithMetrics(metrics)

			plans, err := planVariableBatches(ctx, client, batches)
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
