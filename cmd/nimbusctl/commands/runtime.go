package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nimbusops/nimbusctl/pkg/gateway"
	"github.com/nimbusops/nimbusctl/pkg/reconcile"
	"github.com/nimbusops/nimbusctl/pkg/secrets"
	"github.com/nimbusops/nimbusctl/pkg/telemetry"
)

// newGatewayClient loads the connection config and builds an
// authenticated API client from it.
func newGatewayClient(ctx context.Context) (*gateway.Client, error) {
	cfg, err := gateway.LoadConfig(connectionPath)
	if err != nil {
		return nil, err
	}
	return gateway.NewClient(ctx, *cfg, log.Logger)
}

// newCodec builds the secret codec from the configured key source. A nil
// codec is returned when no key is configured; plain values still work,
// only encrypted values will be rejected.
func newCodec() (*secrets.Codec, error) {
	key := secrets.LoadKey(keyFilePath)
	if key == nil {
		return nil, nil
	}
	return secrets.NewCodec(key)
}

// applyFlags holds the coordination flags shared by all apply commands.
type applyFlags struct {
	ciMode       bool
	pollInterval time.Duration
	maxWait      time.Duration
}

func (f *applyFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.ciMode, "ci", false, "skip busy resources instead of waiting")
	cmd.Flags().DurationVar(&f.pollInterval, "poll-interval", reconcile.DefaultPollInterval, "how often to re-check a busy resource")
	cmd.Flags().DurationVar(&f.maxWait, "max-wait", reconcile.DefaultMaxWait, "how long to wait for a busy resource before failing")
}

func (f *applyFlags) options() reconcile.ApplyOptions {
	return reconcile.ApplyOptions{
		CIMode:       f.ciMode,
		PollInterval: f.pollInterval,
		MaxWait:      f.maxWait,
	}
}

// logPlan emits one line per planned action.
func logPlan(plan *reconcile.Plan) {
	for _, action := range plan.Actions {
		evt := log.Info()
		if action.Type == reconcile.ActionFailed {
			evt = log.Error().Err(action.Err)
		}
		evt.
			Str("entity", action.EntityID).
			Str("action", string(action.Type)).
			Str("reason", action.Reason).
			Msg("Planned")
	}
	log.Info().
		Int("create", plan.Summary.ToCreate).
		Int("update", plan.Summary.ToUpdate).
		Int("skip", plan.Summary.ToSkip).
		Int("failed", plan.Summary.Failed).
		Msg("Plan complete")
}

// reportOutcome logs the aggregated run outcome and converts it into the
// command's error result: nil when every action succeeded or was
// deliberately skipped or deferred, an error otherwise.
func reportOutcome(outcome *reconcile.RunOutcome) error {
	for _, id := range outcome.FailedEntities() {
		log.Error().Err(outcome.Failed[id]).Str("entity", id).Msg("Failed")
	}
	for _, id := range outcome.Deferred {
		log.Warn().Str("entity", id).Msg("Deferred (resource busy)")
	}
	log.Info().
		Int("succeeded", len(outcome.Succeeded)).
		Int("skipped", len(outcome.Skipped)).
		Int("deferred", len(outcome.Deferred)).
		Int("failed", len(outcome.Failed)).
		Msg("Apply complete")

	if outcome.ExitCode() != 0 {
		return fmt.Errorf("%d entities failed", len(outcome.Failed))
	}
	return nil
}

// newTracer builds the span exporter. Disabled unless --trace is set;
// callers must Shutdown before exiting to flush buffered spans.
func newTracer() (*telemetry.Tracer, error) {
	cfg := telemetry.DefaultConfig("")
	cfg.Tracing.Enabled = traceEnabled
	return telemetry.NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion)
}

// newMetrics builds the metrics sink and, when --metrics-listen is set,
// serves the scrape endpoint for the lifetime of ctx.
func newMetrics(ctx context.Context) *telemetry.Metrics {
	cfg := telemetry.DefaultConfig("")
	cfg.Metrics.ListenAddr = metricsListen
	metrics := telemetry.NewMetrics(cfg.Metrics)
	metrics.Serve(ctx, cfg.Metrics.ListenAddr, log.Logger)
	return metrics
}
