package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List platform resources",
	}
	cmd.AddCommand(newListProgramsCommand())
	cmd.AddCommand(newListEnvironmentsCommand())
	cmd.AddCommand(newListPipelinesCommand())
	return cmd
}

func newListProgramsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "programs",
		Short: "List the programs the credentials can access",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := newGatewayClient(ctx)
			if err != nil {
				return err
			}
			programs, err := client.Programs(ctx)
			if err != nil {
				return err
			}
			for _, p := range programs {
				log.Info().
					Int64("id", p.ID).
					Str("name", p.Name).
					Str("status", p.Status).
					Bool("enabled", p.Enabled).
					Msg("Program")
			}
			log.Info().Int("count", len(programs)).Msg("Programs listed")
			return nil
		},
	}
}

func newListEnvironmentsCommand() *cobra.Command {
	var programID int64

	cmd := &cobra.Command{
		Use:   "environments",
		Short: "List the environments of a program",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := newGatewayClient(ctx)
			if err != nil {
				return err
			}
			environments, err := client.Environments(ctx, programID)
			if err != nil {
				return err
			}
			for _, e := range environments {
				log.Info().
					Int64("id", e.ID).
					Str("name", e.Name).
					Str("type", e.Type).
					Str("status", e.Status).
					Msg("Environment")
			}
			log.Info().Int("count", len(environments)).Msg("Environments listed")
			return nil
		},
	}

	cmd.Flags().Int64VarP(&programID, "program", "p", 0, "program ID")
	_ = cmd.MarkFlagRequired("program")
	return cmd
}

func newListPipelinesCommand() *cobra.Command {
	var programID int64

	cmd := &cobra.Command{
		Use:   "pipelines",
		Short: "List the pipelines of a program",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := newGatewayClient(ctx)
			if err != nil {
				return err
			}
			pipelines, err := client.Pipelines(ctx, programID)
			if err != nil {
				return err
			}
			for _, p := range pipelines {
				log.Info().
					Int64("id", p.ID).
					Str("name", p.Name).
					Str("status", p.Status).
					Msg("Pipeline")
			}
			log.Info().Int("count", len(pipelines)).Msg("Pipelines listed")
			return nil
		},
	}

	cmd.Flags().Int64VarP(&programID, "program", "p", 0, "program ID")
	_ = cmd.MarkFlagRequired("program")
	return cmd
}
