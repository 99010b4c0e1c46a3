package commands

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nimbusops/nimbusctl/pkg/gateway"
)

func newLogsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Follow and save environment logs",
	}
	cmd.AddCommand(newLogsTailCommand())
	cmd.AddCommand(newLogsSaveCommand())
	return cmd
}

// logsFlags are the selection flags shared by the logs subcommands.
type logsFlags struct {
	programID int64
	envID     int64
	service   string
	logName   string
}

func (f *logsFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int64VarP(&f.programID, "program", "p", 0, "program ID")
	cmd.Flags().Int64VarP(&f.envID, "environment", "e", 0, "environment ID")
	cmd.Flags().StringVar(&f.service, "service", "app",
		"service tier ("+strings.Join(gateway.LogServices(), ", ")+")")
	cmd.Flags().StringVar(&f.logName, "name", "error",
		"logfile name ("+strings.Join(gateway.LogNames(), ", ")+")")
	_ = cmd.MarkFlagRequired("program")
	_ = cmd.MarkFlagRequired("environment")
}

func newLogsTailCommand() *cobra.Command {
	var flags logsFlags

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow an environment logfile",
		Long: `Follow an environment logfile, printing new content as it appears.
The platform flushes logs in batches, so lines arrive with a delay of
up to a few minutes. Stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := gateway.ValidateLogQuery(flags.service, flags.logName); err != nil {
				return err
			}
			client, err := newGatewayClient(ctx)
			if err != nil {
				return err
			}

			tailURL, err := client.TailLogURL(ctx, flags.programID, flags.envID, flags.service, flags.logName)
			if err != nil {
				return err
			}

			log.Info().
				Str("service", flags.service).
				Str("name", flags.logName).
				Msg("Following log, stop with Ctrl-C")

			err = gateway.TailLog(ctx, tailURL, 0, cmd.OutOrStdout())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	flags.register(cmd)
	return cmd
}

func newLogsSaveCommand() *cobra.Command {
	var (
		flags logsFlags
		date  string
	)

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Download one day's logfile archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := gateway.ValidateLogQuery(flags.service, flags.logName); err != nil {
				return err
			}
			client, err := newGatewayClient(ctx)
			if err != nil {
				return err
			}

			filename := gateway.LogFileName(flags.envID, flags.service, flags.logName, date)
			file, err := os.Create(filename)
			if err != nil {
				return err
			}

			if err := client.DownloadLog(ctx, flags.programID, flags.envID, flags.service, flags.logName, date, file); err != nil {
				file.Close()
				os.Remove(filename)
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}

			log.Info().Str("file", filename).Msg("Log archive saved")
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&date, "date", time.Now().Format("2006-01-02"), "day to download (YYYY-MM-DD)")
	return cmd
}
