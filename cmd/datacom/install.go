package main

import (
	"github.com/sandevgo/datacom/internal/config"
	"github.com/sandevgo/datacom/internal/service/installer"
	"github.com/sandevgo/datacom/pkg/log"
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:           "install",
	Short:         "Configure DATACOM-7 interactively",
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Setup logger
		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting installation process")

		// run wizard (includes save step)
		runtimePath := config.GetRuntimePath()
		if _, err := installer.RunWizard(runtimePath); err != nil {
			return err
		}

		logger.Info().Msgf("initialized runtime directory at: %s", runtimePath)
		logger.Info().Msg("Installation complete! You can now run 'datacom serve'.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
