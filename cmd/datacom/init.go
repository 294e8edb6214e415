package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sandevgo/datacom/internal/config"
	"github.com/sandevgo/datacom/pkg/env"
	"github.com/sandevgo/datacom/pkg/log"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:          "init",
	Short:        "Write a default .env into the runtime directory",
	Long:         `Writes the current configuration, defaults included, so it can be edited instead of exported by hand.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)

		appCfg := config.NewAppConfig(ctx)
		content, err := env.MarshalEnv(appCfg, config.NewLLMConfig(ctx), config.NewHTTPConfig(ctx))
		if err != nil {
			return err
		}

		if err := os.MkdirAll(appCfg.GetRuntimePath(), 0755); err != nil {
			return fmt.Errorf("failed to create runtime directory: %w", err)
		}

		envPath := appCfg.GetEnvPath()
		if _, err := os.Stat(envPath); err == nil && !initForce {
			return fmt.Errorf(".env file already exists at %s, use --force to overwrite", envPath)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		if err := os.WriteFile(envPath, []byte(content), 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", envPath, err)
		}

		logger.Info().Str("path", filepath.Clean(envPath)).Msg("default configuration written")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing .env")
	rootCmd.AddCommand(initCmd)
}
