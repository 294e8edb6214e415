package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sandevgo/datacom/internal/config"
	"github.com/sandevgo/datacom/internal/transport/cli"
	"github.com/sandevgo/datacom/internal/transport/tui"
	"github.com/spf13/cobra"
)

var (
	chatConversationID string
	chatPlain          bool
)

var chatCmd = &cobra.Command{
	Use:          "chat",
	Short:        "Talk to DATACOM-7 in the terminal",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// The TUI owns the screen, so logs go to a file
		runtimePath := config.GetRuntimePath()
		if err := os.MkdirAll(runtimePath, 0755); err != nil {
			return fmt.Errorf("failed to create runtime directory: %w", err)
		}
		logFile, err := os.OpenFile(filepath.Join(runtimePath, "datacom.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer logFile.Close()

		var flushLog func()
		ctx, flushLog = setupLoggerTo(ctx, logFile)
		defer flushLog()

		p := newPipeline(ctx)
		defer p.db.Close()

		if chatPlain {
			rl, err := cli.NewReadLine(runtimePath, p.chat, p.commands, chatConversationID)
			if err != nil {
				return err
			}
			defer rl.Shutdown(ctx)
			return rl.Start(ctx)
		}

		return tui.NewChatProgram(ctx, p.chat, p.commands, chatConversationID).Run()
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatConversationID, "conversation", "c", "", "continue an existing conversation")
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "line mode instead of the full screen UI")
	rootCmd.AddCommand(chatCmd)
}
