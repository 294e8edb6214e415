package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/sandevgo/datacom/internal/core"
	"github.com/spf13/cobra"
)

var askConversationID string

var askCmd = &cobra.Command{
	Use:          "ask <message>",
	Short:        "Run a single chat turn and print the reply as JSON",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the JSON reply
		ctx, flushLog := setupLoggerTo(cmd.Context(), os.Stderr)
		defer flushLog()

		p := newPipeline(ctx)
		defer p.db.Close()

		req := core.ChatRequest{Message: strings.Join(args, " ")}
		if askConversationID != "" {
			req.ConversationID = &askConversationID
		}

		resp, err := p.chat.ProcessChat(ctx, req)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

func init() {
	askCmd.Flags().StringVarP(&askConversationID, "conversation", "c", "", "continue an existing conversation")
	rootCmd.AddCommand(askCmd)
}
