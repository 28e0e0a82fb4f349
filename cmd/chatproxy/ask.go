package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/usecase"
)

var (
	askSystem string
	askJSON   bool
)

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Send one message and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		return runAsk(cmd.Context(), cmd.OutOrStdout(), a.Chat, strings.Join(args, " "), askSystem, askJSON)
	},
}

func init() {
	askCmd.Flags().StringVarP(&askSystem, "system", "s", "", "system prompt (defaults to the built-in assistant prompt)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the reply as the API's JSON body")
}

type chatCompleter interface {
	Complete(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

func runAsk(ctx context.Context, out io.Writer, chat chatCompleter, message, system string, asJSON bool) error {
	res, err := chat.Complete(ctx, usecase.ChatInput{Message: message, SystemPrompt: system})
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Response string `json:"response"`
		}{res.Response})
	}
	_, err = fmt.Fprintln(out, res.Response)
	return err
}
