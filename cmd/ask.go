package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

func askCmd() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the stored chat history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ans, err := a.ask.Ask(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if plain {
				fmt.Fprintln(out, ans.Text)
			} else {
				fmt.Fprint(out, renderMarkdown(ans.Text))
			}
			fmt.Fprintf(out, "\nstrategy: %s", ans.Strategy)
			if ans.Category != "" {
				fmt.Fprintf(out, "  category: %s", ans.Category)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print the answer without terminal formatting")
	return cmd
}

// renderMarkdown falls back to the raw text when the terminal renderer fails
func renderMarkdown(text string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return text + "\n"
	}
	rendered, err := renderer.Render(text)
	if err != nil {
		return text + "\n"
	}
	return rendered
}
