package main

import (
	"fmt"
	"strings"

	"buyerwatch/internal/usecases"

	"github.com/spf13/cobra"
)

// categorize works offline: it only shows how a question would be routed
func categorizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categorize <question>",
		Short: "Show which topic category a question resolves to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			out := cmd.OutOrStdout()

			category, ok := usecases.Categorize(question)
			if !ok {
				fmt.Fprintln(out, "no category (generic fallback answer)")
				return nil
			}
			fmt.Fprintf(out, "category: %s\n", category)
			fmt.Fprintf(out, "keywords: %s\n", strings.Join(usecases.Keywords(category), ", "))
			return nil
		},
	}
}
