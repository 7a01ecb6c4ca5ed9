package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "context [query]",
		Short: "Assemble top memories as prompt context",
		Long:  "Joins the content of the top search results as bullet lines, ready for prompt injection.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runContext,
	}

	cmd.Flags().IntP("limit", "l", 5, "Max memories")

	RootCmd.AddCommand(cmd)
}

func runContext(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	eng, s, err := openEngine()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()
	defer eng.Close()

	snippet, err := eng.ContextSnippet(cmd.Context(), query, limit)
	if err != nil {
		exitErr("context", err)
	}
	if snippet != "" {
		fmt.Println(snippet)
	}
}
