package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/engramkit/engram/internal/engine"
	"github.com/engramkit/engram/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search memories",
		Long:  "Hybrid search: vector similarity, keyword overlap, waypoint expansion and time-decayed salience.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().IntP("limit", "l", 10, "Max results")
	cmd.Flags().StringSlice("sectors", nil, "Sector allow-list")
	cmd.Flags().Float64("min-salience", 0, "Minimum time-decayed salience")
	cmd.Flags().Bool("debug", false, "Include per-signal score breakdowns")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	sectors, _ := cmd.Flags().GetStringSlice("sectors")
	minSalience, _ := cmd.Flags().GetFloat64("min-salience")
	debug, _ := cmd.Flags().GetBool("debug")
	query := strings.Join(args, " ")

	opts := engine.SearchOptions{MinSalience: minSalience, Debug: debug}
	for _, s := range sectors {
		sec := model.Sector(s)
		if !sec.Valid() {
			exitErr("search", fmt.Errorf("invalid sector %q", s))
		}
		opts.Sectors = append(opts.Sectors, sec)
	}

	eng, s, err := openEngine()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()
	defer eng.Close()

	results, err := eng.Search(cmd.Context(), query, limit, opts)
	if err != nil {
		exitErr("search", err)
	}

	if len(results) == 0 {
		fmt.Println("[]")
		return
	}
	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(b))
}
