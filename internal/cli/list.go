package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored memories",
		Run:   runList,
	}

	cmd.Flags().Bool("all", false, "Include inactive and expired memories")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	all, _ := cmd.Flags().GetBool("all")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	memories, err := s.FetchAllMemories(cmd.Context(), !all)
	if err != nil {
		exitErr("list", err)
	}

	if len(memories) == 0 {
		fmt.Println("[]")
		return
	}
	b, _ := json.MarshalIndent(memories, "", "  ")
	fmt.Println(string(b))
}
