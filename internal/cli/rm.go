package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a memory",
		Long:  "Soft-deletes by default: the memory is kept for audit but excluded from retrieval. Use --hard for permanent removal.",
		Args:  cobra.ExactArgs(1),
		Run:   runRm,
	}

	cmd.Flags().Bool("hard", false, "Delete permanently, including waypoints")

	RootCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	hard, _ := cmd.Flags().GetBool("hard")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if hard {
		err = s.Delete(cmd.Context(), args[0])
	} else {
		err = s.Deactivate(cmd.Context(), args[0])
	}
	if err != nil {
		exitErr("rm", err)
	}
	fmt.Println(`{"deleted":true}`)
}
