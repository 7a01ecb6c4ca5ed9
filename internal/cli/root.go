// Package cli implements the engram CLI commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/engramkit/engram/internal/embedding"
	"github.com/engramkit/engram/internal/engine"
	"github.com/engramkit/engram/internal/observe"
	"github.com/engramkit/engram/internal/store"
)

var (
	dbPath  string
	verbose bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "engram",
	Short: "Associative memory retrieval engine",
	Long:  "Classifies, deduplicates, scores and links short factual memories, and retrieves them with hybrid vector, lexical and graph search. SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $ENGRAM_DB or ~/.engram/engram.db)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("ENGRAM_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".engram", "engram.db")
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath())
}

// openEngine wires the engine over the SQLite store and whatever
// embedding provider the environment configures.
func openEngine() (*engine.Engine, *store.SQLiteStore, error) {
	s, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	obs := observe.New(os.Stderr, verbose)
	eng, err := engine.New(s, embedding.NewFromEnv(), obs, engine.DefaultConfig())
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return eng, s, nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
