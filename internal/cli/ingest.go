package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/engramkit/engram/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ingest [content]",
		Short: "Store a new memory",
		Long:  "Ingest an atomic fact, or raw captured text with --raw (worthiness filter + essence extraction). Reads stdin when no argument is given.",
		Run:   runIngest,
	}

	cmd.Flags().Bool("raw", false, "Treat input as raw captured text, not an atomic fact")
	cmd.Flags().String("sector", "", "Force sector: semantic|episodic|procedural|emotional|reflective")
	cmd.Flags().Float64("confidence", 0, "Extraction confidence [0,1] (0 = classify)")
	cmd.Flags().StringSliceP("tags", "t", nil, "Tags (default: derived from content)")
	cmd.Flags().String("ttl", "", "Expiry, e.g. 7d, 24h, 30m")
	cmd.Flags().String("source", "", "Source capture id")
	cmd.Flags().String("app", "", "Source application")

	RootCmd.AddCommand(cmd)
}

func runIngest(cmd *cobra.Command, args []string) {
	content := strings.TrimSpace(strings.Join(args, " "))
	if content == "" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		content = strings.TrimSpace(string(b))
	}
	if content == "" {
		exitErr("ingest", fmt.Errorf("no content provided"))
	}

	raw, _ := cmd.Flags().GetBool("raw")
	sectorFlag, _ := cmd.Flags().GetString("sector")
	confidence, _ := cmd.Flags().GetFloat64("confidence")
	tags, _ := cmd.Flags().GetStringSlice("tags")
	ttl, _ := cmd.Flags().GetString("ttl")
	sourceID, _ := cmd.Flags().GetString("source")
	sourceApp, _ := cmd.Flags().GetString("app")

	eng, s, err := openEngine()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()
	defer eng.Close()

	src := model.Source{ID: sourceID, App: sourceApp}

	if raw {
		n, err := eng.IngestText(cmd.Context(), content, src)
		if err != nil {
			exitErr("ingest", err)
		}
		out, _ := json.Marshal(map[string]int{"extracted": n})
		fmt.Println(string(out))
		return
	}

	fact := model.AtomicFact{
		Content:    content,
		Sector:     model.Sector(sectorFlag),
		Confidence: confidence,
		Tags:       tags,
	}
	if ttl != "" {
		d, err := parseTTL(ttl)
		if err != nil {
			exitErr("invalid ttl", err)
		}
		exp := time.Now().UTC().Add(d)
		fact.ExpiresAt = &exp
	}
	if sectorFlag != "" && !fact.Sector.Valid() {
		exitErr("ingest", fmt.Errorf("invalid sector %q", sectorFlag))
	}

	if err := eng.Ingest(cmd.Context(), fact, src); err != nil {
		exitErr("ingest", err)
	}
	fmt.Println(`{"stored":true}`)
}
