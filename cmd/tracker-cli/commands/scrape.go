package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"electiontracker/internal/aggregate"
	"electiontracker/internal/scrapers/eci"

	"github.com/spf13/cobra"
)

var scrapeOut *string
var scrapeSample *int
var scrapeDump *string

func init() {
	scrapeDump = scrapeCmd.Flags().String("dump", "", "Write every fetched page to this directory.")
	scrapeOut = scrapeCmd.Flags().String("out", "", "Write the crawled snapshot as json to this path.")
	scrapeSample = scrapeCmd.Flags().Int("sample", 5, "The number of sample rows to print.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--out <snapshot.json>] [--dump <dir>]",
	Short: "Crawls the results site once and prints what was found.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(func(opts *eci.Options) {
			opts.DumpDir = *scrapeDump
		})
		if err != nil {
			return err
		}

		t1 := time.Now()
		snapshot := e.crawler.Crawl(cmd.Context())
		slog.Info("crawl time", "seconds", time.Since(t1).Seconds())

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, summaryTable(snapshot).Render())
		fmt.Fprintln(out, sampleTable(snapshot, *scrapeSample).Render())

		parties, err := aggregate.AggregateParties(snapshot)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, partyTable(parties).Render())

		alliances, err := aggregate.AggregateAlliances(snapshot, e.cfg.Alliances)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, allianceTable(alliances).Render())

		if *scrapeOut == "" {
			return nil
		}
		buf, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(*scrapeOut, buf, 0644)
	},
}
