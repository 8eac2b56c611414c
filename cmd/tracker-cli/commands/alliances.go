package commands

import (
	"fmt"

	"electiontracker/internal/aggregate"

	"github.com/spf13/cobra"
)

var alliancesMinScore *float64

func init() {
	alliancesMinScore = alliancesCmd.Flags().Float64("min-score", 0.85, "The lowest similarity for a suggestion.")
	rootCmd.AddCommand(alliancesCmd)
}

// unmatchedParties lists the parties of a report that fall into Others and
// the closest configured member for each of them.
func unmatchedParties(rules aggregate.Rules, report aggregate.PartyReport, minScore float64) []aggregate.Suggestion {
	var out []aggregate.Suggestion
	for _, p := range report.Parties {
		s, ok := rules.SuggestAlliance(p.Name, minScore)
		if ok {
			out = append(out, s)
		}
	}
	return out
}

var alliancesCmd = &cobra.Command{
	Use:   "alliances [--min-score <0..1>]",
	Short: "Crawls once and lists parties that fall into Others but look like an alliance member.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		snapshot := e.crawler.Crawl(cmd.Context())
		report, err := aggregate.AggregateParties(snapshot)
		if err != nil {
			return err
		}

		suggestions := unmatchedParties(aggregate.NewRules(e.cfg.Alliances), report, *alliancesMinScore)
		if len(suggestions) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "every party is matched to an alliance or nothing is close enough")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), suggestionTable(suggestions).Render())
		return nil
	},
}
