package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"example.com/playdate/internal/api"
	"example.com/playdate/internal/catalog"
	"example.com/playdate/internal/matcher"
)

func newMatchCommand(c *cli) *cobra.Command {
	var (
		input string
		orgID string
	)
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Rank playdates for a selection read from a JSON file",
		Long: `Reads a matcher request ({"materials":[],"forms":[],"slots":[],"contexts":[],"energyLevels":[]})
and prints the ranked result. Use --input - to read from stdin.

Examples:
  matcherctl match --input selection.json
  matcherctl match --input selection.json --org org-demo`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var r io.Reader = cmd.InOrStdin()
			if input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			var req api.MatchRequest
			if err := json.NewDecoder(r).Decode(&req); err != nil {
				return fmt.Errorf("decode selection: %w", err)
			}
			sel, err := req.Selection()
			if err != nil {
				return err
			}

			store, closeStore, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			svc := matcher.NewService(catalog.NewAccessor(store), store, store, matcher.WithLogger(c.logger))
			result, err := svc.PerformMatching(cmd.Context(), sel, matcher.Session{OrgID: orgID})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "selection JSON file, or - for stdin")
	cmd.Flags().StringVar(&orgID, "org", "", "organization id used for entitlement lookups")
	return cmd
}
