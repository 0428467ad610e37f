// Command scorecardctl renders scorecards described in YAML plan files.
//
//	scorecardctl report -f plan.yaml
//	scorecardctl mix -f plan.yaml
//	scorecardctl validate -f plan.yaml --strict
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"scorecard/internal/cli"
	"scorecard/internal/config"
	"scorecard/internal/report"
	"scorecard/internal/scorecard"
)

func main() {
	cli.LoadEnvFile()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var planFile string
	var epsilon float64

	root := &cobra.Command{
		Use:          "scorecardctl",
		Short:        "Render marketing scorecards from YAML plans",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&planFile, "file", "f", "", "path to the YAML plan")
	root.PersistentFlags().Float64Var(&epsilon, "epsilon", config.Load().BalanceEpsilon, "balance tolerance in percentage points")
	_ = root.MarkPersistentFlagRequired("file")

	load := func() (*scorecard.Scorecard, error) {
		p, err := scorecard.LoadPlanFile(planFile)
		if err != nil {
			return nil, err
		}
		return p.Build("plan", scorecard.WithEpsilon(epsilon))
	}

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Print the full text report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := load()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), report.Render(sc.Snapshot()))
			return nil
		},
	}

	var initiatives bool
	mixCmd := &cobra.Command{
		Use:   "mix",
		Short: "Print the marketing mix ledger with its total, balance and chart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := load()
			if err != nil {
				return err
			}
			snap := sc.Snapshot()
			fmt.Fprint(cmd.OutOrStdout(), report.RenderLedger("Marketing Mix", snap.Mix))
			if initiatives {
				fmt.Fprint(cmd.OutOrStdout(), report.RenderLedger("Initiative Budget", snap.Initiatives))
			}
			return nil
		},
	}
	mixCmd.Flags().BoolVar(&initiatives, "initiatives", false, "also print the initiative ledger")

	var strict bool
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that a plan loads and report whether its mix is balanced",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := load()
			if err != nil {
				return err
			}
			snap := sc.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d channels, %d benchmarks, %d initiatives, mix %s\n",
				snap.Name, len(snap.Mix.Entries), len(snap.Benchmarks), snap.InitiativeCount(),
				report.FormatPercent(snap.Mix.TotalAllocated))
			if strict && !snap.Mix.Balanced {
				return fmt.Errorf("marketing mix is not balanced: %s allocated",
					report.FormatPercent(snap.Mix.TotalAllocated))
			}
			return nil
		},
	}
	validateCmd.Flags().BoolVar(&strict, "strict", false, "fail when the marketing mix does not total 100%")

	root.AddCommand(reportCmd, mixCmd, validateCmd)
	return root
}
