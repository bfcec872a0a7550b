package commands

import (
	"fmt"
	"os"
	"sort"

	"github.com/mohamedkhairy/fire-scanner/internal/scoring"
	"github.com/spf13/cobra"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Scoring rules tools",
	}

	check := &cobra.Command{
		Use:   "check PATH",
		Short: "Validate a scoring rules file",
		Long: `Parse a scoring rules file strictly, rejecting unknown keys, and
print the thresholds and badges the scoring engine would use.

The service itself parses permissively and falls back to defaults, so
run this before deploying a rules change.

Example:
  scanctl rules check scoring_rules.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: runRulesCheck,
	}

	cmd.AddCommand(check)
	return cmd
}

func runRulesCheck(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read rules: %w", err)
	}

	rules, err := scoring.ParseRulesStrict(raw)
	if err != nil {
		return err
	}

	engine := scoring.NewEngine(scoring.StaticRules(rules))
	elite, high := engine.Thresholds()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: OK\n", args[0])
	if v := engine.Version(); v != "" {
		fmt.Fprintf(out, "version:   %s\n", v)
	}
	fmt.Fprintf(out, "momentum:  %g\n", rules.Weight(scoring.WeightMomentum, scoring.DefaultMomentumWeight))
	fmt.Fprintf(out, "liquidity: %g\n", rules.Weight(scoring.WeightLiquidity, scoring.DefaultLiquidityWeight))
	fmt.Fprintf(out, "elite:     > %g\n", elite)
	fmt.Fprintf(out, "high:      > %g\n", high)

	for _, name := range engine.BadgeNames() {
		badge := rules.Badges[name]
		line := fmt.Sprintf("badge %s: score >= %g", name, badge.MinScore)
		if badge.Freshness != "" {
			line += ", freshness " + badge.Freshness
		}
		fmt.Fprintln(out, line)
	}

	keys := make([]string, 0, len(rules.Thresholds))
	for k := range rules.Thresholds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "threshold %s = %g\n", k, rules.Thresholds[k])
	}
	return nil
}
