package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/drift"
	"github.com/driftwatch/driftwatch/internal/scanner"
)

// ScanOptions holds flags for the scan command.
type ScanOptions struct {
	*RootOptions
}

// scanResult is the JSON payload for the scan command.
type scanResult struct {
	BannedValues int             `json:"banned_values"`
	Occurrences  int             `json:"occurrences"`
	Findings     []drift.Finding `json:"findings"`
}

// NewScanCommand creates the scan command: the literal-ban check alone,
// with no database. Useful as a fast pre-commit hook.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scan <config.yaml> <query.sql>",
		Short: "Scan query text for hardcoded decision values",
		Long: `Run the literal-ban check alone: extract banned values from the
configuration, scan the query text, and report any drift findings.
No database is touched, so this is suitable as a pre-commit hook.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(opts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runScan(opts *ScanOptions, configPath, queryPath string, cmd *cobra.Command) error {
	doc, err := config.Load(configPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	queryText, err := os.ReadFile(queryPath)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("read query %s", queryPath), err)
	}

	banned, err := doc.ExtractBanned()
	if err != nil {
		return WrapExitError(ExitCommandError, "extract banned values", err)
	}
	occ, err := scanner.Scan(string(queryText))
	if err != nil {
		return WrapExitError(ExitCommandError, "scan query", err)
	}
	policy, err := drift.PolicyFromConfig(doc)
	if err != nil {
		return WrapExitError(ExitCommandError, "suppression policy", err)
	}

	findings := drift.Detect(banned, occ, string(queryText), policy)

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		result := scanResult{BannedValues: len(banned), Occurrences: len(occ), Findings: findings}
		if result.Findings == nil {
			result.Findings = []drift.Finding{}
		}
		if err := writeJSON(out, result); err != nil {
			return WrapExitError(ExitCommandError, "encode result", err)
		}
	} else {
		if len(findings) == 0 {
			fmt.Fprintf(out, "clean: %d banned value(s), %d literal occurrence(s), no drift\n",
				len(banned), len(occ))
		} else {
			for _, f := range findings {
				fmt.Fprintf(out, "%s: %s\n", queryPath, f.String())
			}
		}
	}

	if len(findings) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d drift finding(s)", len(findings)))
	}
	return nil
}
