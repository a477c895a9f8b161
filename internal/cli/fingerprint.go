package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/oracle"
	"github.com/driftwatch/driftwatch/internal/store"
)

// FingerprintOptions holds flags for the fingerprint command.
type FingerprintOptions struct {
	*RootOptions
	DBPath string
}

// NewFingerprintCommand creates the fingerprint command: print the
// content hash of the current (query, configuration, seed) triple.
func NewFingerprintCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FingerprintOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fingerprint <config.yaml> <query.sql>",
		Short: "Print the fingerprint of the current canon",
		Long: `Print the content hash of the (query, configuration, seed dataset)
triple. The persisted oracle artifact carries this fingerprint in its
header; a difference means the artifact is stale.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFingerprint(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "path to the seed-loaded SQLite database (required)")
	cmd.MarkFlagRequired("db")

	return cmd
}

func runFingerprint(opts *FingerprintOptions, configPath, queryPath string, cmd *cobra.Command) error {
	doc, err := config.Load(configPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	queryText, err := os.ReadFile(queryPath)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("read query %s", queryPath), err)
	}

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "open database", err)
	}
	defer st.Close()

	fp, err := oracle.Fingerprint(cmd.Context(), st, doc, string(queryText))
	if err != nil {
		return WrapExitError(ExitCommandError, "fingerprint", err)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), map[string]string{"fingerprint": fp})
	}
	fmt.Fprintln(cmd.OutOrStdout(), fp)
	return nil
}
