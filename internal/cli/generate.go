package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/oracle"
	"github.com/driftwatch/driftwatch/internal/store"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	DBPath   string
	Artifact string
}

// generateResult is the JSON payload for the generate command.
type generateResult struct {
	Artifact    string `json:"artifact"`
	Status      string `json:"status"` // "written" | "up-to-date"
	Fingerprint string `json:"fingerprint"`
}

// NewGenerateCommand creates the generate command: the deliberate,
// offline oracle maintenance action.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate <config.yaml> <query.sql>",
		Short: "Regenerate the persisted oracle artifact",
		Long: `Execute the decision query against the seed dataset and persist the
result as the golden oracle artifact. Invoke deliberately when the canon
(query, configuration, or seed dataset) changes; an artifact whose
fingerprint still matches the current inputs is left untouched.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "path to the seed-loaded SQLite database (required)")
	cmd.Flags().StringVar(&opts.Artifact, "artifact", "", "oracle artifact path (default from config)")
	cmd.MarkFlagRequired("db")

	return cmd
}

func runGenerate(opts *GenerateOptions, configPath, queryPath string, cmd *cobra.Command) error {
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

	artifact := doc.OracleArtifactPath()
	if opts.Artifact != "" {
		artifact = opts.Artifact
	}

	ctx := cmd.Context()
	status, err := oracle.Generate(ctx, st, doc, string(queryText), artifact)
	if err != nil {
		return WrapExitError(ExitCommandError, "generate oracle", err)
	}
	fp, err := oracle.Fingerprint(ctx, st, doc, string(queryText))
	if err != nil {
		return WrapExitError(ExitCommandError, "fingerprint", err)
	}

	result := generateResult{Artifact: artifact, Status: "written", Fingerprint: fp}
	if status == oracle.UpToDate {
		result.Status = "up-to-date"
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(out, result)
	}
	fmt.Fprintf(out, "%s: %s (fingerprint %s)\n", result.Artifact, result.Status, result.Fingerprint)
	return nil
}
