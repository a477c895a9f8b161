package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/guard"
	"github.com/driftwatch/driftwatch/internal/store"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	DBPath   string
	Artifact string
}

// NewCheckCommand creates the check command: one full guard run.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <config.yaml> <query.sql>",
		Short: "Run every guard and report a single verdict",
		Long: `Run the fixed guard sequence against the configured database and the
persisted oracle artifact. All guards execute even after a failure, so
one invocation surfaces every independent problem.

Exit codes:
  0 - every guard passed
  1 - at least one guard failed or could not run
  2 - command error (bad paths, malformed config, etc.)

Examples:
  driftwatch check canon.yaml decision.sql --db seed.sqlite
  driftwatch check canon.yaml decision.sql --db seed.sqlite --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "path to the seed-loaded SQLite database (required)")
	cmd.Flags().StringVar(&opts.Artifact, "artifact", "", "oracle artifact path (default from config)")
	cmd.MarkFlagRequired("db")

	return cmd
}

func runCheck(opts *CheckOptions, configPath, queryPath string, cmd *cobra.Command) error {
	env, cleanup, err := buildEnv(opts.RootOptions, configPath, queryPath, opts.DBPath, opts.Artifact)
	if err != nil {
		return err
	}
	defer cleanup()

	report := guard.NewRunner().Run(cmd.Context(), env)

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		if err := writeJSON(out, report); err != nil {
			return WrapExitError(ExitCommandError, "encode report", err)
		}
	} else {
		renderReport(out, report)
	}

	if !report.Pass() {
		return NewExitError(ExitFailure, "verification failed")
	}
	return nil
}

// buildEnv loads the run inputs and opens the database. A connection
// failure is not a command error: the run proceeds with no store so
// database-independent guards still execute and the report enumerates
// the rest as not-run.
func buildEnv(rootOpts *RootOptions, configPath, queryPath, dbPath, artifactOverride string) (*guard.Env, func(), error) {
	doc, err := config.Load(configPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "load config", err)
	}

	queryText, err := os.ReadFile(queryPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, fmt.Sprintf("read query %s", queryPath), err)
	}

	artifact := doc.OracleArtifactPath()
	if artifactOverride != "" {
		artifact = artifactOverride
	}

	logger := newLogger(rootOpts)
	env := &guard.Env{
		Config:       doc,
		QueryText:    string(queryText),
		ArtifactPath: artifact,
		Logger:       logger,
	}

	cleanup := func() {}
	st, err := store.Open(dbPath)
	if err != nil {
		if !store.IsConnectionError(err) {
			return nil, nil, WrapExitError(ExitCommandError, "open database", err)
		}
		logger.Error("database unreachable, database guards will not run", "error", err)
	} else {
		env.Store = st
		cleanup = func() { st.Close() }
	}
	return env, cleanup, nil
}
