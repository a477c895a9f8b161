package guard

import (
	"context"
	"strings"

	"github.com/driftwatch/driftwatch/internal/drift"
	"github.com/driftwatch/driftwatch/internal/oracle"
	"github.com/driftwatch/driftwatch/internal/scanner"
	"github.com/driftwatch/driftwatch/internal/store"
)

// DefaultSequence is the fixed guard order for one run. New guards slot
// into this list; the runner's aggregation logic never changes.
func DefaultSequence() []Guard {
	return []Guard{
		SchemaGuard{},
		SyntaxGuard{},
		SensitivityGuard{},
		LiteralBanGuard{},
		DeterminismGuard{},
		OracleGuard{},
		OrderingGuard{},
		CanaryGuard{},
	}
}

// SchemaGuard verifies every configured seed table exists in the
// database. A missing table means the fixture was never loaded or the
// schema DDL drifted from the canon.
type SchemaGuard struct{}

func (SchemaGuard) Name() string           { return "schema" }
func (SchemaGuard) RequiresDatabase() bool { return true }

func (g SchemaGuard) Run(ctx context.Context, env *Env) Verdict {
	var missing []string
	for _, table := range env.Config.SeedTables() {
		ok, err := env.Store.TableExists(ctx, table)
		if err != nil {
			return failErr(g.Name(), err)
		}
		if !ok {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return fail(g.Name(), "seed table(s) absent: %s", strings.Join(missing, ", "))
	}
	return pass(g.Name())
}

// SyntaxGuard prepares the decision query without executing it.
type SyntaxGuard struct{}

func (SyntaxGuard) Name() string           { return "syntax" }
func (SyntaxGuard) RequiresDatabase() bool { return true }

func (g SyntaxGuard) Run(ctx context.Context, env *Env) Verdict {
	if err := env.Store.CheckSyntax(ctx, env.QueryText); err != nil {
		return failErr(g.Name(), err)
	}
	return pass(g.Name())
}

// SensitivityGuard is the semantic anti-drift check: it executes the
// query once per referenced decision parameter with that parameter
// perturbed, and fails for any parameter whose perturbation leaves the
// output unchanged. Configuration that cannot change behavior is
// configuration that has drifted into the query text.
type SensitivityGuard struct{}

func (SensitivityGuard) Name() string           { return "param-sensitivity" }
func (SensitivityGuard) RequiresDatabase() bool { return true }

func (g SensitivityGuard) Run(ctx context.Context, env *Env) Verdict {
	occ, err := scanner.Scan(env.QueryText)
	if err != nil {
		return failErr(g.Name(), err)
	}

	params := env.Config.BindParams()
	referenced := referencedParams(occ, params)
	if len(referenced) == 0 {
		return fail(g.Name(), "query binds no decision parameters; decisions cannot flow from configuration")
	}

	base, err := oracle.ExecuteDecision(ctx, env.Store, env.Config, env.QueryText)
	if err != nil {
		return failErr(g.Name(), err)
	}
	baseFP, err := base.Fingerprint()
	if err != nil {
		return failErr(g.Name(), err)
	}

	var inert []string
	for _, name := range referenced {
		perturbed := make(map[string]any, len(params))
		for k, v := range params {
			perturbed[k] = v
		}
		perturbed[name] = perturb(params[name])

		rs, err := env.Store.QueryAll(ctx, env.QueryText, store.NamedArgs(perturbed, referenced)...)
		if err != nil {
			return failErr(g.Name(), err)
		}
		fp, err := rs.Fingerprint()
		if err != nil {
			return failErr(g.Name(), err)
		}
		if fp == baseFP {
			inert = append(inert, name)
		}
	}
	if len(inert) > 0 {
		return fail(g.Name(), "perturbing parameter(s) %s does not change the decision output on the seed dataset",
			strings.Join(inert, ", "))
	}
	return pass(g.Name())
}

// perturb moves a parameter value far enough to flip any comparison
// against the seed dataset's value range.
func perturb(v any) any {
	switch val := v.(type) {
	case int64:
		return val + 1_000_000_000
	case float64:
		return val + 1e9
	case bool:
		return !val
	case string:
		return val + "\x00perturbed"
	default:
		return v
	}
}

func referencedParams(occ []scanner.Occurrence, params map[string]any) []string {
	seen := make(map[string]bool)
	var names []string
	for _, o := range occ {
		if o.Context != scanner.CtxParameter || o.Value == "?" {
			continue
		}
		if _, configured := params[o.Value]; !configured || seen[o.Value] {
			continue
		}
		seen[o.Value] = true
		names = append(names, o.Value)
	}
	return names
}

// LiteralBanGuard is the static second line of defense: it intersects
// banned configuration values against scanned query literals and never
// touches the database.
type LiteralBanGuard struct{}

func (LiteralBanGuard) Name() string           { return "literal-ban" }
func (LiteralBanGuard) RequiresDatabase() bool { return false }

func (g LiteralBanGuard) Run(ctx context.Context, env *Env) Verdict {
	banned, err := env.Config.ExtractBanned()
	if err != nil {
		return failErr(g.Name(), err)
	}
	occ, err := scanner.Scan(env.QueryText)
	if err != nil {
		return failErr(g.Name(), err)
	}
	policy, err := drift.PolicyFromConfig(env.Config)
	if err != nil {
		return failErr(g.Name(), err)
	}

	findings := drift.Detect(banned, occ, env.QueryText, policy)
	if len(findings) == 0 {
		return pass(g.Name())
	}
	return failErr(g.Name(), &drift.FindingError{Findings: findings})
}

// DeterminismGuard executes the decision query twice and requires
// identical output, including row order.
type DeterminismGuard struct{}

func (DeterminismGuard) Name() string           { return "determinism" }
func (DeterminismGuard) RequiresDatabase() bool { return true }

func (g DeterminismGuard) Run(ctx context.Context, env *Env) Verdict {
	first, err := oracle.ExecuteDecision(ctx, env.Store, env.Config, env.QueryText)
	if err != nil {
		return failErr(g.Name(), err)
	}
	second, err := oracle.ExecuteDecision(ctx, env.Store, env.Config, env.QueryText)
	if err != nil {
		return failErr(g.Name(), err)
	}

	fp1, err := first.Fingerprint()
	if err != nil {
		return failErr(g.Name(), err)
	}
	fp2, err := second.Fingerprint()
	if err != nil {
		return failErr(g.Name(), err)
	}
	if fp1 != fp2 {
		return fail(g.Name(), "two executions of the decision query produced different output (%s vs %s)",
			fp1[:12], fp2[:12])
	}
	return pass(g.Name())
}

// OracleGuard compares live execution against the persisted golden
// artifact.
type OracleGuard struct{}

func (OracleGuard) Name() string           { return "oracle" }
func (OracleGuard) RequiresDatabase() bool { return true }

func (g OracleGuard) Run(ctx context.Context, env *Env) Verdict {
	err := oracle.Compare(ctx, env.Store, env.Config, env.QueryText, env.ArtifactPath, env.Config.MaxDiffRows())
	if err != nil {
		return failErr(g.Name(), err)
	}
	return pass(g.Name())
}

// OrderingGuard enforces that result order is contractual: the query's
// outermost statement must declare an explicit ORDER BY.
type OrderingGuard struct{}

func (OrderingGuard) Name() string           { return "writer-ordering" }
func (OrderingGuard) RequiresDatabase() bool { return false }

func (g OrderingGuard) Run(ctx context.Context, env *Env) Verdict {
	ok, err := scanner.HasTopLevelOrderBy(env.QueryText)
	if err != nil {
		return failErr(g.Name(), err)
	}
	if !ok {
		return fail(g.Name(), "decision query has no top-level ORDER BY; result order would be incidental, not contractual")
	}
	return pass(g.Name())
}

// CanaryGuard proves the database accepts and reflects a known mutation,
// in an isolated namespace, with guaranteed cleanup.
type CanaryGuard struct{}

func (CanaryGuard) Name() string           { return "canary" }
func (CanaryGuard) RequiresDatabase() bool { return true }

func (g CanaryGuard) Run(ctx context.Context, env *Env) Verdict {
	if err := env.Store.Canary(ctx); err != nil {
		return failErr(g.Name(), err)
	}
	return pass(g.Name())
}
