package policy

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kubegov/manifestgate/internal/manifest"
	"github.com/kubegov/manifestgate/internal/store"
)

// Engine dispatches manifests to the applicable validators and aggregates
// their violations into a decision. It is stateless per call; the config
// snapshot is held behind an atomic pointer so a reload never disturbs
// in-flight evaluations.
type Engine struct {
	cfg atomic.Pointer[Config]
}

// NewEngine creates an engine over a compiled config snapshot.
func NewEngine(cfg *Config) *Engine {
	e := &Engine{}
	e.cfg.Store(cfg)
	return e
}

// Reload atomically swaps in a new config snapshot. Evaluations already in
// flight keep the snapshot they started with.
func (e *Engine) Reload(cfg *Config) {
	e.cfg.Store(cfg)
}

// Config returns the current snapshot.
func (e *Engine) Config() *Config {
	return e.cfg.Load()
}

// Evaluate checks one manifest against the current policy snapshot. Naming
// violations and ExternalName violations are independent and both reported.
// A panic from malformed input surfaces as a CONFIG_OR_INPUT_ERROR
// violation instead of aborting the caller's batch.
func (e *Engine) Evaluate(m *manifest.Manifest, now time.Time) (decision store.Decision) {
	cfg := e.cfg.Load()

	if m == nil {
		rep := newReporter(cfg.ExternalName.Owners, nil)
		return store.Decision{
			Allowed:    false,
			Violations: []store.Violation{rep.report(store.CodeInputError, "no manifest provided")},
		}
	}

	defer func() {
		if r := recover(); r != nil {
			rep := newReporter(cfg.ExternalName.Owners, m.Metadata.Labels)
			decision = store.Decision{
				Allowed: false,
				Violations: []store.Violation{rep.report(store.CodeInputError,
					fmt.Sprintf("evaluating %s %q: %v", m.Kind, m.Metadata.Name, r))},
			}
		}
	}()

	var violations []store.Violation
	violations = append(violations, ValidateNaming(m.Kind, m.Metadata, cfg)...)
	if m.IsExternalNameService() {
		violations = append(violations, EvaluateExternalName(m, cfg, now)...)
	}

	return store.Decision{
		Allowed:    len(violations) == 0,
		Violations: violations,
	}
}

// Result evaluates a manifest and wraps the decision with its identity,
// ready for batch reporting.
func (e *Engine) Result(m *manifest.Manifest, source string, now time.Time) store.Result {
	return store.Result{
		Kind:      m.Kind,
		Namespace: m.Metadata.Namespace,
		Name:      m.Metadata.Name,
		Source:    source,
		Decision:  e.Evaluate(m, now),
	}
}
