// Package merge implements three-way schema merging between branches with
// deterministic conflict classification and safe-direction auto-resolution.
package merge

import (
	"context"
	"fmt"
	"time"

	"github.com/schemaflow/schemaflow/internal/repo"
	"github.com/schemaflow/schemaflow/internal/store"
	"github.com/schemaflow/schemaflow/pkg/logger"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

// mergeState tracks the per-merge lifecycle. States live only for the
// duration of one call and are logged for observability, never persisted.
type mergeState string

const (
	stateRequested     mergeState = "REQUESTED"
	stateValidating    mergeState = "VALIDATING"
	stateMerging       mergeState = "MERGING"
	stateConflicted    mergeState = "CONFLICTED"
	stateAutoResolving mergeState = "AUTO_RESOLVING"
	stateSuccess       mergeState = "SUCCESS"
	stateFailed        mergeState = "FAILED"
)

// Request describes one merge attempt. The merge base is supplied by the
// caller; the engine does not compute merge bases.
type Request struct {
	SourceBranch string
	TargetBranch string
	BaseBranch   string
	AutoResolve  bool
	DryRun       bool
}

// Engine performs three-way merges over branch schemas. When a repo service
// is wired and the merge is not a dry run, a successful merge is committed
// to the target branch.
type Engine struct {
	store  store.Store
	repo   *repo.Service
	logger *logger.Logger
}

// NewEngine creates a merge engine. repoSvc may be nil, in which case every
// merge behaves as a dry run.
func NewEngine(st store.Store, repoSvc *repo.Service, log *logger.Logger) *Engine {
	return &Engine{
		store:  st,
		repo:   repoSvc,
		logger: log,
	}
}

func (e *Engine) transition(req Request, from, to mergeState) mergeState {
	e.logger.Debugf("Merge %s -> %s: %s -> %s", req.SourceBranch, req.TargetBranch, from, to)
	return to
}

// Merge runs a three-way merge of source into target against the supplied
// base. Structural conflicts are returned as data; only store failures
// surface as errors. A structurally clean merge does not imply zero breaking
// changes - callers gate on the validation engine separately or use
// EvaluateMerge.
func (e *Engine) Merge(ctx context.Context, req Request) (*schema.MergeResult, error) {
	start := time.Now()
	state := stateRequested
	e.logger.Infof("Merging %s into %s (base %s, auto_resolve=%t, dry_run=%t)",
		req.SourceBranch, req.TargetBranch, req.BaseBranch, req.AutoResolve, req.DryRun)

	state = e.transition(req, state, stateValidating)

	baseSchema, err := e.store.GetSchema(ctx, req.BaseBranch)
	if err != nil {
		e.transition(req, state, stateFailed)
		return nil, fmt.Errorf("failed to fetch base schema for %s: %w", req.BaseBranch, err)
	}
	sourceSchema, err := e.store.GetSchema(ctx, req.SourceBranch)
	if err != nil {
		e.transition(req, state, stateFailed)
		return nil, fmt.Errorf("failed to fetch source schema for %s: %w", req.SourceBranch, err)
	}
	targetSchema, err := e.store.GetSchema(ctx, req.TargetBranch)
	if err != nil {
		e.transition(req, state, stateFailed)
		return nil, fmt.Errorf("failed to fetch target schema for %s: %w", req.TargetBranch, err)
	}

	state = e.transition(req, state, stateMerging)

	outcome := mergeSchemas(baseSchema, sourceSchema, targetSchema, req.AutoResolve)

	unresolved := 0
	for _, c := range outcome.conflicts {
		if !c.Resolved {
			unresolved++
		}
	}

	result := &schema.MergeResult{
		Conflicts:     outcome.conflicts,
		Merged:        outcome.merged,
		ResolutionLog: outcome.log,
	}

	if len(outcome.conflicts) > 0 {
		state = e.transition(req, state, stateConflicted)
		if req.AutoResolve && outcome.resolvedCount > 0 {
			state = e.transition(req, state, stateAutoResolving)
		}
	}

	if unresolved == 0 {
		result.Status = schema.MergeSuccess
		result.AutoResolved = outcome.resolvedCount > 0
		state = e.transition(req, state, stateSuccess)
	} else {
		result.Status = schema.MergeConflict
		state = e.transition(req, state, stateFailed)
	}

	if result.Status == schema.MergeSuccess && !req.DryRun && e.repo != nil {
		message := fmt.Sprintf("Merge %s into %s", req.SourceBranch, req.TargetBranch)
		if _, err := e.repo.CreateCommit(ctx, req.TargetBranch, "merge-engine", message, result.Merged); err != nil {
			return nil, fmt.Errorf("merge computed but commit to %s failed: %w", req.TargetBranch, err)
		}
	}

	result.Duration = time.Since(start)
	e.logger.Infof("Merge %s into %s finished: status=%s, %d conflicts (%d unresolved)",
		req.SourceBranch, req.TargetBranch, result.Status, len(result.Conflicts), unresolved)
	return result, nil
}
