package merge

import (
	"context"
	"fmt"

	"github.com/schemaflow/schemaflow/internal/validation"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

// Evaluation combines the two independent merge gates: structural conflicts
// from the three-way merge and semantic breaking changes from validation.
// A structurally clean merge can still carry breaking changes, so callers
// that commit on Merge alone risk breaking consumers.
type Evaluation struct {
	Merge      *schema.MergeResult
	Validation *schema.ValidationResult
}

// Clean reports whether both gates passed
func (e *Evaluation) Clean() bool {
	return e.Merge.Status == schema.MergeSuccess && e.Validation.Valid
}

// Evaluator runs both merge gates behind one call
type Evaluator struct {
	merge     *Engine
	validator *validation.Engine
}

// NewEvaluator creates an evaluator over the two engines
func NewEvaluator(mergeEngine *Engine, validator *validation.Engine) *Evaluator {
	return &Evaluator{merge: mergeEngine, validator: validator}
}

// EvaluateMerge runs the three-way merge as a dry run plus a validation of
// source against target, returning both results together. Nothing is
// committed regardless of the request's DryRun flag.
func (e *Evaluator) EvaluateMerge(ctx context.Context, req Request) (*Evaluation, error) {
	dryReq := req
	dryReq.DryRun = true

	mergeResult, err := e.merge.Merge(ctx, dryReq)
	if err != nil {
		return nil, fmt.Errorf("merge evaluation failed: %w", err)
	}

	validationResult, err := e.validator.Validate(ctx, validation.Request{
		SourceBranch:    req.SourceBranch,
		TargetBranch:    req.TargetBranch,
		IncludeWarnings: true,
	})
	if err != nil {
		return nil, fmt.Errorf("validation during merge evaluation failed: %w", err)
	}

	return &Evaluation{
		Merge:      mergeResult,
		Validation: validationResult,
	}, nil
}
