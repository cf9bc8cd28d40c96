// Package migration turns breaking changes into ordered, reversible
// migration plans. The planner only describes work; it never executes it.
package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/schemaflow/schemaflow/pkg/logger"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

var (
	// ErrEmptyInput rejects plan generation with nothing to migrate
	ErrEmptyInput = errors.New("cannot generate a migration plan from zero breaking changes")

	// ErrUnknownChange rejects changes no step template covers; callers
	// fall back to manual migration.
	ErrUnknownChange = errors.New("no migration template for change")
)

// Default caller options
const (
	DefaultBatchSize       = 1000
	DefaultParallelWorkers = 4
)

// Options tune step metadata. They never change what the plan does.
type Options struct {
	BatchSize       int
	ParallelWorkers int
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.ParallelWorkers <= 0 {
		o.ParallelWorkers = DefaultParallelWorkers
	}
	return o
}

// Planner generates migration plans from breaking changes
type Planner struct {
	logger *logger.Logger
}

// NewPlanner creates a migration planner
func NewPlanner(log *logger.Logger) *Planner {
	return &Planner{logger: log}
}

// template describes the step sequence for one rule's findings
type template struct {
	steps            []schema.MigrationStepType
	requiresDowntime bool
}

// templates maps rule ids to their step sequences. A rule id missing here
// has no automated migration path.
var templates = map[string]template{
	"data-type-change": {
		steps:            []schema.MigrationStepType{schema.StepCreateTempCollection, schema.StepCopyTransform, schema.StepAtomicSwitch},
		requiresDowntime: true,
	},
	"unique-constraint-addition": {
		steps: []schema.MigrationStepType{schema.StepDeduplicateScan, schema.StepAddConstraint},
	},
	"required-addition": {
		steps: []schema.MigrationStepType{schema.StepBackfillDefault, schema.StepAddConstraint},
	},
	"index-removal": {
		steps: []schema.MigrationStepType{schema.StepDropIndex},
	},
	"property-removal": {
		steps:            []schema.MigrationStepType{schema.StepCreateTempCollection, schema.StepCopyTransform, schema.StepAtomicSwitch},
		requiresDowntime: true,
	},
	"type-removal": {
		steps:            []schema.MigrationStepType{schema.StepCreateTempCollection, schema.StepCopyTransform, schema.StepAtomicSwitch},
		requiresDowntime: true,
	},
}

// rollbackTypes maps each step type to the type that reverses it
var rollbackTypes = map[schema.MigrationStepType]schema.MigrationStepType{
	schema.StepCreateTempCollection: schema.StepDropTempCollection,
	schema.StepDropTempCollection:   schema.StepCreateTempCollection,
	schema.StepCopyTransform:        schema.StepCopyTransform,
	schema.StepBackfillDefault:      schema.StepCopyTransform,
	schema.StepDeduplicateScan:      schema.StepCopyTransform,
	schema.StepAddConstraint:        schema.StepDropConstraint,
	schema.StepDropConstraint:       schema.StepAddConstraint,
	schema.StepAddIndex:             schema.StepDropIndex,
	schema.StepDropIndex:            schema.StepAddIndex,
	schema.StepAtomicSwitch:         schema.StepAtomicSwitch,
}

// Generate produces a migration plan for the given breaking changes. Steps
// within one change depend on their predecessor; changes are planned in
// input order. Rollback steps mirror the execution order reversed and have
// the same length as the forward steps.
func (p *Planner) Generate(ctx context.Context, changes []schema.BreakingChange, targetBranch string, opts Options) (*schema.MigrationPlan, error) {
	if len(changes) == 0 {
		return nil, ErrEmptyInput
	}
	opts = opts.withDefaults()

	p.logger.Infof("Generating migration plan for %d breaking changes on %s", len(changes), targetBranch)

	plan := &schema.MigrationPlan{
		ID:           uuid.NewString(),
		TargetBranch: targetBranch,
		Status:       "draft",
	}

	stepNum := 0
	for _, change := range changes {
		tmpl, ok := templates[change.RuleID]
		if !ok {
			return nil, fmt.Errorf("%w: rule %s on %s", ErrUnknownChange, change.RuleID, change.ResourceID)
		}

		var prevID string
		for _, stepType := range tmpl.steps {
			stepNum++
			step := schema.MigrationStep{
				ID:                fmt.Sprintf("step-%03d", stepNum),
				Type:              stepType,
				ResourceID:        change.ResourceID,
				Description:       stepDescription(stepType, change),
				BatchSize:         opts.BatchSize,
				ParallelWorkers:   opts.ParallelWorkers,
				EstimatedDuration: stepDuration(stepType, change),
				RequiresDowntime:  stepType == schema.StepAtomicSwitch,
			}
			if prevID != "" {
				step.DependsOn = []string{prevID}
			}
			prevID = step.ID

			plan.Steps = append(plan.Steps, step)
			plan.ExecutionOrder = append(plan.ExecutionOrder, step.ID)
			plan.EstimatedDuration += step.EstimatedDuration
			if step.RequiresDowntime || tmpl.requiresDowntime {
				plan.RequiresDowntime = true
			}
		}
	}

	// Rollback mirrors the forward steps in reverse execution order
	for i := len(plan.Steps) - 1; i >= 0; i-- {
		forward := plan.Steps[i]
		plan.RollbackSteps = append(plan.RollbackSteps, schema.MigrationStep{
			ID:                "rollback-" + forward.ID,
			Type:              rollbackTypes[forward.Type],
			ResourceID:        forward.ResourceID,
			Description:       "Rollback of " + forward.Description,
			BatchSize:         forward.BatchSize,
			ParallelWorkers:   forward.ParallelWorkers,
			EstimatedDuration: forward.EstimatedDuration,
			RequiresDowntime:  forward.RequiresDowntime,
		})
	}

	return plan, nil
}

func stepDescription(t schema.MigrationStepType, change schema.BreakingChange) string {
	switch t {
	case schema.StepCreateTempCollection:
		return fmt.Sprintf("Create temporary collection for %s", change.ResourceID)
	case schema.StepCopyTransform:
		return fmt.Sprintf("Copy %s records applying the schema transformation", change.ResourceID)
	case schema.StepBackfillDefault:
		return fmt.Sprintf("Backfill default values on %s", change.ResourceID)
	case schema.StepDeduplicateScan:
		return fmt.Sprintf("Scan %s for duplicate values before applying uniqueness", change.ResourceID)
	case schema.StepAddConstraint:
		return fmt.Sprintf("Apply new constraint on %s", change.ResourceID)
	case schema.StepDropIndex:
		return fmt.Sprintf("Drop index on %s", change.ResourceID)
	case schema.StepAtomicSwitch:
		return fmt.Sprintf("Atomically switch %s to the migrated collection", change.ResourceID)
	default:
		return fmt.Sprintf("%s on %s", t, change.ResourceID)
	}
}

// stepDuration uses the change's impact estimate when present, otherwise a
// conservative per-step default.
func stepDuration(t schema.MigrationStepType, change schema.BreakingChange) time.Duration {
	if change.Impact != nil && change.Impact.EstimatedDowntime > 0 {
		switch t {
		case schema.StepCopyTransform, schema.StepBackfillDefault, schema.StepDeduplicateScan:
			return change.Impact.EstimatedDowntime
		}
	}
	switch t {
	case schema.StepCopyTransform, schema.StepBackfillDefault, schema.StepDeduplicateScan:
		return 5 * time.Minute
	case schema.StepAtomicSwitch:
		return 30 * time.Second
	default:
		return time.Minute
	}
}
