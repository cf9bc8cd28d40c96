package migration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemaflow/schemaflow/pkg/logger"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

func testPlanner() *Planner {
	log := logger.New("migration-test", "test")
	log.SetQuiet(true)
	return NewPlanner(log)
}

func uniqueAddition() schema.BreakingChange {
	return schema.BreakingChange{
		RuleID:       "unique-constraint-addition",
		Severity:     schema.SeverityMedium,
		ResourceType: "object_type",
		ResourceID:   "Customer",
		Metadata:     map[string][]string{"fields": {"email"}},
	}
}

func typeChange() schema.BreakingChange {
	return schema.BreakingChange{
		RuleID:       "data-type-change",
		Severity:     schema.SeverityHigh,
		ResourceType: "object_type",
		ResourceID:   "Order",
		Metadata:     map[string][]string{"fields": {"total"}},
	}
}

func TestGenerateEmptyInput(t *testing.T) {
	_, err := testPlanner().Generate(context.Background(), nil, "main", Options{})
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestGenerateUnknownRule(t *testing.T) {
	changes := []schema.BreakingChange{{RuleID: "made-up-rule", ResourceID: "Customer"}}
	_, err := testPlanner().Generate(context.Background(), changes, "main", Options{})
	assert.ErrorIs(t, err, ErrUnknownChange)
}

func TestGenerateUniqueConstraintPlan(t *testing.T) {
	plan, err := testPlanner().Generate(context.Background(), []schema.BreakingChange{uniqueAddition()}, "main", Options{})
	require.NoError(t, err)

	assert.Equal(t, "main", plan.TargetBranch)
	assert.Equal(t, "draft", plan.Status)
	assert.NotEmpty(t, plan.ID)

	require.Len(t, plan.Steps, 2)
	assert.Equal(t, schema.StepDeduplicateScan, plan.Steps[0].Type)
	assert.Equal(t, schema.StepAddConstraint, plan.Steps[1].Type)
	assert.Equal(t, []string{plan.Steps[0].ID}, plan.Steps[1].DependsOn)
	assert.Empty(t, plan.Steps[0].DependsOn)

	assert.False(t, plan.RequiresDowntime)
	assert.Equal(t, []string{plan.Steps[0].ID, plan.Steps[1].ID}, plan.ExecutionOrder)
}

func TestGenerateTypeChangePlanRequiresDowntime(t *testing.T) {
	plan, err := testPlanner().Generate(context.Background(), []schema.BreakingChange{typeChange()}, "main", Options{})
	require.NoError(t, err)

	require.Len(t, plan.Steps, 3)
	assert.Equal(t, schema.StepCreateTempCollection, plan.Steps[0].Type)
	assert.Equal(t, schema.StepCopyTransform, plan.Steps[1].Type)
	assert.Equal(t, schema.StepAtomicSwitch, plan.Steps[2].Type)
	assert.True(t, plan.RequiresDowntime)
	assert.True(t, plan.Steps[2].RequiresDowntime)
}

func TestGenerateRollbackMirrorsSteps(t *testing.T) {
	changes := []schema.BreakingChange{typeChange(), uniqueAddition()}
	plan, err := testPlanner().Generate(context.Background(), changes, "main", Options{})
	require.NoError(t, err)

	require.Len(t, plan.Steps, 5)
	require.Len(t, plan.RollbackSteps, len(plan.Steps))

	// Rollback walks the forward steps in reverse with inverse step types
	last := len(plan.Steps) - 1
	for i, rb := range plan.RollbackSteps {
		forward := plan.Steps[last-i]
		assert.Equal(t, "rollback-"+forward.ID, rb.ID)
		assert.Equal(t, forward.ResourceID, rb.ResourceID)
	}
	assert.Equal(t, schema.StepDropConstraint, plan.RollbackSteps[0].Type)
	assert.Equal(t, schema.StepDropTempCollection, plan.RollbackSteps[4].Type)
}

func TestGenerateOptionsAndDefaults(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		plan, err := testPlanner().Generate(context.Background(), []schema.BreakingChange{uniqueAddition()}, "main", Options{})
		require.NoError(t, err)
		assert.Equal(t, DefaultBatchSize, plan.Steps[0].BatchSize)
		assert.Equal(t, DefaultParallelWorkers, plan.Steps[0].ParallelWorkers)
	})

	t.Run("explicit options win", func(t *testing.T) {
		plan, err := testPlanner().Generate(context.Background(), []schema.BreakingChange{uniqueAddition()}, "main", Options{
			BatchSize:       250,
			ParallelWorkers: 8,
		})
		require.NoError(t, err)
		assert.Equal(t, 250, plan.Steps[0].BatchSize)
		assert.Equal(t, 8, plan.Steps[0].ParallelWorkers)
	})
}

func TestGenerateUsesImpactEstimates(t *testing.T) {
	change := uniqueAddition()
	change.Impact = &schema.ImpactEstimate{
		TotalRecords:      1_000_000,
		AffectedRecords:   1_000_000,
		EstimatedDowntime: 20 * time.Minute,
	}

	plan, err := testPlanner().Generate(context.Background(), []schema.BreakingChange{change}, "main", Options{})
	require.NoError(t, err)

	assert.Equal(t, 20*time.Minute, plan.Steps[0].EstimatedDuration)
	assert.Equal(t, plan.Steps[0].EstimatedDuration+plan.Steps[1].EstimatedDuration, plan.EstimatedDuration)
}

func TestGenerateTotalDuration(t *testing.T) {
	plan, err := testPlanner().Generate(context.Background(), []schema.BreakingChange{typeChange()}, "main", Options{})
	require.NoError(t, err)

	var sum time.Duration
	for _, step := range plan.Steps {
		sum += step.EstimatedDuration
	}
	assert.Equal(t, sum, plan.EstimatedDuration)
}
