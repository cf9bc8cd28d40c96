package validation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemaflow/schemaflow/internal/events"
	"github.com/schemaflow/schemaflow/internal/registry"
	"github.com/schemaflow/schemaflow/internal/rules"
	"github.com/schemaflow/schemaflow/internal/store"
	"github.com/schemaflow/schemaflow/pkg/logger"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

func testLogger() *logger.Logger {
	log := logger.New("validation-test", "test")
	log.SetQuiet(true)
	return log
}

// capturePublisher records published events for assertions
type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(ctx context.Context, event events.Event) {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
}

type panicRule struct{}

func (panicRule) ID() string                { return "panic-rule" }
func (panicRule) Severity() schema.Severity { return schema.SeverityLow }
func (panicRule) Check(old, new schema.ObjectType, rctx *rules.Context) *schema.BreakingChange {
	panic("boom")
}

func customerSchema(email schema.Property) schema.Schema {
	return schema.Schema{
		"Customer": {Name: "Customer", Properties: []schema.Property{email}},
	}
}

func newTestEngine(st store.Store, pub events.Publisher) *Engine {
	log := testLogger()
	reg := registry.New(registry.Deps{Store: st, Logger: log}, time.Minute)
	return NewEngine(st, reg, pub, log)
}

func TestValidateNoChanges(t *testing.T) {
	st := store.NewMemoryStore()
	s := customerSchema(schema.Property{Name: "email", Type: schema.TypeString})
	st.SeedBranch("main", s)
	st.SeedBranch("feature", s)

	engine := newTestEngine(st, events.NopPublisher{})
	result, err := engine.Validate(context.Background(), Request{
		SourceBranch: "feature",
		TargetBranch: "main",
	})
	require.NoError(t, err)

	assert.True(t, result.Valid)
	assert.Empty(t, result.BreakingChanges)
	assert.Len(t, result.RuleExecutions, 5)
	for _, exec := range result.RuleExecutions {
		assert.Equal(t, 1, exec.Checked)
		assert.Zero(t, exec.Findings)
		assert.Empty(t, exec.Err)
	}
}

func TestValidateUniqueConstraintAddition(t *testing.T) {
	st := store.NewMemoryStore()
	st.SeedBranch("main", customerSchema(schema.Property{Name: "email", Type: schema.TypeString}))
	st.SeedBranch("feature", customerSchema(schema.Property{Name: "email", Type: schema.TypeString, Unique: true}))

	engine := newTestEngine(st, events.NopPublisher{})
	result, err := engine.Validate(context.Background(), Request{
		SourceBranch: "feature",
		TargetBranch: "main",
	})
	require.NoError(t, err)

	assert.False(t, result.Valid)
	require.Len(t, result.BreakingChanges, 1)

	bc := result.BreakingChanges[0]
	assert.Equal(t, "unique-constraint-addition", bc.RuleID)
	assert.Equal(t, schema.SeverityMedium, bc.Severity)
	assert.Equal(t, "Customer", bc.ResourceID)
	assert.Equal(t, []string{"email"}, bc.Metadata["fields"])
	assert.Equal(t, []schema.MigrationStrategy{schema.StrategyDeduplicate}, bc.Strategies)
}

func TestValidateTypeRemovalAndAddition(t *testing.T) {
	st := store.NewMemoryStore()
	st.SeedBranch("main", schema.Schema{
		"Customer": {Name: "Customer", Properties: []schema.Property{{Name: "email", Type: schema.TypeString}}},
		"Order":    {Name: "Order", Properties: []schema.Property{{Name: "total", Type: schema.TypeDecimal}}},
	})
	st.SeedBranch("feature", schema.Schema{
		"Customer": {Name: "Customer", Properties: []schema.Property{{Name: "email", Type: schema.TypeString}}},
		"Invoice":  {Name: "Invoice", Properties: []schema.Property{{Name: "number", Type: schema.TypeString}}},
	})

	engine := newTestEngine(st, events.NopPublisher{})
	result, err := engine.Validate(context.Background(), Request{
		SourceBranch:    "feature",
		TargetBranch:    "main",
		IncludeWarnings: true,
	})
	require.NoError(t, err)

	assert.False(t, result.Valid)
	require.Len(t, result.BreakingChanges, 1)
	assert.Equal(t, "type-removal", result.BreakingChanges[0].RuleID)
	assert.Equal(t, schema.SeverityCritical, result.BreakingChanges[0].Severity)
	assert.Equal(t, "Order", result.BreakingChanges[0].ResourceID)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "type_added", result.Warnings[0].Code)
	assert.Equal(t, "Invoice", result.Warnings[0].ResourceID)
}

func TestValidateWarningsDoNotAffectValidity(t *testing.T) {
	st := store.NewMemoryStore()
	st.SeedBranch("main", schema.Schema{})
	st.SeedBranch("feature", schema.Schema{
		"Invoice": {Name: "Invoice", Properties: []schema.Property{{Name: "number", Type: schema.TypeString}}},
	})

	engine := newTestEngine(st, events.NopPublisher{})
	result, err := engine.Validate(context.Background(), Request{
		SourceBranch:    "feature",
		TargetBranch:    "main",
		IncludeWarnings: true,
	})
	require.NoError(t, err)

	assert.True(t, result.Valid)
	assert.NotEmpty(t, result.Warnings)
}

func TestValidateRulePanicIsIsolated(t *testing.T) {
	st := store.NewMemoryStore()
	st.SeedBranch("main", customerSchema(schema.Property{Name: "email", Type: schema.TypeString}))
	st.SeedBranch("feature", customerSchema(schema.Property{Name: "email", Type: schema.TypeString, Required: true}))

	engine := newTestEngine(st, events.NopPublisher{})
	result, err := engine.Validate(context.Background(), Request{
		SourceBranch: "feature",
		TargetBranch: "main",
		CustomRules:  []rules.Rule{panicRule{}},
	})
	require.NoError(t, err, "a panicking rule must not abort the validation")

	// The healthy rule still reported its finding
	require.Len(t, result.BreakingChanges, 1)
	assert.Equal(t, "required-addition", result.BreakingChanges[0].RuleID)

	require.Len(t, result.RuleExecutions, 6)
	panicked := result.RuleExecutions[5]
	assert.Equal(t, "panic-rule", panicked.RuleID)
	assert.Contains(t, panicked.Err, "rule panicked")
	assert.Zero(t, panicked.Findings)
}

func TestValidateStoreFailureIsFatal(t *testing.T) {
	st := store.NewMemoryStore()
	st.SeedBranch("main", schema.Schema{})
	st.FailReads = true

	engine := newTestEngine(st, events.NopPublisher{})
	_, err := engine.Validate(context.Background(), Request{
		SourceBranch: "feature",
		TargetBranch: "main",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestValidateImpactAnalysis(t *testing.T) {
	st := store.NewMemoryStore()
	st.SeedBranch("main", customerSchema(schema.Property{Name: "email", Type: schema.TypeString}))
	st.SeedBranch("feature", customerSchema(schema.Property{Name: "email", Type: schema.TypeString, Unique: true}))
	st.SetRecordCount("Customer", 500_000)

	engine := newTestEngine(st, events.NopPublisher{})
	result, err := engine.Validate(context.Background(), Request{
		SourceBranch:          "feature",
		TargetBranch:          "main",
		IncludeImpactAnalysis: true,
	})
	require.NoError(t, err)

	require.Len(t, result.BreakingChanges, 1)
	impact := result.BreakingChanges[0].Impact
	require.NotNil(t, impact)
	assert.Equal(t, int64(500_000), impact.TotalRecords)
	assert.Equal(t, int64(500_000), impact.AffectedRecords)
	assert.InDelta(t, 100.0, impact.ImpactPercent, 0.01)
	assert.Equal(t, 5, impact.ComplexityScore)
	assert.Positive(t, impact.EstimatedDowntime)
}

func TestValidatePublishesCompletionEvent(t *testing.T) {
	st := store.NewMemoryStore()
	s := customerSchema(schema.Property{Name: "email", Type: schema.TypeString})
	st.SeedBranch("main", s)
	st.SeedBranch("feature", s)

	pub := &capturePublisher{}
	engine := newTestEngine(st, pub)
	result, err := engine.Validate(context.Background(), Request{
		SourceBranch: "feature",
		TargetBranch: "main",
	})
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.TypeValidationCompleted, pub.events[0].Type)
	assert.Equal(t, result.ID, pub.events[0].Payload["validation_id"])
}
