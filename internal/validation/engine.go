// Package validation runs the breaking-change rule catalog over a branch
// pair and aggregates the findings into a single result.
package validation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/schemaflow/schemaflow/internal/events"
	"github.com/schemaflow/schemaflow/internal/registry"
	"github.com/schemaflow/schemaflow/internal/rules"
	"github.com/schemaflow/schemaflow/internal/store"
	"github.com/schemaflow/schemaflow/pkg/logger"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

// DefaultWorkers bounds concurrent rule execution across object types
const DefaultWorkers = 4

// Request describes one validation run over a branch pair
type Request struct {
	SourceBranch          string
	TargetBranch          string
	IncludeWarnings       bool
	IncludeImpactAnalysis bool
	CustomRules           []rules.Rule
	Scope                 string
	Options               map[string]string
}

// Engine validates a source branch's schema against a target branch's
type Engine struct {
	store     store.Store
	registry  *registry.Registry
	publisher events.Publisher
	logger    *logger.Logger
	workers   int
}

// NewEngine creates a validation engine
func NewEngine(st store.Store, reg *registry.Registry, pub events.Publisher, log *logger.Logger) *Engine {
	return &Engine{
		store:     st,
		registry:  reg,
		publisher: pub,
		logger:    log,
		workers:   DefaultWorkers,
	}
}

// typeFinding collects one object type's rule findings, keyed back to the
// rule's registration index so aggregate ordering stays deterministic.
type typeFinding struct {
	ruleIndex int
	change    *schema.BreakingChange
	err       error
	duration  time.Duration
}

// Validate fetches both schemas, runs every enabled rule over each object
// type present on both sides, and aggregates breaking changes and warnings.
// A store fetch failure is fatal; a failure inside one rule is logged,
// recorded on the rule's execution entry and excluded from the results.
func (e *Engine) Validate(ctx context.Context, req Request) (*schema.ValidationResult, error) {
	start := time.Now()
	e.logger.Infof("Validating schema changes from %s into %s", req.SourceBranch, req.TargetBranch)

	sourceSchema, err := e.store.GetSchema(ctx, req.SourceBranch)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source schema for %s: %w", req.SourceBranch, err)
	}
	targetSchema, err := e.store.GetSchema(ctx, req.TargetBranch)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch target schema for %s: %w", req.TargetBranch, err)
	}

	ruleSet := e.registry.Load(req.Scope)
	ruleSet = append(ruleSet, req.CustomRules...)

	result := &schema.ValidationResult{
		ID:              uuid.NewString(),
		SourceBranch:    req.SourceBranch,
		TargetBranch:    req.TargetBranch,
		BreakingChanges: []schema.BreakingChange{},
		Warnings:        []schema.ValidationWarning{},
	}

	shared, sourceOnly, targetOnly := partitionNames(sourceSchema, targetSchema)

	// Additions and removals of whole object types are simpler than rule
	// checks and handled by a direct scan.
	for _, name := range targetOnly {
		result.BreakingChanges = append(result.BreakingChanges, schema.BreakingChange{
			RuleID:       "type-removal",
			Severity:     schema.SeverityCritical,
			ResourceType: "object_type",
			ResourceID:   name,
			Description:  fmt.Sprintf("Object type %s removed; all consumers reading it break", name),
			OldValue:     fmt.Sprintf("%d properties", len(targetSchema[name].Properties)),
			Strategies:   []schema.MigrationStrategy{schema.StrategyManualReview},
		})
	}
	if req.IncludeWarnings {
		for _, name := range sourceOnly {
			result.Warnings = append(result.Warnings, schema.ValidationWarning{
				Code:           "type_added",
				ResourceID:     name,
				Message:        fmt.Sprintf("Object type %s is new in %s", name, req.SourceBranch),
				Recommendation: "Verify consumers tolerate unknown object types before merge",
			})
		}
	}

	findingsByType := e.runRules(ctx, req, ruleSet, shared, targetSchema, sourceSchema)

	executions := make([]schema.RuleExecution, len(ruleSet))
	for i, rule := range ruleSet {
		executions[i] = schema.RuleExecution{RuleID: rule.ID()}
	}

	for _, name := range shared {
		for _, f := range findingsByType[name] {
			exec := &executions[f.ruleIndex]
			exec.Duration += f.duration
			exec.Checked++
			if f.err != nil {
				exec.Err = f.err.Error()
				continue
			}
			if f.change != nil {
				exec.Findings++
				result.BreakingChanges = append(result.BreakingChanges, *f.change)
			}
		}
	}
	result.RuleExecutions = executions

	if req.IncludeImpactAnalysis {
		e.annotateImpact(ctx, result.BreakingChanges)
	}

	result.Valid = len(result.BreakingChanges) == 0
	result.Duration = time.Since(start)

	e.publisher.Publish(ctx, events.Event{
		ID:      uuid.NewString(),
		Type:    events.TypeValidationCompleted,
		Time:    time.Now(),
		Payload: events.ValidationCompleted(result.ID, len(ruleSet), len(result.BreakingChanges), result.Duration),
	})

	e.logger.WithFields(map[string]string{
		"validation_id": result.ID,
		"source":        req.SourceBranch,
		"target":        req.TargetBranch,
	}).Info(fmt.Sprintf("Validation finished: %d breaking changes, %d warnings, valid=%t",
		len(result.BreakingChanges), len(result.Warnings), result.Valid))
	return result, nil
}

// runRules executes every rule over each shared object type. Object types
// run concurrently on a bounded pool; rules are side-effect-free so this is
// safe. Results are keyed by type name so callers re-impose ordering.
func (e *Engine) runRules(ctx context.Context, req Request, ruleSet []rules.Rule, shared []string, targetSchema, sourceSchema schema.Schema) map[string][]typeFinding {
	rctx := &rules.Context{
		SourceBranch: req.SourceBranch,
		TargetBranch: req.TargetBranch,
		Store:        e.store,
		Logger:       e.logger,
	}

	var mu sync.Mutex
	findings := make(map[string][]typeFinding, len(shared))

	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup

	for _, name := range shared {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			oldType := targetSchema[name]
			newType := sourceSchema[name]

			perType := make([]typeFinding, 0, len(ruleSet))
			for i, rule := range ruleSet {
				f := typeFinding{ruleIndex: i}
				ruleStart := time.Now()
				f.change, f.err = e.checkSafely(rule, oldType, newType, rctx)
				f.duration = time.Since(ruleStart)
				if f.err != nil {
					e.logger.Errorf("Rule %s failed on object type %s: %v", rule.ID(), name, f.err)
				}
				perType = append(perType, f)
			}

			mu.Lock()
			findings[name] = perType
			mu.Unlock()
		}(name)
	}
	wg.Wait()

	return findings
}

// checkSafely runs one rule check, converting panics into recorded errors so
// a misbehaving rule never aborts the whole validation.
func (e *Engine) checkSafely(rule rules.Rule, oldType, newType schema.ObjectType, rctx *rules.Context) (change *schema.BreakingChange, err error) {
	defer func() {
		if r := recover(); r != nil {
			change = nil
			err = fmt.Errorf("rule panicked: %v", r)
		}
	}()
	return rule.Check(oldType, newType, rctx), nil
}

// partitionNames splits object-type names into shared, source-only and
// target-only sets, each sorted for deterministic iteration.
func partitionNames(source, target schema.Schema) (shared, sourceOnly, targetOnly []string) {
	for name := range source {
		if _, ok := target[name]; ok {
			shared = append(shared, name)
		} else {
			sourceOnly = append(sourceOnly, name)
		}
	}
	for name := range target {
		if _, ok := source[name]; !ok {
			targetOnly = append(targetOnly, name)
		}
	}
	sort.Strings(shared)
	sort.Strings(sourceOnly)
	sort.Strings(targetOnly)
	return shared, sourceOnly, targetOnly
}
