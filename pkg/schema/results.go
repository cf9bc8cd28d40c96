package schema

import "time"

// MigrationStrategy names a candidate approach for carrying data across a
// breaking change. Strategies map to step templates in the migration planner.
type MigrationStrategy string

const (
	StrategyCopyTransform MigrationStrategy = "copy_with_transformation"
	StrategyBackfill      MigrationStrategy = "backfill_default"
	StrategyDeduplicate   MigrationStrategy = "deduplicate_scan"
	StrategyDropIndex     MigrationStrategy = "drop_index"
	StrategyManualReview  MigrationStrategy = "manual_review"
)

// ImpactEstimate quantifies how much existing data a breaking change touches
type ImpactEstimate struct {
	TotalRecords      int64         `json:"total_records"`
	AffectedRecords   int64         `json:"affected_records"`
	ImpactPercent     float64       `json:"impact_percent"`
	EstimatedDowntime time.Duration `json:"estimated_downtime"`
	ComplexityScore   int           `json:"complexity_score"` // 1-10
	MigrationRisks    []string      `json:"migration_risks,omitempty"`
}

// BreakingChange is a schema edit that can invalidate assumptions held by
// existing consumers. Severity and resource identity are always set.
type BreakingChange struct {
	RuleID       string              `json:"rule_id"`
	Severity     Severity            `json:"severity"`
	ResourceType string              `json:"resource_type"`
	ResourceID   string              `json:"resource_id"`
	Description  string              `json:"description"`
	OldValue     string              `json:"old_value,omitempty"`
	NewValue     string              `json:"new_value,omitempty"`
	Impact       *ImpactEstimate     `json:"impact,omitempty"`
	Strategies   []MigrationStrategy `json:"strategies,omitempty"`
	Metadata     map[string][]string `json:"metadata,omitempty"`
}

// ValidationWarning is a non-breaking issue worth surfacing to the editor
type ValidationWarning struct {
	Code           string `json:"code"`
	ResourceID     string `json:"resource_id"`
	Message        string `json:"message"`
	Recommendation string `json:"recommendation,omitempty"`
}

// RuleExecution records one rule's run for observability
type RuleExecution struct {
	RuleID   string        `json:"rule_id"`
	Duration time.Duration `json:"duration"`
	Checked  int           `json:"checked"`
	Findings int           `json:"findings"`
	Err      string        `json:"error,omitempty"`
}

// ValidationResult aggregates breaking changes and warnings for a branch pair.
// Valid is true exactly when BreakingChanges is empty; warnings never affect
// validity.
type ValidationResult struct {
	ID              string              `json:"id"`
	SourceBranch    string              `json:"source_branch"`
	TargetBranch    string              `json:"target_branch"`
	BreakingChanges []BreakingChange    `json:"breaking_changes"`
	Warnings        []ValidationWarning `json:"warnings"`
	RuleExecutions  []RuleExecution     `json:"rule_executions"`
	Valid           bool                `json:"valid"`
	Duration        time.Duration       `json:"duration"`
}

// ConflictType classifies a structural disagreement between two branches
type ConflictType string

const (
	ConflictPropertyType    ConflictType = "property_type"
	ConflictRequiredChange  ConflictType = "required_change"
	ConflictUniqueChange    ConflictType = "unique_change"
	ConflictDefaultChange   ConflictType = "default_change"
	ConflictPropertyRemoved ConflictType = "property_removed"
)

// Conflict records a structural disagreement where two branches changed the
// same attribute differently relative to a common ancestor.
type Conflict struct {
	EntityType     string       `json:"entity_type"`
	FieldName      string       `json:"field_name"`
	Type           ConflictType `json:"conflict_type"`
	SourceValue    string       `json:"source_value"`
	TargetValue    string       `json:"target_value"`
	Severity       Severity     `json:"severity"`
	ResolutionHint string       `json:"resolution_hint,omitempty"`
	Resolved       bool         `json:"resolved"`
}

// MergeStatus is the terminal outcome of a merge attempt
type MergeStatus string

const (
	MergeSuccess  MergeStatus = "success"
	MergeConflict MergeStatus = "conflict"
)

// MergeResult is the outcome of a three-way merge. Status is conflict exactly
// when unresolved conflicts remain; AutoResolved is true only when the merge
// succeeded and at least one conflict actually required resolution logic.
type MergeResult struct {
	Status        MergeStatus   `json:"status"`
	Conflicts     []Conflict    `json:"conflicts"`
	Merged        Schema        `json:"merged,omitempty"`
	AutoResolved  bool          `json:"auto_resolved"`
	ResolutionLog []string      `json:"resolution_log,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// MigrationStepType is a closed set of executable step templates
type MigrationStepType string

const (
	StepCreateTempCollection MigrationStepType = "create_temp_collection"
	StepCopyTransform        MigrationStepType = "copy_with_transformation"
	StepBackfillDefault      MigrationStepType = "backfill_default"
	StepDeduplicateScan      MigrationStepType = "deduplicate_scan"
	StepAddConstraint        MigrationStepType = "add_constraint"
	StepDropConstraint       MigrationStepType = "drop_constraint"
	StepAddIndex             MigrationStepType = "add_index"
	StepDropIndex            MigrationStepType = "drop_index"
	StepAtomicSwitch         MigrationStepType = "atomic_switch"
	StepDropTempCollection   MigrationStepType = "drop_temp_collection"
)

// MigrationStep is one ordered, reversible unit of a migration plan
type MigrationStep struct {
	ID                string            `json:"id"`
	Type              MigrationStepType `json:"type"`
	ResourceID        string            `json:"resource_id"`
	Description       string            `json:"description"`
	BatchSize         int               `json:"batch_size"`
	ParallelWorkers   int               `json:"parallel_workers"`
	EstimatedDuration time.Duration     `json:"estimated_duration"`
	RequiresDowntime  bool              `json:"requires_downtime"`
	DependsOn         []string          `json:"depends_on,omitempty"`
}

// MigrationPlan is an ordered, reversible set of steps carrying existing data
// forward across breaking schema changes. The planner never executes it.
type MigrationPlan struct {
	ID                string          `json:"id"`
	TargetBranch      string          `json:"target_branch"`
	Steps             []MigrationStep `json:"steps"`
	RollbackSteps     []MigrationStep `json:"rollback_steps"`
	ExecutionOrder    []string        `json:"execution_order"`
	EstimatedDuration time.Duration   `json:"estimated_duration"`
	RequiresDowntime  bool            `json:"requires_downtime"`
	Status            string          `json:"status"`
}
