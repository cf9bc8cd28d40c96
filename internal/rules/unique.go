package rules

import (
	"fmt"

	"github.com/schemaflow/schemaflow/internal/store"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

// UniqueConstraintAdditionRule flags newly-added uniqueness on existing
// properties. Existing data may hold duplicates, so the constraint cannot be
// applied without a deduplication pass.
type UniqueConstraintAdditionRule struct {
	store store.Store
}

// NewUniqueConstraintAdditionRule creates the unique constraint rule. The
// store is optional and only consulted by impact analysis downstream.
func NewUniqueConstraintAdditionRule(st store.Store) *UniqueConstraintAdditionRule {
	return &UniqueConstraintAdditionRule{store: st}
}

func (r *UniqueConstraintAdditionRule) ID() string { return "unique-constraint-addition" }

func (r *UniqueConstraintAdditionRule) Severity() schema.Severity { return schema.SeverityMedium }

func (r *UniqueConstraintAdditionRule) Check(old, new schema.ObjectType, rctx *Context) *schema.BreakingChange {
	fields := changedProperties(old, new, func(oldProp, newProp schema.Property) bool {
		return !oldProp.Unique && newProp.Unique
	})
	if len(fields) == 0 {
		return nil
	}

	return &schema.BreakingChange{
		RuleID:       r.ID(),
		Severity:     r.Severity(),
		ResourceType: "object_type",
		ResourceID:   old.Name,
		Description:  fmt.Sprintf("Unique constraint added on %s (%s); existing duplicate data would violate it", old.Name, joinFields(fields)),
		OldValue:     "non-unique",
		NewValue:     "unique",
		Strategies:   []schema.MigrationStrategy{schema.StrategyDeduplicate},
		Metadata:     map[string][]string{"fields": fields},
	}
}
