package rules

import (
	"fmt"

	"github.com/schemaflow/schemaflow/pkg/schema"
)

// RequiredAdditionRule flags optional properties that became required.
// Existing records without a value reject writes until backfilled.
type RequiredAdditionRule struct{}

// NewRequiredAdditionRule creates the required-addition rule
func NewRequiredAdditionRule() *RequiredAdditionRule {
	return &RequiredAdditionRule{}
}

func (r *RequiredAdditionRule) ID() string { return "required-addition" }

func (r *RequiredAdditionRule) Severity() schema.Severity { return schema.SeverityHigh }

func (r *RequiredAdditionRule) Check(old, new schema.ObjectType, rctx *Context) *schema.BreakingChange {
	fields := changedProperties(old, new, func(oldProp, newProp schema.Property) bool {
		return !oldProp.Required && newProp.Required
	})
	if len(fields) == 0 {
		return nil
	}

	return &schema.BreakingChange{
		RuleID:       r.ID(),
		Severity:     r.Severity(),
		ResourceType: "object_type",
		ResourceID:   old.Name,
		Description:  fmt.Sprintf("Property made required on %s (%s); records missing a value become invalid", old.Name, joinFields(fields)),
		OldValue:     "optional",
		NewValue:     "required",
		Strategies:   []schema.MigrationStrategy{schema.StrategyBackfill},
		Metadata:     map[string][]string{"fields": fields},
	}
}
