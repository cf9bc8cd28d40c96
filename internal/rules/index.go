package rules

import (
	"fmt"

	"github.com/schemaflow/schemaflow/pkg/schema"
)

// IndexRemovalRule flags removed indexes. Dropping an index degrades query
// performance but never invalidates data, so this stays LOW.
type IndexRemovalRule struct{}

// NewIndexRemovalRule creates the index removal rule
func NewIndexRemovalRule() *IndexRemovalRule {
	return &IndexRemovalRule{}
}

func (r *IndexRemovalRule) ID() string { return "index-removal" }

func (r *IndexRemovalRule) Severity() schema.Severity { return schema.SeverityLow }

func (r *IndexRemovalRule) Check(old, new schema.ObjectType, rctx *Context) *schema.BreakingChange {
	fields := changedProperties(old, new, func(oldProp, newProp schema.Property) bool {
		return oldProp.Indexed && !newProp.Indexed
	})
	if len(fields) == 0 {
		return nil
	}

	return &schema.BreakingChange{
		RuleID:       r.ID(),
		Severity:     r.Severity(),
		ResourceType: "object_type",
		ResourceID:   old.Name,
		Description:  fmt.Sprintf("Index removed on %s (%s); queries filtering on these properties will slow down", old.Name, joinFields(fields)),
		OldValue:     "indexed",
		NewValue:     "not indexed",
		Strategies:   []schema.MigrationStrategy{schema.StrategyDropIndex},
		Metadata:     map[string][]string{"fields": fields},
	}
}
