package rules

import (
	"fmt"

	"github.com/schemaflow/schemaflow/pkg/schema"
)

// PropertyRemovalRule flags properties removed from an object type. Data
// held in the removed property is lost and every consumer reading it breaks.
type PropertyRemovalRule struct{}

// NewPropertyRemovalRule creates the property removal rule
func NewPropertyRemovalRule() *PropertyRemovalRule {
	return &PropertyRemovalRule{}
}

func (r *PropertyRemovalRule) ID() string { return "property-removal" }

func (r *PropertyRemovalRule) Severity() schema.Severity { return schema.SeverityCritical }

func (r *PropertyRemovalRule) Check(old, new schema.ObjectType, rctx *Context) *schema.BreakingChange {
	var fields []string
	for _, oldProp := range old.Properties {
		if _, ok := new.Property(oldProp.Name); !ok {
			fields = append(fields, oldProp.Name)
		}
	}
	if len(fields) == 0 {
		return nil
	}

	return &schema.BreakingChange{
		RuleID:       r.ID(),
		Severity:     r.Severity(),
		ResourceType: "object_type",
		ResourceID:   old.Name,
		Description:  fmt.Sprintf("Property removed from %s (%s); stored values are lost", old.Name, joinFields(fields)),
		OldValue:     joinFields(fields),
		NewValue:     "",
		Strategies:   []schema.MigrationStrategy{schema.StrategyCopyTransform, schema.StrategyManualReview},
		Metadata:     map[string][]string{"fields": fields},
	}
}
