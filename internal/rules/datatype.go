package rules

import (
	"fmt"

	"github.com/schemaflow/schemaflow/pkg/schema"
)

// DataTypeChangeRule flags incompatible data type changes. Safe widenings
// per the schema compatibility table are never reported; everything else is
// a narrowing and loses or corrupts data for existing consumers.
type DataTypeChangeRule struct{}

// NewDataTypeChangeRule creates the data type change rule
func NewDataTypeChangeRule() *DataTypeChangeRule {
	return &DataTypeChangeRule{}
}

func (r *DataTypeChangeRule) ID() string { return "data-type-change" }

func (r *DataTypeChangeRule) Severity() schema.Severity { return schema.SeverityHigh }

func (r *DataTypeChangeRule) Check(old, new schema.ObjectType, rctx *Context) *schema.BreakingChange {
	var fields []string
	var details []string

	for _, oldProp := range old.Properties {
		newProp, ok := new.Property(oldProp.Name)
		if !ok {
			continue
		}
		if oldProp.Type == newProp.Type || schema.CanWiden(oldProp.Type, newProp.Type) {
			continue
		}
		fields = append(fields, oldProp.Name)
		details = append(details, fmt.Sprintf("%s: %s -> %s", oldProp.Name, oldProp.Type, newProp.Type))
	}

	if len(fields) == 0 {
		return nil
	}

	oldProp, _ := old.Property(fields[0])
	newProp, _ := new.Property(fields[0])

	return &schema.BreakingChange{
		RuleID:       r.ID(),
		Severity:     r.Severity(),
		ResourceType: "object_type",
		ResourceID:   old.Name,
		Description:  fmt.Sprintf("Incompatible data type change on %s (%s)", old.Name, joinFields(details)),
		OldValue:     string(oldProp.Type),
		NewValue:     string(newProp.Type),
		Strategies:   []schema.MigrationStrategy{schema.StrategyCopyTransform, schema.StrategyManualReview},
		Metadata:     map[string][]string{"fields": fields},
	}
}
