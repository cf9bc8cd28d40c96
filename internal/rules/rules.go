// Package rules holds the breaking-change rule catalog. A rule inspects one
// object type's old and new definitions and reports at most one finding.
// Rules are side-effect-free and safe to run concurrently across distinct
// object-type pairs.
package rules

import (
	"strings"

	"github.com/schemaflow/schemaflow/internal/store"
	"github.com/schemaflow/schemaflow/pkg/logger"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

// Context carries per-run information and the collaborators a rule may
// consult. Rules must treat everything here as read-only.
type Context struct {
	SourceBranch string
	TargetBranch string
	Store        store.Store
	Logger       *logger.Logger
}

// Rule is the breaking-change capability. Check returns nil when the change
// from old to new is compatible; it must never panic on malformed input and
// must not mutate its arguments. Severity is a static property of the rule
// so catalogs stay deterministic.
type Rule interface {
	ID() string
	Severity() schema.Severity
	Check(old, new schema.ObjectType, rctx *Context) *schema.BreakingChange
}

// changedProperties returns names of properties present in both definitions,
// in old's declaration order, for which pred reports a finding.
func changedProperties(old, new schema.ObjectType, pred func(oldProp, newProp schema.Property) bool) []string {
	var fields []string
	for _, oldProp := range old.Properties {
		newProp, ok := new.Property(oldProp.Name)
		if !ok {
			continue
		}
		if pred(oldProp, newProp) {
			fields = append(fields, oldProp.Name)
		}
	}
	return fields
}

func joinFields(fields []string) string {
	return strings.Join(fields, ", ")
}
