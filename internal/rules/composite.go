package rules

import "github.com/schemaflow/schemaflow/pkg/schema"

// CompositeRule runs several rules and reports only the single most severe
// finding. Severity order is CRITICAL > HIGH > MEDIUM > LOW; ties keep the
// first-seen result so member order matters.
type CompositeRule struct {
	id      string
	members []Rule
}

// NewCompositeRule creates a composite over the given member rules
func NewCompositeRule(id string, members ...Rule) *CompositeRule {
	return &CompositeRule{id: id, members: members}
}

func (r *CompositeRule) ID() string { return r.id }

// Severity reports the highest severity any member can produce
func (r *CompositeRule) Severity() schema.Severity {
	max := schema.SeverityLow
	for _, m := range r.members {
		max = schema.MaxSeverity(max, m.Severity())
	}
	return max
}

func (r *CompositeRule) Check(old, new schema.ObjectType, rctx *Context) *schema.BreakingChange {
	var best *schema.BreakingChange
	for _, m := range r.members {
		finding := m.Check(old, new, rctx)
		if finding == nil {
			continue
		}
		if best == nil || finding.Severity.Rank() > best.Severity.Rank() {
			best = finding
		}
	}
	return best
}
