package validation

import (
	"context"
	"time"

	"github.com/schemaflow/schemaflow/pkg/schema"
)

// migrationThroughput is the assumed records-per-second rate used for
// downtime estimates. Deliberately conservative.
const migrationThroughput = 5000

// annotateImpact fills in an impact estimate for every breaking change that
// lacks one, querying affected-record counts through the store. A count
// failure leaves that change unannotated; impact analysis is advisory and
// never fails the validation.
func (e *Engine) annotateImpact(ctx context.Context, changes []schema.BreakingChange) {
	for i := range changes {
		bc := &changes[i]
		if bc.Impact != nil {
			continue
		}

		total, err := e.store.CountRecords(ctx, bc.ResourceID, nil)
		if err != nil {
			e.logger.Warnf("Impact analysis skipped for %s: %v", bc.ResourceID, err)
			continue
		}

		affected := affectedRecords(bc, total)
		impact := &schema.ImpactEstimate{
			TotalRecords:    total,
			AffectedRecords: affected,
			ComplexityScore: complexityScore(bc.Severity, total),
			MigrationRisks:  migrationRisks(bc),
		}
		if total > 0 {
			impact.ImpactPercent = float64(affected) / float64(total) * 100
		}
		if affected > 0 {
			impact.EstimatedDowntime = time.Duration(affected/migrationThroughput+1) * time.Second
		}

		bc.Impact = impact
	}
}

// affectedRecords estimates how many records a change touches. Index
// removals cost queries, not data, so they affect nothing; every other
// change requires a full scan or rewrite of the type's records.
func affectedRecords(bc *schema.BreakingChange, total int64) int64 {
	if bc.Severity == schema.SeverityLow {
		return 0
	}
	return total
}

func complexityScore(severity schema.Severity, total int64) int {
	score := 0
	switch severity {
	case schema.SeverityCritical:
		score = 8
	case schema.SeverityHigh:
		score = 6
	case schema.SeverityMedium:
		score = 4
	default:
		score = 2
	}
	if total > 1_000_000 {
		score += 2
	} else if total > 100_000 {
		score++
	}
	if score > 10 {
		score = 10
	}
	if score < 1 {
		score = 1
	}
	return score
}

func migrationRisks(bc *schema.BreakingChange) []string {
	var risks []string
	switch bc.Severity {
	case schema.SeverityCritical:
		risks = append(risks, "data loss possible without a verified backup")
	case schema.SeverityHigh:
		risks = append(risks, "writes rejected during transformation window")
	case schema.SeverityMedium:
		risks = append(risks, "constraint application fails if duplicates remain")
	}
	for _, s := range bc.Strategies {
		if s == schema.StrategyManualReview {
			risks = append(risks, "requires manual review before execution")
			break
		}
	}
	return risks
}
