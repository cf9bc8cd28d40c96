// Package events carries the fire-and-forget notifications the versioning
// core produces. Delivery guarantees (outbox, retries) belong to external
// collaborators; publishers here never fail the calling operation.
package events

import (
	"context"
	"time"

	"github.com/schemaflow/schemaflow/pkg/logger"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

// Event types produced by the core
const (
	TypeValidationCompleted = "validation.completed"
	TypeSchemaChanged       = "schema.changed"
)

// Event is a single notification envelope
type Event struct {
	ID      string                 `json:"id"`
	Type    string                 `json:"type"`
	Time    time.Time              `json:"time"`
	Payload map[string]interface{} `json:"payload"`
}

// Publisher delivers events without blocking the caller on failures
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// ValidationCompleted builds the payload for a finished validation run
func ValidationCompleted(validationID string, ruleCount, breakingChangeCount int, duration time.Duration) map[string]interface{} {
	return map[string]interface{}{
		"validation_id":         validationID,
		"rule_count":            ruleCount,
		"breaking_change_count": breakingChangeCount,
		"duration_ms":           duration.Milliseconds(),
	}
}

// SchemaChanged builds the payload for one detected schema change
func SchemaChanged(branch, commitID string, change schema.SchemaChange) map[string]interface{} {
	payload := map[string]interface{}{
		"branch":        branch,
		"commit_id":     commitID,
		"operation":     string(change.Operation),
		"resource_type": change.ResourceType,
		"resource_id":   change.ResourceID,
	}
	if change.OldValue != "" {
		payload["old_value"] = change.OldValue
	}
	if change.NewValue != "" {
		payload["new_value"] = change.NewValue
	}
	return payload
}

// LogPublisher writes events to the service log. Used when no broker is
// configured and as the default in tests.
type LogPublisher struct {
	logger *logger.Logger
}

// NewLogPublisher creates a logger-backed publisher
func NewLogPublisher(logger *logger.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) {
	p.logger.Infof("Event %s (%s)", event.Type, event.ID)
}

// NopPublisher discards every event
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) {}
