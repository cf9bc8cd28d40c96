package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/schemaflow/schemaflow/pkg/schema"
)

func TestValidationCompletedPayload(t *testing.T) {
	payload := ValidationCompleted("v-1", 5, 2, 1500*time.Millisecond)

	assert.Equal(t, "v-1", payload["validation_id"])
	assert.Equal(t, 5, payload["rule_count"])
	assert.Equal(t, 2, payload["breaking_change_count"])
	assert.Equal(t, int64(1500), payload["duration_ms"])
}

func TestSchemaChangedPayload(t *testing.T) {
	change := schema.SchemaChange{
		Operation:    schema.OpModified,
		ResourceType: "property",
		ResourceID:   "Customer",
		Path:         "Customer.email",
		OldValue:     "optional string",
		NewValue:     "required string",
	}
	payload := SchemaChanged("main", "c-1", change)

	assert.Equal(t, "main", payload["branch"])
	assert.Equal(t, "c-1", payload["commit_id"])
	assert.Equal(t, "modified", payload["operation"])
	assert.Equal(t, "optional string", payload["old_value"])
	assert.Equal(t, "required string", payload["new_value"])
}

func TestSchemaChangedPayloadOmitsEmptyValues(t *testing.T) {
	change := schema.SchemaChange{
		Operation:    schema.OpAdded,
		ResourceType: "object_type",
		ResourceID:   "Invoice",
		NewValue:     "3 properties",
	}
	payload := SchemaChanged("main", "c-1", change)

	_, hasOld := payload["old_value"]
	assert.False(t, hasOld)
	assert.Equal(t, "3 properties", payload["new_value"])
}
