package schema

import "time"

// DataType represents a store-agnostic property data type
type DataType string

const (
	TypeBoolean  DataType = "boolean"
	TypeInteger  DataType = "integer"
	TypeLong     DataType = "long"
	TypeDecimal  DataType = "decimal"
	TypeFloat    DataType = "float"
	TypeDouble   DataType = "double"
	TypeString   DataType = "string"
	TypeText     DataType = "text"
	TypeDate     DataType = "date"
	TypeDateTime DataType = "dateTime"
	TypeUnknown  DataType = "unknown"
)

// Property represents a single typed property of an object type
type Property struct {
	Name     string   `json:"name"`
	Type     DataType `json:"type"`
	Required bool     `json:"required"`
	Unique   bool     `json:"unique"`
	Indexed  bool     `json:"indexed"`
	Default  *string  `json:"default,omitempty"`
}

// ObjectType represents a named object type with an ordered property list
type ObjectType struct {
	Name       string     `json:"name"`
	Properties []Property `json:"properties"`
}

// Property returns the named property and whether it exists
func (o ObjectType) Property(name string) (Property, bool) {
	for _, p := range o.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// PropertyNames returns property names in declaration order
func (o ObjectType) PropertyNames() []string {
	names := make([]string, 0, len(o.Properties))
	for _, p := range o.Properties {
		names = append(names, p.Name)
	}
	return names
}

// Schema maps object-type names to their definitions for one branch head
type Schema map[string]ObjectType

// Branch represents a named, mutable pointer to a commit
type Branch struct {
	Name         string    `json:"name"`
	TenantID     string    `json:"tenant_id"`
	HeadCommitID string    `json:"head_commit_id"`
	ParentBranch string    `json:"parent_branch,omitempty"`
	Status       string    `json:"status"`
	Created      time.Time `json:"created"`
	Updated      time.Time `json:"updated"`
}

// Commit represents an immutable, parented schema snapshot. The parent link
// is set once at creation and never rewritten; the commit DAG is append-only.
type Commit struct {
	ID       string    `json:"id"`
	ParentID string    `json:"parent_id,omitempty"`
	Branch   string    `json:"branch"`
	Author   string    `json:"author"`
	Message  string    `json:"message"`
	Snapshot Schema    `json:"snapshot"`
	Created  time.Time `json:"created"`
}

// ChangeOperation classifies what happened to a schema element
type ChangeOperation string

const (
	OpAdded    ChangeOperation = "added"
	OpRemoved  ChangeOperation = "removed"
	OpModified ChangeOperation = "modified"
)

// SchemaChange is a single detected change between two schema versions
type SchemaChange struct {
	Operation    ChangeOperation `json:"operation"`
	ResourceType string          `json:"resource_type"`
	ResourceID   string          `json:"resource_id"`
	Path         string          `json:"path"`
	OldValue     string          `json:"old_value,omitempty"`
	NewValue     string          `json:"new_value,omitempty"`
}
