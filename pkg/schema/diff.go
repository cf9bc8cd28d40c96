package schema

import (
	"fmt"
	"sort"
)

// DiffSchemas computes the changes from old to new. Object types are visited
// in sorted name order and properties in old-then-new declaration order, so
// the output is deterministic for identical inputs.
func DiffSchemas(old, new Schema) []SchemaChange {
	var changes []SchemaChange

	names := unionNames(old, new)
	for _, name := range names {
		oldType, inOld := old[name]
		newType, inNew := new[name]

		switch {
		case !inOld:
			changes = append(changes, SchemaChange{
				Operation:    OpAdded,
				ResourceType: "object_type",
				ResourceID:   name,
				Path:         name,
				NewValue:     fmt.Sprintf("%d properties", len(newType.Properties)),
			})
		case !inNew:
			changes = append(changes, SchemaChange{
				Operation:    OpRemoved,
				ResourceType: "object_type",
				ResourceID:   name,
				Path:         name,
				OldValue:     fmt.Sprintf("%d properties", len(oldType.Properties)),
			})
		default:
			changes = append(changes, diffObjectTypes(oldType, newType)...)
		}
	}

	return changes
}

func diffObjectTypes(old, new ObjectType) []SchemaChange {
	var changes []SchemaChange

	for _, name := range propertyUnion(old, new) {
		oldProp, inOld := old.Property(name)
		newProp, inNew := new.Property(name)
		path := old.Name + "." + name

		switch {
		case !inOld:
			changes = append(changes, SchemaChange{
				Operation:    OpAdded,
				ResourceType: "property",
				ResourceID:   old.Name,
				Path:         path,
				NewValue:     DescribeProperty(newProp),
			})
		case !inNew:
			changes = append(changes, SchemaChange{
				Operation:    OpRemoved,
				ResourceType: "property",
				ResourceID:   old.Name,
				Path:         path,
				OldValue:     DescribeProperty(oldProp),
			})
		case !PropertiesEqual(oldProp, newProp):
			changes = append(changes, SchemaChange{
				Operation:    OpModified,
				ResourceType: "property",
				ResourceID:   old.Name,
				Path:         path,
				OldValue:     DescribeProperty(oldProp),
				NewValue:     DescribeProperty(newProp),
			})
		}
	}

	return changes
}

// PropertiesEqual compares every merge-relevant attribute of two properties
func PropertiesEqual(a, b Property) bool {
	if a.Type != b.Type || a.Required != b.Required || a.Unique != b.Unique || a.Indexed != b.Indexed {
		return false
	}
	return equalDefault(a.Default, b.Default)
}

func equalDefault(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// DescribeProperty renders a property in the compact form used by diffs,
// conflicts and breaking-change records, e.g. "required unique string".
func DescribeProperty(p Property) string {
	out := ""
	if p.Required {
		out += "required "
	} else {
		out += "optional "
	}
	if p.Unique {
		out += "unique "
	}
	if p.Indexed {
		out += "indexed "
	}
	out += string(p.Type)
	if p.Default != nil {
		out += fmt.Sprintf(" default=%q", *p.Default)
	}
	return out
}

func unionNames(a, b Schema) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for name := range a {
		set[name] = struct{}{}
	}
	for name := range b {
		set[name] = struct{}{}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// propertyUnion returns property names in first-appearance order: a's
// declaration order first, then names only b declares.
func propertyUnion(a, b ObjectType) []string {
	seen := make(map[string]struct{}, len(a.Properties)+len(b.Properties))
	var names []string
	for _, p := range a.Properties {
		if _, ok := seen[p.Name]; !ok {
			seen[p.Name] = struct{}{}
			names = append(names, p.Name)
		}
	}
	for _, p := range b.Properties {
		if _, ok := seen[p.Name]; !ok {
			seen[p.Name] = struct{}{}
			names = append(names, p.Name)
		}
	}
	return names
}
