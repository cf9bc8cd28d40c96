package merge

import (
	"fmt"
	"strings"

	"github.com/schemaflow/schemaflow/pkg/schema"
)

// resolveProperty attempts safe-direction auto-resolution of a property both
// sides modified. The fixed table: a required disagreement resolves to
// optional, a type disagreement resolves to the wider type, a unique
// disagreement resolves to non-unique. Attributes only one side changed are
// taken from that side. Returns ok=false with a hint when no safe direction
// exists (mutually incompatible types, divergent defaults).
func resolveProperty(baseProp schema.Property, hasBase bool, sourceProp, targetProp schema.Property) (schema.Property, string, bool) {
	resolved := schema.Property{Name: sourceProp.Name}
	var notes []string

	// Type
	switch {
	case sourceProp.Type == targetProp.Type:
		resolved.Type = sourceProp.Type
	case schema.CanWiden(sourceProp.Type, targetProp.Type):
		resolved.Type = targetProp.Type
		notes = append(notes, fmt.Sprintf("resolved type to %s (wider)", targetProp.Type))
	case schema.CanWiden(targetProp.Type, sourceProp.Type):
		resolved.Type = sourceProp.Type
		notes = append(notes, fmt.Sprintf("resolved type to %s (wider)", sourceProp.Type))
	default:
		return schema.Property{}, fmt.Sprintf("types %s and %s are mutually incompatible", sourceProp.Type, targetProp.Type), false
	}

	// Required: optional is always the safer direction
	if sourceProp.Required == targetProp.Required {
		resolved.Required = sourceProp.Required
	} else {
		resolved.Required = false
		notes = append(notes, "resolved to optional")
	}

	// Unique: a disagreement resolves to the permissive side unless the
	// constraint is a one-sided addition, which is taken as-is.
	if sourceProp.Unique == targetProp.Unique {
		resolved.Unique = sourceProp.Unique
	} else if hasBase {
		changedSide := sourceProp.Unique
		if targetProp.Unique != baseProp.Unique {
			changedSide = targetProp.Unique
		}
		resolved.Unique = changedSide
	} else {
		resolved.Unique = false
		notes = append(notes, "resolved to non-unique")
	}

	// Indexed: keeping an index either side wants is harmless
	resolved.Indexed = sourceProp.Indexed || targetProp.Indexed

	// Default
	switch {
	case equalDefaults(sourceProp.Default, targetProp.Default):
		resolved.Default = sourceProp.Default
	case hasBase && equalDefaults(sourceProp.Default, baseProp.Default):
		resolved.Default = targetProp.Default
	case hasBase && equalDefaults(targetProp.Default, baseProp.Default):
		resolved.Default = sourceProp.Default
	default:
		return schema.Property{}, "both branches set divergent defaults", false
	}

	if len(notes) == 0 {
		notes = append(notes, "merged attribute-wise")
	}
	return resolved, strings.Join(notes, "; "), true
}

func equalDefaults(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
