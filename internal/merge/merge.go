package merge

import (
	"fmt"
	"sort"

	"github.com/schemaflow/schemaflow/pkg/schema"
)

// mergeOutcome is the pure result of a three-way merge computation
type mergeOutcome struct {
	merged        schema.Schema
	conflicts     []schema.Conflict
	log           []string
	resolvedCount int
}

// mergeSchemas merges source and target against their common base. Object
// types are visited in sorted name order and properties in base-then-source-
// then-target first-appearance order, so conflict records are deterministic
// for identical inputs.
func mergeSchemas(base, source, target schema.Schema, autoResolve bool) mergeOutcome {
	out := mergeOutcome{merged: schema.Schema{}}

	for _, name := range typeUnion(base, source, target) {
		baseType, inBase := base[name]
		sourceType, inSource := source[name]
		targetType, inTarget := target[name]

		switch {
		case !inSource && !inTarget:
			// Deleted on both sides, or never existed

		case !inBase && inSource && !inTarget:
			out.merged[name] = sourceType

		case !inBase && !inSource && inTarget:
			out.merged[name] = targetType

		case inBase && !inSource:
			// Source deleted the type. A target that diverged from base
			// still depends on it, so the deletion cannot be taken silently.
			if objectTypesEqual(baseType, targetType) {
				continue
			}
			out.conflicts = append(out.conflicts, schema.Conflict{
				EntityType:     name,
				FieldName:      name,
				Type:           schema.ConflictPropertyRemoved,
				SourceValue:    "(removed)",
				TargetValue:    fmt.Sprintf("%d properties", len(targetType.Properties)),
				Severity:       schema.SeverityCritical,
				ResolutionHint: "source deleted an object type the target modified; keep or delete manually",
			})
			out.merged[name] = targetType

		case inBase && !inTarget:
			// Target deleted the type
			if objectTypesEqual(baseType, sourceType) {
				continue
			}
			out.conflicts = append(out.conflicts, schema.Conflict{
				EntityType:     name,
				FieldName:      name,
				Type:           schema.ConflictPropertyRemoved,
				SourceValue:    fmt.Sprintf("%d properties", len(sourceType.Properties)),
				TargetValue:    "(removed)",
				Severity:       schema.SeverityCritical,
				ResolutionHint: "target deleted an object type the source modified; keep or delete manually",
			})
			out.merged[name] = sourceType

		default:
			// Present in source and target; base may be absent when both
			// sides added the type independently.
			merged := mergeObjectType(name, baseType, inBase, sourceType, targetType, autoResolve, &out)
			out.merged[name] = merged
		}
	}

	return out
}

// mergeObjectType merges one object type property by property
func mergeObjectType(name string, baseType schema.ObjectType, inBase bool, sourceType, targetType schema.ObjectType, autoResolve bool, out *mergeOutcome) schema.ObjectType {
	merged := schema.ObjectType{Name: name}

	for _, propName := range propertyUnion(baseType, sourceType, targetType) {
		baseProp, hasBase := baseType.Property(propName)
		if !inBase {
			hasBase = false
		}
		sourceProp, hasSource := sourceType.Property(propName)
		targetProp, hasTarget := targetType.Property(propName)

		sourceChanged := sideChanged(baseProp, hasBase, sourceProp, hasSource)
		targetChanged := sideChanged(baseProp, hasBase, targetProp, hasTarget)

		switch {
		case !sourceChanged && !targetChanged:
			if hasBase {
				merged.Properties = append(merged.Properties, baseProp)
			}

		case sourceChanged && !targetChanged:
			if !hasSource {
				// Source removed the property, target left it alone; the
				// removal stands. The validation gate reports the breakage.
				continue
			}
			if hasBase && baseProp.Type != sourceProp.Type && !schema.CanWiden(baseProp.Type, sourceProp.Type) {
				// A non-widening type change cannot be taken structurally:
				// existing data needs migration first.
				out.conflicts = append(out.conflicts, schema.Conflict{
					EntityType:     name,
					FieldName:      propName,
					Type:           schema.ConflictPropertyType,
					SourceValue:    schema.DescribeProperty(sourceProp),
					TargetValue:    schema.DescribeProperty(targetProp),
					Severity:       schema.SeverityHigh,
					ResolutionHint: fmt.Sprintf("change %s -> %s is not a safe widening; run a migration or keep %s", baseProp.Type, sourceProp.Type, baseProp.Type),
				})
				merged.Properties = append(merged.Properties, targetProp)
				continue
			}
			merged.Properties = append(merged.Properties, sourceProp)

		case !sourceChanged && targetChanged:
			// The target head is already live; its one-sided changes are
			// taken as-is.
			if hasTarget {
				merged.Properties = append(merged.Properties, targetProp)
			}

		default:
			prop, keep := mergeContestedProperty(name, propName, baseProp, hasBase, sourceProp, hasSource, targetProp, hasTarget, autoResolve, out)
			if keep {
				merged.Properties = append(merged.Properties, prop)
			}
		}
	}

	return merged
}

// mergeContestedProperty handles a property both sides changed relative to
// base. Identical changes are taken as-is; divergent ones produce exactly
// one conflict, optionally auto-resolved in the safer direction.
func mergeContestedProperty(typeName, propName string, baseProp schema.Property, hasBase bool, sourceProp schema.Property, hasSource bool, targetProp schema.Property, hasTarget bool, autoResolve bool, out *mergeOutcome) (schema.Property, bool) {
	// Both sides agree
	if hasSource == hasTarget && (!hasSource || schema.PropertiesEqual(sourceProp, targetProp)) {
		if !hasSource {
			return schema.Property{}, false
		}
		return sourceProp, true
	}

	// One side removed, the other modified
	if hasSource != hasTarget {
		conflict := schema.Conflict{
			EntityType:     typeName,
			FieldName:      propName,
			Type:           schema.ConflictPropertyRemoved,
			SourceValue:    "(removed)",
			TargetValue:    "(removed)",
			Severity:       schema.SeverityHigh,
			ResolutionHint: "one branch removed a property the other modified; decide manually",
		}
		kept := targetProp
		if hasSource {
			conflict.SourceValue = schema.DescribeProperty(sourceProp)
			kept = sourceProp
		}
		if hasTarget {
			conflict.TargetValue = schema.DescribeProperty(targetProp)
		}
		out.conflicts = append(out.conflicts, conflict)
		return kept, true
	}

	// Both modified, divergent results
	conflictType := classifyConflict(sourceProp, targetProp)
	conflict := schema.Conflict{
		EntityType:  typeName,
		FieldName:   propName,
		Type:        conflictType,
		SourceValue: schema.DescribeProperty(sourceProp),
		TargetValue: schema.DescribeProperty(targetProp),
		Severity:    conflictSeverity(conflictType),
	}

	if autoResolve {
		resolved, note, ok := resolveProperty(baseProp, hasBase, sourceProp, targetProp)
		if ok {
			conflict.Resolved = true
			out.conflicts = append(out.conflicts, conflict)
			out.resolvedCount++
			out.log = append(out.log, fmt.Sprintf("%s.%s: %s %s", typeName, propName, conflictType, note))
			return resolved, true
		}
		conflict.ResolutionHint = note
	} else {
		conflict.ResolutionHint = defaultHint(conflictType)
	}

	out.conflicts = append(out.conflicts, conflict)
	return targetProp, true
}

// classifyConflict picks the conflict type from the most significant
// attribute the two sides disagree on: type > required > unique > default.
func classifyConflict(sourceProp, targetProp schema.Property) schema.ConflictType {
	switch {
	case sourceProp.Type != targetProp.Type:
		return schema.ConflictPropertyType
	case sourceProp.Required != targetProp.Required:
		return schema.ConflictRequiredChange
	case sourceProp.Unique != targetProp.Unique:
		return schema.ConflictUniqueChange
	default:
		return schema.ConflictDefaultChange
	}
}

func conflictSeverity(t schema.ConflictType) schema.Severity {
	switch t {
	case schema.ConflictPropertyType:
		return schema.SeverityHigh
	case schema.ConflictPropertyRemoved:
		return schema.SeverityHigh
	case schema.ConflictRequiredChange, schema.ConflictUniqueChange:
		return schema.SeverityMedium
	default:
		return schema.SeverityLow
	}
}

func defaultHint(t schema.ConflictType) string {
	switch t {
	case schema.ConflictPropertyType:
		return "pick the wider type or run a migration"
	case schema.ConflictRequiredChange:
		return "optional is the safer direction; re-run with auto_resolve to take it"
	case schema.ConflictUniqueChange:
		return "verify existing data before keeping the unique constraint"
	default:
		return "resolve manually"
	}
}

func sideChanged(baseProp schema.Property, hasBase bool, sideProp schema.Property, hasSide bool) bool {
	if hasBase != hasSide {
		return true
	}
	if !hasBase {
		return false
	}
	return !schema.PropertiesEqual(baseProp, sideProp)
}

func objectTypesEqual(a, b schema.ObjectType) bool {
	if len(a.Properties) != len(b.Properties) {
		return false
	}
	for _, p := range a.Properties {
		other, ok := b.Property(p.Name)
		if !ok || !schema.PropertiesEqual(p, other) {
			return false
		}
	}
	return true
}

func typeUnion(base, source, target schema.Schema) []string {
	set := make(map[string]struct{})
	for name := range base {
		set[name] = struct{}{}
	}
	for name := range source {
		set[name] = struct{}{}
	}
	for name := range target {
		set[name] = struct{}{}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// propertyUnion returns property names in first-appearance order across
// base, then source, then target declarations.
func propertyUnion(base, source, target schema.ObjectType) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, list := range [][]schema.Property{base.Properties, source.Properties, target.Properties} {
		for _, p := range list {
			if _, ok := seen[p.Name]; !ok {
				seen[p.Name] = struct{}{}
				names = append(names, p.Name)
			}
		}
	}
	return names
}
