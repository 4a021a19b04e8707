package lens

import "strings"

// GroupingKey derives the aggregation identity for a spec. Orders with equal
// keys merge into one requirement, so the key must cover every attribute that
// distinguishes a manufacturable lens and nothing else.
//
// Layout: type-coating-coatingType[-material]-sphere-cylinder, then
// "-axis-add" for non-SingleVision types and "-eyeSide" for Progressive.
// Dots become underscores and spaces are stripped so the key stays safe as a
// path segment and a primary key.
func GroupingKey(s Spec) string {
	var b strings.Builder
	b.WriteString(s.Type)
	b.WriteString("-" + s.Coating)
	b.WriteString("-" + s.CoatingType)
	if strings.TrimSpace(s.Material) != "" {
		b.WriteString("-" + s.Material)
	}
	b.WriteString("-" + s.Sphere)
	b.WriteString("-" + s.Cylinder)
	if s.Type != TypeSingleVision {
		b.WriteString("-" + s.Axis)
		b.WriteString("-" + s.Add)
	}
	if s.Type == TypeProgressive {
		b.WriteString("-" + s.EyeSide)
	}
	key := strings.ReplaceAll(b.String(), ".", "_")
	return strings.ReplaceAll(key, " ", "")
}
