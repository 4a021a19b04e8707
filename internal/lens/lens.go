// Package lens holds the lens catalog and the pure functions that derive
// canonical text from a lens specification: the human-readable detail string
// shown on every screen and the grouping key used as the aggregation identity
// for open requirements. Historical records store both renderings verbatim,
// so this package is deterministic, side-effect free, and dependency-free.
package lens

import (
	"fmt"
	"strconv"
	"strings"
)

// Lens types understood by the catalog.
const (
	TypeSingleVision = "SingleVision"
	TypeKryptok      = "Kryptok"
	TypeProgressive  = "Progressive"
)

// Eye-side markers carried by Progressive specs (lensSpecificType in the
// legacy data).
const (
	EyeRight = "Right"
	EyeLeft  = "Left"
	EyeBoth  = "Both Eye"
)

// Spec is one lens specification as captured at order time. Sphere, Cylinder
// and Add are fixed two-decimal strings and Axis an integer string; they are
// normalized once by Validate and kept as text afterwards because the detail
// string and grouping key must reproduce the stored rendering exactly.
type Spec struct {
	Type        string `json:"type"`
	Coating     string `json:"coating"`
	CoatingType string `json:"coatingType"`
	Material    string `json:"material"`
	Sphere      string `json:"sphere"`
	Cylinder    string `json:"cylinder"`
	Axis        string `json:"axis,omitempty"`
	Add         string `json:"add,omitempty"`
	EyeSide     string `json:"lensSpecificType,omitempty"`
}

// Range bounds one decimal attribute of a lens type.
type Range struct {
	Min, Max float64
}

// Catalog describes the legal attribute domains for one lens type.
type Catalog struct {
	Type         string
	Coatings     []string
	CoatingTypes []string
	Materials    []string
	EyeSides     []string // Progressive only
	SphereRange  Range
	CylRange     Range
	AddRange     Range // zero for SingleVision
	AxisOptions  []int // empty for SingleVision
}

var coatingTypes = []string{
	"Blue", "Green", "Mari Blu", "Magenta", "Night-Drive",
	"Dual O2", "Dual Eyeconic", "Dual Cracia",
}

var materials = []string{
	"Polycarbonate", "Photo Chromatic", "PG Poly", "Photobrown", "None",
}

var catalogs = map[string]Catalog{
	TypeSingleVision: {
		Type:         TypeSingleVision,
		Coatings:     []string{"ARC", "Blue cut", "Hard coat", "Uncoat"},
		CoatingTypes: coatingTypes,
		Materials:    materials,
		SphereRange:  Range{-30, 30},
		CylRange:     Range{-6, 6},
	},
	TypeKryptok: {
		Type:         TypeKryptok,
		Coatings:     []string{"ARC", "Blue cut", "Hard Coat", "Uncoat"},
		CoatingTypes: coatingTypes,
		Materials:    materials,
		SphereRange:  Range{-6, 6},
		CylRange:     Range{-4, 4},
		AddRange:     Range{0.75, 4.0},
		AxisOptions:  []int{45, 90, 135, 180},
	},
	TypeProgressive: {
		Type:         TypeProgressive,
		Coatings:     []string{"ARC", "Blue cut", "Hard Coat", "Uncoat"},
		CoatingTypes: coatingTypes,
		Materials:    materials,
		EyeSides:     []string{EyeRight, EyeLeft, EyeBoth},
		SphereRange:  Range{-6, 6},
		CylRange:     Range{-4, 4},
		AddRange:     Range{0.75, 3.5},
		AxisOptions:  axisSteps(0, 180, 10),
	},
}

func axisSteps(from, to, step int) []int {
	var out []int
	for v := from; v <= to; v += step {
		out = append(out, v)
	}
	return out
}

// CatalogFor returns the catalog entry for a lens type.
func CatalogFor(lensType string) (Catalog, bool) {
	c, ok := catalogs[lensType]
	return c, ok
}

// Types lists the known lens types in catalog order.
func Types() []string {
	return []string{TypeSingleVision, TypeKryptok, TypeProgressive}
}

// SphereOptions enumerates the selectable sphere powers for a range, as fixed
// two-decimal strings: whole-diopter steps beyond ±20, half steps between
// ±10.5 and ±19.5, quarter steps within ±10.
func SphereOptions(r Range) []string {
	seen := map[string]struct{}{}
	var vals []float64
	push := func(v float64) {
		if v < r.Min || v > r.Max {
			return
		}
		s := fmt.Sprintf("%.2f", v)
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		vals = append(vals, v)
	}
	for v := -30.0; v <= -20.0; v++ {
		push(v)
	}
	for v := -19.5; v <= -10.5; v += 0.5 {
		push(v)
	}
	for v := -10.0; v <= 10.0; v += 0.25 {
		push(quantize(v))
	}
	for v := 10.5; v <= 19.5; v += 0.5 {
		push(v)
	}
	for v := 20.0; v <= 30.0; v++ {
		push(v)
	}
	sortFloats(vals)
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = fmt.Sprintf("%.2f", v)
	}
	return out
}

// CylinderOptions enumerates quarter-diopter cylinder steps across a range.
func CylinderOptions(r Range) []string {
	return quarterSteps(r)
}

// AddOptions enumerates quarter-diopter addition steps across a range.
func AddOptions(r Range) []string {
	return quarterSteps(r)
}

func quarterSteps(r Range) []string {
	var out []string
	for v := r.Min; v <= r.Max+1e-9; v = quantize(v + 0.25) {
		out = append(out, fmt.Sprintf("%.2f", v))
		if v >= r.Max {
			break
		}
	}
	return out
}

// quantize snaps a float to the exact quarter-diopter grid, avoiding binary
// drift from repeated 0.25 additions.
func quantize(v float64) float64 {
	if v < 0 {
		return float64(int(v*100-0.5)) / 100
	}
	return float64(int(v*100+0.5)) / 100
}

func sortFloats(vals []float64) {
	for i := 1; i < len(vals); i++ {
		for j := i; j > 0 && vals[j] < vals[j-1]; j-- {
			vals[j], vals[j-1] = vals[j-1], vals[j]
		}
	}
}

// Validate checks a spec against the catalog and normalizes its numeric text:
// sphere/cylinder/add become fixed two-decimal strings, axis an integer
// string. Coating, coating type and material remain free text (the catalog
// only suggests values; custom entries are legal). It returns the normalized
// spec or a descriptive error.
func Validate(s Spec) (Spec, error) {
	cat, ok := catalogs[s.Type]
	if !ok {
		return s, fmt.Errorf("unknown lens type %q", s.Type)
	}
	if strings.TrimSpace(s.Coating) == "" {
		return s, fmt.Errorf("coating is required")
	}
	if strings.TrimSpace(s.CoatingType) == "" {
		return s, fmt.Errorf("coating type is required")
	}

	var err error
	if s.Sphere, err = normPower("sphere", s.Sphere, cat.SphereRange); err != nil {
		return s, err
	}
	if s.Cylinder, err = normPower("cylinder", s.Cylinder, cat.CylRange); err != nil {
		return s, err
	}

	if s.Type == TypeSingleVision {
		if s.Axis != "" || s.Add != "" {
			return s, fmt.Errorf("axis and add are not valid for %s", TypeSingleVision)
		}
		if s.EyeSide != "" {
			return s, fmt.Errorf("eye side is not valid for %s", TypeSingleVision)
		}
		return s, nil
	}

	ax, axErr := strconv.Atoi(strings.TrimSpace(s.Axis))
	if axErr != nil {
		return s, fmt.Errorf("axis is required for %s", s.Type)
	}
	if ax < 0 || ax > 180 {
		return s, fmt.Errorf("axis %d out of range 0-180", ax)
	}
	s.Axis = strconv.Itoa(ax)

	if s.Add, err = normPower("add", s.Add, cat.AddRange); err != nil {
		return s, err
	}

	if s.Type == TypeProgressive {
		switch s.EyeSide {
		case EyeRight, EyeLeft, EyeBoth:
		default:
			return s, fmt.Errorf("eye side must be one of Right, Left, Both Eye")
		}
	} else if s.EyeSide != "" {
		return s, fmt.Errorf("eye side is only valid for %s", TypeProgressive)
	}
	return s, nil
}

func normPower(field, raw string, r Range) (string, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return "", fmt.Errorf("%s %q is not a number", field, raw)
	}
	if v < r.Min || v > r.Max {
		return "", fmt.Errorf("%s %.2f out of range %.2f..%.2f", field, v, r.Min, r.Max)
	}
	return fmt.Sprintf("%.2f", v), nil
}
