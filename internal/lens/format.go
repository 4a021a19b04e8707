package lens

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatPower renders a diopter value the way the catalog displays it:
// two decimals, with an explicit plus sign on positive values.
func FormatPower(v float64) string {
	if v > 0 {
		return fmt.Sprintf("+%.2f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

func powerOf(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// DetailString renders the canonical one-line description of a spec. The
// exact byte sequence matters: it is stored in history rows and fulfilment
// records, and the search index tokenizes it, so changing it would orphan
// existing data.
//
// Layout, by type:
//
//	SingleVision  [R ]{sph}[/{cyl}[ x {axis}]| sph] [material coating coatingType]
//	Kryptok       [R ]{sph}[/{cyl}[ x {axis}]] | Add +{add} [parts] KT
//	Progressive   [R ]{sph-unless-omitted}[/{cyl}[ x {axis}]] | Add +{add} [coating coatingType material] V2
//
// "R"/"L"/"BE" marks the eye side. A Progressive single-eye spec with zero
// sphere drops the sphere term. " sph" is appended for a SingleVision spec
// with no cylinder and a non-zero sphere. Material "None", coating or coating
// type "-", and blank parts are dropped. An unknown type yields a literal
// diagnostic string rather than an error.
func DetailString(s Spec) string {
	var b strings.Builder

	marker := eyeMarker(s.EyeSide)
	if marker != "" && s.Type != TypeSingleVision {
		b.WriteString(marker + " ")
	}

	sph := powerOf(s.Sphere)
	cyl := powerOf(s.Cylinder)

	switch s.Type {
	case TypeSingleVision, TypeKryptok:
		if s.Type == TypeSingleVision && marker != "" {
			b.WriteString(marker + " ")
		}
		b.WriteString(FormatPower(sph))
		if cyl != 0 {
			b.WriteString("/" + FormatPower(cyl))
			if strings.TrimSpace(s.Axis) != "" {
				b.WriteString(" x " + s.Axis)
			}
		} else if s.Type == TypeSingleVision && sph != 0 {
			b.WriteString(" sph")
		}
		if s.Type == TypeKryptok {
			writeAdd(&b, s.Add)
		}
		writeParts(&b,
			blankIf(formatMaterial(s.Material), "None"),
			blankIf(formatCoating(s.Coating), "-"),
			blankIf(formatCoatingType(s.CoatingType), "-"))
		if s.Type == TypeKryptok {
			b.WriteString(" KT")
		}

	case TypeProgressive:
		omitSphere := sph == 0 && (marker == "R" || marker == "L")
		if omitSphere {
			if cyl != 0 {
				b.WriteString(FormatPower(cyl))
				if strings.TrimSpace(s.Axis) != "" {
					b.WriteString(" x " + s.Axis)
				}
			}
		} else {
			b.WriteString(FormatPower(sph))
			if cyl != 0 {
				b.WriteString("/" + FormatPower(cyl))
				if strings.TrimSpace(s.Axis) != "" {
					b.WriteString(" x " + s.Axis)
				}
			}
		}
		writeAdd(&b, s.Add)
		writeParts(&b,
			blankIf(formatCoating(s.Coating), "-"),
			blankIf(formatCoatingType(s.CoatingType), "-"),
			blankIf(formatMaterial(s.Material), "None"))
		b.WriteString(" V2")

	default:
		b.WriteString("Unknown Lens Type: " + s.Type)
	}

	return strings.TrimSpace(b.String())
}

func eyeMarker(side string) string {
	switch side {
	case EyeRight:
		return "R"
	case EyeLeft:
		return "L"
	case EyeBoth:
		return "BE"
	}
	return ""
}

func writeAdd(b *strings.Builder, add string) {
	if v, err := strconv.ParseFloat(strings.TrimSpace(add), 64); err == nil && v != 0 {
		fmt.Fprintf(b, " | Add +%.2f", v)
		return
	}
	// Unparseable or zero-but-not-"0.00" text is appended verbatim, so legacy
	// rows like "0" still render " | Add +0".
	if strings.TrimSpace(add) != "" && add != "0.00" {
		b.WriteString(" | Add +" + add)
	}
}

// writeParts appends the non-blank descriptor parts, space-joined, after a
// single leading space.
func writeParts(b *strings.Builder, parts ...string) {
	var kept []string
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			kept = append(kept, t)
		}
	}
	if len(kept) > 0 {
		b.WriteString(" " + strings.Join(kept, " "))
	}
}

// blankIf drops a formatted part equal to the sentinel the legacy renderer
// filters for that slot: "None" for material, "-" for coating and coating
// type.
func blankIf(part, sentinel string) string {
	if part == sentinel {
		return ""
	}
	return part
}

func formatMaterial(m string) string {
	switch strings.ToLower(strings.TrimSpace(m)) {
	case "polycarbonate":
		return "Poly"
	case "photo chromatic", "photochromatic":
		return "PG"
	}
	return strings.TrimSpace(m)
}

func formatCoating(c string) string {
	switch strings.ToLower(strings.TrimSpace(c)) {
	case "hard coat":
		return "HC"
	case "blue cut", "blu ray cut", "brc":
		return "BRC"
	case "uncoat", "uc":
		return "UC"
	}
	return strings.TrimSpace(c)
}

func formatCoatingType(ct string) string {
	switch strings.ToLower(strings.TrimSpace(ct)) {
	case "arc", "anti-reflection coating":
		return "ARC"
	case "blue":
		return "Blue"
	case "green":
		return "Green"
	case "mari blu":
		return "MariBlu"
	case "magenta":
		return "Magenta"
	case "night-drive":
		return "NightDrive"
	case "dual o2":
		return "D.O2"
	case "dual eyeconic":
		return "D.EYE"
	case "dual cracia":
		return "D.CRC"
	}
	return strings.TrimSpace(ct)
}
