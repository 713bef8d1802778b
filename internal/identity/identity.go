// Package identity derives the two identifiers every pricing component carries: a
// semantic id that is stable across snapshots and an instance id unique to one snapshot.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"slices"
	"strings"
)

const instancePrefix = "ci_"

var dimensionAbbreviations = map[string]string{
	"order_detail_id": "OD",
	"pax_id":          "P",
	"leg_id":          "L",
	"night_id":        "N",
	"room_id":         "R",
	"segment_id":      "S",
}

// SemanticID builds "cs-{order}[-{key}]-{dims}-{type}". Dimension order does not matter;
// keys are sorted before rendering and an empty dimension set renders as ORDER.
// optionalKey separates refund components from the charges they reverse.
func SemanticID(orderID string, dimensions map[string]string, componentType, optionalKey string) string {
	if orderID == "" {
		panic("identity: empty order id")
	}

	parts := []string{"cs", orderID}
	if optionalKey != "" {
		parts = append(parts, optionalKey)
	}
	parts = append(parts, DimensionKey(dimensions), componentType)
	return strings.Join(parts, "-")
}

// Canonicalize trims surrounding whitespace from dimension keys and values. Case is
// preserved: producers use case-sensitive ids.
func Canonicalize(dimensions map[string]string) map[string]string {
	out := make(map[string]string, len(dimensions))
	for k, v := range dimensions {
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}

// DimensionKey renders the canonical dimension segment of a semantic id. The rendering
// is lossy; compare dimension sets with SameDimensions.
func DimensionKey(dimensions map[string]string) string {
	if len(dimensions) == 0 {
		return "ORDER"
	}

	canonical := Canonicalize(dimensions)
	parts := make([]string, 0, len(canonical))
	for _, k := range slices.Sorted(maps.Keys(canonical)) {
		parts = append(parts, abbreviate(k)+"-"+canonical[k])
	}
	return strings.Join(parts, "-")
}

func abbreviate(key string) string {
	if abbr, ok := dimensionAbbreviations[key]; ok {
		return abbr
	}
	if r := []rune(key); len(r) > 3 {
		key = string(r[:3])
	}
	return strings.ToUpper(key)
}

// InstanceID is "ci_" plus the first 16 hex chars of sha256(semanticID|snapshotID).
func InstanceID(semanticID, snapshotID string) string {
	sum := sha256.Sum256([]byte(semanticID + "|" + snapshotID))
	return instancePrefix + hex.EncodeToString(sum[:])[:16]
}

// SameDimensions reports whether two dimension sets hold the same keys and values
// after canonicalization.
func SameDimensions(a, b map[string]string) bool {
	return maps.Equal(Canonicalize(a), Canonicalize(b))
}
