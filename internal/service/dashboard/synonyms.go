package dashboard

import (
	"strings"

	"smartwaste/internal/models"
)

// synonyms lists, per canonical bin, every name that historical data may
// use for it. The canonical name comes first.
var synonyms = map[models.BinType][]string{
	models.BinWet:       {"wet", "organic", "compost"},
	models.BinReject:    {"reject", "dry", "rejected", "general"},
	models.BinRecycle:   {"recycle", "recyclable", "recycling"},
	models.BinHazardous: {"hazardous", "hazard", "e-waste"},
}

type binMeta struct {
	id    int
	key   string
	label string
}

// meta holds the fixed presentation fields the dashboard expects per bin.
var meta = map[models.BinType]binMeta{
	models.BinWet:       {1, "wet", "Wet Waste"},
	models.BinReject:    {2, "reject", "Reject Waste"},
	models.BinRecycle:   {3, "recyclable", "Recyclable Waste"},
	models.BinHazardous: {4, "hazardous", "Hazardous Waste"},
}

// SynonymsFor returns the names matched for bt. Unknown bins match only
// themselves.
func SynonymsFor(bt models.BinType) []string {
	if names, ok := synonyms[bt]; ok {
		out := make([]string, len(names))
		copy(out, names)
		return out
	}
	return []string{string(bt)}
}

// Resolve maps any known name to its canonical bin.
func Resolve(name string) (models.BinType, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, bt := range models.BinTypes {
		for _, s := range synonyms[bt] {
			if s == name {
				return bt, true
			}
		}
	}
	return "", false
}
