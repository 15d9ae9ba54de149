// Package analyzer turns solved study scenarios into comparison tables:
// abatement curves over carbon caps, stepwise and reserve comparisons, a
// per-period summary and the coal part-load check.
package analyzer

import "strings"

const moduleName = "analyzer"

// ResourceOrder lists categories from the most firm resource up.
var ResourceOrder = []string{
	"Nuclear",
	"Hydro",
	"Gas",
	"Coal (Direct)",
	"Coal (CCS)",
	"Hydrogen (Coal Retrofit)",
	"Hydrogen (Fuel Cell)",
	"Batteries",
	"Wind",
	"Solar",
}

// AssignCategory maps a technology and energy source to a reporting category.
func AssignCategory(tech, source string) string {
	cat := source
	switch cat {
	case "Uranium":
		cat = "Nuclear"
	case "Water":
		cat = "Hydro"
	}
	if tech == "Battery_Storage" {
		cat = "Batteries"
	}
	switch {
	case strings.HasSuffix(tech, "_H2"):
		cat += " (Coal Retrofit)"
	case strings.HasSuffix(tech, "_CCS"):
		cat += " (CCS)"
	}
	if tech == "Fuel_Cell" {
		cat += " (Fuel Cell)"
	}
	if cat == "Coal" {
		cat += " (Direct)"
	}
	return cat
}

// OrderCategories puts the known categories of seen in ResourceOrder, then
// the rest in the order given.
func OrderCategories(seen []string) []string {
	present := make(map[string]bool, len(seen))
	for _, c := range seen {
		present[c] = true
	}
	out := make([]string, 0, len(seen))
	known := make(map[string]bool, len(ResourceOrder))
	for _, c := range ResourceOrder {
		known[c] = true
		if present[c] {
			out = append(out, c)
		}
	}
	added := make(map[string]bool)
	for _, c := range seen {
		if !known[c] && !added[c] {
			out = append(out, c)
			added[c] = true
		}
	}
	return out
}
