package onboarding

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// cities offered by the last wizard step.
var cities = []string{
	"Bogotá",
	"Medellín",
	"Cali",
	"Barranquilla",
	"Cartagena",
	"Bucaramanga",
	"Santa Marta",
	"Pereira",
	"Manizales",
	"Ibagué",
	"Cúcuta",
	"Villavicencio",
	"Armenia",
	"Neiva",
	"Pasto",
}

// Cities returns the suggested cities in display order.
func Cities() []string { return slices.Clone(cities) }

// NormalizeCity trims s and, when it matches a suggested city ignoring case,
// returns the canonical spelling. Other cities are title-cased.
func NormalizeCity(s string) string {
	s = strings.TrimSpace(s)
	fold := cases.Fold()
	key := fold.String(s)
	for _, c := range cities {
		if fold.String(c) == key {
			return c
		}
	}
	if s == "" {
		return s
	}
	return cases.Title(language.Spanish).String(s)
}
