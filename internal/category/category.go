// Package category holds the closed set of wedding budget categories and
// their default share of the total budget.
package category

import (
	"errors"
	"fmt"
)

// ID identifies a budget category. Only the values declared below are valid.
type ID string

const (
	Venue       ID = "lugar_ceremonia"
	Catering    ID = "banquete_bebida"
	Attire      ID = "vestido_traje"
	Photography ID = "fotografia_video"
	Decoration  ID = "decoracion_flores"
	Music       ID = "musica_sonido"
	Invitations ID = "invitaciones_detalles"
	Beauty      ID = "belleza"
	Rings       ID = "argollas"
	Transport   ID = "transporte"
	Honeymoon   ID = "luna_miel"
	Contingency ID = "imprevistos"
)

// Info is the lookup row of a category.
type Info struct {
	ID         ID
	Label      string
	Percentage float64
}

// table is ordered as presented to users. Percentages add up to 100.
var table = []Info{
	{Venue, "Lugar y Ceremonia", 15},
	{Catering, "Banquete y Bebida", 25},
	{Attire, "Vestido y Traje", 8},
	{Photography, "Fotografía y Video", 10},
	{Decoration, "Decoración y Flores", 8},
	{Music, "Música y Sonido", 6},
	{Invitations, "Invitaciones y Detalles", 3},
	{Beauty, "Belleza", 3},
	{Rings, "Argollas", 5},
	{Transport, "Transporte", 3},
	{Honeymoon, "Luna de Miel", 4},
	{Contingency, "Imprevistos", 10},
}

var index = func() map[ID]int {
	m := make(map[ID]int, len(table))
	for i, c := range table {
		m[c.ID] = i
	}
	return m
}()

// ErrUnknown is wrapped by Parse for identifiers outside the set.
var ErrUnknown = errors.New("unknown category")

// Parse validates s against the closed set.
func Parse(s string) (ID, error) {
	id := ID(s)
	if _, ok := index[id]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknown, s)
	}
	return id, nil
}

// All returns every category in display order. The slice is a copy.
func All() []Info {
	out := make([]Info, len(table))
	copy(out, table)
	return out
}

// Valid reports whether id belongs to the set.
func (id ID) Valid() bool {
	_, ok := index[id]
	return ok
}

// Info returns the lookup row; the zero Info for unknown ids.
func (id ID) Info() Info {
	if i, ok := index[id]; ok {
		return table[i]
	}
	return Info{}
}

// Label returns the Spanish display name, or the raw id when unknown.
func (id ID) Label() string {
	if i, ok := index[id]; ok {
		return table[i].Label
	}
	return string(id)
}

// Percentage returns the default share of the total budget (0–100).
func (id ID) Percentage() float64 {
	return id.Info().Percentage
}

// DefaultPlanned derives the planned amount used when no explicit value has
// been stored for the category.
func (id ID) DefaultPlanned(totalBudget float64) float64 {
	if totalBudget <= 0 {
		return 0
	}
	return totalBudget * id.Percentage() / 100
}

// Planned returns explicit when it is set (non-zero), otherwise the derived
// default for totalBudget.
func (id ID) Planned(explicit, totalBudget float64) float64 {
	if explicit > 0 {
		return explicit
	}
	return id.DefaultPlanned(totalBudget)
}
