package planner

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var colombia = language.MustParse("es-CO")

// FormatCOP renders amount as whole Colombian pesos, e.g. "$ 50.000.000".
func FormatCOP(amount float64) string {
	p := message.NewPrinter(colombia)
	v := int64(math.Round(amount))
	if v < 0 {
		return p.Sprintf("-$ %d", -v)
	}
	return p.Sprintf("$ %d", v)
}
