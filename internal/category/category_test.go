package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentagesAddUp(t *testing.T) {
	var sum float64
	for _, c := range All() {
		sum += c.Percentage
	}
	assert.Equal(t, 100.0, sum)
	assert.Len(t, All(), 12)
}

func TestDefaultPlannedDecoration(t *testing.T) {
	assert.Equal(t, 4_000_000.0, Decoration.DefaultPlanned(50_000_000))
	assert.Equal(t, 0.0, Decoration.DefaultPlanned(0))
}

func TestDefaultPlannedKeepsFraction(t *testing.T) {
	assert.InDelta(t, 98.72, Decoration.DefaultPlanned(1234), 1e-9)
	assert.InDelta(t, 0.15, Venue.DefaultPlanned(1), 1e-9)
}

func TestPlannedPrefersExplicit(t *testing.T) {
	assert.Equal(t, 1_500_000.0, Catering.Planned(1_500_000, 50_000_000))
	assert.Equal(t, 12_500_000.0, Catering.Planned(0, 50_000_000))
}

func TestParse(t *testing.T) {
	id, err := Parse("musica_sonido")
	require.NoError(t, err)
	assert.Equal(t, Music, id)
	assert.Equal(t, "Música y Sonido", id.Label())

	_, err = Parse("catering")
	assert.ErrorIs(t, err, ErrUnknown)
	assert.False(t, ID("catering").Valid())
	assert.Equal(t, "catering", ID("catering").Label())
}
