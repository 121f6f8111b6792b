package pinmatrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestFactories(t *testing.T) {
	e := Empty(2, 3)
	for o := 0; o < 2; o++ {
		for i := 0; i < 3; i++ {
			assert.False(t, e.Enabled(i, o))
		}
	}

	id := Identity(2, 3)
	assert.True(t, id.Enabled(0, 0))
	assert.True(t, id.Enabled(1, 1))
	assert.False(t, id.Enabled(2, 0))
	assert.False(t, id.Enabled(0, 1))

	full := Full(2, 2)
	for o := 0; o < 2; o++ {
		for i := 0; i < 2; i++ {
			assert.True(t, full.Enabled(i, o))
		}
	}
}

func TestChannelConnectionsRowMajorOrder(t *testing.T) {
	m := Empty(2, 2)
	m.Set(1, 0, true) // input 1 -> output 0
	m.Set(0, 1, true) // input 0 -> output 1

	conns := m.ChannelConnections()
	want := []Connection{{InputChannel: 1, OutputChannel: 0}, {InputChannel: 0, OutputChannel: 1}}
	assert.Equal(t, want, conns)
}

// TestRoundTripPinMatrix is the rapid property backing §8 P8:
// FromPairs(M.ChannelConnections(), rows, cols) == M.
func TestRoundTripPinMatrix(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rows := rapid.IntRange(1, 8).Draw(t, "rows")
		cols := rapid.IntRange(1, 8).Draw(t, "cols")

		m := Empty(rows, cols)
		for o := 0; o < rows; o++ {
			for i := 0; i < cols; i++ {
				if rapid.Bool().Draw(t, "cell") {
					m.Set(i, o, true)
				}
			}
		}

		reconstructed := FromPairs(m.ChannelConnections(), rows, cols)
		assert.True(t, m.Equal(reconstructed))
	})
}
