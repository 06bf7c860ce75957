package plot_test

import (
	"bytes"
	"testing"

	"codeberg.org/mutker/pidctl/internal/plot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveWindow(t *testing.T) {
	var buf bytes.Buffer
	live := plot.NewLive(&buf, 1, 5)

	for i := range 12 {
		require.NoError(t, live.Update(float64(i), float64(i)-0.5))
	}

	assert.Equal(t, 5, live.Len())
	assert.Contains(t, live.Render(), "correct: 11")
	assert.Contains(t, buf.String(), "setpoint")
}

func TestLiveEmptyRender(t *testing.T) {
	live := plot.NewLive(&bytes.Buffer{}, 0, 0)
	assert.Empty(t, live.Render())
}
