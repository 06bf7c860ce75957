// Package plot draws the loop state as a terminal chart.
package plot

import (
	"fmt"
	"io"
	"strconv"

	"github.com/guptarohit/asciigraph"
)

const (
	DefaultWindow = 80
	defaultHeight = 15
	clearScreen   = "\033[H\033[2J"
)

// Live keeps a sliding window of the corrected value, the setpoint and the
// current value and redraws them on every Update.
type Live struct {
	out       io.Writer
	window    int
	setpoint  float64
	corrected []float64
	setpoints []float64
	current   []float64
}

func NewLive(out io.Writer, setpoint float64, window int) *Live {
	if window <= 0 {
		window = DefaultWindow
	}

	return &Live{out: out, window: window, setpoint: setpoint}
}

// Update appends one observation and redraws. It never influences the loop.
func (l *Live) Update(corrected, current float64) error {
	l.corrected = push(l.corrected, corrected, l.window)
	l.setpoints = push(l.setpoints, l.setpoint, l.window)
	l.current = push(l.current, current, l.window)

	_, err := fmt.Fprint(l.out, clearScreen+l.Render()+"\n")

	return err
}

// Render returns the chart for the current window.
func (l *Live) Render() string {
	if len(l.corrected) == 0 {
		return ""
	}

	return asciigraph.PlotMany(
		[][]float64{l.corrected, l.setpoints, l.current},
		asciigraph.Height(defaultHeight),
		asciigraph.Width(l.window),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Red, asciigraph.Blue),
		asciigraph.SeriesLegends("value", "setpoint", "current value"),
		asciigraph.Caption("correct: "+strconv.FormatFloat(l.corrected[len(l.corrected)-1], 'f', -1, 64)),
	)
}

// Len returns the number of samples in the window.
func (l *Live) Len() int {
	return len(l.corrected)
}

func push(series []float64, v float64, window int) []float64 {
	series = append(series, v)
	if len(series) > window {
		series = series[len(series)-window:]
	}

	return series
}
