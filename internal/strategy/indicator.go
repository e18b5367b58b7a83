package strategy

import (
	"github.com/mingxuan/fishbowl/internal/contracts"
)

const (
	maWindow         = 20
	volumeMAWindow   = 5
	recentHighWindow = 10
)

// Enrich returns a copy of the series with MA20 and VolumeMA5 filled in where
// the data source did not supply them. Supplied per-bar values take
// precedence: the source may carry better-adjusted figures.
func Enrich(series contracts.InstrumentSeries) contracts.InstrumentSeries {
	out := make(contracts.InstrumentSeries, len(series))
	copy(out, series)

	for i := range out {
		if out[i].MA20 == 0 && i >= maWindow-1 {
			var sum float64
			for j := i - maWindow + 1; j <= i; j++ {
				sum += out[j].Close
			}
			out[i].MA20 = sum / maWindow
		}
		if out[i].VolumeMA5 == 0 && i >= volumeMAWindow-1 {
			var sum float64
			for j := i - volumeMAWindow + 1; j <= i; j++ {
				sum += out[j].Volume
			}
			out[i].VolumeMA5 = sum / volumeMAWindow
		}
	}
	return out
}

// RecentHigh returns the highest high over the last window bars.
// Returns ErrInsufficientData when the series is shorter than the window;
// callers treat that as "condition not satisfied", not a fatal error.
func RecentHigh(series contracts.InstrumentSeries, window int) (float64, error) {
	if len(series) < window {
		return 0, contracts.ErrInsufficientData
	}
	high := series.FromEnd(0).High
	for n := 1; n < window; n++ {
		if h := series.FromEnd(n).High; h > high {
			high = h
		}
	}
	return high, nil
}
