package contracts

import "time"

// Bar is one daily OHLCV entry of an instrument series.
// MA20 and VolumeMA5 may be pre-filled by the data source (adjusted figures);
// a zero value means "not supplied" and the indicator calculator fills it in.
type Bar struct {
	Date      time.Time `json:"date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	MA20      float64   `json:"ma20,omitempty"`
	VolumeMA5 float64   `json:"volume_ma5,omitempty"`
}

// InstrumentSeries is an ordered daily bar sequence, oldest first.
// Invariant: chronological order, no duplicate dates.
type InstrumentSeries []Bar

// Len returns the number of bars.
func (s InstrumentSeries) Len() int { return len(s) }

// Latest returns the newest bar. Panics on an empty series; callers gate on
// Len first (every evaluator has a minimum-bars precondition).
func (s InstrumentSeries) Latest() Bar { return s[len(s)-1] }

// FromEnd returns the bar n positions before the newest (FromEnd(0) == Latest).
func (s InstrumentSeries) FromEnd(n int) Bar { return s[len(s)-1-n] }

// Sorted reports whether the series is in chronological order without
// duplicate dates.
func (s InstrumentSeries) Sorted() bool {
	for i := 1; i < len(s); i++ {
		if !s[i].Date.After(s[i-1].Date) {
			return false
		}
	}
	return true
}
