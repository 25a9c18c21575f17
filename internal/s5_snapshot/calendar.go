package s5_snapshot

import (
	"sort"
	"time"

	"github.com/wonny/scanner/internal/contracts"
)

// Calendar is the trading calendar implied by the snapshot history:
// the sorted distinct snapshot dates.
type Calendar struct {
	dates []time.Time
	index map[string]int // DateLayout → position
}

// NewCalendar builds the calendar of rows
func NewCalendar(rows []contracts.SnapshotRow) *Calendar {
	seen := make(map[string]time.Time)
	for _, r := range rows {
		seen[r.Date.Format(contracts.DateLayout)] = contracts.TruncateDay(r.Date)
	}

	dates := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	index := make(map[string]int, len(dates))
	for i, d := range dates {
		index[d.Format(contracts.DateLayout)] = i
	}
	return &Calendar{dates: dates, index: index}
}

// Len returns the number of trading days
func (c *Calendar) Len() int {
	return len(c.dates)
}

// Dates returns the calendar dates (ascending)
func (c *Calendar) Dates() []time.Time {
	return c.dates
}

// Offset returns the date n positions after date
func (c *Calendar) Offset(date time.Time, n int) (time.Time, bool) {
	i, ok := c.index[date.Format(contracts.DateLayout)]
	if !ok || i+n < 0 || i+n >= len(c.dates) {
		return time.Time{}, false
	}
	return c.dates[i+n], true
}

// ForwardReturns computes forward returns over horizon trading days.
// Rows already holding a return for this horizon are not recomputed; rows
// lacking a future close of the same identifier are absent from the result.
func ForwardReturns(rows []contracts.SnapshotRow, horizon int) map[contracts.SnapshotKey]float64 {
	cal := NewCalendar(rows)

	closes := make(map[contracts.SnapshotKey]float64, len(rows))
	for _, r := range rows {
		if r.Close > 0 {
			closes[r.Key()] = r.Close
		}
	}

	out := make(map[contracts.SnapshotKey]float64)
	for _, r := range rows {
		if _, ok := r.ForwardReturnAt(horizon); ok || r.Close <= 0 {
			continue
		}
		future, ok := cal.Offset(r.Date, horizon)
		if !ok {
			continue
		}
		fc, ok := closes[contracts.SnapshotKey{Identifier: r.Identifier, Date: future.Format(contracts.DateLayout)}]
		if !ok {
			continue
		}
		out[r.Key()] = fc/r.Close - 1
	}
	return out
}

// WithForwardReturns returns copies of rows with forward returns over horizon:
// the stored value when it was computed over the same horizon, else joined
// on the fly. A stored value of another horizon never leaks through.
func WithForwardReturns(rows []contracts.SnapshotRow, horizon int) []contracts.SnapshotRow {
	joined := ForwardReturns(rows, horizon)
	out := make([]contracts.SnapshotRow, len(rows))
	for i, r := range rows {
		out[i] = r
		if _, ok := r.ForwardReturnAt(horizon); ok {
			continue
		}
		out[i].ForwardReturn = nil
		out[i].ForwardHorizon = 0
		if fr, ok := joined[r.Key()]; ok {
			v := fr
			out[i].ForwardReturn = &v
			out[i].ForwardHorizon = horizon
		}
	}
	return out
}
