// Package progress coalesces raw byte-level transfer callbacks into throttled
// updates so neither the chat-edit API nor the dashboard gets flooded.
package progress

import "strings"

const (
	// minStep suppresses updates until the percentage has advanced this far.
	minStep = 5
	barSegments = 10
)

// Update is one emitted progress notification.
type Update struct {
	Filename string
	Current  int64
	Total    int64
	Pct      int
	Done     bool
}

// Sink receives emitted updates. Implementations are best-effort: errors are
// the sink's own problem and must never abort the transfer feeding it.
type Sink func(Update)

// Reporter throttles per-byte callbacks to monotonic 5%-step updates.
// Not safe for concurrent use; one transfer owns one Reporter.
type Reporter struct {
	filename string
	sink     Sink
	lastPct  int
}

func NewReporter(filename string, sink Sink) *Reporter {
	return &Reporter{filename: filename, sink: sink, lastPct: -1}
}

// Report consumes a raw (current, total) callback and emits when the percent
// has advanced at least 5 points since the last emitted value.
func (r *Reporter) Report(current, total int64) {
	pct := Pct(current, total)
	if pct-r.lastPct < minStep {
		return
	}
	r.lastPct = pct
	r.emit(Update{Filename: r.filename, Current: current, Total: total, Pct: pct})
}

// Finish emits the mandatory terminal update with pct forced to 100.
func (r *Reporter) Finish(size int64) {
	r.lastPct = 100
	r.emit(Update{Filename: r.filename, Current: size, Total: size, Pct: 100, Done: true})
}

// Fail emits a zero/done update so the dashboard clears a stalled indicator.
func (r *Reporter) Fail() {
	r.emit(Update{Filename: r.filename, Done: true})
}

func (r *Reporter) emit(u Update) {
	if r.sink != nil {
		r.sink(u)
	}
}

// Pct computes floor(current*100/total), or 0 when the total is unknown.
func Pct(current, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(current * 100 / total)
}

// Bar renders the textual progress bar quantized to 10 segments.
func Bar(pct int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := pct / barSegments
	return strings.Repeat("█", filled) + strings.Repeat("░", barSegments-filled)
}
