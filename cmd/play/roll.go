package main

import (
	"fmt"
	goio "io"
	"strings"
	"time"

	"github.com/pfcm/polysynth"
	"github.com/pfcm/polysynth/hid"
)

const rollWidth = 72

// drawRoll prints the notes the roll remembers, one row per key from highest
// to lowest, time going left to right.
func drawRoll(w goio.Writer, r *hid.Roll) {
	lo, hi, ok := r.Range()
	if !ok {
		return
	}
	spans := r.Spans(0, nil)
	start, end := spans[0].Start, spans[0].End
	for _, s := range spans {
		start = min(start, s.Start)
		end = max(end, s.Start, s.End)
	}
	// Held notes end "now", which the roll only knows as 0.
	for i := range spans {
		if spans[i].Open {
			spans[i].End = end
		}
	}
	fmt.Fprint(w, renderRoll(spans, lo, hi, start, end, rollWidth))
}

func renderRoll(spans []hid.Span, lo, hi polysynth.Key, start, end time.Duration, width int) string {
	length := end - start
	if length <= 0 {
		length = 1
	}
	col := func(t time.Duration) int {
		c := int(int64(t-start) * int64(width-1) / int64(length))
		return max(0, min(width-1, c))
	}
	rows := make([][]byte, int(hi-lo)+1)
	for i := range rows {
		rows[i] = []byte(strings.Repeat(".", width))
	}
	for _, s := range spans {
		row := rows[hi-s.Key]
		for c := col(s.Start); c <= col(s.End); c++ {
			row[c] = '#'
		}
	}
	var sb strings.Builder
	for i, row := range rows {
		fmt.Fprintf(&sb, "%4v |%s|\n", hi-polysynth.Key(i), row)
	}
	return sb.String()
}
