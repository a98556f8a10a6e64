package generate

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// accumulator collects accepted tokens, drops gibberish, and cuts the text
// at the first stop sequence. Text that could still turn into a stop
// sequence, or that ends in an incomplete UTF-8 sequence, is held back from
// emit until it is resolved.
type accumulator struct {
	stops   [][]byte
	maxStop int
	limit   int
	emit    func(string)

	buf     []byte
	emitted int
	tokens  int
	flagged int
	cutoff  bool
	stopped bool
}

func newAccumulator(stops []string, gibberishLimit int, emit func(string)) *accumulator {
	a := &accumulator{limit: gibberishLimit, emit: emit}
	for _, s := range stops {
		if s == "" {
			continue
		}
		a.stops = append(a.stops, []byte(s))
		if len(s) > a.maxStop {
			a.maxStop = len(s)
		}
	}
	return a
}

// add consumes one runtime token and reports whether generation should go on.
func (a *accumulator) add(tok string) bool {
	if a.cutoff || a.stopped {
		return false
	}
	if IsGibberish(tok) {
		a.flagged++
		if a.limit > 0 && a.flagged >= a.limit {
			a.cutoff = true
			return false
		}
		return true
	}
	a.tokens++
	from := len(a.buf) - a.maxStop + 1
	if from < 0 {
		from = 0
	}
	a.buf = append(a.buf, tok...)
	if idx := a.findStop(from); idx >= 0 {
		a.buf = a.buf[:idx]
		a.stopped = true
		a.flush()
		return false
	}
	a.emitUpTo(len(a.buf) - a.heldSuffix())
	return true
}

// findStop returns the earliest stop-sequence match starting at or after
// from, or -1.
func (a *accumulator) findStop(from int) int {
	best := -1
	for _, s := range a.stops {
		if i := bytes.Index(a.buf[from:], s); i >= 0 && (best < 0 || from+i < best) {
			best = from + i
		}
	}
	return best
}

// heldSuffix is the length of the longest tail of the unemitted text that is
// a proper prefix of some stop sequence.
func (a *accumulator) heldSuffix() int {
	pending := a.buf[a.emitted:]
	n := a.maxStop - 1
	if n > len(pending) {
		n = len(pending)
	}
	for k := n; k > 0; k-- {
		tail := pending[len(pending)-k:]
		for _, s := range a.stops {
			if len(s) > k && bytes.HasPrefix(s, tail) {
				return k
			}
		}
	}
	return 0
}

func (a *accumulator) emitUpTo(end int) {
	if end <= a.emitted {
		return
	}
	// Never split a multi-byte character across emits.
	start := end - 1
	for start > a.emitted && !utf8.RuneStart(a.buf[start]) {
		start--
	}
	if !utf8.FullRune(a.buf[start:end]) {
		end = start
	}
	if end <= a.emitted {
		return
	}
	piece := string(a.buf[a.emitted:end])
	a.emitted = end
	if a.emit != nil {
		a.emit(piece)
	}
}

// flush emits everything not yet emitted.
func (a *accumulator) flush() {
	if len(a.buf) > a.emitted {
		piece := string(a.buf[a.emitted:])
		a.emitted = len(a.buf)
		if a.emit != nil {
			a.emit(piece)
		}
	}
}

func (a *accumulator) result() Result {
	return Result{
		Text:    strings.TrimSpace(string(a.buf)),
		Tokens:  a.tokens,
		Flagged: a.flagged,
		Cutoff:  a.cutoff,
		Stopped: a.stopped,
	}
}
