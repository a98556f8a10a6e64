package generate

import (
	"unicode"
	"unicode/utf16"
)

const (
	repeatRun     = 4 // a character followed by three repeats
	symbolOnlyMin = 5
)

// IsGibberish reports whether a single token looks like degenerate output:
// four identical symbols in a row, four identical ASCII letters in a row, or
// a token made only of five or more symbols. A symbol is anything that is
// neither a word character ([A-Za-z0-9_]) nor whitespace. Positions are
// counted in UTF-16 code units.
func IsGibberish(token string) bool {
	units := utf16.Encode([]rune(token))
	if len(units) == 0 {
		return false
	}
	allSymbols := true
	run := 1
	for i, u := range units {
		sym := isSymbol(u)
		if !sym {
			allSymbols = false
		}
		if i > 0 && u == units[i-1] {
			run++
		} else {
			run = 1
		}
		if run >= repeatRun && (sym || isASCIILetter(u)) {
			return true
		}
	}
	return allSymbols && len(units) >= symbolOnlyMin
}

func isWord(u uint16) bool {
	return u == '_' || (u >= '0' && u <= '9') || isASCIILetter(u)
}

func isASCIILetter(u uint16) bool {
	return (u >= 'a' && u <= 'z') || (u >= 'A' && u <= 'Z')
}

func isSpace(u uint16) bool {
	return u == 0xFEFF || unicode.IsSpace(rune(u))
}

func isSymbol(u uint16) bool { return !isWord(u) && !isSpace(u) }
