// Package empire splits raw empire-design text into top-level brace blocks
// and extracts the name and ethic tags of each block.
package empire

import (
	"iter"
	"strings"
)

// Span bounds one top-level block of the scanned text.
// Start is where the block's text begins, which includes its declaration
// line; End is the offset of the closing brace (exclusive).
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Text returns the slice of src covered by the span.
func (s Span) Text(src string) string {
	return src[s.Start:s.End]
}

type scanState uint8

const (
	seekOpen  scanState = iota // looking for the first '{'
	seekClose                  // tracking depth until it drops back to zero
	emit                       // a block closed; hand it out and move on
)

// Scan lazily yields the top-level blocks of text in source order.
// Unbalanced input stops the scan where the braces run out; a block that
// never closes is dropped.
func Scan(text string) iter.Seq[Span] {
	return func(yield func(Span) bool) {
		var (
			state     = seekOpen
			start     = 0
			offset    = 0
			depth     = 0
			nextOpen  = -1
			nextClose = -1
		)

		for {
			switch state {
			case seekOpen:
				offset = strings.IndexByte(text, '{')
				if offset < 0 {
					return
				}
				depth = 1
				state = seekClose

			case seekClose:
				nextOpen = indexFrom(text, '{', offset+1)
				nextClose = indexFrom(text, '}', offset+1)

				if nextOpen < 0 && nextClose < 0 {
					return
				}

				if nextOpen >= 0 && (nextClose < 0 || nextOpen < nextClose) {
					depth++
					offset = nextOpen
					continue
				}

				depth--
				offset = nextClose
				if depth == 0 {
					state = emit
				}

			case emit:
				if !yield(Span{Start: start, End: nextClose}) {
					return
				}
				// nextOpen is either past this close or absent.
				if nextOpen < 0 {
					return
				}
				start = nextClose + 1
				offset = nextOpen
				depth = 1
				state = seekClose
			}
		}
	}
}

// Blocks returns the text of every top-level block.
func Blocks(text string) []string {
	var blocks []string
	for span := range Scan(text) {
		blocks = append(blocks, span.Text(text))
	}
	return blocks
}

func indexFrom(s string, c byte, from int) int {
	if from >= len(s) {
		return -1
	}
	i := strings.IndexByte(s[from:], c)
	if i < 0 {
		return -1
	}
	return from + i
}
