// Package usage approximates prompt token counts for backends that do not
// report them.
package usage

import "unicode"

// Count returns the number of word runs plus punctuation and symbol
// characters in text. It tracks subword tokenizers closely enough for
// usage reporting.
func Count(text string) int32 {
	var n int32
	inWord := false
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if !inWord {
				n++
				inWord = true
			}
		case unicode.IsSpace(r):
			inWord = false
		default:
			n++
			inWord = false
		}
	}
	return n
}

// Estimate sums Count over a batch.
func Estimate(inputs []string) int32 {
	var total int32
	for _, text := range inputs {
		total += Count(text)
	}
	return total
}
