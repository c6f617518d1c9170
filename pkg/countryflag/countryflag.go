// Package countryflag renders two-letter ISO 3166-1 country codes as flag
// emoji.
package countryflag

// regionalIndicatorBase maps 'A' onto U+1F1E6 REGIONAL INDICATOR SYMBOL LETTER A.
const regionalIndicatorBase = 0x1F1E6

// Emoji returns the flag emoji for a two-letter country code, accepting
// either case. It returns the empty string for anything that is not exactly
// two ASCII letters.
func Emoji(code string) string {
	if len(code) != 2 {
		return ""
	}
	runes := make([]rune, 0, 2)
	for i := 0; i < 2; i++ {
		c := code[i]
		switch {
		case c >= 'A' && c <= 'Z':
			runes = append(runes, regionalIndicatorBase+rune(c-'A'))
		case c >= 'a' && c <= 'z':
			runes = append(runes, regionalIndicatorBase+rune(c-'a'))
		default:
			return ""
		}
	}
	return string(runes)
}
