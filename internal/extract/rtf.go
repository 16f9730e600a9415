package extract

import (
	"strconv"
	"strings"
)

// Destinations whose content is metadata rather than document text.
var rtfSkipDestinations = map[string]bool{
	"fonttbl":      true,
	"colortbl":     true,
	"stylesheet":   true,
	"info":         true,
	"pict":         true,
	"header":       true,
	"footer":       true,
	"generator":    true,
	"listtable":    true,
	"xmlnstbl":     true,
	"themedata":    true,
	"latentstyles": true,
}

// stripRTF drops control words and groups, keeping the visible text.
// Paragraph and line controls become newlines.
func stripRTF(src string) string {
	var out strings.Builder
	type group struct{ skip bool }
	stack := []group{{}}
	skipping := func() bool { return stack[len(stack)-1].skip }

	for i := 0; i < len(src); i++ {
		ch := src[i]
		switch ch {
		case '{':
			stack = append(stack, group{skip: skipping()})
		case '}':
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case '\\':
			if i+1 >= len(src) {
				continue
			}
			next := src[i+1]
			switch {
			case next == '\\' || next == '{' || next == '}':
				if !skipping() {
					out.WriteByte(next)
				}
				i++
			case next == '*':
				stack[len(stack)-1].skip = true
				i++
			case next == '\'':
				if i+3 < len(src) {
					if v, err := strconv.ParseUint(src[i+2:i+4], 16, 8); err == nil && !skipping() {
						out.WriteRune(rune(v))
					}
					i += 3
				}
			case next == '~':
				if !skipping() {
					out.WriteByte(' ')
				}
				i++
			case isASCIILetter(next):
				j := i + 1
				for j < len(src) && isASCIILetter(src[j]) {
					j++
				}
				word := src[i+1 : j]
				k := j
				if k < len(src) && (src[k] == '-' || isDigit(src[k])) {
					k++
					for k < len(src) && isDigit(src[k]) {
						k++
					}
				}
				param := src[j:k]
				if k < len(src) && src[k] == ' ' {
					k++
				}
				i = k - 1
				if rtfSkipDestinations[word] {
					stack[len(stack)-1].skip = true
					continue
				}
				if skipping() {
					continue
				}
				switch word {
				case "par", "line", "row":
					out.WriteByte('\n')
				case "tab", "cell":
					out.WriteByte('\t')
				case "u":
					if n, err := strconv.Atoi(param); err == nil {
						if n < 0 {
							n += 65536
						}
						out.WriteRune(rune(n))
						// Skip the single-byte fallback that follows \uN.
						if i+1 < len(src) && src[i+1] != '\\' && src[i+1] != '{' && src[i+1] != '}' {
							i++
						}
					}
				}
			default:
				i++
			}
		case '\r', '\n':
		default:
			if !skipping() {
				out.WriteByte(ch)
			}
		}
	}
	return strings.TrimSpace(out.String())
}

func isASCIILetter(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
