package vm

import (
	"strconv"
	"strings"

	"github.com/chazu/dialogvm/pkg/value"
)

// interpolate implements spec §4.6's two-step string template
// transform: literal "${expr}" becomes "{expr}"; escaped "\${expr}"
// becomes the literal text "${expr}" (the backslash consumed); any
// other "{...}" is left untouched. After that rewrite, positional
// placeholders "{i}" are substituted with args[i]'s rendered text.
func interpolate(template string, args []value.Value) string {
	rewritten := rewriteDollarBraces(template)
	return substitutePositional(rewritten, args)
}

func rewriteDollarBraces(s string) string {
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s) && s[i+1] == '$' && i+2 < len(s) && s[i+2] == '{':
			out.WriteString("${")
			i += 2
		case s[i] == '$' && i+1 < len(s) && s[i+1] == '{':
			out.WriteByte('{')
			i++
		default:
			out.WriteByte(s[i])
		}
	}
	return out.String()
}

func substitutePositional(s string, args []value.Value) string {
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		// A "{" surviving from an escaped "\${expr}" is preceded by the
		// literal "$" the escape preserved; leave that placeholder alone.
		if s[i] != '{' || (i > 0 && s[i-1] == '$') {
			out.WriteByte(s[i])
			continue
		}
		end := strings.IndexByte(s[i:], '}')
		if end < 0 {
			out.WriteByte(s[i])
			continue
		}
		end += i
		idxStr := s[i+1 : end]
		idx, err := strconv.Atoi(idxStr)
		if err != nil || idx < 0 || idx >= len(args) {
			out.WriteString(s[i : end+1])
			i = end
			continue
		}
		out.WriteString(args[idx].String())
		i = end
	}
	return out.String()
}
