package theme

import (
	"strconv"
	"strings"
	"time"
)

//TextContext supplies the values of label escapes
type TextContext struct {
	Hostname   string
	Domain     string
	Delay      int
	TimedLogin string
	Use24Clock bool
	//Now is used for %c, zero means the current time
	Now time.Time
}

//ExpandText replaces the escapes of label text:
//
//	%h hostname    %o domain      %d timed login delay
//	%s timed user  %c clock       %% a literal %
//
//An underscore underlines the next character with <u></u> markup.
func ExpandText(text string, tc TextContext) string {
	sb := strings.Builder{}
	sb.Grow(len(text))
	underline := false
	rs := []rune(text)
loop:
	for i := 0; i < len(rs); i++ {
		switch r := rs[i]; r {
		case '%':
			i++
			if i == len(rs) {
				break loop
			}
			switch rs[i] {
			case '%':
				sb.WriteByte('%')
			case 'h':
				sb.WriteString(orDefault(tc.Hostname, "localhost"))
			case 'o':
				sb.WriteString(orDefault(tc.Domain, "localdomain"))
			case 'd':
				sb.WriteString(strconv.Itoa(tc.Delay))
			case 's':
				sb.WriteString(tc.TimedLogin)
			case 'c':
				sb.WriteString(tc.clock())
			}
		case '_':
			underline = true
			sb.WriteString("<u>")
		default:
			sb.WriteRune(r)
			if underline {
				underline = false
				sb.WriteString("</u>")
			}
		}
	}
	if underline {
		sb.WriteString("</u>")
	}
	return sb.String()
}

func (tc TextContext) clock() string {
	now := tc.Now
	if now.IsZero() {
		now = time.Now()
	}
	if tc.Use24Clock {
		return now.Format("Mon Jan 02, 15:04")
	}
	return now.Format("Mon Jan 02, 03:04 PM")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
