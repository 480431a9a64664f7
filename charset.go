package xdmcpscan

import (
	"strings"
	"unicode/utf8"

	"github.com/axgle/mahonia"
)

//maxStatus is the longest status message kept from a WILLING reply
const maxStatus = 256

//statusDecoder turns the status bytes of a WILLING reply into text.
//Old display managers send their status in a legacy charset.
type statusDecoder struct {
	dec mahonia.Decoder
}

func newStatusDecoder(charset string) *statusDecoder {
	if charset == "" {
		charset = "ISO-8859-1"
	}
	return &statusDecoder{dec: mahonia.NewDecoder(charset)}
}

func (d *statusDecoder) decode(b []byte) string {
	if utf8.Valid(b) {
		if len(b) <= maxStatus {
			return string(b)
		}
		//cut on a rune boundary
		n := maxStatus
		for n > 0 && !utf8.RuneStart(b[n]) {
			n--
		}
		return string(b[:n])
	}
	if len(b) > maxStatus {
		b = b[:maxStatus]
	}
	if d.dec == nil {
		return strings.ToValidUTF8(string(b), "?")
	}
	return d.dec.ConvertString(string(b))
}
