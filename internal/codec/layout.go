package codec

import "strings"

// momentTokens maps moment.js style format tokens to Go reference layout fragments.
// Longer tokens come first so MMMM wins over MM.
var momentTokens = []struct {
	moment string
	layout string
}{
	{"YYYY", "2006"},
	{"YY", "06"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"MM", "01"},
	{"M", "1"},
	{"DD", "02"},
	{"D", "2"},
	{"dddd", "Monday"},
	{"ddd", "Mon"},
	{"HH", "15"},
	{"H", "15"},
	{"hh", "03"},
	{"h", "3"},
	{"mm", "04"},
	{"m", "4"},
	{"ss", "05"},
	{"s", "5"},
	{"A", "PM"},
	{"a", "pm"},
}

// Layout converts a moment-style format such as YYYY-MM-DD into a Go time layout.
// Text inside [brackets] is copied literally.
func Layout(moment string) string {
	var b strings.Builder
	for i := 0; i < len(moment); {
		if moment[i] == '[' {
			if end := strings.IndexByte(moment[i+1:], ']'); end >= 0 {
				b.WriteString(moment[i+1 : i+1+end])
				i += end + 2
				continue
			}
		}
		matched := false
		for _, tok := range momentTokens {
			if strings.HasPrefix(moment[i:], tok.moment) {
				b.WriteString(tok.layout)
				i += len(tok.moment)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(moment[i])
			i++
		}
	}
	return b.String()
}
