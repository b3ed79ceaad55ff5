package crawler

import (
	"fmt"
	"time"
)

// titleFormatter builds display titles for untitled conversation
// messages from the sender name and creation timestamp.
type titleFormatter struct {
	layout string
	loc    *time.Location
}

// newTitleFormatter creates a formatter with a Go time layout and a
// timezone offset in minutes from UTC.
func newTitleFormatter(layout string, offsetMinutes int) titleFormatter {
	loc := time.UTC
	if offsetMinutes != 0 {
		loc = time.FixedZone(fmt.Sprintf("UTC%+03d:%02d",
			offsetMinutes/60, abs(offsetMinutes%60)), offsetMinutes*60)
	}
	return titleFormatter{layout: layout, loc: loc}
}

// format returns "<sender> <local time>", degrading to whichever part is
// available. An unparseable timestamp is used verbatim.
func (f titleFormatter) format(sender, created string) string {
	stamp := created
	if t, err := time.Parse(time.RFC3339, created); err == nil {
		stamp = t.In(f.loc).Format(f.layout)
	}
	switch {
	case sender == "":
		return stamp
	case stamp == "":
		return sender
	}
	return sender + " " + stamp
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
