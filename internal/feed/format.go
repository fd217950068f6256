package feed

import (
	"fmt"
	"time"
)

// FormatTimestamp renders t relative to now the way the wall displays it.
func FormatTimestamp(now, t time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff/time.Minute))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff/time.Hour))
	default:
		return t.Format("Jan 2, 2006")
	}
}
