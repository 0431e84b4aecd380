package utils

import (
	"fmt"
	"net/http"
	"time"
)

// AddServerTiming appends Server-Timing entries, e.g. {"load", "12"}.
func AddServerTiming(w http.ResponseWriter, kv ...[2]string) {
	if len(kv) == 0 {
		return
	}
	val := ""
	for i, p := range kv {
		if i > 0 {
			val += ", "
		}
		val += fmt.Sprintf("%s;dur=%s", p[0], p[1])
	}
	w.Header().Add("Server-Timing", val)
}

// Millis formats the time since start for AddServerTiming.
func Millis(start time.Time) string {
	return fmt.Sprintf("%d", time.Since(start).Milliseconds())
}
