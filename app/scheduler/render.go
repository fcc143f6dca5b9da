package scheduler

import (
	"math/rand"
	"regexp"
	"time"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// RenderTemplate substitutes {{key}} placeholders with values from vars.
// Placeholders without a matching variable are left verbatim so a broken
// contact list is visible in the delivered text instead of silently blank.
func RenderTemplate(content string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(content, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		if value, ok := vars[key]; ok {
			return value
		}
		return match
	})
}

// pacingDelay draws a uniform random delay in [min, max] seconds. Invalid
// bounds fall back to the 1-3s default window.
func pacingDelay(minSeconds, maxSeconds int) time.Duration {
	if minSeconds <= 0 {
		minSeconds = 1
	}
	if maxSeconds < minSeconds {
		maxSeconds = minSeconds + 2
	}
	spread := maxSeconds - minSeconds + 1
	return time.Duration(minSeconds+rand.Intn(spread)) * time.Second
}
