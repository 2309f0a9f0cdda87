package devserver

import "regexp"

// Dev server tools colorize their output; escape sequences must be removed
// before URLs are captured or lines are surfaced in error messages.
var ansiEscapePattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

func stripANSI(s string) string {
	return ansiEscapePattern.ReplaceAllString(s, "")
}
