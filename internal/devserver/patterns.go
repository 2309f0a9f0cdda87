package devserver

import (
	"regexp"
	"strings"
)

// The dev server tools do not speak a structured protocol; readiness is
// inferred by matching known textual forms of their output. The patterns
// below are an explicit, versioned table evaluated in a fixed priority
// order against the accumulated (ANSI-stripped) output. They are inherently
// best-effort and change with tool releases; nothing outside this package
// may depend on the raw text.

// Server-ready forms across tool versions. The capture group, when present,
// holds the advertised URL for older single-line forms.
var serverReadyPatterns = []*regexp.Regexp{
	// Current form: banner line, with the URLs on following lines.
	regexp.MustCompile(`(?i)dev server running`),
	// Legacy form: URL inline on the same line.
	regexp.MustCompile(`(?i)Running dev server:?\s*(https?://\S+)?`),
	regexp.MustCompile(`(?i)Development server (?:is )?running`),
}

// URL lines that follow the server-ready banner. The primary address comes
// first; "External" alternates are listed on following lines.
var (
	localURLPattern    = regexp.MustCompile(`(?im)^\s*(?:\[\w+\]\s*)?Local:\s*(https?://\S+)`)
	externalURLPattern = regexp.MustCompile(`(?im)^\s*(?:\[\w+\]\s*)?External:\s*(https?://\S+)`)
)

// App-ready forms by deploy sub-target.
var (
	// Simulator builds finish with a build-succeeded style message.
	simulatorReadyPattern = regexp.MustCompile(`(?i)build succeeded`)
	// Physical-device builds report bundling and lldb launch.
	deviceReadyPattern = regexp.MustCompile(`(?i)(bundle created|lldb run success)`)
	// Everything else reports a generic launch/run success.
	genericReadyPattern = regexp.MustCompile(`(?i)(launch success|run successful)`)
)

// Fatal forms: the tool reporting an error line.
var fatalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^\s*\[ERROR\].*$`),
	regexp.MustCompile(`(?im)^\s*Error:\s.*$`),
}

// Newer tool majors emit a benign network-probe message that matches the
// fatal forms but is not an error. It must not fail the session.
const (
	benignNetworkProbeSubstring  = "utils-network error while checking"
	benignNetworkProbeSinceMajor = 4
)

// Ambiguous-address failure: the tool cannot pick an address to serve on and
// lists the candidates as numbered lines. The caller cannot auto-resolve
// this; the addresses are surfaced verbatim as actionable guidance.
var (
	multipleInterfacesPattern = regexp.MustCompile(`Multiple network interfaces detected`)
	numberedAddressPattern    = regexp.MustCompile(`(?m)^\s*\d+\)\s*(.+?)\s*$`)
)

// Failure lines that correlate with an unresolvable network address deserve
// a more actionable message than the raw tool output.
var addressProblemPattern = regexp.MustCompile(`(?i)(EADDRNOTAVAIL|address (?:is )?not available|unable to determine (?:the )?network address)`)

// FindFatalOutput reports the last error-indicating line in tool output.
// Used by direct build+deploy runs, where a zero exit code is not sufficient
// evidence of success for some tools.
func FindFatalOutput(text string, toolMajorVersion int) (string, bool) {
	return findFatalLine(stripANSI(text), toolMajorVersion)
}

// findFatalLine returns the last line of text matching a fatal form,
// skipping the benign network probe on tool majors that emit it.
func findFatalLine(text string, toolMajorVersion int) (string, bool) {
	var lastMatch string
	found := false

	for _, p := range fatalPatterns {
		for _, m := range p.FindAllString(text, -1) {
			m = strings.TrimSpace(m)
			if toolMajorVersion >= benignNetworkProbeSinceMajor &&
				strings.Contains(m, benignNetworkProbeSubstring) {
				continue
			}
			lastMatch = m
			found = true
		}
	}

	return lastMatch, found
}

// captureURLs extracts the advertised URL list from ANSI-stripped output:
// primary address first, then any external alternates, then any URL captured
// inline by a legacy server-ready form.
func captureURLs(text string) []string {
	var urls []string
	seen := map[string]struct{}{}

	add := func(u string) {
		if u == "" {
			return
		}
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}

	if m := localURLPattern.FindStringSubmatch(text); m != nil {
		add(m[1])
	}
	for _, m := range externalURLPattern.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, p := range serverReadyPatterns {
		if m := p.FindStringSubmatch(text); m != nil && len(m) > 1 {
			add(m[1])
		}
	}

	return urls
}

// captureInterfaceAddresses extracts the numbered address list that follows
// the multiple-network-interfaces banner.
func captureInterfaceAddresses(text string) []string {
	idx := multipleInterfacesPattern.FindStringIndex(text)
	if idx == nil {
		return nil
	}

	var addrs []string
	for _, m := range numberedAddressPattern.FindAllStringSubmatch(text[idx[1]:], -1) {
		addrs = append(addrs, m[1])
	}
	return addrs
}
