// Package logparse extracts typed fields from access log lines.
//
// DESIGN: Pure extraction, no state and no I/O. The grammar is fixed:
// each field appears somewhere in the line as key="value". Lines that
// don't carry the full field set are not records - they are skipped
// silently, never treated as errors.
package logparse

import (
	"regexp"
	"strconv"
	"strings"
)

// Unknown is the value recorded when a field carries the "-" sentinel.
const Unknown = "unknown"

// Record holds the typed fields extracted from one log line.
// UpstreamStatus == 0 means no usable status (absent or unparseable).
type Record struct {
	Pool           string
	Release        string
	UpstreamStatus int
	UpstreamAddr   string
}

var (
	poolRe    = regexp.MustCompile(`pool="([^"]*)"`)
	releaseRe = regexp.MustCompile(`release="([^"]*)"`)
	statusRe  = regexp.MustCompile(`upstream_status="([^"]*)"`)
	addrRe    = regexp.MustCompile(`upstream_addr="([^"]*)"`)
)

// Parse extracts a Record from one raw log line.
// Returns false when the line does not carry the full field set.
func Parse(line string) (Record, bool) {
	pool := poolRe.FindStringSubmatch(line)
	release := releaseRe.FindStringSubmatch(line)
	status := statusRe.FindStringSubmatch(line)
	addr := addrRe.FindStringSubmatch(line)
	if pool == nil || release == nil || status == nil || addr == nil {
		return Record{}, false
	}

	return Record{
		Pool:           normalize(pool[1]),
		Release:        normalize(release[1]),
		UpstreamStatus: finalStatus(status[1]),
		UpstreamAddr:   addr[1],
	}, true
}

// normalize maps the "-" sentinel to Unknown.
func normalize(v string) string {
	if v == "-" || v == "" {
		return Unknown
	}
	return v
}

// finalStatus resolves the upstream_status value to one integer code.
// nginx records one code per retried upstream attempt, comma separated;
// only the last attempt's code is what the client actually saw.
func finalStatus(v string) int {
	parts := strings.Split(v, ",")
	last := strings.TrimSpace(parts[len(parts)-1])
	if last == "" || last == "-" {
		return 0
	}
	code, err := strconv.Atoi(last)
	if err != nil {
		return 0
	}
	return code
}
