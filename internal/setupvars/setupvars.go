// Package setupvars reads the resolver's `setupVars.conf` key=value file
// and resolves its domain/client exclusion lists, plus the degraded,
// file-based blocking-status fallback (§9's Open Question resolution: the
// control-socket `>status` route is canonical, this file check is the
// fallback used only when the resolver is unreachable).
//
// Grounded on original_source/src/setup_vars.rs (read_setup_vars) and
// original_source/src/dns/status.rs (the file-based status check).
package setupvars

import (
	"bufio"
	"os"
	"strings"

	"github.com/pihole/pihole-api/internal/apierror"
)

// Read reproduces read_setup_vars's exact substring-then-prefix-match
// algorithm: scan every line, skip lines that don't even contain entry as a
// substring, then among the remaining lines accept the first whose
// left-hand side of "=" equals entry exactly. Returns ("", false) if no
// matching line is found or the right-hand side is empty.
func Read(path, entry string) (string, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", false, apierror.Wrap(apierror.KindSharedMemoryReadError, "opening setupVars.conf", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, entry) {
			continue
		}

		idx := strings.Index(line, "=")
		if idx < 0 {
			continue
		}
		key := line[:idx]
		if key != entry {
			continue
		}

		// read_setup_vars splits on "=" and takes the second token from
		// the iterator, not everything past the first "=" — a value
		// containing its own "=" (e.g. a base64 hash) is truncated at
		// the next one.
		fields := strings.SplitN(line, "=", 3)
		if len(fields) < 2 || fields[1] == "" {
			return "", false, nil
		}
		return fields[1], true, nil
	}

	if err := scanner.Err(); err != nil {
		return "", false, apierror.Wrap(apierror.KindSharedMemoryReadError, "reading setupVars.conf", err)
	}
	return "", false, nil
}

// ReadList parses a comma-separated setupVars entry (e.g.
// API_EXCLUDE_DOMAINS, API_EXCLUDE_CLIENTS) into a slice, used to build
// internal/ftl/history.Exclusions.
func ReadList(path, entry string) ([]string, error) {
	value, found, err := Read(path, entry)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

// DisableLine is the exact line dnsmasq's generated config carries when
// gravity blocking is disabled, per original_source/src/dns/status.rs.
const DisableLine = "#addn-hosts=/etc/pihole/gravity.list"

// FileStatus is the degraded fallback status check: counts how many times
// DisableLine appears in the dnsmasq config. 0 occurrences -> "enabled", 1
// -> "disabled", file absent or the line appears >=2 times -> "unknown"
// (§8 seed scenario 4).
func FileStatus(dnsmasqConfigPath string) string {
	f, err := os.Open(dnsmasqConfigPath)
	if err != nil {
		return "unknown"
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if scanner.Text() == DisableLine {
			count++
		}
	}

	switch count {
	case 0:
		return "enabled"
	case 1:
		return "disabled"
	default:
		return "unknown"
	}
}
