package shellcheck

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultSeverity reports every finding, style notes included.
	DefaultSeverity = "style"
	// sourcedFileCode is SC1091, "not following sourced file". The linter
	// only ever sees stdin, so it is always excluded.
	sourcedFileCode = "SC1091"
	wikiLinkCount   = 10
)

var severities = []string{"error", "warning", "info", "style"}

// Params are the per-run linter options.
type Params struct {
	// Shell is the dialect passed with --shell.
	Shell string
	// Severity is the minimum severity reported. Empty means style.
	Severity string
	// Exclude holds disabled inspection codes, either SC2086 or 2086.
	Exclude []string
}

// Args returns the command line for reading the script from stdin.
func (p Params) Args() []string {
	sev := p.Severity
	if sev == "" {
		sev = DefaultSeverity
	}
	shell := p.Shell
	if shell == "" {
		shell = DefaultShell
	}
	args := []string{
		"--color=never",
		"--format=json",
		"--severity=" + sev,
		"--shell=" + shell,
		"--wiki-link-count=" + strconv.Itoa(wikiLinkCount),
		"--exclude=" + sourcedFileCode,
		"-",
	}
	for _, code := range p.Exclude {
		if code = NormalizeCode(code); code != "" {
			args = append(args, "--exclude="+code)
		}
	}
	return args
}

// Validate checks the severity.
func (p Params) Validate() error {
	if p.Severity == "" {
		return nil
	}
	for _, s := range severities {
		if p.Severity == s {
			return nil
		}
	}
	return fmt.Errorf("invalid severity %q, expected one of %s", p.Severity, strings.Join(severities, ", "))
}

// NormalizeCode returns code in its SCxxxx form, or "" if it is not a
// shellcheck code.
func NormalizeCode(code string) string {
	code = strings.TrimSpace(code)
	digits := strings.TrimPrefix(strings.ToUpper(code), "SC")
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return ""
	}
	return "SC" + strconv.Itoa(n)
}

// WikiURL is the documentation page for a numeric code.
func WikiURL(code int) string {
	return fmt.Sprintf("https://github.com/koalaman/shellcheck/wiki/SC%d", code)
}
