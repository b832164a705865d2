package supervisor

import (
	"strings"

	"github.com/ntphong404/rasa-control/internal/logger"
)

// Spec describes one supervised service invocation.
// Command is the full argv used to launch. Match holds the signature tokens
// used to find prior incarnations of the same logical service in the live
// process table; when empty, Command is used.
type Spec struct {
	Name    string        `json:"name"`
	Command []string      `json:"command"`
	Match   []string      `json:"match,omitempty"`
	WorkDir string        `json:"work_dir,omitempty"`
	Env     []string      `json:"env,omitempty"`
	Log     logger.Config `json:"log,omitempty"`
}

// MatchTokens returns the effective signature tokens for process matching.
func (s Spec) MatchTokens() []string {
	if len(s.Match) > 0 {
		return s.Match
	}
	return s.Command
}

// CommandLine joins the launch argv for display.
func (s Spec) CommandLine() string { return strings.Join(s.Command, " ") }

// Matches reports whether a live process command line belongs to the same
// logical service: every signature token, lowercased, must appear as a
// substring of the lowercased joined command line. Substring matching is
// deliberately approximate; it tolerates differing interpreter paths and
// supervisor restarts, with a known false-positive risk on short tokens.
func Matches(tokens []string, cmdline string) bool {
	if len(tokens) == 0 || cmdline == "" {
		return false
	}
	line := strings.ToLower(cmdline)
	for _, tok := range tokens {
		if !strings.Contains(line, strings.ToLower(tok)) {
			return false
		}
	}
	return true
}
