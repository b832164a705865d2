// Package actionsfile manages the Python action handler source consumed by
// the Rasa action server. The file is always rewritten wholesale from a batch
// of handler class definitions; callers never edit it in place.
package actionsfile

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Header prepended to every generated handler file.
const Header = `from typing import Any, Text, Dict, List
from rasa_sdk import Action, Tracker
from rasa_sdk.executor import CollectingDispatcher


`

var (
	classDefinitionRe = regexp.MustCompile(`class\s+(\w+)\s*\(`)
	actionNameRe      = regexp.MustCompile(`def name\(self\) -> Text:\s*return\s*["']([^"']+)["']`)
)

// Render validates every handler source and assembles the full file content.
// Each entry is dedented and trimmed and must contain a recognizable class
// definition; any failing entry rejects the whole batch before a single byte
// is written (validate-all-then-write-all).
func Render(sources []string) (string, error) {
	var b strings.Builder
	b.WriteString(Header)
	for i, src := range sources {
		clean := strings.TrimSpace(Dedent(src))
		if clean == "" {
			return "", fmt.Errorf("action at index %d is empty or invalid", i)
		}
		if !classDefinitionRe.MatchString(clean) {
			return "", fmt.Errorf("action at index %d has no valid class definition", i)
		}
		b.WriteString(clean)
		b.WriteString("\n\n\n")
	}
	return b.String(), nil
}

// WriteAtomic replaces the file at path with content via a temp file and
// rename, so a concurrent action-server restart sees either the fully old or
// fully new handler file, never a partial write.
func WriteAtomic(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".actions-*.py")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// Names extracts the registered action names from the handler file.
// A missing file yields an empty list, not an error.
func Names(path string) ([]string, error) {
	// #nosec G304 -- path comes from operator configuration
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	matches := actionNameRe.FindAllStringSubmatch(string(b), -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names, nil
}

// Dedent strips the longest common leading whitespace from all non-blank
// lines, mirroring Python's textwrap.dedent for indented heredoc-style input.
func Dedent(s string) string {
	lines := strings.Split(s, "\n")
	prefix := ""
	found := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if !found {
			prefix = indent
			found = true
			continue
		}
		for !strings.HasPrefix(indent, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
		if prefix == "" {
			break
		}
	}
	if prefix == "" {
		return s
	}
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	return strings.Join(lines, "\n")
}
