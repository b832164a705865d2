package actionsfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleAction = `
class ActionHello(Action):
    def name(self) -> Text:
        return "action_hello"

    def run(self, dispatcher, tracker, domain):
        dispatcher.utter_message(text="hello")
        return []
`

func TestRenderValid(t *testing.T) {
	content, err := Render([]string{sampleAction})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(content, Header) {
		t.Fatal("generated file does not start with the import header")
	}
	if !strings.Contains(content, "class ActionHello(Action):") {
		t.Fatal("class definition missing from output")
	}
}

func TestRenderRejectsWholeBatch(t *testing.T) {
	_, err := Render([]string{sampleAction, "just a comment"})
	if err == nil {
		t.Fatal("expected rejection for entry without class definition")
	}
	if !strings.Contains(err.Error(), "index 1") {
		t.Fatalf("error should name the failing index: %v", err)
	}

	_, err = Render([]string{"   \n  "})
	if err == nil || !strings.Contains(err.Error(), "index 0") {
		t.Fatalf("expected empty-entry rejection naming index 0, got %v", err)
	}
}

func TestRenderDedentsEntries(t *testing.T) {
	indented := "    class ActionA(Action):\n        def name(self) -> Text:\n            return \"action_a\"\n"
	content, err := Render([]string{indented})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(content, "\nclass ActionA(Action):") {
		t.Fatal("entry was not dedented to column zero")
	}
}

func TestWriteAtomicReplacesWholesale(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "actions", "actions.py")
	if err := WriteAtomic(path, "old content"); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteAtomic(path, "new content"); err != nil {
		t.Fatalf("second write: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "new content" {
		t.Fatalf("unexpected content: %q", b)
	}
	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the handler file, got %d entries", len(entries))
	}
}

func TestNames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "actions.py")

	names, err := Names(path)
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("expected no names, got %v", names)
	}

	content, err := Render([]string{sampleAction})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if err := WriteAtomic(path, content); err != nil {
		t.Fatalf("write: %v", err)
	}
	names, err = Names(path)
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if len(names) != 1 || names[0] != "action_hello" {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestDedent(t *testing.T) {
	in := "    a\n      b\n\n    c"
	want := "a\n  b\n\nc"
	if got := Dedent(in); got != want {
		t.Fatalf("Dedent(%q)=%q want %q", in, got, want)
	}
	if got := Dedent("no indent"); got != "no indent" {
		t.Fatalf("unexpected change: %q", got)
	}
}
