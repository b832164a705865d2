package supervisor

import "testing"

func TestMatches(t *testing.T) {
	cases := []struct {
		name    string
		tokens  []string
		cmdline string
		want    bool
	}{
		{"all tokens present", []string{"-m", "rasa", "run"}, "/usr/bin/python3 -m rasa run --enable-api", true},
		{"case insensitive", []string{"RASA", "TRAIN"}, "python3 -m rasa train", true},
		{"missing token", []string{"-m", "rasa", "train"}, "python3 -m rasa run", false},
		{"empty tokens", nil, "python3 -m rasa run", false},
		{"empty cmdline", []string{"rasa"}, "", false},
		{"substring over word boundary", []string{"rasa"}, "python3 -m rasactl", true},
	}
	for _, tc := range cases {
		if got := Matches(tc.tokens, tc.cmdline); got != tc.want {
			t.Errorf("%s: Matches(%v, %q)=%v want %v", tc.name, tc.tokens, tc.cmdline, got, tc.want)
		}
	}
}

func TestMatchTokensFallsBackToCommand(t *testing.T) {
	s := Spec{Command: []string{"python3", "-m", "rasa", "run"}}
	if got := s.MatchTokens(); len(got) != 4 {
		t.Fatalf("expected command tokens, got %v", got)
	}
	s.Match = []string{"-m", "rasa", "run"}
	if got := s.MatchTokens(); len(got) != 3 || got[0] != "-m" {
		t.Fatalf("expected match tokens, got %v", got)
	}
}

func TestCommandLine(t *testing.T) {
	s := Spec{Command: []string{"python3", "-m", "rasa", "train"}}
	if got := s.CommandLine(); got != "python3 -m rasa train" {
		t.Fatalf("unexpected command line: %q", got)
	}
}
