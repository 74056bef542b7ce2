package cli

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractEatAll(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		saveOthers bool
		wantValues []string
		wantRest   []string
	}{
		{
			name:       "stops at next option",
			args:       []string{"dir", "--metrics", "a", "b", "--html", "x.html", "out.png"},
			saveOthers: true,
			wantValues: []string{"a", "b"},
			wantRest:   []string{"dir", "--html", "x.html", "out.png"},
		},
		{
			name:       "runs to the end",
			args:       []string{"--metrics", "a", "b", "c"},
			saveOthers: true,
			wantValues: []string{"a", "b", "c"},
			wantRest:   []string{},
		},
		{
			name:       "inline value keeps eating",
			args:       []string{"--metrics=a", "b", "--html", "x.html"},
			saveOthers: true,
			wantValues: []string{"a", "b"},
			wantRest:   []string{"--html", "x.html"},
		},
		{
			name:       "single dash value is eaten",
			args:       []string{"--metrics", "a", "-x", "b"},
			saveOthers: true,
			wantValues: []string{"a", "-x", "b"},
			wantRest:   []string{},
		},
		{
			name:       "single dash spelling",
			args:       []string{"-metrics", "a"},
			saveOthers: true,
			wantValues: []string{"a"},
			wantRest:   []string{},
		},
		{
			name:       "first value taken even if it looks like an option",
			args:       []string{"--metrics", "-x", "y"},
			saveOthers: true,
			wantValues: []string{"-x", "y"},
			wantRest:   []string{},
		},
		{
			name:       "last occurrence wins",
			args:       []string{"--metrics", "a", "b", "--metrics", "c"},
			saveOthers: true,
			wantValues: []string{"c"},
			wantRest:   []string{},
		},
		{
			name:       "terminator stops eating",
			args:       []string{"--metrics", "a", "--", "--metrics", "b"},
			saveOthers: true,
			wantValues: []string{"a"},
			wantRest:   []string{"--", "--metrics", "b"},
		},
		{
			name:       "eat everything",
			args:       []string{"dir", "--metrics", "a", "--html", "x"},
			saveOthers: false,
			wantValues: []string{"a", "--html", "x"},
			wantRest:   []string{"dir"},
		},
		{
			name:       "prefix of another option name",
			args:       []string{"--metrics-file", "a"},
			saveOthers: true,
			wantValues: nil,
			wantRest:   []string{"--metrics-file", "a"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt := NewEatAll("metrics", "")
			opt.SaveOtherOptions = tt.saveOthers
			rest, err := ExtractEatAll(tt.args, opt)
			if err != nil {
				t.Fatalf("ExtractEatAll() error = %v", err)
			}
			if diff := cmp.Diff(tt.wantValues, opt.Values); diff != "" {
				t.Errorf("values mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantRest, rest); diff != "" {
				t.Errorf("rest mismatch (-want +got):\n%s", diff)
			}
			if got, want := opt.Seen(), tt.wantValues != nil; got != want {
				t.Errorf("Seen() = %v, want %v", got, want)
			}
		})
	}
}

func TestExtractEatAll_MissingValue(t *testing.T) {
	if _, err := ExtractEatAll([]string{"dir", "--metrics"}, NewEatAll("metrics", "")); err == nil {
		t.Fatal("expected error for option without a value")
	}
}

func TestExtractEatAll_SeveralOptions(t *testing.T) {
	m := NewEatAll("metrics", "")
	b := NewEatAll("clc-basenames", "")
	s := NewEatAll("agglomeration-slugs", "")
	rest, err := ExtractEatAll([]string{
		"--agglomeration-slugs", "bern", "zurich",
		"dir",
		"--metrics", "total_area",
		"--clc-basenames", "g100_clc00_V18_5", "g100_clc06_V18_5",
	}, m, b, s)
	if err != nil {
		t.Fatal(err)
	}
	// "dir" is eaten by --agglomeration-slugs: positionals must come before
	// an eat-all option or after a regular option.
	if diff := cmp.Diff([]string{"bern", "zurich", "dir"}, s.Values); diff != "" {
		t.Errorf("slugs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"g100_clc00_V18_5", "g100_clc06_V18_5"}, b.Values); diff != "" {
		t.Errorf("basenames mismatch (-want +got):\n%s", diff)
	}
	if len(rest) != 0 {
		t.Errorf("rest = %v, want empty", rest)
	}
}

func TestEatAll_FlagValue(t *testing.T) {
	e := NewEatAll("metrics", "")
	_ = e.Set("a")
	_ = e.Set("b")
	if got := e.String(); got != "a b" {
		t.Errorf("String() = %q", got)
	}
	var nilOpt *EatAll
	if nilOpt.String() != "" {
		t.Error("nil String() should be empty")
	}
}
