package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	extracts := filepath.Join(tmpDir, "extracts")
	outside := filepath.Join(tmpDir, "outside")
	for _, d := range []string{extracts, outside} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}
	if err := os.Symlink(outside, filepath.Join(extracts, "link")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	tests := []struct {
		name      string
		filePath  string
		wantError bool
	}{
		{"raster inside directory", filepath.Join(extracts, "zurich-g100_clc00_V18_5.tif"), false},
		{"nested path", filepath.Join(extracts, "sub", "a.tif"), false},
		{"parent traversal via slug", filepath.Join(extracts, "..", "outside", "a.tif"), true},
		{"directory itself", extracts, false},
		{"symlinked entry is not followed", filepath.Join(extracts, "link", "a.tif"), false},
		{"sibling with shared prefix", extracts + "-old", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, extracts)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidatePathWithinDirectory(%q) error = %v, wantError %v", tt.filePath, err, tt.wantError)
			}
		})
	}
}

func TestValidatePathWithinDirectory_NonexistentDir(t *testing.T) {
	if err := ValidatePathWithinDirectory("/virtual/extracts/a.tif", "/virtual/extracts"); err != nil {
		t.Errorf("unexpected error for lexical containment: %v", err)
	}
	if err := ValidatePathWithinDirectory("/virtual/a.tif", "/virtual/extracts"); err == nil {
		t.Error("expected error for path outside lexical directory")
	}
}

func TestSanitizeID(t *testing.T) {
	tests := map[string]string{
		"":                        "unknown",
		"zurich":                  "zurich",
		"proportion_of_landscape": "proportion_of_landscape",
		"new york/area":           "new_york_area",
		"..":                      "unknown",
		"são-paulo":               "s_o-paulo",
	}
	for in, want := range tests {
		if got := SanitizeID(in); got != want {
			t.Errorf("SanitizeID(%q) = %q, want %q", in, got, want)
		}
	}
}
