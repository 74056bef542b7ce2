package fsutil

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_StatAndIsDir(t *testing.T) {
	fs := OSFileSystem{}
	dir := t.TempDir()
	file := filepath.Join(dir, "a.tif")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if !IsDir(fs, dir) {
		t.Errorf("expected %s to be a directory", dir)
	}
	if IsDir(fs, file) {
		t.Errorf("expected %s not to be a directory", file)
	}
	if !Exists(fs, file) {
		t.Errorf("expected %s to exist", file)
	}
	if Exists(fs, filepath.Join(dir, "missing.tif")) {
		t.Error("expected missing file to not exist")
	}

	data, err := ReadFile(fs, file)
	if err != nil || string(data) != "x" {
		t.Fatalf("ReadFile = %q, %v", data, err)
	}
}

func TestMemoryFileSystem_WriteAndOpen(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("/extracts/zurich-g100_clc00_V18_5.tif", []byte("raster"))

	if !IsDir(mfs, "/extracts") {
		t.Error("parent directory should be implied by WriteFile")
	}

	data, err := ReadFile(mfs, "/extracts/zurich-g100_clc00_V18_5.tif")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "raster" {
		t.Errorf("got %q, want %q", data, "raster")
	}

	info, err := mfs.Stat("/extracts/zurich-g100_clc00_V18_5.tif")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != 6 || info.IsDir() {
		t.Errorf("unexpected info: size=%d dir=%v", info.Size(), info.IsDir())
	}
}

func TestMemoryFileSystem_CreateNeedsParent(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if _, err := mfs.Create("/out/figure.png"); err == nil {
		t.Fatal("expected error creating file in missing directory")
	}

	if err := mfs.MkdirAll("/out", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	w, err := mfs.Create("/out/figure.png")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := io.WriteString(w, "png"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	files := mfs.Files()
	if len(files) != 1 || files[0] != "/out/figure.png" {
		t.Errorf("Files() = %v", files)
	}
}

func TestMemoryFileSystem_MkdirOverFile(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("/data", []byte("x"))
	if err := mfs.MkdirAll("/data", 0755); err == nil {
		t.Error("expected error creating a directory over a file")
	}
}
