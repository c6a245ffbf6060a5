package vlog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRotatingWriterRotatesPastMaxSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectura.log")

	w, err := NewRotatingWriter(path, 0, 2) // maxSize 0 forces rotation on every write
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer w.Close()

	for i := 0; i < 3; i++ {
		if _, err := w.Write([]byte("line\n")); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Errorf("expected rotated file %s.1 to exist: %v", path, err)
	}
}

func TestRotatingWriterCapsRotatedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectura.log")

	w, err := NewRotatingWriter(path, 0, 1)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer w.Close()

	for i := 0; i < 5; i++ {
		if _, err := w.Write([]byte("line\n")); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	if _, err := os.Stat(path + ".2"); err == nil {
		t.Errorf("expected %s.2 to have been pruned beyond maxFiles=1", path)
	}
}
