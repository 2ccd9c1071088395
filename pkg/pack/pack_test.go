package pack

import (
	"archive/zip"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func buildTree(t *testing.T) string {
	t.Helper()

	root := filepath.Join(t.TempDir(), "generated_map")
	files := map[string]string{
		"info.json":                            `{"name":"test"}`,
		"levels/generated_map/preview.jpg":     "jpegdata",
		"levels/generated_map/road_nodes.json": `{"nodes":[]}`,
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// Empty directory must survive archiving.
	if err := os.MkdirAll(filepath.Join(root, "models"), 0o755); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestZipEntryNames(t *testing.T) {
	root := buildTree(t)
	zipPath := filepath.Join(t.TempDir(), "generated_map.zip")

	if err := Zip(root, zipPath); err != nil {
		t.Fatalf("Zip() error: %v", err)
	}

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("opening archive: %v", err)
	}
	defer r.Close()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)

	want := []string{
		"generated_map/info.json",
		"generated_map/levels/",
		"generated_map/levels/generated_map/",
		"generated_map/levels/generated_map/preview.jpg",
		"generated_map/levels/generated_map/road_nodes.json",
		"generated_map/models/",
	}
	if len(names) != len(want) {
		t.Fatalf("archive entries = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestZipRoundTrip(t *testing.T) {
	root := buildTree(t)
	zipPath := filepath.Join(t.TempDir(), "generated_map.zip")
	if err := Zip(root, zipPath); err != nil {
		t.Fatalf("Zip() error: %v", err)
	}

	dest := t.TempDir()
	if err := Unzip(zipPath, dest); err != nil {
		t.Fatalf("Unzip() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dest, "generated_map", "info.json"))
	if err != nil {
		t.Fatalf("reading extracted file: %v", err)
	}
	if string(data) != `{"name":"test"}` {
		t.Errorf("extracted content = %q", data)
	}

	if fi, err := os.Stat(filepath.Join(dest, "generated_map", "models")); err != nil || !fi.IsDir() {
		t.Errorf("empty directory not restored: %v", err)
	}
}

func TestZipMissingSource(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "out.zip")
	if err := Zip(filepath.Join(t.TempDir(), "nope"), zipPath); err == nil {
		t.Error("Zip() expected error for missing source directory")
	}
}

func TestZipSourceIsFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Zip(src, filepath.Join(t.TempDir(), "out.zip")); err == nil {
		t.Error("Zip() expected error when source is a plain file")
	}
}
