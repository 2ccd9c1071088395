// Package pack archives an assembled mod directory into the single zip file
// the game's mod manager installs.
package pack

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Zip writes every file under srcDir into a zip archive at zipPath. Entry
// names are rooted at the mod folder itself (the base name of srcDir), so an
// archive of /tmp/out/generated_map contains generated_map/info.json and so
// on. Directories get explicit entries so empty ones survive the round trip.
func Zip(srcDir, zipPath string) error {
	info, err := os.Stat(srcDir)
	if err != nil {
		return fmt.Errorf("stat source directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source %s is not a directory", srcDir)
	}

	f, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)

	root := filepath.Base(filepath.Clean(srcDir))
	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		// Symlinks could point outside the tree being archived; the
		// assembler never creates them, so reject rather than follow.
		if d.Type()&fs.ModeSymlink != 0 {
			return fmt.Errorf("refusing to archive symlink %s", rel)
		}

		name := root + "/" + filepath.ToSlash(rel)
		if d.IsDir() {
			_, err := w.Create(name + "/")
			return err
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := zip.FileInfoHeader(fi)
		if err != nil {
			return err
		}
		hdr.Name = name
		hdr.Method = zip.Deflate

		entry, err := w.CreateHeader(hdr)
		if err != nil {
			return err
		}

		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()

		_, err = io.Copy(entry, src)
		return err
	})
	if err != nil {
		w.Close()
		return fmt.Errorf("archiving %s: %w", srcDir, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return nil
}

// Unzip extracts an archive into destDir, rejecting entries that would
// escape it.
func Unzip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer r.Close()

	for _, entry := range r.File {
		target := filepath.Join(destDir, filepath.FromSlash(entry.Name))
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes destination", entry.Name)
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := extractFile(entry, target); err != nil {
			return fmt.Errorf("extracting %s: %w", entry.Name, err)
		}
	}
	return nil
}

func extractFile(entry *zip.File, target string) error {
	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, entry.Mode())
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}
