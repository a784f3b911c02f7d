package integrations

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// ZipArchiver writes deflate-compressed zip archives.
type ZipArchiver struct{}

var _ Archiver = (*ZipArchiver)(nil)

func NewZipArchiver() *ZipArchiver {
	return &ZipArchiver{}
}

// Archive zips srcDir into destPath. When srcDir is not below relativeTo the
// entries are rooted at srcDir's parent so the pack folder stays the top entry.
func (z *ZipArchiver) Archive(srcDir, destPath, relativeTo string) (int, error) {
	absSrc, err := filepath.Abs(srcDir)
	if err != nil {
		return 0, err
	}
	root := filepath.Dir(absSrc)
	if relativeTo != "" {
		absRel, err := filepath.Abs(relativeTo)
		if err != nil {
			return 0, err
		}
		if rel, err := filepath.Rel(absRel, absSrc); err == nil && !escapes(rel) {
			root = absRel
		}
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return 0, fmt.Errorf("failed to create archive directory: %w", err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create archive: %w", err)
	}
	defer out.Close()

	w := zip.NewWriter(out)
	count := 0

	err = filepath.WalkDir(absSrc, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = zip.Deflate

		entry, err := w.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", header.Name, err)
		}
		if err := copyInto(entry, path); err != nil {
			return fmt.Errorf("failed to add %s: %w", header.Name, err)
		}
		count++
		return nil
	})
	if err != nil {
		w.Close()
		return count, err
	}

	if err := w.Close(); err != nil {
		return count, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return count, out.Close()
}

func copyInto(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
