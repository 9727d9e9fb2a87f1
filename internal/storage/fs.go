// Package storage keeps uploaded exam papers on the local filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// URLPrefix is the public path under which stored files are served.
const URLPrefix = "/uploads"

var illegalChars = strings.NewReplacer(
	"<", "", ">", "", ":", "", `"`, "", "/", "", `\`, "", "|", "", "?", "", "*", "",
)

type FS struct {
	base string
}

// NewFS returns a store rooted at base, creating the directory if needed.
func NewFS(base string) (*FS, error) {
	if base == "" {
		base = "./uploads"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FS{base: base}, nil
}

// Dir returns the directory files are written to.
func (s *FS) Dir() string { return s.base }

// Put writes r under a unique name derived from filename and returns the
// reference to store on the exam, e.g. "/uploads/paper-1a2b3c4d.pdf".
func (s *FS) Put(ctx context.Context, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := UniqueName(filename)
	dst := filepath.Join(s.base, name)
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	slog.Info("stored upload", "name", name)
	return path.Join(URLPrefix, name), nil
}

// Remove deletes the file behind a reference returned by Put. References
// outside URLPrefix and files already gone are ignored.
func (s *FS) Remove(ref string) error {
	name, ok := strings.CutPrefix(ref, URLPrefix+"/")
	if !ok || name == "" || strings.ContainsAny(name, `/\`) {
		return nil
	}
	err := os.Remove(filepath.Join(s.base, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	slog.Info("removed upload", "name", name)
	return nil
}

// Sanitize strips characters that are illegal in file names on common
// filesystems. An empty result becomes "upload".
func Sanitize(filename string) string {
	cleaned := strings.TrimSpace(illegalChars.Replace(filename))
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return "upload"
	}
	return cleaned
}

// UniqueName sanitises filename and inserts a random suffix before the extension.
func UniqueName(filename string) string {
	safe := Sanitize(filename)
	ext := filepath.Ext(safe)
	base := strings.TrimSuffix(safe, ext)
	return fmt.Sprintf("%s-%s%s", base, uuid.NewString()[:8], ext)
}
