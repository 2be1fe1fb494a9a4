// Package bundle opens diagnostic bundles and reads the artifacts inside them.
package bundle

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

var (
	// ErrInputRequired is returned when no input path was supplied.
	ErrInputRequired = errors.New("input path is required")
	// ErrUnsupportedInput is returned for inputs that are neither a directory
	// nor a .zip/.ahs bundle.
	ErrUnsupportedInput = errors.New("unsupported input path: provide a directory or .ahs/.zip bundle")
	// ErrNoArtifacts is returned when a bundle holds nothing the parser reads.
	ErrNoArtifacts = errors.New("no supported files were discovered in the supplied input")
)

// IntakeOptions controls where and how bundles are unpacked.
type IntakeOptions struct {
	TempBase     string
	Keep         bool
	ExtractLimit int64
}

// Workspace is a bundle opened for reading. Root is the directory artifacts are
// discovered under.
type Workspace struct {
	Input   string
	Root    string
	tempDir string
	keep    bool
	logger  *slog.Logger
}

// Open resolves input into a readable workspace. Directories are used in place;
// archives are extracted into a fresh ahsdp_* temporary directory.
func Open(input string, opts IntakeOptions, logger *slog.Logger) (*Workspace, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(input) == "" {
		return nil, ErrInputRequired
	}
	abs, err := filepath.Abs(input)
	if err != nil {
		return nil, fmt.Errorf("resolve input: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		// A missing path can only be a bundle if it is named like one.
		if errors.Is(err, fs.ErrNotExist) && !IsArchive(abs) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedInput, abs)
		}
		return nil, fmt.Errorf("open input: %w", err)
	}

	ws := &Workspace{Input: abs, keep: opts.Keep, logger: logger}
	if info.IsDir() {
		ws.Root = abs
		return ws, nil
	}
	if !IsArchive(abs) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedInput, abs)
	}

	tempDir, err := os.MkdirTemp(opts.TempBase, "ahsdp_")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	ws.tempDir = tempDir

	root := filepath.Join(tempDir, "extracted")
	if err := os.MkdirAll(root, 0o755); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("create extract dir: %w", err)
	}
	if err := ExtractZip(abs, root, opts.ExtractLimit, logger); err != nil {
		_ = ws.Close()
		return nil, err
	}
	ws.Root = root
	return ws, nil
}

// IsArchive reports whether path names a bundle archive.
func IsArchive(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".zip") || strings.HasSuffix(lower, ".ahs")
}

// Preserved returns the temporary directory left on disk after Close, if any.
func (w *Workspace) Preserved() string {
	if w == nil || !w.keep {
		return ""
	}
	return w.tempDir
}

// Close removes the temporary directory unless the workspace was opened with
// Keep.
func (w *Workspace) Close() error {
	if w == nil || w.tempDir == "" || w.keep {
		return nil
	}
	if err := os.RemoveAll(w.tempDir); err != nil {
		return fmt.Errorf("remove temp dir: %w", err)
	}
	return nil
}

// ExtractZip unpacks the archive at zipPath under dest. Entries that would land
// outside dest are skipped, and extraction stops once the declared sizes of the
// written entries pass limit.
func ExtractZip(zipPath, dest string, limit int64, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	root, err := filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("resolve extract dir: %w", err)
	}

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open bundle %q: %w", zipPath, err)
	}
	defer r.Close()

	var total int64
	for _, f := range r.File {
		target, ok := containedPath(root, f.Name)
		if !ok {
			logger.Warn("skipping archive entry outside extract dir", slog.String("entry", f.Name))
			continue
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create %q: %w", f.Name, err)
			}
			continue
		}
		total += int64(f.UncompressedSize64)
		if limit > 0 && total > limit {
			logger.Warn("extract limit reached, remaining entries skipped",
				slog.String("bundle", zipPath),
				slog.Int64("limit_bytes", limit))
			break
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func containedPath(root, name string) (string, bool) {
	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return target, true
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create dir for %q: %w", f.Name, err)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %q: %w", f.Name, err)
	}
	defer rc.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %q: %w", f.Name, err)
	}
	if _, err := io.Copy(dst, io.LimitReader(rc, int64(f.UncompressedSize64))); err != nil {
		dst.Close()
		return fmt.Errorf("extract %q: %w", f.Name, err)
	}
	return dst.Close()
}
