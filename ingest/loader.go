package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/warp/cashflow-engine/cashflow"
)

// ErrInvalidBranch is returned when a branch code cannot be used in a file
// pattern.
var ErrInvalidBranch = errors.New("invalid branch code")

// Upload is an in-memory statement, typically a multipart file part.
type Upload struct {
	Name string
	Data []byte
}

// Source describes where a request's statements come from. Uploads take
// precedence; otherwise Files; otherwise every statement_{branch}_*.csv
// under the loader's data directory.
type Source struct {
	Branch  string
	Files   []string
	Uploads []Upload
}

// FileBacked is true when the statements have a stable identity on disk or
// in object storage, which is what makes them cacheable.
func (s Source) FileBacked() bool { return len(s.Uploads) == 0 }

// Loader resolves and decodes statement sources.
type Loader interface {
	// Resolve returns identity metadata for every file the source names.
	// Upload sources return nil.
	Resolve(ctx context.Context, src Source) ([]cashflow.SourceFile, error)

	// Load decodes every statement the source names.
	Load(ctx context.Context, src Source) ([]cashflow.Table, error)
}

// =============================================================================
// FILE LOADER
// =============================================================================

// FileLoader reads local CSV files and, when Objects is set, gs:// objects.
type FileLoader struct {
	DataDir string
	Objects ObjectStore
	log     zerolog.Logger
}

var _ Loader = (*FileLoader)(nil)

func NewFileLoader(dataDir string, objects ObjectStore, log zerolog.Logger) *FileLoader {
	return &FileLoader{DataDir: dataDir, Objects: objects, log: log}
}

// Pattern is the glob used to discover a branch's statements.
func (l *FileLoader) Pattern(branch string) string {
	return filepath.Join(l.DataDir, fmt.Sprintf("statement_%s_*.csv", branch))
}

func (l *FileLoader) Resolve(ctx context.Context, src Source) ([]cashflow.SourceFile, error) {
	if !src.FileBacked() {
		return nil, nil
	}
	paths, err := l.paths(src)
	if err != nil {
		return nil, err
	}

	files := make([]cashflow.SourceFile, 0, len(paths))
	for _, p := range paths {
		f, err := l.stat(ctx, p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func (l *FileLoader) Load(ctx context.Context, src Source) ([]cashflow.Table, error) {
	if !src.FileBacked() {
		tables := make([]cashflow.Table, 0, len(src.Uploads))
		for _, u := range src.Uploads {
			t, err := Decode(u.Name, bytes.NewReader(u.Data))
			if err != nil {
				return nil, fmt.Errorf("decode upload %s: %w", u.Name, err)
			}
			tables = append(tables, t)
		}
		return tables, nil
	}

	paths, err := l.paths(src)
	if err != nil {
		return nil, err
	}
	tables := make([]cashflow.Table, 0, len(paths))
	for _, p := range paths {
		t, err := l.decode(ctx, p)
		if err != nil {
			return nil, err
		}
		l.log.Debug().Str("source", p).Int("rows", len(t.Rows)).Msg("decoded statement")
		tables = append(tables, t)
	}
	return tables, nil
}

// paths lists explicit files as given, or the sorted glob matches.
func (l *FileLoader) paths(src Source) ([]string, error) {
	if len(src.Files) > 0 {
		return src.Files, nil
	}
	if src.Branch == "" || strings.ContainsAny(src.Branch, `/\*?[]`) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBranch, src.Branch)
	}

	pattern := l.Pattern(src.Branch)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no CSVs found for pattern %s", cashflow.ErrNoSources, pattern)
	}
	sort.Strings(matches)
	return matches, nil
}

func (l *FileLoader) stat(ctx context.Context, path string) (cashflow.SourceFile, error) {
	if IsGCSURI(path) {
		if l.Objects == nil {
			return cashflow.SourceFile{}, fmt.Errorf("object storage not configured for %s", path)
		}
		return l.Objects.Stat(ctx, path)
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return cashflow.SourceFile{}, fmt.Errorf("%w: %s", cashflow.ErrFileNotFound, path)
	}
	if err != nil {
		return cashflow.SourceFile{}, fmt.Errorf("stat %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return cashflow.SourceFile{Path: abs, ModTime: info.ModTime(), Size: info.Size()}, nil
}

func (l *FileLoader) decode(ctx context.Context, path string) (cashflow.Table, error) {
	rc, err := l.open(ctx, path)
	if err != nil {
		return cashflow.Table{}, err
	}
	defer rc.Close()

	t, err := Decode(path, rc)
	if err != nil {
		return cashflow.Table{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return t, nil
}

func (l *FileLoader) open(ctx context.Context, path string) (io.ReadCloser, error) {
	if IsGCSURI(path) {
		if l.Objects == nil {
			return nil, fmt.Errorf("object storage not configured for %s", path)
		}
		return l.Objects.Open(ctx, path)
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", cashflow.ErrFileNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}
