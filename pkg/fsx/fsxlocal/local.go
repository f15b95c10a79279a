package fsxlocal

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/Abraxas-365/talentledger/pkg/fsx"
)

// LocalFileSystem stores files below a base directory
type LocalFileSystem struct {
	basePath string
}

// NewLocalFileSystem creates basePath when missing. An empty basePath means
// the working directory.
func NewLocalFileSystem(basePath string) (*LocalFileSystem, error) {
	if basePath == "" {
		basePath = "."
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fsx.ErrIO(err).WithDetail("path", basePath)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fsx.ErrIO(err).WithDetail("path", abs)
	}
	return &LocalFileSystem{basePath: abs}, nil
}

func (l *LocalFileSystem) GetBasePath() string {
	return l.basePath
}

func (l *LocalFileSystem) resolve(name string) (string, error) {
	cleaned, err := fsx.Clean(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.basePath, filepath.FromSlash(cleaned)), nil
}

func (l *LocalFileSystem) ReadFile(ctx context.Context, name string) ([]byte, error) {
	rc, err := l.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fsx.ErrIO(err).WithDetail("path", name)
	}
	return data, nil
}

func (l *LocalFileSystem) Open(_ context.Context, name string) (io.ReadCloser, error) {
	p, err := l.resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, wrap(err, name)
	}
	return f, nil
}

func (l *LocalFileSystem) WriteFile(_ context.Context, name string, data []byte) error {
	p, err := l.resolve(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fsx.ErrIO(err).WithDetail("path", name)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fsx.ErrIO(err).WithDetail("path", name)
	}
	return nil
}

func (l *LocalFileSystem) DeleteFile(_ context.Context, name string) error {
	p, err := l.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return wrap(err, name)
	}
	return nil
}

func (l *LocalFileSystem) List(_ context.Context, dir string) ([]fsx.FileInfo, error) {
	root := l.basePath
	prefix := ""
	if dir != "" {
		cleaned, err := fsx.Clean(dir)
		if err != nil {
			return nil, err
		}
		root = filepath.Join(l.basePath, filepath.FromSlash(cleaned))
		prefix = cleaned + "/"
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []fsx.FileInfo{}, nil
		}
		return nil, fsx.ErrIO(err).WithDetail("path", dir)
	}

	files := make([]fsx.FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fsx.FileInfo{
			Path:    prefix + e.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (l *LocalFileSystem) Move(_ context.Context, from, to string) error {
	src, err := l.resolve(from)
	if err != nil {
		return err
	}
	dst, err := l.resolve(to)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fsx.ErrIO(err).WithDetail("path", to)
	}
	if err := os.Rename(src, dst); err != nil {
		return wrap(err, from)
	}
	return nil
}

func (l *LocalFileSystem) Ping(context.Context) error {
	info, err := os.Stat(l.basePath)
	if err != nil {
		return fsx.ErrIO(err).WithDetail("path", l.basePath)
	}
	if !info.IsDir() {
		return fsx.ErrIO(errors.New("base path is not a directory")).WithDetail("path", l.basePath)
	}
	return nil
}

func wrap(err error, name string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fsx.ErrNotFound().WithDetail("path", name)
	}
	return fsx.ErrIO(err).WithDetail("path", name)
}
