package fsx

import (
	"context"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/Abraxas-365/talentledger/pkg/errx"
)

// FileInfo describes one stored object
type FileInfo struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

type FileReader interface {
	ReadFile(ctx context.Context, name string) ([]byte, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

type FileWriter interface {
	WriteFile(ctx context.Context, name string, data []byte) error
	DeleteFile(ctx context.Context, name string) error
}

// FileSystem is the storage behind import files: a local directory or an S3 prefix
type FileSystem interface {
	FileReader
	FileWriter
	// List returns the files directly under dir, sorted by path
	List(ctx context.Context, dir string) ([]FileInfo, error)
	Move(ctx context.Context, from, to string) error
	Ping(ctx context.Context) error
}

// Clean normalizes a slash-separated relative name and rejects escapes above the root
func Clean(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	cleaned := strings.TrimPrefix(path.Clean("/"+name), "/")
	if cleaned == "" || cleaned == "." {
		return "", ErrInvalidPath().WithDetail("path", name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return "", ErrInvalidPath().WithDetail("path", name)
		}
	}
	return cleaned, nil
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("FSX")

var (
	CodeNotFound    = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "File not found")
	CodeInvalidPath = ErrRegistry.Register("INVALID_PATH", errx.TypeValidation, http.StatusBadRequest, "Invalid file path")
	CodeIO          = ErrRegistry.Register("IO", errx.TypeExternal, http.StatusBadGateway, "File storage operation failed")
)

func ErrNotFound() *errx.Error {
	return ErrRegistry.New(CodeNotFound)
}

func ErrInvalidPath() *errx.Error {
	return ErrRegistry.New(CodeInvalidPath)
}

func ErrIO(err error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeIO, err)
}
