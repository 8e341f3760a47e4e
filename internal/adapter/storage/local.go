package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aq2208/gstore-api/internal/usecase"
)

// Local writes files under Root/<container>/ and returns BaseURL/<container>/<name><ext>.
// The HTTP router serves Root at the path of BaseURL.
type Local struct {
	Root    string
	BaseURL string
}

func NewLocal(root, baseURL string) *Local {
	return &Local{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (s *Local) Save(_ context.Context, data []byte, _ string, ext, container, name string) (string, error) {
	file, err := cleanName(name + ext)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(s.Root, filepath.Clean(container))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, file), data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", file, err)
	}
	return s.BaseURL + "/" + path.Join(container, file), nil
}

// Delete removes the file a previous Save returned. Missing files are not an error.
func (s *Local) Delete(_ context.Context, ref, container string) error {
	file, err := fileFromRef(ref)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.Root, filepath.Clean(container), file))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func cleanName(name string) (string, error) {
	base := filepath.Base(name)
	if base == "." || base == "/" || base != name {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return base, nil
}

func fileFromRef(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse file ref: %w", err)
	}
	return cleanName(path.Base(u.Path))
}

var _ usecase.FileStorage = (*Local)(nil)
