package storage

import (
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// Storage defines operations we need
type Storage interface {
	EnsureDirs() error
	SaveUpload(r io.Reader, filename string) (path string, n int64, err error)
	InputDir() string
	OutputDir() string
}

var ErrInvalidFilename = errors.New("invalid filename")

// Staging lays uploads out under <root>/input and separator results under
// <root>/output. Paths are shared by all requests; a second upload with the
// same name replaces the first.
type Staging struct {
	Root string
}

var _ Storage = (*Staging)(nil)

func NewStaging(root string) *Staging {
	if root == "" {
		root = "."
	}
	return &Staging{Root: root}
}

func (s *Staging) InputDir() string  { return filepath.Join(s.Root, "input") }
func (s *Staging) OutputDir() string { return filepath.Join(s.Root, "output") }

// EnsureDirs creates input/ and output/ if they are missing.
func (s *Staging) EnsureDirs() error {
	for _, d := range []string{s.InputDir(), s.OutputDir()} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", d)
		}
	}
	return nil
}

// SaveUpload writes r to input/<filename>, truncating any existing file.
func (s *Staging) SaveUpload(r io.Reader, filename string) (string, int64, error) {
	name, err := CleanFilename(filename)
	if err != nil {
		return "", 0, err
	}
	if err := s.EnsureDirs(); err != nil {
		return "", 0, err
	}

	full := filepath.Join(s.InputDir(), name)
	f, err := os.Create(full)
	if err != nil {
		return "", 0, errors.Wrapf(err, "create %s", full)
	}
	defer f.Close()

	n, err := io.Copy(f, r)
	if err != nil {
		return full, n, errors.Wrapf(err, "write %s", full)
	}
	return full, n, f.Close()
}

// CleanFilename keeps only the final path element of a client-supplied name.
func CleanFilename(filename string) (string, error) {
	name := filepath.Base(filepath.FromSlash(filename))
	switch name {
	case "", ".", "..", string(filepath.Separator):
		return "", errors.Wrapf(ErrInvalidFilename, "%q", filename)
	}
	return name, nil
}
