package store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/catnb/pkg/errors"
)

// File stores one file per key below a root directory.
type File struct {
	root string
}

// NewFile creates the root directory if needed.
func NewFile(root string) (*File, error) {
	if root == "" {
		return nil, errors.NewInvalidInputError("store.NewFile", "root directory cannot be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "store: create root directory")
	}
	return &File{root: root}, nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.root, filepath.FromSlash(key))
}

// Put writes to a temporary file and renames it into place so readers never
// observe a partial value.
func (f *File) Put(ctx context.Context, key string, value []byte) error {
	if err := checkKey("store.Put", key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p := f.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrap(err, "store: put")
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return errors.Wrap(err, "store: put")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return errors.Wrap(err, "store: put")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "store: put")
	}
	return errors.Wrap(os.Rename(tmp.Name(), p), "store: put")
}

func (f *File) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := checkKey("store.Get", key); err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "store: get")
	}
	return data, true, nil
}

func (f *File) Delete(ctx context.Context, key string) error {
	if err := checkKey("store.Delete", key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(f.path(key))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "store: delete")
	}
	return nil
}

func (f *File) Close() error { return nil }
