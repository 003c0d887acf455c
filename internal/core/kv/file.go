package kv

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/oops"
	"github.com/spf13/afero"
)

// File keeps one file per key under Dir. Writes go to a temp file first and are
// renamed into place, so a reader never sees a half-written value.
type File struct {
	fs  afero.Fs
	dir string
	mu  sync.Mutex
}

func NewFile(fs afero.Fs, dir string) (*File, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if err := fs.MkdirAll(dir, 0o700); err != nil {
		return nil, oops.In("kv").Code("KV_INIT_FAILED").With("dir", dir).Wrap(err)
	}
	return &File{fs: fs, dir: dir}, nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key))
}

func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	b, err := afero.ReadFile(f.fs, f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.In("kv").Code("KV_GET_FAILED").With("key", key).Wrap(err)
	}
	return b, nil
}

func (f *File) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := afero.TempFile(f.fs, f.dir, ".tmp-*")
	if err != nil {
		return oops.In("kv").Code("KV_SET_FAILED").With("key", key).Wrap(err)
	}
	name := tmp.Name()
	_, werr := tmp.Write(value)
	cerr := tmp.Close()
	if werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = f.fs.Rename(name, f.path(key))
	}
	if werr != nil {
		_ = f.fs.Remove(name)
		return oops.In("kv").Code("KV_SET_FAILED").With("key", key).Wrap(werr)
	}
	return nil
}

func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := f.fs.Remove(f.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return oops.In("kv").Code("KV_DELETE_FAILED").With("key", key).Wrap(err)
	}
	return nil
}
