package http

import (
	"net/http"
	"os"
)

// mediaFS serves uploaded files only. Directories look like missing files, so
// nobody can list the uploads of a user.
type mediaFS struct {
	fs http.FileSystem
}

func (m mediaFS) Open(name string) (http.File, error) {
	f, err := m.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
