package fswatch

import (
	"os"
	"path/filepath"
)

// canonicalize resolves path against the current working directory (if
// relative) and cleans it, without resolving symlinks — backends that need
// inode/device identity (for self-file-handle caching) do that themselves.
// Two Watch calls for paths that canonicalize equal are one registration.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// statPath stats path, translating ENOENT into the closed Kind set used by
// Watch.
func statPath(path string) (os.FileInfo, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errPathNotFound(path)
		}
		return nil, errIO(path, err)
	}
	return fi, nil
}
