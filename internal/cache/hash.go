package cache

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// HashFile returns the SHA-256 hex digest of the file at path on fs. It is
// the unit of change detection the manifest's FileHashes map records,
// grounded on the teacher's hashString helper in internal/repostate.
func HashFile(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// HashAll computes HashFile for every path in relativePaths, rooted at dir.
func HashAll(fs afero.Fs, dir string, relativePaths []string) (map[string]string, error) {
	out := make(map[string]string, len(relativePaths))
	for _, rel := range relativePaths {
		hash, err := HashFile(fs, joinRoot(dir, rel))
		if err != nil {
			return nil, err
		}
		out[rel] = hash
	}
	return out, nil
}

func joinRoot(dir, rel string) string {
	if dir == "" {
		return rel
	}
	return dir + "/" + rel
}
