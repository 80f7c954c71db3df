package session

import (
	"os"
	"path/filepath"
)

// FileCredentialStore keeps the session material as a single file under the
// auth directory, written atomically so a crash mid-save never leaves a
// truncated credential blob.
type FileCredentialStore struct {
	dir string
}

func NewFileCredentialStore(dir string) *FileCredentialStore {
	return &FileCredentialStore{dir: dir}
}

func (s *FileCredentialStore) path() string {
	return filepath.Join(s.dir, "creds.json")
}

func (s *FileCredentialStore) Load() ([]byte, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (s *FileCredentialStore) Save(creds []byte) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, creds, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path())
}
