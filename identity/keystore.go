package identity

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// ensureKeyStore creates the key-store file and its parent directory with
// owner-only permissions if they don't already exist.
func ensureKeyStore(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating key store directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("creating key store file: %w", err)
		}
		f.Close()
	}

	return os.Chmod(path, 0o600)
}

// setKey writes or overwrites name=value in the dotenv-shaped key store at
// path. godotenv has no mutation API, so the full set is read, merged, and
// rewritten atomically via a temp-file-then-rename, matching the
// write-then-commit idiom used for every other mindhive flat-file store.
func setKey(path, name, value string) error {
	env, err := godotenv.Read(path)
	if err != nil {
		env = make(map[string]string)
	}
	env[name] = value

	tmp := path + ".tmp"
	if err := godotenv.Write(env, tmp); err != nil {
		return fmt.Errorf("writing key store temp file: %w", err)
	}
	if err := os.Chmod(tmp, 0o600); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("sealing key store temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("committing key store: %w", err)
	}

	return nil
}
