// Package auth locates the Gemini API key for local binaries and checks that
// it works. Lambda deployments load the key from SSM through lambdaboot.
package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// EnvAPIKey is the environment variable checked first for the key.
const EnvAPIKey = "GEMINI_API_KEY"

const (
	credentialDir  = ".proshot"
	credentialFile = "credentials.gpg"
	passphraseFile = ".gpg-passphrase"
)

// ErrNoAPIKey means neither the environment nor the credentials file had a key.
var ErrNoAPIKey = errors.New("gemini API key not found")

// decrypt turns the credentials file into the plaintext key. Swapped in tests.
var decrypt = decryptGPG

// GetAPIKey returns the Gemini API key from GEMINI_API_KEY, or failing that
// from the GPG-encrypted file at ~/.proshot/credentials.gpg.
func GetAPIKey() (string, error) {
	if key := strings.TrimSpace(os.Getenv(EnvAPIKey)); key != "" {
		log.Debug().Str("source", "env").Msg("Using Gemini API key")
		return key, nil
	}

	path, err := CredentialPath()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoAPIKey, err)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: set %s or store it encrypted at %s", ErrNoAPIKey, EnvAPIKey, path)
		}
		return "", fmt.Errorf("failed to read credentials file: %w", err)
	}

	key, err := decrypt(path)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt %s: %w", path, err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("%w: %s decrypted to an empty value", ErrNoAPIKey, path)
	}

	log.Debug().Str("source", "gpg").Str("file", path).Msg("Using Gemini API key")
	return key, nil
}

// CredentialPath returns ~/.proshot/credentials.gpg for the current user.
func CredentialPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, credentialDir, credentialFile), nil
}

func decryptGPG(path string) (string, error) {
	args := []string{"--decrypt", "--quiet"}
	if pp, ok := passphrasePath(); ok {
		log.Debug().Str("passphrase_file", pp).Msg("Decrypting credentials non-interactively")
		args = append(args, "--pinentry-mode", "loopback", "--passphrase-file", pp)
	}
	args = append(args, path)

	out, err := exec.Command("gpg", args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("gpg: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("gpg: %w", err)
	}
	return string(out), nil
}

// passphrasePath looks for .gpg-passphrase beside the executable, then in
// the working directory. Files readable by group or others are ignored.
func passphrasePath() (string, bool) {
	var dirs []string
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}

	for _, dir := range dirs {
		p := filepath.Join(dir, passphraseFile)
		fi, err := os.Stat(p)
		if err != nil {
			continue
		}
		if mode := fi.Mode().Perm(); mode&0o077 != 0 {
			log.Warn().
				Str("passphrase_file", p).
				Str("permissions", fmt.Sprintf("%04o", mode)).
				Msg("Passphrase file has insecure permissions (should be 0600); skipping")
			continue
		}
		return p, true
	}
	return "", false
}
