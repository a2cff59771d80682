package identity

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
)

// DefaultWorkFactor is the scrypt work factor used to seal credential files.
const DefaultWorkFactor = 18

// CredentialFile stores a single bearer credential encrypted with an age
// passphrase. devdoxctl uses it so the token never sits on disk in clear text.
type CredentialFile struct {
	Path       string
	Passphrase string
	WorkFactor int
}

// DefaultCredentialsPath returns $XDG_CONFIG_HOME/devdox/credentials.age or the
// platform equivalent.
func DefaultCredentialsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config dir: %w", err)
	}
	return filepath.Join(dir, "devdox", "credentials.age"), nil
}

func (f CredentialFile) check() error {
	if f.Path == "" {
		return errors.New("credentials path is empty")
	}
	if f.Passphrase == "" {
		return errors.New("credentials passphrase is empty")
	}
	return nil
}

// Save encrypts token and writes it to Path with 0600 permissions.
func (f CredentialFile) Save(token string) error {
	if err := f.check(); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("refusing to save an empty credential")
	}

	recipient, err := age.NewScryptRecipient(f.Passphrase)
	if err != nil {
		return fmt.Errorf("creating recipient: %w", err)
	}
	if f.WorkFactor > 0 {
		recipient.SetWorkFactor(f.WorkFactor)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return fmt.Errorf("encrypting credential: %w", err)
	}
	if _, err := io.WriteString(w, token); err != nil {
		return fmt.Errorf("encrypting credential: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("encrypting credential: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("creating credentials dir: %w", err)
	}
	if err := os.WriteFile(f.Path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// Load decrypts the stored credential. A missing file yields "" and no error.
func (f CredentialFile) Load() (string, error) {
	if err := f.check(); err != nil {
		return "", err
	}

	sealed, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading credentials: %w", err)
	}

	identity, err := age.NewScryptIdentity(f.Passphrase)
	if err != nil {
		return "", fmt.Errorf("creating identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(sealed), identity)
	if err != nil {
		return "", fmt.Errorf("decrypting credentials: %w", err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decrypting credentials: %w", err)
	}
	return string(plain), nil
}

// Remove deletes the stored credential. Removing a missing file is not an error.
func (f CredentialFile) Remove() error {
	if f.Path == "" {
		return errors.New("credentials path is empty")
	}
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing credentials: %w", err)
	}
	return nil
}

// Token implements Provider by decrypting the file on every call.
func (f CredentialFile) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.Load()
}
