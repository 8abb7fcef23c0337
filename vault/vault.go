package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/crypto/scrypt"
)

const (
	saltLength  = 16
	nonceLength = 12
	keyLength   = 32

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// ErrNotFound is returned when no vault file exists yet.
var ErrNotFound = errors.New("vault: no stored session")

// Session is the auth state that outlives a process: the plex.tv token and
// the device's client identifier, which must stay stable across launches.
type Session struct {
	Username string `json:"username"`
	Token    string `json:"token"`
	ClientID string `json:"client_id"`
}

// Vault stores one Session encrypted at rest. Layout of the blob:
// salt || nonce || AES-GCM ciphertext, key derived from the passphrase
// with scrypt.
type Vault struct {
	path       string
	passphrase []byte
}

// New
func New(path, passphrase string) *Vault {
	return &Vault{
		path:       path,
		passphrase: []byte(passphrase),
	}
}

// Save encrypts the session and writes it to the vault file.
func (v *Vault) Save(s *Session) error {
	plain, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encode session")
	}

	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return errors.Wrap(err, "generate salt")
	}
	gcm, err := v.aead(salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, nonceLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return errors.Wrap(err, "generate nonce")
	}

	blob := make([]byte, 0, saltLength+nonceLength+len(plain)+gcm.Overhead())
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = gcm.Seal(blob, nonce, plain, nil)

	if err := os.MkdirAll(filepath.Dir(v.path), 0o700); err != nil {
		return errors.Wrap(err, "create vault directory")
	}
	if err := os.WriteFile(v.path, blob, 0o600); err != nil {
		return errors.Wrap(err, "write vault file")
	}
	return nil
}

// Load reads and decrypts the stored session. A wrong passphrase fails
// closed: GCM authentication rejects the blob.
func (v *Vault) Load() (*Session, error) {
	blob, err := os.ReadFile(v.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "read vault file")
	}
	if len(blob) < saltLength+nonceLength {
		return nil, errors.New("vault: blob too short")
	}

	salt := blob[:saltLength]
	nonce := blob[saltLength : saltLength+nonceLength]
	ciphertext := blob[saltLength+nonceLength:]

	gcm, err := v.aead(salt)
	if err != nil {
		return nil, err
	}
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.New("vault: wrong passphrase or corrupt file")
	}

	s := new(Session)
	if err := json.Unmarshal(plain, s); err != nil {
		return nil, errors.Wrap(err, "decode session")
	}
	return s, nil
}

// Close scrubs the passphrase from memory. The vault writes through on
// every Save, so shutdown only has key material to dispose of.
func (v *Vault) Close(ctx context.Context) error {
	for i := range v.passphrase {
		v.passphrase[i] = 0
	}
	v.passphrase = nil
	return nil
}

// Clear removes the vault file, signing the session out.
func (v *Vault) Clear() error {
	err := os.Remove(v.path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove vault file")
	}
	return nil
}

// aead derives the key for the given salt and builds the AES-GCM cipher.
func (v *Vault) aead(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(v.passphrase, salt, scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, errors.Wrap(err, "derive key")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "build cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "build gcm")
	}
	return gcm, nil
}
