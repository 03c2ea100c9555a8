// Package keyring provides secure credential storage for VPN profiles.
// It uses the system keyring when available, falling back to an
// encrypted local file when not (e.g. headless sessions without a
// secret service).
package keyring

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	zkeyring "github.com/zalando/go-keyring"
	"golang.org/x/crypto/scrypt"

	"github.com/yllada/tvbridge/common"
)

// serviceName is the identifier used in the system keyring.
const serviceName = "tvbridge"

// Common errors returned by keyring operations.
var (
	ErrNotFound = errors.New("credential not found")
	ErrStorage  = errors.New("credential storage failed")
)

var (
	mu           sync.Mutex
	useLocalFile bool
	probed       bool
)

// useSystemKeyring probes the system keyring once; when it is not
// reachable all operations go through the encrypted local file.
func useSystemKeyring() bool {
	mu.Lock()
	defer mu.Unlock()
	if !probed {
		const probeKey = "tvbridge-probe"
		if err := zkeyring.Set(serviceName, probeKey, "probe"); err == nil {
			zkeyring.Delete(serviceName, probeKey)
			useLocalFile = false
		} else {
			common.LogWarn("System keyring unavailable, using encrypted file storage: %v", err)
			useLocalFile = true
		}
		probed = true
	}
	return !useLocalFile
}

// Set stores a password for the given profile ID.
func Set(profileID, password string) error {
	if useSystemKeyring() {
		if err := zkeyring.Set(serviceName, profileID, password); err != nil {
			return common.WrapError(ErrStorage, err.Error())
		}
		return nil
	}
	return fileSet(profileID, password)
}

// Get retrieves the password for the given profile ID.
func Get(profileID string) (string, error) {
	if useSystemKeyring() {
		secret, err := zkeyring.Get(serviceName, profileID)
		if err != nil {
			if errors.Is(err, zkeyring.ErrNotFound) {
				return "", ErrNotFound
			}
			return "", common.WrapError(ErrStorage, err.Error())
		}
		return secret, nil
	}
	return fileGet(profileID)
}

// Delete removes the password for the given profile ID. Deleting a
// missing credential is not an error.
func Delete(profileID string) error {
	if useSystemKeyring() {
		if err := zkeyring.Delete(serviceName, profileID); err != nil && !errors.Is(err, zkeyring.ErrNotFound) {
			return common.WrapError(ErrStorage, err.Error())
		}
		return nil
	}
	return fileDelete(profileID)
}

// Clear removes all credentials stored by the application.
func Clear() error {
	if useSystemKeyring() {
		// The keyring API has no enumeration; entries are removed as
		// their profiles are deleted. Clear only resets the fallback file.
		return nil
	}
	path, err := storePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return common.WrapError(ErrStorage, err.Error())
	}
	return nil
}

// Encrypted file fallback. Credentials are kept as a JSON map of
// profile ID to AES-GCM sealed password, keyed by a machine-derived
// scrypt key. This protects against casual file reads, not against an
// attacker with code execution as the same user.

func storePath() (string, error) {
	dir, err := common.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, common.CredentialsFileName), nil
}

// derivedKey builds the encryption key from machine-specific data.
func derivedKey() ([]byte, error) {
	hostname, _ := os.Hostname()
	machineID := readMachineID()
	seed := fmt.Sprintf("%s-%s-%s-%d", serviceName, hostname, machineID, os.Getuid())
	return scrypt.Key([]byte(seed), []byte(serviceName), 1<<15, 8, 1, 32)
}

func readMachineID() string {
	for _, path := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id"} {
		if data, err := os.ReadFile(path); err == nil {
			return string(data)
		}
	}
	return "unknown"
}

func loadStore() (map[string]string, error) {
	path, err := storePath()
	if err != nil {
		return nil, err
	}
	store := make(map[string]string)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, common.WrapError(ErrStorage, err.Error())
	}
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, common.WrapError(ErrStorage, err.Error())
	}
	return store, nil
}

func saveStore(store map[string]string) error {
	path, err := storePath()
	if err != nil {
		return err
	}
	data, err := json.Marshal(store)
	if err != nil {
		return common.WrapError(ErrStorage, err.Error())
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return common.WrapError(ErrStorage, err.Error())
	}
	return nil
}

func fileSet(profileID, password string) error {
	mu.Lock()
	defer mu.Unlock()

	sealed, err := encrypt(password)
	if err != nil {
		return err
	}
	store, err := loadStore()
	if err != nil {
		return err
	}
	store[profileID] = sealed
	return saveStore(store)
}

func fileGet(profileID string) (string, error) {
	mu.Lock()
	defer mu.Unlock()

	store, err := loadStore()
	if err != nil {
		return "", err
	}
	sealed, ok := store[profileID]
	if !ok {
		return "", ErrNotFound
	}
	return decrypt(sealed)
}

func fileDelete(profileID string) error {
	mu.Lock()
	defer mu.Unlock()

	store, err := loadStore()
	if err != nil {
		return err
	}
	delete(store, profileID)
	return saveStore(store)
}

func encrypt(plaintext string) (string, error) {
	key, err := derivedKey()
	if err != nil {
		return "", common.WrapError(ErrStorage, err.Error())
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", common.WrapError(ErrStorage, err.Error())
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", common.WrapError(ErrStorage, err.Error())
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", common.WrapError(ErrStorage, err.Error())
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func decrypt(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", common.WrapError(ErrStorage, err.Error())
	}
	key, err := derivedKey()
	if err != nil {
		return "", common.WrapError(ErrStorage, err.Error())
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", common.WrapError(ErrStorage, err.Error())
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", common.WrapError(ErrStorage, err.Error())
	}
	if len(raw) < gcm.NonceSize() {
		return "", common.WrapError(ErrStorage, "sealed credential too short")
	}
	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", common.WrapError(ErrStorage, err.Error())
	}
	return string(plaintext), nil
}
