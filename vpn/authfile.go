// Package vpn implements VPN configuration parsing and connection
// management for the TV Bridge backend.
package vpn

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yllada/tvbridge/common"
)

// WriteAuthFile writes a temporary OpenVPN auth-user-pass file with
// restrictive permissions and returns its path together with a cleanup
// function. Callers must invoke cleanup once the client has started.
func WriteAuthFile(username, password string) (string, func(), error) {
	if username == "" && password == "" {
		return "", func() {}, nil
	}

	tmpDir := filepath.Join(os.TempDir(), common.ConfigDirName)
	if err := os.MkdirAll(tmpDir, 0700); err != nil {
		return "", nil, common.WrapError(err, "failed to create auth directory")
	}

	path := filepath.Join(tmpDir, fmt.Sprintf("auth-%d", time.Now().UnixNano()))
	content := fmt.Sprintf("%s\n%s\n", username, password)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return "", nil, common.WrapError(err, "failed to write auth file")
	}

	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			common.LogWarn("Could not remove auth file: %v", err)
		}
	}
	return path, cleanup, nil
}
