// Package common provides shared constants, types, utilities, and interfaces
// used throughout the TV Bridge backend.
//
// This package serves as the foundation for cross-cutting concerns:
//
//   - Constants: application-wide constants like timeouts, file names, and tunnel names
//   - Errors: sentinel errors for consistent error handling across packages
//   - Interfaces: abstractions for credential storage, notifications, and logging
//   - Logger: leveled logging with optional rotating file output
//   - Utils: common utility functions for file and directory handling
//
// # Usage
//
// Import the package to access shared functionality:
//
//	import "github.com/yllada/tvbridge/common"
//
//	// Use constants
//	timeout := common.VerifyTimeout
//
//	// Use logger
//	common.LogInfo("Connecting tunnel %s", name)
//
//	// Check errors
//	if errors.Is(err, common.ErrClientNotFound) {
//	    // Point the user at installation instructions
//	}
package common
