// Package plugin discovers external pointer helpers and drives them as
// long-lived JSON-lines processes.
package plugin

import (
	"encoding/json"

	"github.com/ayusman/mudra/internal/pointer"
)

// CapabilityPointer marks a helper that can inject pointer events.
const CapabilityPointer = "pointer"

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Args         []string        `json:"args,omitempty"`
	Capabilities []string        `json:"capabilities"`
	Config       json.RawMessage `json:"config,omitempty"`
}

// Provides reports whether the manifest lists the capability.
func (m Manifest) Provides(capability string) bool {
	for _, c := range m.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// Request is one line written to the helper's stdin.
type Request struct {
	ID     uint64          `json:"id"`
	Action pointer.Action  `json:"action"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Response is one line read from the helper's stdout.
type Response struct {
	ID      uint64 `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
