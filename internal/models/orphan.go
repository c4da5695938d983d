package models

import (
	"time"

	"github.com/google/uuid"
)

// Delete phases of a remote resource
const (
	PhasePrimary      = "primary"
	PhaseCompensating = "compensating"
)

// OrphanedResource records a remote resource whose deletion failed.
// It never carries credential material, only the credential fingerprint.
type OrphanedResource struct {
	ID                    uuid.UUID   `json:"id"`
	Service               string      `json:"service"`
	ResourceID            string      `json:"resource_id"`
	ContentHash           ContentHash `json:"content_hash"`
	CredentialFingerprint string      `json:"credential_fingerprint"`
	Phase                 string      `json:"phase"`
	Error                 string      `json:"error"`
	CreatedAt             time.Time   `json:"created_at"`
}
