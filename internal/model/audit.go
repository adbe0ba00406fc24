package model

import "time"

// AuditEntry records who did what to which resource.
type AuditEntry struct {
	ID           string            `json:"id"`
	ActorID      string            `json:"actorId"`
	Action       string            `json:"action"`
	ResourceType string            `json:"resourceType"`
	ResourceID   string            `json:"resourceId"`
	Details      map[string]string `json:"details,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}
