package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// AuditLogEntry is append-only.
type AuditLogEntry struct {
	ID        ObjectID  `bson:"_id,omitempty" json:"id"`
	Action    string    `bson:"action" json:"action" validate:"required"`
	UserEmail string    `bson:"user_email" json:"userEmail" validate:"required,email"`
	Details   string    `bson:"details" json:"details"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	Version   int64     `bson:"version" json:"version"`
}

func (AuditLogEntry) CollectionName() string { return "auditLogs" }

func (e AuditLogEntry) GetID() string     { return string(e.ID) }
func (e AuditLogEntry) GetVersion() int64 { return e.Version }

func (e AuditLogEntry) Stamp(id string, version int64) AuditLogEntry {
	e.ID = ObjectID(id)
	e.Version = version
	return e
}

// AuditLogPatch exists to satisfy the adapter contract; audit entries are
// never patched by normal flows so it carries no fields.
type AuditLogPatch struct{}

func (AuditLogPatch) Apply(e AuditLogEntry) AuditLogEntry { return e }
func (AuditLogPatch) Fields() bson.M                      { return bson.M{} }

const (
	AuditAgentPublished = "agent.published"
	AuditTicketResolved = "ticket.resolved"
	AuditUserUpdated    = "user.updated"
	AuditRoleAssigned   = "user.role_assigned"
	AuditUserDeleted    = "user.deleted"
	AuditKeyRegenerated = "api_key.regenerated"
)
