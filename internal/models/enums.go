package models

// Tier is the subscription level of an account. It controls quotas.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

func (t Tier) Valid() bool {
	return t == TierFree || t == TierPro
}

// Role is the authorization level of an account. It controls which
// operations are legal.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// AtLeastAdmin reports whether r is admin or super_admin.
func (r Role) AtLeastAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

type ResourceType string

const (
	ResourceAgent    ResourceType = "agent"
	ResourceChatbot  ResourceType = "chatbot"
	ResourceTicket   ResourceType = "ticket"
	ResourceAPIKey   ResourceType = "apiKey"
	ResourceUser     ResourceType = "user"
	ResourceAuditLog ResourceType = "auditLog"
)

func (r ResourceType) Valid() bool {
	switch r {
	case ResourceAgent, ResourceChatbot, ResourceTicket, ResourceAPIKey, ResourceUser, ResourceAuditLog:
		return true
	}
	return false
}

type Operation string

const (
	OpCreate     Operation = "create"
	OpRead       Operation = "read"
	OpUpdate     Operation = "update"
	OpDelete     Operation = "delete"
	OpPublish    Operation = "publish"
	OpRegenerate Operation = "regenerate"
)

func (o Operation) Valid() bool {
	switch o {
	case OpCreate, OpRead, OpUpdate, OpDelete, OpPublish, OpRegenerate:
		return true
	}
	return false
}

// AllTiers, AllRoles, AllResources and AllOperations enumerate the known values.
var (
	AllTiers      = []Tier{TierFree, TierPro}
	AllRoles      = []Role{RoleUser, RoleAdmin, RoleSuperAdmin}
	AllResources  = []ResourceType{ResourceAgent, ResourceChatbot, ResourceTicket, ResourceAPIKey, ResourceUser, ResourceAuditLog}
	AllOperations = []Operation{OpCreate, OpRead, OpUpdate, OpDelete, OpPublish, OpRegenerate}
)

// Actor is the authenticated principal on whose behalf a session acts.
type Actor struct {
	UserID ObjectID `json:"userId"`
	Email  string   `json:"email"`
	Role   Role     `json:"role"`
	Tier   Tier     `json:"tier"`
}
