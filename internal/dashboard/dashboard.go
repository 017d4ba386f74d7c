// Package dashboard renders the four console views. Presenters are pure:
// they read controller snapshots and the policy and never touch a store.
package dashboard

import (
	"cmp"
	"slices"

	"github.com/nguyentranbao-ct/agent-console/internal/models"
	"github.com/nguyentranbao-ct/agent-console/internal/policy"
)

// Input is everything a presenter may look at. Slices hold what the actor
// is allowed to see; Errors holds the last error per collection.
type Input struct {
	Actor        models.Actor
	RequestsUsed int64
	StorageBytes int64
	Agents       []models.Agent
	Chatbots     []models.Chatbot
	APIKeys      []models.APIKey
	Tickets      []models.Ticket
	Users        []models.User
	AuditLogs    []models.AuditLogEntry
	Errors       map[models.ResourceType]error
}

// View is a rendered dashboard, ready for JSON encoding.
type View interface {
	Kind() policy.Dashboard
}

type Presenter func(Input) View

// Needs lists the collections a dashboard reads.
func Needs(kind policy.Dashboard) []models.ResourceType {
	switch kind {
	case policy.DashboardPro:
		return []models.ResourceType{models.ResourceAgent, models.ResourceChatbot, models.ResourceAPIKey}
	case policy.DashboardAdmin:
		return []models.ResourceType{models.ResourceUser, models.ResourceChatbot, models.ResourceTicket}
	case policy.DashboardSuperAdmin:
		return []models.ResourceType{models.ResourceUser, models.ResourceChatbot, models.ResourceAuditLog}
	}
	return []models.ResourceType{models.ResourceAgent, models.ResourceChatbot}
}

// Select picks the presenter for an actor.
func Select(role models.Role, tier models.Tier) Presenter {
	switch policy.DashboardFor(role, tier) {
	case policy.DashboardSuperAdmin:
		return SuperAdmin
	case policy.DashboardAdmin:
		return Admin
	case policy.DashboardPro:
		return Pro
	}
	return Free
}

// Render presents in with the presenter its actor gets.
func Render(in Input) View {
	return Select(in.Actor.Role, in.Actor.Tier)(in)
}

// Header is shared by every view.
type Header struct {
	View         policy.Dashboard  `json:"view"`
	Actor        models.Actor      `json:"actor"`
	Capabilities Capabilities      `json:"capabilities"`
	Errors       map[string]string `json:"errors,omitempty"`
}

func (h Header) Kind() policy.Dashboard { return h.View }

func header(kind policy.Dashboard, in Input) Header {
	h := Header{
		View:         kind,
		Actor:        in.Actor,
		Capabilities: capabilitiesFor(in),
	}
	for res, err := range in.Errors {
		if err == nil {
			continue
		}
		if h.Errors == nil {
			h.Errors = make(map[string]string)
		}
		h.Errors[string(res)] = err.Error()
	}
	return h
}

// Capabilities tell clients which actions to offer. They fold quotas in, so
// an action that would be refused shows up disabled instead of failing.
type Capabilities struct {
	CreateAgent      bool `json:"createAgent"`
	PublishAgent     bool `json:"publishAgent"`
	EditConfig       bool `json:"editConfig"`
	TestAgent        bool `json:"testAgent"`
	CreateChatbot    bool `json:"createChatbot"`
	CreateTicket     bool `json:"createTicket"`
	ResolveTicket    bool `json:"resolveTicket"`
	CreateAPIKey     bool `json:"createApiKey"`
	RegenerateAPIKey bool `json:"regenerateApiKey"`
	UpdateUser       bool `json:"updateUser"`
	AssignRole       bool `json:"assignRole"`
	DeleteUser       bool `json:"deleteUser"`
}

func capabilitiesFor(in Input) Capabilities {
	a := in.Actor
	can := func(res models.ResourceType, op models.Operation) bool {
		return policy.CanPerform(a.Tier, a.Role, res, op)
	}
	quota := policy.QuotaFor(a.Tier)
	bots := int64(len(ownedChatbots(in)))
	keys := int64(len(ownedKeys(in)))

	return Capabilities{
		CreateAgent:      can(models.ResourceAgent, models.OpCreate),
		PublishAgent:     can(models.ResourceAgent, models.OpPublish),
		EditConfig:       can(models.ResourceAgent, models.OpUpdate) && !policy.ReadOnlyConfig(a.Tier, bots),
		TestAgent:        can(models.ResourceAgent, models.OpRead) && policy.Allows(quota.MaxRequestsPerPeriod, in.RequestsUsed),
		CreateChatbot:    can(models.ResourceChatbot, models.OpCreate) && policy.Allows(quota.MaxChatbots, bots),
		CreateTicket:     can(models.ResourceTicket, models.OpCreate),
		ResolveTicket:    can(models.ResourceTicket, models.OpUpdate),
		CreateAPIKey:     can(models.ResourceAPIKey, models.OpCreate) && policy.Allows(quota.MaxAPIKeys, keys),
		RegenerateAPIKey: can(models.ResourceAPIKey, models.OpRegenerate),
		UpdateUser:       can(models.ResourceUser, models.OpUpdate),
		AssignRole:       policy.CanAssignRole(a.Role),
		DeleteUser:       can(models.ResourceUser, models.OpDelete),
	}
}

func ownedChatbots(in Input) []models.Chatbot {
	out := make([]models.Chatbot, 0, len(in.Chatbots))
	for _, c := range in.Chatbots {
		if c.OwnerEmail == in.Actor.Email {
			out = append(out, c)
		}
	}
	return out
}

func ownedKeys(in Input) []models.APIKey {
	out := make([]models.APIKey, 0, len(in.APIKeys))
	for _, k := range in.APIKeys {
		if k.OwnerID == in.Actor.UserID {
			out = append(out, k)
		}
	}
	return out
}

func sortedByID[T interface{ GetID() string }](list []T) []T {
	out := slices.Clone(list)
	slices.SortStableFunc(out, func(a, b T) int { return cmp.Compare(a.GetID(), b.GetID()) })
	return out
}
