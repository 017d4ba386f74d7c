package dashboard

import (
	"cmp"
	"slices"

	"github.com/nguyentranbao-ct/agent-console/internal/models"
	"github.com/nguyentranbao-ct/agent-console/internal/policy"
	"github.com/nguyentranbao-ct/agent-console/pkg/util"
)

const upgradePrompt = "Upgrade to Pro for unlimited chatbots, API keys and 100x the request allowance."

type FreeView struct {
	Header
	Usage          Usage            `json:"usage"`
	Warnings       []string         `json:"warnings,omitempty"`
	Agents         []models.Agent   `json:"agents"`
	Chatbots       []models.Chatbot `json:"chatbots"`
	ReadOnlyConfig bool             `json:"readOnlyConfig"`
	UpgradePrompt  string           `json:"upgradePrompt"`
}

// Free shows the actor's own agents and at most as many chatbots as the
// tier allows.
func Free(in Input) View {
	usage := usageFor(in)
	bots := sortedByID(ownedChatbots(in))
	if limit := usage.Chatbots.Limit; limit != policy.Unlimited && int64(len(bots)) > limit {
		bots = bots[:limit]
	}
	return &FreeView{
		Header:         header(policy.DashboardFree, in),
		Usage:          usage,
		Warnings:       usage.warnings(),
		Agents:         ownedAgents(in),
		Chatbots:       bots,
		ReadOnlyConfig: policy.ReadOnlyConfig(in.Actor.Tier, usage.Chatbots.Used),
		UpgradePrompt:  upgradePrompt,
	}
}

type ProView struct {
	Header
	Usage    Usage            `json:"usage"`
	Warnings []string         `json:"warnings,omitempty"`
	Agents   []models.Agent   `json:"agents"`
	Chatbots []models.Chatbot `json:"chatbots"`
	APIKeys  []APIKeyRow      `json:"apiKeys"`
}

// APIKeyRow shows a key masked.
type APIKeyRow struct {
	ID        models.ObjectID `json:"id"`
	Name      string          `json:"name"`
	Preview   string          `json:"preview"`
	CreatedAt string          `json:"createdAt"`
}

func Pro(in Input) View {
	usage := usageFor(in)
	keys := util.ConvertList(sortedByID(ownedKeys(in)), func(k models.APIKey) APIKeyRow {
		return APIKeyRow{
			ID:        k.ID,
			Name:      k.Name,
			Preview:   maskKey(k.Key),
			CreatedAt: k.CreatedAt.Format("2006-01-02"),
		}
	})
	return &ProView{
		Header:   header(policy.DashboardPro, in),
		Usage:    usage,
		Warnings: usage.warnings(),
		Agents:   ownedAgents(in),
		Chatbots: sortedByID(ownedChatbots(in)),
		APIKeys:  keys,
	}
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:3] + "****" + key[len(key)-4:]
}

type AdminMetrics struct {
	ActiveUsers   int `json:"activeUsers"`
	ChatbotIssues int `json:"chatbotIssues"`
	OpenTickets   int `json:"openTickets"`
}

type AdminView struct {
	Header
	Metrics  AdminMetrics     `json:"metrics"`
	Users    []models.User    `json:"users"`
	Chatbots []models.Chatbot `json:"chatbots"`
	Tickets  []models.Ticket  `json:"tickets"`
}

// Admin lists every account, chatbot and ticket. Open tickets come first,
// newest first within each status.
func Admin(in Input) View {
	tickets := slices.Clone(in.Tickets)
	slices.SortStableFunc(tickets, func(a, b models.Ticket) int {
		if a.Status != b.Status {
			if a.Status == models.TicketOpen {
				return -1
			}
			if b.Status == models.TicketOpen {
				return 1
			}
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return &AdminView{
		Header: header(policy.DashboardAdmin, in),
		Metrics: AdminMetrics{
			ActiveUsers:   util.Count(in.Users, func(u models.User) bool { return u.Status == models.UserActive }),
			ChatbotIssues: util.Count(in.Chatbots, func(c models.Chatbot) bool { return c.Status == models.ChatbotNeedsAttention }),
			OpenTickets:   util.Count(in.Tickets, func(t models.Ticket) bool { return t.Status == models.TicketOpen }),
		},
		Users:    sortedByID(in.Users),
		Chatbots: sortedByID(in.Chatbots),
		Tickets:  tickets,
	}
}

type SuperAdminMetrics struct {
	TotalUsers     int `json:"totalUsers"`
	ActiveChatbots int `json:"activeChatbots"`
	ProUsers       int `json:"proUsers"`
	SuspendedUsers int `json:"suspendedUsers"`
}

type SuperAdminView struct {
	Header
	Metrics   SuperAdminMetrics      `json:"metrics"`
	Users     []models.User          `json:"users"`
	AuditLogs []models.AuditLogEntry `json:"auditLogs"`
}

func SuperAdmin(in Input) View {
	logs := slices.Clone(in.AuditLogs)
	slices.SortStableFunc(logs, func(a, b models.AuditLogEntry) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(b.GetID(), a.GetID())
	})

	return &SuperAdminView{
		Header: header(policy.DashboardSuperAdmin, in),
		Metrics: SuperAdminMetrics{
			TotalUsers:     len(in.Users),
			ActiveChatbots: util.Count(in.Chatbots, func(c models.Chatbot) bool { return c.Status == models.ChatbotActive }),
			ProUsers:       util.Count(in.Users, func(u models.User) bool { return u.Tier == models.TierPro }),
			SuspendedUsers: util.Count(in.Users, func(u models.User) bool { return u.Status == models.UserSuspended }),
		},
		Users:     sortedByID(in.Users),
		AuditLogs: logs,
	}
}

func ownedAgents(in Input) []models.Agent {
	return sortedByID(util.Filter(in.Agents, func(a models.Agent) bool { return a.OwnerID == in.Actor.UserID }))
}
