package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nguyentranbao-ct/agent-console/internal/dashboard"
	"github.com/nguyentranbao-ct/agent-console/internal/llm"
	"github.com/nguyentranbao-ct/agent-console/internal/models"
	"github.com/nguyentranbao-ct/agent-console/internal/store/memstore"
	"github.com/nguyentranbao-ct/agent-console/internal/usage"
	"github.com/nguyentranbao-ct/agent-console/internal/validate"
	"github.com/nguyentranbao-ct/agent-console/pkg/crypto"
)

type recordingPublisher struct {
	mu      sync.Mutex
	entries []models.AuditLogEntry
	err     error
}

func (p *recordingPublisher) PublishAudit(_ context.Context, e models.AuditLogEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.entries = append(p.entries, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e.Action)
	}
	return out
}

type fixture struct {
	users     *memstore.Collection[models.User]
	agents    *memstore.Collection[models.Agent]
	chatbots  *memstore.Collection[models.Chatbot]
	tickets   *memstore.Collection[models.Ticket]
	apiKeys   *memstore.Collection[models.APIKey]
	auditLogs *memstore.Collection[models.AuditLogEntry]
	meter     *usage.MemoryMeter
	published *recordingPublisher
	console   *ConsoleUsecase
}

func newFixture(t *testing.T, users ...models.User) *fixture {
	t.Helper()
	f := &fixture{
		users:     memstore.New("users", users...),
		agents:    memstore.New[models.Agent]("agents"),
		chatbots:  memstore.New[models.Chatbot]("chatbots"),
		tickets:   memstore.New[models.Ticket]("tickets"),
		apiKeys:   memstore.New[models.APIKey]("apiKeys"),
		auditLogs: memstore.New[models.AuditLogEntry]("auditLogs"),
		meter:     usage.NewMemoryMeter(nil),
		published: &recordingPublisher{},
	}
	stores := Stores{
		Users:     f.users,
		Agents:    f.agents,
		Chatbots:  f.chatbots,
		Tickets:   f.tickets,
		APIKeys:   f.apiKeys,
		AuditLogs: f.auditLogs,
	}
	audit := NewAuditUsecase(stores, f.published)
	f.console = NewConsoleUsecase(stores, memstore.NewUsers(f.users), audit, f.meter, usage.NewMemoryLocker(), llm.NewEchoRunner(nil), validate.New())
	return f
}

func (f *fixture) open(t *testing.T, u models.User) *Session {
	t.Helper()
	claims := &models.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: string(u.ID)}}
	s, err := f.console.Open(context.Background(), claims)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func newUser(email string, role models.Role, tier models.Tier) models.User {
	return models.User{
		ID:     models.NewObjectID(),
		Email:  email,
		Role:   role,
		Status: models.UserActive,
		Tier:   tier,
	}
}

var (
	freeUser  = newUser("free@x.com", models.RoleUser, models.TierFree)
	proUser   = newUser("pro@x.com", models.RoleUser, models.TierPro)
	adminUser = newUser("admin@x.com", models.RoleAdmin, models.TierPro)
	rootUser  = newUser("root@x.com", models.RoleSuperAdmin, models.TierPro)
)

func TestOpen(t *testing.T) {
	suspended := newUser("s@x.com", models.RoleUser, models.TierFree)
	suspended.Status = models.UserSuspended
	f := newFixture(t, freeUser, suspended)

	s := f.open(t, freeUser)
	assert.Equal(t, freeUser.Actor(), s.Actor())

	_, err := f.console.Open(context.Background(), &models.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: string(suspended.ID)}})
	assert.ErrorIs(t, err, models.ErrAccountSuspended)

	_, err = f.console.Open(context.Background(), &models.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: string(models.NewObjectID())}})
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestOpenUsesStoredRole(t *testing.T) {
	f := newFixture(t, adminUser)
	claims := &models.Claims{Role: models.RoleUser, RegisteredClaims: jwt.RegisteredClaims{Subject: string(adminUser.ID)}}
	s, err := f.console.Open(context.Background(), claims)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, models.RoleAdmin, s.Actor().Role)
}

func TestFreeTierChatbotQuota(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, freeUser)
	f.chatbots = memstore.New("chatbots", models.Chatbot{Name: "mine", OwnerEmail: freeUser.Email, Status: models.ChatbotActive})
	f.console.stores.Chatbots = f.chatbots
	s := f.open(t, freeUser)

	_, err := s.CreateChatbot(ctx, models.ChatbotInput{Name: "second"})
	var perr *models.PolicyError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, models.PolicyQuotaExceeded, perr.Kind)
	assert.Equal(t, 0, f.chatbots.Writes())

	c, err := s.chatbotController()
	require.NoError(t, err)
	require.Len(t, c.Snapshot(), 1)
	assert.Equal(t, "mine", c.Snapshot()[0].Name)
	assert.NoError(t, c.LastError())
}

func TestFreeTierChatbotQuotaAcrossSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, freeUser)
	first := f.open(t, freeUser)
	second := f.open(t, freeUser)

	release := f.chatbots.Hold()
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, s := range []*Session{first, second} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.CreateChatbot(ctx, models.ChatbotInput{Name: "bot"})
		}()
	}
	time.Sleep(20 * time.Millisecond)
	release()
	wg.Wait()

	var ok, refused int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, models.ErrQuotaExceeded):
			refused++
		default:
			assert.Fail(t, "unexpected error", "%v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, refused)

	list, err := f.chatbots.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestProTierChatbotsUnlimited(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, proUser)
	s := f.open(t, proUser)

	for i := 0; i < 3; i++ {
		_, err := s.CreateChatbot(ctx, models.ChatbotInput{Name: "bot"})
		require.NoError(t, err)
	}
	list, err := f.chatbots.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.Equal(t, proUser.Email, list[0].OwnerEmail)
	assert.Equal(t, models.ChatbotActive, list[0].Status)
}

func TestResolveTicketIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, adminUser)
	f.tickets = memstore.New("tickets",
		models.Ticket{ID: "000000000000000000000001", Subject: "done", UserEmail: "a@x.com", Status: models.TicketResolved},
		models.Ticket{ID: "000000000000000000000002", Subject: "help", UserEmail: "a@x.com", Status: models.TicketOpen},
	)
	f.console.stores.Tickets = f.tickets
	s := f.open(t, adminUser)

	require.NoError(t, s.ResolveTicket(ctx, "000000000000000000000001"))
	assert.Equal(t, 0, f.tickets.Writes())
	assert.Empty(t, f.published.actions())

	require.NoError(t, s.ResolveTicket(ctx, "000000000000000000000002"))
	assert.Equal(t, 1, f.tickets.Writes())
	list, err := f.tickets.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.TicketResolved, list[1].Status)
	assert.Equal(t, []string{models.AuditTicketResolved}, f.published.actions())
	assert.Equal(t, 1, f.auditLogs.Writes())
}

func TestUserCannotResolveTicket(t *testing.T) {
	f := newFixture(t, freeUser)
	f.tickets = memstore.New("tickets", models.Ticket{Subject: "x", UserEmail: freeUser.Email, Status: models.TicketOpen})
	f.console.stores.Tickets = f.tickets
	s := f.open(t, freeUser)

	list, err := f.tickets.List(context.Background())
	require.NoError(t, err)
	err = s.ResolveTicket(context.Background(), list[0].GetID())
	assert.ErrorIs(t, err, models.ErrDenied)
	assert.Equal(t, 0, f.tickets.Writes())
}

func TestCreateTicket(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, freeUser)
	s := f.open(t, freeUser)

	_, err := s.CreateTicket(ctx, models.TicketInput{Subject: "broken", Attachments: []string{"not a url"}})
	assert.ErrorIs(t, err, models.ErrMalformedInput)
	assert.Equal(t, 0, f.tickets.Writes())

	_, err = s.CreateTicket(ctx, models.TicketInput{Subject: "broken", Attachments: []string{"https://x.com/s.png"}})
	require.NoError(t, err)
	list, err := f.tickets.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, freeUser.Email, list[0].UserEmail)
	assert.Equal(t, models.TicketOpen, list[0].Status)
}

func seedAgent(owner models.User, status models.AgentStatus) models.Agent {
	return models.Agent{
		ID:      models.NewObjectID(),
		Name:    "helper",
		Config:  map[string]any{"temperature": 0.2},
		Status:  status,
		OwnerID: owner.ID,
	}
}

func TestPublishAgentIdempotent(t *testing.T) {
	ctx := context.Background()
	published := seedAgent(proUser, models.AgentPublished)
	draft := seedAgent(proUser, models.AgentDraft)
	f := newFixture(t, proUser)
	f.agents = memstore.New("agents", published, draft)
	f.console.stores.Agents = f.agents
	s := f.open(t, proUser)

	require.NoError(t, s.PublishAgent(ctx, string(published.ID)))
	assert.Equal(t, 0, f.agents.Writes())

	require.NoError(t, s.PublishAgent(ctx, string(draft.ID)))
	assert.Equal(t, 1, f.agents.Writes())
	list, err := f.agents.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.AgentPublished, list[1].Status)
	assert.NotNil(t, list[1].PublishedAt)
	assert.Equal(t, []string{models.AuditAgentPublished}, f.published.actions())
}

func TestAgentOwnership(t *testing.T) {
	ctx := context.Background()
	theirs := seedAgent(proUser, models.AgentDraft)
	f := newFixture(t, freeUser, proUser, adminUser)
	f.agents = memstore.New("agents", theirs)
	f.console.stores.Agents = f.agents

	s := f.open(t, freeUser)
	assert.ErrorIs(t, s.PublishAgent(ctx, string(theirs.ID)), models.ErrDenied)
	assert.ErrorIs(t, s.DeleteAgent(ctx, string(theirs.ID)), models.ErrDenied)
	assert.ErrorIs(t, s.SaveAgentConfig(ctx, string(theirs.ID), []byte(`{}`)), models.ErrDenied)
	assert.Equal(t, 0, f.agents.Writes())

	admin := f.open(t, adminUser)
	name := "renamed"
	require.NoError(t, admin.UpdateAgent(ctx, string(theirs.ID), models.AgentUpdate{Name: &name}))
	assert.Equal(t, 1, f.agents.Writes())
}

func TestCreateAgent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, freeUser)
	s := f.open(t, freeUser)

	_, err := s.CreateAgent(ctx, models.AgentInput{})
	assert.ErrorIs(t, err, models.ErrMalformedInput)

	id, err := s.CreateAgent(ctx, models.AgentInput{Name: "support", Config: map[string]any{"systemPrompt": "be nice"}})
	require.NoError(t, err)

	list, err := f.agents.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].GetID())
	assert.Equal(t, models.AgentDraft, list[0].Status)
	assert.Equal(t, freeUser.ID, list[0].OwnerID)
}

func TestCreateAgentStorageQuota(t *testing.T) {
	f := newFixture(t, freeUser)
	s := f.open(t, freeUser)

	big := map[string]any{"blob": strings.Repeat("x", 11<<20)}
	_, err := s.CreateAgent(context.Background(), models.AgentInput{Name: "big", Config: big})
	assert.ErrorIs(t, err, models.ErrQuotaExceeded)
	assert.Equal(t, 0, f.agents.Writes())
}

func TestSaveAgentConfig(t *testing.T) {
	ctx := context.Background()
	agent := seedAgent(freeUser, models.AgentDraft)
	f := newFixture(t, freeUser)
	f.agents = memstore.New("agents", agent)
	f.console.stores.Agents = f.agents
	s := f.open(t, freeUser)

	for _, raw := range []string{`{"model": `, `[1, 2]`, `null`, `"text"`} {
		err := s.SaveAgentConfig(ctx, string(agent.ID), []byte(raw))
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr, raw)
		assert.Equal(t, "config", verr.Field)
	}
	assert.Equal(t, 0, f.agents.Writes())
	c, err := s.agentController()
	require.NoError(t, err)
	got, ok := c.Get(string(agent.ID))
	require.True(t, ok)
	assert.Equal(t, agent.Config, got.Config)

	err = s.SaveAgentConfig(ctx, string(agent.ID), []byte(`{"systemPrompt": "You are {{.Name"}`))
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "config.systemPrompt", verr.Field)
	assert.Equal(t, 0, f.agents.Writes())

	require.NoError(t, s.SaveAgentConfig(ctx, string(agent.ID), []byte(`{"model": "googleai/gemini-2.5-pro"}`)))
	list, err := f.agents.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"model": "googleai/gemini-2.5-pro"}, list[0].Config)
}

func TestSaveAgentConfigRollsBackOnStoreError(t *testing.T) {
	ctx := context.Background()
	agent := seedAgent(freeUser, models.AgentDraft)
	f := newFixture(t, freeUser)
	f.agents = memstore.New("agents", agent)
	f.console.stores.Agents = f.agents
	s := f.open(t, freeUser)

	f.agents.FailNext(memstore.OpUpdate, models.NewStoreError(models.StoreNetwork, "agents", errors.New("reset")))
	err := s.SaveAgentConfig(ctx, string(agent.ID), []byte(`{"a": 1}`))
	assert.ErrorIs(t, err, models.ErrStoreNetwork)

	c, err := s.agentController()
	require.NoError(t, err)
	got, _ := c.Get(string(agent.ID))
	assert.Equal(t, agent.Config, got.Config)
	assert.ErrorIs(t, c.LastError(), models.ErrStoreNetwork)
}

func TestTestAgentCountsRequests(t *testing.T) {
	ctx := context.Background()
	agent := seedAgent(freeUser, models.AgentDraft)
	f := newFixture(t, freeUser)
	f.agents = memstore.New("agents", agent)
	f.console.stores.Agents = f.agents
	s := f.open(t, freeUser)

	res, err := s.TestAgent(ctx, string(agent.ID), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Processed input: hello", res.Response)
	assert.Equal(t, string(agent.ID), res.Metadata.AgentID)

	used, err := f.meter.Used(ctx, string(freeUser.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(1), used)

	for used < 1000 {
		used, err = f.meter.Incr(ctx, string(freeUser.ID))
		require.NoError(t, err)
	}
	_, err = s.TestAgent(ctx, string(agent.ID), "again")
	assert.ErrorIs(t, err, models.ErrQuotaExceeded)
}

type gatedRunner struct {
	gate chan struct{}
}

func (r *gatedRunner) Run(ctx context.Context, agent models.Agent, input string) (*llm.TestResult, error) {
	select {
	case <-r.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &llm.TestResult{Response: input, Metadata: llm.TestMetadata{AgentID: agent.GetID()}}, nil
}

func TestTestAgentAllowanceAcrossSessions(t *testing.T) {
	ctx := context.Background()
	agent := seedAgent(freeUser, models.AgentDraft)
	f := newFixture(t, freeUser)
	f.agents = memstore.New("agents", agent)
	f.console.stores.Agents = f.agents
	runner := &gatedRunner{gate: make(chan struct{})}
	f.console.runner = runner
	for i := 0; i < 999; i++ {
		_, err := f.meter.Incr(ctx, string(freeUser.ID))
		require.NoError(t, err)
	}

	sessions := []*Session{f.open(t, freeUser), f.open(t, freeUser)}
	errs := make([]error, len(sessions))
	var wg sync.WaitGroup
	for i, s := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.TestAgent(ctx, string(agent.ID), "hi")
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(runner.gate)
	wg.Wait()

	var refused int
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, models.ErrQuotaExceeded)
			refused++
		}
	}
	assert.Equal(t, 1, refused)
	used, err := f.meter.Used(ctx, string(freeUser.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), used)
}

func TestAPIKeys(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, freeUser, proUser)

	free := f.open(t, freeUser)
	_, err := free.CreateAPIKey(ctx, models.APIKeyInput{Name: "ci"})
	assert.ErrorIs(t, err, models.ErrQuotaExceeded)
	assert.Equal(t, 0, f.apiKeys.Writes())

	pro := f.open(t, proUser)
	key, err := pro.CreateAPIKey(ctx, models.APIKeyInput{Name: "ci"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key.Key, crypto.APIKeyPrefix))

	regenerated, err := pro.RegenerateAPIKey(ctx, key.GetID())
	require.NoError(t, err)
	assert.Equal(t, key.ID, regenerated.ID)
	assert.Equal(t, "ci", regenerated.Name)
	assert.NotEqual(t, key.Key, regenerated.Key)
	assert.Equal(t, int64(2), regenerated.Version)

	list, err := f.apiKeys.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, regenerated.Key, list[0].Key)
	assert.Equal(t, []string{models.AuditKeyRegenerated}, f.published.actions())

	freeKeys, err := free.apiKeyController()
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, ok := freeKeys.Get(key.GetID())
		return ok
	}, time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, free.DeleteAPIKey(ctx, key.GetID()), models.ErrDenied)
	require.NoError(t, pro.DeleteAPIKey(ctx, key.GetID()))
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, freeUser, adminUser, rootUser)
	admin := f.open(t, adminUser)

	tier := models.TierPro
	require.NoError(t, admin.UpdateUser(ctx, string(freeUser.ID), models.UserUpdate{Tier: &tier}))
	u, err := memstore.NewUsers(f.users).GetByID(ctx, freeUser.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TierPro, u.Tier)
	assert.Equal(t, []string{models.AuditUserUpdated}, f.published.actions())

	suspended := models.UserSuspended
	err = admin.UpdateUser(ctx, string(rootUser.ID), models.UserUpdate{Status: &suspended})
	assert.ErrorIs(t, err, models.ErrDenied)
	err = admin.UpdateUser(ctx, string(adminUser.ID), models.UserUpdate{Status: &suspended})
	assert.ErrorIs(t, err, models.ErrDenied)

	user := f.open(t, freeUser)
	err = user.UpdateUser(ctx, string(adminUser.ID), models.UserUpdate{Tier: &tier})
	assert.ErrorIs(t, err, models.ErrDenied)
}

func TestAssignRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, freeUser, adminUser, rootUser)

	admin := f.open(t, adminUser)
	err := admin.AssignRole(ctx, string(freeUser.ID), models.RoleAssignment{Role: models.RoleAdmin})
	assert.ErrorIs(t, err, models.ErrDenied)
	assert.Equal(t, 0, f.users.Writes())

	root := f.open(t, rootUser)
	assert.ErrorIs(t, root.AssignRole(ctx, string(rootUser.ID), models.RoleAssignment{Role: models.RoleUser}), models.ErrDenied)
	assert.ErrorIs(t, root.AssignRole(ctx, string(freeUser.ID), models.RoleAssignment{Role: "owner"}), models.ErrMalformedInput)

	require.NoError(t, root.AssignRole(ctx, string(freeUser.ID), models.RoleAssignment{Role: models.RoleAdmin}))
	u, err := memstore.NewUsers(f.users).GetByID(ctx, freeUser.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)

	require.NoError(t, root.AssignRole(ctx, string(freeUser.ID), models.RoleAssignment{Role: models.RoleAdmin}))
	assert.Equal(t, 1, f.users.Writes())
	assert.Equal(t, []string{models.AuditRoleAssigned}, f.published.actions())
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, freeUser, adminUser, rootUser)

	admin := f.open(t, adminUser)
	assert.ErrorIs(t, admin.DeleteUser(ctx, string(freeUser.ID)), models.ErrDenied)

	root := f.open(t, rootUser)
	assert.ErrorIs(t, root.DeleteUser(ctx, string(rootUser.ID)), models.ErrDenied)
	require.NoError(t, root.DeleteUser(ctx, string(freeUser.ID)))

	_, err := memstore.NewUsers(f.users).GetByID(ctx, freeUser.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, []string{models.AuditUserDeleted}, f.published.actions())
}

func TestAuditFailureDoesNotFailMutation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, adminUser)
	f.tickets = memstore.New("tickets", models.Ticket{Subject: "x", UserEmail: "a@x.com", Status: models.TicketOpen})
	f.console.stores.Tickets = f.tickets
	f.auditLogs.FailNext(memstore.OpCreate, models.NewStoreError(models.StoreUnknown, "auditLogs", nil))
	s := f.open(t, adminUser)

	list, err := f.tickets.List(ctx)
	require.NoError(t, err)
	require.NoError(t, s.ResolveTicket(ctx, list[0].GetID()))
	assert.Empty(t, f.published.actions())
}

func TestDashboardPerActor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, freeUser, proUser, adminUser, rootUser)

	tests := []struct {
		user models.User
		want any
	}{
		{freeUser, &dashboard.FreeView{}},
		{proUser, &dashboard.ProView{}},
		{adminUser, &dashboard.AdminView{}},
		{rootUser, &dashboard.SuperAdminView{}},
	}
	for _, tt := range tests {
		t.Run(tt.user.Email, func(t *testing.T) {
			s := f.open(t, tt.user)
			view, err := s.Dashboard(ctx)
			require.NoError(t, err)
			assert.IsType(t, tt.want, view)
		})
	}
}

func TestDashboardReflectsWrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, freeUser)
	s := f.open(t, freeUser)

	_, err := s.CreateChatbot(ctx, models.ChatbotInput{Name: "first"})
	require.NoError(t, err)
	_, err = s.TestAgent(ctx, "missing", "x")
	assert.ErrorIs(t, err, models.ErrNotFound)

	view, err := s.Dashboard(ctx)
	require.NoError(t, err)
	free := view.(*dashboard.FreeView)
	assert.Len(t, free.Chatbots, 1)
	assert.True(t, free.ReadOnlyConfig)
	assert.False(t, free.Capabilities.CreateChatbot)
	assert.Equal(t, int64(0), free.Usage.Requests.Used)
}

func TestSessionChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t, proUser)
	s := f.open(t, proUser)

	_, err := s.Dashboard(ctx)
	require.NoError(t, err)
	changes := s.Changes(ctx)

	_, err = s.CreateChatbot(ctx, models.ChatbotInput{Name: "bot"})
	require.NoError(t, err)

	select {
	case <-changes:
	case <-time.After(time.Second):
		t.Fatal("no change notification")
	}
}

func TestSessionClose(t *testing.T) {
	f := newFixture(t, proUser)
	s := f.open(t, proUser)

	_, err := s.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.chatbots.Subscribers())

	s.Close()
	assert.Equal(t, 0, f.chatbots.Subscribers())
	_, err = s.CreateChatbot(context.Background(), models.ChatbotInput{Name: "late"})
	assert.ErrorIs(t, err, models.ErrControllerClosed)
}
