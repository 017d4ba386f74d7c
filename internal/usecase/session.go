package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/nguyentranbao-ct/agent-console/internal/mirror"
	"github.com/nguyentranbao-ct/agent-console/internal/models"
	"github.com/nguyentranbao-ct/agent-console/internal/policy"
	"github.com/nguyentranbao-ct/agent-console/internal/store"
	log "github.com/nguyentranbao-ct/agent-console/pkg/logger/logctx"
)

// Session performs console actions for one actor. Controllers are opened
// on first use and all released by Close, which callers must defer.
type Session struct {
	uc    *ConsoleUsecase
	ctx   context.Context
	actor models.Actor

	mu        sync.Mutex
	closed    bool
	agents    *mirror.Controller[models.Agent]
	chatbots  *mirror.Controller[models.Chatbot]
	tickets   *mirror.Controller[models.Ticket]
	apiKeys   *mirror.Controller[models.APIKey]
	users     *mirror.Controller[models.User]
	auditLogs *mirror.Controller[models.AuditLogEntry]
}

func newSession(ctx context.Context, uc *ConsoleUsecase, actor models.Actor) *Session {
	return &Session{uc: uc, ctx: ctx, actor: actor}
}

func (s *Session) Actor() models.Actor {
	return s.actor
}

// Close releases every controller the session opened. Safe to call twice.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	closers := []func(){}
	if s.agents != nil {
		closers = append(closers, s.agents.Close)
	}
	if s.chatbots != nil {
		closers = append(closers, s.chatbots.Close)
	}
	if s.tickets != nil {
		closers = append(closers, s.tickets.Close)
	}
	if s.apiKeys != nil {
		closers = append(closers, s.apiKeys.Close)
	}
	if s.users != nil {
		closers = append(closers, s.users.Close)
	}
	if s.auditLogs != nil {
		closers = append(closers, s.auditLogs.Close)
	}
	s.mu.Unlock()

	for _, c := range closers {
		c()
	}
}

func open[R store.Record[R]](
	s *Session,
	slot **mirror.Controller[R],
	adapter store.Adapter[R],
	resource models.ResourceType,
	opts ...mirror.Option[R],
) (*mirror.Controller[R], error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, models.ErrControllerClosed
	}
	if *slot == nil {
		c, err := mirror.New(s.ctx, adapter, resource, s.actor, opts...)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		*slot = c
	}
	c := *slot
	s.mu.Unlock()

	if err := c.WaitReady(s.ctx); err != nil {
		return nil, fmt.Errorf("open %s: %w", adapter.Collection(), err)
	}
	return c, nil
}

func (s *Session) agentController() (*mirror.Controller[models.Agent], error) {
	return open(s, &s.agents, s.uc.stores.Agents, models.ResourceAgent)
}

func (s *Session) chatbotController() (*mirror.Controller[models.Chatbot], error) {
	return open(s, &s.chatbots, s.uc.stores.Chatbots, models.ResourceChatbot,
		mirror.WithGuard[models.Chatbot](s.chatbotQuota))
}

func (s *Session) ticketController() (*mirror.Controller[models.Ticket], error) {
	return open(s, &s.tickets, s.uc.stores.Tickets, models.ResourceTicket)
}

func (s *Session) apiKeyController() (*mirror.Controller[models.APIKey], error) {
	return open(s, &s.apiKeys, s.uc.stores.APIKeys, models.ResourceAPIKey,
		mirror.WithGuard[models.APIKey](s.apiKeyQuota))
}

func (s *Session) userController() (*mirror.Controller[models.User], error) {
	return open(s, &s.users, s.uc.stores.Users, models.ResourceUser)
}

func (s *Session) auditLogController() (*mirror.Controller[models.AuditLogEntry], error) {
	return open(s, &s.auditLogs, s.uc.stores.AuditLogs, models.ResourceAuditLog)
}

// chatbotQuota counts the chatbots the actor owns, pending creates included,
// against the tier's ceiling.
func (s *Session) chatbotQuota(op models.Operation, current []models.Chatbot, _ models.Chatbot) error {
	if op != models.OpCreate {
		return nil
	}
	owned := int64(len(ownedChatbots(current, s.actor.Email)))
	if policy.Allows(policy.QuotaFor(s.actor.Tier).MaxChatbots, owned) {
		return nil
	}
	return models.QuotaExceeded(models.ResourceChatbot, "chatbot limit reached for tier "+string(s.actor.Tier))
}

func (s *Session) apiKeyQuota(op models.Operation, current []models.APIKey, _ models.APIKey) error {
	if op != models.OpCreate {
		return nil
	}
	owned := int64(len(ownedAPIKeys(current, s.actor.UserID)))
	if policy.Allows(policy.QuotaFor(s.actor.Tier).MaxAPIKeys, owned) {
		return nil
	}
	return models.QuotaExceeded(models.ResourceAPIKey, "api keys are not available for tier "+string(s.actor.Tier))
}

// withActorLock runs fn while holding the actor's lock for scope. Every
// session of the same account, in any process sharing the locker, waits.
func (s *Session) withActorLock(ctx context.Context, scope string, fn func() error) error {
	unlock, err := s.uc.locks.Lock(ctx, scope+":"+string(s.actor.UserID))
	if err != nil {
		return fmt.Errorf("lock %s: %w", scope, err)
	}
	defer unlock()
	return fn()
}

// requireOwner refuses a user-role actor acting on someone else's record.
func (s *Session) requireOwner(owned bool, resource models.ResourceType, op models.Operation) error {
	if owned || s.actor.Role.AtLeastAdmin() {
		return nil
	}
	return models.Denied(resource, op, "not the owner")
}

func (s *Session) validate(in any) error {
	return s.uc.validator.Record(in)
}

// audit records an entry. The mutation it describes has already committed,
// so a failure here is logged rather than returned.
func (s *Session) audit(ctx context.Context, action, details string) {
	if err := s.uc.audit.Record(ctx, s.actor, action, details); err != nil {
		log.Errorw(ctx, "failed to record audit entry", "action", action, "error", err)
	}
}

// Changes fires whenever any controller this session has opened changes,
// until ctx ends. Controllers opened after the call are not observed.
func (s *Session) Changes(ctx context.Context) <-chan struct{} {
	out := make(chan struct{}, 1)

	s.mu.Lock()
	var sources []changeSource
	if s.agents != nil {
		sources = append(sources, s.agents)
	}
	if s.chatbots != nil {
		sources = append(sources, s.chatbots)
	}
	if s.tickets != nil {
		sources = append(sources, s.tickets)
	}
	if s.apiKeys != nil {
		sources = append(sources, s.apiKeys)
	}
	if s.users != nil {
		sources = append(sources, s.users)
	}
	if s.auditLogs != nil {
		sources = append(sources, s.auditLogs)
	}
	s.mu.Unlock()

	for _, src := range sources {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-src.Done():
					return
				case <-src.Changes():
					select {
					case out <- struct{}{}:
					default:
					}
				}
			}
		}()
	}
	return out
}

type changeSource interface {
	Changes() <-chan struct{}
	Done() <-chan struct{}
}

func ownedChatbots(list []models.Chatbot, email string) []models.Chatbot {
	out := make([]models.Chatbot, 0, len(list))
	for _, c := range list {
		if c.OwnerEmail == email {
			out = append(out, c)
		}
	}
	return out
}

func ownedAPIKeys(list []models.APIKey, owner models.ObjectID) []models.APIKey {
	out := make([]models.APIKey, 0, len(list))
	for _, k := range list {
		if k.OwnerID == owner {
			out = append(out, k)
		}
	}
	return out
}

func ownedAgents(list []models.Agent, owner models.ObjectID) []models.Agent {
	out := make([]models.Agent, 0, len(list))
	for _, a := range list {
		if a.OwnerID == owner {
			out = append(out, a)
		}
	}
	return out
}
