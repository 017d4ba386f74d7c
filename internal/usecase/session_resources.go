package usecase

import (
	"context"
	"fmt"

	"github.com/nguyentranbao-ct/agent-console/internal/models"
	"github.com/nguyentranbao-ct/agent-console/internal/policy"
	"github.com/nguyentranbao-ct/agent-console/pkg/crypto"
	"github.com/nguyentranbao-ct/agent-console/pkg/util"
)

// authorize checks legality up front for operations that may turn out to be
// no-ops, so a refused actor is refused even when nothing would change.
func (s *Session) authorize(resource models.ResourceType, op models.Operation) error {
	if !policy.CanPerform(s.actor.Tier, s.actor.Role, resource, op) {
		return models.Denied(resource, op, "")
	}
	return nil
}

func (s *Session) notFound(collection, id string) error {
	return models.NewStoreError(models.StoreNotFound, collection, fmt.Errorf("id %s", id))
}

// Chatbots

func (s *Session) CreateChatbot(ctx context.Context, in models.ChatbotInput) (string, error) {
	if err := s.validate(in); err != nil {
		return "", err
	}
	c, err := s.chatbotController()
	if err != nil {
		return "", err
	}
	bot := models.Chatbot{
		Name:       in.Name,
		OwnerEmail: s.actor.Email,
		Status:     models.ChatbotActive,
		LastActive: s.uc.now().UTC(),
	}
	if policy.QuotaFor(s.actor.Tier).MaxChatbots == policy.Unlimited {
		return c.Create(ctx, bot)
	}

	// The mirror may not have seen creates from the actor's other sessions
	// yet, so the count is taken from the store under the actor's lock.
	var id string
	err = s.withActorLock(ctx, "chatbots", func() error {
		if err := s.authorize(models.ResourceChatbot, models.OpCreate); err != nil {
			return err
		}
		stored, err := s.uc.stores.Chatbots.List(ctx)
		if err != nil {
			return err
		}
		if err := s.chatbotQuota(models.OpCreate, stored, bot); err != nil {
			return err
		}
		id, err = c.Create(ctx, bot)
		return err
	})
	return id, err
}

func (s *Session) UpdateChatbot(ctx context.Context, id string, in models.ChatbotUpdate) error {
	if err := s.validate(in); err != nil {
		return err
	}
	c, err := s.chatbotController()
	if err != nil {
		return err
	}
	bot, ok := c.Get(id)
	if !ok {
		return s.notFound(s.uc.stores.Chatbots.Collection(), id)
	}
	if err := s.requireOwner(bot.OwnerEmail == s.actor.Email, models.ResourceChatbot, models.OpUpdate); err != nil {
		return err
	}
	_, err = c.Update(ctx, id, models.ChatbotPatch{Name: in.Name, Status: in.Status})
	return err
}

func (s *Session) DeleteChatbot(ctx context.Context, id string) error {
	c, err := s.chatbotController()
	if err != nil {
		return err
	}
	bot, ok := c.Get(id)
	if !ok {
		return s.notFound(s.uc.stores.Chatbots.Collection(), id)
	}
	if err := s.requireOwner(bot.OwnerEmail == s.actor.Email, models.ResourceChatbot, models.OpDelete); err != nil {
		return err
	}
	return c.Delete(ctx, id)
}

// Tickets

func (s *Session) CreateTicket(ctx context.Context, in models.TicketInput) (string, error) {
	if err := s.validate(in); err != nil {
		return "", err
	}
	c, err := s.ticketController()
	if err != nil {
		return "", err
	}
	return c.Create(ctx, models.Ticket{
		Subject:     in.Subject,
		Description: in.Description,
		UserEmail:   s.actor.Email,
		Status:      models.TicketOpen,
		Attachments: in.Attachments,
		CreatedAt:   s.uc.now().UTC(),
	})
}

// ResolveTicket closes a ticket. Resolving a resolved ticket issues no write.
func (s *Session) ResolveTicket(ctx context.Context, id string) error {
	if err := s.authorize(models.ResourceTicket, models.OpUpdate); err != nil {
		return err
	}
	c, err := s.ticketController()
	if err != nil {
		return err
	}
	ticket, ok := c.Get(id)
	if !ok {
		return s.notFound(s.uc.stores.Tickets.Collection(), id)
	}
	if ticket.Status == models.TicketResolved {
		return nil
	}
	if _, err := c.Update(ctx, id, models.TicketPatch{Status: util.Ptr(models.TicketResolved)}); err != nil {
		return err
	}
	s.audit(ctx, models.AuditTicketResolved, fmt.Sprintf("ticket %q from %s", ticket.Subject, ticket.UserEmail))
	return nil
}

// API keys

// CreateAPIKey issues a new key. The returned record carries the key in
// clear; it is the only time the caller sees it besides regeneration.
func (s *Session) CreateAPIKey(ctx context.Context, in models.APIKeyInput) (*models.APIKey, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	c, err := s.apiKeyController()
	if err != nil {
		return nil, err
	}
	secret, err := crypto.NewAPIKey()
	if err != nil {
		return nil, err
	}
	key := models.APIKey{
		Name:      in.Name,
		OwnerID:   s.actor.UserID,
		Key:       secret,
		CreatedAt: s.uc.now().UTC(),
	}
	id, err := c.Create(ctx, key)
	if err != nil {
		return nil, err
	}
	key = key.Stamp(id, 1)
	return &key, nil
}

// RegenerateAPIKey replaces the secret of an existing key, keeping its id
// and name.
func (s *Session) RegenerateAPIKey(ctx context.Context, id string) (*models.APIKey, error) {
	c, err := s.apiKeyController()
	if err != nil {
		return nil, err
	}
	key, ok := c.Get(id)
	if !ok {
		return nil, s.notFound(s.uc.stores.APIKeys.Collection(), id)
	}
	if err := s.requireOwner(key.OwnerID == s.actor.UserID, models.ResourceAPIKey, models.OpRegenerate); err != nil {
		return nil, err
	}
	secret, err := crypto.NewAPIKey()
	if err != nil {
		return nil, err
	}
	version, err := c.Patch(ctx, models.OpRegenerate, id, models.APIKeyPatch{Key: &secret})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, models.AuditKeyRegenerated, fmt.Sprintf("api key %q (%s)", key.Name, key.ID))

	key.Key = secret
	key = key.Stamp(id, version)
	return &key, nil
}

func (s *Session) DeleteAPIKey(ctx context.Context, id string) error {
	c, err := s.apiKeyController()
	if err != nil {
		return err
	}
	key, ok := c.Get(id)
	if !ok {
		return s.notFound(s.uc.stores.APIKeys.Collection(), id)
	}
	if err := s.requireOwner(key.OwnerID == s.actor.UserID, models.ResourceAPIKey, models.OpDelete); err != nil {
		return err
	}
	return c.Delete(ctx, id)
}
