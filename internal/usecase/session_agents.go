package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/nguyentranbao-ct/agent-console/internal/llm"
	"github.com/nguyentranbao-ct/agent-console/internal/mirror"
	"github.com/nguyentranbao-ct/agent-console/internal/models"
	"github.com/nguyentranbao-ct/agent-console/internal/policy"
	log "github.com/nguyentranbao-ct/agent-console/pkg/logger/logctx"
	"github.com/nguyentranbao-ct/agent-console/pkg/util"
)

var errConfigNotObject = errors.New("configuration must be a JSON object")

func (s *Session) Agents() ([]models.Agent, error) {
	c, err := s.agentController()
	if err != nil {
		return nil, err
	}
	return c.Snapshot(), nil
}

// CreateAgent stores a new draft owned by the actor.
func (s *Session) CreateAgent(ctx context.Context, in models.AgentInput) (string, error) {
	if err := s.validate(in); err != nil {
		return "", err
	}
	if err := validateConfig(in.Config); err != nil {
		return "", err
	}
	c, err := s.agentController()
	if err != nil {
		return "", err
	}
	if err := s.checkStorage(c.Snapshot(), "", in.Config); err != nil {
		return "", err
	}

	now := s.uc.now().UTC()
	return c.Create(ctx, models.Agent{
		Name:        in.Name,
		Description: in.Description,
		Config:      in.Config,
		Status:      models.AgentDraft,
		OwnerID:     s.actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (s *Session) UpdateAgent(ctx context.Context, id string, in models.AgentUpdate) error {
	if err := s.validate(in); err != nil {
		return err
	}
	c, agent, err := s.ownedAgent(id, models.OpUpdate)
	if err != nil {
		return err
	}
	_, err = c.Update(ctx, agent.GetID(), models.AgentPatch{
		Name:        in.Name,
		Description: in.Description,
		UpdatedAt:   s.uc.now().UTC(),
	})
	return err
}

// SaveAgentConfig replaces the agent configuration with the JSON document
// in raw. Malformed input leaves the stored configuration untouched.
func (s *Session) SaveAgentConfig(ctx context.Context, id string, raw []byte) error {
	var cfg map[string]any
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return models.NewValidationError("config", err)
	}
	if cfg == nil {
		return models.NewValidationError("config", errConfigNotObject)
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	c, agent, err := s.ownedAgent(id, models.OpUpdate)
	if err != nil {
		return err
	}
	if err := s.checkStorage(c.Snapshot(), agent.GetID(), cfg); err != nil {
		return err
	}
	_, err = c.Update(ctx, agent.GetID(), models.AgentPatch{
		Config:    cfg,
		UpdatedAt: s.uc.now().UTC(),
	})
	return err
}

// PublishAgent marks a draft published. Publishing a published agent is a
// no-op and issues no write.
func (s *Session) PublishAgent(ctx context.Context, id string) error {
	c, agent, err := s.ownedAgent(id, models.OpPublish)
	if err != nil {
		return err
	}
	if agent.Status == models.AgentPublished {
		return nil
	}

	now := s.uc.now().UTC()
	_, err = c.Patch(ctx, models.OpPublish, agent.GetID(), models.AgentPatch{
		Status:      util.Ptr(models.AgentPublished),
		PublishedAt: &now,
		UpdatedAt:   now,
	})
	if err != nil {
		return err
	}
	s.audit(ctx, models.AuditAgentPublished, fmt.Sprintf("agent %s (%s)", agent.Name, agent.ID))
	return nil
}

func (s *Session) DeleteAgent(ctx context.Context, id string) error {
	c, agent, err := s.ownedAgent(id, models.OpDelete)
	if err != nil {
		return err
	}
	return c.Delete(ctx, agent.GetID())
}

// TestAgent runs input through the agent and counts one request against
// the actor's period allowance. A failed run is not counted.
func (s *Session) TestAgent(ctx context.Context, id, input string) (*llm.TestResult, error) {
	if err := s.validate(models.AgentTestRequest{Input: input}); err != nil {
		return nil, err
	}
	_, agent, err := s.ownedAgent(id, models.OpRead)
	if err != nil {
		return nil, err
	}

	// check, run and count are one step per account so parallel tests
	// cannot overrun the allowance
	userID := string(s.actor.UserID)
	var result *llm.TestResult
	err = s.withActorLock(ctx, "agent-tests", func() error {
		used, err := s.uc.meter.Used(ctx, userID)
		if err != nil {
			return fmt.Errorf("read usage: %w", err)
		}
		if !policy.Allows(policy.QuotaFor(s.actor.Tier).MaxRequestsPerPeriod, used) {
			return models.QuotaExceeded(models.ResourceAgent, "request allowance used for this period")
		}

		result, err = s.uc.runner.Run(ctx, agent, input)
		if err != nil {
			return fmt.Errorf("run agent %s: %w", agent.ID, err)
		}
		if _, err := s.uc.meter.Incr(ctx, userID); err != nil {
			log.Warnw(ctx, "failed to count agent test request", "agent_id", agent.ID, "error", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Session) ownedAgent(id string, op models.Operation) (*mirror.Controller[models.Agent], models.Agent, error) {
	c, err := s.agentController()
	if err != nil {
		return nil, models.Agent{}, err
	}
	agent, ok := c.Get(id)
	if !ok {
		return nil, models.Agent{}, models.NewStoreError(models.StoreNotFound, s.uc.stores.Agents.Collection(), fmt.Errorf("id %s", id))
	}
	if err := s.requireOwner(agent.OwnerID == s.actor.UserID, models.ResourceAgent, op); err != nil {
		return nil, models.Agent{}, err
	}
	return c, agent, nil
}

// checkStorage totals the encoded configurations the actor owns, with the
// one for replacing swapped for cfg, against the tier's storage ceiling.
func (s *Session) checkStorage(agents []models.Agent, replacing string, cfg map[string]any) error {
	total, err := configSize(cfg)
	if err != nil {
		return err
	}
	for _, a := range ownedAgents(agents, s.actor.UserID) {
		if a.GetID() == replacing {
			continue
		}
		n, err := configSize(a.Config)
		if err != nil {
			return err
		}
		total += n
	}
	limit := policy.QuotaFor(s.actor.Tier).MaxStorageBytes
	if limit != policy.Unlimited && total > limit {
		return models.QuotaExceeded(models.ResourceAgent, fmt.Sprintf("configuration storage %d exceeds %d bytes", total, limit))
	}
	return nil
}

func configSize(cfg map[string]any) (int64, error) {
	if len(cfg) == 0 {
		return 0, nil
	}
	b, err := bson.Marshal(bson.M(cfg))
	if err != nil {
		return 0, models.NewValidationError("config", err)
	}
	return int64(len(b)), nil
}

// validateConfig rejects a systemPrompt that is not a usable template.
func validateConfig(cfg map[string]any) error {
	text, ok := cfg["systemPrompt"].(string)
	if !ok || strings.TrimSpace(text) == "" {
		return nil
	}
	if _, err := llm.ParsePrompt(text); err != nil {
		return models.NewValidationError("config.systemPrompt", err)
	}
	return nil
}
