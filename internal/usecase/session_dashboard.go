package usecase

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nguyentranbao-ct/agent-console/internal/dashboard"
	"github.com/nguyentranbao-ct/agent-console/internal/models"
	"github.com/nguyentranbao-ct/agent-console/internal/policy"
)

// Dashboard renders the actor's view. The collections it needs are opened
// in parallel on first call and reused afterwards.
func (s *Session) Dashboard(ctx context.Context) (dashboard.View, error) {
	kind := policy.DashboardFor(s.actor.Role, s.actor.Tier)
	in := dashboard.Input{Actor: s.actor}

	var (
		mu     sync.Mutex
		errs   = make(map[models.ResourceType]error)
		g      errgroup.Group
		record = func(res models.ResourceType, err error) {
			mu.Lock()
			defer mu.Unlock()
			errs[res] = err
		}
	)

	for _, res := range dashboard.Needs(kind) {
		g.Go(func() error {
			switch res {
			case models.ResourceAgent:
				c, err := s.agentController()
				if err != nil {
					return err
				}
				in.Agents = c.Snapshot()
				record(res, c.LastError())
			case models.ResourceChatbot:
				c, err := s.chatbotController()
				if err != nil {
					return err
				}
				in.Chatbots = c.Snapshot()
				record(res, c.LastError())
			case models.ResourceTicket:
				c, err := s.ticketController()
				if err != nil {
					return err
				}
				in.Tickets = c.Snapshot()
				record(res, c.LastError())
			case models.ResourceAPIKey:
				c, err := s.apiKeyController()
				if err != nil {
					return err
				}
				in.APIKeys = c.Snapshot()
				record(res, c.LastError())
			case models.ResourceUser:
				c, err := s.userController()
				if err != nil {
					return err
				}
				in.Users = c.Snapshot()
				record(res, c.LastError())
			case models.ResourceAuditLog:
				c, err := s.auditLogController()
				if err != nil {
					return err
				}
				in.AuditLogs = c.Snapshot()
				record(res, c.LastError())
			default:
				return fmt.Errorf("%w: %s", models.ErrUnsupportedResource, res)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	in.Errors = errs

	if kind == policy.DashboardFree || kind == policy.DashboardPro {
		used, err := s.uc.meter.Used(ctx, string(s.actor.UserID))
		if err != nil {
			return nil, fmt.Errorf("read usage: %w", err)
		}
		in.RequestsUsed = used

		for _, a := range ownedAgents(in.Agents, s.actor.UserID) {
			n, err := configSize(a.Config)
			if err != nil {
				return nil, err
			}
			in.StorageBytes += n
		}
	}

	return dashboard.Render(in), nil
}
