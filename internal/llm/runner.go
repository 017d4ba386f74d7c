// Package llm runs an agent configuration against a single test input.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/nguyentranbao-ct/agent-console/internal/models"
	log "github.com/nguyentranbao-ct/agent-console/pkg/logger/logctx"
	"github.com/nguyentranbao-ct/agent-console/pkg/tmplx"
)

var errEmptyPrompt = errors.New("prompt renders empty")

type Config struct {
	GoogleAIAPIKey string        `env:"GOOGLE_AI_API_KEY"`
	DefaultModel   string        `env:"DEFAULT_MODEL" envDefault:"googleai/gemini-2.5-flash"`
	Timeout        time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

type TestMetadata struct {
	Timestamp time.Time `json:"timestamp"`
	AgentID   string    `json:"agentId"`
	Model     string    `json:"model,omitempty"`
}

type TestResult struct {
	Response string       `json:"response"`
	Metadata TestMetadata `json:"metadata"`
}

type Runner interface {
	Run(ctx context.Context, agent models.Agent, input string) (*TestResult, error)
}

// NewRunner picks the genkit runner when an API key is configured and the
// echo runner otherwise.
func NewRunner(ctx context.Context, cfg Config) Runner {
	if cfg.GoogleAIAPIKey == "" {
		return NewEchoRunner(nil)
	}
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{
		APIKey: cfg.GoogleAIAPIKey,
	}))
	return &GenkitRunner{genkit: g, cfg: cfg}
}

type GenkitRunner struct {
	genkit *genkit.Genkit
	cfg    Config
}

func (r *GenkitRunner) Run(ctx context.Context, agent models.Agent, input string) (*TestResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	model := configString(agent.Config, "model", r.cfg.DefaultModel)
	system, err := SystemPrompt(agent, input)
	if err != nil {
		return nil, fmt.Errorf("render system prompt: %w", err)
	}
	messages := []*ai.Message{
		ai.NewSystemTextMessage(system),
		ai.NewUserTextMessage(input),
	}

	start := time.Now()
	response, err := genkit.Generate(ctx, r.genkit,
		ai.WithMessages(messages...),
		ai.WithModelName(model),
	)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	log.Debugw(ctx, "agent test generated", "agent_id", agent.ID, "model", model, "duration", time.Since(start).String())

	return &TestResult{
		Response: response.Text(),
		Metadata: TestMetadata{Timestamp: time.Now(), AgentID: agent.GetID(), Model: model},
	}, nil
}

// EchoRunner answers without calling a model. It is what runs when no
// provider key is configured.
type EchoRunner struct {
	now func() time.Time
}

func NewEchoRunner(now func() time.Time) *EchoRunner {
	if now == nil {
		now = time.Now
	}
	return &EchoRunner{now: now}
}

func (r *EchoRunner) Run(_ context.Context, agent models.Agent, input string) (*TestResult, error) {
	return &TestResult{
		Response: "Processed input: " + input,
		Metadata: TestMetadata{Timestamp: r.now(), AgentID: agent.GetID()},
	}, nil
}

// PromptData is what a systemPrompt template renders against.
type PromptData struct {
	Name        string
	Description string
	Input       string
	Config      map[string]any
}

const samplePromptInput = `{"message":"hello"}`

// ParsePrompt checks a systemPrompt template. It must parse and render
// something non-blank for a sample input.
func ParsePrompt(text string) (*tmplx.Template, error) {
	sample := PromptData{Name: "agent", Input: samplePromptInput, Config: map[string]any{}}
	return tmplx.Parse("systemPrompt", text, tmplx.WithValidate(sample, func(out string) error {
		if strings.TrimSpace(out) == "" {
			return errEmptyPrompt
		}
		return nil
	}))
}

// SystemPrompt renders systemPrompt from the agent config as a template and
// falls back to a prompt built from the agent's name and description.
func SystemPrompt(agent models.Agent, input string) (string, error) {
	if text := configString(agent.Config, "systemPrompt", ""); text != "" {
		tmpl, err := ParsePrompt(text)
		if err != nil {
			return "", err
		}
		return tmpl.Render(PromptData{
			Name:        agent.Name,
			Description: agent.Description,
			Input:       input,
			Config:      agent.Config,
		})
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.", agent.Name)
	if agent.Description != "" {
		b.WriteString(" ")
		b.WriteString(agent.Description)
	}
	return b.String(), nil
}

func configString(cfg map[string]any, key, fallback string) string {
	if v, ok := cfg[key].(string); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}
