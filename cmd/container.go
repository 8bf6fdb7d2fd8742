// cmd/container.go
//
// Root composition root. Owns the generation provider, the tool registry,
// and the live session store. This is the only place that knows about ALL
// the providers.
package main

import (
	"context"
	"os"

	awsConfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/parleyhq/parley/pkg/ai/llm"
	"github.com/parleyhq/parley/pkg/ai/llm/memoryx"
	"github.com/parleyhq/parley/pkg/ai/llm/sessionx"
	"github.com/parleyhq/parley/pkg/ai/llm/toolx"
	"github.com/parleyhq/parley/pkg/ai/providers/aianthropic"
	"github.com/parleyhq/parley/pkg/ai/providers/aibedrock"
	"github.com/parleyhq/parley/pkg/ai/providers/aigemini"
	"github.com/parleyhq/parley/pkg/ai/providers/aiopenai"
	"github.com/parleyhq/parley/pkg/config"
	"github.com/parleyhq/parley/pkg/logx"
	"github.com/parleyhq/parley/pkg/tools/weather"
)

// Container holds shared infrastructure for the session API.
type Container struct {
	Config *config.Config

	Provider llm.Provider
	Client   *llm.Client
	Tools    *toolx.ToolxClient
	Sessions *sessionStore
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("Initializing application container...")

	c := &Container{
		Config:   cfg,
		Sessions: newSessionStore(),
	}

	c.initProvider()
	c.initTools()

	logx.Info("Application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Provider selection — one process serves one backend
// ---------------------------------------------------------------------------

func (c *Container) initProvider() {
	switch c.Config.AI.Provider {
	case "openai":
		c.Provider = aiopenai.NewOpenAIProvider(os.Getenv("OPENAI_API_KEY"))

	case "anthropic":
		c.Provider = aianthropic.NewAnthropicProvider(os.Getenv("ANTHROPIC_API_KEY"))

	case "gemini":
		provider, err := aigemini.NewGeminiProvider(context.Background(), os.Getenv("GEMINI_API_KEY"))
		if err != nil {
			logx.Fatalf("Failed to initialize Gemini provider: %v", err)
		}
		c.Provider = provider

	case "bedrock":
		cfg, err := awsConfig.LoadDefaultConfig(context.Background(),
			awsConfig.WithRegion(c.Config.AI.AWSRegion))
		if err != nil {
			logx.Fatalf("Unable to load AWS SDK config: %v", err)
		}
		c.Provider = aibedrock.NewBedrockProvider(cfg)

	default:
		logx.Fatalf("Unknown AI_PROVIDER: %s (use 'openai', 'anthropic', 'gemini' or 'bedrock')", c.Config.AI.Provider)
	}

	c.Client = llm.NewClient(c.Provider)
	logx.Infof("  Provider configured: %s", c.Config.AI.Provider)
}

// ---------------------------------------------------------------------------
// Tools
// ---------------------------------------------------------------------------

func (c *Container) initTools() {
	if !c.Config.Session.EnableTools {
		logx.Info("  Tools disabled")
		return
	}

	c.Tools = toolx.FromToolx(weather.New())
	logx.Info("  Tools registered: get_weather")
}

// ---------------------------------------------------------------------------
// Session factory
// ---------------------------------------------------------------------------

// NewSession builds a session backed by a fresh budgeted history
func (c *Container) NewSession(systemPrompt string, budget int) *sessionx.Session {
	if systemPrompt == "" {
		systemPrompt = c.Config.Session.SystemPrompt
	}
	if budget <= 0 {
		budget = c.Config.Session.TokenBudget
	}

	history := memoryx.NewTokenWindowMemory(systemPrompt, budget)

	opts := []sessionx.SessionOption{}
	if c.Config.AI.Model != "" {
		opts = append(opts, sessionx.WithOptions(llm.WithModel(c.Config.AI.Model)))
	}
	if c.Tools != nil {
		opts = append(opts, sessionx.WithTools(c.Tools))
	}

	return sessionx.New(c.Client, history, opts...)
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (c *Container) Cleanup() {
	logx.Infof("Cleaning up: dropping %d live sessions", c.Sessions.Count())
}
