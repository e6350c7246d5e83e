package summary

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"
)

// Client submits a prompt to an LLM and returns the text completion.
type Client interface {
	// Complete returns the model's text reply, or an *Error on network,
	// auth, or rate-limit failure.
	Complete(ctx context.Context, prompt string) (string, error)

	// Provider names the backing provider for logging.
	Provider() string
}

// ClientConfig selects and configures the LLM provider.
type ClientConfig struct {
	// Provider is "anthropic", "openai", "ollama", or "auto".
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// ollamaProbeURL is where a local Ollama daemon answers.
const ollamaProbeURL = "http://localhost:11434/"

// NewClient builds a client for the configured provider. "auto" probes for
// a local Ollama daemon first, then sniffs the API key prefix, and falls
// back to anthropic.
func NewClient(cfg ClientConfig) Client {
	provider := strings.ToLower(cfg.Provider)
	if provider == "" || provider == "auto" {
		provider = resolveAutoProvider(cfg)
	}

	switch provider {
	case "openai", "ollama":
		baseURL := cfg.BaseURL
		apiKey := cfg.APIKey
		if provider == "ollama" {
			if baseURL == "" {
				baseURL = "http://localhost:11434/v1"
			}
			if apiKey == "" {
				apiKey = "ollama" // Ollama ignores the key but the header must be present
			}
		}
		return newOpenAIClient(provider, cfg.Model, apiKey, baseURL)
	default:
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		return newAnthropicClient(cfg.Model, apiKey, cfg.BaseURL)
	}
}

func resolveAutoProvider(cfg ClientConfig) string {
	if probeOllama() {
		return "ollama"
	}
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("ANTHROPIC_API_KEY")
	}
	if strings.HasPrefix(key, "sk-ant-") {
		return "anthropic"
	}
	if strings.HasPrefix(key, "sk-") {
		return "openai"
	}
	return "anthropic"
}

func probeOllama() bool {
	client := &http.Client{Timeout: 500 * time.Millisecond}
	resp, err := client.Get(ollamaProbeURL)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
