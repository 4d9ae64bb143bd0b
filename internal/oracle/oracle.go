// Package oracle provides the semantic-similarity function consumed by the
// fingerprint engine's third clustering pass. It wraps a language model
// behind the plain SimilarityFunc type so the engine never sees the client.
package oracle

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"seoaudit/internal/fingerprint"
)

// Provider selects the backing model service.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
)

// Config holds the model client settings.
type Config struct {
	Provider Provider      `mapstructure:"provider"`
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Retries  int           `mapstructure:"retries"`
}

const similarityPrompt = `Rate the semantic similarity of the two texts below on a scale from 0.0 (unrelated) to 1.0 (same content).
Respond with a single number and nothing else.

TEXT A:
%s

TEXT B:
%s
`

var scoreRegex = regexp.MustCompile(`[01](?:\.\d+)?`)

// New builds a SimilarityFunc backed by the configured model. Constructing
// the client can fail; scoring errors at call time are returned to the
// caller, which treats them as similarity 0.
func New(cfg Config) (fingerprint.SimilarityFunc, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = 2
	}

	return func(ctx context.Context, a, b string) (float64, error) {
		prompt := fmt.Sprintf(similarityPrompt, a, b)

		var lastErr error
		for attempt := 0; attempt < retries; attempt++ {
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return 0, ctx.Err()
				case <-time.After(time.Second):
				}
			}

			timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
			response, err := llms.GenerateFromSinglePrompt(
				timeoutCtx,
				client,
				prompt,
				llms.WithTemperature(0),
				llms.WithMaxTokens(8),
			)
			cancel()

			if err != nil {
				lastErr = err
				log.Warn().Err(err).Int("attempt", attempt+1).Msg("Similarity oracle call failed")
				continue
			}
			return parseScore(response)
		}
		return 0, fmt.Errorf("similarity oracle failed after %d attempts: %w", retries, lastErr)
	}, nil
}

func newClient(cfg Config) (llms.Model, error) {
	switch cfg.Provider {
	case ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		return ollama.New(opts...)
	case ProviderOpenAI:
		opts := []openai.Option{
			openai.WithModel(cfg.Model),
			openai.WithToken(cfg.APIKey),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported oracle provider: %q", cfg.Provider)
	}
}

// parseScore extracts the first 0-1 float from a model response and clamps
// it into range.
func parseScore(response string) (float64, error) {
	match := scoreRegex.FindString(strings.TrimSpace(response))
	if match == "" {
		return 0, fmt.Errorf("no similarity score in oracle response: %q", response)
	}
	score, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid similarity score %q: %w", match, err)
	}
	return math.Max(0, math.Min(1, score)), nil
}
