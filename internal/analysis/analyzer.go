package analysis

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"github.com/stepreview/internal/logging"
	"github.com/stepreview/pkg/models"
)

// Analyzer is the contract with the semantic-analysis capability. One
// call per reviewed file; implementations must return *AnalysisError for
// every failure mode so the orchestrator can classify it.
type Analyzer interface {
	Analyze(ctx context.Context, request models.AnalysisRequest) (*models.AnalysisResult, error)
}

// Supported capability providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config for the langchain-backed analyzer.
type Config struct {
	Provider          string  `json:"provider"`
	APIKey            string  `json:"api_key"`
	Model             string  `json:"model"`
	Temperature       float64 `json:"temperature"`
	MaxTokens         int     `json:"max_tokens"`
	RequestsPerMinute int     `json:"requests_per_minute"`
}

// LangchainAnalyzer implements Analyzer over langchaingo models. A rate
// limiter throttles outbound calls; the capability itself may still rate
// limit, which surfaces as an unreachable error.
type LangchainAnalyzer struct {
	llm         llms.Model
	modelName   string
	temperature float64
	maxTokens   int
	limiter     *rate.Limiter
	logger      *logging.ReviewLogger
}

// NewLangchainAnalyzer creates an analyzer for the configured provider.
func NewLangchainAnalyzer(ctx context.Context, config Config, logger *logging.ReviewLogger) (*LangchainAnalyzer, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	modelName := config.Model
	var llm llms.Model
	var err error

	switch config.Provider {
	case ProviderOpenAI, "":
		if modelName == "" {
			modelName = "gpt-4o-mini"
		}
		llm, err = openai.New(
			openai.WithToken(config.APIKey),
			openai.WithModel(modelName),
		)
	case ProviderGemini:
		if modelName == "" {
			modelName = "gemini-2.5-flash"
		}
		opts := []googleai.Option{
			googleai.WithAPIKey(config.APIKey),
			googleai.WithDefaultModel(modelName),
		}
		if config.MaxTokens > 0 {
			opts = append(opts, googleai.WithDefaultMaxTokens(config.MaxTokens))
		}
		llm, err = googleai.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	limit := rate.Inf
	if config.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(config.RequestsPerMinute) / 60.0)
	}

	return &LangchainAnalyzer{
		llm:         llm,
		modelName:   modelName,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		limiter:     rate.NewLimiter(limit, 1),
		logger:      logger,
	}, nil
}

// Analyze sends one request to the capability and returns the validated
// result. Invoked at most once per file per run; no retry here.
func (a *LangchainAnalyzer) Analyze(ctx context.Context, request models.AnalysisRequest) (*models.AnalysisResult, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, newError(KindUnreachable, err)
	}

	prompt := buildPrompt(request)
	a.logger.Debug("Sending analysis request to %s (%d prompt chars, %d feature blobs, %d step blobs)",
		a.modelName, len(prompt), len(request.FeatureContext), len(request.StepContext))

	opts := []llms.CallOption{llms.WithTemperature(a.temperature)}
	if a.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(a.maxTokens))
	}

	response, err := llms.GenerateFromSinglePrompt(ctx, a.llm, prompt, opts...)
	if err != nil {
		return nil, newError(KindUnreachable, fmt.Errorf("LLM call failed: %w", err))
	}

	result, err := parseResult(response)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("Analysis returned %d findings (confidence %.2f)", len(result.Issues), result.Confidence)
	return result, nil
}
