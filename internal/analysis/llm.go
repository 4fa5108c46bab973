package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/avast/retry-go/v4"
)

const systemPrompt = "You are a market analyst identifying SaaS product opportunities from search trend data. You produce conservative, structured outputs grounded in the supplied data and do not invent facts. Return strict JSON only."

const (
	// DefaultHeavyModel handles the reasoning-heavy stages.
	DefaultHeavyModel = "claude-sonnet-4-20250514"
	// DefaultLightModel handles market maturity, which is mostly numeric
	// pattern reading.
	DefaultLightModel = "claude-3-5-haiku-latest"
)

type LLMCaller interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
	ModelName() string
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicCaller struct {
	messages AnthropicMessager
	model    string
}

func NewAnthropicCaller(apiKey, model string) (*AnthropicCaller, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("anthropic api key not configured")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultHeavyModel
	}
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicCaller{messages: &c.Messages, model: model}, nil
}

func (a *AnthropicCaller) ModelName() string { return a.model }

func (a *AnthropicCaller) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   4096,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0.1),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

// contentError marks failures of the response itself (empty, bad JSON,
// invalid) as opposed to transport failures. Both are retried; only content
// failures feed corrective text back into the next attempt.
type contentError struct {
	feedback string
	err      error
}

func (e *contentError) Error() string { return e.err.Error() }
func (e *contentError) Unwrap() error { return e.err }

// StageExecutor runs one generative stage: call the model, strip fences,
// decode into out, validate. A failed attempt is retried after a fixed
// delay until maxRetries+1 attempts are spent.
type StageExecutor struct {
	caller     LLMCaller
	maxRetries int
	delay      time.Duration
}

func NewStageExecutor(caller LLMCaller, maxRetries int, delay time.Duration) *StageExecutor {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if delay <= 0 {
		delay = time.Second
	}
	return &StageExecutor{caller: caller, maxRetries: maxRetries, delay: delay}
}

func (e *StageExecutor) ModelName() string {
	if e == nil || e.caller == nil {
		return DefaultHeavyModel
	}
	return e.caller.ModelName()
}

func (e *StageExecutor) Run(ctx context.Context, stage Stage, prompt string, out any, validate func() error) (StageMetrics, error) {
	metrics := StageMetrics{}
	feedback := ""

	err := retry.Do(
		func() error {
			metrics.Attempts++
			fullPrompt := prompt
			if feedback != "" {
				fullPrompt += "\n\n" + feedback
			}

			attemptStart := time.Now()
			log.Printf("analysis llm_attempt_start stage=%s attempt=%d model=%s", stage, metrics.Attempts, e.caller.ModelName())
			raw, err := e.caller.GenerateJSON(ctx, fullPrompt)
			if err != nil {
				log.Printf("analysis llm_attempt_transport_error stage=%s attempt=%d elapsed_ms=%d err=%q", stage, metrics.Attempts, time.Since(attemptStart).Milliseconds(), err.Error())
				return fmt.Errorf("transport failure: %w", err)
			}
			raw = strings.TrimSpace(raw)
			if raw == "" {
				log.Printf("analysis llm_attempt_empty stage=%s attempt=%d elapsed_ms=%d", stage, metrics.Attempts, time.Since(attemptStart).Milliseconds())
				return &contentError{
					feedback: "Your previous response was empty. Return valid JSON only.",
					err:      errors.New("empty response"),
				}
			}

			clean := stripCodeFences(raw)
			if err := json.Unmarshal([]byte(clean), out); err != nil {
				log.Printf("analysis llm_attempt_json_error stage=%s attempt=%d elapsed_ms=%d err=%q", stage, metrics.Attempts, time.Since(attemptStart).Milliseconds(), err.Error())
				return &contentError{
					feedback: "Your previous response was not valid JSON. Return valid JSON only.",
					err:      fmt.Errorf("json parse: %w", err),
				}
			}
			if err := validate(); err != nil {
				log.Printf("analysis llm_attempt_validation_error stage=%s attempt=%d elapsed_ms=%d err=%q", stage, metrics.Attempts, time.Since(attemptStart).Milliseconds(), err.Error())
				return &contentError{
					feedback: fmt.Sprintf("Your response failed validation: %s. Fix and return valid JSON only.", err),
					err:      fmt.Errorf("validation: %w", err),
				}
			}
			log.Printf("analysis llm_attempt_success stage=%s attempt=%d elapsed_ms=%d response_chars=%d", stage, metrics.Attempts, time.Since(attemptStart).Milliseconds(), len(clean))
			return nil
		},
		retry.Attempts(uint(e.maxRetries+1)),
		retry.Delay(e.delay),
		retry.DelayType(retry.FixedDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(_ uint, err error) {
			var ce *contentError
			if errors.As(err, &ce) {
				metrics.ContentRetries++
				feedback = ce.feedback
			}
		}),
	)
	if err != nil {
		return metrics, fmt.Errorf("%s failed after %d attempts: %w", stage, metrics.Attempts, err)
	}
	return metrics, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}
