package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"emipredict/models"
)

const (
	explainSystemPrompt   = "You are a concise financial analyst. Always provide brief, actionable explanations."
	summarizeSystemPrompt = "You are a concise financial risk analyst. Always provide brief, actionable insights."

	// A lifetime average delay above this marks a customer as high risk
	// in the batch summary prompt.
	highRiskDelayDays = 7.0
)

// Explainer wraps the OpenAI API for prediction explanations. Every
// failure is reported as ErrExplanationUnavailable so callers can
// degrade to a prediction without text.
type Explainer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  zerolog.Logger
}

// New creates an Explainer backed by the OpenAI chat completion API
func New(apiKey, model string, timeout time.Duration) *Explainer {
	return &Explainer{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
		logger:  log.With().Str("component", "llm_explainer").Logger(),
	}
}

// Explain generates a short rationale for a single prediction.
func (e *Explainer) Explain(ctx context.Context, prediction models.Prediction) (string, error) {
	return e.completion(ctx, explainSystemPrompt, explainPrompt(prediction), 150)
}

// Summarize generates batch-level insights across all predictions.
func (e *Explainer) Summarize(ctx context.Context, predictions []models.Prediction, failed map[string]string) (string, error) {
	if len(predictions) == 0 {
		return "", fmt.Errorf("%w: no predictions to summarize", models.ErrExplanationUnavailable)
	}
	return e.completion(ctx, summarizeSystemPrompt, summarizePrompt(predictions, failed), 200)
}

func (e *Explainer) completion(ctx context.Context, system, user string, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	e.logger.Debug().Str("prompt", user).Msg("Sending prompt to OpenAI")

	resp, err := e.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: e.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
			MaxTokens:   maxTokens,
			Temperature: 0.7,
		},
	)
	if err != nil {
		e.logger.Error().Err(err).Msg("OpenAI API error")
		return "", fmt.Errorf("%w: %v", models.ErrExplanationUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		e.logger.Warn().Msg("OpenAI returned empty choices")
		return "", fmt.Errorf("%w: empty completion", models.ErrExplanationUnavailable)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func explainPrompt(p models.Prediction) string {
	var sb strings.Builder
	sb.WriteString("Provide a SHORT explanation (2-3 sentences max) for this installment payment prediction:\n\n")
	sb.WriteString(fmt.Sprintf("Customer: %s\n", p.CustomerID))
	sb.WriteString(fmt.Sprintf("Next Demand: %s\n", p.NextDemandDate.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("Predicted Date: %s\n", p.PredictedPaymentDate.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("Avg Delay: %.1f days\n", p.AverageDelayDays))
	sb.WriteString(fmt.Sprintf("Confidence: %.0f%%\n\n", p.ConfidenceScore*100))
	sb.WriteString("Include: (1) Why this date, (2) Risk level (low/medium/high), (3) One key recommendation.\n")
	sb.WriteString("Keep it brief and actionable.")
	return sb.String()
}

func summarizePrompt(predictions []models.Prediction, failed map[string]string) string {
	var sumDelay, sumConfidence float64
	highRisk := 0
	earliest, latest := predictions[0].PredictedPaymentDate, predictions[0].PredictedPaymentDate
	for _, p := range predictions {
		sumDelay += p.AverageDelayDays
		sumConfidence += p.ConfidenceScore
		if p.AverageDelayDays > highRiskDelayDays {
			highRisk++
		}
		if p.PredictedPaymentDate.Before(earliest) {
			earliest = p.PredictedPaymentDate
		}
		if p.PredictedPaymentDate.After(latest) {
			latest = p.PredictedPaymentDate
		}
	}
	n := float64(len(predictions))

	var sb strings.Builder
	sb.WriteString("Provide SHORT business insights (3-4 sentences max) for these installment payment predictions:\n\n")
	sb.WriteString(fmt.Sprintf("Total customers analyzed: %d\n", len(predictions)))
	sb.WriteString(fmt.Sprintf("Customers that could not be predicted: %d\n", len(failed)))
	sb.WriteString(fmt.Sprintf("Average payment delay: %.1f days\n", sumDelay/n))
	sb.WriteString(fmt.Sprintf("Customers with high delay risk: %d\n", highRisk))
	sb.WriteString(fmt.Sprintf("Avg confidence: %.0f%%\n", sumConfidence/n*100))
	sb.WriteString(fmt.Sprintf("Date range: %s to %s\n\n", earliest.Format("2006-01-02"), latest.Format("2006-01-02")))
	sb.WriteString("Include: (1) Overall risk, (2) One key trend, (3) Top action item.\n")
	sb.WriteString("Be concise.")
	return sb.String()
}
