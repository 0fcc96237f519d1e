package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/Vovarama1992/scene_narrator/internal/domain"
)

type completer interface {
	GetCompletion(ctx context.Context, messages []openai.ChatCompletionMessage, model string) (string, error)
}

// Describer turns a picture into a short spoken-style scene description.
type Describer struct {
	client  completer
	model   string
	timeout time.Duration
	log     *zap.SugaredLogger
}

func NewDescriber(client completer, model string, timeout time.Duration, log *zap.SugaredLogger) *Describer {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Describer{
		client:  client,
		model:   model,
		timeout: timeout,
		log:     log,
	}
}

// диагностика ошибок модели
func analyzeOpenAIError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "inference request timed out"
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusUnauthorized:
		return "invalid inference API key"
	case status == http.StatusNotFound:
		return "model not found"
	case status == http.StatusTooManyRequests:
		return "inference rate limit exceeded"
	case status == http.StatusBadRequest:
		return "inference request rejected"
	case status >= 500:
		return "inference service error"
	}
	return "inference call failed"
}

// Describe sends the data URL together with ScenePrompt as one user message and
// returns the trimmed text of the first choice.
func (d *Describer) Describe(ctx context.Context, imageURL string) (string, error) {
	start := time.Now()

	messages := []openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: imageURL},
				},
				{Type: openai.ChatMessagePartTypeText, Text: ScenePrompt},
			},
		},
	}

	ctxGPT, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	reply, err := d.client.GetCompletion(ctxGPT, messages, d.model)
	if err != nil {
		diag := analyzeOpenAIError(err)
		d.log.Errorw("describe failed",
			"model", d.model,
			"diag", diag,
			"elapsed", time.Since(start).Round(time.Millisecond).String(),
			"error", err)
		return "", fmt.Errorf("%w: %s: %v", domain.ErrInference, diag, err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("%w: model returned an empty description", domain.ErrInference)
	}

	d.log.Infow("describe done",
		"model", d.model,
		"chars", len(reply),
		"elapsed", time.Since(start).Round(time.Millisecond).String())
	return reply, nil
}
