// AngelaMos | 2026
// assistant.go

package jarvis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/taskispace/api/internal/config"
)

var ErrAssistantUnavailable = errors.New("assistant unavailable")

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TaskAction asks the service to create a task on the user's behalf.
type TaskAction struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

type Completion struct {
	Reply            string
	Action           *TaskAction
	PromptTokens     int
	CompletionTokens int
}

func (c *Completion) TotalTokens() int {
	return c.PromptTokens + c.CompletionTokens
}

type Assistant interface {
	Complete(ctx context.Context, messages []ChatMessage) (*Completion, error)
}

const systemPrompt = `You are Jarvis, the TaskiSpace assistant. Help the user plan and organise work.
Always answer with a JSON object: {"reply": "<text for the user>", "create_task": null}.
When the user asks you to add, create or remember a task, set "create_task" to
{"title": "...", "description": "...", "priority": "low|medium|high", "due_date": "<RFC3339 or null>"}.`

// HTTPAssistant talks to an OpenAI compatible chat completions endpoint.
type HTTPAssistant struct {
	cfg    config.JarvisConfig
	client *http.Client
}

func NewHTTPAssistant(cfg config.JarvisConfig) *HTTPAssistant {
	return &HTTPAssistant{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []ChatMessage  `json:"messages"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type structuredReply struct {
	Reply      string      `json:"reply"`
	CreateTask *TaskAction `json:"create_task"`
}

func (a *HTTPAssistant) Complete(
	ctx context.Context,
	messages []ChatMessage,
) (*Completion, error) {
	body, err := json.Marshal(chatRequest{
		Model:          a.cfg.Model,
		Messages:       messages,
		ResponseFormat: map[string]any{"type": "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	endpoint := strings.TrimSuffix(a.cfg.APIURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read completion response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode completion response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		msg := http.StatusText(resp.StatusCode)
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, fmt.Errorf("completion failed with status %d: %s", resp.StatusCode, msg)
	}

	if len(parsed.Choices) == 0 {
		return nil, errors.New("completion returned no choices")
	}

	out := parseStructured(parsed.Choices[0].Message.Content)
	out.PromptTokens = parsed.Usage.PromptTokens
	out.CompletionTokens = parsed.Usage.CompletionTokens

	if out.PromptTokens == 0 {
		for _, m := range messages {
			out.PromptTokens += messageTokens(m)
		}
	}
	if out.CompletionTokens == 0 {
		out.CompletionTokens = EstimateTokens(parsed.Choices[0].Message.Content)
	}

	return out, nil
}

// parseStructured reads the JSON reply format. Models that ignore it still
// produce a usable plain text reply.
func parseStructured(content string) *Completion {
	var reply structuredReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil || reply.Reply == "" {
		return &Completion{Reply: strings.TrimSpace(content)}
	}

	out := &Completion{Reply: reply.Reply}
	if reply.CreateTask != nil && strings.TrimSpace(reply.CreateTask.Title) != "" {
		out.Action = reply.CreateTask
	}
	return out
}

// BreakerAssistant stops calling a failing upstream until it has had time
// to recover.
type BreakerAssistant struct {
	next    Assistant
	breaker *gobreaker.CircuitBreaker[*Completion]
}

func NewBreakerAssistant(
	next Assistant,
	cfg config.JarvisConfig,
	logger *slog.Logger,
) *BreakerAssistant {
	if logger == nil {
		logger = slog.Default()
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	settings := gobreaker.Settings{
		Name:        "jarvis",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &BreakerAssistant{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[*Completion](settings),
	}
}

func (b *BreakerAssistant) Complete(
	ctx context.Context,
	messages []ChatMessage,
) (*Completion, error) {
	out, err := b.breaker.Execute(func() (*Completion, error) {
		return b.next.Complete(ctx, messages)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("jarvis: %w", ErrAssistantUnavailable)
	}
	return out, err
}

var taskCommand = regexp.MustCompile(
	`(?i)^\s*(?:please\s+)?(?:add|create|new)\s+(?:a\s+)?task(?:\s+to)?\s*[:\-]?\s*(.+)$|^\s*remind me to\s+(.+)$`,
)

// RuleAssistant answers without a model. It understands direct task
// commands and otherwise explains what it can do.
type RuleAssistant struct{}

func (RuleAssistant) Complete(
	ctx context.Context,
	messages []ChatMessage,
) (*Completion, error) {
	var last string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			last = messages[i].Content
			break
		}
	}

	out := &Completion{}
	for _, m := range messages {
		out.PromptTokens += messageTokens(m)
	}

	if match := taskCommand.FindStringSubmatch(last); match != nil {
		title := strings.TrimSpace(match[1])
		if title == "" {
			title = strings.TrimSpace(match[2])
		}
		title = strings.TrimRight(title, ".!")
		out.Action = &TaskAction{Title: title}
		out.Reply = fmt.Sprintf("Got it. I'll add %q to your tasks.", title)
	} else {
		out.Reply = `I can turn requests like "add task: review the roadmap" into tasks for you.`
	}

	out.CompletionTokens = EstimateTokens(out.Reply)
	return out, nil
}
