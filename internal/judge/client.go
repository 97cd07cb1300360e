package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-live-api/internal/observability"
)

// Status ids at or below this value mean the submission is still queued or
// running; anything above is terminal (accepted, wrong answer, error, ...).
const terminalStatusThreshold = 2

// ErrJudgeTimeout indicates the external service did not reach a terminal
// status within the configured attempt budget.
var ErrJudgeTimeout = errors.New("judge polling exceeded attempt budget")

// ErrJudgeUnavailable indicates the service rejected or failed the request.
var ErrJudgeUnavailable = errors.New("judge service unavailable")

// Result carries the terminal outcome of a judged execution.
type Result struct {
	Stdout            string
	Stderr            string
	StatusID          int
	StatusDescription string
}

// Client submits code to an external execution service and waits for a
// terminal result. The submit/poll mechanics and retry policy are hidden from
// callers.
type Client interface {
	Judge(ctx context.Context, languageID int, source, stdin string) (Result, error)
}

// Config tunes the polling loop.
type Config struct {
	BaseURL      string
	APIKey       string
	PollInterval time.Duration
	MaxAttempts  int
}

type client struct {
	http   *http.Client
	config Config
	logger zerolog.Logger
}

// NewClient builds a judge client. httpClient may be nil, in which case a
// client with a sane request timeout is used.
func NewClient(cfg Config, httpClient *http.Client, logger zerolog.Logger) Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 30
	}

	return &client{
		http:   httpClient,
		config: cfg,
		logger: logger.With().Str("component", "judge_client").Logger(),
	}
}

type submitRequest struct {
	LanguageID int    `json:"language_id"`
	SourceCode string `json:"source_code"`
	Stdin      string `json:"stdin"`
}

type submitResponse struct {
	Token string `json:"token"`
}

type pollResponse struct {
	Status struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

func (c *client) Judge(ctx context.Context, languageID int, source, stdin string) (Result, error) {
	token, err := c.submit(ctx, languageID, source, stdin)
	if err != nil {
		observability.JudgeRequests().WithLabelValues("submit_error").Inc()
		return Result{}, err
	}

	for attempt := 0; attempt < c.config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			observability.JudgeRequests().WithLabelValues("cancelled").Inc()
			return Result{}, ctx.Err()
		case <-time.After(c.config.PollInterval):
		}

		poll, err := c.poll(ctx, token)
		if err != nil {
			observability.JudgeRequests().WithLabelValues("poll_error").Inc()
			return Result{}, err
		}

		if poll.Status.ID > terminalStatusThreshold {
			observability.JudgeRequests().WithLabelValues("terminal").Inc()
			return Result{
				Stdout:            poll.Stdout,
				Stderr:            poll.Stderr,
				StatusID:          poll.Status.ID,
				StatusDescription: poll.Status.Description,
			}, nil
		}
	}

	observability.JudgeRequests().WithLabelValues("timeout").Inc()
	c.logger.Warn().Str("token", token).Int("attempts", c.config.MaxAttempts).Msg("judge never reached terminal status")
	return Result{}, ErrJudgeTimeout
}

func (c *client) submit(ctx context.Context, languageID int, source, stdin string) (string, error) {
	payload, err := json.Marshal(submitRequest{
		LanguageID: languageID,
		SourceCode: source,
		Stdin:      stdin,
	})
	if err != nil {
		return "", fmt.Errorf("marshal judge submission: %w", err)
	}

	url := fmt.Sprintf("%s/submissions?base64_encoded=false&wait=false", c.config.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build judge request: %w", err)
	}
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrJudgeUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: submit returned status %d: %s", ErrJudgeUnavailable, resp.StatusCode, bytes.TrimSpace(body))
	}

	var submitted submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		return "", fmt.Errorf("%w: malformed submit response: %v", ErrJudgeUnavailable, err)
	}
	if submitted.Token == "" {
		return "", fmt.Errorf("%w: submit response missing token", ErrJudgeUnavailable)
	}

	return submitted.Token, nil
}

func (c *client) poll(ctx context.Context, token string) (pollResponse, error) {
	url := fmt.Sprintf("%s/submissions/%s", c.config.BaseURL, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return pollResponse{}, fmt.Errorf("build poll request: %w", err)
	}
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return pollResponse{}, fmt.Errorf("%w: %v", ErrJudgeUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pollResponse{}, fmt.Errorf("%w: poll returned status %d", ErrJudgeUnavailable, resp.StatusCode)
	}

	var polled pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&polled); err != nil {
		return pollResponse{}, fmt.Errorf("%w: malformed poll response: %v", ErrJudgeUnavailable, err)
	}

	return polled, nil
}

func (c *client) decorate(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("X-Auth-Token", c.config.APIKey)
	}
}
