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

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"codeduel-backend/internal/metrics"
	"codeduel-backend/internal/model"
)

// Client is an HTTP implementation of Judge. Every call is bounded by the
// configured timeout; transient transport failures are retried with capped
// exponential backoff. A response the service did produce but that carries
// no usable structured result is ErrJudgeFailure and is never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	maxRetries uint64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a judge client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, maxRetries uint64, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		timeout:    timeout,
		maxRetries: maxRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EvaluateSubmission implements Judge.
func (c *Client) EvaluateSubmission(ctx context.Context, req EvaluationRequest) (*model.Evaluation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	var eval model.Evaluation
	err := c.post(ctx, "/v1/evaluate", req, &eval)
	metrics.ObserveJudgeCall("evaluate", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	// A structurally empty evaluation is as useless as no response.
	if eval.CorrectnessExplanation == "" && eval.OverallAssessment == "" {
		return nil, ErrJudgeFailure
	}
	return &eval, nil
}

// Adjudicate implements Judge.
func (c *Client) Adjudicate(ctx context.Context, req AdjudicationRequest) (*AdjudicationResult, error) {
	if req.Player1Evaluation == nil || req.Player2Evaluation == nil {
		return nil, ErrInvalidInput
	}

	start := time.Now()
	var res AdjudicationResult
	err := c.post(ctx, "/v1/adjudicate", req, &res)
	metrics.ObserveJudgeCall("adjudicate", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	switch res.Winner {
	case model.WinnerPlayer1, model.WinnerPlayer2, model.WinnerDraw:
		return &res, nil
	default:
		return nil, ErrJudgeFailure
	}
}

// GenerateChallenge implements Judge.
func (c *Client) GenerateChallenge(ctx context.Context, playerRank int, difficulty model.Difficulty) (*model.Problem, error) {
	if !difficulty.Valid() {
		return nil, ErrInvalidInput
	}

	req := struct {
		PlayerRank int              `json:"playerRank"`
		Difficulty model.Difficulty `json:"difficulty"`
	}{playerRank, difficulty}

	start := time.Now()
	var problem model.Problem
	err := c.post(ctx, "/v1/generate", req, &problem)
	metrics.ObserveJudgeCall("generate", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if problem.ProblemStatement == "" || problem.Solution == "" {
		return nil, ErrJudgeFailure
	}
	return &problem, nil
}

// post issues one JSON request with retry on transient transport errors.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode judge request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	operation := func() error {
		return c.doOnce(ctx, path, payload, out)
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries),
		ctx,
	)
	if err := backoff.Retry(operation, bo); err != nil {
		if ctx.Err() != nil {
			// Timeout expiry counts as the judge producing nothing.
			log.Warn().Str("path", path).Err(err).Msg("judge call timed out")
			return ErrJudgeFailure
		}
		if errors.Is(err, ErrJudgeFailure) {
			return err
		}
		// Retries exhausted on transport or 5xx failures: the judge never
		// produced a usable result.
		log.Warn().Str("path", path).Err(err).Msg("judge call failed after retries")
		return fmt.Errorf("%w: %v", ErrJudgeFailure, err)
	}
	return nil
}

func (c *Client) doOnce(ctx context.Context, path string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to build judge request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport error, worth retrying.
		return fmt.Errorf("judge request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("judge returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		// The service answered and declined; retrying won't change its mind.
		io.Copy(io.Discard, resp.Body)
		return backoff.Permanent(ErrJudgeFailure)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// A 200 with an undecodable body is a judge failure, not transport.
		return backoff.Permanent(ErrJudgeFailure)
	}
	return nil
}
