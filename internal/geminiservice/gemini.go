package geminiservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// --- Gemini API Configuration ---
const (
	DefaultAPIURL         = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"
	DefaultMaxAttempts    = 3
	DefaultInitialBackoff = 1 * time.Second
	DefaultRequestTimeout = 10 * time.Second

	// maxErrorBody limits how much of a failed response body ends up in logs.
	maxErrorBody = 4 << 10
)

// Failure classes returned by Client.Send. Match them with errors.Is.
var (
	// ErrRateLimited means Gemini answered 429. It is the only retried failure.
	ErrRateLimited = errors.New("gemini rate limited the request")

	// ErrTransport covers network errors, non-200 answers and malformed bodies.
	ErrTransport = errors.New("gemini transport failure")

	// ErrTimeout means a single attempt ran past its deadline.
	ErrTimeout = errors.New("gemini request timed out")
)

// --- Structs for Gemini API Request/Response ---

type GeminiPayload struct {
	Contents []GeminiContent `json:"contents"`
}

type GeminiContent struct {
	Parts []GeminiPart `json:"parts"`
}

type GeminiPart struct {
	Text string `json:"text"`
}

type GeminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Options configures a Client. Zero values select the defaults above.
type Options struct {
	APIKey         string
	APIURL         string
	RequestTimeout time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	HTTPClient     *http.Client
}

// Client sends prompts to the Gemini generateContent endpoint.
type Client struct {
	apiKey         string
	apiURL         string
	requestTimeout time.Duration
	maxAttempts    int
	initialBackoff time.Duration
	httpClient     *http.Client
	log            zerolog.Logger

	// sleep waits between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient builds a Client from opts.
func NewClient(log zerolog.Logger, opts Options) *Client {
	c := &Client{
		apiKey:         opts.APIKey,
		apiURL:         opts.APIURL,
		requestTimeout: opts.RequestTimeout,
		maxAttempts:    opts.MaxAttempts,
		initialBackoff: opts.InitialBackoff,
		httpClient:     opts.HTTPClient,
		log:            log.With().Str("component", "gemini").Logger(),
		sleep:          sleepContext,
	}

	if c.apiURL == "" {
		c.apiURL = DefaultAPIURL
	}
	if c.requestTimeout <= 0 {
		c.requestTimeout = DefaultRequestTimeout
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if c.initialBackoff <= 0 {
		c.initialBackoff = DefaultInitialBackoff
	}
	if c.httpClient == nil {
		// Per-attempt deadlines come from the request context.
		c.httpClient = &http.Client{}
	}

	return c
}

// BackoffDelay is the wait before retry number attempt (0-based): base * 2^attempt.
func BackoffDelay(base time.Duration, attempt int) time.Duration {
	return base << uint(attempt)
}

// Send posts prompt to Gemini and returns the completion text of the first
// candidate, or "" when the answer carries no candidate.
//
// Only ErrRateLimited is retried, with exponential backoff, up to the
// configured attempt count. Every other failure is returned at once. When ctx
// is done no further attempt is made.
func (c *Client) Send(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		c.log.Error().Msg("GEMINI_API_KEY is not set; AI recommendations are disabled")
		return "", fmt.Errorf("%w: server is not configured for AI recommendations", ErrTransport)
	}

	payloadBytes, err := json.Marshal(GeminiPayload{
		Contents: []GeminiContent{
			{Parts: []GeminiPart{{Text: prompt}}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to marshal payload: %w", ErrTransport, err)
	}

	endpoint, err := c.endpoint()
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := BackoffDelay(c.initialBackoff, attempt-1)
			c.log.Info().Dur("delay", delay).Msgf("Rate limited, retrying in %s", delay)
			if err := c.sleep(ctx, delay); err != nil {
				return "", fmt.Errorf("%w: retry abandoned: %w", ErrTransport, err)
			}
		}

		c.log.Info().Msgf("Attempt %d: Calling Gemini API...", attempt+1)

		text, err := c.do(ctx, endpoint, payloadBytes)
		if err == nil {
			return text, nil
		}

		c.log.Warn().Err(err).Msgf("Attempt %d failed", attempt+1)
		if !errors.Is(err, ErrRateLimited) {
			return "", err
		}
		lastErr = err
	}

	return "", fmt.Errorf("failed to call Gemini API after %d attempts: %w", c.maxAttempts, lastErr)
}

// do runs a single attempt bounded by the request timeout.
func (c *Client) do(ctx context.Context, endpoint string, payload []byte) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %w", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.classify(ctx, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("%w: API returned status %s", ErrRateLimited, resp.Status)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("%w: API returned non-200 status: %s, Body: %s", ErrTransport, resp.Status, string(body))
	}

	var geminiResp GeminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return "", c.classify(ctx, "failed to decode response", err)
	}

	if len(geminiResp.Candidates) > 0 && len(geminiResp.Candidates[0].Content.Parts) > 0 {
		return geminiResp.Candidates[0].Content.Parts[0].Text, nil
	}

	return "", nil
}

// classify maps a low-level failure to ErrTimeout or ErrTransport. A done
// parent context always counts as a transport failure.
func (c *Client) classify(ctx context.Context, msg string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %s: %w", ErrTransport, msg, ctx.Err())
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w after %s: %w", ErrTimeout, c.requestTimeout, err)
	}

	return fmt.Errorf("%w: %s: %w", ErrTransport, msg, err)
}

// endpoint appends the API key as the "key" query parameter.
func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid Gemini API URL: %w", ErrTransport, err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
