// Package backend is the REST client for the hosted profile backend
// (PostgREST-style /rest/v1 tables behind /auth/v1 password login).
//
// The client performs no retries. A 401 whose body mentions "JWT expired"
// surfaces as domain.ErrSessionExpired so the caller can force a logout;
// every other non-2xx response is an *APIError.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codequest-app/codequest/internal/domain"
	"github.com/codequest-app/codequest/internal/infra/metrics"
	"github.com/codequest-app/codequest/internal/platform/logger"
)

const (
	maxBodyBytes    = 1 << 20
	maxMessageBytes = 512
	expiredMarker   = "JWT expired"
)

// APIError is a non-2xx backend response other than session expiry.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend %s: http %d: %s", e.Op, e.Status, e.Message)
}

// Config configures a Client.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// TokenFunc returns the bearer token for a request.
type TokenFunc func(ctx context.Context) (string, error)

// Client talks to the backend over HTTPS.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	token   TokenFunc
	log     *logger.Logger
}

// New creates a client. token supplies the user's access token per
// request; when nil, the API key is sent as the bearer.
func New(cfg Config, token TokenFunc, log *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("backend url is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("backend url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		token:   token,
		log:     log.With("component", "backend"),
	}, nil
}

// ─── Auth ──────────────────────────────────────────────────────────────────

// LoginResult is the token grant returned by a password login.
type LoginResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// Login exchanges email and password for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out LoginResult
	body := map[string]string{"email": email, "password": password}
	err := c.do(ctx, "login", http.MethodPost, "/auth/v1/token?grant_type=password", body, &out, false, nil)
	return out, err
}

// ─── Users ─────────────────────────────────────────────────────────────────

const userColumns = "id,points,xp,bell_peppers,streak,longest_streak,last_task_date,opened_daily_at"

type userRow struct {
	ID            string  `json:"id"`
	Points        int64   `json:"points"`
	XP            int64   `json:"xp"`
	BellPeppers   int64   `json:"bell_peppers"`
	Streak        int     `json:"streak"`
	LongestStreak int     `json:"longest_streak"`
	LastTaskDate  *string `json:"last_task_date"`
	OpenedDailyAt *string `json:"opened_daily_at"`
}

func (r userRow) attributes() (domain.UserAttributes, error) {
	a := domain.UserAttributes{
		UserID:        r.ID,
		Points:        r.Points,
		XP:            r.XP,
		BellPeppers:   r.BellPeppers,
		Streak:        r.Streak,
		LongestStreak: r.LongestStreak,
	}
	var err error
	if a.LastTaskDate, err = parseTime(r.LastTaskDate); err != nil {
		return a, fmt.Errorf("last_task_date: %w", err)
	}
	if a.OpenedDailyAt, err = parseTime(r.OpenedDailyAt); err != nil {
		return a, fmt.Errorf("opened_daily_at: %w", err)
	}
	return a, nil
}

// User fetches the profile row of userID.
func (c *Client) User(ctx context.Context, userID string) (domain.UserAttributes, error) {
	q := url.Values{}
	q.Set("id", "eq."+userID)
	q.Set("select", userColumns)

	var rows []userRow
	if err := c.do(ctx, "get_user", http.MethodGet, "/rest/v1/users?"+q.Encode(), nil, &rows, true, nil); err != nil {
		return domain.UserAttributes{}, err
	}
	if len(rows) == 0 {
		return domain.UserAttributes{}, fmt.Errorf("%w: %s", domain.ErrUserNotFound, userID)
	}
	attrs, err := rows[0].attributes()
	if err != nil {
		return domain.UserAttributes{}, fmt.Errorf("decode user %s: %w", userID, err)
	}
	return attrs, nil
}

// UpdateUser applies patch to the profile row in a single PATCH.
func (c *Client) UpdateUser(ctx context.Context, userID string, patch map[string]any) error {
	q := url.Values{}
	q.Set("id", "eq."+userID)
	headers := map[string]string{"Prefer": "return=minimal"}
	return c.do(ctx, "update_user", http.MethodPatch, "/rest/v1/users?"+q.Encode(), patch, nil, true, headers)
}

// ─── Rewards and completions ───────────────────────────────────────────────

// UnlockedRewards lists the reward ids unlocked by userID.
func (c *Client) UnlockedRewards(ctx context.Context, userID string) ([]string, error) {
	q := url.Values{}
	q.Set("user_id", "eq."+userID)
	q.Set("select", "reward_id")

	var rows []struct {
		RewardID string `json:"reward_id"`
	}
	if err := c.do(ctx, "list_rewards", http.MethodGet, "/rest/v1/user_rewards?"+q.Encode(), nil, &rows, true, nil); err != nil {
		return nil, err
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.RewardID
	}
	return ids, nil
}

// UnlockReward inserts a user_rewards row. A conflict means the reward was
// already unlocked.
func (c *Client) UnlockReward(ctx context.Context, userID, rewardID string) error {
	body := map[string]string{"user_id": userID, "reward_id": rewardID}
	err := c.do(ctx, "unlock_reward", http.MethodPost, "/rest/v1/user_rewards", body, nil, true,
		map[string]string{"Prefer": "return=minimal"})
	if isConflict(err) {
		return fmt.Errorf("%w: %s", domain.ErrRewardUnlocked, rewardID)
	}
	return err
}

// RecordCompletion inserts a task_completions row and reports whether it
// was the first for this task.
func (c *Client) RecordCompletion(ctx context.Context, userID, taskID string, at time.Time) (bool, error) {
	body := map[string]string{
		"user_id":      userID,
		"task_id":      taskID,
		"completed_at": at.UTC().Format(time.RFC3339),
	}
	err := c.do(ctx, "record_completion", http.MethodPost, "/rest/v1/task_completions", body, nil, true,
		map[string]string{"Prefer": "return=minimal"})
	if isConflict(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RemoveCompletion deletes the task_completions row for userID and taskID.
func (c *Client) RemoveCompletion(ctx context.Context, userID, taskID string) error {
	q := url.Values{}
	q.Set("user_id", "eq."+userID)
	q.Set("task_id", "eq."+taskID)
	return c.do(ctx, "remove_completion", http.MethodDelete, "/rest/v1/task_completions?"+q.Encode(), nil, nil, true,
		map[string]string{"Prefer": "return=minimal"})
}

// CompletedTasks lists the task ids userID has completed.
func (c *Client) CompletedTasks(ctx context.Context, userID string) ([]string, error) {
	q := url.Values{}
	q.Set("user_id", "eq."+userID)
	q.Set("select", "task_id")

	var rows []struct {
		TaskID string `json:"task_id"`
	}
	if err := c.do(ctx, "list_completions", http.MethodGet, "/rest/v1/task_completions?"+q.Encode(), nil, &rows, true, nil); err != nil {
		return nil, err
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.TaskID
	}
	return ids, nil
}

// Ping checks that the backend answers. Any response below 500 counts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rest/v1/", nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	if resp.StatusCode >= 500 {
		return &APIError{Op: "ping", Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return nil
}

// ─── Transport ─────────────────────────────────────────────────────────────

func (c *Client) do(ctx context.Context, op, method, path string, in, out any, authed bool, headers map[string]string) (err error) {
	start := time.Now()
	defer func() {
		metrics.BackendLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
		metrics.BackendRequests.WithLabelValues(op, resultLabel(err)).Inc()
	}()

	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return fmt.Errorf("backend %s: encode request: %w", op, err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("backend %s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("apikey", c.apiKey)

	bearer := c.apiKey
	if authed && c.token != nil {
		tok, err := c.token(ctx)
		if err != nil {
			return fmt.Errorf("backend %s: %w", op, err)
		}
		bearer = tok
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("backend %s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(op, resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("backend %s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) statusError(op string, status int, raw []byte) error {
	if IsExpired(status, raw) {
		c.log.Warn("backend rejected expired token", "op", op)
		return fmt.Errorf("backend %s: %w", op, domain.ErrSessionExpired)
	}
	return &APIError{Op: op, Status: status, Message: errorMessage(raw)}
}

// IsExpired reports whether a raw response is the session-expiry signal.
func IsExpired(status int, body []byte) bool {
	return status == http.StatusUnauthorized && bytes.Contains(body, []byte(expiredMarker))
}

// errorMessage extracts the message of a JSON error body, falling back to
// the truncated raw text.
func errorMessage(raw []byte) string {
	var body struct {
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if json.Unmarshal(raw, &body) == nil {
		for _, m := range []string{body.Message, body.Msg, body.ErrorDescription, body.Error} {
			if m != "" {
				return m
			}
		}
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > maxMessageBytes {
		s = s[:maxMessageBytes] + "..."
	}
	return s
}

func isConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict
}

func resultLabel(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrSessionExpired):
		return "expired"
	case errors.As(err, &apiErr):
		return "http_error"
	default:
		return "transport"
	}
}

// parseTime accepts a date ("2006-01-02") or an RFC 3339 timestamp.
func parseTime(s *string) (time.Time, error) {
	if s == nil || *s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, *s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
