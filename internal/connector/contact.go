package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jgoulah/powercompare/pkg/models"
)

const (
	contactAPIURL  = "https://api.contact-digital-prod.net"
	contactAPIKey  = "z840P4lQCD9TacmJoBQaB3YqD7ZAQKHS44ZPSvSS"
	contactUtility = "Contact Energy"
)

// ContactSession talks to the Contact Energy customer API. Construct it
// with NewContactSession, which performs the token login.
type ContactSession struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	token      string
	accountID  string
	contractID string
	timeout    time.Duration
	busy       atomic.Bool
}

// NewContactSession authenticates against the Contact Energy API and
// returns a session bound to the account's first electricity contract.
// Returns *AuthError on bad credentials and *TimeoutError if the handshake
// exceeds timeout.
func NewContactSession(ctx context.Context, username, password string, timeout time.Duration) (*ContactSession, error) {
	s := &ContactSession{
		client:  &http.Client{},
		baseURL: contactAPIURL,
		apiKey:  contactAPIKey,
		timeout: timeout,
	}

	if err := s.login(ctx, username, password); err != nil {
		return nil, err
	}
	if err := s.loadAccountSummary(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// Name returns the name of the power utility this session connects to
func (s *ContactSession) Name() string {
	return contactUtility
}

// RetrieveUsage implements Session. At most one retrieval may be in flight
// per session; a concurrent call fails with ErrRetrievalInProgress.
func (s *ContactSession) RetrieveUsage(ctx context.Context, start, end time.Time, progress ProgressFunc) ([]models.DayUsage, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrRetrievalInProgress
	}
	defer s.busy.Store(false)

	return retrieve(ctx, s, s.timeout, start, end, progress)
}

// login exchanges credentials for a bearer token
func (s *ContactSession) login(ctx context.Context, username, password string) error {
	payload, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("encoding login payload: %w", err)
	}

	loginCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(loginCtx, "POST", s.baseURL+"/login/v2", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &TimeoutError{Op: "login"}
		}
		return fmt.Errorf("making login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		body, _ := io.ReadAll(resp.Body)
		return &AuthError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("authentication failed (status %d): %s", resp.StatusCode, string(body)),
		}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("login returned status %d: %s", resp.StatusCode, string(body))
	}

	var loginResp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return fmt.Errorf("decoding login response: %w", err)
	}
	if loginResp.Token == "" {
		return fmt.Errorf("login response contained no token")
	}

	s.token = loginResp.Token
	return nil
}

// loadAccountSummary discovers the account and contract IDs the usage
// endpoint needs
func (s *ContactSession) loadAccountSummary(ctx context.Context) error {
	sumCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(sumCtx, "GET", s.baseURL+"/accounts/v2", nil)
	if err != nil {
		return fmt.Errorf("creating account summary request: %w", err)
	}
	s.setAuthHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &TimeoutError{Op: "fetching account summary"}
		}
		return fmt.Errorf("fetching account summary: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		body, _ := io.ReadAll(resp.Body)
		return &AuthError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("account summary rejected (status %d): %s", resp.StatusCode, string(body)),
		}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("account summary returned status %d: %s", resp.StatusCode, string(body))
	}

	var summary struct {
		Accounts []struct {
			ID        string `json:"id"`
			Contracts []struct {
				ID string `json:"contractId"`
			} `json:"contracts"`
		} `json:"accounts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return fmt.Errorf("decoding account summary: %w", err)
	}
	if len(summary.Accounts) == 0 || len(summary.Accounts[0].Contracts) == 0 {
		return fmt.Errorf("account summary contained no contracts")
	}

	s.accountID = summary.Accounts[0].ID
	s.contractID = summary.Accounts[0].Contracts[0].ID
	return nil
}

func (s *ContactSession) setAuthHeaders(req *http.Request) {
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("session", s.token)
	req.Header.Set("authorization", s.token)
}

// contactUsagePoint is one hourly sample as the API returns it. Values come
// back as JSON strings.
type contactUsagePoint struct {
	Date  string      `json:"date"`
	Value json.Number `json:"value"`
}

// fetchDay requests one day of hourly usage. A day the provider has not
// published yet comes back as an empty array, which we report as no data.
func (s *ContactSession) fetchDay(ctx context.Context, day time.Time) ([]float64, error) {
	dayStr := day.Format("2006-01-02")
	url := fmt.Sprintf("%s/usage/v2/%s?ba=%s&interval=hourly&from=%s&to=%s",
		s.baseURL, s.contractID, s.accountID, dayStr, dayStr)

	req, err := http.NewRequestWithContext(ctx, "POST", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating usage request: %w", err)
	}
	s.setAuthHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		body, _ := io.ReadAll(resp.Body)
		return nil, &AuthError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("usage request rejected (status %d): %s", resp.StatusCode, string(body)),
		}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("usage request returned status %d: %s", resp.StatusCode, string(body))
	}

	var points []contactUsagePoint
	if err := json.NewDecoder(resp.Body).Decode(&points); err != nil {
		return nil, fmt.Errorf("decoding usage response: %w", err)
	}
	if len(points) == 0 {
		return nil, nil
	}

	// Slot samples by hour rather than trusting response order
	values := make([]float64, models.HoursPerDay)
	for _, p := range points {
		ts, err := time.Parse(time.RFC3339, p.Date)
		if err != nil {
			return nil, fmt.Errorf("parsing sample timestamp %q: %w", p.Date, err)
		}
		v, err := p.Value.Float64()
		if err != nil {
			return nil, fmt.Errorf("parsing sample value %q: %w", string(p.Value), err)
		}
		values[ts.Hour()] = v
	}

	return values, nil
}
