// internal/authdir/client.go
package authdir

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=./client.go -destination=../mocks/mock_directory.go -package=mocks Directory

// ErrIdentityNotFound is returned when no identity in the directory carries
// the requested email.
var ErrIdentityNotFound = errors.New("identity not found in directory")

// Identity is the directory's view of a person. The directory owns it; this
// service never writes to it except by requesting invitations or resets.
type Identity struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// InviteReceipt is the directory's acknowledgement of a sent invitation.
type InviteReceipt struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	InvitedAt time.Time `json:"invited_at"`
}

// Directory is the adapter contract the orchestrator depends on.
type Directory interface {
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	SendInvitation(ctx context.Context, email, redirectURL string) (*InviteReceipt, error)
	SendPasswordReset(ctx context.Context, email, redirectURL string) error
}

// Config represents the configuration for the directory client
type Config struct {
	// BaseURL is the base URL of the identity directory service
	BaseURL string
	// APIKey is the service-role key used on admin endpoints
	APIKey string
	// HTTPClient is an optional custom HTTP client
	HTTPClient *http.Client
	// Timeout is the default request timeout
	Timeout time.Duration
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "http://localhost:9999",
		HTTPClient: http.DefaultClient,
		Timeout:    10 * time.Second,
	}
}

// Client is the identity directory client
type Client struct {
	config *Config
	client *http.Client
}

// NewClient creates a new directory client with the given configuration
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	client := config.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return &Client{
		config: config,
		client: client,
	}
}

// FindByEmail scans the directory's user listing for an identity with the
// given email. The directory offers no indexed lookup, so this is a linear
// scan over the enumerate-all endpoint.
func (c *Client) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	endpoint := fmt.Sprintf("%s/admin/users", c.config.BaseURL)

	var raw json.RawMessage
	if err := c.get(ctx, endpoint, &raw); err != nil {
		return nil, err
	}

	identities, err := normalizeIdentityList(raw)
	if err != nil {
		return nil, err
	}

	for i := range identities {
		if strings.EqualFold(identities[i].Email, email) {
			return &identities[i], nil
		}
	}
	return nil, ErrIdentityNotFound
}

// normalizeIdentityList flattens the directory's listing response into one
// canonical slice. Depending on the directory version the payload is either
// a bare array, or an object wrapping the array under "users" or "data".
func normalizeIdentityList(raw json.RawMessage) ([]Identity, error) {
	var bare []Identity
	if err := json.Unmarshal(raw, &bare); err == nil {
		return bare, nil
	}

	var wrapped struct {
		Users []Identity `json:"users"`
		Data  []Identity `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("unexpected directory listing shape: %w", err)
	}
	if wrapped.Users != nil {
		return wrapped.Users, nil
	}
	if wrapped.Data != nil {
		return wrapped.Data, nil
	}
	return nil, nil
}

type inviteRequest struct {
	Email      string `json:"email"`
	RedirectTo string `json:"redirect_to"`
}

// SendInvitation asks the directory to email an account invitation. The
// directory rejects emails that already have an account; that surfaces as an
// *APIError the caller can inspect with IsAlreadyRegistered.
func (c *Client) SendInvitation(ctx context.Context, email, redirectURL string) (*InviteReceipt, error) {
	endpoint := fmt.Sprintf("%s/admin/invite", c.config.BaseURL)

	var receipt InviteReceipt
	if err := c.post(ctx, endpoint, inviteRequest{Email: email, RedirectTo: redirectURL}, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// SendPasswordReset asks the directory to email reset instructions. Callers
// treat failures as non-fatal; no retries happen here.
func (c *Client) SendPasswordReset(ctx context.Context, email, redirectURL string) error {
	endpoint := fmt.Sprintf("%s/recover", c.config.BaseURL)
	return c.post(ctx, endpoint, inviteRequest{Email: email, RedirectTo: redirectURL}, &struct{}{})
}

// APIError defines a standardized error response from the directory
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s (Status: %d)", e.Code, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s (Status: %d)", e.Message, e.StatusCode)
}

// IsAlreadyRegistered reports whether the error is the directory refusing an
// invitation because the email already has an account.
func IsAlreadyRegistered(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code == "email_exists" || apiErr.Code == "user_already_registered" {
		return true
	}
	return apiErr.StatusCode == http.StatusUnprocessableEntity &&
		strings.Contains(strings.ToLower(apiErr.Message), "already")
}

// post performs a POST request to the specified endpoint with the given request and unmarshals the response into the specified response object
func (c *Client) post(ctx context.Context, endpoint string, req interface{}, resp interface{}) error {
	// Set up context with timeout
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	// Marshal request to JSON
	reqBody, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	// Create HTTP request
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)

	// Send request
	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer httpResp.Body.Close()

	// Check for non-success status code
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return decodeAPIError(httpResp)
	}

	// Decode response
	if err := json.NewDecoder(httpResp.Body).Decode(resp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// get performs a GET request to the specified endpoint and unmarshals the response into the specified response object
func (c *Client) get(ctx context.Context, endpoint string, resp interface{}) error {
	// Set up context with timeout
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	// Create HTTP request
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	c.authorize(httpReq)

	// Send request
	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer httpResp.Body.Close()

	// Check for non-success status code
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return decodeAPIError(httpResp)
	}

	// Decode response
	if err := json.NewDecoder(httpResp.Body).Decode(resp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
}

func decodeAPIError(resp *http.Response) error {
	var apiErr APIError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
		// If we can't decode the error, create a generic one
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("request failed with status code %d", resp.StatusCode),
		}
	}

	apiErr.StatusCode = resp.StatusCode
	return &apiErr
}
