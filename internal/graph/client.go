// Package graph talks to the Messenger Graph API on behalf of a page.
package graph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"helpdesk-inbox/backend/pkg/logger"
	"helpdesk-inbox/backend/pkg/resilience"

	"github.com/go-resty/resty/v2"
)

const profileFields = "first_name,last_name,email,picture"

// Profile is the customer data the inbox keeps on a conversation. Any field may be empty.
type Profile struct {
	FirstName  string
	LastName   string
	PictureURL string
	Email      string
}

// APIError is an error object returned by the Graph API.
type APIError struct {
	StatusCode int
	Code       int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph api error (status %d, code %d): %s", e.StatusCode, e.Code, e.Message)
}

// RateLimited reports whether the Graph API throttled the call.
func (e *APIError) RateLimited() bool {
	switch e.Code {
	case 4, 17, 32, 613:
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests
}

// ProfileFetchError means the customer profile could not be read.
type ProfileFetchError struct {
	CustomerID string
	Err        error
}

func (e *ProfileFetchError) Error() string {
	return fmt.Sprintf("fetch profile %s: %v", e.CustomerID, e.Err)
}

func (e *ProfileFetchError) Unwrap() error { return e.Err }

type profileResponse struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Picture   struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

type sendRequest struct {
	Recipient     recipient   `json:"recipient"`
	MessagingType string      `json:"messaging_type"`
	Message       sendMessage `json:"message"`
}

type recipient struct {
	ID string `json:"id"`
}

type sendMessage struct {
	Text string `json:"text"`
}

type sendResponse struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Client calls the Graph API. Calls are not retried.
type Client struct {
	http    *resty.Client
	breaker *resilience.CircuitBreaker
	log     *logger.Logger
}

// Options configures a Client.
type Options struct {
	BaseURL          string
	Timeout          time.Duration
	FailureThreshold uint
	RetryTimeout     time.Duration
}

// NewClient creates a Graph API client. Consecutive upstream failures open a
// circuit breaker that fails calls fast until RetryTimeout passes.
func NewClient(opts Options, log *logger.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}

	breakerCfg := resilience.DefaultConfig("graph-api")
	if opts.FailureThreshold > 0 {
		breakerCfg.FailureThreshold = opts.FailureThreshold
	}
	if opts.RetryTimeout > 0 {
		breakerCfg.RetryTimeout = opts.RetryTimeout
	}
	breakerCfg.IsFailure = isUpstreamFailure

	return &Client{
		http: resty.New().
			SetBaseURL(opts.BaseURL).
			SetTimeout(opts.Timeout).
			SetHeader("Accept", "application/json"),
		breaker: resilience.NewCircuitBreaker(breakerCfg, log),
		log:     log,
	}
}

// isUpstreamFailure counts transport errors, throttling and 5xx against the
// breaker. A bad token belongs to one page and must not fail every page.
func isUpstreamFailure(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError || apiErr.RateLimited()
	}
	return err != nil
}

// FetchProfile reads the customer's profile with the page access token.
func (c *Client) FetchProfile(ctx context.Context, accessToken, customerID string) (*Profile, error) {
	var result profileResponse
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetPathParam("psid", customerID).
			SetQueryParam("fields", profileFields).
			SetQueryParam("access_token", accessToken).
			SetResult(&result).
			SetError(&errorEnvelope{}).
			Get("/{psid}")
		return checkResponse(resp, err)
	})
	if err != nil {
		return nil, &ProfileFetchError{CustomerID: customerID, Err: err}
	}

	return &Profile{
		FirstName:  result.FirstName,
		LastName:   result.LastName,
		PictureURL: result.Picture.Data.URL,
		Email:      result.Email,
	}, nil
}

// SendText sends a text reply from the page to recipientID and returns the platform message id.
func (c *Client) SendText(ctx context.Context, accessToken, recipientID, text string) (string, error) {
	var result sendResponse
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("access_token", accessToken).
			SetHeader("Content-Type", "application/json").
			SetBody(sendRequest{
				Recipient:     recipient{ID: recipientID},
				MessagingType: "RESPONSE",
				Message:       sendMessage{Text: text},
			}).
			SetResult(&result).
			SetError(&errorEnvelope{}).
			Post("/me/messages")
		return checkResponse(resp, err)
	})
	if err != nil {
		return "", fmt.Errorf("send message to %s: %w", recipientID, err)
	}
	return result.MessageID, nil
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("graph api request failed: %w", err)
	}
	if !resp.IsError() {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode(), Message: resp.String()}
	if env, ok := resp.Error().(*errorEnvelope); ok && env.Error.Message != "" {
		apiErr.Code = env.Error.Code
		apiErr.Type = env.Error.Type
		apiErr.Message = env.Error.Message
	}
	return apiErr
}
