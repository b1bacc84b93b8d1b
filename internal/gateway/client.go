// Package gateway implements the REST client for the donations backend and
// the payment gateway handshake it fronts.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"zaakiyah/internal/core"
)

// Client is the engine's view of the donations backend.
//
// No method retries on its own: every retry of a payment operation is
// user-initiated.
type Client interface {
	ListRecipients(ctx context.Context, page, limit int) (RecipientPage, error)
	InitiatePayment(ctx context.Context, req InitiatePaymentRequest, idempotencyKey string) (InitiatePaymentResponse, error)
	VerifyPayment(ctx context.Context, donationID, reference string) (VerifyPaymentResponse, error)
	ListDonations(ctx context.Context, page, limit int) (DonationPage, error)
	FindDonation(ctx context.Context, id string) (core.Donation, error)
}

type client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient builds a backend client. httpClient may be nil, in which case a
// client with a 15s timeout is used; all deadlines beyond that come from the
// caller's context.
func NewClient(baseURL, apiKey string, httpClient *http.Client) (Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("missing gateway base URL")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &client{baseURL: baseURL, apiKey: apiKey, client: httpClient}, nil
}

func (c *client) makeRequest(ctx context.Context, method, endpoint string, body any, header http.Header) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response (HTTP %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode >= 400 || apiResp.Code != "" {
		return nil, &APIError{StatusCode: resp.StatusCode, Code: apiResp.Code, Message: apiResp.Message}
	}

	return &apiResp, nil
}

func pageQuery(page, limit int) string {
	params := url.Values{}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if len(params) == 0 {
		return ""
	}
	return "?" + params.Encode()
}

func (c *client) ListRecipients(ctx context.Context, page, limit int) (RecipientPage, error) {
	resp, err := c.makeRequest(ctx, http.MethodGet, "/donations/recipients"+pageQuery(page, limit), nil, nil)
	if err != nil {
		return RecipientPage{}, err
	}
	var out RecipientPage
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return RecipientPage{}, fmt.Errorf("unmarshal recipients: %w", err)
	}
	return out, nil
}

// InitiatePayment creates a payment session. idempotencyKey identifies one
// submission attempt so a double submit cannot open two sessions for the same
// basket.
func (c *client) InitiatePayment(ctx context.Context, req InitiatePaymentRequest, idempotencyKey string) (InitiatePaymentResponse, error) {
	header := http.Header{}
	if idempotencyKey != "" {
		header.Set("Idempotency-Key", idempotencyKey)
	}
	resp, err := c.makeRequest(ctx, http.MethodPost, "/donations/initiate-payment", req, header)
	if err != nil {
		return InitiatePaymentResponse{}, err
	}
	var out InitiatePaymentResponse
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return InitiatePaymentResponse{}, fmt.Errorf("unmarshal payment session: %w", err)
	}
	return out, nil
}

func (c *client) VerifyPayment(ctx context.Context, donationID, reference string) (VerifyPaymentResponse, error) {
	body := verifyPaymentRequest{DonationID: donationID, Reference: reference}
	resp, err := c.makeRequest(ctx, http.MethodPost, "/donations/verify-payment", body, nil)
	if err != nil {
		return VerifyPaymentResponse{}, err
	}
	var out VerifyPaymentResponse
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return VerifyPaymentResponse{}, fmt.Errorf("unmarshal verification: %w", err)
	}
	return out, nil
}

func (c *client) ListDonations(ctx context.Context, page, limit int) (DonationPage, error) {
	resp, err := c.makeRequest(ctx, http.MethodGet, "/donations/history"+pageQuery(page, limit), nil, nil)
	if err != nil {
		return DonationPage{}, err
	}
	var out DonationPage
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return DonationPage{}, fmt.Errorf("unmarshal donation history: %w", err)
	}
	return out, nil
}

func (c *client) FindDonation(ctx context.Context, id string) (core.Donation, error) {
	resp, err := c.makeRequest(ctx, http.MethodGet, "/donations/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return core.Donation{}, err
	}
	var out core.Donation
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return core.Donation{}, fmt.Errorf("unmarshal donation: %w", err)
	}
	return out, nil
}
