// Package activecampaign implements a minimal client for the ActiveCampaign
// v3 REST API, covering the deal lookups the reconciliation job needs.
package activecampaign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"funnel_dashboard_backend/platform/config"

	"golang.org/x/time/rate"
)

// ErrDealNotFound is returned when the CRM no longer has the deal.
var ErrDealNotFound = errors.New("deal not found in activecampaign")

// Deal is the subset of the CRM deal payload the reconciliation job reads.
type Deal struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// Client talks to the ActiveCampaign v3 API. All calls go through a shared
// rate limiter so batch jobs stay under the API's request budget.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a client from configuration.
func New(cfg config.ActiveCampaignConfig) *Client {
	rps := cfg.GetACRequestsPerSecond()
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.GetACAPIURL(), "/"),
		apiKey:     cfg.GetACAPIKey(),
		httpClient: &http.Client{Timeout: cfg.GetACTimeout()},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// GetDeal fetches one deal by CRM ID.
func (c *Client) GetDeal(ctx context.Context, id int64) (Deal, error) {
	var payload struct {
		Deal Deal `json:"deal"`
	}
	err := c.get(ctx, fmt.Sprintf("/api/3/deals/%d", id), &payload)
	if err != nil {
		return Deal{}, err
	}
	return payload.Deal, nil
}

// GetDealCustomFields fetches the deal's custom field values keyed by the
// CRM field ID.
func (c *Client) GetDealCustomFields(ctx context.Context, id int64) (map[string]string, error) {
	var payload struct {
		DealCustomFieldData []struct {
			CustomFieldID json.Number `json:"customFieldId"`
			FieldValue    string      `json:"fieldValue"`
		} `json:"dealCustomFieldData"`
	}
	err := c.get(ctx, fmt.Sprintf("/api/3/deals/%d/dealCustomFieldData", id), &payload)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(payload.DealCustomFieldData))
	for _, entry := range payload.DealCustomFieldData {
		fields[entry.CustomFieldID.String()] = entry.FieldValue
	}
	return fields, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Api-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("activecampaign request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrDealNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("activecampaign returned status %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
