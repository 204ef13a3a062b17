package gstin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Result is what a verification returns to callers.
type Result struct {
	Valid        bool              `json:"valid"`
	TradeName    string            `json:"trade_name,omitempty"`
	TaxpayerInfo map[string]string `json:"taxpayer_info,omitempty"`
	Message      string            `json:"message,omitempty"`
}

// Client verifies GSTINs against an HTTP lookup endpoint.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type lookupResponse struct {
	Flag bool   `json:"flag"`
	Msg  string `json:"message"`
	Data struct {
		TradeName       string `json:"tradeNam"`
		LegalName       string `json:"lgnm"`
		Status          string `json:"sts"`
		RegistrationDay string `json:"rgdt"`
		ConstitutionOf  string `json:"ctb"`
		StateJuris      string `json:"stj"`
	} `json:"data"`
}

// Verify checks the format locally and, when it passes, asks the lookup
// service whether the number is registered and active.
func (c *Client) Verify(ctx context.Context, number string) (*Result, error) {
	number = Normalize(number)
	if err := ValidateFormat(number); err != nil {
		return &Result{Valid: false, Message: err.Error()}, nil
	}

	if c.endpoint == "" {
		return nil, fmt.Errorf("gstin lookup endpoint not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/"+url.PathEscape(number), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &Result{Valid: false, Message: "GSTIN not found"}, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from gstin lookup", resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding gstin lookup: %w", err)
	}

	if !body.Flag {
		msg := body.Msg
		if msg == "" {
			msg = "GSTIN could not be verified"
		}

		return &Result{Valid: false, Message: msg}, nil
	}

	if !strings.EqualFold(body.Data.Status, "Active") {
		return &Result{Valid: false, Message: "GSTIN is not active"}, nil
	}

	tradeName := body.Data.TradeName
	if tradeName == "" {
		tradeName = body.Data.LegalName
	}

	return &Result{
		Valid:     true,
		TradeName: tradeName,
		TaxpayerInfo: map[string]string{
			"legal_name":         body.Data.LegalName,
			"status":             body.Data.Status,
			"registration_date":  body.Data.RegistrationDay,
			"constitution":       body.Data.ConstitutionOf,
			"state_jurisdiction": body.Data.StateJuris,
		},
	}, nil
}
