package salesforce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"fulfillment-workers/internal/common/config"
	"fulfillment-workers/internal/common/errors"
	"fulfillment-workers/internal/common/logger"
)

// DisabledLeadID is returned instead of a real id when the client is disabled.
const DisabledLeadID = "testing"

// Client creates and updates Lead records through the Salesforce REST API.
// Every call logs in with the password grant first.
type Client struct {
	enabled    bool
	baseURL    string
	username   string
	password   string
	oauth      *oauth2.Config
	httpClient *http.Client
	logger     logger.Logger
}

func NewClient(cfg config.SalesforceConfig, enabled bool, log logger.Logger) *Client {
	timeout := config.GetDuration(cfg.Timeout)
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		enabled:  enabled,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.LoginURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

type leadPayload struct {
	LeadFixedValues
	LeadRecord
}

type createResponse struct {
	ID      string        `json:"id"`
	Success bool          `json:"success"`
	Errors  []interface{} `json:"errors"`
}

type apiError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

// CreateLead posts a new Lead and returns its id.
func (c *Client) CreateLead(ctx context.Context, lead LeadRecord) (string, error) {
	if !c.enabled {
		return DisabledLeadID, nil
	}

	const operation = "creating a lead record"
	body, err := c.do(ctx, operation, http.MethodPost, "/sobjects/Lead", leadPayload{DefaultLeadFixedValues, lead})
	if err != nil {
		return "", err
	}

	var created createResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return "", errors.NewCRMRequestFailedError(operation, fmt.Errorf("failed to unmarshal response: %w", err))
	}
	if created.ID == "" {
		return "", errors.NewCRMRequestFailedError(operation, fmt.Errorf("no id in response: %s", string(body)))
	}

	c.logger.Info("lead record created", map[string]interface{}{"leadId": created.ID})
	return created.ID, nil
}

// UpdateLead patches the identity card image keys onto an existing Lead.
func (c *Client) UpdateLead(ctx context.Context, leadID string, visa LeadVisa) error {
	if !c.enabled {
		return nil
	}

	_, err := c.do(ctx, "updating a lead record", http.MethodPatch, "/sobjects/Lead/"+leadID, visa)
	return err
}

func (c *Client) authorizedClient(ctx context.Context) (*http.Client, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := c.oauth.PasswordCredentialsToken(ctx, c.username, c.password)
	if err != nil {
		return nil, errors.NewCRMLoginFailedError(err)
	}
	return c.oauth.Client(ctx, token), nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, payload interface{}) ([]byte, error) {
	httpClient, err := c.authorizedClient(ctx)
	if err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewCRMRequestFailedError(operation, fmt.Errorf("failed to marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, errors.NewCRMRequestFailedError(operation, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, errors.NewCRMRequestFailedError(operation, fmt.Errorf("failed to execute request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewCRMRequestFailedError(operation, fmt.Errorf("failed to read response body: %w", err))
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusBadRequest:
		return nil, errors.NewCRMRequestInvalidError(operation, firstErrorMessage(body))
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, errors.NewCRMLoginFailedError(fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	default:
		return nil, errors.NewCRMRequestFailedError(operation, fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}
}

func firstErrorMessage(body []byte) string {
	var apiErrs []apiError
	if err := json.Unmarshal(body, &apiErrs); err != nil || len(apiErrs) == 0 || apiErrs[0].Message == "" {
		return "unknown reason"
	}
	return apiErrs[0].Message
}
