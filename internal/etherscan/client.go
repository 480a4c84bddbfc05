// Package etherscan is a client for the Etherscan contract verification API.
package etherscan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Client talks to one Etherscan-compatible API endpoint
type Client struct {
	apiURL       string
	apiKey       string
	chainID      int64
	httpClient   *http.Client
	limiter      *rate.Limiter
	pollInterval time.Duration
	logger       *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithRateLimit caps requests per second
func WithRateLimit(rps float64) Option {
	return func(client *Client) {
		if rps > 0 {
			client.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithPollInterval sets how often a pending verification is checked
func WithPollInterval(d time.Duration) Option {
	return func(client *Client) {
		if d > 0 {
			client.pollInterval = d
		}
	}
}

// WithChainID selects the chain on a multichain (V2) endpoint. Every call
// carries it as the chainid query parameter.
func WithChainID(id int64) Option {
	return func(client *Client) {
		client.chainID = id
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) {
		client.logger = logger
	}
}

// New creates a new client. The free Etherscan tier allows five calls a
// second, which is the default limit.
func New(apiURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter:      rate.NewLimiter(rate.Limit(5), 1),
		pollInterval: 3 * time.Second,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// IsVerified reports whether source code is already published for address
func (c *Client) IsVerified(ctx context.Context, address string) (bool, error) {
	params := url.Values{}
	params.Set("module", "contract")
	params.Set("action", "getsourcecode")
	params.Set("address", address)

	resp, err := c.get(ctx, params)
	if err != nil {
		return false, err
	}

	var entries []sourceCodeEntry
	if err := json.Unmarshal(resp.Result, &entries); err != nil {
		return false, fmt.Errorf("decoding getsourcecode result: %w", err)
	}
	for _, e := range entries {
		if e.SourceCode != "" {
			return true, nil
		}
	}
	return false, nil
}

// Submit sends standard JSON input for verification and returns the GUID
// to poll
func (c *Client) Submit(ctx context.Context, req VerifyRequest) (string, error) {
	if len(req.StandardJSON) == 0 {
		return "", errors.New("standard JSON input is required")
	}
	version := req.CompilerVersion
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}

	form := url.Values{}
	form.Set("apikey", c.apiKey)
	form.Set("module", "contract")
	form.Set("action", "verifysourcecode")
	form.Set("contractaddress", req.Address)
	form.Set("sourceCode", string(req.StandardJSON))
	form.Set("codeformat", "solidity-standard-json-input")
	form.Set("contractname", req.ContractName)
	form.Set("compilerversion", version)
	// the API's own spelling
	form.Set("constructorArguements", strings.TrimPrefix(req.ConstructorArgs, "0x"))

	resp, err := c.post(ctx, form)
	if err != nil {
		return "", err
	}
	return resp.resultString(), nil
}

// CheckStatus returns the status text for a submitted verification.
// pending is true while the service is still processing it.
func (c *Client) CheckStatus(ctx context.Context, guid string) (status string, pending bool, err error) {
	params := url.Values{}
	params.Set("module", "contract")
	params.Set("action", "checkverifystatus")
	params.Set("guid", guid)

	resp, err := c.get(ctx, params)
	if err != nil {
		var apiErr *APIError
		// a pending or failed verification comes back with status 0
		if errors.As(err, &apiErr) {
			if apiErr.Result == statusPending {
				return apiErr.Result, true, nil
			}
			return apiErr.Result, false, &VerificationFailedError{GUID: guid, Reason: apiErr.Result}
		}
		return "", false, err
	}
	status = resp.resultString()
	return status, status == statusPending, nil
}

// Verify publishes source for a deployed contract and waits for the outcome.
// Already-verified contracts short-circuit without a submission.
func (c *Client) Verify(ctx context.Context, req VerifyRequest) (Result, error) {
	verified, err := c.IsVerified(ctx, req.Address)
	if err != nil {
		return ResultFailed, fmt.Errorf("checking existing verification: %w", err)
	}
	if verified {
		c.logger.Info("contract already verified", "address", req.Address)
		return ResultAlreadyVerified, nil
	}

	guid, err := c.Submit(ctx, req)
	if err != nil {
		if isAlreadyVerified(err) {
			return ResultAlreadyVerified, nil
		}
		return ResultFailed, fmt.Errorf("submitting verification: %w", err)
	}
	c.logger.Info("verification submitted", "address", req.Address, "guid", guid)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ResultFailed, ctx.Err()
		case <-ticker.C:
		}

		status, pending, err := c.CheckStatus(ctx, guid)
		if err != nil {
			if isAlreadyVerified(err) {
				return ResultAlreadyVerified, nil
			}
			return ResultFailed, err
		}
		if pending {
			c.logger.Debug("verification pending", "guid", guid)
			continue
		}
		if strings.HasPrefix(status, statusPass) {
			return ResultVerified, nil
		}
		if strings.Contains(strings.ToLower(status), statusAlreadyVerified) {
			return ResultAlreadyVerified, nil
		}
		return ResultFailed, &VerificationFailedError{GUID: guid, Reason: status}
	}
}

func isAlreadyVerified(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), statusAlreadyVerified)
}

func (c *Client) get(ctx context.Context, params url.Values) (*response, error) {
	params.Set("apikey", c.apiKey)
	if c.chainID != 0 {
		params.Set("chainid", strconv.FormatInt(c.chainID, 10))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, form url.Values) (*response, error) {
	endpoint := c.apiURL
	if c.chainID != 0 {
		endpoint += "?chainid=" + strconv.FormatInt(c.chainID, 10)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if r.Status != "1" {
		return nil, &APIError{Message: r.Message, Result: r.resultString()}
	}
	return &r, nil
}
