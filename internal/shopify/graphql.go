package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const DefaultAPIVersion = "2026-01"

var ErrOrderNotFound = errors.New("order not found")

type GraphQLError struct {
	Message    string `json:"message"`
	Path       []any  `json:"path,omitempty"`
	Extensions struct {
		Code string `json:"code,omitempty"`
	} `json:"extensions,omitempty"`
}

type GraphQLResponse[T any] struct {
	Data   T              `json:"data"`
	Errors []GraphQLError `json:"errors"`
}

// GraphQLErrors is returned when Shopify answers with top-level errors.
type GraphQLErrors []GraphQLError

func (e GraphQLErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, ge := range e {
		if ge.Extensions.Code != "" {
			msgs = append(msgs, ge.Message+" ("+ge.Extensions.Code+")")
		} else {
			msgs = append(msgs, ge.Message)
		}
	}
	return "shopify graphql returned errors: " + strings.Join(msgs, "; ")
}

type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// UserErrors carries a mutation's userErrors. Its message is the user
// messages joined with ", ", which is what merchants see.
type UserErrors struct {
	Mutation string
	Errors   []UserError
}

func (e *UserErrors) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ue := range e.Errors {
		msgs = append(msgs, ue.Message)
	}
	return strings.Join(msgs, ", ")
}

func checkUserErrors(mutation string, errs []UserError) error {
	if len(errs) == 0 {
		return nil
	}
	return &UserErrors{Mutation: mutation, Errors: errs}
}

// statusError is a non-2xx HTTP answer from Shopify.
type statusError struct {
	code   int
	status string
	body   string
}

func newStatusError(res *http.Response, body []byte) error {
	return &statusError{code: res.StatusCode, status: res.Status, body: strings.TrimSpace(string(body))}
}

func (e *statusError) Error() string {
	if e.body == "" {
		return "shopify request failed: " + e.status
	}
	return "shopify request failed: " + e.status + ": " + e.body
}

// IsUpstream reports whether err came from Shopify rather than from the caller.
func IsUpstream(err error) bool {
	var ge GraphQLErrors
	var ue *UserErrors
	var se *statusError
	return errors.As(err, &ge) || errors.As(err, &ue) || errors.As(err, &se)
}

// Client talks to one shop's Admin GraphQL API with its offline token.
type Client struct {
	ShopDomain  string
	APIVersion  string
	AccessToken string
	HTTP        *http.Client
	Logger      *zap.Logger

	endpoint string
	sleep    func(context.Context, time.Duration) error
}

func NewClient(shopDomain, apiVersion, accessToken string) *Client {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	return &Client{
		ShopDomain:  shopDomain,
		APIVersion:  apiVersion,
		AccessToken: accessToken,
		HTTP:        &http.Client{Timeout: 30 * time.Second},
		Logger:      zap.NewNop(),
		sleep:       sleepCtx,
	}
}

// WithEndpoint points the client at a different GraphQL URL (tests, proxies).
func (c *Client) WithEndpoint(endpoint string) *Client {
	c.endpoint = endpoint
	return c
}

func (c *Client) graphqlURL() string {
	if c.endpoint != "" {
		return c.endpoint
	}
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", c.ShopDomain, c.APIVersion)
}

const (
	graphqlRetryMax    = 5
	graphqlBackoffBase = 500 * time.Millisecond
	graphqlBackoffCap  = 10 * time.Second
)

// retryPolicy decides which failed calls are worth sending again.
type retryPolicy int

const (
	// retryReads also retries 5xx answers. Only safe for queries.
	retryReads retryPolicy = iota
	// retryRejected retries only answers Shopify gave before running the
	// operation: 429 and THROTTLED. A 5xx may hide a committed mutation.
	retryRejected
)

func (p retryPolicy) retry(err error) bool {
	var se *statusError
	if !errors.As(err, &se) {
		return false
	}
	switch se.code {
	case http.StatusTooManyRequests:
		return true
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return p == retryReads
	}
	return false
}

func throttled(errs []GraphQLError) bool {
	for _, e := range errs {
		if strings.EqualFold(e.Extensions.Code, "THROTTLED") || strings.Contains(strings.ToLower(e.Message), "throttled") {
			return true
		}
	}
	return false
}

// backoff doubles from graphqlBackoffBase up to graphqlBackoffCap.
func backoff(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}
	if attempt > 10 {
		return graphqlBackoffCap
	}
	return min(graphqlBackoffBase<<attempt, graphqlBackoffCap)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// PostGraphQL runs a query, retrying throttled and 5xx answers, and returns
// the data payload. Top-level errors become GraphQLErrors.
func PostGraphQL[T any](ctx context.Context, c *Client, query string, variables any) (*T, error) {
	return post[T](ctx, c, query, variables, retryReads)
}

// PostMutation runs a mutation. It is resent only when Shopify throttled it,
// so a gateway error never creates or cancels an order twice.
func PostMutation[T any](ctx context.Context, c *Client, mutation string, variables any) (*T, error) {
	return post[T](ctx, c, mutation, variables, retryRejected)
}

func post[T any](ctx context.Context, c *Client, query string, variables any, policy retryPolicy) (*T, error) {
	var lastErr error
	for attempt := 0; attempt <= graphqlRetryMax; attempt++ {
		if attempt > 0 {
			delay := backoff(attempt - 1)
			c.Logger.Warn("retrying shopify graphql",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		out, err := postOnce[T](ctx, c, query, variables)
		if err != nil {
			if policy.retry(err) {
				lastErr = err
				continue
			}
			return nil, err
		}
		if len(out.Errors) > 0 {
			if throttled(out.Errors) {
				lastErr = GraphQLErrors(out.Errors)
				continue
			}
			return nil, GraphQLErrors(out.Errors)
		}
		return &out.Data, nil
	}
	return nil, fmt.Errorf("shopify graphql: giving up after %d retries: %w", graphqlRetryMax, lastErr)
}

func postOnce[T any](ctx context.Context, c *Client, query string, variables any) (*GraphQLResponse[T], error) {
	body := map[string]any{
		"query":     query,
		"variables": variables,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL(), bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.AccessToken)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("shopify request: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read shopify response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, newStatusError(res, raw)
	}

	var out GraphQLResponse[T]
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode shopify response: %w", err)
	}
	return &out, nil
}
