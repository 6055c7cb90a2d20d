// Package commerce implements the client for the external storefront
// commerce platform: a GraphQL-style HTTP API that owns the catalog and
// creates checkout sessions. Responses are decoded into explicit typed
// results at this boundary so callers never inspect loose nested JSON.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// accessTokenHeader carries the storefront API token on every request.
const accessTokenHeader = "X-Storefront-Access-Token"

const defaultRequestTimeout = 10 * time.Second

// GraphQLError is a single error entry from the platform's top-level errors
// array.
type GraphQLError struct {
	Message string
}

// APIError aggregates the GraphQL errors returned for a request that the
// platform accepted at the transport level but rejected logically.
type APIError struct {
	Errors []GraphQLError
}

func (e *APIError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ge := range e.Errors {
		msgs[i] = ge.Message
	}
	return fmt.Sprintf("commerce api: %s", strings.Join(msgs, "; "))
}

// StatusError indicates a non-2xx HTTP response from the platform.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("commerce api: unexpected status %d", e.StatusCode)
}

// Config holds the connection settings for the commerce platform.
type Config struct {
	// Endpoint is the GraphQL endpoint URL.
	Endpoint string
	// AccessToken authenticates storefront requests.
	AccessToken string
	// Timeout bounds a single request round trip. Zero means the default.
	Timeout time.Duration
}

// Client executes catalog queries and checkout mutations against the
// commerce platform. Safe for concurrent use.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

// NewClient creates a commerce Client with an OTEL-instrumented transport.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		endpoint: cfg.Endpoint,
		token:    cfg.AccessToken,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// do posts a GraphQL document with variables and returns the raw bytes of
// the response's data field. Top-level errors become an *APIError even when
// partial data is present.
func (c *Client) do(ctx context.Context, query string, vars func(e *jx.Encoder)) (jx.Raw, error) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("query")
	e.Str(query)
	if vars != nil {
		e.FieldStart("variables")
		vars(&e)
	}
	e.ObjEnd()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(e.Bytes()))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set(accessTokenHeader, c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	return splitEnvelope(body)
}

// splitEnvelope walks the GraphQL response envelope and extracts the data
// payload and any top-level errors without decoding the payload itself.
func splitEnvelope(body []byte) (jx.Raw, error) {
	var (
		data    jx.Raw
		gqlErrs []GraphQLError
	)
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "data":
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			data = raw
			return nil
		case "errors":
			return d.Arr(func(d *jx.Decoder) error {
				var ge GraphQLError
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					if key == "message" {
						msg, err := d.Str()
						if err != nil {
							return err
						}
						ge.Message = msg
						return nil
					}
					return d.Skip()
				}); err != nil {
					return err
				}
				gqlErrs = append(gqlErrs, ge)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "decode response envelope")
	}

	if len(gqlErrs) > 0 {
		return nil, &APIError{Errors: gqlErrs}
	}
	if len(data) == 0 || data.Type() == jx.Null {
		return nil, errors.New("response has no data")
	}
	return data, nil
}

// decodeData unmarshals a data payload into the given wire struct.
func decodeData(data jx.Raw, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "decode data payload")
	}
	return nil
}
