// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bunq

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bureau-foundation/bunq/lib/netutil"
	"github.com/bureau-foundation/bunq/lib/signature"
)

// Defaults for [Config]. The sandbox is the default target so that a
// misconfigured client never touches a real account.
const (
	SandboxBaseURL    = "https://public-api.sandbox.bunq.com"
	ProductionBaseURL = "https://api.bunq.com"

	defaultAPIVersion  = "v1"
	defaultUserAgent   = "bunq-go/1.0"
	defaultLanguage    = "en_US"
	defaultRegion      = "en_US"
	defaultGeolocation = "0 0 0 00 NL"
)

// RequestIDLength is the length of the per-request client id.
const RequestIDLength = 7

// Config holds configuration for creating a [Client]. Every field is
// optional.
type Config struct {
	// BaseURL is the API root without the version segment. Defaults to
	// SandboxBaseURL. Must use HTTPS.
	BaseURL string

	// APIVersion is the path segment prepended to every resource path.
	// Defaults to "v1".
	APIVersion string

	// UserAgent, Language, Region and Geolocation fill the fixed
	// request headers. All of them are covered by the signature.
	UserAgent   string
	Language    string
	Region      string
	Geolocation string

	// HTTPClient is used for all HTTP requests. Defaults to
	// http.DefaultClient. Timeouts belong here.
	HTTPClient *http.Client

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger

	// RequestID generates X-Bunq-Client-Request-Id values. Defaults to
	// a random alphanumeric string of RequestIDLength characters.
	// Tests inject a fixed generator.
	RequestID func() string
}

// Client dispatches signed calls to the bunq API. A Client carries no
// credentials and is immutable after construction.
type Client struct {
	baseURL     string
	apiVersion  string
	userAgent   string
	language    string
	region      string
	geolocation string
	httpClient  *http.Client
	logger      *slog.Logger
	requestID   func() string
}

// NewClient creates a client from the given configuration. Returns an
// error if the base URL is not HTTPS.
func NewClient(config Config) (*Client, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = SandboxBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	if !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("bunq: API client requires HTTPS (got %q)", baseURL)
	}

	apiVersion := strings.Trim(config.APIVersion, "/")
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	requestID := config.RequestID
	if requestID == nil {
		requestID = newRequestID
	}

	return &Client{
		baseURL:     baseURL,
		apiVersion:  apiVersion,
		userAgent:   withDefault(config.UserAgent, defaultUserAgent),
		language:    withDefault(config.Language, defaultLanguage),
		region:      withDefault(config.Region, defaultRegion),
		geolocation: withDefault(config.Geolocation, defaultGeolocation),
		httpClient:  httpClient,
		logger:      logger,
		requestID:   requestID,
	}, nil
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// newRequestID returns RequestIDLength characters from the base32
// alphabet (A-Z, 2-7), a subset of the alphanumerics the server
// accepts.
func newRequestID() string {
	return rand.Text()[:RequestIDLength]
}

// Request is a signed request ready to send. URI is the versioned path
// the signature covers; URL is the absolute address.
type Request struct {
	Method string
	URI    string
	URL    string
	Header map[string]string
	Body   []byte
}

// Response is a raw API response. The status code is not interpreted;
// see [Client.Verify] and [DecodeResponse].
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// RequestID returns the X-Bunq-Client-Request-Id the server echoed.
func (response *Response) RequestID() string {
	return response.Header.Get(signature.HeaderClientRequestID)
}

// ResponseID returns the X-Bunq-Client-Response-Id assigned by the
// server.
func (response *Response) ResponseID() string {
	return response.Header.Get(signature.HeaderClientResponseID)
}

// NewRequest builds and signs a request without sending it. path is
// relative to the versioned base ("/user/42"). body is JSON-encoded
// for methods other than GET and HEAD and ignored otherwise; a nil body
// sends no payload.
func (client *Client) NewRequest(credentials Credentials, method, path string, body any) (*Request, error) {
	if err := credentials.valid(); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("bunq: request path %q must start with /", path)
	}

	var encoded []byte
	if body != nil && method != http.MethodGet && method != http.MethodHead {
		var err error
		encoded, err = encodeBody(body)
		if err != nil {
			return nil, err
		}
	}

	header := map[string]string{
		signature.HeaderCacheControl:    "no-cache",
		signature.HeaderUserAgent:       client.userAgent,
		signature.HeaderLanguage:        client.language,
		signature.HeaderRegion:          client.region,
		signature.HeaderGeolocation:     client.geolocation,
		signature.HeaderClientRequestID: client.requestID(),
	}
	if token := credentials.Token(); token != "" {
		header[signature.HeaderClientAuthentication] = token
	}
	if encoded != nil {
		header["Content-Type"] = "application/json"
	}

	uri := "/" + client.apiVersion + path
	signed, err := signature.SignRequest(credentials.PrivateKey(), method, uri, header, encoded)
	if err != nil {
		return nil, fmt.Errorf("bunq: signing %s %s: %w", method, uri, err)
	}
	header[signature.HeaderClientSignature] = signed

	return &Request{
		Method: method,
		URI:    uri,
		URL:    client.baseURL + uri,
		Header: header,
		Body:   encoded,
	}, nil
}

// encodeBody serializes body as compact JSON without HTML escaping, so
// that a PEM or URL in a field reaches the server (and the signature)
// byte-for-byte.
func encodeBody(body any) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(body); err != nil {
		return nil, fmt.Errorf("bunq: encoding request body: %w", err)
	}
	return bytes.TrimSuffix(buffer.Bytes(), []byte("\n")), nil
}

// Do signs and sends one request and returns the raw response. Non-2xx
// statuses are returned, not converted to errors. Transport failures
// are wrapped with %w so errors.Is reaches the cause.
func (client *Client) Do(ctx context.Context, credentials Credentials, method, path string, body any) (*Response, error) {
	request, err := client.NewRequest(credentials, method, path, body)
	if err != nil {
		return nil, err
	}
	return client.Send(ctx, request)
}

// Send transmits a request built by [Client.NewRequest].
func (client *Client) Send(ctx context.Context, request *Request) (*Response, error) {
	var bodyReader io.Reader
	if request.Body != nil {
		bodyReader = bytes.NewReader(request.Body)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, request.Method, request.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("bunq: creating request: %w", err)
	}
	for key, value := range request.Header {
		// Direct map assignment keeps the exact key the signature
		// covered; Header.Set would canonicalize it.
		httpRequest.Header[key] = []string{value}
	}

	httpResponse, err := client.httpClient.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("bunq: %s %s: %w", request.Method, request.URI, err)
	}
	defer httpResponse.Body.Close()

	responseBody, err := netutil.ReadResponse(httpResponse.Body)
	if err != nil {
		return nil, fmt.Errorf("bunq: reading response body: %w", err)
	}

	client.logger.Debug("bunq call",
		"method", request.Method,
		"path", request.URI,
		"status", httpResponse.StatusCode,
		"request_id", request.Header[signature.HeaderClientRequestID],
		"response_id", httpResponse.Header.Get(signature.HeaderClientResponseID),
	)

	return &Response{
		StatusCode: httpResponse.StatusCode,
		Header:     httpResponse.Header,
		Body:       responseBody,
	}, nil
}

// Verify checks the server signature on response. It returns nil or a
// *VerificationError; callers must treat the latter as fatal.
func (client *Client) Verify(credentials Credentials, response *Response) error {
	if credentials.ServerPublicKey() == nil {
		return &VerificationError{
			StatusCode: response.StatusCode,
			RequestID:  response.RequestID(),
			ResponseID: response.ResponseID(),
			Reason:     "no server public key in credentials",
		}
	}
	if !signature.VerifyResponse(credentials.ServerPublicKey(), response.StatusCode, response.Header, response.Body) {
		client.logger.Warn("bunq response signature rejected",
			"status", response.StatusCode,
			"request_id", response.RequestID(),
			"response_id", response.ResponseID(),
		)
		return &VerificationError{
			StatusCode: response.StatusCode,
			RequestID:  response.RequestID(),
			ResponseID: response.ResponseID(),
			Reason:     "server signature does not match",
		}
	}
	return nil
}
