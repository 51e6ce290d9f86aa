package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// maxFetchSize caps gateway responses.
const maxFetchSize = 32 << 20

// HTTPStore uploads to a web3.storage-compatible API and fetches through an
// IPFS HTTP gateway.
type HTTPStore struct {
	apiURL        string
	gatewayURL    string
	token         string
	uploadTimeout time.Duration
	fetchTimeout  time.Duration
	client        *http.Client
	logger        *slog.Logger
}

// HTTPOption configures an HTTPStore.
type HTTPOption func(*HTTPStore) error

// WithUploadTimeout bounds each Put call.
func WithUploadTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPStore) error {
		s.uploadTimeout = d
		return nil
	}
}

// WithFetchTimeout bounds each Get and GetFile call.
func WithFetchTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPStore) error {
		s.fetchTimeout = d
		return nil
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPStore) error {
		s.client = c
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) HTTPOption {
	return func(s *HTTPStore) error {
		s.logger = logger
		return nil
	}
}

// WithSOCKS5Proxy routes all traffic through the SOCKS5 proxy at address
// ("host:port"). An empty address leaves the client unchanged.
func WithSOCKS5Proxy(address string) HTTPOption {
	return func(s *HTTPStore) error {
		if address == "" {
			return nil
		}
		dialer, err := proxy.SOCKS5("tcp", address, nil, proxy.Direct)
		if err != nil {
			return fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		s.client = &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					if cd, ok := dialer.(proxy.ContextDialer); ok {
						return cd.DialContext(ctx, network, addr)
					}
					return dialer.Dial(network, addr)
				},
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     30 * time.Second,
			},
		}
		return nil
	}
}

// NewHTTPStore creates a store for the given upload API and gateway.
func NewHTTPStore(apiURL, gatewayURL, token string, opts ...HTTPOption) (*HTTPStore, error) {
	s := &HTTPStore{
		apiURL:     strings.TrimRight(apiURL, "/"),
		gatewayURL: strings.TrimRight(gatewayURL, "/"),
		token:      token,
		client:     &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

type uploadResponse struct {
	CID string `json:"cid"`
}

// Put implements Store.
func (s *HTTPStore) Put(ctx context.Context, blobs ...Blob) (string, error) {
	if len(blobs) == 0 {
		return "", ErrNoBlobs
	}
	if s.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.uploadTimeout)
		defer cancel()
	}

	body, contentType, err := encodeMultipart(blobs)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUpload, err)
	}

	endpoint := s.apiURL + "/upload"
	if len(blobs) == 1 {
		endpoint += "?wrapWithDirectory=false"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUpload, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUpload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d", ErrUpload, resp.StatusCode)
	}

	var out uploadResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxFetchSize)).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: invalid response: %w", ErrUpload, err)
	}
	if out.CID == "" {
		return "", fmt.Errorf("%w: empty cid in response", ErrUpload)
	}

	s.logger.Debug("uploaded unit", "cid", out.CID, "files", len(blobs))
	return out.CID, nil
}

func encodeMultipart(blobs []Blob) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, b := range blobs {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, b.Name))
		ct := b.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(b.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// Get implements Store.
func (s *HTTPStore) Get(ctx context.Context, cid string) ([]byte, error) {
	return s.fetch(ctx, s.gatewayURL+"/ipfs/"+url.PathEscape(cid))
}

// GetFile implements Store.
func (s *HTTPStore) GetFile(ctx context.Context, cid, name string) ([]byte, error) {
	return s.fetch(ctx, s.gatewayURL+"/ipfs/"+url.PathEscape(cid)+"/"+url.PathEscape(name))
}

func (s *HTTPStore) fetch(ctx context.Context, target string) ([]byte, error) {
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrNotFound, target, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return data, nil
}
