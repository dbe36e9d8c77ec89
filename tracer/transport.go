package tracer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HttpHandle is the thin abstraction over an HTTP POST client that the
// worker requires. Production uses httpClientHandle; tests use an
// in-memory double (see fakeHandle in writer_test.go).
type HttpHandle interface {
	// SetOption configures a single transport-level option. Recognized
	// keys: "url", "unix_socket_path", "timeout_ms", "post_field_size".
	SetOption(key, value string) error
	// SetHeaders replaces every outgoing header.
	SetHeaders(headers map[string]string)
	// Perform executes a POST of body against the configured URL.
	Perform(body []byte) error
	// ResponseBody returns the body of the most recently performed
	// request.
	ResponseBody() []byte
	// ResponseStatus returns the HTTP status of the most recently
	// performed request, or 0 if none is available.
	ResponseStatus() int
	// Close releases any resources (idle connections, sockets) held by
	// the handle. Called exactly once, by the worker, after it stops.
	Close() error
}

// httpClientHandle is the production HttpHandle, built around a single
// long-lived *http.Client the way the reference exporter builds one
// http.Client (with a custom Transport) at construction time and never
// replaces it.
type httpClientHandle struct {
	client  *http.Client
	url     string
	headers map[string]string

	respBody   []byte
	respStatus int

	transport *http.Transport
}

func newHTTPClientHandle() *httpClientHandle {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &httpClientHandle{
		client:    &http.Client{Transport: transport},
		transport: transport,
		headers:   make(map[string]string),
	}
}

func (h *httpClientHandle) SetOption(key, value string) error {
	switch key {
	case "url":
		h.url = value
	case "unix_socket_path":
		path := value
		h.transport.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			d := net.Dialer{Timeout: 30 * time.Second}
			return d.DialContext(ctx, "unix", path)
		}
	case "timeout_ms":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid timeout_ms %q: %w", value, err)
		}
		h.client.Timeout = time.Duration(ms) * time.Millisecond
	case "post_field_size":
		// informational only for the production handle; real clients
		// compute Content-Length from the body automatically.
	default:
		return fmt.Errorf("unrecognized option %q", key)
	}
	return nil
}

func (h *httpClientHandle) SetHeaders(headers map[string]string) {
	// Replaced wholesale, never merged: a stale header from a previous
	// request must never survive into the next one.
	cp := make(map[string]string, len(headers))
	for k, v := range headers {
		cp[k] = v
	}
	h.headers = cp
}

func (h *httpClientHandle) Perform(body []byte) error {
	req, err := http.NewRequest(http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("cannot create agent request: %w", err)
	}
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		h.respStatus = 0
		h.respBody = nil
		return err
	}
	defer resp.Body.Close()
	buf, readErr := io.ReadAll(resp.Body)
	h.respStatus = resp.StatusCode
	h.respBody = buf
	return readErr
}

func (h *httpClientHandle) ResponseBody() []byte { return h.respBody }

func (h *httpClientHandle) ResponseStatus() int { return h.respStatus }

func (h *httpClientHandle) Close() error {
	h.transport.CloseIdleConnections()
	return nil
}

// tracesPath is the agent endpoint every computed URL targets.
const tracesPath = "/v0.4/traces"

// resolveAgentURL implements the §4.2 URL selection rules: it returns the
// HTTP target to configure on the handle and, for unix:// or bare-path
// overrides, the socket path to dial instead of the network.
func resolveAgentURL(host string, port uint16, urlOverride string) (target string, unixSocketPath string, err error) {
	switch {
	case urlOverride == "":
		return fmt.Sprintf("http://%s:%d%s", host, port, tracesPath), "", nil

	case strings.HasPrefix(urlOverride, "http://") || strings.HasPrefix(urlOverride, "https://"):
		return strings.TrimSuffix(urlOverride, "/") + tracesPath, "", nil

	case strings.HasPrefix(urlOverride, "unix://"):
		path := strings.TrimPrefix(urlOverride, "unix://")
		return fmt.Sprintf("http://%s:%d%s", host, port, tracesPath), path, nil

	case strings.HasPrefix(urlOverride, "/"):
		return fmt.Sprintf("http://%s:%d%s", host, port, tracesPath), urlOverride, nil

	default:
		scheme := urlOverride
		if i := strings.Index(scheme, "://"); i >= 0 {
			scheme = scheme[:i]
		}
		return "", "", &ErrInvalidURLScheme{Scheme: scheme}
	}
}
