// Package rest implements one-shot HTTP calls against Blockbook REST
// endpoints.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"blockbookclient/internal/core/domain"
	"blockbookclient/internal/core/domain/client"
	"blockbookclient/internal/logger"
)

// DefaultRequestTimeout bounds a single REST call when the supplied
// http.Client carries no timeout of its own.
const DefaultRequestTimeout = 30 * time.Second

// BlockbookAdapter implements the client.HTTPRequester interface by issuing
// plain REST calls to a chosen Blockbook node.
type BlockbookAdapter struct {
	httpClient *http.Client
	logger     logger.AppLogger
}

// Compile-time check to ensure BlockbookAdapter implements client.HTTPRequester
var _ client.HTTPRequester = (*BlockbookAdapter)(nil)

// NewBlockbookAdapter creates a new REST adapter.
func NewBlockbookAdapter(httpClient *http.Client, appLogger logger.AppLogger) *BlockbookAdapter {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultRequestTimeout}
	}
	if appLogger == nil {
		appLogger = logger.NewNopLogger()
	}
	return &BlockbookAdapter{
		httpClient: httpClient,
		logger:     appLogger,
	}
}

// Request performs a single HTTP call against the given node and returns the
// raw JSON body. Non-2xx status and transport failures surface as
// domain.TransportError.
func (a *BlockbookAdapter) Request(
	ctx context.Context,
	method string,
	node domain.Node,
	path string,
	query url.Values,
	body []byte,
) (json.RawMessage, error) {
	target := node.String() + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request for %s: %w", path, err)
	}
	if body != nil {
		// Blockbook's sendtx endpoint takes the raw transaction hex as the
		// body, not a JSON document.
		httpReq.Header.Set("Content-Type", "text/plain")
	}

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.TransportError{Operation: method + " " + path, Err: err}
	}

	defer func() {
		if errClose := httpResp.Body.Close(); errClose != nil {
			a.logger.Warn("Failed to close response body", "path", path, "error", errClose)
		}
	}()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &domain.TransportError{Operation: method + " " + path, Err: err}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		a.logger.Debug("Non-success HTTP response",
			"node", node.String(),
			"path", path,
			"status", httpResp.StatusCode,
			"body", truncateForLog(bodyBytes),
		)
		return nil, &domain.TransportError{
			Operation: method + " " + path,
			Status:    httpResp.StatusCode,
			Err:       fmt.Errorf("unexpected status %s", httpResp.Status),
		}
	}

	return json.RawMessage(bodyBytes), nil
}

// truncateForLog keeps error-path logging bounded for large bodies.
func truncateForLog(b []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
