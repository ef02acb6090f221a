// Package externalapi holds the HTTP plumbing shared by the upstream market data adapters.
package externalapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"stocky_backend/internal/feature/candles/domain"
)

// maxErrorBody bounds how much of an error response is kept in UpstreamError.Body.
const maxErrorBody = 512

// GetJSON performs a GET request and decodes a JSON body into out.
//
// Errors are classified for the fallback logic:
//   - deadline exceeded or a network timeout wraps domain.ErrTimeout
//   - a non-2xx status yields *domain.UpstreamError with a truncated body
//   - a body that is not valid JSON for out yields *domain.UpstreamError
//
// rawURL may contain credentials, so it is never logged or put into errors.
func GetJSON(ctx context.Context, client *http.Client, provider, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", provider, err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := client.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return fmt.Errorf("%s: %w", provider, domain.ErrTimeout)
		}
		return fmt.Errorf("%s: request failed: %w", provider, stripURL(err))
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "provider", provider, "error", err)
		}
	}()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return &domain.UpstreamError{
			Provider: provider,
			Status:   res.StatusCode,
			Body:     strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		if isTimeout(ctx, err) {
			return fmt.Errorf("%s: %w", provider, domain.ErrTimeout)
		}
		return &domain.UpstreamError{
			Provider: provider,
			Status:   res.StatusCode,
			Body:     "undecodable body: " + err.Error(),
		}
	}
	return nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// stripURL drops the request URL from *url.Error so API keys do not leak into logs.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err
	}
	return err
}
