package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// retryBackoff is the wait before the single retry on a transient backend status.
var retryBackoff = 2 * time.Second

// SendJSON posts a JSON body to url and returns the raw response body and
// status. Transformation backends rate-limit aggressively, so one retry is
// attempted on 429/502/503 before giving up. Callers decide URL and headers.
func SendJSON(ctx context.Context, client *http.Client, url string, body any, headers map[string]string, logger *slog.Logger) ([]byte, int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	reqID := uuid.New().String()
	start := time.Now()

	bs, err := json.Marshal(body)
	if err != nil {
		logger.Error("llm.http.encode_error", "req_id", reqID, "error", err)
		return nil, 0, fmt.Errorf("encode json: %w", err)
	}

	var raw []byte
	var status int
	for attempt := 1; ; attempt++ {
		raw, status, err = postOnce(ctx, client, url, bs, headers)
		if err != nil {
			logger.Error("llm.http.send_error",
				"req_id", reqID, "attempt", attempt, "error", err,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return nil, status, err
		}
		if attempt == 1 && transientStatus(status) {
			logger.Warn("llm.http.retrying", "req_id", reqID, "status", status, "backoff", retryBackoff)
			select {
			case <-ctx.Done():
				return nil, status, ctx.Err()
			case <-time.After(retryBackoff):
			}
			continue
		}
		break
	}

	logger.Info("llm.http.response",
		"req_id", reqID,
		"url", url,
		"status", status,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if status/100 != 2 {
		// Body is returned so callers can surface the provider message.
		return raw, status, fmt.Errorf("non-2xx status: %d", status)
	}
	return raw, status, nil
}

func postOnce(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return raw, resp.StatusCode, nil
}

func transientStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable:
		return true
	}
	return false
}
