package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxFetchBytes = 5 << 20 // 5 MiB

// WebFetchTool performs an HTTP GET and returns textual responses verbatim.
type WebFetchTool struct {
	client *http.Client
}

func NewWebFetchTool() *WebFetchTool {
	return &WebFetchTool{client: &http.Client{Timeout: 30 * time.Second}}
}

func (t *WebFetchTool) Name() string { return "webfetch" }

func (t *WebFetchTool) Description() string {
	return "Fetch a http(s) URL. Text responses are returned as-is; binary " +
		"responses are summarised with their content type and length."
}

func (t *WebFetchTool) Schema() json.RawMessage {
	return mustSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "URL to fetch. Only http and https are allowed.",
			},
		},
		"required": []string{"url"},
	})
}

func (t *WebFetchTool) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	var input struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, err
	}
	u, err := url.Parse(input.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrorResult("only http and https URLs are supported"), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, input.URL, nil)
	if err != nil {
		return ErrorResult("invalid request: %v", err), nil
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return ErrorResult("fetch failed: %v", err), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return ErrorResult("read response: %v", err), nil
	}

	contentType := resp.Header.Get("Content-Type")
	meta := map[string]any{
		"status":       resp.StatusCode,
		"content_type": contentType,
		"bytes":        len(body),
	}
	if !isTextContentType(contentType) {
		return &Result{
			Title:    input.URL,
			Output:   fmt.Sprintf("non-text response: %s, %d bytes", contentType, len(body)),
			Metadata: meta,
		}, nil
	}
	res := &Result{Title: input.URL, Output: string(body), Metadata: meta}
	if resp.StatusCode >= 400 {
		res.IsError = true
		res.Metadata["error"] = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return res, nil
}

func isTextContentType(ct string) bool {
	ct = strings.ToLower(ct)
	if strings.HasPrefix(ct, "text/") {
		return true
	}
	for _, s := range []string{"json", "xml", "javascript", "x-www-form-urlencoded", "yaml"} {
		if strings.Contains(ct, s) {
			return true
		}
	}
	return false
}
