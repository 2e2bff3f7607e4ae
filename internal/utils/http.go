package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HttpStatusError is returned by HttpDoJSON for non-2xx replies.
type HttpStatusError struct {
	StatusCode int
	Body       string
}

func (e *HttpStatusError) Error() string {
	return fmt.Sprintf("bad status code: %d, body: %s", e.StatusCode, e.Body)
}

// HttpDoJSON 发送请求并把 2xx 响应解码到 out（out 可为 nil）
// body 为 []byte 或 io.Reader 时原样发送，否则按 JSON 序列化
func HttpDoJSON(ctx context.Context, client *http.Client, method, url string, header http.Header, body, out interface{}) error {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	case io.Reader:
		reader = b
	default:
		jsonData, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("marshal json error: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("new request error: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Content-Type") == "" && reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http request error: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response error: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HttpStatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response error: %w", err)
	}
	return nil
}
