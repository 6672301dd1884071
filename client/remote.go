// Package client holds the client-side state layer: a configured HTTP client,
// the catalog store and the playback state machine consumed by the UI.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// transportErrMsg 在服务端未返回结构化错误体时使用
const transportErrMsg = "request failed, please try again"

// APIError 携带服务端返回的状态码和 message 字段
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

// RemoteClient 封装基础URL和认证信息的HTTP客户端
type RemoteClient struct {
	BaseURL    string
	HTTPClient *http.Client

	token string
}

// NewRemoteClient 创建远程客户端
func NewRemoteClient(baseURL string) *RemoteClient {
	return &RemoteClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// SetToken 设置会话令牌，后续请求带上 Authorization 头
func (c *RemoteClient) SetToken(token string) {
	c.token = token
}

// Get issues a GET request and decodes the JSON response into out.
func (c *RemoteClient) Get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, out)
}

// Delete issues a DELETE request.
func (c *RemoteClient) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil)
}

func (c *RemoteClient) do(ctx context.Context, method, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseAPIError 尽力从错误响应体中提取 message 字段
// 解析失败不会panic，只会得到一个没有 Message 的 APIError
func parseAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return apiErr
	}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Message = payload.Message
	}
	return apiErr
}

// errorMessage derives the human-readable message recorded in store state.
// 优先使用服务端的 message 字段，否则退回统一的传输错误提示。
func errorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return transportErrMsg
}
