// Package waha implements the channel.Adapter contract against a WAHA
// (WhatsApp HTTP API) server. One Client drives one session.
package waha

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "omnichat/internal/errors"
	"omnichat/pkg/channel"
)

type Client struct {
	baseURL string
	apiKey  string
	session string
	client  *http.Client
}

func NewClient(baseURL, apiKey, session string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		session: session,
		client:  &http.Client{Timeout: timeout},
	}
}

type sendTextRequest struct {
	ChatID  string `json:"chatId"`
	Text    string `json:"text"`
	Session string `json:"session"`
}

type sendFileRequest struct {
	ChatID  string   `json:"chatId"`
	Session string   `json:"session"`
	File    filePart `json:"file"`
	Caption string   `json:"caption,omitempty"`
}

type filePart struct {
	URL      string `json:"url"`
	MimeType string `json:"mimetype,omitempty"`
	Filename string `json:"filename,omitempty"`
}

type sendMessageResponse struct {
	ID string `json:"id"`
}

type sessionStatusResponse struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

func (c *Client) SendText(ctx context.Context, target, text string) (*channel.SendResult, error) {
	body, err := c.post(ctx, "/api/sendText", sendTextRequest{
		ChatID:  target,
		Text:    text,
		Session: c.session,
	})
	if err != nil {
		return nil, err
	}

	var result sendMessageResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode send response: %w", err)
	}

	return &channel.SendResult{MessageID: result.ID}, nil
}

func (c *Client) SendMedia(ctx context.Context, target string, item channel.MediaItem) (*channel.SendResult, error) {
	endpoint := endpointForMedia(item.Type)
	body, err := c.post(ctx, endpoint, sendFileRequest{
		ChatID:  target,
		Session: c.session,
		Caption: item.Caption,
		File: filePart{
			URL:      item.URL,
			MimeType: item.MimeType,
			Filename: item.Filename,
		},
	})
	if err != nil {
		return nil, err
	}

	var result sendMessageResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode send response: %w", err)
	}

	return &channel.SendResult{MessageID: result.ID}, nil
}

func endpointForMedia(mediaType string) string {
	switch mediaType {
	case "image":
		return "/api/sendImage"
	case "audio", "voice":
		return "/api/sendVoice"
	case "video":
		return "/api/sendVideo"
	default:
		return "/api/sendFile"
	}
}

func (c *Client) FetchConnectionState(ctx context.Context) (channel.ConnectionState, error) {
	endpoint := fmt.Sprintf("/api/sessions/%s", c.session)
	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return channel.StateUnknown, err
	}

	var result sessionStatusResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return channel.StateUnknown, fmt.Errorf("failed to decode session status: %w", err)
	}

	switch strings.ToUpper(result.Status) {
	case "WORKING":
		return channel.StateConnected, nil
	case "STARTING", "SCAN_QR_CODE":
		return channel.StateConnecting, nil
	case "STOPPED", "FAILED":
		return channel.StateDisconnected, nil
	default:
		return channel.StateUnknown, nil
	}
}

func (c *Client) SetCallbackURL(ctx context.Context, url string) error {
	endpoint := fmt.Sprintf("/api/sessions/%s", c.session)
	payload := map[string]interface{}{
		"config": map[string]interface{}{
			"webhooks": []map[string]interface{}{
				{
					"url":    url,
					"events": []string{"message", "message.any", "session.status"},
				},
			},
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	_, err = c.do(ctx, http.MethodPut, endpoint, bytes.NewReader(jsonData))
	return err
}

func (c *Client) CreateSession(ctx context.Context) error {
	payload := map[string]interface{}{
		"name":  c.session,
		"start": true,
	}

	_, err := c.post(ctx, "/api/sessions", payload)
	return err
}

func (c *Client) DeleteSession(ctx context.Context) error {
	endpoint := fmt.Sprintf("/api/sessions/%s", c.session)
	_, err := c.do(ctx, http.MethodDelete, endpoint, nil)
	return err
}

func (c *Client) post(ctx context.Context, endpoint string, payload interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeProviderAPI, "waha request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewProviderError("waha", endpoint, resp.StatusCode,
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	return data, nil
}
