// Package evolution implements the channel.Adapter contract against an
// Evolution API server. One Client drives one instance.
package evolution

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
	baseURL  string
	apiKey   string
	instance string
	client   *http.Client
}

func NewClient(baseURL, apiKey, instance string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		instance: instance,
		client:   &http.Client{Timeout: timeout},
	}
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type sendMediaRequest struct {
	Number       string       `json:"number"`
	MediaMessage mediaMessage `json:"mediaMessage"`
}

type mediaMessage struct {
	MediaType string `json:"mediatype"`
	Media     string `json:"media"`
	Caption   string `json:"caption,omitempty"`
	FileName  string `json:"fileName,omitempty"`
}

type sendResponse struct {
	Key struct {
		ID string `json:"id"`
	} `json:"key"`
}

type connectionStateResponse struct {
	Instance struct {
		State string `json:"state"`
	} `json:"instance"`
}

func (c *Client) SendText(ctx context.Context, target, text string) (*channel.SendResult, error) {
	endpoint := fmt.Sprintf("/message/sendText/%s", c.instance)
	body, err := c.post(ctx, endpoint, sendTextRequest{Number: target, Text: text})
	if err != nil {
		return nil, err
	}

	var result sendResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode send response: %w", err)
	}

	return &channel.SendResult{MessageID: result.Key.ID}, nil
}

func (c *Client) SendMedia(ctx context.Context, target string, item channel.MediaItem) (*channel.SendResult, error) {
	endpoint := fmt.Sprintf("/message/sendMedia/%s", c.instance)
	payload := sendMediaRequest{
		Number: target,
		MediaMessage: mediaMessage{
			MediaType: item.Type,
			Media:     item.URL,
			Caption:   item.Caption,
			FileName:  item.Filename,
		},
	}

	body, err := c.post(ctx, endpoint, payload)
	if err != nil {
		return nil, err
	}

	var result sendResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode send response: %w", err)
	}

	return &channel.SendResult{MessageID: result.Key.ID}, nil
}

func (c *Client) FetchConnectionState(ctx context.Context) (channel.ConnectionState, error) {
	endpoint := fmt.Sprintf("/instance/connectionState/%s", c.instance)
	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return channel.StateUnknown, err
	}

	var result connectionStateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return channel.StateUnknown, fmt.Errorf("failed to decode connection state: %w", err)
	}

	switch strings.ToLower(result.Instance.State) {
	case "open":
		return channel.StateConnected, nil
	case "connecting":
		return channel.StateConnecting, nil
	case "close", "closed":
		return channel.StateDisconnected, nil
	default:
		return channel.StateUnknown, nil
	}
}

func (c *Client) SetCallbackURL(ctx context.Context, url string) error {
	endpoint := fmt.Sprintf("/webhook/set/%s", c.instance)
	payload := map[string]interface{}{
		"webhook": map[string]interface{}{
			"enabled": true,
			"url":     url,
			"events":  []string{"MESSAGES_UPSERT", "MESSAGES_DELETE", "CONNECTION_UPDATE"},
		},
	}

	_, err := c.post(ctx, endpoint, payload)
	return err
}

func (c *Client) CreateSession(ctx context.Context) error {
	payload := map[string]interface{}{
		"instanceName": c.instance,
		"integration":  "WHATSAPP-BAILEYS",
	}

	_, err := c.post(ctx, "/instance/create", payload)
	return err
}

func (c *Client) DeleteSession(ctx context.Context) error {
	endpoint := fmt.Sprintf("/instance/delete/%s", c.instance)
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

	req.Header.Set("apikey", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeProviderAPI, "evolution request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewProviderError("evolution", endpoint, resp.StatusCode,
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	return data, nil
}
