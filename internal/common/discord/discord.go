package discord

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/concertradar-data/pkg/concert"
)

type WebhookMessage struct {
	Content string  `json:"content"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

type Embed struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Color       int       `json:"color"`
	Timestamp   time.Time `json:"timestamp"`
	Fields      []Field   `json:"fields,omitempty"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type Client struct {
	webhookURL string
	httpClient *http.Client
}

func NewClient(webhookURL string) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

const (
	colorGreen  = 0x2ecc71
	colorYellow = 0xf1c40f
	colorRed    = 0xe74c3c
)

// NotifyRun posts a run summary to the configured webhook. No-op when no
// webhook URL is configured.
func (c *Client) NotifyRun(result *concert.RunResult) error {
	color := colorGreen
	switch result.Status {
	case concert.StatusWarning:
		color = colorYellow
	case concert.StatusDanger:
		color = colorRed
	}

	msg := WebhookMessage{
		Embeds: []Embed{{
			Title:       fmt.Sprintf("Scrape run: %s", result.VenueName),
			Description: result.Message,
			Color:       color,
			Timestamp:   result.FinishedAt,
			Fields: []Field{
				{Name: "Saved", Value: fmt.Sprintf("%d", result.Saved), Inline: true},
				{Name: "Skipped", Value: fmt.Sprintf("%d", result.Skipped), Inline: true},
				{Name: "Failed", Value: fmt.Sprintf("%d", result.Failed), Inline: true},
			},
		}},
	}
	return c.SendMessage(msg)
}

func (c *Client) SendMessage(msg WebhookMessage) error {
	if c.webhookURL == "" {
		return nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook message: %w", err)
	}

	req, err := http.NewRequest("POST", c.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
