package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"
)

// Telegram posts messages through the Bot API sendMessage method.
type Telegram struct {
	httpClient *http.Client
	apiURL     string
	token      string
	chatID     string
}

func NewTelegram(apiURL, token, chatID string) *Telegram {
	return &Telegram{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		apiURL:     strings.TrimRight(apiURL, "/"),
		token:      token,
		chatID:     chatID,
	}
}

type telegramRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Deliver(ctx context.Context, msg Message) error {
	body, err := json.Marshal(telegramRequest{
		ChatID:                t.chatID,
		Text:                  telegramHTML(msg),
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("encoding telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var result telegramResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&result)
		if result.Description != "" {
			return fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, result.Description)
		}
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

// telegramHTML renders msg in the HTML subset accepted by parse_mode=HTML.
func telegramHTML(msg Message) string {
	var b strings.Builder
	if msg.Title != "" {
		b.WriteString("<b>")
		b.WriteString(html.EscapeString(msg.Title))
		b.WriteString("</b>\n")
	}
	b.WriteString(html.EscapeString(msg.Body))
	if msg.URL != "" {
		title := msg.URLTitle
		if title == "" {
			title = msg.URL
		}
		fmt.Fprintf(&b, "\n<a href=\"%s\">%s</a>", html.EscapeString(msg.URL), html.EscapeString(title))
	}
	return b.String()
}
