// Package telegram — минимальный клиент Bot API: отправка сообщений,
// отправка документов, long polling. Без фреймворков, только то, что
// нужно боту.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

func New(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc: &http.Client{
			// Long polling держит соединение до 30 секунд.
			Timeout: 40 * time.Second,
		},
	}
}

type apiResp struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
	Chat      Chat   `json:"chat"`
}

type Chat struct {
	ID int64 `json:"id"`
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

func (c *Client) call(ctx context.Context, method string, payload any, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(b))
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	var r apiResp
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return errors.Wrap(err, "decode")
	}
	if !r.OK {
		return fmt.Errorf("telegram %s: %d %s", method, r.ErrorCode, r.Description)
	}
	if out != nil {
		if err := json.Unmarshal(r.Result, out); err != nil {
			return errors.Wrap(err, "decode result")
		}
	}
	return nil
}

// SendMessage шлёт Markdown-сообщение в чат.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	if chatID == "" {
		return errors.New("chatID is required")
	}
	return c.call(ctx, "sendMessage", map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}, nil)
}

// SendDocument отправляет файл (PDF-отчёт) как multipart.
func (c *Client) SendDocument(ctx context.Context, chatID, filename string, data []byte, caption string) error {
	if chatID == "" {
		return errors.New("chatID is required")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("chat_id", chatID); err != nil {
		return errors.Wrap(err, "write chat_id")
	}
	if caption != "" {
		if err := mw.WriteField("caption", caption); err != nil {
			return errors.Wrap(err, "write caption")
		}
	}
	fw, err := mw.CreateFormFile("document", filename)
	if err != nil {
		return errors.Wrap(err, "create form file")
	}
	if _, err := fw.Write(data); err != nil {
		return errors.Wrap(err, "write document")
	}
	if err := mw.Close(); err != nil {
		return errors.Wrap(err, "close multipart")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendDocument"), &buf)
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var r apiResp
	if err := json.Unmarshal(body, &r); err != nil {
		return errors.Wrap(err, "decode")
	}
	if !r.OK {
		return fmt.Errorf("telegram sendDocument: %d %s", r.ErrorCode, r.Description)
	}
	return nil
}

// GetUpdates — long polling; offset = последний update_id + 1.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	var updates []Update
	err := c.call(ctx, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         timeoutSec,
		"allowed_updates": []string{"message"},
	}, &updates)
	if err != nil {
		return nil, err
	}
	return updates, nil
}
