// Package telegram is a minimal Telegram Bot API client covering the calls the
// inbox and outbox need.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"
)

var (
	// ErrUnreachable is returned for timeouts and dropped connections.
	ErrUnreachable = errors.New("telegram: provider unreachable")
	// ErrUnauthorized is returned when the bot token is rejected.
	ErrUnauthorized = errors.New("telegram: invalid bot token")
)

const DefaultBaseURL = "https://api.telegram.org"

// HTTPDoer is the part of *http.Client the client uses.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	baseURL string
	http    HTTPDoer
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// NewClientWithDoer lets callers supply their own transport.
func NewClientWithDoer(baseURL string, doer HTTPDoer) *Client {
	c := NewClient(baseURL, 0)
	c.http = doer
	return c
}

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

type Chat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Date      int64  `json:"date"`
	Text      string `json:"text"`
}

type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// File is an outbound attachment.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// IsImage reports whether the file is sent as a photo.
func (f File) IsImage() bool {
	return strings.HasPrefix(f.ContentType, "image/")
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

// GetUpdates fetches updates with an id of at least offset.
func (c *Client) GetUpdates(ctx context.Context, token string, offset int64) ([]Update, error) {
	q := url.Values{}
	q.Set("offset", strconv.FormatInt(offset, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(token, "getUpdates")+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build getUpdates request: %w", err)
	}

	var updates []Update
	if err := c.do(req, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage posts a Markdown text message to chatID.
func (c *Client) SendMessage(ctx context.Context, token, chatID, text string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return fmt.Errorf("encode sendMessage: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(token, "sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, nil)
}

// SendFile uploads f to chatID, as a photo for images and a document otherwise.
func (c *Client) SendFile(ctx context.Context, token, chatID string, f File, caption string) error {
	method, field := "sendDocument", "document"
	if f.IsImage() {
		method, field = "sendPhoto", "photo"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("chat_id", chatID); err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return fmt.Errorf("encode %s: %w", method, err)
		}
	}
	part, err := w.CreateFormFile(field, f.Name)
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}
	if _, err := part.Write(f.Data); err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(token, method), &buf)
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	return c.do(req, nil)
}

func (c *Client) endpoint(token, method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, token, method)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return classify(err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusNotFound {
		return ErrUnauthorized
	}

	var env apiResponse
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("telegram: decode response (status %d): %w", resp.StatusCode, err)
	}
	if !env.OK {
		if env.Description == "" {
			env.Description = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("telegram: %s", env.Description)
	}

	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("telegram: decode result: %w", err)
		}
	}
	return nil
}

// classify maps transport failures that are worth retrying later to ErrUnreachable.
func classify(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return fmt.Errorf("telegram: request failed: %w", err)
}
