package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const telegramAPI = "https://api.telegram.org"

// TelegramClient is a minimal Bot API client: sendMessage and getUpdates.
type TelegramClient struct {
	Token   string
	BaseURL string
	HTTP    *http.Client
}

func NewTelegramClient(token string) *TelegramClient {
	return &TelegramClient{
		Token:   token,
		BaseURL: telegramAPI,
		HTTP:    &http.Client{Timeout: 70 * time.Second},
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
	Result      json.RawMessage `json:"result"`
}

type Chat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

type Message struct {
	MessageID      int64    `json:"message_id"`
	Chat           Chat     `json:"chat"`
	Text           string   `json:"text"`
	Caption        string   `json:"caption"`
	ReplyToMessage *Message `json:"reply_to_message"`
}

type Update struct {
	UpdateID    int64    `json:"update_id"`
	Message     *Message `json:"message"`
	ChannelPost *Message `json:"channel_post"`
}

// Post returns the channel post or chat message carried by the update.
func (u Update) Post() *Message {
	if u.ChannelPost != nil {
		return u.ChannelPost
	}
	return u.Message
}

func (c *TelegramClient) SendMessage(ctx context.Context, chatID, text string) error {
	_, err := c.call(ctx, "sendMessage", url.Values{
		"chat_id":                  {chatID},
		"text":                     {text},
		"disable_web_page_preview": {"true"},
	})
	return err
}

// GetUpdates long-polls for updates after offset.
func (c *TelegramClient) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	raw, err := c.call(ctx, "getUpdates", url.Values{
		"offset":          {strconv.FormatInt(offset, 10)},
		"timeout":         {strconv.Itoa(int(timeout.Seconds()))},
		"allowed_updates": {`["message","channel_post"]`},
	})
	if err != nil {
		return nil, err
	}
	var updates []Update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("failed to decode updates: %w", err)
	}
	return updates, nil
}

func (c *TelegramClient) call(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	apiURL := fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(c.BaseURL, "/"), c.Token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("telegram %s: bad response (status %d): %w", method, resp.StatusCode, err)
	}
	if !body.OK {
		return nil, fmt.Errorf("telegram %s: %d %s", method, body.ErrorCode, body.Description)
	}
	return body.Result, nil
}
