// Package telegram is a minimal Bot API client covering the handful of
// methods the stat card bot needs: long-poll updates, text replies and
// photo uploads.
package telegram

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"statcard-backend/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("lib/telegram")

const apiBase = "https://api.telegram.org/bot"

type User struct {
	Id        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

type Chat struct {
	Id int64 `json:"id"`
	// "private", "group", "supergroup" or "channel"
	Type string `json:"type"`
}

type Message struct {
	MessageId int64  `json:"message_id"`
	From      User   `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

type Update struct {
	UpdateId int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

type apiResponse[T any] struct {
	Ok          bool   `json:"ok"`
	Description string `json:"description"`
	Result      T      `json:"result"`
}

type Client struct {
	http *resty.Client
}

func NewClient(token string) *Client {
	client := resty.New().
		SetBaseURL(apiBase + token).
		SetTimeout(time.Second * 90)
	restyutil.InstrumentClient(client, tracer)
	return &Client{http: client}
}

// GetUpdates long-polls for updates past the given offset. The call
// blocks server-side for up to the poll timeout when nothing is queued.
func (c *Client) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	ctx, span := tracer.Start(ctx, "GetUpdates")
	defer span.End()

	var out apiResponse[[]Update]
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("offset", strconv.FormatInt(offset, 10)).
		SetQueryParam("timeout", "30").
		SetResult(&out).
		Get("/getUpdates")
	if err != nil {
		return nil, err
	}
	if res.IsError() || !out.Ok {
		return nil, fmt.Errorf("getUpdates: status %d: %s", res.StatusCode(), out.Description)
	}
	return out.Result, nil
}

func (c *Client) SendMessage(ctx context.Context, chatId int64, text string) error {
	ctx, span := tracer.Start(ctx, "SendMessage")
	defer span.End()

	var out apiResponse[Message]
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"chat_id":    chatId,
			"text":       text,
			"parse_mode": "Markdown",
		}).
		SetResult(&out).
		Post("/sendMessage")
	if err != nil {
		return err
	}
	if res.IsError() || !out.Ok {
		return fmt.Errorf("sendMessage: status %d: %s", res.StatusCode(), out.Description)
	}
	return nil
}

// SendPhoto uploads png bytes as a photo with an optional caption.
func (c *Client) SendPhoto(ctx context.Context, chatId int64, caption string, png []byte) error {
	ctx, span := tracer.Start(ctx, "SendPhoto")
	defer span.End()

	req := c.http.R().
		SetContext(ctx).
		SetFileReader("photo", "card.png", bytes.NewReader(png)).
		SetFormData(map[string]string{
			"chat_id": strconv.FormatInt(chatId, 10),
		})
	if caption != "" {
		req.SetFormData(map[string]string{"caption": caption})
	}

	var out apiResponse[Message]
	res, err := req.SetResult(&out).Post("/sendPhoto")
	if err != nil {
		return err
	}
	if res.IsError() || !out.Ok {
		return fmt.Errorf("sendPhoto: status %d: %s", res.StatusCode(), out.Description)
	}
	return nil
}
