package statcard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"statcard-backend/lib/telegram"
	"statcard-backend/services/statcard/db"
)

const welcomeText = `*FACEIT stat card bot*

/stat <nickname> - render a stat card for any player
/stat - render a card for your registered nickname
/register - link your FACEIT nickname (private chat only)
/help - show this message`

const registrationPrompt = "Send me your FACEIT nickname and I will link it to your account."

// Transport is the slice of the Bot API the dispatcher needs. The
// production implementation is *telegram.Client.
type Transport interface {
	GetUpdates(ctx context.Context, offset int64) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatId int64, text string) error
	SendPhoto(ctx context.Context, chatId int64, caption string, png []byte) error
}

type Bot struct {
	transport Transport
	service   *Service
	store     db.Store

	offset int64

	mu sync.Mutex
	// users that ran /register and still owe us a nickname
	pendingRegistration map[int64]bool
}

func NewBot(transport Transport, service *Service, store db.Store) *Bot {
	return &Bot{
		transport:           transport,
		service:             service,
		store:               store,
		pendingRegistration: make(map[int64]bool),
	}
}

// Run polls for updates until the context is cancelled. Each message
// is handled on its own goroutine so a slow fetch does not stall the
// poll loop.
func (b *Bot) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "telegram bot polling")

	for {
		updates, err := b.transport.GetUpdates(ctx, b.offset)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.WarnContext(ctx, "getUpdates failed", "err", err)
			select {
			case <-time.After(time.Second * 5):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		for _, update := range updates {
			b.offset = update.UpdateId + 1
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			msg := *update.Message
			go b.HandleMessage(ctx, msg)
		}
	}
}

func (b *Bot) HandleMessage(ctx context.Context, msg Message) {
	ctx, span := tracer.Start(ctx, "HandleMessage")
	defer span.End()

	command, arg := ParseCommand(msg.Text)
	slog.DebugContext(
		ctx, "incoming message",
		"from", msg.From.Username,
		"chat", msg.Chat.Id,
		"command", command,
	)

	switch command {
	case "/start", "/help":
		b.reply(ctx, msg.Chat.Id, welcomeText)
	case "/register":
		b.handleRegister(ctx, msg, arg)
	case "/stat":
		b.handleStat(ctx, msg, arg)
	default:
		if b.takePendingRegistration(msg) {
			b.completeRegistration(ctx, msg)
			return
		}
		if strings.HasPrefix(command, "/") {
			b.reply(ctx, msg.Chat.Id, "Unknown command, try /help.")
		}
	}
}

// Message aliases the transport type so handlers read naturally.
type Message = telegram.Message

// ParseCommand splits a message into its leading command and the rest.
// "/stat s1mple" yields ("/stat", "s1mple"); plain text yields the
// first word as command with no slash handling applied.
func ParseCommand(text string) (command, arg string) {
	text = strings.TrimSpace(text)
	command, arg, _ = strings.Cut(text, " ")
	// "/stat@MyBot" in group chats addresses a specific bot
	command, _, _ = strings.Cut(command, "@")
	return command, strings.TrimSpace(arg)
}

func (b *Bot) handleRegister(ctx context.Context, msg Message, arg string) {
	if msg.Chat.Type != "private" {
		b.reply(ctx, msg.Chat.Id, "Registration only works in a private chat with me.")
		return
	}
	if arg != "" {
		b.register(ctx, msg, arg)
		return
	}
	b.mu.Lock()
	b.pendingRegistration[msg.From.Id] = true
	b.mu.Unlock()
	b.reply(ctx, msg.Chat.Id, registrationPrompt)
}

func (b *Bot) takePendingRegistration(msg Message) bool {
	if msg.Chat.Type != "private" {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.pendingRegistration[msg.From.Id] {
		return false
	}
	delete(b.pendingRegistration, msg.From.Id)
	return true
}

func (b *Bot) completeRegistration(ctx context.Context, msg Message) {
	b.register(ctx, msg, strings.TrimSpace(msg.Text))
}

func (b *Bot) register(ctx context.Context, msg Message, handle string) {
	// render first so a nonexistent nickname never gets stored
	png, err := b.service.GetStatsImage(ctx, handle)
	if err != nil {
		b.reply(ctx, msg.Chat.Id, ReplyForError(err))
		return
	}
	if err := b.store.Register(ctx, msg.From.Id, handle); err != nil {
		slog.ErrorContext(ctx, "register failed", "telegram_id", msg.From.Id, "err", err)
		b.reply(ctx, msg.Chat.Id, "Something went wrong saving your nickname, try again later.")
		return
	}

	err = b.transport.SendPhoto(ctx, msg.Chat.Id, "Registered! Use /stat any time.", png)
	if err != nil {
		slog.ErrorContext(ctx, "sendPhoto failed", "chat", msg.Chat.Id, "err", err)
	}
}

func (b *Bot) handleStat(ctx context.Context, msg Message, arg string) {
	handle := arg
	if handle == "" {
		stored, err := b.store.Handle(ctx, msg.From.Id)
		if errors.Is(err, db.ErrNotRegistered) {
			b.reply(ctx, msg.Chat.Id, "You are not registered yet, use /register or pass a nickname: /stat <nickname>.")
			return
		}
		if err != nil {
			slog.ErrorContext(ctx, "handle lookup failed", "telegram_id", msg.From.Id, "err", err)
			b.reply(ctx, msg.Chat.Id, "Something went wrong, try again later.")
			return
		}
		handle = stored
	}

	png, err := b.service.GetStatsImage(ctx, handle)
	if err != nil {
		slog.WarnContext(ctx, "stat card failed", "handle", handle, "kind", KindOf(err), "err", err)
		b.reply(ctx, msg.Chat.Id, ReplyForError(err))
		return
	}

	caption := fmt.Sprintf("Stats for %s", handle)
	if err := b.transport.SendPhoto(ctx, msg.Chat.Id, caption, png); err != nil {
		slog.ErrorContext(ctx, "sendPhoto failed", "chat", msg.Chat.Id, "err", err)
	}
}

// ReplyForError turns a pipeline failure into a user-facing message.
func ReplyForError(err error) string {
	switch KindOf(err) {
	case KindInvalidHandle:
		return "That does not look like a nickname, try again."
	case KindHandleNotFound:
		return "Player not found, check the nickname."
	case KindFetchTimeout, KindReadinessTimeout:
		return "The stats site is slow right now, try again in a minute."
	case KindLayoutChanged, KindMissingCoreFields:
		return "The stats page could not be read, we are on it."
	default:
		return "Something went wrong, try again later."
	}
}

func (b *Bot) reply(ctx context.Context, chatId int64, text string) {
	if err := b.transport.SendMessage(ctx, chatId, text); err != nil {
		slog.ErrorContext(ctx, "sendMessage failed", "chat", chatId, "err", err)
	}
}
