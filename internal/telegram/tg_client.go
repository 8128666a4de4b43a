package telegram

import (
	"context"
	"fmt"
	"strings"

	"kiitcms/backend/internal/models"
	"kiitcms/backend/internal/notify"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Poster sends one formatted text message to a chat.
type Poster interface {
	SendText(chatID int64, text string, markdown bool) error
}

// BotPoster posts through the Bot API.
type BotPoster struct {
	BotAPI *tgbotapi.BotAPI
}

func (p BotPoster) SendText(chatID int64, text string, markdown bool) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if markdown {
		msg.ParseMode = tgbotapi.ModeMarkdownV2
	}
	_, err := p.BotAPI.Send(msg)
	return err
}

// ChatLookup finds the chat a user linked with /link.
type ChatLookup interface {
	GetProfile(ctx context.Context, id string) (*models.UserProfile, error)
}

// Notifier is the Telegram notification sink. Departments post to their
// configured group chat, administrators to every admin chat, users to the
// chat linked on their profile.
type Notifier struct {
	Poster     Poster
	DeptChats  map[string]int64
	AdminChats []int64
	Profiles   ChatLookup
}

func (n *Notifier) Name() string { return "telegram" }

func (n *Notifier) Deliver(ctx context.Context, ev notify.Event, msg notify.Message) error {
	chats := n.chats(ctx, ev.Recipient)
	if len(chats) == 0 {
		return notify.ErrNoRoute
	}

	text := "*" + escapeMarkdownV2(msg.Title) + "*\n" + escapeMarkdownV2(msg.Body)
	for _, chatID := range chats {
		if err := n.Poster.SendText(chatID, text, true); err != nil {
			return fmt.Errorf("send to chat %d: %w", chatID, err)
		}
	}
	return nil
}

func (n *Notifier) chats(ctx context.Context, r notify.Recipient) []int64 {
	switch {
	case r.Dept != "":
		if id, ok := n.DeptChats[r.Dept]; ok && id != 0 {
			return []int64{id}
		}
	case r.Role == models.RoleAdmin:
		return n.AdminChats
	case r.UserID != "" && n.Profiles != nil:
		p, err := n.Profiles.GetProfile(ctx, r.UserID)
		if err == nil && p.TelegramChatID != 0 {
			return []int64{p.TelegramChatID}
		}
	}
	return nil
}

var markdownV2Escaper = strings.NewReplacer(
	"\\", "\\\\",
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	"~", "\\~",
	"`", "\\`",
	">", "\\>",
	"#", "\\#",
	"+", "\\+",
	"-", "\\-",
	"=", "\\=",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	".", "\\.",
	"!", "\\!",
)

// escapeMarkdownV2 escapes every character MarkdownV2 reserves, so user text is shown literally.
func escapeMarkdownV2(text string) string {
	return markdownV2Escaper.Replace(text)
}
