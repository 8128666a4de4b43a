// Package telegram connects staff Telegram chats to the complaint desk: a
// notification sink that posts to department and admin chats, and a small
// command bot for linking a chat and reading stats.
package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"kiitcms/backend/internal/access"
	"kiitcms/backend/internal/apperr"
	"kiitcms/backend/internal/localization"
	"kiitcms/backend/internal/logger"
	"kiitcms/backend/internal/models"
	"kiitcms/backend/internal/query"
	"kiitcms/backend/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotStore is the part of the store the bot needs.
type BotStore interface {
	GetProfile(ctx context.Context, id string) (*models.UserProfile, error)
	GetProfileByEmail(ctx context.Context, email string) (*models.UserProfile, error)
	GetProfileByTelegramChat(ctx context.Context, chatID int64) (*models.UserProfile, error)
	LinkTelegramChat(ctx context.Context, email string, chatID int64) (*models.UserProfile, error)
}

// StatsSource computes scope-wide counts.
type StatsSource interface {
	Compute(ctx context.Context, rc access.RoleContext) (query.Stats, error)
}

// BotService answers staff commands.
type BotService struct {
	BotAPI    *tgbotapi.BotAPI
	Poster    Poster
	Store     BotStore
	Resolver  *access.Resolver
	Stats     StatsSource
	Localizer *localization.Localizer
	Lang      string
}

// NewBotService authorizes against the Bot API with token.
func NewBotService(token string, store BotStore, stats StatsSource) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	logger.Info().Str("account", bot.Self.UserName).Msg("telegram bot authorized")

	return &BotService{
		BotAPI:    bot,
		Poster:    BotPoster{BotAPI: bot},
		Store:     store,
		Resolver:  access.NewResolver(store),
		Stats:     stats,
		Localizer: localization.Default(),
		Lang:      localization.DefaultLanguage,
	}, nil
}

// Run long-polls for updates until ctx is done.
func (s *BotService) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.BotAPI.GetUpdatesChan(u)
	defer s.BotAPI.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			msg := update.Message
			if msg == nil || !msg.IsCommand() {
				continue
			}
			s.HandleCommand(ctx, msg.Chat.ID, msg.Command(), msg.CommandArguments())
		}
	}
}

// HandleCommand answers one command sent from chatID.
func (s *BotService) HandleCommand(ctx context.Context, chatID int64, command, args string) {
	var reply string
	switch command {
	case "start", "help":
		reply = s.text("bot_help", nil)
	case "link":
		reply = s.link(ctx, chatID, strings.TrimSpace(args))
	case "stats":
		reply = s.stats(ctx, chatID)
	default:
		reply = s.text("bot_unknown_command", nil)
	}

	if err := s.Poster.SendText(chatID, reply, false); err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Str("command", command).Msg("telegram reply failed")
	}
}

func (s *BotService) link(ctx context.Context, chatID int64, email string) string {
	if email == "" || !strings.Contains(email, "@") {
		return s.text("bot_link_usage", nil)
	}
	email = strings.ToLower(email)

	p, err := s.Store.GetProfileByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return s.text("bot_link_unknown", map[string]string{"email": email})
	}
	if err != nil {
		logger.Error().Err(err).Str("email", email).Msg("telegram link lookup failed")
		return s.text("bot_error", nil)
	}
	if !p.Role.IsStaff() {
		return s.text("bot_link_not_staff", nil)
	}

	if _, err := s.Store.LinkTelegramChat(ctx, email, chatID); err != nil {
		logger.Error().Err(err).Str("email", email).Msg("telegram link failed")
		return s.text("bot_error", nil)
	}
	logger.Info().Str("email", email).Int64("chat_id", chatID).Msg("telegram chat linked")
	return s.text("bot_link_ok", map[string]string{"email": email, "role": string(p.Role)})
}

func (s *BotService) stats(ctx context.Context, chatID int64) string {
	p, err := s.Store.GetProfileByTelegramChat(ctx, chatID)
	if errors.Is(err, storage.ErrNotFound) {
		return s.text("bot_not_linked", nil)
	}
	if err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("telegram profile lookup failed")
		return s.text("bot_error", nil)
	}
	if !p.Role.IsStaff() {
		return s.text("bot_link_not_staff", nil)
	}

	rc, err := s.Resolver.Resolve(ctx, access.Identity{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		Role:        p.Role,
		Verified:    true,
	})
	if err != nil {
		return s.text("bot_stats_not_ready", nil)
	}

	st, err := s.Stats.Compute(ctx, rc)
	if errors.Is(err, apperr.ErrNotReady) {
		return s.text("bot_stats_not_ready", nil)
	}
	if err != nil {
		return s.text("bot_error", nil)
	}

	scope := "All departments"
	if rc.Role == models.RoleDepartment {
		scope = rc.Dept.Name
	}
	return s.text("bot_stats", map[string]string{
		"scope":    scope,
		"total":    strconv.FormatInt(st.Total, 10),
		"pending":  strconv.FormatInt(st.Pending, 10),
		"resolved": strconv.FormatInt(st.Resolved, 10),
	})
}

func (s *BotService) text(key string, vars map[string]string) string {
	return s.Localizer.Format(s.Lang, key, vars)
}
