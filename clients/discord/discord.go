package discord

import (
	"fmt"
	"strings"
	"time"

	"optobot/clients/notifier"
	"optobot/config"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// DiscordClient sends bot events to a Discord channel.
// Implements notifier.Notifier interface.
type DiscordClient struct {
	logger    *zap.Logger
	session   *discordgo.Session
	channelID string
}

func NewDiscordClient(logger *zap.Logger, cfg *config.Config) *DiscordClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	channelID := cfg.Discord.ChannelID

	token := cfg.Discord.BotToken
	if token == "" {
		logger.Warn("DISCORD_BOT_TOKEN not set, Discord notifications disabled")
		return &DiscordClient{
			logger:    logger,
			channelID: channelID,
		}
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		logger.Error("failed to create discord session", zap.Error(err))
		return &DiscordClient{
			logger:    logger,
			channelID: channelID,
		}
	}

	logger.Info("discord bot initialized", zap.String("channelID", channelID))

	return &DiscordClient{
		logger:    logger,
		session:   session,
		channelID: channelID,
	}
}

// SendMessage sends a plain text message.
func (dc *DiscordClient) SendMessage(message string) {
	if dc.session == nil {
		dc.logger.Warn("discord session not initialized, skipping message")
		return
	}

	_, err := dc.session.ChannelMessageSend(dc.channelID, message)
	if err != nil {
		dc.logger.Error("failed to send discord message", zap.Error(err))
		return
	}

	dc.logger.Info("sent discord message")
}

// SendTradeNotice sends a rich embedded trade notification.
// Implements notifier.Notifier interface.
func (dc *DiscordClient) SendTradeNotice(notice notifier.TradeNotice) {
	if dc.session == nil {
		dc.logger.Warn("discord session not initialized, skipping trade notice")
		return
	}

	embed := dc.buildTradeEmbed(notice)

	_, err := dc.session.ChannelMessageSendEmbed(dc.channelID, embed)
	if err != nil {
		dc.logger.Error("failed to send discord embed", zap.Error(err))
		return
	}

	dc.logger.Info("sent discord trade notice",
		zap.String("trade", notice.TradeID),
		zap.String("asset", notice.Asset),
	)
}

// SendTournamentNotice sends a tournament entry notification.
func (dc *DiscordClient) SendTournamentNotice(notice notifier.TournamentNotice) {
	if dc.session == nil {
		dc.logger.Warn("discord session not initialized, skipping tournament notice")
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🏆 Tournament Joined",
		Description: fmt.Sprintf("**%s**", notice.Name),
		Color:       0xF1C40F,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Prize Pool", Value: fmt.Sprintf("$%.2f", notice.PrizePool), Inline: true},
			{Name: "Participants", Value: fmt.Sprintf("%d", notice.Participants), Inline: true},
		},
		Footer:    dc.footer(notice.Timestamp),
		Timestamp: timestampOrNow(notice.Timestamp).Format(time.RFC3339),
	}

	if _, err := dc.session.ChannelMessageSendEmbed(dc.channelID, embed); err != nil {
		dc.logger.Error("failed to send discord embed", zap.Error(err))
		return
	}

	dc.logger.Info("sent discord tournament notice", zap.String("tournament", notice.TournamentID))
}

func (dc *DiscordClient) buildTradeEmbed(notice notifier.TradeNotice) *discordgo.MessageEmbed {
	// Choose color based on direction, then outcome once resolved
	color := 0x2ECC71 // Green for CALL
	dirEmoji := "🟢"
	if strings.EqualFold(notice.Direction, "put") {
		color = 0xE74C3C // Red for PUT
		dirEmoji = "🔴"
	}

	title := "📈 Trade Placed"
	switch notice.Outcome {
	case "win":
		title = "✅ Trade Won"
		color = 0x2ECC71
	case "loss":
		title = "❌ Trade Lost"
		color = 0xE74C3C
	}

	modeStr := "live"
	if notice.Simulated {
		modeStr = "simulation"
	}

	fields := []*discordgo.MessageEmbedField{
		{
			Name:   "Asset",
			Value:  notice.Asset,
			Inline: true,
		},
		{
			Name:   "Direction",
			Value:  fmt.Sprintf("%s %s", dirEmoji, strings.ToUpper(notice.Direction)),
			Inline: true,
		},
		{
			Name:   "Amount",
			Value:  fmt.Sprintf("$%.2f", notice.Amount),
			Inline: true,
		},
		{
			Name:   "Confidence",
			Value:  fmt.Sprintf("%.0f%%", notice.Confidence*100),
			Inline: true,
		},
		{
			Name:   "Balance",
			Value:  fmt.Sprintf("$%.2f", notice.Balance),
			Inline: true,
		},
		{
			Name:   "Mode",
			Value:  modeStr,
			Inline: true,
		},
	}

	return &discordgo.MessageEmbed{
		Title:     title,
		Color:     color,
		Fields:    fields,
		Footer:    dc.footer(notice.Timestamp),
		Timestamp: timestampOrNow(notice.Timestamp).Format(time.RFC3339),
	}
}

func (dc *DiscordClient) footer(ts time.Time) *discordgo.MessageEmbedFooter {
	pst, _ := time.LoadLocation("America/Los_Angeles")
	t := timestampOrNow(ts)
	return &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("optobot * %s", t.In(pst).Format("1/2/2006, 3:04:05PM (MST)")),
	}
}

func timestampOrNow(ts time.Time) time.Time {
	if ts.IsZero() {
		return time.Now()
	}
	return ts
}

// Close closes the Discord session.
func (dc *DiscordClient) Close() error {
	if dc.session != nil {
		return dc.session.Close()
	}
	return nil
}
