package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"

	"github.com/set-night/questboard/internal/config"
)

// MembershipChecker answers channel-subscription checks through the Bot API.
// The bot must be an administrator of the checked channels, otherwise
// getChatMember is rejected by Telegram.
type MembershipChecker struct {
	bot *bot.Bot
}

func NewMembershipChecker(b *bot.Bot) *MembershipChecker {
	return &MembershipChecker{bot: b}
}

func (c *MembershipChecker) IsChannelMember(ctx context.Context, telegramID int64, channelUsername string) (bool, error) {
	if channelUsername == "" {
		return false, fmt.Errorf("empty channel username")
	}
	if !strings.HasPrefix(channelUsername, "@") {
		channelUsername = "@" + channelUsername
	}

	ctx, cancel := context.WithTimeout(ctx, config.MembershipCheckTimeout)
	defer cancel()

	member, err := c.bot.GetChatMember(ctx, &bot.GetChatMemberParams{
		ChatID: channelUsername,
		UserID: telegramID,
	})
	if err != nil {
		return false, fmt.Errorf("get chat member: %w", err)
	}
	if member == nil {
		return false, nil
	}

	switch {
	case member.Left != nil, member.Banned != nil:
		return false, nil
	case member.Restricted != nil:
		return member.Restricted.IsMember, nil
	default:
		return true, nil
	}
}
