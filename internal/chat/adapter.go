// Package chat connects fatebot to chat platforms (Discord, Slack) and
// answers dice and character commands.
package chat

import (
	"context"
	"time"
)

// Adapter is the interface that platform-specific implementations must satisfy.
type Adapter interface {
	// Connect establishes a connection to the chat platform.
	Connect(ctx context.Context) error

	// Listen returns a channel of inbound messages from the platform.
	// The channel is closed when the adapter is closed. Listen must only be
	// called after Connect.
	Listen(ctx context.Context) (<-chan InboundMessage, error)

	// Send delivers an outbound message to the platform.
	Send(ctx context.Context, msg OutboundMessage) error

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// InboundMessage represents a message received from the chat platform.
type InboundMessage struct {
	Platform  string    // e.g. "slack", "discord"
	GuildID   string    // Discord guild or Slack team; characters are scoped to it
	ChannelID string    // platform-specific channel identifier
	ThreadID  string    // thread/conversation identifier (empty if top-level)
	UserID    string    // platform-specific user identifier
	UserName  string    // human-readable username
	Text      string    // raw message text
	Timestamp time.Time // when the message was sent
}

// OutboundMessage represents a message to be sent to the chat platform.
type OutboundMessage struct {
	ChannelID string  // target channel
	ThreadID  string  // thread to reply in (empty for new top-level message)
	Text      string  // message text (platform-native formatting)
	Embeds    []Embed // structured attachments
}

// Embed is a titled block rendered as a Discord embed or Slack attachment.
type Embed struct {
	Title  string
	Body   string
	Color  string // hex color hint, e.g. "#36a64f"
	Fields []Field
}

// Field is a key-value pair displayed in an embed.
type Field struct {
	Name  string
	Value string
	Short bool // hint: render side-by-side with another field
}

// ColorRoster is the sidebar color of roster posts.
const ColorRoster = "#5865f2"

// BotUserIDer is an optional interface that adapters can implement to
// expose the bot's own user ID. This enables self-message filtering.
type BotUserIDer interface {
	BotUserID() string
}
