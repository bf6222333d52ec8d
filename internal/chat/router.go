package chat

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strings"
	"unicode"
)

// Router classifies inbound chat messages and routes commands to the
// command handler. Everything else is ignored.
type Router struct {
	cmdHandler *CommandHandler
	adapter    Adapter
	botUserID  string // fixed bot user ID; empty asks the adapter
	out        io.Writer
}

// RouterOpts holds parameters for creating a Router.
type RouterOpts struct {
	CmdHandler *CommandHandler
	Adapter    Adapter
	BotUserID  string    // overrides the adapter's BotUserID
	Out        io.Writer // defaults to os.Stdout
}

// NewRouter creates a Router.
func NewRouter(opts RouterOpts) (*Router, error) {
	if opts.CmdHandler == nil {
		return nil, fmt.Errorf("chat: router: command handler is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("chat: router: adapter is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Router{
		cmdHandler: opts.CmdHandler,
		adapter:    opts.Adapter,
		botUserID:  opts.BotUserID,
		out:        out,
	}, nil
}

// Handle classifies and routes a single inbound message. Routing paths:
//  1. Bot self-message → ignore
//  2. Command prefix ("!fate ...") → command handler
//  3. @mention followed by a known command → command handler
//  4. Everything else → ignore
func (r *Router) Handle(ctx context.Context, msg InboundMessage) {
	if r.isSelfMessage(msg) {
		return
	}

	text := strings.TrimSpace(msg.Text)
	prefix := r.cmdHandler.Prefix()

	if isCommand(text, prefix) {
		fmt.Fprintf(r.out, "chat: router: command [guild=%s ch=%s user=%s] %q\n",
			msg.GuildID, msg.ChannelID, msg.UserName, truncate(text, 80))
		msg.Text = text
		r.handleCommand(ctx, msg)
		return
	}
	if mentionCmd := extractMentionCommand(text, r.botID()); mentionCmd != "" {
		fmt.Fprintf(r.out, "chat: router: mention-command [guild=%s ch=%s user=%s] %q\n",
			msg.GuildID, msg.ChannelID, msg.UserName, truncate(mentionCmd, 80))
		msg.Text = prefix + " " + mentionCmd
		r.handleCommand(ctx, msg)
		return
	}
}

// handleCommand executes a command and replies in the same channel/thread,
// split into messages Discord accepts.
func (r *Router) handleCommand(ctx context.Context, msg InboundMessage) {
	response := r.cmdHandler.Execute(ctx, msg)
	for _, chunk := range chunkMessage(response, maxMessageLen) {
		if err := r.adapter.Send(ctx, OutboundMessage{
			ChannelID: msg.ChannelID,
			ThreadID:  msg.ThreadID,
			Text:      chunk,
		}); err != nil {
			log.Printf("chat: router: send command response: %v", err)
			return
		}
	}
}

// botID returns the bot's own user ID. Adapters may learn it only after
// connecting, so it is looked up per message.
func (r *Router) botID() string {
	if r.botUserID != "" {
		return r.botUserID
	}
	if bui, ok := r.adapter.(BotUserIDer); ok {
		return bui.BotUserID()
	}
	return ""
}

// isSelfMessage returns true if the message is from the bot itself.
func (r *Router) isSelfMessage(msg InboundMessage) bool {
	id := r.botID()
	return id != "" && msg.UserID == id
}

// isCommand returns true if the text starts with the command prefix.
func isCommand(text, prefix string) bool {
	return strings.HasPrefix(text, prefix+" ") || text == prefix
}

// mentionRe matches Discord (<@123>, <@!123>) and Slack (<@U0ABC>) mentions.
var mentionRe = regexp.MustCompile(`^<@!?([0-9A-Za-z]+)>`)

// knownCommands is the set of top-level commands the CommandHandler supports.
var knownCommands = map[string]bool{
	"fudge":  true,
	"xfudge": true,
	"import": true,
	"sheets": true,
	"sheet":  true,
	"help":   true,
}

// extractMentionCommand checks if the message starts with an @mention of
// botID followed by a known command. Returns the command text (without the
// mention) if so, or empty string if not. An unknown botID matches nothing.
func extractMentionCommand(text, botID string) string {
	if botID == "" {
		return ""
	}
	m := mentionRe.FindStringSubmatchIndex(text)
	if m == nil || text[m[2]:m[3]] != botID {
		return ""
	}
	stripped := strings.TrimSpace(text[m[1]:])
	if stripped == "" {
		return ""
	}
	first := stripped
	if i := strings.IndexFunc(stripped, unicode.IsSpace); i >= 0 {
		first = stripped[:i]
	}
	if knownCommands[first] {
		return stripped
	}
	return ""
}
