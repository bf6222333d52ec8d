// Package slack implements the chat Adapter for Slack using Socket Mode.
package slack

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"github.com/zulandar/fatebot/internal/chat"
)

const (
	// maxRetries bounds how often a rate-limited call is retried.
	maxRetries = 3
	// baseBackoff is the first Socket Mode reconnect delay.
	baseBackoff = 2 * time.Second
	// maxBackoff caps the reconnect delay.
	maxBackoff = 2 * time.Minute
	// maxReconnectAttempts is how many Socket Mode runs are tried in total.
	maxReconnectAttempts = 10
)

// slackClient is the subset of the Web API the adapter calls.
type slackClient interface {
	AuthTest() (*slackapi.AuthTestResponse, error)
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
	GetUserInfo(userID string) (*slackapi.User, error)
}

// socketClient is the subset of *socketmode.Client the adapter calls.
type socketClient interface {
	Run() error
	EventsChan() chan socketmode.Event
	Ack(req socketmode.Request, payload ...interface{})
}

// realSocketClient forwards to a live *socketmode.Client.
type realSocketClient struct {
	client *socketmode.Client
}

func (r *realSocketClient) Run() error                        { return r.client.Run() }
func (r *realSocketClient) EventsChan() chan socketmode.Event { return r.client.Events }
func (r *realSocketClient) Ack(req socketmode.Request, payload ...interface{}) {
	r.client.Ack(req, payload...)
}

// Adapter implements chat.Adapter for Slack Socket Mode. The workspace
// (team) ID is reported as the message's guild.
type Adapter struct {
	client       slackClient
	socket       socketClient
	botUserID    string
	teamID       string // workspace of the bot token, fallback guild
	appToken     string
	botToken     string
	channelID    string // default channel for messages without explicit channel
	mu           sync.Mutex
	connected    bool
	closed       bool
	inbound      chan chat.InboundMessage
	done         chan struct{} // closed by Close before inbound
	sendMu       sync.RWMutex  // held shared by senders, exclusively to close inbound
	cancelFunc   context.CancelFunc
	baseBackoff  time.Duration
	maxBackoff   time.Duration
	maxReconnect int
}

// AdapterOpts configures New.
type AdapterOpts struct {
	AppToken  string // xapp-... Slack app-level token for Socket Mode
	BotToken  string // xoxb-... Slack bot token
	ChannelID string // default channel to post to
	// Client and Socket replace the network clients in tests.
	Client slackClient
	Socket socketClient
}

// New returns an unconnected Slack adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if opts.Socket == nil && opts.AppToken == "" {
		return nil, fmt.Errorf("slack: app token is required for socket mode")
	}
	return &Adapter{
		client:       opts.Client,
		socket:       opts.Socket,
		appToken:     opts.AppToken,
		botToken:     opts.BotToken,
		channelID:    opts.ChannelID,
		inbound:      make(chan chat.InboundMessage, 100),
		done:         make(chan struct{}),
		baseBackoff:  baseBackoff,
		maxBackoff:   maxBackoff,
		maxReconnect: maxReconnectAttempts,
	}, nil
}

// Connect authenticates the bot token and prepares the Socket Mode client.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("slack: adapter already closed")
	}
	if a.connected {
		return nil
	}

	if a.client == nil {
		api := slackapi.New(a.botToken, slackapi.OptionAppLevelToken(a.appToken))
		a.client = api
		if a.socket == nil {
			a.socket = &realSocketClient{client: socketmode.New(api)}
		}
	}

	auth, err := a.client.AuthTest()
	if err != nil {
		return fmt.Errorf("slack: auth test: %w", err)
	}
	a.botUserID = auth.UserID
	a.teamID = auth.TeamID

	a.connected = true
	return nil
}

// Listen starts the Socket Mode event pump in a background goroutine and
// returns the inbound channel. Must be called after Connect.
func (a *Adapter) Listen(ctx context.Context) (<-chan chat.InboundMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, fmt.Errorf("slack: not connected")
	}

	listenCtx, cancel := context.WithCancel(ctx)
	a.cancelFunc = cancel

	go a.runWithReconnect(listenCtx)
	go a.pumpEvents(listenCtx)

	return a.inbound, nil
}

// Send delivers a message to Slack. Embeds become attachments.
func (a *Adapter) Send(ctx context.Context, msg chat.OutboundMessage) error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return fmt.Errorf("slack: not connected")
	}
	a.mu.Unlock()

	channelID := msg.ChannelID
	if channelID == "" {
		channelID = a.channelID
	}
	if channelID == "" {
		return fmt.Errorf("slack: no channel specified")
	}

	options := buildMessageOptions(msg)
	err := retryOnRateLimit(ctx, func() error {
		_, _, postErr := a.client.PostMessage(channelID, options...)
		return postErr
	})
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}

// Close stops Socket Mode and closes the inbound channel.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.connected = false
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	close(a.done)
	a.mu.Unlock()

	a.sendMu.Lock()
	close(a.inbound)
	a.sendMu.Unlock()
	return nil
}

// BotUserID is known once Connect has run AuthTest.
func (a *Adapter) BotUserID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.botUserID
}

// runWithReconnect runs the Socket Mode client and retries with exponential
// backoff when Run returns an error.
func (a *Adapter) runWithReconnect(ctx context.Context) {
	for attempt := 0; attempt < a.maxReconnect; attempt++ {
		err := a.socket.Run()
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * a.baseBackoff
		if wait > a.maxBackoff {
			wait = a.maxBackoff
		}
		log.Printf("slack: socket mode disconnected (attempt %d/%d): %v, reconnecting in %v",
			attempt+1, a.maxReconnect, err, wait)

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
	log.Printf("slack: socket mode exhausted %d reconnection attempts, giving up", a.maxReconnect)
}

// pumpEvents drains Socket Mode events until ctx is done.
func (a *Adapter) pumpEvents(ctx context.Context) {
	events := a.socket.EventsChan()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			a.handleSocketEvent(ctx, evt)
		}
	}
}

// handleSocketEvent acks and dispatches one Socket Mode event.
func (a *Adapter) handleSocketEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeEventsAPI:
		eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		if evt.Request != nil {
			a.socket.Ack(*evt.Request)
		}
		a.handleEventsAPI(ctx, eventsAPIEvent)

	case socketmode.EventTypeConnecting:
		log.Printf("slack: connecting to Socket Mode...")

	case socketmode.EventTypeConnected:
		log.Printf("slack: connected to Socket Mode")

	case socketmode.EventTypeConnectionError:
		log.Printf("slack: connection error: %v", evt.Data)

	case socketmode.EventTypeDisconnect:
		log.Printf("slack: server requested disconnect, will reconnect")
	}
}

// handleEventsAPI processes Events API callbacks. Plain messages and
// @mentions are both forwarded; the router decides what to answer.
func (a *Adapter) handleEventsAPI(ctx context.Context, event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	teamID := event.TeamID
	if teamID == "" {
		teamID = a.teamID
	}
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		// Edits, deletes and bot posts arrive as subtypes or carry a bot ID.
		if ev.BotID != "" || ev.SubType != "" {
			return
		}
		// Mentions of the bot also arrive as app_mention events.
		if a.mentionsBot(ev.Text) {
			return
		}
		a.deliver(ctx, teamID, ev.Channel, ev.ThreadTimeStamp, ev.User, ev.Text, ev.TimeStamp)
	case *slackevents.AppMentionEvent:
		a.deliver(ctx, teamID, ev.Channel, ev.ThreadTimeStamp, ev.User, ev.Text, ev.TimeStamp)
	}
}

// mentionsBot reports whether text contains an @mention of the bot.
func (a *Adapter) mentionsBot(text string) bool {
	a.mu.Lock()
	botID := a.botUserID
	a.mu.Unlock()
	return botID != "" && strings.Contains(text, "<@"+botID+">")
}

// deliver pushes one inbound message unless it came from the bot itself.
func (a *Adapter) deliver(ctx context.Context, teamID, channel, thread, user, text, ts string) {
	a.mu.Lock()
	botID, closed := a.botUserID, a.closed
	a.mu.Unlock()
	if closed || user == botID {
		return
	}

	msg := chat.InboundMessage{
		Platform:  "slack",
		GuildID:   teamID,
		ChannelID: channel,
		ThreadID:  thread,
		UserID:    user,
		UserName:  a.resolveUserName(user),
		Text:      text,
		Timestamp: parseSlackTimestamp(ts),
	}
	a.sendMu.RLock()
	defer a.sendMu.RUnlock()
	select {
	case <-a.done:
		return
	default:
	}
	select {
	case a.inbound <- msg:
	case <-a.done:
	case <-ctx.Done():
	}
}

// resolveUserName prefers the display name, then the real name, then the id.
func (a *Adapter) resolveUserName(userID string) string {
	if userID == "" {
		return ""
	}
	user, err := a.client.GetUserInfo(userID)
	if err != nil {
		return userID
	}
	if user.Profile.DisplayName != "" {
		return user.Profile.DisplayName
	}
	if user.RealName != "" {
		return user.RealName
	}
	return userID
}

// buildMessageOptions maps an OutboundMessage onto chat.postMessage options.
func buildMessageOptions(msg chat.OutboundMessage) []slackapi.MsgOption {
	var options []slackapi.MsgOption
	if msg.ThreadID != "" {
		options = append(options, slackapi.MsgOptionTS(msg.ThreadID))
	}

	if len(msg.Embeds) > 0 {
		var attachments []slackapi.Attachment
		for _, e := range msg.Embeds {
			attachments = append(attachments, toAttachment(e))
		}
		options = append(options, slackapi.MsgOptionAttachments(attachments...))
		if msg.Text != "" {
			options = append(options, slackapi.MsgOptionText(msg.Text, false))
		}
	} else {
		options = append(options, slackapi.MsgOptionText(msg.Text, false))
	}
	return options
}

// toAttachment converts a chat.Embed to a Slack attachment.
func toAttachment(e chat.Embed) slackapi.Attachment {
	att := slackapi.Attachment{
		Title:    e.Title,
		Text:     e.Body,
		Color:    e.Color,
		Fallback: e.Title,
	}
	for _, f := range e.Fields {
		att.Fields = append(att.Fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: f.Short,
		})
	}
	return att
}

// retryOnRateLimit retries fn while Slack reports a rate limit, waiting
// RetryAfter when given. It gives up when ctx is done.
func retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var rle *slackapi.RateLimitedError
		if !errors.As(err, &rle) {
			return err
		}
		if attempt == maxRetries {
			return err
		}

		wait := rle.RetryAfter
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * time.Second
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// parseSlackTimestamp converts a Slack timestamp (e.g. "1234567890.123456")
// to a time.Time.
func parseSlackTimestamp(ts string) time.Time {
	sec, _, _ := strings.Cut(ts, ".")
	v, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(v, 0)
}
