package slack

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"github.com/zulandar/fatebot/internal/chat"
)

// --- Mock Slack client ---

type mockSlackClient struct {
	mu       sync.Mutex
	authResp *slackapi.AuthTestResponse
	authErr  error
	posted   []postedMessage
	postErr  error
	users    map[string]*slackapi.User
	userHook func() // runs before each GetUserInfo lookup
}

type postedMessage struct {
	channelID string
	options   []slackapi.MsgOption
}

func newMockSlackClient() *mockSlackClient {
	return &mockSlackClient{
		authResp: &slackapi.AuthTestResponse{UserID: "U_BOT_123", TeamID: "T_HOME"},
		users:    make(map[string]*slackapi.User),
	}
}

func (m *mockSlackClient) AuthTest() (*slackapi.AuthTestResponse, error) {
	return m.authResp, m.authErr
}

func (m *mockSlackClient) PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postErr != nil {
		return "", "", m.postErr
	}
	m.posted = append(m.posted, postedMessage{channelID: channelID, options: options})
	return channelID, "1234567890.123456", nil
}

func (m *mockSlackClient) GetUserInfo(userID string) (*slackapi.User, error) {
	m.mu.Lock()
	hook := m.userHook
	m.mu.Unlock()
	if hook != nil {
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user not found: %s", userID)
}

func (m *mockSlackClient) postedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.posted)
}

func (m *mockSlackClient) lastPosted() postedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.posted[len(m.posted)-1]
}

// --- Mock Socket Mode client ---

type mockSocketClient struct {
	events chan socketmode.Event
	mu     sync.Mutex
	acked  []socketmode.Request
	done   chan struct{}
}

func newMockSocketClient() *mockSocketClient {
	return &mockSocketClient{
		events: make(chan socketmode.Event, 100),
		done:   make(chan struct{}),
	}
}

func (m *mockSocketClient) Run() error {
	<-m.done
	return nil
}

func (m *mockSocketClient) EventsChan() chan socketmode.Event {
	return m.events
}

func (m *mockSocketClient) Ack(req socketmode.Request, payload ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = append(m.acked, req)
}

func (m *mockSocketClient) ackedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.acked)
}

// --- Helpers ---

func newTestAdapter(t *testing.T) (*Adapter, *mockSlackClient, *mockSocketClient) {
	t.Helper()
	client := newMockSlackClient()
	socket := newMockSocketClient()
	t.Cleanup(func() { close(socket.done) })

	a, err := New(AdapterOpts{
		Client:    client,
		Socket:    socket,
		ChannelID: "C_DEFAULT",
	})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return a, client, socket
}

func listen(t *testing.T, a *Adapter) <-chan chat.InboundMessage {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ch, err := a.Listen(ctx)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return ch
}

func callback(team string, inner interface{}) socketmode.Event {
	return socketmode.Event{
		Type: socketmode.EventTypeEventsAPI,
		Data: slackevents.EventsAPIEvent{
			Type:       slackevents.CallbackEvent,
			TeamID:     team,
			InnerEvent: slackevents.EventsAPIInnerEvent{Data: inner},
		},
		Request: &socketmode.Request{EnvelopeID: "env-1"},
	}
}

func receive(t *testing.T, ch <-chan chat.InboundMessage) chat.InboundMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for inbound message")
	}
	return chat.InboundMessage{}
}

func expectNone(t *testing.T, ch <-chan chat.InboundMessage) {
	t.Helper()
	select {
	case msg := <-ch:
		t.Errorf("unexpected inbound message: %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

// --- New tests ---

func TestNew_RequiresTokens(t *testing.T) {
	if _, err := New(AdapterOpts{AppToken: "xapp-test"}); err == nil {
		t.Error("expected error for missing bot token")
	}
	if _, err := New(AdapterOpts{BotToken: "xoxb-test"}); err == nil {
		t.Error("expected error for missing app token")
	}
	if _, err := New(AdapterOpts{AppToken: "xapp-test", BotToken: "xoxb-test"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// --- Connect tests ---

func TestConnect_Success(t *testing.T) {
	a, _, _ := newTestAdapter(t)
	if a.BotUserID() != "U_BOT_123" {
		t.Errorf("bot user ID = %q, want U_BOT_123", a.BotUserID())
	}
	if a.teamID != "T_HOME" {
		t.Errorf("team ID = %q, want T_HOME", a.teamID)
	}
}

func TestConnect_AuthError(t *testing.T) {
	client := newMockSlackClient()
	client.authErr = fmt.Errorf("invalid token")
	a, _ := New(AdapterOpts{Client: client, Socket: newMockSocketClient()})
	err := a.Connect(context.Background())
	if err == nil || !strings.Contains(err.Error(), "auth test") {
		t.Errorf("error = %v, want auth test error", err)
	}
}

func TestConnect_AlreadyClosed(t *testing.T) {
	a, _, _ := newTestAdapter(t)
	a.Close()
	if err := a.Connect(context.Background()); err == nil {
		t.Fatal("expected error for closed adapter")
	}
}

// --- Listen tests ---

func TestListen_NotConnected(t *testing.T) {
	a, _ := New(AdapterOpts{Client: newMockSlackClient(), Socket: newMockSocketClient()})
	if _, err := a.Listen(context.Background()); err == nil {
		t.Fatal("expected error for not connected")
	}
}

func TestListen_ReceivesMessages(t *testing.T) {
	a, client, socket := newTestAdapter(t)
	client.users["U_ALICE"] = &slackapi.User{RealName: "Alice Liddell", Profile: slackapi.UserProfile{DisplayName: "alice"}}
	ch := listen(t, a)

	socket.events <- callback("T_TEAM", &slackevents.MessageEvent{
		User:            "U_ALICE",
		Channel:         "C1",
		Text:            "!fate fudge 2",
		TimeStamp:       "1700000000.000001",
		ThreadTimeStamp: "1690000000.000001",
	})

	msg := receive(t, ch)
	if msg.Platform != "slack" {
		t.Errorf("platform = %q, want slack", msg.Platform)
	}
	if msg.GuildID != "T_TEAM" {
		t.Errorf("guild = %q, want T_TEAM", msg.GuildID)
	}
	if msg.ChannelID != "C1" || msg.ThreadID != "1690000000.000001" {
		t.Errorf("channel/thread = %q/%q", msg.ChannelID, msg.ThreadID)
	}
	if msg.UserID != "U_ALICE" || msg.UserName != "alice" {
		t.Errorf("user = %q/%q", msg.UserID, msg.UserName)
	}
	if msg.Timestamp.Unix() != 1700000000 {
		t.Errorf("timestamp = %v", msg.Timestamp)
	}
	if socket.ackedCount() != 1 {
		t.Errorf("acked %d events, want 1", socket.ackedCount())
	}
}

func TestListen_FallsBackToAuthTeam(t *testing.T) {
	a, _, socket := newTestAdapter(t)
	ch := listen(t, a)
	socket.events <- callback("", &slackevents.MessageEvent{User: "U1", Channel: "C1", Text: "hi"})
	if msg := receive(t, ch); msg.GuildID != "T_HOME" {
		t.Errorf("guild = %q, want T_HOME", msg.GuildID)
	}
}

func TestListen_Filters(t *testing.T) {
	tests := []struct {
		name  string
		inner interface{}
	}{
		{"self message", &slackevents.MessageEvent{User: "U_BOT_123", Channel: "C1", Text: "x"}},
		{"bot message", &slackevents.MessageEvent{User: "U2", BotID: "B1", Channel: "C1", Text: "x"}},
		{"edit", &slackevents.MessageEvent{User: "U2", SubType: "message_changed", Channel: "C1", Text: "x"}},
		{"message mentioning bot", &slackevents.MessageEvent{User: "U2", Channel: "C1", Text: "<@U_BOT_123> help"}},
		{"self mention", &slackevents.AppMentionEvent{User: "U_BOT_123", Channel: "C1", Text: "<@U_BOT_123>"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _, socket := newTestAdapter(t)
			ch := listen(t, a)
			socket.events <- callback("T1", tt.inner)
			expectNone(t, ch)
		})
	}
}

func TestListen_HandlesAppMention(t *testing.T) {
	a, _, socket := newTestAdapter(t)
	ch := listen(t, a)
	socket.events <- callback("T1", &slackevents.AppMentionEvent{
		User:      "U_ALICE",
		Channel:   "C1",
		Text:      "<@U_BOT_123> sheets",
		TimeStamp: "1700000000.000001",
	})
	msg := receive(t, ch)
	if msg.Text != "<@U_BOT_123> sheets" || msg.GuildID != "T1" {
		t.Errorf("msg = %+v", msg)
	}
	if msg.UserName != "U_ALICE" {
		t.Errorf("username = %q, want fallback to ID", msg.UserName)
	}
}

// --- Send tests ---

func TestSend_SimpleText(t *testing.T) {
	a, client, _ := newTestAdapter(t)
	if err := a.Send(context.Background(), chat.OutboundMessage{ChannelID: "C1", Text: "hello"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	p := client.lastPosted()
	if p.channelID != "C1" {
		t.Errorf("channel = %q, want C1", p.channelID)
	}
	if len(p.options) != 1 {
		t.Errorf("options = %d, want 1", len(p.options))
	}
}

func TestSend_DefaultChannel(t *testing.T) {
	a, client, _ := newTestAdapter(t)
	if err := a.Send(context.Background(), chat.OutboundMessage{Text: "hello"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := client.lastPosted().channelID; got != "C_DEFAULT" {
		t.Errorf("channel = %q, want C_DEFAULT", got)
	}
}

func TestSend_NoChannel(t *testing.T) {
	a, err := New(AdapterOpts{Client: newMockSlackClient(), Socket: newMockSocketClient()})
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	err = a.Send(context.Background(), chat.OutboundMessage{Text: "x"})
	if err == nil || !strings.Contains(err.Error(), "no channel") {
		t.Errorf("error = %v, want no channel", err)
	}
}

func TestSend_NotConnected(t *testing.T) {
	a, _ := New(AdapterOpts{Client: newMockSlackClient(), Socket: newMockSocketClient()})
	if err := a.Send(context.Background(), chat.OutboundMessage{ChannelID: "C1"}); err == nil {
		t.Fatal("expected error for not connected")
	}
}

func TestSend_PostError(t *testing.T) {
	a, client, _ := newTestAdapter(t)
	client.postErr = fmt.Errorf("channel_not_found")
	err := a.Send(context.Background(), chat.OutboundMessage{ChannelID: "C1", Text: "x"})
	if err == nil || !strings.Contains(err.Error(), "slack: post message") {
		t.Errorf("error = %v", err)
	}
	if client.postedCount() != 0 {
		t.Errorf("posted %d, want 0", client.postedCount())
	}
}

// --- Close tests ---

func TestClose_Idempotent(t *testing.T) {
	a, _, _ := newTestAdapter(t)
	ch := listen(t, a)
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("inbound channel still open")
	}
}

// --- helpers ---

func TestDeliver_CloseDuringUserLookup(t *testing.T) {
	a, client, _ := newTestAdapter(t)
	ch := listen(t, a)

	entered := make(chan struct{})
	release := make(chan struct{})
	client.mu.Lock()
	client.userHook = func() {
		close(entered)
		<-release
	}
	client.mu.Unlock()

	done := make(chan interface{}, 1)
	go func() {
		defer func() { done <- recover() }()
		a.deliver(context.Background(), "T1", "C1", "", "U_ALICE", "!fate help", "1700000000.000100")
	}()

	<-entered
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	close(release)

	select {
	case r := <-done:
		if r != nil {
			t.Fatalf("deliver panicked after Close: %v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("deliver did not return after Close")
	}
	if _, ok := <-ch; ok {
		t.Error("message delivered after Close")
	}
}

func TestBuildMessageOptions(t *testing.T) {
	tests := []struct {
		name string
		msg  chat.OutboundMessage
		want int
	}{
		{"text only", chat.OutboundMessage{Text: "hi"}, 1},
		{"thread", chat.OutboundMessage{Text: "hi", ThreadID: "1.2"}, 2},
		{"embeds only", chat.OutboundMessage{Embeds: []chat.Embed{{Title: "x"}}}, 1},
		{"embeds with text", chat.OutboundMessage{Text: "hi", Embeds: []chat.Embed{{Title: "x"}}}, 2},
	}
	for _, tt := range tests {
		if got := len(buildMessageOptions(tt.msg)); got != tt.want {
			t.Errorf("%s: options = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestToAttachment(t *testing.T) {
	att := toAttachment(chat.Embed{
		Title:  "Characters (1)",
		Body:   "body",
		Color:  "#5865f2",
		Fields: []chat.Field{{Name: "#1 Ada", Value: "Duelist", Short: true}},
	})
	if att.Title != "Characters (1)" || att.Text != "body" || att.Color != "#5865f2" || att.Fallback != "Characters (1)" {
		t.Errorf("attachment = %+v", att)
	}
	if len(att.Fields) != 1 || att.Fields[0].Title != "#1 Ada" || !att.Fields[0].Short {
		t.Errorf("fields = %+v", att.Fields)
	}
}

func TestParseSlackTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		zero bool
	}{
		{"1700000000.000001", 1700000000, false},
		{"1700000000", 1700000000, false},
		{"", 0, true},
		{"abc.def", 0, true},
	}
	for _, tt := range tests {
		got := parseSlackTimestamp(tt.in)
		if tt.zero {
			if !got.IsZero() {
				t.Errorf("parseSlackTimestamp(%q) = %v, want zero", tt.in, got)
			}
			continue
		}
		if got.Unix() != tt.want {
			t.Errorf("parseSlackTimestamp(%q) = %d, want %d", tt.in, got.Unix(), tt.want)
		}
	}
}

func TestResolveUserName(t *testing.T) {
	a, client, _ := newTestAdapter(t)
	client.users["U1"] = &slackapi.User{RealName: "Real One", Profile: slackapi.UserProfile{DisplayName: "disp"}}
	client.users["U2"] = &slackapi.User{RealName: "Real Two"}

	tests := []struct {
		id   string
		want string
	}{
		{"U1", "disp"},
		{"U2", "Real Two"},
		{"U3", "U3"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := a.resolveUserName(tt.id); got != tt.want {
			t.Errorf("resolveUserName(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestRetryOnRateLimit(t *testing.T) {
	calls := 0
	err := retryOnRateLimit(context.Background(), func() error {
		calls++
		if calls < 2 {
			return &slackapi.RateLimitedError{RetryAfter: time.Millisecond}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetryOnRateLimit_ExhaustsRetries(t *testing.T) {
	calls := 0
	err := retryOnRateLimit(context.Background(), func() error {
		calls++
		return &slackapi.RateLimitedError{RetryAfter: time.Millisecond}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != maxRetries+1 {
		t.Errorf("calls = %d, want %d", calls, maxRetries+1)
	}
}

func TestRetryOnRateLimit_NonRateLimitError(t *testing.T) {
	calls := 0
	err := retryOnRateLimit(context.Background(), func() error {
		calls++
		return fmt.Errorf("boom")
	})
	if err == nil || calls != 1 {
		t.Errorf("err = %v, calls = %d", err, calls)
	}
}

var _ chat.Adapter = (*Adapter)(nil)
var _ chat.BotUserIDer = (*Adapter)(nil)
