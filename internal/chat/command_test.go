package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/zulandar/fatebot/internal/character"
	"github.com/zulandar/fatebot/internal/models"
	"github.com/zulandar/fatebot/internal/sheet"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sampleCode = "Name§This is a description.⏎⏎Trust me.§0§Highest of Concepts§Afoot§Grand Ambitions§Friends in Low Places§Unceasing Bookworm§Extras§Stunts§Stubbed Toe§Languishing Life§Decimating Ennui§Empty Bank Account§2§2§§§§§Investigate§§§§Contacts§Notice§§§§§§§Will§Stealth§Craft§Rapport"

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Character{}, &models.CharacterSkill{}); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

// fixedRoller always lands on the same side index.
type fixedRoller int

func (f fixedRoller) IntN(n int) int { return int(f) % n }

const (
	rollPlus  fixedRoller = 0
	rollBlank fixedRoller = 2
)

func newTestHandler(t *testing.T, db *gorm.DB) *CommandHandler {
	t.Helper()
	ch, err := NewCommandHandler(CommandHandlerOpts{DB: db, Roller: rollBlank})
	if err != nil {
		t.Fatalf("new command handler: %v", err)
	}
	return ch
}

func guildMsg(text string) InboundMessage {
	return InboundMessage{
		Platform:  "discord",
		GuildID:   "G1",
		ChannelID: "C1",
		UserID:    "U_ALICE",
		UserName:  "alice",
		Text:      text,
	}
}

// --- NewCommandHandler tests ---

func TestNewCommandHandler_NilDB(t *testing.T) {
	_, err := NewCommandHandler(CommandHandlerOpts{})
	if err == nil {
		t.Fatal("expected error for nil db")
	}
}

func TestNewCommandHandler_Defaults(t *testing.T) {
	ch, err := NewCommandHandler(CommandHandlerOpts{DB: openTestDB(t)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.Prefix() != DefaultPrefix {
		t.Errorf("Prefix() = %q, want %q", ch.Prefix(), DefaultPrefix)
	}
	if ch.maxDice != 50 {
		t.Errorf("maxDice = %d, want 50", ch.maxDice)
	}
	if ch.roller == nil {
		t.Error("expected default roller")
	}
}

// --- parseCommand tests ---

func TestParseCommand(t *testing.T) {
	ch := newTestHandler(t, openTestDB(t))
	tests := []struct {
		input    string
		wantName string
		wantRest string
	}{
		{"!fate", "", ""},
		{"!fate ", "", ""},
		{"!fate help", "help", ""},
		{"!fate fudge 3", "fudge", "3"},
		{"  !fate xfudge 8 -2  ", "xfudge", "8 -2"},
		{"!fate import A  B§C", "import", "A  B§C"},
		{"!fate import\nA§B", "import", "A§B"},
		{"!fate import\u00a0A§B", "import", "A§B"},
		{"!fate import\u3000A§B", "import", "A§B"},
		{"!fate sheets\u2003mine", "sheets", "mine"},
	}
	for _, tt := range tests {
		name, rest := ch.parseCommand(tt.input)
		if name != tt.wantName || rest != tt.wantRest {
			t.Errorf("parseCommand(%q) = (%q, %q), want (%q, %q)",
				tt.input, name, rest, tt.wantName, tt.wantRest)
		}
	}
}

// --- Execute tests ---

func TestExecute_Help(t *testing.T) {
	ch := newTestHandler(t, openTestDB(t))
	for _, text := range []string{"!fate", "!fate help"} {
		got := ch.Execute(context.Background(), guildMsg(text))
		if !strings.Contains(got, "Fate Commands") {
			t.Errorf("Execute(%q) = %q, want help text", text, got)
		}
	}
}

func TestExecute_Unknown(t *testing.T) {
	ch := newTestHandler(t, openTestDB(t))
	got := ch.Execute(context.Background(), guildMsg("!fate dance"))
	if !strings.HasPrefix(got, "Unknown command: `dance`") {
		t.Errorf("got %q", got)
	}
}

func TestExecute_Fudge(t *testing.T) {
	ch := newTestHandler(t, openTestDB(t))
	got := ch.Execute(context.Background(), guildMsg("!fate fudge 2"))
	want := "Result: **Fair (2 = 2 + 0)** [ ○ , ○ , ○ , ○ ]"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExecute_FudgeNegative(t *testing.T) {
	ch := newTestHandler(t, openTestDB(t))
	got := ch.Execute(context.Background(), guildMsg("!fate fudge -1"))
	if !strings.HasPrefix(got, "Result: **Poor (-1 = -1 + 0)**") {
		t.Errorf("got %q", got)
	}
}

func TestExecute_FudgeClampsStat(t *testing.T) {
	ch := newTestHandler(t, openTestDB(t))
	got := ch.Execute(context.Background(), guildMsg("!fate fudge 127"))
	if !strings.Contains(got, "(123 = 123 + 0)") {
		t.Errorf("got %q, want stat clamped to 123", got)
	}
}

func TestExecute_FudgeUsage(t *testing.T) {
	ch := newTestHandler(t, openTestDB(t))
	tests := []struct {
		text string
		want string
	}{
		{"!fate fudge", "Usage: `!fate fudge <stat>`"},
		{"!fate fudge 1 2", "Usage: `!fate fudge <stat>`"},
		{"!fate fudge abc", `Invalid stat "abc"`},
		{"!fate fudge 200", `Invalid stat "200"`},
	}
	for _, tt := range tests {
		got := ch.Execute(context.Background(), guildMsg(tt.text))
		if !strings.Contains(got, tt.want) {
			t.Errorf("Execute(%q) = %q, want to contain %q", tt.text, got, tt.want)
		}
	}
}

func TestExecute_XFudge(t *testing.T) {
	ch, err := NewCommandHandler(CommandHandlerOpts{DB: openTestDB(t), Roller: rollPlus})
	if err != nil {
		t.Fatal(err)
	}
	got := ch.Execute(context.Background(), guildMsg("!fate xfudge 2 1"))
	want := "Result: **Good (3 = 1 + 2)** [ + , + ]"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExecute_XFudgeCapsDice(t *testing.T) {
	ch, err := NewCommandHandler(CommandHandlerOpts{DB: openTestDB(t), MaxDice: 6, Roller: rollBlank})
	if err != nil {
		t.Fatal(err)
	}
	got := ch.Execute(context.Background(), guildMsg("!fate xfudge 200 0"))
	if n := strings.Count(got, "○"); n != 6 {
		t.Errorf("rolled %d dice, want 6: %q", n, got)
	}
}

func TestExecute_XFudgeUsage(t *testing.T) {
	ch := newTestHandler(t, openTestDB(t))
	tests := []struct {
		text string
		want string
	}{
		{"!fate xfudge 4", "Usage: `!fate xfudge <dice> <stat>`"},
		{"!fate xfudge -1 2", `Invalid dice count "-1"`},
		{"!fate xfudge 256 2", `Invalid dice count "256"`},
		{"!fate xfudge 4 x", `Invalid stat "x"`},
	}
	for _, tt := range tests {
		got := ch.Execute(context.Background(), guildMsg(tt.text))
		if !strings.Contains(got, tt.want) {
			t.Errorf("Execute(%q) = %q, want to contain %q", tt.text, got, tt.want)
		}
	}
}

func TestExecute_Import(t *testing.T) {
	db := openTestDB(t)
	ch := newTestHandler(t, db)

	got := ch.Execute(context.Background(), guildMsg("!fate import "+sampleCode))
	if !strings.HasPrefix(got, "Imported **Name** as #") {
		t.Fatalf("got %q", got)
	}
	if !strings.Contains(got, "(7 skills)") {
		t.Errorf("got %q, want 7 skills", got)
	}

	chars, err := character.List(context.Background(), db, "G1", "U_ALICE")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(chars) != 1 || chars[0].Name != "Name" {
		t.Errorf("stored characters = %+v", chars)
	}
}

func TestExecute_ImportKeepsInnerWhitespace(t *testing.T) {
	db := openTestDB(t)
	ch := newTestHandler(t, db)

	ch.Execute(context.Background(), guildMsg("!fate import Sir  Robin§a  b"))
	chars, err := character.List(context.Background(), db, "G1", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(chars) != 1 || chars[0].Name != "Sir  Robin" || chars[0].Description != "a  b" {
		t.Errorf("stored characters = %+v", chars)
	}
}

func TestExecute_ImportUsage(t *testing.T) {
	ch := newTestHandler(t, openTestDB(t))
	got := ch.Execute(context.Background(), guildMsg("!fate import"))
	if !strings.HasPrefix(got, "Usage: `!fate import") {
		t.Errorf("got %q", got)
	}
}

func TestExecute_ImportRequiresGuild(t *testing.T) {
	ch := newTestHandler(t, openTestDB(t))
	msg := guildMsg("!fate import Ada")
	msg.GuildID = ""
	got := ch.Execute(context.Background(), msg)
	if !strings.Contains(got, "inside a server") {
		t.Errorf("got %q", got)
	}
}

func TestExecute_ImportStorageError(t *testing.T) {
	db := openTestDB(t)
	ch := newTestHandler(t, db)
	if err := db.Migrator().DropTable(&models.CharacterSkill{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	got := ch.Execute(context.Background(), guildMsg("!fate import "+sampleCode))
	if !strings.HasPrefix(got, "Error importing character: character: insert skill") {
		t.Errorf("got %q", got)
	}
	var n int64
	db.Model(&models.Character{}).Count(&n)
	if n != 0 {
		t.Errorf("character rows = %d, want 0 after rollback", n)
	}
}

func TestExecute_Sheets(t *testing.T) {
	db := openTestDB(t)
	ch := newTestHandler(t, db)
	ctx := context.Background()
	for _, p := range []struct{ code, owner string }{
		{"Ada", "U_ALICE"},
		{"Bo", "U_BOB"},
	} {
		if _, err := character.Persist(ctx, db, sheet.Decode(p.code), "G1", p.owner); err != nil {
			t.Fatalf("Persist: %v", err)
		}
	}

	all := ch.Execute(ctx, guildMsg("!fate sheets"))
	if !strings.HasPrefix(all, "**Characters** (2)") || !strings.Contains(all, "Ada") || !strings.Contains(all, "Bo") {
		t.Errorf("sheets = %q", all)
	}

	mine := ch.Execute(ctx, guildMsg("!fate sheets mine"))
	if !strings.HasPrefix(mine, "**Characters** (1)") || strings.Contains(mine, "Bo") {
		t.Errorf("sheets mine = %q", mine)
	}
}

func TestExecute_SheetsEmpty(t *testing.T) {
	ch := newTestHandler(t, openTestDB(t))
	if got := ch.Execute(context.Background(), guildMsg("!fate sheets")); got != "No characters found." {
		t.Errorf("got %q", got)
	}
}

func TestExecute_Sheet(t *testing.T) {
	db := openTestDB(t)
	ch := newTestHandler(t, db)
	id, err := character.Persist(context.Background(), db, sheet.Decode(sampleCode), "G1", "U_ALICE")
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}

	got := ch.Execute(context.Background(), guildMsg("!fate sheet #"+uintStr(id)))
	for _, want := range []string{
		"**#" + uintStr(id) + " Name**",
		"This is a description.\n\nTrust me.",
		"+4 Great: Investigate",
		"+3 Good: Contacts, Notice",
		"+1 Average: Craft, Rapport, Stealth, Will",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("sheet output missing %q:\n%s", want, got)
		}
	}
}

func TestExecute_SheetNotFound(t *testing.T) {
	ch := newTestHandler(t, openTestDB(t))
	tests := []struct {
		text string
		want string
	}{
		{"!fate sheet", "Usage: `!fate sheet <id>`"},
		{"!fate sheet abc", `Invalid character id "abc"`},
		{"!fate sheet 99", "Character #99 not found."},
	}
	for _, tt := range tests {
		if got := ch.Execute(context.Background(), guildMsg(tt.text)); got != tt.want {
			t.Errorf("Execute(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestExecute_SheetOtherGuild(t *testing.T) {
	db := openTestDB(t)
	ch := newTestHandler(t, db)
	id, err := character.Persist(context.Background(), db, sheet.Decode("Ada"), "G2", "U_ALICE")
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	got := ch.Execute(context.Background(), guildMsg("!fate sheet "+uintStr(id)))
	if !strings.HasSuffix(got, "not found.") {
		t.Errorf("got %q, want not found", got)
	}
}

func TestExecute_CustomPrefix(t *testing.T) {
	ch, err := NewCommandHandler(CommandHandlerOpts{DB: openTestDB(t), Prefix: "!f", Roller: rollBlank})
	if err != nil {
		t.Fatal(err)
	}
	got := ch.Execute(context.Background(), guildMsg("!f fudge 0"))
	if !strings.HasPrefix(got, "Result: **Mediocre") {
		t.Errorf("got %q", got)
	}
	if help := ch.Execute(context.Background(), guildMsg("!f")); !strings.Contains(help, "`!f fudge <stat>`") {
		t.Errorf("help = %q, want custom prefix", help)
	}
}
