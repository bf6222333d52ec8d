package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zulandar/fatebot/internal/character"
	"github.com/zulandar/fatebot/internal/dice"
	"github.com/zulandar/fatebot/internal/sheet"
	"gorm.io/gorm"
)

// DefaultPrefix triggers command handling when no prefix is configured.
const DefaultPrefix = "!fate"

// CommandHandler answers prefixed chat commands.
type CommandHandler struct {
	db      *gorm.DB
	prefix  string
	maxDice int
	roller  dice.Roller
}

// CommandHandlerOpts holds parameters for creating a CommandHandler.
type CommandHandlerOpts struct {
	DB      *gorm.DB
	Prefix  string      // defaults to DefaultPrefix
	MaxDice int         // xfudge cap; defaults to dice.DefaultMaxDice
	Roller  dice.Roller // defaults to dice.DefaultRoller
}

// NewCommandHandler creates a CommandHandler.
func NewCommandHandler(opts CommandHandlerOpts) (*CommandHandler, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("chat: command handler: db is required")
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	maxDice := opts.MaxDice
	if maxDice <= 0 {
		maxDice = dice.DefaultMaxDice
	}
	roller := opts.Roller
	if roller == nil {
		roller = dice.DefaultRoller
	}
	return &CommandHandler{
		db:      opts.DB,
		prefix:  prefix,
		maxDice: maxDice,
		roller:  roller,
	}, nil
}

// Prefix returns the command prefix, e.g. "!fate".
func (ch *CommandHandler) Prefix() string { return ch.prefix }

// Execute parses and executes a prefixed command from msg.Text. It returns
// the response text to send back to the chat channel. Failures are reported
// in the response; Execute never returns an empty string.
func (ch *CommandHandler) Execute(ctx context.Context, msg InboundMessage) string {
	name, rest := ch.parseCommand(msg.Text)
	switch name {
	case "", "help":
		return ch.helpText()
	case "fudge":
		return ch.cmdFudge(strings.Fields(rest))
	case "xfudge":
		return ch.cmdXFudge(strings.Fields(rest))
	case "import":
		return ch.cmdImport(ctx, msg, rest)
	case "sheets":
		return ch.cmdSheets(ctx, msg, strings.Fields(rest))
	case "sheet":
		return ch.cmdSheet(ctx, msg, strings.Fields(rest))
	default:
		return fmt.Sprintf("Unknown command: `%s`\n\n%s", name, ch.helpText())
	}
}

// parseCommand strips the prefix and splits off the command name. rest is
// returned verbatim apart from the single separating whitespace character,
// so character codes keep their inner whitespace.
func (ch *CommandHandler) parseCommand(text string) (name, rest string) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, ch.prefix)
	text = strings.TrimLeft(text, " \t")
	if text == "" {
		return "", ""
	}
	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return text, ""
	}
	_, size := utf8.DecodeRuneInString(text[i:])
	return text[:i], text[i+size:]
}

// cmdFudge rolls four dice against a stat.
func (ch *CommandHandler) cmdFudge(args []string) string {
	usage := fmt.Sprintf("Usage: `%s fudge <stat>`", ch.prefix)
	if len(args) != 1 {
		return usage
	}
	stat, err := parseStat(args[0])
	if err != nil {
		return fmt.Sprintf("Invalid stat %q: %v\n%s", args[0], err, usage)
	}
	return dice.RollStat(ch.roller, dice.DefaultDice, ch.maxDice, stat)
}

// cmdXFudge rolls a chosen number of dice against a stat.
func (ch *CommandHandler) cmdXFudge(args []string) string {
	usage := fmt.Sprintf("Usage: `%s xfudge <dice> <stat>`", ch.prefix)
	if len(args) != 2 {
		return usage
	}
	n, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil {
		return fmt.Sprintf("Invalid dice count %q: must be 0-255\n%s", args[0], usage)
	}
	stat, err := parseStat(args[1])
	if err != nil {
		return fmt.Sprintf("Invalid stat %q: %v\n%s", args[1], err, usage)
	}
	return dice.RollStat(ch.roller, int(n), ch.maxDice, stat)
}

// parseStat parses a signed 8-bit stat modifier.
func parseStat(s string) (int, error) {
	v, err := strconv.ParseInt(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("must be a whole number from -128 to 127")
	}
	return int(v), nil
}

// cmdImport decodes a character code and stores it for the sender.
func (ch *CommandHandler) cmdImport(ctx context.Context, msg InboundMessage, code string) string {
	if strings.TrimSpace(code) == "" {
		return fmt.Sprintf("Usage: `%s import <character code>`", ch.prefix)
	}
	if msg.GuildID == "" {
		return "Characters can only be imported inside a server."
	}
	s := sheet.Decode(code)
	id, err := character.Persist(ctx, ch.db, s, msg.GuildID, msg.UserID)
	if err != nil {
		return fmt.Sprintf("Error importing character: %v", err)
	}
	return fmt.Sprintf("Imported **%s** as #%d (%d skills).", displayName(s.Name), id, s.SkillCount())
}

// cmdSheets lists the guild's characters. "mine" limits the list to the sender's.
func (ch *CommandHandler) cmdSheets(ctx context.Context, msg InboundMessage, args []string) string {
	if msg.GuildID == "" {
		return "Characters are only available inside a server."
	}
	owner := ""
	if len(args) > 0 && args[0] == "mine" {
		owner = msg.UserID
	}
	chars, err := character.List(ctx, ch.db, msg.GuildID, owner)
	if err != nil {
		return fmt.Sprintf("Error listing characters: %v", err)
	}
	if len(chars) == 0 {
		return "No characters found."
	}
	return formatRoster(chars)
}

// cmdSheet shows one character.
func (ch *CommandHandler) cmdSheet(ctx context.Context, msg InboundMessage, args []string) string {
	if len(args) == 0 {
		return fmt.Sprintf("Usage: `%s sheet <id>`", ch.prefix)
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil {
		return fmt.Sprintf("Invalid character id %q", args[0])
	}
	c, err := character.Get(ctx, ch.db, msg.GuildID, uint(id))
	if errors.Is(err, character.ErrNotFound) {
		return fmt.Sprintf("Character #%d not found.", id)
	}
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return formatSheet(c)
}

// helpText returns usage information for all commands.
func (ch *CommandHandler) helpText() string {
	p := ch.prefix
	return "**Fate Commands**\n" +
		"`" + p + " fudge <stat>` - Roll 4dF + stat\n" +
		"`" + p + " xfudge <dice> <stat>` - Roll N fudge dice + stat\n" +
		"`" + p + " import <code>` - Import a character sheet\n" +
		"`" + p + " sheets [mine]` - List characters in this server\n" +
		"`" + p + " sheet <id>` - Show a character\n" +
		"`" + p + " help` - This message"
}
