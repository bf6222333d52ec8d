package chat

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/zulandar/fatebot/internal/character"
	"github.com/zulandar/fatebot/internal/config"
	"github.com/zulandar/fatebot/internal/dice"
	"gorm.io/gorm"
)

// Daemon is the main chat bot process. It connects to a chat platform via
// an Adapter, pumps inbound messages to the router, and posts scheduled
// rosters.
type Daemon struct {
	db      *gorm.DB
	cfg     *config.Config
	adapter Adapter
	roller  dice.Roller
	out     io.Writer
}

// DaemonOpts holds parameters for creating a new Daemon.
type DaemonOpts struct {
	DB      *gorm.DB
	Config  *config.Config
	Adapter Adapter
	Roller  dice.Roller // defaults to dice.DefaultRoller
	Out     io.Writer   // defaults to os.Stdout
}

// NewDaemon creates a Daemon with the given options.
func NewDaemon(opts DaemonOpts) (*Daemon, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("chat: db is required")
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("chat: config is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("chat: adapter is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Daemon{
		db:      opts.DB,
		cfg:     opts.Config,
		adapter: opts.Adapter,
		roller:  opts.Roller,
		out:     out,
	}, nil
}

// Run connects the adapter, builds the router and blocks until the context
// is cancelled or the adapter closes its inbound channel. On shutdown it
// closes the adapter.
func (d *Daemon) Run(ctx context.Context) error {
	fmt.Fprintf(d.out, "Bot connecting...\n")
	if err := d.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("chat: connect: %w", err)
	}

	cmdHandler, err := NewCommandHandler(CommandHandlerOpts{
		DB:      d.db,
		Prefix:  d.cfg.Chat.Prefix,
		MaxDice: d.cfg.Dice.MaxDice,
		Roller:  d.roller,
	})
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("chat: build command handler: %w", err)
	}

	router, err := NewRouter(RouterOpts{
		CmdHandler: cmdHandler,
		Adapter:    d.adapter,
		Out:        d.out,
	})
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("chat: build router: %w", err)
	}

	inbound, err := d.adapter.Listen(ctx)
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("chat: listen: %w", err)
	}

	go d.runRosterScheduler(ctx)

	fmt.Fprintf(d.out, "Bot online (prefix %q)\n", cmdHandler.Prefix())

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(d.out, "Bot shutting down...\n")
			if err := d.adapter.Close(); err != nil {
				log.Printf("chat: close adapter: %v", err)
			}
			fmt.Fprintf(d.out, "Bot stopped\n")
			return nil

		case msg, ok := <-inbound:
			if !ok {
				fmt.Fprintf(d.out, "Bot inbound channel closed\n")
				return nil
			}
			router.Handle(ctx, msg)
		}
	}
}

// runRosterScheduler posts the configured guild's roster on the cron
// schedule. It returns immediately if no schedule is configured.
func (d *Daemon) runRosterScheduler(ctx context.Context) {
	rc := d.cfg.Chat.Roster
	if rc.Cron == "" {
		return
	}
	wait := nextCronDuration(rc.Cron, time.Now())
	if wait <= 0 {
		log.Printf("chat: roster: invalid cron %q; scheduler disabled", rc.Cron)
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			d.postRoster(ctx)
			if wait := nextCronDuration(rc.Cron, time.Now()); wait > 0 {
				timer.Reset(wait)
			}
		}
	}
}

// postRoster sends the roster of the configured guild. Empty rosters are
// suppressed.
func (d *Daemon) postRoster(ctx context.Context) {
	rc := d.cfg.Chat.Roster
	chars, err := character.List(ctx, d.db, rc.GuildID, "")
	if err != nil {
		log.Printf("chat: roster: %v", err)
		return
	}
	if len(chars) == 0 {
		return
	}
	for _, e := range rosterEmbeds(chars) {
		if err := d.adapter.Send(ctx, OutboundMessage{
			ChannelID: rc.ChannelID,
			Embeds:    []Embed{e},
		}); err != nil {
			log.Printf("chat: send roster: %v", err)
			return
		}
	}
}
