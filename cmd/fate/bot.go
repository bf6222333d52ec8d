package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/fatebot/internal/api"
	"github.com/zulandar/fatebot/internal/chat"
	discordadapter "github.com/zulandar/fatebot/internal/chat/discord"
	slackadapter "github.com/zulandar/fatebot/internal/chat/slack"
	"github.com/zulandar/fatebot/internal/config"
)

func newBotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Manage the chat bot",
		Long:  "The bot answers !fate commands on Discord or Slack and can serve the HTTP import API.",
	}

	cmd.AddCommand(newBotStartCmd())
	return cmd
}

func newBotStartCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the chat bot",
		Long:  "Connects to the configured chat platform and answers commands until interrupted. Also serves the HTTP API when api.port is set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBotStart(cmd, configPath)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runBotStart(cmd *cobra.Command, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Chat.Platform == "" && cfg.API.Port == 0 {
		return fmt.Errorf("bot: nothing to run in %s (set chat.platform or api.port)", configPath)
	}

	gormDB, err := openStore(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var runners []func(context.Context) error

	if cfg.Chat.Platform != "" {
		adapter, err := createAdapter(cfg)
		if err != nil {
			return err
		}
		daemon, err := chat.NewDaemon(chat.DaemonOpts{
			DB:      gormDB,
			Config:  cfg,
			Adapter: adapter,
			Out:     cmd.OutOrStdout(),
		})
		if err != nil {
			return err
		}
		runners = append(runners, daemon.Run)
	}

	if cfg.API.Port > 0 {
		opts := api.StartOpts{DB: gormDB, Port: cfg.API.Port, Out: cmd.OutOrStdout()}
		runners = append(runners, func(ctx context.Context) error { return api.Start(ctx, opts) })
	}

	// The first runner to return stops the others.
	errCh := make(chan error, len(runners))
	for _, run := range runners {
		run := run
		go func() {
			err := run(ctx)
			cancel()
			errCh <- err
		}()
	}
	var firstErr error
	for range runners {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// createAdapter builds a platform adapter from the config.
func createAdapter(cfg *config.Config) (chat.Adapter, error) {
	switch cfg.Chat.Platform {
	case config.PlatformDiscord:
		return discordadapter.New(discordadapter.AdapterOpts{
			BotToken: cfg.Chat.Discord.BotToken,
		})
	case config.PlatformSlack:
		return slackadapter.New(slackadapter.AdapterOpts{
			AppToken:  cfg.Chat.Slack.AppToken,
			BotToken:  cfg.Chat.Slack.BotToken,
			ChannelID: cfg.Chat.Slack.Channel,
		})
	default:
		return nil, fmt.Errorf("bot: unsupported platform %q", cfg.Chat.Platform)
	}
}
