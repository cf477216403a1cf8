package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/edgard/chatcsv/internal/archive"
	"github.com/edgard/chatcsv/internal/bot"
	"github.com/edgard/chatcsv/internal/bot/tasks"
	"github.com/edgard/chatcsv/internal/chatlog"
	"github.com/edgard/chatcsv/internal/telegram"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat logger against the Telegram event stream",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required for serve (set telegram.token or CHATCSV_TELEGRAM_TOKEN)")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := chatlog.DataRoot(cfg.Data.Dir)
	writer := chatlog.NewWriter(root, log)
	coordinator := archive.NewCoordinator(writer.GroupsDir(), log)

	var trigger chatlog.ArchiveTrigger
	if cfg.Archive.OnRecord {
		trigger = coordinator
	}
	recorder := chatlog.NewRecorder(writer, trigger, log)

	tg, listener, err := telegram.NewBot(cfg.Telegram.Token, recorder, log)
	if err != nil {
		return err
	}

	me, err := tg.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bot info: %w", err)
	}
	listener.SetSelf(me)
	log.Info("Retrieved bot info", "bot_id", me.ID, "bot_username", me.Username)

	var sched *bot.Scheduler
	if cfg.Archive.Schedule != "" {
		sched, err = bot.NewScheduler(log,
			map[string]string{tasks.ArchiveRebuildTaskName: cfg.Archive.Schedule},
			tasks.RegisterAllTasks(tasks.TaskDeps{Logger: log, Archive: coordinator}),
		)
		if err != nil {
			return err
		}
	}

	log.Info("Starting chat logger...", "data_root", root)
	return bot.NewBot(log, tg, sched).Run(ctx)
}
