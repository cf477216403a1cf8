package main

import (
	"github.com/spf13/cobra"

	"github.com/edgard/chatcsv/internal/archive"
	"github.com/edgard/chatcsv/internal/chatlog"
)

func init() {
	rootCmd.AddCommand(archiveCmd)
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Build the consolidated groups.zip snapshot once",
	RunE:  runArchive,
}

func runArchive(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	writer := chatlog.NewWriter(chatlog.DataRoot(cfg.Data.Dir), log)
	coordinator := archive.NewCoordinator(writer.GroupsDir(), log)
	return coordinator.Build(cmd.Context())
}
