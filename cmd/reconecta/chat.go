package main

import (
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/reconecta/chat/backend/internal/tui"
)

func newChatCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to ReConecta in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			// the terminal belongs to the UI; logs go to a file
			logFile, err := os.OpenFile(filepath.Join(os.TempDir(), "reconecta-chat.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
			if err != nil {
				return err
			}
			defer logFile.Close()

			a, err := bootstrap(ctx, flags, logFile)
			if err != nil {
				return err
			}

			m := tui.New(ctx, a.chatSvc.NewConversation(ctx), a.persona)
			defer m.Close()

			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}
}
