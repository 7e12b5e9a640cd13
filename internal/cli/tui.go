package cli

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/St1cky1/taskflow/internal/tui"
	"github.com/St1cky1/taskflow/internal/usecase"
)

func (a *app) tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Interactive terminal UI (default)",
		Long: `Launch the terminal UI: task form, filter tabs, task list and progress.

Log output goes to taskflow.log in the storage directory so it does not
corrupt the screen.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd)
		},
	}
}

func (a *app) runTUI(cmd *cobra.Command) error {
	if err := os.MkdirAll(a.cfg.Storage.Dir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	logFile, err := tea.LogToFile(filepath.Join(a.cfg.Storage.Dir, "taskflow.log"), "taskflow")
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	store, closeFn, err := openStore(cmd.Context(), a.cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	notes := make(chan usecase.Notification, 16)
	controller := usecase.NewTaskListController(store, tui.ChannelNotifier(notes))

	p := tea.NewProgram(tui.New(controller, notes), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}
