// Package cli - команды taskflow поверх TaskListController
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/St1cky1/taskflow/internal/config"
	"github.com/St1cky1/taskflow/internal/usecase"
)

var (
	appVersion = "dev"
	appCommit  = "none"
)

// SetVersionInfo задается через ldflags
func SetVersionInfo(version, commit string) {
	appVersion = version
	appCommit = commit
}

// app - состояние одного запуска: конфигурация и открытое хранилище
type app struct {
	configFile string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "taskflow",
		Short: "Personal task tracker",
		Long: `taskflow keeps a personal list of tasks with priorities and completion state.

Tasks are stored locally (file or Redis) or in a hosted record service,
depending on storage.backend. Without a subcommand the terminal UI starts.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default ./taskflow.yaml or ~/.config/taskflow/taskflow.yaml)")

	root.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "taskflow %s\ncommit: %s\n", appVersion, appCommit)
			},
		},
		a.tuiCmd(),
		a.addCmd(),
		a.listCmd(),
		a.toggleCmd(),
		a.rmCmd(),
		a.clearCmd(),
		a.statsCmd(),
		a.serveCmd(),
	)

	return root
}

// Execute запускает корневую команду
func Execute() error {
	return newRootCmd().Execute()
}

// controller открывает хранилище и загружает задачи
func (a *app) controller(ctx context.Context, notifier usecase.Notifier) (*usecase.TaskListController, func(), error) {
	store, closeFn, err := openStore(ctx, a.cfg)
	if err != nil {
		return nil, nil, err
	}

	c := usecase.NewTaskListController(store, notifier)
	if err := c.Load(ctx); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("loading tasks: %w", err)
	}
	return c, closeFn, nil
}

// printNotifier печатает уведомления контроллера в вывод команды
func printNotifier(w io.Writer) usecase.Notifier {
	return usecase.NotifierFunc(func(n usecase.Notification) {
		mark := "✓"
		if n.Level == usecase.LevelError {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s\n", mark, n.Message)
	})
}
