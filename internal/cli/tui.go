package cli

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/sadopc/tinynotes/internal/tui"
)

// runTUI opens the planner and hands the terminal to the week view. The
// initial load runs inside the program so the first frame is not delayed.
func runTUI(ctx context.Context, o *rootOptions) error {
	changes := make(chan struct{}, 1)
	sess, err := o.open(tui.Notify(changes))
	if err != nil {
		return err
	}
	defer sess.Close()

	home, _ := os.UserHomeDir()
	app := tui.NewApp(sess.planner, sess.store, tui.Options{
		Schedule:  o.cfg.Schedule,
		Changes:   changes,
		Logger:    o.logger.Named("tui"),
		ExportDir: home,
	})

	o.logger.Info("starting tui", zap.String("driver", o.cfg.Database.Driver))
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
