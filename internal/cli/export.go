package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sadopc/tinynotes/internal/export"
	"github.com/sadopc/tinynotes/internal/store"
)

func newExportCmd(o *rootOptions) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every task as CSV or JSON",
		Example: `  tinynotes export --format json -o tasks.json
  tinynotes export > tasks.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOf(cmd)

			var write func(io.Writer, []store.Task) error
			switch format {
			case "csv":
				write = export.WriteCSV
			case "json":
				write = export.WriteJSON
			default:
				return fmt.Errorf("unknown export format %q (want csv or json)", format)
			}

			s, err := o.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			tasks, err := s.ListTasks(ctx)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				return write(cmd.OutOrStdout(), tasks)
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := write(f, tasks); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			o.logger.Info("exported tasks", zap.String("path", output), zap.Int("count", len(tasks)))
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d task(s) to %s\n", len(tasks), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
