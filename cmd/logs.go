package cmd

import (
	"fmt"

	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
)

func newLogsCmd() *cobra.Command {
	var (
		errorsOnly bool
		follow     bool
	)

	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the info log, or the warning/error log with --errors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}

			path := cfg.Logger().InfoLogFile
			if errorsOnly {
				path = cfg.Logger().WarnLogFile
			}
			if path == "" {
				return fmt.Errorf("no log file configured")
			}

			t, err := tail.TailFile(path, tail.Config{
				Follow:    follow,
				ReOpen:    follow,
				MustExist: true,
				Poll:      true,
				Logger:    tail.DiscardingLogger,
			})
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", path, err)
			}
			defer t.Cleanup()

			out := cmd.OutOrStdout()
			for {
				select {
				case <-ctx.Done():
					_ = t.Stop()
					return nil
				case line, ok := <-t.Lines:
					if !ok {
						return t.Wait()
					}
					if line.Err != nil {
						return line.Err
					}
					fmt.Fprintln(out, line.Text)
				}
			}
		},
	}

	logsCmd.Flags().BoolVarP(&errorsOnly, "errors", "e", false, "show the warning/error log")
	logsCmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing lines as they are written")
	return logsCmd
}
