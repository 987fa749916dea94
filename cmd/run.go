package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/w3automaton/internal/browser/session"
	"github.com/xkilldash9x/w3automaton/internal/config"
	"github.com/xkilldash9x/w3automaton/internal/observability"
	"github.com/xkilldash9x/w3automaton/internal/runner"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// quitTimeout bounds browser shutdown after a run, including interrupted ones.
const quitTimeout = 10 * time.Second

// scriptSession is what the run command needs from a browser session.
type scriptSession interface {
	runner.Session
	Quit(ctx context.Context) error
}

// newSession starts a browser session. Swapped out in tests.
var newSession = func(ctx context.Context, cfg config.Interface, logger *zap.Logger) (scriptSession, error) {
	s, err := session.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newRunCmd() *cobra.Command {
	var (
		browserName string
		headless    bool
		timeout     time.Duration
		keepOpen    bool
	)

	runCmd := &cobra.Command{
		Use:   "run <script.json>",
		Short: "Run a step script in a new browser session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("browser") {
				cfg.SetBrowserName(browserName)
			}
			if cmd.Flags().Changed("headless") {
				cfg.SetBrowserHeadless(headless)
			}
			if cmd.Flags().Changed("timeout") {
				cfg.SetWaitTimeout(timeout)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid flags: %w", err)
			}

			script, err := runner.LoadScript(args[0])
			if err != nil {
				return err
			}

			sess, err := newSession(ctx, cfg, logger)
			if err != nil {
				return err
			}
			if !keepOpen {
				defer func() {
					qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), quitTimeout)
					defer cancel()
					if err := sess.Quit(qctx); err != nil {
						logger.Warn("Failed to quit browser session.", zap.Error(err))
					}
				}()
			}

			res, runErr := runner.New(sess, logger).Run(ctx, script)
			if res != nil {
				out, err := json.MarshalIndent(res, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode result: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
			}
			if runErr != nil {
				if errors.Is(runErr, context.Canceled) {
					logger.Warn("Script interrupted.", zap.String("script", args[0]))
				}
				return runErr
			}
			return nil
		},
	}

	runCmd.Flags().StringVarP(&browserName, "browser", "b", "", "browser to drive (chrome, edge, firefox, safari)")
	runCmd.Flags().BoolVar(&headless, "headless", false, "run the browser without a window")
	runCmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "preset wait timeout for every interaction")
	runCmd.Flags().BoolVar(&keepOpen, "keep-open", false, "leave the browser running when the script ends")
	return runCmd
}
