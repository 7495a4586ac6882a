package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/tx/internal/config"
	"github.com/vango-dev/tx/internal/errors"
	"github.com/vango-dev/tx/pkg/engine"
	"github.com/vango-dev/tx/pkg/snapshot"
)

type runOptions struct {
	target   string
	steps    []step
	snapshot string
	restore  string
	print    bool
	state    bool
	wait     time.Duration
}

func runCmd(c *cli) *cobra.Command {
	var (
		o     runOptions
		steps []string
	)

	cmd := &cobra.Command{
		Use:   "run [url]",
		Short: "Load a page and replay steps against it",
		Long: `Load a page, bind its triggers and replay steps in order. Each step
waits for the exchanges it queued before the next one runs.

Steps:
  click:SELECTOR         dispatch a click
  input:SELECTOR=VALUE   set the value and dispatch input
  fire:SELECTOR=EVENT    dispatch an arbitrary event

Examples:
  tx run http://localhost:8080/ --step input:#item=milk --step click:#add --print
  tx run / --step click:#add --snapshot todo
  tx run --restore todo --step 'click:[tx-onclick="todo_remove?i=0"]' --print`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				o.target = args[0]
			}
			if o.target == "" && o.restore == "" {
				return fmt.Errorf("run: a url or --restore is required")
			}
			parsed, err := parseSteps(steps)
			if err != nil {
				return err
			}
			o.steps = parsed

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var store snapshot.Store
			if o.snapshot != "" || o.restore != "" {
				store, err = openStore(ctx, c.cfg.Snapshot)
				if err != nil {
					return err
				}
				defer store.Close()
				if _, ok := store.(*snapshot.MemoryStore); ok {
					warn(cmd.ErrOrStderr(), "memory snapshot store does not outlive this process")
				}
			}
			return runSession(ctx, c, o, store, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringArrayVar(&steps, "step", nil, "Step to replay (repeatable)")
	cmd.Flags().StringVar(&o.snapshot, "snapshot", "", "Save a snapshot under this key when done")
	cmd.Flags().StringVar(&o.restore, "restore", "", "Start from the snapshot under this key instead of loading url")
	cmd.Flags().BoolVar(&o.print, "print", false, "Print the final document to stdout")
	cmd.Flags().BoolVar(&o.state, "state", false, "Print the final state as JSON to stdout")
	cmd.Flags().DurationVar(&o.wait, "wait", 30*time.Second, "How long each step may take to settle")

	return cmd
}

// runSession loads or restores the page, replays the steps and reports.
// The document and state go to out, progress messages to msg.
func runSession(ctx context.Context, c *cli, o runOptions, store snapshot.Store, out, msg io.Writer) error {
	e, err := openEngine(ctx, c, o, store, msg)
	if err != nil {
		return err
	}
	defer e.Close()

	c.logger.Info("replaying steps", "count", len(o.steps), "steps", stepList(o.steps))

	for i, s := range o.steps {
		if err := s.apply(e); err != nil {
			return fmt.Errorf("step %d %q: %w", i+1, s.raw, err)
		}
		if err := settle(ctx, e, o.wait); err != nil {
			return err
		}
		if err := exchangeFailure(s, e.Failures()); err != nil {
			return err
		}
		c.logger.Debug("step done", "step", s.raw, "pending", e.Pending())
	}
	if len(o.steps) > 0 {
		success(msg, "%d steps replayed", len(o.steps))
	}

	if o.snapshot != "" && store != nil {
		snap, err := e.Snapshot()
		if err != nil {
			return err
		}
		if err := store.Save(ctx, o.snapshot, snap); err != nil {
			return errors.New("E041").WithDetail("Saving snapshot " + o.snapshot).Wrap(err)
		}
		success(msg, "snapshot saved as %s", o.snapshot)
	}

	if o.print {
		fmt.Fprintln(out, e.Document().String())
	}
	if o.state {
		data, err := e.State().MarshalJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	}
	return nil
}

func openEngine(ctx context.Context, c *cli, o runOptions, store snapshot.Store, msg io.Writer) (*engine.Engine, error) {
	if o.restore != "" {
		snap, err := store.Load(ctx, o.restore)
		if err != nil {
			return nil, err
		}
		var page *url.URL
		if snap.URL != "" {
			page, _ = url.Parse(snap.URL)
		}
		opts := append(c.cfg.ToEngineOptions(page), engine.WithLogger(c.logger))
		e, err := engine.Restore(snap, opts...)
		if err != nil {
			return nil, err
		}
		info(msg, "restored %s (taken %s)", snap.URL, snap.TakenAt.Format(time.RFC3339))
		return e, nil
	}

	u, err := c.cfg.ResolveURL(o.target)
	if err != nil || !u.IsAbs() {
		return nil, errors.New("E011").
			WithDetail("Cannot resolve " + o.target).
			WithSuggestion("Pass an absolute URL or set baseURL in " + config.ConfigFileName)
	}
	opts := append(c.cfg.ToEngineOptions(u), engine.WithLogger(c.logger))
	e, err := engine.Load(ctx, u.String(), opts...)
	if err != nil {
		return nil, errors.New("E011").WithDetail("Loading " + u.String()).Wrap(err)
	}
	return e, nil
}

func settle(ctx context.Context, e *engine.Engine, wait time.Duration) error {
	wctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if err := e.Wait(wctx); err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return errors.New("E031").
				WithDetail(fmt.Sprintf("%d exchanges still pending after %s", e.Pending(), wait)).
				WithSuggestion("Raise --wait or set exchangeTimeout")
		}
		return err
	}
	return nil
}

// exchangeFailure reports the first exchange a step queued that failed,
// classified onto its registry code.
func exchangeFailure(s step, failures []error) error {
	if len(failures) == 0 {
		return nil
	}
	te := errors.Classify(failures[0])
	detail := fmt.Sprintf("Step %q: %d of its exchanges failed.", s.raw, len(failures))
	if te.Detail != "" {
		detail += " " + te.Detail
	}
	return te.WithDetail(detail)
}

// stepList renders steps for log lines.
func stepList(steps []step) string {
	raw := make([]string, len(steps))
	for i, s := range steps {
		raw[i] = s.raw
	}
	return strings.Join(raw, ", ")
}
