package cmd

import (
	"fmt"
	"os"
	"time"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/abspos/api/schemas"
	"github.com/xkilldash9x/abspos/internal/browser/jsexec"
	"github.com/xkilldash9x/abspos/internal/browser/layout"
	"github.com/xkilldash9x/abspos/internal/browser/timers"
	"github.com/xkilldash9x/abspos/internal/observability"
)

// newRunCmd creates the `run` command.
func newRunCmd() *cobra.Command {
	var (
		xpaths   []string
		duration time.Duration
	)

	runCmd := &cobra.Command{
		Use:   "run <fixture.html> <scenario.js>",
		Short: "Runs a script scenario against a fixture on the virtual clock",
		Long: `Loads an HTML fixture, executes a JavaScript scenario against it and drives
the virtual clock. After the layout flush of every frame tick a JSON line with
the geometry of the selected elements is printed.

Without --duration the clock runs until no timers or animation frames remain,
bounded by timers.idle_limit.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			doc, err := loadDocument(args[0], cmd.InOrStdin(), logger)
			if err != nil {
				return err
			}
			script, err := readScenario(args[1])
			if err != nil {
				return err
			}
			selected, err := selectBoxes(doc, xpaths)
			if err != nil {
				return err
			}

			engine := newEngine(doc, cfg, logger)
			scheduler := timers.NewScheduler(logger, timers.WithFrameInterval(cfg.Timers().FrameInterval))

			snap := &snapshotter{engine: engine, enc: json.NewEncoder(cmd.OutOrStdout())}
			if len(xpaths) > 0 {
				snap.boxes = func() []*layout.Box { return selected }
			} else {
				snap.boxes = doc.Elements
			}

			rt := jsexec.NewRuntime(logger, engine, scheduler,
				jsexec.WithTimeout(cfg.Script().Timeout),
				jsexec.WithPromiseLimit(cfg.Script().PromiseLimit),
				jsexec.WithFrameObserver(snap.observe),
			)

			if _, err := rt.ExecuteScript(ctx, script, nil); err != nil {
				return fmt.Errorf("scenario %s failed: %w", args[1], err)
			}
			if duration > 0 {
				err = rt.RunFor(ctx, duration)
			} else {
				_, err = rt.RunUntilIdle(ctx, cfg.Timers().IdleLimit)
			}
			if snap.err != nil {
				return fmt.Errorf("failed to write snapshot: %w", snap.err)
			}

			logger.Debug("Scenario finished",
				zap.Duration("virtual_time", scheduler.Now()),
				zap.Uint64("frames", scheduler.Ticks()))
			return err
		},
	}

	runCmd.Flags().StringArrayVar(&xpaths, "xpath", nil, "XPath selecting the elements to snapshot (repeatable; default is every element)")
	runCmd.Flags().DurationVar(&duration, "duration", 0, "Virtual time to run after the scenario; 0 runs until idle")
	return runCmd
}

func readScenario(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read scenario: %w", err)
	}
	return string(b), nil
}

// snapshotter writes one FrameSnapshot per frame tick. The first write error
// stops further output.
type snapshotter struct {
	engine *layout.Engine
	boxes  func() []*layout.Box
	enc    *json.Encoder
	frame  int
	err    error
}

func (s *snapshotter) observe(now time.Duration) {
	if s.err != nil {
		return
	}
	s.frame++
	snap := schemas.FrameSnapshot{
		Frame:  s.frame,
		TimeMs: float64(now) / float64(time.Millisecond),
	}
	for _, b := range s.boxes() {
		snap.Elements = append(snap.Elements, elementGeometry(s.engine, b))
	}
	s.err = s.enc.Encode(snap)
}
