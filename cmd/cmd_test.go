// File: cmd/cmd_test.go
package cmd

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/abspos/api/schemas"
	"github.com/xkilldash9x/abspos/internal/browser/dom"
	"github.com/xkilldash9x/abspos/internal/config"
	"github.com/xkilldash9x/abspos/internal/mocks"
)

const fixtureHTML = `<!DOCTYPE html>
<html><body>
<div id="cb" style="position: relative; margin-left: 50px; width: 300px; height: 200px">
  <div id="abs" style="position: absolute; left: 10px; top: 20px; width: 100px; height: 50px"></div>
</div>
<div id="pinned" style="position: fixed; right: 0; bottom: 0; width: 100px; height: 100px"></div>
</body></html>`

// writeTemp writes content into a file in a per-test directory.
func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// executeCommand runs a fresh command tree and returns what it wrote to stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeReport(t *testing.T, out string) schemas.LayoutReport {
	t.Helper()
	var report schemas.LayoutReport
	require.NoError(t, json.Unmarshal([]byte(out), &report), "output: %s", out)
	return report
}

func findElement(t *testing.T, elements []schemas.ElementGeometry, id string) schemas.ElementGeometry {
	t.Helper()
	for _, e := range elements {
		if e.Element == id {
			return e
		}
	}
	t.Fatalf("element %q not in output", id)
	return schemas.ElementGeometry{}
}

func TestVersion(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "abspos version "+Version+"\n", out)

	out, err = executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestLayoutCmd(t *testing.T) {
	fixture := writeTemp(t, "fixture.html", fixtureHTML)

	t.Run("all elements", func(t *testing.T) {
		out, err := executeCommand(t, "layout", fixture)
		require.NoError(t, err)
		report := decodeReport(t, out)

		assert.Equal(t, 800.0, report.ViewportWidth)
		abs := findElement(t, report.Elements, "abs")
		assert.Equal(t, "absolute", abs.Position)
		assert.Equal(t, schemas.Geometry{X: 60, Y: 20, Width: 100, Height: 50}, abs.Geometry)
		assert.Equal(t, `//*[@id='abs']`, abs.ID)

		pinned := findElement(t, report.Elements, "pinned")
		assert.Equal(t, schemas.Geometry{X: 700, Y: 500, Width: 100, Height: 100}, pinned.Geometry)
	})

	t.Run("xpath selection", func(t *testing.T) {
		out, err := executeCommand(t, "layout", fixture, "--xpath", "//div[@id='abs']", "--xpath", "//div[@id='cb']")
		require.NoError(t, err)
		report := decodeReport(t, out)

		require.Len(t, report.Elements, 2)
		assert.Equal(t, "cb", report.Elements[0].Element, "document order is kept")
		assert.Equal(t, "abs", report.Elements[1].Element)
	})

	t.Run("viewport flags", func(t *testing.T) {
		out, err := executeCommand(t, "--viewport-width", "1000", "--viewport-height", "700", "layout", fixture, "--xpath", "//*[@id='pinned']")
		require.NoError(t, err)
		report := decodeReport(t, out)

		assert.Equal(t, 1000.0, report.ViewportWidth)
		require.Len(t, report.Elements, 1)
		assert.Equal(t, schemas.Geometry{X: 900, Y: 600, Width: 100, Height: 100}, report.Elements[0].Geometry)
	})

	t.Run("rtl direction", func(t *testing.T) {
		rtl := writeTemp(t, "rtl.html", `<div style="width: 300px; height: 10px"><div id="s" style="position: absolute; width: 50px; height: 10px"></div></div>`)
		out, err := executeCommand(t, "--direction", "rtl", "layout", rtl, "--xpath", "//*[@id='s']")
		require.NoError(t, err)
		report := decodeReport(t, out)
		require.Len(t, report.Elements, 1)
		// The 300px parent sits at the end of the rtl body, and the static
		// position hugs its content end edge.
		assert.Equal(t, 750.0, report.Elements[0].Geometry.X)
	})

	t.Run("diagnostics", func(t *testing.T) {
		bad := writeTemp(t, "bad.html", `<div id="d" style="position: absolute; left: 10qq; width: 5px; height: 5px"></div>`)
		out, err := executeCommand(t, "layout", bad)
		require.NoError(t, err)
		report := decodeReport(t, out)
		require.Len(t, report.Diagnostics, 1)
		assert.Contains(t, report.Diagnostics[0], "left")
	})

	t.Run("stdin", func(t *testing.T) {
		root := NewRootCommand()
		var out bytes.Buffer
		root.SetIn(strings.NewReader(fixtureHTML))
		root.SetOut(&out)
		root.SetArgs([]string{"layout", "-", "--xpath", "//*[@id='abs']"})
		require.NoError(t, root.ExecuteContext(context.Background()))
		report := decodeReport(t, out.String())
		require.Len(t, report.Elements, 1)
	})
}

func TestLayoutCmd_Errors(t *testing.T) {
	fixture := writeTemp(t, "fixture.html", fixtureHTML)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing argument", []string{"layout"}, "accepts 1 arg(s), received 0"},
		{"missing file", []string{"layout", filepath.Join(t.TempDir(), "nope.html")}, "failed to open fixture"},
		{"invalid xpath", []string{"layout", fixture, "--xpath", "//div["}, "invalid xpath"},
		{"no match", []string{"layout", fixture, "--xpath", "//table"}, "matched no rendered element"},
		{"invalid direction", []string{"--direction", "up", "layout", fixture}, "invalid configuration"},
		{"invalid viewport", []string{"--viewport-width=-1", "layout", fixture}, "viewport must have a positive size"},
		{"invalid script timeout", []string{"--script-timeout", "0s", "layout", fixture}, "script.timeout must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigFile(t *testing.T) {
	fixture := writeTemp(t, "fixture.html", fixtureHTML)
	cfgFile := writeTemp(t, "config.yaml", `
layout:
  viewport_width: 400
  viewport_height: 300
logger:
  level: error
`)

	out, err := executeCommand(t, "--config", cfgFile, "layout", fixture, "--xpath", "//*[@id='pinned']")
	require.NoError(t, err)
	report := decodeReport(t, out)
	assert.Equal(t, 400.0, report.ViewportWidth)
	assert.Equal(t, schemas.Geometry{X: 300, Y: 200, Width: 100, Height: 100}, report.Elements[0].Geometry)

	t.Run("flags override the file", func(t *testing.T) {
		out, err := executeCommand(t, "--config", cfgFile, "--viewport-width", "500", "layout", fixture, "--xpath", "//*[@id='pinned']")
		require.NoError(t, err)
		assert.Equal(t, 400.0, decodeReport(t, out).Elements[0].Geometry.X)
	})

	t.Run("invalid file", func(t *testing.T) {
		broken := writeTemp(t, "broken.yaml", "layout: [")
		_, err := executeCommand(t, "--config", broken, "layout", fixture)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading config file")
	})
}

func TestConfigInContext(t *testing.T) {
	root := NewRootCommand()
	var captured config.Interface
	probe := &cobra.Command{
		Use: "probe",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			captured, err = getConfigFromContext(cmd.Context())
			return err
		},
	}
	root.AddCommand(probe)
	root.SetArgs([]string{"--viewport-height", "900", "probe"})
	require.NoError(t, root.ExecuteContext(context.Background()))

	require.NotNil(t, captured)
	assert.Equal(t, 900.0, captured.Layout().ViewportHeight)
	assert.Equal(t, 800.0, captured.Layout().ViewportWidth)

	_, err := getConfigFromContext(context.Background())
	assert.Error(t, err)
}

func TestApplyFlagOverrides(t *testing.T) {
	t.Run("changed flags use setters", func(t *testing.T) {
		root := NewRootCommand()
		require.NoError(t, root.ParseFlags([]string{"--viewport-height", "900", "--direction", "RTL", "--script-timeout", "5s"}))

		cfg := new(mocks.MockConfig)
		cfg.On("Layout").Return(config.LayoutConfig{ViewportWidth: 800, ViewportHeight: 600})
		cfg.On("SetLayoutViewport", 800.0, 900.0).Return()
		cfg.On("SetLayoutDirection", "RTL").Return()
		cfg.On("SetScriptTimeout", 5*time.Second).Return()

		applyFlagOverrides(root, cfg)
		cfg.AssertExpectations(t)
	})

	t.Run("unchanged flags leave config alone", func(t *testing.T) {
		root := NewRootCommand()
		require.NoError(t, root.ParseFlags(nil))

		cfg := new(mocks.MockConfig)
		applyFlagOverrides(root, cfg)
		cfg.AssertNotCalled(t, "SetLayoutViewport", mock.Anything, mock.Anything)
		cfg.AssertNotCalled(t, "SetLayoutDirection", mock.Anything)
		cfg.AssertNotCalled(t, "SetScriptTimeout", mock.Anything)
	})

	t.Run("direction is normalized", func(t *testing.T) {
		root := NewRootCommand()
		var captured config.Interface
		root.AddCommand(&cobra.Command{
			Use: "probe",
			RunE: func(cmd *cobra.Command, args []string) error {
				var err error
				captured, err = getConfigFromContext(cmd.Context())
				return err
			},
		})
		root.SetArgs([]string{"--direction", " RTL ", "--script-timeout", "2s", "probe"})
		require.NoError(t, root.ExecuteContext(context.Background()))
		assert.Equal(t, "rtl", captured.Layout().Direction)
		assert.Equal(t, 2*time.Second, captured.Script().Timeout)
	})
}

const runFixture = `<html><body>
<div id="box" style="position: absolute; left: 0; top: 0; width: 10px; height: 10px"></div>
</body></html>`

func decodeSnapshots(t *testing.T, out string) []schemas.FrameSnapshot {
	t.Helper()
	var snaps []schemas.FrameSnapshot
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		var s schemas.FrameSnapshot
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &s))
		snaps = append(snaps, s)
	}
	require.NoError(t, scanner.Err())
	return snaps
}

func TestRunCmd(t *testing.T) {
	fixture := writeTemp(t, "fixture.html", runFixture)

	t.Run("snapshot per frame", func(t *testing.T) {
		scenario := writeTemp(t, "scenario.js", `
			var box = document.getElementById('box');
			setTimeout(function() { box.style.left = '100px'; }, 20);
		`)
		out, err := executeCommand(t, "run", fixture, scenario, "--duration", "40ms", "--xpath", "//*[@id='box']")
		require.NoError(t, err)

		snaps := decodeSnapshots(t, out)
		require.Len(t, snaps, 2)
		assert.Equal(t, 1, snaps[0].Frame)
		assert.Equal(t, 16.0, snaps[0].TimeMs)
		assert.Equal(t, 0.0, snaps[0].Elements[0].Geometry.X)
		assert.Equal(t, 32.0, snaps[1].TimeMs)
		assert.Equal(t, 100.0, snaps[1].Elements[0].Geometry.X)
	})

	t.Run("until idle", func(t *testing.T) {
		scenario := writeTemp(t, "scenario.js", `
			var box = document.getElementById('box');
			var n = 0;
			var iv = setInterval(function() {
				box.style.top = (++n * 10) + 'px';
				if (n === 3) clearInterval(iv);
			}, 50);
		`)
		out, err := executeCommand(t, "run", fixture, scenario, "--xpath", "//*[@id='box']")
		require.NoError(t, err)

		snaps := decodeSnapshots(t, out)
		require.NotEmpty(t, snaps)
		last := snaps[len(snaps)-1]
		assert.Equal(t, 150.0, last.TimeMs, "the final frame runs when the clock goes idle")
		assert.Equal(t, 30.0, last.Elements[0].Geometry.Y)
	})

	t.Run("script created elements", func(t *testing.T) {
		scenario := writeTemp(t, "scenario.js", `
			var d = document.createElement('span');
			d.id = 'late';
			d.style.cssText = 'position: absolute; right: 0; width: 40px; height: 40px';
			requestAnimationFrame(function() { document.body.appendChild(d); });
		`)
		out, err := executeCommand(t, "run", fixture, scenario, "--duration", "32ms")
		require.NoError(t, err)

		snaps := decodeSnapshots(t, out)
		require.Len(t, snaps, 2)
		// The element is appended by the first frame's callback, after its snapshot.
		for _, e := range snaps[0].Elements {
			assert.NotEqual(t, "late", e.Element)
		}
		late := findElement(t, snaps[1].Elements, "late")
		assert.Equal(t, 760.0, late.Geometry.X)
	})

	t.Run("scenario exception", func(t *testing.T) {
		scenario := writeTemp(t, "scenario.js", `throw new Error('broken scenario')`)
		_, err := executeCommand(t, "run", fixture, scenario)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broken scenario")
	})

	t.Run("callback exception", func(t *testing.T) {
		scenario := writeTemp(t, "scenario.js", `setTimeout(function() { throw new Error('late failure'); }, 5)`)
		_, err := executeCommand(t, "run", fixture, scenario)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "late failure")
	})

	t.Run("missing scenario", func(t *testing.T) {
		_, err := executeCommand(t, "run", fixture, filepath.Join(t.TempDir(), "missing.js"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read scenario")
	})
}

func TestNewEngineReadsLayoutConfig(t *testing.T) {
	cfg := new(mocks.MockConfig)
	cfg.On("Layout").Return(config.LayoutConfig{
		ViewportWidth:  320,
		ViewportHeight: 240,
		Direction:      "rtl",
		MaxRevisits:    2,
	})

	doc, err := dom.ParseString(`<div id="a" style="position: absolute; width: 20px; height: 20px"></div>`, zap.NewNop())
	require.NoError(t, err)
	engine := newEngine(doc, cfg, zap.NewNop())

	assert.Equal(t, 320.0, engine.Viewport().Width)
	assert.Equal(t, 240.0, engine.Viewport().Height)
	boxes, err := doc.Query("//*[@id='a']")
	require.NoError(t, err)
	// rtl static position: the box's right edge sits on the body's end edge.
	assert.Equal(t, 300.0, elementGeometry(engine, boxes[0]).Geometry.X)
	cfg.AssertExpectations(t)
}
