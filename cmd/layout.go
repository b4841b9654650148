package cmd

import (
	"io"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/abspos/api/schemas"
	"github.com/xkilldash9x/abspos/internal/observability"
)

// newLayoutCmd creates the `layout` command.
func newLayoutCmd() *cobra.Command {
	var (
		xpaths []string
		pretty bool
	)

	layoutCmd := &cobra.Command{
		Use:   "layout <fixture.html | ->",
		Short: "Lays out an HTML fixture and prints element geometry as JSON",
		Long: `Parses an HTML fixture, lays it out against the configured viewport and
prints the border box of every element, or of the elements matched by --xpath.
Styles are read from style attributes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			doc, err := loadDocument(args[0], cmd.InOrStdin(), logger)
			if err != nil {
				return err
			}
			engine := newEngine(doc, cfg, logger)

			boxes, err := selectBoxes(doc, xpaths)
			if err != nil {
				return err
			}

			if err := engine.Flush(); err != nil {
				// Per-element errors are reported below.
				logger.Warn("Layout flush failed", zap.Error(err))
			}
			report := schemas.LayoutReport{
				ViewportWidth:  cfg.Layout().ViewportWidth,
				ViewportHeight: cfg.Layout().ViewportHeight,
				Elements:       make([]schemas.ElementGeometry, 0, len(boxes)),
			}
			for _, b := range boxes {
				report.Elements = append(report.Elements, elementGeometry(engine, b))
			}
			report.Diagnostics = diagnosticsOf(boxes)

			logger.Debug("Layout complete",
				zap.Int("elements", len(report.Elements)),
				zap.Int("boxes_laid_out", engine.Stats().BoxesLaidOut))
			return writeJSON(cmd.OutOrStdout(), report, pretty)
		},
	}

	layoutCmd.Flags().StringArrayVar(&xpaths, "xpath", nil, "XPath selecting the elements to report (repeatable; default is every element)")
	layoutCmd.Flags().BoolVar(&pretty, "pretty", false, "Indent the JSON output")
	return layoutCmd
}

func writeJSON(w io.Writer, v interface{}, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
