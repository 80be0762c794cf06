package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/comic-spoiler/spoiler-detector/internal/container"
	"github.com/comic-spoiler/spoiler-detector/internal/factory"
	"github.com/comic-spoiler/spoiler-detector/internal/logger"
	"github.com/comic-spoiler/spoiler-detector/pkg/models"
)

type analysisRow struct {
	Image string                 `json:"image"`
	Error string                 `json:"error,omitempty"`
	Panel *models.PipelineResult `json:"result,omitempty"`
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "analyze <image>...",
		Short: "Run the spoiler pipeline on local images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.modelsConfig()
			if err != nil {
				return err
			}
			logger.UseTextFormatter()

			m, err := container.LoadModels(cmd.Context(), cfg, factory.NewComponentFactory())
			if err != nil {
				return err
			}
			defer m.Close()

			rows := make([]analysisRow, 0, len(args))
			failed := 0
			for _, path := range args {
				row := analysisRow{Image: path}
				if _, statErr := os.Stat(path); statErr != nil {
					row.Error = statErr.Error()
				} else if res, runErr := m.Pipeline.Run(cmd.Context(), path); runErr != nil {
					row.Error = runErr.Error()
				} else {
					row.Panel = res
				}
				if row.Error != "" {
					failed++
				}
				rows = append(rows, row)
			}

			if jsonOutput {
				if err := writeJSON(cmd, rows); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), renderAnalysis(rows, isTerminal(cmd.OutOrStdout())))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d images failed", failed, len(rows))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	return cmd
}

// renderAnalysis prints a table on a terminal and tab separated lines
// otherwise, so the output stays easy to pipe.
func renderAnalysis(rows []analysisRow, table bool) string {
	headers := []string{"Image", "Result", "Genre", "Characters", "Caption"}
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		if r.Panel == nil {
			cells = append(cells, []string{r.Image, "error", "", "", r.Error})
			continue
		}
		cells = append(cells, []string{
			r.Image,
			r.Panel.Result,
			r.Panel.Genre,
			strconv.Itoa(r.Panel.CharacterCount),
			r.Panel.Caption,
		})
	}

	if table {
		return renderTable(headers, cells, []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft})
	}
	return renderPlain(cells)
}
