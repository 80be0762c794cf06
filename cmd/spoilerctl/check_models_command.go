package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/comic-spoiler/spoiler-detector/internal/artifacts"
	"github.com/comic-spoiler/spoiler-detector/internal/container"
	"github.com/comic-spoiler/spoiler-detector/internal/factory"
	"github.com/comic-spoiler/spoiler-detector/internal/logger"
)

func newCheckModelsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check-models",
		Short: "Load the artifacts and probe the inference services",
		Args:  cobra.NoArgs,
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

			set := m.Artifacts
			rows := [][]string{
				{artifacts.VectorizerFile, "vocabulary " + strconv.Itoa(set.Vectorizer.Dim())},
				{artifacts.EncoderFile, "classes " + strconv.Itoa(len(set.Encoder.Classes()))},
				{artifacts.ModelFile, fmt.Sprintf("features %d, classes %d", set.Model.NumFeature(), set.Model.NumClass())},
				{"text backend", string(m.Text.Backend)},
			}

			healthErr := m.CheckHealth(cmd.Context())
			status := "ok"
			if healthErr != nil {
				status = healthErr.Error()
			}
			rows = append(rows, []string{"vision services", status})

			out := cmd.OutOrStdout()
			if isTerminal(out) {
				fmt.Fprintln(out, renderTable([]string{"Component", "Status"}, rows, nil))
			} else {
				fmt.Fprintln(out, renderPlain(rows))
			}
			return healthErr
		},
	}
}
