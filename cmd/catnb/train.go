package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/catnb/dataset"
	"github.com/YuminosukeSato/catnb/internal/engine"
)

func newTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model on a CSV file",
		Long: `Train a categorical Naive Bayes model on every row of a CSV file.

The model is saved to the configured store and becomes the latest model
used by predict, test, info, export and serve.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dataPath, _ := cmd.Flags().GetString("data")
			target, _ := cmd.Flags().GetString("target")
			save, _ := cmd.Flags().GetBool("save")

			ctx := cmd.Context()
			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			frame, err := dataset.LoadCSV(dataPath)
			if err != nil {
				return err
			}
			e := a.engine
			if !save {
				e = engine.New(a.cfg, nil)
			}
			id, err := e.BuildModel(ctx, frame, target)
			if err != nil {
				return err
			}

			info := e.Info()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Model trained: %s\n", id)
			fmt.Fprintf(out, "Samples:  %d\n", info.Samples)
			fmt.Fprintf(out, "Features: %s\n", strings.Join(info.Features, ", "))
			fmt.Fprintf(out, "Classes:  %s\n", formatValues(info.Classes))
			if !save {
				fmt.Fprintln(out, "Model not saved (--save=false)")
			}
			return nil
		},
	}
	cmd.Flags().String("data", "", "Training CSV file")
	cmd.Flags().String("target", "", "Label column")
	cmd.Flags().Bool("save", true, "Persist the model to the configured store")
	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func formatValues(values []dataset.Value) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = dataset.Format(v)
	}
	return strings.Join(parts, ", ")
}
