package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/catnb/dataset"
	"github.com/YuminosukeSato/catnb/model_selection"
)

func newSplitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split a CSV file into <base>_train.csv and <base>_test.csv",
		Long: `Shuffle the rows of a CSV file and write the training and test parts next
to it. With --stratify, the split keeps the class ratio of the given column.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dataPath, _ := cmd.Flags().GetString("data")
			ratio, _ := cmd.Flags().GetFloat64("train-ratio")
			seed, _ := cmd.Flags().GetUint64("seed")
			stratify, _ := cmd.Flags().GetString("stratify")

			if _, err := loadConfig(cmd); err != nil {
				return err
			}
			frame, err := dataset.LoadCSV(dataPath)
			if err != nil {
				return err
			}

			var train, test *dataset.Frame
			if stratify != "" {
				train, test, err = model_selection.StratifiedSplit(frame, stratify, 1-ratio, seed)
			} else {
				train, test, err = model_selection.TrainTestSplitFrame(frame, ratio, seed)
			}
			if err != nil {
				return err
			}

			trainPath, testPath := splitPaths(dataPath)
			if err := dataset.SaveCSV(trainPath, train); err != nil {
				return err
			}
			if err := dataset.SaveCSV(testPath, test); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Training data: %s (%d rows)\n", trainPath, train.Len())
			fmt.Fprintf(out, "Test data:     %s (%d rows)\n", testPath, test.Len())
			return nil
		},
	}
	cmd.Flags().String("data", "", "CSV file to split")
	cmd.Flags().Float64("train-ratio", 0.7, "Fraction of rows written to the training file")
	cmd.Flags().Uint64("seed", 42, "Random seed")
	cmd.Flags().String("stratify", "", "Keep the class ratio of this column in both parts")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

// splitPaths maps data/x.csv to data/x_train.csv and data/x_test.csv.
func splitPaths(path string) (train, test string) {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	if ext == "" {
		ext = ".csv"
	}
	return base + "_train" + ext, base + "_test" + ext
}
