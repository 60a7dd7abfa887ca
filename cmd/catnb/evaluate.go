package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/catnb/dataset"
	"github.com/YuminosukeSato/catnb/internal/engine"
	"github.com/YuminosukeSato/catnb/metrics"
)

func newTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Measure a saved model's accuracy on a labelled CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataPath, _ := cmd.Flags().GetString("data")
			target, _ := cmd.Flags().GetString("target")
			id, _ := cmd.Flags().GetString("model-id")

			ctx := cmd.Context()
			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.loadModel(ctx, id); err != nil {
				return err
			}
			frame, err := dataset.LoadCSV(dataPath)
			if err != nil {
				return err
			}
			ev, err := a.engine.TestAccuracy(frame, target)
			if err != nil {
				return err
			}
			printEvaluation(cmd.OutOrStdout(), "Test Results", ev)
			return nil
		},
	}
	cmd.Flags().String("data", "", "Labelled CSV file")
	cmd.Flags().String("target", "", "Label column (defaults to the training target)")
	cmd.Flags().String("model-id", "", "Model to test (latest when empty)")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Hold-out validation on a stratified train/test split",
		Long: `Split the CSV file into stratified training and test parts, train on the
first and report the confusion matrix and accuracy on the second. The saved
model is not changed. With --folds, stratified k-fold cross-validation is
run as well.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dataPath, _ := cmd.Flags().GetString("data")
			target, _ := cmd.Flags().GetString("target")
			plotPath, _ := cmd.Flags().GetString("plot")
			folds, _ := cmd.Flags().GetInt("folds")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fraction := cfg.Validation.TestFraction
			if cmd.Flags().Changed("test-fraction") {
				fraction, _ = cmd.Flags().GetFloat64("test-fraction")
			}
			seed := cfg.Validation.Seed
			if cmd.Flags().Changed("seed") {
				seed, _ = cmd.Flags().GetUint64("seed")
			}

			frame, err := dataset.LoadCSV(dataPath)
			if err != nil {
				return err
			}
			e := engine.New(cfg, nil)
			ev, err := e.ValidateWithSplit(frame, target, fraction, seed)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printEvaluation(out, fmt.Sprintf("Validation Results (%.0f/%.0f split)", (1-fraction)*100, fraction*100), ev)

			if folds > 0 {
				res, err := e.CrossValidate(frame, target, folds, seed)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\nCross-validation (%d folds): %.2f%% ± %.2f%%\n",
					len(res.TestScores), res.GetMeanScore()*100, res.GetStdScore()*100)
			}

			if plotPath != "" {
				if err := metrics.PlotConfusionMatrix(ev.ConfusionMatrix, plotPath); err != nil {
					return err
				}
				fmt.Fprintf(out, "Confusion matrix plot written to %s\n", plotPath)
			}
			return nil
		},
	}
	cmd.Flags().String("data", "", "Labelled CSV file")
	cmd.Flags().String("target", "", "Label column")
	cmd.Flags().Float64("test-fraction", 0.3, "Fraction of rows held out for testing (config default when unset)")
	cmd.Flags().Uint64("seed", 42, "Random seed (config default when unset)")
	cmd.Flags().Int("folds", 0, "Also run stratified k-fold cross-validation with this many folds")
	cmd.Flags().String("plot", "", "Write a confusion matrix heat map to this file (.png, .svg, .pdf)")
	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func printEvaluation(w io.Writer, title string, ev *engine.Evaluation) {
	fmt.Fprintf(w, "%s:\n", title)
	fmt.Fprintln(w, "Confusion Matrix:")
	fmt.Fprintln(w, ev.ConfusionMatrix.String())
	fmt.Fprintf(w, "Accuracy: %.2f%%\n\n", ev.Accuracy*100)
	fmt.Fprint(w, ev.Report().String())
}
