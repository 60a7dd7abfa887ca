package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/catnb/dataset"
	"github.com/YuminosukeSato/catnb/pkg/errors"
)

func newPredictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Classify one record given as feature=value pairs",
		Example: `  catnb predict --set weather=sunny --set windy=false
  catnb predict --model-id 6f1c... --set colour=red`,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("model-id")
			pairs, _ := cmd.Flags().GetStringArray("set")
			raw, err := parseAssignments(pairs)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.loadModel(ctx, id); err != nil {
				return err
			}

			pred, err := a.engine.ClassifyStrings(raw)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Prediction: %s\n", dataset.Format(pred.Label))

			classes := make([]string, 0, len(pred.Probabilities))
			for c := range pred.Probabilities {
				classes = append(classes, c)
			}
			sort.Slice(classes, func(i, j int) bool {
				return pred.Probabilities[classes[i]] > pred.Probabilities[classes[j]]
			})
			for _, c := range classes {
				fmt.Fprintf(out, "  %-20s %.4f\n", c, pred.Probabilities[c])
			}
			return nil
		},
	}
	cmd.Flags().String("model-id", "", "Model to use (latest when empty)")
	cmd.Flags().StringArray("set", nil, "Feature value as name=value (repeatable)")
	return cmd
}

// parseAssignments turns ["a=1", "b=x"] into a map. Values may contain '='.
func parseAssignments(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, errors.NewInvalidInputError("predict", "at least one --set name=value is required")
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.NewInvalidInputErrorf("predict", "expected name=value, got %q", p)
		}
		if _, dup := out[name]; dup {
			return nil, errors.NewInvalidInputErrorf("predict", "feature %q set twice", name)
		}
		out[name] = strings.TrimSpace(value)
	}
	return out, nil
}
