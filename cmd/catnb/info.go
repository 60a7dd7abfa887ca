package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/catnb/pkg/errors"
)

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the classes and features of a saved model",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("model-id")

			ctx := cmd.Context()
			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if id != "" {
				if err := a.engine.Load(ctx, id); err != nil {
					return err
				}
			} else if _, err := a.engine.Restore(ctx); err != nil {
				return err
			}

			data, err := json.MarshalIndent(a.engine.Info(), "", "  ")
			if err != nil {
				return errors.Wrap(err, "encode info")
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().String("model-id", "", "Model to describe (latest when empty)")
	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a saved model's probability tables as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("model-id")
			outPath, _ := cmd.Flags().GetString("out")

			ctx := cmd.Context()
			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.loadModel(ctx, id); err != nil {
				return err
			}

			data, err := a.engine.Model().Weights().ToJSON()
			if err != nil {
				return err
			}
			if outPath == "" {
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return errors.Wrap(err, "write weights")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Weights written to %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().String("model-id", "", "Model to export (latest when empty)")
	cmd.Flags().String("out", "", "Output file (stdout when empty)")
	return cmd
}
