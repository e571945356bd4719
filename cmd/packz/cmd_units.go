package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mikedh/packz/internal/config"
	"github.com/mikedh/packz/internal/runner"
)

var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "Print the installed-unit index and the built-in classification",
	Long: `Builds the unit index for the configured interpreter and prints every unit
with its on-disk root and whether it counts as part of the base distribution.

The built-in derivation assumes the conventional base-root/site-packages
layout; this command is the quick way to sanity-check it on a new platform.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if pythonPath != "" {
			cfg.Python = pythonPath
		}
		r, err := runner.New(cmd.Context(), runner.Options{
			Config: cfg,
			Logger: logger,
		})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "UNIT\tKIND\tROOT")
		for _, name := range r.Index().Names() {
			u, _ := r.Index().Lookup(name)
			kind := "third-party"
			if r.Builtin(name) {
				kind = "built-in"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", u.Name, kind, u.Root)
		}
		return w.Flush()
	},
}

func init() {
	unitsCmd.Flags().StringVar(&pythonPath, "python", "", "interpreter to index")
	rootCmd.AddCommand(unitsCmd)
}
