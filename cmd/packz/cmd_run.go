package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikedh/packz/internal/config"
	"github.com/mikedh/packz/internal/runner"
)

var (
	outputDir    string
	pythonPath   string
	excludeUnits []string
	excludeFiles []string
	catchAllDir  string
	listOnly     bool
)

var runCmd = &cobra.Command{
	Use:   "run [flags] -- script.py [args...]",
	Short: "Trace a script run and bundle its third-party dependencies",
	Long: `Runs the script under the configured interpreter with a syscall trace and
an open-handle snapshot bracketing the run, then copies everything the run
touched (minus standard-library and blacklisted files) into the output tree.

Example:
  packz run --out build --exclude-unit fcl --exclude-file '*assimp*' -- app.py`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBundle,
}

func init() {
	runCmd.Flags().StringVarP(&outputDir, "out", "o", "packz_build", "output directory for the bundle")
	runCmd.Flags().StringVar(&pythonPath, "python", "", "interpreter to index and run with")
	runCmd.Flags().StringArrayVar(&excludeUnits, "exclude-unit", nil, "unit name to exclude (repeatable)")
	runCmd.Flags().StringArrayVar(&excludeFiles, "exclude-file", nil, "filename glob to exclude (repeatable)")
	runCmd.Flags().StringVar(&catchAllDir, "catch-all", "", "bundle directory for files no unit owns")
	runCmd.Flags().BoolVar(&listOnly, "list", false, "print the copy plan without materializing")
	rootCmd.AddCommand(runCmd)
}

func runBundle(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if pythonPath != "" {
		cfg.Python = pythonPath
	}
	if catchAllDir != "" {
		cfg.CatchAllDir = catchAllDir
	}
	cfg.UnitBlacklist = append(cfg.UnitBlacklist, excludeUnits...)
	cfg.FileBlacklist = append(cfg.FileBlacklist, excludeFiles...)

	r, err := runner.New(cmd.Context(), runner.Options{
		Config: cfg,
		Script: args[0],
		Logger: logger,
	})
	if err != nil {
		return err
	}

	argv, err := r.Command(args[0], args[1:]...)
	if err != nil {
		return err
	}
	if err := r.Start(cmd.Context(), argv); err != nil {
		return err
	}
	if err := r.Stop(); err != nil {
		return err
	}
	if code := r.ExitCode(); code != 0 {
		logger.Warn("monitored program exited nonzero; bundling anyway",
			zap.Int("exit_code", code))
	}

	if listOnly {
		list, err := r.BuildList()
		if err != nil {
			return err
		}
		for _, e := range list.Entries {
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", e.Source, e.Dest)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "total: %d files, %s\n",
			len(list.Entries), humanize.Bytes(uint64(list.TotalSize)))
		return nil
	}
	return r.Materialize(outputDir)
}
