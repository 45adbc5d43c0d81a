package main

import (
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/banshee-data/sholl/internal/config"
	"github.com/banshee-data/sholl/internal/fsutil"
	"github.com/banshee-data/sholl/internal/monitoring"
	"github.com/banshee-data/sholl/internal/version"
)

// app carries the state shared by every subcommand.
type app struct {
	fsys fsutil.FileSystem

	configPath string
	outDir     string
	plotFormat string
	html       bool
	quiet      bool
	noColor    bool

	cfg *config.AnalysisConfig
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:     "sholl",
		Short:   "Sholl analysis of branching structures in images",
		Version: version.Version,
		Long: `sholl samples concentric circles around a center point of a segmented
image, counts the foreground crossings of each circle, and fits the resulting
profile with polynomial and semi-log/log-log regressions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "analysis config file (.json, .yaml or .yml)")
	pf.StringVarP(&a.outDir, "out", "o", ".", "output directory")
	pf.StringVar(&a.plotFormat, "plot", "png", "static plot format (png, svg, pdf); empty disables plots")
	pf.BoolVar(&a.html, "html", false, "also write an interactive HTML report")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "suppress diagnostic logging")
	pf.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(newSampleCmd(a), newAnalyzeCmd(a), newVersionCmd())
	return root
}

// setup loads the configuration and routes library logging.
func (a *app) setup(stderr io.Writer) error {
	if a.noColor {
		color.NoColor = true
	}
	if a.quiet {
		monitoring.SetLogger(nil)
	} else {
		monitoring.SetLogger(log.New(stderr, "", log.LstdFlags).Printf)
	}

	if a.configPath == "" {
		a.cfg = config.DefaultAnalysisConfig()
		return nil
	}
	cfg, err := config.LoadAnalysisConfig(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// outPath joins the output directory with "<id>_<suffix>", id made safe
// for use in a file name.
func (a *app) outPath(id, suffix string) string {
	return filepath.Join(a.outDir, fsutil.SafeName(id)+"_"+suffix)
}

// baseID strips the directory and extension from path.
func baseID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
