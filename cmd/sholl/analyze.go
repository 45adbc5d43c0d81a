package main

import (
	"fmt"
	"io"
	"log"
	"math"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/banshee-data/sholl/internal/fsutil"
	"github.com/banshee-data/sholl/internal/sholl"
	"github.com/banshee-data/sholl/internal/sholl/stats"
	"github.com/banshee-data/sholl/internal/shollplot"
	"github.com/banshee-data/sholl/internal/tabular"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze TABLE...",
		Short: "Fit profiles read from CSV or TSV tables",
		Long: `analyze reads radius/count[/length] tables, prints linear and normalized
statistics for each, and writes the summary, fit and plots to the output
directory.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				p, err := tabular.LoadProfile(a.fsys, path)
				if err != nil {
					return err
				}
				if _, err := a.analyze(cmd.OutOrStdout(), p); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
			return nil
		},
	}
}

// analyze fits p with the configured settings, prints the summaries to w and
// writes the result files.
func (a *app) analyze(w io.Writer, p *sholl.Profile) ([]stats.Summary, error) {
	cfg := a.cfg
	mode := cfg.GetDataMode()

	ls, err := stats.NewLinearStats(p, mode)
	if err != nil {
		return nil, err
	}
	if n := cfg.GetPrimaryBranches(); n > 0 {
		ls.SetPrimaryBranches(n)
	}
	if deg := ls.FindBestFit(cfg.GetPolyDegreeMin(), cfg.GetPolyDegreeMax(), cfg.GetMinRSquared()); deg < 0 {
		log.Printf("%s: no polynomial of degree %d-%d reached R² > %g", p.ID(),
			cfg.GetPolyDegreeMin(), cfg.GetPolyDegreeMax(), cfg.GetMinRSquared())
	}

	ns, err := stats.NewNormalizedStats(p, mode, cfg.GetNormalizer(), cfg.GetMethod())
	if err != nil {
		return nil, err
	}
	if r, ok := cfg.GetFitRange(); ok {
		if err := ns.RestrictToRange(r.X1, r.X2); err != nil {
			return nil, err
		}
	}

	linear, err := stats.Summarize(stats.NewLinear(ls))
	if err != nil {
		return nil, err
	}
	if cutoff := cfg.GetEnclosingCutoff(); cutoff != 1 {
		linear.Metrics = append(linear.Metrics, stats.Metric{
			Label: fmt.Sprintf("Enclosing radius (cutoff %g)", cutoff),
			Value: ls.Sampled().EnclosingRadius(cutoff),
		})
	}
	normalized, err := stats.Summarize(stats.NewNormalized(ns))
	if err != nil {
		return nil, err
	}
	sums := []stats.Summary{linear, normalized}

	printSummaries(w, p.ID(), sums)
	if ns.DivisorFallback() {
		color.New(color.FgYellow).Fprintln(w, fallbackWarning(ns.Normalizer()))
	}
	if err := a.writeResults(p.ID(), ls, ns, sums); err != nil {
		return nil, err
	}
	return sums, nil
}

// fallbackWarning explains which divisor replaced norm when no radial step
// could be resolved.
func fallbackWarning(norm stats.Normalizer) string {
	divisor := stats.Perimeter
	if norm == stats.SphericalShell {
		divisor = stats.Surface
	}
	return fmt.Sprintf("warning: no radial step could be resolved; %s ordinates use the %s divisor instead",
		norm, divisor)
}

func (a *app) writeResults(id string, ls *stats.LinearStats, ns *stats.NormalizedStats, sums []stats.Summary) error {
	if err := a.writeFile(a.outPath(id, "stats.csv"), func(w io.Writer) error {
		return tabular.WriteSummaries(w, id, sums...)
	}); err != nil {
		return err
	}
	if err := a.writeFile(a.outPath(id, "fit.csv"), func(w io.Writer) error {
		return tabular.WriteFit(w, ns)
	}); err != nil {
		return err
	}

	if a.plotFormat != "" {
		if p, err := shollplot.ProfilePlot(ls); err == nil {
			if err := shollplot.Save(a.fsys, p, a.outPath(id, "profile."+a.plotFormat), shollplot.Width, shollplot.Height); err != nil {
				return err
			}
		} else {
			log.Printf("%s: skipping profile plot: %v", id, err)
		}
		if p, err := shollplot.NormalizedPlot(ns); err == nil {
			if err := shollplot.Save(a.fsys, p, a.outPath(id, "normalized."+a.plotFormat), shollplot.Width, shollplot.Height); err != nil {
				return err
			}
		} else {
			log.Printf("%s: skipping normalized plot: %v", id, err)
		}
	}

	if a.html {
		return a.writeFile(a.outPath(id, "report.html"), func(w io.Writer) error {
			return shollplot.WriteHTML(w, ls, ns)
		})
	}
	return nil
}

// writeFile creates path with its parent directories and hands it to fill.
func (a *app) writeFile(path string, fill func(io.Writer) error) error {
	f, err := fsutil.CreateAll(a.fsys, path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fill(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

var (
	headerColor = color.New(color.Bold, color.FgCyan)
	labelColor  = color.New(color.FgWhite)
	nanColor    = color.New(color.Faint)
)

func printSummaries(w io.Writer, id string, sums []stats.Summary) {
	headerColor.Fprintf(w, "== %s ==\n", id)
	for _, s := range sums {
		color.New(color.Bold).Fprintln(w, s.Title)
		for _, m := range s.Metrics {
			labelColor.Fprintf(w, "  %-28s ", m.Label)
			if math.IsNaN(m.Value) {
				nanColor.Fprintln(w, "NaN")
				continue
			}
			fmt.Fprintf(w, "%.6g\n", m.Value)
		}
	}
}
