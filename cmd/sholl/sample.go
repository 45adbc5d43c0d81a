package main

import (
	"fmt"
	"image"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/sholl/internal/imageio"
	"github.com/banshee-data/sholl/internal/monitoring"
	"github.com/banshee-data/sholl/internal/sholl/sampler"
	"github.com/banshee-data/sholl/internal/shollplot"
	"github.com/banshee-data/sholl/internal/tabular"
)

type sampleFlags struct {
	center  string
	channel string
	mask    bool
	noStats bool
}

func newSampleCmd(a *app) *cobra.Command {
	var f sampleFlags
	cmd := &cobra.Command{
		Use:   "sample IMAGE",
		Short: "Sample a Sholl profile from a segmented image",
		Long: `sample walks concentric circles around --center in IMAGE, counting the
foreground runs each circle crosses. The profile is written as CSV and, unless
--no-stats is given, analyzed like the analyze command.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.sample(cmd, args[0], f)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.center, "center", "", "sampling center in pixels, as x,y (required)")
	flags.StringVar(&f.channel, "channel", "luminance", "channel of color images to sample (luminance, red, green, blue)")
	flags.BoolVar(&f.mask, "mask", false, "also write the Sholl mask as a heat map")
	flags.BoolVar(&f.noStats, "no-stats", false, "only write the sampled profile")
	_ = cmd.MarkFlagRequired("center")
	return cmd
}

func (a *app) sample(cmd *cobra.Command, path string, f sampleFlags) error {
	center, err := parseCenter(f.center)
	if err != nil {
		return err
	}
	ch, err := imageio.ParseChannel(f.channel)
	if err != nil {
		return err
	}
	img, err := imageio.LoadGray(a.fsys, path, ch)
	if err != nil {
		return err
	}

	opts, err := a.cfg.SamplerOptions(center, img.Bounds())
	if err != nil {
		return err
	}
	progress := monitoring.NewProgressLogger("sampling "+baseID(path), a.cfg.GetProgressInterval(), nil)
	opts.Progress = progress.Report

	s, err := sampler.NewSampler(img, opts)
	if err != nil {
		return err
	}
	p, err := s.Sample(cmd.Context())
	if err != nil {
		return err
	}
	id := baseID(path)
	p.SetID(id)

	if err := a.writeFile(a.outPath(id, "profile.csv"), func(w io.Writer) error {
		return tabular.WriteProfile(w, p)
	}); err != nil {
		return err
	}

	if f.mask {
		h, err := s.Mask(p, nil)
		if err != nil {
			return err
		}
		mp, err := shollplot.MaskPlot(h, "Sholl mask "+id)
		if err != nil {
			return err
		}
		b := img.Bounds()
		if err := shollplot.Save(a.fsys, mp, a.outPath(id, "mask.png"), shollplot.Width, shollplot.Width*vg.Length(aspect(b))); err != nil {
			return err
		}
	}

	if f.noStats {
		return nil
	}
	_, err = a.analyze(cmd.OutOrStdout(), p)
	return err
}

// parseCenter parses "x,y" pixel coordinates.
func parseCenter(s string) (image.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return image.Point{}, fmt.Errorf("invalid center %q: expected x,y", s)
	}
	var v [2]int
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return image.Point{}, fmt.Errorf("invalid center coordinate %q: %w", part, err)
		}
		v[i] = n
	}
	return image.Pt(v[0], v[1]), nil
}

// aspect keeps the mask figure close to the image proportions.
func aspect(b image.Rectangle) float64 {
	if b.Dx() == 0 {
		return 1
	}
	r := float64(b.Dy()) / float64(b.Dx())
	return min(max(r, 0.25), 4)
}
