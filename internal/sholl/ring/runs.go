package ring

import "image"

// Run is a maximal block of consecutive foreground slots. Start is the first
// index; a run that crosses the seam continues from n-1 to 0, so Start+Count
// may exceed the ring length.
type Run struct {
	Start int
	Count int
}

// End returns the index of the run's last slot on ring r.
func (run Run) End(r Ring) int { return r.Wrap(run.Start + run.Count - 1) }

// Mid returns the index of the run's middle slot on ring r.
func (run Run) Mid(r Ring) int { return r.Wrap(run.Start + run.Count/2) }

// LinearRuns scans the mask from index 0 to n-1 without joining the seam.
// A structure crossing index 0 is reported twice; Runs corrects for that.
func LinearRuns(m Mask) []Run {
	var runs []Run
	n := len(m)
	i := 0
	for i < n {
		for i < n && m[i] == 0 {
			i++
		}
		if i >= n {
			break
		}
		start := i
		for i < n && m[i] != 0 {
			i++
		}
		runs = append(runs, Run{Start: start, Count: i - start})
	}
	return runs
}

// Runs returns the connected foreground runs of m on ring r. When both ends
// of the sequence are foreground and there is more than one run, the last run
// and the first run are joined into one.
func Runs(r Ring, m Mask) []Run {
	n := len(m)
	if n == 0 || n != r.Len() {
		return nil
	}
	runs := LinearRuns(m)
	if len(runs) > 1 && m[0] != 0 && m[n-1] != 0 {
		first, last := runs[0], runs[len(runs)-1]
		runs[0] = Run{Start: last.Start, Count: last.Count + first.Count}
		runs = runs[:len(runs)-1]
	}
	return runs
}

// Representatives returns the middle pixel of each run.
func Representatives(r Ring, runs []Run) []image.Point {
	out := make([]image.Point, 0, len(runs))
	for _, run := range runs {
		out = append(out, r.At(run.Mid(r)))
	}
	return out
}
