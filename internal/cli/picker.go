package cli

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/ibeckermayer/sentigraph/internal/archive"
)

// pickSources asks which archive files to analyze, starting from mask.
// Order is kept oldest first whatever the user picks.
func pickSources(candidates []archive.Source, mask []bool) ([]archive.Source, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no archive files found")
	}

	options := make([]huh.Option[int], len(candidates))
	for i, c := range candidates {
		label := fmt.Sprintf("%3d  %s  (%s, %s)", i+1, c.Name, c.ModTime.Format("2006-01-02 15:04"), humanSize(c.Size))
		options[i] = huh.NewOption(label, i).Selected(i < len(mask) && mask[i])
	}

	var chosen []int
	err := huh.NewMultiSelect[int]().
		Title("Archive files to analyze").
		Description("space toggles, enter confirms").
		Options(options...).
		Value(&chosen).
		Run()
	if err != nil {
		return nil, err
	}

	return archive.SelectMask(candidates, indexMask(len(candidates), chosen)), nil
}

// initialMask selects every candidate not excluded by name, then flips the
// 1-based positions as numbered by the sources command.
func initialMask(candidates []archive.Source, excluded []string, positions []int) []bool {
	kept := make(map[string]bool, len(candidates))
	for _, s := range archive.Exclude(candidates, excluded) {
		kept[s.Path] = true
	}
	mask := make([]bool, len(candidates))
	for i, c := range candidates {
		mask[i] = kept[c.Path]
	}
	for _, n := range positions {
		mask = archive.Toggle(mask, n)
	}
	return mask
}

// indexMask marks the 0-based indices in chosen.
func indexMask(n int, chosen []int) []bool {
	mask := make([]bool, n)
	for _, i := range chosen {
		if i >= 0 && i < n {
			mask[i] = true
		}
	}
	return mask
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
