package engine

import (
	"sort"

	"github.com/marqueehq/marquee/internal/model"
)

// Slide is one bounded-capacity group of datasets shown simultaneously.
// Slides are ephemeral: recomputed whenever the dataset list or capacity
// changes, never persisted.
type Slide struct {
	Index    int
	Datasets []model.DatasetRecord
}

// Paginate sorts datasets by SortIndex (stable, so ties keep their fetch
// order) and chunks them into consecutive groups of at most capacity.
// len(slides) == ceil(len(datasets)/capacity); an empty input yields nil.
func Paginate(datasets []model.DatasetRecord, capacity int) []Slide {
	if len(datasets) == 0 {
		return nil
	}
	if capacity < 1 {
		capacity = 1
	}

	sorted := append([]model.DatasetRecord(nil), datasets...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SortIndex < sorted[j].SortIndex
	})

	slides := make([]Slide, 0, (len(sorted)+capacity-1)/capacity)
	for start := 0; start < len(sorted); start += capacity {
		end := start + capacity
		if end > len(sorted) {
			end = len(sorted)
		}
		slides = append(slides, Slide{
			Index:    len(slides),
			Datasets: sorted[start:end],
		})
	}
	return slides
}

// clampSlideIndex resets an out-of-range slide pointer to the first slide.
func clampSlideIndex(idx, slideCount int) int {
	if idx < 0 || idx >= slideCount {
		return 0
	}
	return idx
}
