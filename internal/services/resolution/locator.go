package resolution

import (
	"slices"

	"github.com/Luca1234105/torren/internal/services/debrid"
)

// locator is the output link chosen for a ready resource.
type locator struct {
	link    string
	file    debrid.ResourceFile
	hasFile bool
	// exact is true when link is known to belong to file
	exact bool
	// ambiguous is true when several files were selected but the links
	// could not be paired with them
	ambiguous bool
}

// pickLocator chooses the largest selected file (ties go to the lowest id)
// and pairs it with its output link. Links are listed in the order of the
// selected files sorted by id; when the counts disagree the first link is used.
func pickLocator(status *debrid.ResourceStatus) (locator, bool) {
	if status == nil || len(status.Links) == 0 {
		return locator{}, false
	}

	selected := make([]debrid.ResourceFile, 0, len(status.Files))
	for _, f := range status.Files {
		if f.Selected {
			selected = append(selected, f)
		}
	}
	slices.SortFunc(selected, func(a, b debrid.ResourceFile) int {
		return a.ID - b.ID
	})

	if len(selected) == 0 {
		return locator{link: status.Links[0]}, true
	}

	best := 0
	for i, f := range selected {
		if f.Bytes > selected[best].Bytes {
			best = i
		}
	}

	if len(status.Links) == len(selected) {
		return locator{
			link:    status.Links[best],
			file:    selected[best],
			hasFile: true,
			exact:   true,
		}, true
	}

	return locator{
		link:      status.Links[0],
		file:      selected[best],
		hasFile:   true,
		ambiguous: len(selected) > 1,
	}, true
}
