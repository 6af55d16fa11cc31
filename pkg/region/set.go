package region

import (
	"sort"

	"github.com/abworrall/dust-sed/pkg/aperture"
)

// A Set is what photometry needs from a region file. Objects are sorted
// largest first, so for nested regions they run from the outer extent of
// the galaxy down to its center; nesting itself is not checked.
// Backgrounds stay in the order they were found.
type Set struct {
	Objects      []aperture.Aperture
	ObjectLabels []string
	Backgrounds  []aperture.Aperture
}

// BuildSet partitions by role and sorts the objects by decreasing area,
// keeping encounter order for ties. Duplicates are kept.
func BuildSet(descs []Descriptor) Set {
	var objs []Descriptor
	set := Set{}

	for _, d := range descs {
		if d.Aperture == nil {
			continue
		}
		if d.Role == Object {
			objs = append(objs, d)
		} else {
			set.Backgrounds = append(set.Backgrounds, d.Aperture)
		}
	}

	sort.SliceStable(objs, func(i, j int) bool {
		return objs[i].Aperture.Area() > objs[j].Aperture.Area()
	})

	for _, d := range objs {
		set.Objects = append(set.Objects, d.Aperture)
		set.ObjectLabels = append(set.ObjectLabels, d.Label)
	}

	return set
}
