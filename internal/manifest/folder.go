package manifest

import (
	"path"

	"github.com/starford/berkana/internal/models"
)

// DefaultCoverMarker names the note whose first image becomes its folder's cover.
const DefaultCoverMarker = "封面"

// Aggregate collects the images of the direct note children of a folder and
// picks its cover with the default marker. See AggregateWith.
func Aggregate(children models.Nodes, override *string) ([]string, *string) {
	return AggregateWith(children, override, DefaultCoverMarker)
}

// AggregateWith returns the concatenated images of the direct note children,
// in child order, and the folder cover. The cover is the first image of a
// marker note (titled marker, or stored as "<marker>.md") that has images;
// otherwise override; otherwise the first collected image; otherwise nil.
// Images of nested folders are never included.
func AggregateWith(children models.Nodes, override *string, marker string) ([]string, *string) {
	images := []string{}
	var fromMarker *string
	for _, child := range children {
		note, ok := child.(*models.NoteNode)
		if !ok {
			continue
		}
		images = append(images, note.Images...)
		if fromMarker == nil && len(note.Images) > 0 && isMarker(note, marker) {
			first := note.Images[0]
			fromMarker = &first
		}
	}

	switch {
	case fromMarker != nil:
		return images, fromMarker
	case override != nil:
		cover := *override
		return images, &cover
	case len(images) > 0:
		first := images[0]
		return images, &first
	}
	return images, nil
}

func isMarker(note *models.NoteNode, marker string) bool {
	if marker == "" {
		return false
	}
	return note.Title == marker || path.Base(note.ID) == marker+".md"
}
