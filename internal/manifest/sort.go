package manifest

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/starford/berkana/internal/models"
)

// sorter orders siblings by title under Simplified Chinese collation, with
// the id as tie-break so equal titles still sort deterministically.
// A Collator keeps internal buffers; a sorter must not be shared between
// goroutines.
type sorter struct {
	col *collate.Collator
}

func newSorter() *sorter {
	return &sorter{col: collate.New(language.SimplifiedChinese)}
}

func (s *sorter) sort(nodes models.Nodes) {
	slices.SortStableFunc(nodes, func(a, b models.Node) int {
		if c := s.col.CompareString(a.NodeTitle(), b.NodeTitle()); c != 0 {
			return c
		}
		return strings.Compare(a.NodeID(), b.NodeID())
	})
}

// SortNodes sorts nodes in place the way the builder orders folder children.
func SortNodes(nodes models.Nodes) {
	newSorter().sort(nodes)
}
