package manifest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starford/berkana/internal/models"
	"github.com/starford/berkana/internal/parser"
	"github.com/starford/berkana/internal/resolver"
	"github.com/starford/berkana/internal/storage"
)

// IndexFunc returns the resolver index for the current run. The builder
// passes a sync.OnceValues wrapper so the repository is walked at most once
// and only when something needs parsing.
type IndexFunc func() (*resolver.Index, error)

// Tracker decides, per note and for the profile, whether the previous
// build's output can be reused, and records the fingerprints of the current
// run.
type Tracker struct {
	prevNotes   map[string]*models.NoteNode
	prevProfile *models.Profile
	prevMeta    *models.Metadata
	next        *models.Metadata
	index       IndexFunc

	reused int
	parsed int
}

// NewTracker creates a Tracker. prev and prevMeta may be nil, meaning there
// is no usable prior state.
func NewTracker(prev *models.Tree, prevMeta *models.Metadata, index IndexFunc) *Tracker {
	t := &Tracker{
		prevNotes: make(map[string]*models.NoteNode),
		prevMeta:  prevMeta,
		next:      models.NewMetadata(),
		index:     index,
	}
	if prev == nil || prevMeta == nil {
		t.prevMeta = nil
		return t
	}
	profile := prev.Profile
	t.prevProfile = &profile
	prev.Walk(func(n models.Node) bool {
		if note, ok := n.(*models.NoteNode); ok {
			t.prevNotes[note.ID] = note
		}
		return true
	})
	return t
}

// Note returns the note stored under id: the previous node when both the
// previous manifest has it and its recorded fingerprint equals fp, else the
// result of parse.
func (t *Tracker) Note(id string, fp models.Fingerprint, parse func(parser.Resolver) (*models.NoteNode, error)) (*models.NoteNode, error) {
	t.next.Notes[id] = fp

	if prev, ok := t.prevNotes[id]; ok && t.prevMeta != nil {
		if old, ok := t.prevMeta.Notes[id]; ok && old == fp {
			t.reused++
			return prev, nil
		}
	}

	idx, err := t.index()
	if err != nil {
		return nil, err
	}
	note, err := parse(idx)
	if err != nil {
		return nil, err
	}
	t.parsed++
	return note, nil
}

// Profile works like Note for the profile file. A run that never calls
// Profile records the profile as missing.
func (t *Tracker) Profile(fp models.Fingerprint, parse func(parser.Resolver) (models.Profile, error)) (models.Profile, bool, error) {
	t.next.Profile = &fp

	if t.prevMeta != nil && t.prevMeta.Profile != nil && t.prevProfile != nil && *t.prevMeta.Profile == fp {
		return *t.prevProfile, true, nil
	}

	idx, err := t.index()
	if err != nil {
		return models.Profile{}, false, err
	}
	p, err := parse(idx)
	if err != nil {
		return models.Profile{}, false, err
	}
	return p, false, nil
}

// Metadata returns the snapshot recorded during this run.
func (t *Tracker) Metadata() *models.Metadata {
	return t.next
}

// Reused returns the number of notes taken from the previous manifest.
func (t *Tracker) Reused() int { return t.reused }

// Parsed returns the number of notes parsed during this run.
func (t *Tracker) Parsed() int { return t.parsed }

// LoadPrevious reads the previous manifest and metadata. Any read or decode
// failure, a metadata version other than models.MetadataVersion, or a
// render key other than key yields nil for both: the next build then
// parses everything.
func LoadPrevious(store storage.Provider, manifestPath, metadataPath, key string) (*models.Tree, *models.Metadata) {
	prevKey, err := store.Read(RenderKeyPath(metadataPath))
	if err != nil || strings.TrimSpace(string(prevKey)) != key {
		return nil, nil
	}
	tree, err := loadJSON[models.Tree](store, manifestPath)
	if err != nil {
		return nil, nil
	}
	meta, err := loadJSON[models.Metadata](store, metadataPath)
	if err != nil || meta.Version != models.MetadataVersion {
		return nil, nil
	}
	if meta.Notes == nil {
		meta.Notes = make(map[string]models.Fingerprint)
	}
	return tree, meta
}

func loadJSON[T any](store storage.Provider, p string) (*T, error) {
	data, err := store.Read(p)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("manifest: decode %s: %w", p, err)
	}
	return &v, nil
}
