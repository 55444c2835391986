// Package models defines the manifest types shared by the builder and its consumers.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Node type discriminators as they appear on the wire.
const (
	TypeFolder = "folder"
	TypeNote   = "note"
)

// Node is an entry of the manifest tree: either a *FolderNode or a *NoteNode.
type Node interface {
	NodeID() string
	NodeTitle() string
	NodeType() string
}

// FolderNode is a directory of the content tree.
type FolderNode struct {
	ID         string
	Title      string
	Children   Nodes
	Images     []string
	CoverImage *string
}

// NoteNode is a parsed Markdown file.
type NoteNode struct {
	ID          string
	Title       string
	Summary     string
	ShowTitle   bool
	HTML        string
	Images      []string
	TextContent string
}

func (f *FolderNode) NodeID() string    { return f.ID }
func (f *FolderNode) NodeTitle() string { return f.Title }
func (f *FolderNode) NodeType() string  { return TypeFolder }

func (n *NoteNode) NodeID() string    { return n.ID }
func (n *NoteNode) NodeTitle() string { return n.Title }
func (n *NoteNode) NodeType() string  { return TypeNote }

// folderJSON and noteJSON pin the wire field order.
type folderJSON struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Title      string   `json:"title"`
	Children   Nodes    `json:"children"`
	Images     []string `json:"images"`
	CoverImage *string  `json:"coverImage"`
}

type noteJSON struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	ShowTitle   bool     `json:"showTitle"`
	HTML        string   `json:"html"`
	Images      []string `json:"images"`
	TextContent string   `json:"textContent"`
}

// MarshalJSON implements json.Marshaler.
func (f *FolderNode) MarshalJSON() ([]byte, error) {
	children := f.Children
	if children == nil {
		children = Nodes{}
	}
	return marshal(folderJSON{
		ID:         f.ID,
		Type:       TypeFolder,
		Title:      f.Title,
		Children:   children,
		Images:     nonNil(f.Images),
		CoverImage: f.CoverImage,
	})
}

// MarshalJSON implements json.Marshaler.
func (n *NoteNode) MarshalJSON() ([]byte, error) {
	return marshal(noteJSON{
		ID:          n.ID,
		Type:        TypeNote,
		Title:       n.Title,
		Summary:     n.Summary,
		ShowTitle:   n.ShowTitle,
		HTML:        n.HTML,
		Images:      nonNil(n.Images),
		TextContent: n.TextContent,
	})
}

// Nodes is an ordered list of tree entries that decodes by "type".
type Nodes []Node

// UnmarshalJSON implements json.Unmarshaler.
func (ns *Nodes) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(Nodes, 0, len(raws))
	for _, raw := range raws {
		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return err
		}
		switch head.Type {
		case TypeFolder:
			var f folderJSON
			if err := json.Unmarshal(raw, &f); err != nil {
				return err
			}
			out = append(out, &FolderNode{
				ID:         f.ID,
				Title:      f.Title,
				Children:   f.Children,
				Images:     nonNil(f.Images),
				CoverImage: f.CoverImage,
			})
		case TypeNote:
			var n noteJSON
			if err := json.Unmarshal(raw, &n); err != nil {
				return err
			}
			out = append(out, &NoteNode{
				ID:          n.ID,
				Title:       n.Title,
				Summary:     n.Summary,
				ShowTitle:   n.ShowTitle,
				HTML:        n.HTML,
				Images:      nonNil(n.Images),
				TextContent: n.TextContent,
			})
		default:
			return fmt.Errorf("models: unknown node type %q", head.Type)
		}
	}
	*ns = out
	return nil
}

// Profile is the note-shaped record rendered from the root profile file.
type Profile struct {
	Title string `json:"title"`
	HTML  string `json:"html"`
}

// Tree is the root of the manifest.
type Tree struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Profile  Profile `json:"profile"`
	Children Nodes   `json:"children"`
}

// Walk calls fn for every node of the tree in pre-order. Returning false
// from fn skips the node's children.
func (t *Tree) Walk(fn func(Node) bool) {
	walkNodes(t.Children, fn)
}

func walkNodes(nodes Nodes, fn func(Node) bool) {
	for _, n := range nodes {
		if !fn(n) {
			continue
		}
		if f, ok := n.(*FolderNode); ok {
			walkNodes(f.Children, fn)
		}
	}
}

// marshal encodes v without HTML escaping; note bodies are HTML and the
// manifest keeps them readable.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
