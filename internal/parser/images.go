package parser

import (
	"strings"

	nethtml "golang.org/x/net/html"
)

// extractImages returns the src of every <img> in rendered, in document
// order. Repeated images are kept.
func extractImages(rendered string) []string {
	images := []string{}
	z := nethtml.NewTokenizer(strings.NewReader(rendered))
	for {
		switch z.Next() {
		case nethtml.ErrorToken:
			return images
		case nethtml.StartTagToken, nethtml.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "img" {
				continue
			}
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if string(key) == "src" {
					images = append(images, string(val))
					break
				}
			}
		}
	}
}
