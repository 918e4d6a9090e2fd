package entity

import (
	"fmt"
	"net/url"
	"strings"
)

// PreviewItem is one sample video of the free-preview page.
type PreviewItem struct {
	Title string `json:"title"`
	Name  string `json:"name"`
	URL   string `json:"url"`
}

// PreviewItems builds the sample list from file names served under mediaBase.
func PreviewItems(mediaBase string, names []string) []PreviewItem {
	base := strings.TrimRight(mediaBase, "/")
	items := make([]PreviewItem, 0, len(names))
	for i, name := range names {
		items = append(items, PreviewItem{
			Title: fmt.Sprintf("Preview Video %d", i+1),
			Name:  name,
			URL:   base + "/" + url.PathEscape(name),
		})
	}
	return items
}
