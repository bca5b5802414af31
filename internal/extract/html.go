package extract

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/roach88/climatevalue/internal/model"
)

// DefaultPriceClasses matches the listing price element of the car search
// results page.
var DefaultPriceClasses = []string{"text-size-600", "text-ultra-bold", "first-price"}

// HTMLPrices extracts the text of every element whose class attribute
// contains all of Classes. Each non-empty text becomes one record with the
// text stored under Field (default "price").
type HTMLPrices struct {
	Classes []string
	Field   string
}

// Extract implements Extractor.
func (h HTMLPrices) Extract(doc []byte) ([]model.RawRecord, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	classes := h.Classes
	if len(classes) == 0 {
		classes = DefaultPriceClasses
	}
	field := h.Field
	if field == "" {
		field = "price"
	}

	var out []model.RawRecord
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClasses(n, classes) {
			if text := strings.TrimSpace(textContent(n)); text != "" {
				out = append(out, model.RawRecord{field: text})
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out, nil
}

func hasClasses(n *html.Node, want []string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		have := strings.Fields(a.Val)
		for _, w := range want {
			found := false
			for _, h := range have {
				if h == w {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}
	return false
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}
