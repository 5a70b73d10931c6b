package frontend

import (
	"strings"

	"golang.org/x/net/html"
)

// assetAttrs lists the attributes that carry asset URLs, per element.
var assetAttrs = map[string]string{
	"script": "src",
	"link":   "href",
	"img":    "src",
}

// RewriteAssetRefs prefixes root-relative asset references in doc with base,
// so a page built for "/" can be served from a sub-path. Protocol-relative
// and absolute URLs are left alone. It returns the number of rewritten refs.
func RewriteAssetRefs(doc *html.Node, base string) int {
	base = NormalizeBase(base)
	if base == DefaultBase {
		return 0
	}

	n := 0
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			if attr, ok := assetAttrs[node.Data]; ok {
				for i := range node.Attr {
					a := &node.Attr[i]
					if a.Key != attr || !isRootRelative(a.Val) || strings.HasPrefix(a.Val, base) {
						continue
					}
					a.Val = base + strings.TrimPrefix(a.Val, "/")
					n++
				}
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return n
}

func isRootRelative(u string) bool {
	return strings.HasPrefix(u, "/") && !strings.HasPrefix(u, "//")
}
