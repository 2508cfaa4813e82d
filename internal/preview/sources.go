package preview

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Sources lists the external origins a component loads resources from.
type Sources struct {
	Scripts []string
	Styles  []string
	Images  []string
	Media   []string
}

// ExternalSources scans component markup for scripts, stylesheets, images
// and media loaded from other origins. Relative, data and blob URLs are
// ignored. Each list holds unique scheme://host origins, sorted.
func ExternalSources(markup string) (Sources, error) {
	var out Sources
	if strings.TrimSpace(markup) == "" {
		return out, nil
	}

	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return out, fmt.Errorf("parsing component html: %w", err)
	}

	scripts := map[string]bool{}
	styles := map[string]bool{}
	images := map[string]bool{}
	media := map[string]bool{}

	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script":
				addOrigin(scripts, attr(n, "src"))
			case "link":
				if strings.EqualFold(attr(n, "rel"), "stylesheet") {
					addOrigin(styles, attr(n, "href"))
				}
			case "img":
				addOrigin(images, attr(n, "src"))
			case "video", "audio", "source":
				addOrigin(media, attr(n, "src"))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)

	out.Scripts = sortedKeys(scripts)
	out.Styles = sortedKeys(styles)
	out.Images = sortedKeys(images)
	out.Media = sortedKeys(media)

	return out, nil
}

// ContentSecurityPolicy allows inline code plus the given external origins
// and nothing else.
func ContentSecurityPolicy(src Sources) string {
	var directives []string
	add := func(name string, values ...string) {
		directives = append(directives, fmt.Sprintf("%s %s", name, strings.Join(values, " ")))
	}

	add("default-src", "'none'")
	add("script-src", append([]string{"'unsafe-inline'"}, src.Scripts...)...)
	add("style-src", append([]string{"'unsafe-inline'"}, src.Styles...)...)
	add("img-src", append([]string{"data:", "blob:"}, src.Images...)...)
	if len(src.Media) > 0 {
		add("media-src", src.Media...)
	}
	add("font-src", "data:")
	add("base-uri", "'none'")
	add("form-action", "'none'")

	return strings.Join(directives, "; ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func addOrigin(set map[string]bool, raw string) {
	if raw == "" {
		return
	}
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return
	}
	// the host must not carry CSP syntax
	if strings.ContainsAny(u.Host, " ;,'\"") {
		return
	}

	set[scheme+"://"+strings.ToLower(u.Host)] = true
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
