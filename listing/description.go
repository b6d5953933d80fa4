package listing

import (
	"cmp"
	"encoding/json"
	"fmt"
	"html"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// richTextPolicy keeps only the markup needed to find description images.
var richTextPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowStandardURLs()
	p.AllowElements("p", "div", "span", "br", "table", "tbody", "tr", "td")
	p.AllowAttrs("src", "alt").OnElements("img")
	return p
}()

type descriptionDoc struct {
	Data struct {
		Components struct {
			ComponentData map[string]json.RawMessage `json:"componentData"`
		} `json:"components"`
	} `json:"data"`
}

// DescriptionImages extracts the description image URLs of a
// description-data body. The rich-text layout (desc_richtext_pc) is read
// first; otherwise detail_pic* components are read in index order.
// Every URL is returned with an https scheme.
func DescriptionImages(desc json.RawMessage) ([]string, error) {
	var doc descriptionDoc
	if err := json.Unmarshal(desc, &doc); err != nil {
		return nil, fmt.Errorf("listing: parse description: %w", err)
	}
	components := doc.Data.Components.ComponentData

	if raw, ok := components["desc_richtext_pc"]; ok {
		var rich struct {
			Model struct {
				Text string `json:"text"`
			} `json:"model"`
		}
		if err := json.Unmarshal(raw, &rich); err != nil {
			return nil, fmt.Errorf("listing: parse desc_richtext_pc: %w", err)
		}
		return RichTextImages(rich.Model.Text)
	}

	var keys []string
	for k := range components {
		if strings.HasPrefix(k, "detail_pic") {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, func(a, b string) int {
		return cmp.Or(cmp.Compare(keyIndex(a), keyIndex(b)), strings.Compare(a, b))
	})

	urls := make([]string, 0, len(keys))
	for _, k := range keys {
		var pic struct {
			Model struct {
				PicURL string `json:"picUrl"`
			} `json:"model"`
		}
		if err := json.Unmarshal(components[k], &pic); err != nil || pic.Model.PicURL == "" {
			continue
		}
		urls = append(urls, EnsureHTTPS(pic.Model.PicURL))
	}
	return urls, nil
}

// keyIndex returns the trailing number of keys like "detail_pic_12", or -1.
func keyIndex(key string) int {
	i := len(key)
	for i > 0 && key[i-1] >= '0' && key[i-1] <= '9' {
		i--
	}
	n, err := strconv.Atoi(key[i:])
	if err != nil {
		return -1
	}
	return n
}

// RichTextImages sanitizes vendor rich text and returns its <img src> values
// in document order, de-duplicated, with an https scheme.
func RichTextImages(text string) ([]string, error) {
	clean := richTextPolicy.Sanitize(text)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(clean))
	if err != nil {
		return nil, fmt.Errorf("listing: parse rich text: %w", err)
	}
	var urls []string
	seen := make(map[string]bool)
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		src = strings.TrimSpace(src)
		if !ok || src == "" {
			return
		}
		src = EnsureHTTPS(src)
		if !seen[src] {
			seen[src] = true
			urls = append(urls, src)
		}
	})
	return urls, nil
}

// EnsureHTTPS gives url an https scheme: "//host/x" and "host/x" become
// "https://host/x", and "http://" is upgraded.
func EnsureHTTPS(url string) string {
	switch {
	case strings.HasPrefix(url, "https://"):
		return url
	case strings.HasPrefix(url, "//"):
		return "https:" + url
	case strings.HasPrefix(url, "http://"):
		return "https://" + strings.TrimPrefix(url, "http://")
	default:
		return "https://" + url
	}
}

const detailHead = `<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<style>
.image-container { text-align: center; margin: 20px 0; }
.image-container img { max-width: 750px; width: 100%; height: auto; }
</style>
</head>
<body>
`

// DetailHTML renders the destination detail content: one centred image block per URL.
func DetailHTML(urls []string) string {
	var b strings.Builder
	b.WriteString(detailHead)
	for _, u := range urls {
		fmt.Fprintf(&b, "<div class=\"image-container\"><img src=\"%s\" alt=\"Product Image\"></div>\n", html.EscapeString(u))
	}
	b.WriteString("</body>\n</html>\n")
	return b.String()
}
