package browser

import (
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// blockRule is one resource type the tab refuses to fetch.
type blockRule struct {
	name string
	typ  proto.NetworkResourceType
}

var blockable = map[string]proto.NetworkResourceType{
	"images":      proto.NetworkResourceTypeImage,
	"fonts":       proto.NetworkResourceTypeFont,
	"media":       proto.NetworkResourceTypeMedia,
	"stylesheets": proto.NetworkResourceTypeStylesheet,
}

// blockRules resolves configured names. Scripts and XHR are not in the
// table: the product data rides on them.
func blockRules(names []string) ([]blockRule, error) {
	var rules []blockRule
	seen := map[string]bool{}
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		typ, ok := blockable[n]
		if !ok {
			return nil, fmt.Errorf("browser: cannot block %q (want images, fonts, media or stylesheets)", n)
		}
		if !seen[n] {
			seen[n] = true
			rules = append(rules, blockRule{name: n, typ: typ})
		}
	}
	return rules, nil
}

// block intercepts only the blocked resource types; other requests never
// reach the router.
func block(page *rod.Page, rules []blockRule) (*rod.HijackRouter, error) {
	router := page.HijackRequests()
	for _, r := range rules {
		err := router.Add("*", r.typ, func(h *rod.Hijack) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		})
		if err != nil {
			return nil, fmt.Errorf("browser: block %s: %w", r.name, err)
		}
	}
	go router.Run()
	return router, nil
}
