// CLAUDE:SUMMARY Capture channels and their URL/shape/decode rules for Taobao product and search pages.
package capture

import (
	"encoding/json"
	"strings"

	"github.com/hazyhaar/itemrelay/jsonp"
)

// Channel names one kind of network response a page visit must yield.
type Channel string

const (
	ChannelDetail      Channel = "detail-data"
	ChannelDescription Channel = "description-data"
	ChannelSearch      Channel = "search-results"
)

// Rule binds a Channel to the responses that may fill it.
type Rule struct {
	Channel Channel
	// URLContains is matched as a plain substring of the response URL.
	URLContains string
	// Decode turns the raw body into a JSON value (jsonp.Decode or jsonp.DecodeStrict).
	Decode func([]byte) (json.RawMessage, error)
	// Shape rejects decoded bodies that are not the expected document,
	// e.g. an error envelope returned under the right URL.
	Shape func(json.RawMessage) bool
}

// ProductRules returns the two rules of a product page visit.
func ProductRules() []Rule {
	return []Rule{
		{
			Channel:     ChannelDetail,
			URLContains: "mtop.taobao.pcdetail.data.get",
			Decode:      jsonp.Decode,
			Shape:       HasSeller,
		},
		{
			Channel:     ChannelDescription,
			URLContains: "mtop.taobao.detail.getdesc",
			Decode:      jsonp.Decode,
			Shape:       HasDescription,
		},
	}
}

// SearchRules returns the rule of a keyword search page visit.
func SearchRules() []Rule {
	return []Rule{
		{
			Channel:     ChannelSearch,
			URLContains: "mtop.relationrecommend.wirelessrecommend.recommend",
			Decode:      jsonp.Decode,
			Shape:       HasSearchItems,
		},
	}
}

// HasSeller reports whether body has a non-empty data.seller object.
func HasSeller(body json.RawMessage) bool {
	var doc struct {
		Data struct {
			Seller map[string]json.RawMessage `json:"seller"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return false
	}
	return len(doc.Data.Seller) > 0
}

// HasDescription reports whether body carries description components in
// either layout: a desc_richtext_pc rich-text block, or detail_pic* image keys.
func HasDescription(body json.RawMessage) bool {
	var doc struct {
		Data struct {
			Components struct {
				ComponentData map[string]json.RawMessage `json:"componentData"`
			} `json:"components"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return false
	}
	for key := range doc.Data.Components.ComponentData {
		if key == "desc_richtext_pc" || strings.HasPrefix(key, "detail_pic") {
			return true
		}
	}
	return false
}

// HasSearchItems reports whether body has a non-empty data.itemsArray.
func HasSearchItems(body json.RawMessage) bool {
	var doc struct {
		Data struct {
			Items []json.RawMessage `json:"itemsArray"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return false
	}
	return len(doc.Data.Items) > 0
}
