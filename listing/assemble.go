// CLAUDE:SUMMARY Assembles the canonical destination payload from normalized fields, images and the seller policy.
// Package listing assembles the canonical destination-marketplace record of
// a product and renders its description and summary views.
package listing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hazyhaar/itemrelay/skuopt"
)

const (
	// MaxSellerTags is the destination's search-tag limit.
	MaxSellerTags = 10
	// MaxGalleryImages is the destination's optional-image limit.
	MaxGalleryImages = 9
)

var (
	ErrNoImages     = errors.New("listing: no images")
	ErrMissingField = errors.New("listing: missing required field")
)

// FieldError names a required input left empty.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string { return "listing: missing required field " + e.Field }

func (e *FieldError) Is(target error) bool { return target == ErrMissingField }

// Images splits the image list into the representative image and the gallery.
type Images struct {
	Primary string   `json:"primary"`
	Gallery []string `json:"gallery"`
}

// OptionInfo is the option block: axis names and combination rows.
type OptionInfo struct {
	GroupNames         []string             `json:"groupNames"`
	Combinations       []skuopt.Combination `json:"combinations"`
	UseStockManagement bool                 `json:"useStockManagement"`
}

// Payload is the canonical destination record.
type Payload struct {
	Category      string `json:"category"`
	Name          string `json:"name"`
	DetailContent string `json:"detailContent"`
	Images        Images `json:"images"`
	SalePrice     int64  `json:"salePrice"`
	// StockQuantity is the stock of the cheapest SKU, not a sum over options.
	StockQuantity int         `json:"stockQuantity"`
	OptionInfo    *OptionInfo `json:"optionInfo,omitempty"`
	Policy        Policy      `json:"policyBlocks"`
	SellerTags    []string    `json:"sellerTags"`
	SellerCode    string      `json:"sellerCode,omitempty"`
}

// Input carries the normalized fields of one product.
type Input struct {
	Category   string
	Name       string
	DetailHTML string
	Images     []string
	Options    *skuopt.Result // prices already in destination currency
	SellerTags []string
	SellerCode string
	Policy     Policy
}

// Assemble builds the payload. It fails with ErrNoImages before any other
// check, then with a *FieldError for an empty category, name or option set.
func Assemble(in Input) (*Payload, error) {
	if len(in.Images) == 0 {
		return nil, ErrNoImages
	}
	switch {
	case strings.TrimSpace(in.Category) == "":
		return nil, &FieldError{Field: "category"}
	case strings.TrimSpace(in.Name) == "":
		return nil, &FieldError{Field: "name"}
	case in.Options == nil:
		return nil, &FieldError{Field: "options"}
	}

	gallery := append([]string{}, in.Images[1:]...)
	if len(gallery) > MaxGalleryImages {
		gallery = gallery[:MaxGalleryImages]
	}

	p := &Payload{
		Category:      in.Category,
		Name:          strings.TrimSpace(in.Name),
		DetailContent: in.DetailHTML,
		Images:        Images{Primary: in.Images[0], Gallery: gallery},
		SalePrice:     in.Options.Baseline,
		StockQuantity: in.Options.BaselineStock,
		Policy:        in.Policy,
		SellerTags:    SellerTags(in.SellerTags),
		SellerCode:    in.SellerCode,
	}
	if len(in.Options.GroupNames) > 0 {
		p.OptionInfo = &OptionInfo{
			GroupNames:         append([]string(nil), in.Options.GroupNames...),
			Combinations:       append([]skuopt.Combination{}, in.Options.Combinations...),
			UseStockManagement: true,
		}
	}
	return p, nil
}

// SellerTags trims, de-duplicates and caps tags at MaxSellerTags.
func SellerTags(tags []string) []string {
	out := make([]string, 0, min(len(tags), MaxSellerTags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == MaxSellerTags {
			break
		}
	}
	return out
}

// PriceRange returns the lowest and highest sale prices offered.
func (p *Payload) PriceRange() (lo, hi int64) {
	opts := &skuopt.Result{Baseline: p.SalePrice}
	if p.OptionInfo != nil {
		opts.Combinations = p.OptionInfo.Combinations
	}
	return opts.PriceRange()
}

func (p *Payload) String() string {
	return fmt.Sprintf("%s (%s, %d images)", p.Name, p.Category, 1+len(p.Images.Gallery))
}
