package refine

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hazyhaar/itemrelay/capture"
	"github.com/hazyhaar/itemrelay/listing"
	"github.com/hazyhaar/itemrelay/skuopt"
)

// ErrNoItemID is returned when the detail body carries no item id.
var ErrNoItemID = errors.New("refine: detail data has no item id")

// Product is the vendor record extracted from one capture, before any
// translation or currency conversion.
type Product struct {
	ItemID            string
	Title             string
	ShopName          string
	Images            []string
	Props             []skuopt.Property
	Records           []skuopt.Record
	DescriptionImages []string
}

type detailDoc struct {
	Data struct {
		Item struct {
			ItemID string   `json:"itemId"`
			Title  string   `json:"title"`
			Images []string `json:"images"`
		} `json:"item"`
		Seller struct {
			ShopName string `json:"shopName"`
		} `json:"seller"`
	} `json:"data"`
}

// Extract reads a Product out of the two channel bodies of a capture.
func Extract(c capture.Capture) (*Product, error) {
	detail, desc := c.Detail(), c.Description()
	if detail == nil || desc == nil {
		return nil, fmt.Errorf("refine: extract: incomplete capture")
	}

	var doc detailDoc
	if err := json.Unmarshal(detail, &doc); err != nil {
		return nil, fmt.Errorf("refine: parse detail: %w", err)
	}
	item := doc.Data.Item
	if item.ItemID == "" {
		return nil, ErrNoItemID
	}

	props, records, err := skuopt.FromVendor(detail)
	if err != nil {
		return nil, err
	}
	descImages, err := listing.DescriptionImages(desc)
	if err != nil {
		return nil, err
	}

	images := make([]string, 0, len(item.Images))
	for _, u := range item.Images {
		if u != "" {
			images = append(images, listing.EnsureHTTPS(u))
		}
	}
	return &Product{
		ItemID:            item.ItemID,
		Title:             item.Title,
		ShopName:          doc.Data.Seller.ShopName,
		Images:            images,
		Props:             props,
		Records:           records,
		DescriptionImages: descImages,
	}, nil
}

// ItemID returns the item id of a detail body without extracting the rest.
func ItemID(detail json.RawMessage) (string, error) {
	var doc detailDoc
	if err := json.Unmarshal(detail, &doc); err != nil {
		return "", fmt.Errorf("refine: parse detail: %w", err)
	}
	if doc.Data.Item.ItemID == "" {
		return "", ErrNoItemID
	}
	return doc.Data.Item.ItemID, nil
}
