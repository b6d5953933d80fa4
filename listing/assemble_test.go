package listing

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/itemrelay/skuopt"
)

func testPolicy() Policy {
	p := Policy{
		AfterService: AfterService{Phone: "010-0000-0000", Guide: "평일 10-17시"},
		Origin:       Origin{Importer: "relay trading"},
		Delivery: Delivery{
			Company: "CJGLS", Area2ExtraFee: 5000, Area3ExtraFee: 5000,
			ReturnFee: 20000, ExchangeFee: 40000, ShippingAddressID: 11, ReturnAddressID: 12,
		},
		Notice:           Notice{CustomerServicePhone: "010-0000-0000", ItemName: "상품상세 참조"},
		MinorPurchasable: true,
	}
	p.ApplyDefaults()
	return p
}

func colorOptions() *skuopt.Result {
	return &skuopt.Result{
		GroupNames: []string{"color"},
		Combinations: []skuopt.Combination{
			{SKUID: "s1", Names: []string{"red"}, Stock: 5, PriceDelta: 0},
			{SKUID: "s3", Names: []string{"blue"}, Stock: 2, PriceDelta: 300},
		},
		Baseline:      1000,
		BaselineStock: 5,
	}
}

func validInput() Input {
	return Input{
		Category:   "50000803",
		Name:       " 무선 블루투스 이어폰 ",
		DetailHTML: DetailHTML([]string{"https://img/d1.jpg"}),
		Images:     []string{"https://img/1.jpg", "https://img/2.jpg", "https://img/3.jpg"},
		Options:    colorOptions(),
		SellerTags: []string{"이어폰", "", "블루투스", "이어폰"},
		SellerCode: "7001",
		Policy:     testPolicy(),
	}
}

func TestAssemble(t *testing.T) {
	p, err := Assemble(validInput())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if p.Name != "무선 블루투스 이어폰" {
		t.Fatalf("name: got %q", p.Name)
	}
	if diff := cmp.Diff(Images{Primary: "https://img/1.jpg", Gallery: []string{"https://img/2.jpg", "https://img/3.jpg"}}, p.Images); diff != "" {
		t.Fatalf("images (-want +got):\n%s", diff)
	}
	if p.SalePrice != 1000 || p.StockQuantity != 5 {
		t.Fatalf("price/stock: got %d/%d, want 1000/5", p.SalePrice, p.StockQuantity)
	}
	if p.OptionInfo == nil || !p.OptionInfo.UseStockManagement {
		t.Fatalf("option info: got %+v, want stock management on", p.OptionInfo)
	}
	if diff := cmp.Diff([]string{"이어폰", "블루투스"}, p.SellerTags); diff != "" {
		t.Fatalf("seller tags (-want +got):\n%s", diff)
	}
	if p.Policy.Delivery.Company != "CJGLS" {
		t.Fatalf("policy not copied: %+v", p.Policy.Delivery)
	}
}

func TestAssemble_NoImagesWins(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{"otherwise valid", func() Input { in := validInput(); in.Images = nil; return in }()},
		{"everything empty", Input{}},
		{"empty slice and no options", Input{Category: "1", Name: "n", Images: []string{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Assemble(tt.in)
			if !errors.Is(err, ErrNoImages) {
				t.Fatalf("Assemble: got %v, want ErrNoImages", err)
			}
		})
	}
}

func TestAssemble_MissingFields(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(*Input)
	}{
		{"category", func(in *Input) { in.Category = "" }},
		{"name", func(in *Input) { in.Name = "  " }},
		{"options", func(in *Input) { in.Options = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := Assemble(in)
			var fe *FieldError
			if !errors.As(err, &fe) || fe.Field != tt.field {
				t.Fatalf("Assemble: got %v, want FieldError{%s}", err, tt.field)
			}
			if !errors.Is(err, ErrMissingField) {
				t.Fatalf("Assemble: %v does not match ErrMissingField", err)
			}
		})
	}
}

func TestAssemble_SingleSkuHasNoOptionBlock(t *testing.T) {
	in := validInput()
	in.Options = &skuopt.Result{Baseline: 2500, BaselineStock: 40, Combinations: []skuopt.Combination{{Names: []string{}}}}
	p, err := Assemble(in)
	if err != nil {
		t.Fatal(err)
	}
	if p.OptionInfo != nil {
		t.Fatalf("option info: got %+v, want nil", p.OptionInfo)
	}
	data, _ := json.Marshal(p)
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["optionInfo"]; ok {
		t.Fatal("optionInfo present in JSON for single-SKU product")
	}
}

func TestAssemble_GalleryCap(t *testing.T) {
	in := validInput()
	in.Images = make([]string, 15)
	for i := range in.Images {
		in.Images[i] = "https://img/x.jpg"
	}
	p, err := Assemble(in)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Images.Gallery) != MaxGalleryImages {
		t.Fatalf("gallery: got %d, want %d", len(p.Images.Gallery), MaxGalleryImages)
	}
}

func TestSellerTags_Cap(t *testing.T) {
	var tags []string
	for _, r := range "abcdefghijklmnop" {
		tags = append(tags, string(r))
	}
	if got := SellerTags(tags); len(got) != MaxSellerTags {
		t.Fatalf("SellerTags: got %d, want %d", len(got), MaxSellerTags)
	}
}

func TestPolicy_Validate(t *testing.T) {
	p := testPolicy()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	p.Delivery.Company = ""
	if err := p.Validate(); !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("Validate: got %v, want ErrInvalidPolicy", err)
	}
}

func TestPayload_PriceRange(t *testing.T) {
	p, err := Assemble(validInput())
	if err != nil {
		t.Fatal(err)
	}
	lo, hi := p.PriceRange()
	if lo != 1000 || hi != 1300 {
		t.Fatalf("PriceRange: got %d..%d, want 1000..1300", lo, hi)
	}
}

func TestPayload_PriceRangeWithoutOptions(t *testing.T) {
	p := &Payload{SalePrice: 4200}
	if lo, hi := p.PriceRange(); lo != 4200 || hi != 4200 {
		t.Fatalf("PriceRange: got %d..%d, want 4200..4200", lo, hi)
	}
}

func TestAssemble_StockIsBaselineStock(t *testing.T) {
	props := []skuopt.Property{{
		ID: "p1", Name: "color",
		Values: []skuopt.Value{{ID: "v1", Name: "red"}, {ID: "v2", Name: "blue"}},
	}}
	records := []skuopt.Record{
		{SKUID: "s1", Price: 1000, Stock: 5, Path: []skuopt.PathEntry{{PropertyID: "p1", ValueID: "v1"}}},
		{SKUID: "s2", Price: 1200, Stock: 3, Path: []skuopt.PathEntry{{PropertyID: "p1", ValueID: "v2"}}},
	}
	opts, err := skuopt.Normalize(props, records)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	in := validInput()
	in.Options = opts
	p, err := Assemble(in)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if p.SalePrice != 1000 || p.StockQuantity != 5 {
		t.Fatalf("price/stock: got %d/%d, want 1000/5", p.SalePrice, p.StockQuantity)
	}
}
