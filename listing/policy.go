package listing

import (
	"errors"
	"fmt"
)

// Policy holds the seller's static listing terms: after-service contact,
// origin labelling, delivery and claim fees, certification exemptions and the
// product information notice. It is loaded from configuration and copied
// verbatim into every payload.
type Policy struct {
	AfterService     AfterService  `yaml:"after_service" json:"afterService"`
	Origin           Origin        `yaml:"origin" json:"origin"`
	Delivery         Delivery      `yaml:"delivery" json:"delivery"`
	Certification    Certification `yaml:"certification" json:"certification"`
	Notice           Notice        `yaml:"notice" json:"notice"`
	MinorPurchasable bool          `yaml:"minor_purchasable" json:"minorPurchasable"`
}

type AfterService struct {
	Phone string `yaml:"phone" json:"phone"`
	Guide string `yaml:"guide" json:"guide"`
}

type Origin struct {
	AreaCode string `yaml:"area_code" json:"areaCode"`
	Importer string `yaml:"importer" json:"importer"`
	Content  string `yaml:"content" json:"content"`
}

type Delivery struct {
	Type              string `yaml:"type" json:"type"`
	AttributeType     string `yaml:"attribute_type" json:"attributeType"`
	Company           string `yaml:"company" json:"company"`
	FeeType           string `yaml:"fee_type" json:"feeType"`
	BaseFee           int64  `yaml:"base_fee" json:"baseFee"`
	FeePayType        string `yaml:"fee_pay_type" json:"feePayType"`
	AreaType          string `yaml:"area_type" json:"areaType"`
	Area2ExtraFee     int64  `yaml:"area2_extra_fee" json:"area2ExtraFee"`
	Area3ExtraFee     int64  `yaml:"area3_extra_fee" json:"area3ExtraFee"`
	ReturnFee         int64  `yaml:"return_fee" json:"returnFee"`
	ExchangeFee       int64  `yaml:"exchange_fee" json:"exchangeFee"`
	ShippingAddressID int64  `yaml:"shipping_address_id" json:"shippingAddressId"`
	ReturnAddressID   int64  `yaml:"return_address_id" json:"returnAddressId"`
}

type Certification struct {
	KCExemptionType             string `yaml:"kc_exemption_type" json:"kcExemptionType"`
	KCCertifiedProductExclusion string `yaml:"kc_certified_product_exclusion" json:"kcCertifiedProductExclusion"`
}

// Notice is the "ETC" product information notice.
type Notice struct {
	Type                     string `yaml:"type" json:"type"`
	ReturnCostReason         string `yaml:"return_cost_reason" json:"returnCostReason"`
	NoRefundReason           string `yaml:"no_refund_reason" json:"noRefundReason"`
	QualityAssuranceStandard string `yaml:"quality_assurance_standard" json:"qualityAssuranceStandard"`
	CompensationProcedure    string `yaml:"compensation_procedure" json:"compensationProcedure"`
	TroubleShootingContents  string `yaml:"trouble_shooting_contents" json:"troubleShootingContents"`
	ItemName                 string `yaml:"item_name" json:"itemName"`
	ModelName                string `yaml:"model_name" json:"modelName"`
	Manufacturer             string `yaml:"manufacturer" json:"manufacturer"`
	CustomerServicePhone     string `yaml:"customer_service_phone" json:"customerServicePhone"`
}

// ApplyDefaults fills destination enum values left empty. Seller-specific
// values (phones, courier, fees, addresses) have no default.
func (p *Policy) ApplyDefaults() {
	d := &p.Delivery
	if d.Type == "" {
		d.Type = "DELIVERY"
	}
	if d.AttributeType == "" {
		d.AttributeType = "NORMAL"
	}
	if d.FeeType == "" {
		d.FeeType = "FREE"
	}
	if d.FeePayType == "" {
		d.FeePayType = "PREPAID"
	}
	if d.AreaType == "" {
		d.AreaType = "AREA_3"
	}
	if p.Certification.KCExemptionType == "" {
		p.Certification.KCExemptionType = "OVERSEAS"
	}
	if p.Certification.KCCertifiedProductExclusion == "" {
		p.Certification.KCCertifiedProductExclusion = "KC_EXEMPTION_OBJECT"
	}
	if p.Notice.Type == "" {
		p.Notice.Type = "ETC"
	}
	if p.Origin.AreaCode == "" {
		p.Origin.AreaCode = "0200037" // overseas, China
	}
}

// ErrInvalidPolicy is matched by errors returned from Validate.
var ErrInvalidPolicy = errors.New("listing: invalid policy")

// Validate reports the first required seller field left empty.
func (p *Policy) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"after_service.phone", p.AfterService.Phone},
		{"after_service.guide", p.AfterService.Guide},
		{"origin.importer", p.Origin.Importer},
		{"delivery.company", p.Delivery.Company},
		{"notice.customer_service_phone", p.Notice.CustomerServicePhone},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidPolicy, r.name)
		}
	}
	if p.Delivery.ShippingAddressID == 0 || p.Delivery.ReturnAddressID == 0 {
		return fmt.Errorf("%w: delivery address ids are required", ErrInvalidPolicy)
	}
	return nil
}
