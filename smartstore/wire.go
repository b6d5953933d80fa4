package smartstore

import (
	"strconv"

	"github.com/hazyhaar/itemrelay/listing"
)

// ProductRequest is the body of POST /external/v2/products.
type ProductRequest struct {
	OriginProduct            OriginProduct            `json:"originProduct"`
	SmartstoreChannelProduct SmartstoreChannelProduct `json:"smartstoreChannelProduct"`
}

type OriginProduct struct {
	StatusType      string          `json:"statusType"`
	LeafCategoryID  string          `json:"leafCategoryId"`
	Name            string          `json:"name"`
	DetailContent   string          `json:"detailContent"`
	Images          ProductImages   `json:"images"`
	SalePrice       int64           `json:"salePrice"`
	StockQuantity   int             `json:"stockQuantity"`
	DeliveryInfo    DeliveryInfo    `json:"deliveryInfo"`
	DetailAttribute DetailAttribute `json:"detailAttribute"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type ProductImages struct {
	RepresentativeImage ImageURL   `json:"representativeImage"`
	OptionalImages      []ImageURL `json:"optionalImages,omitempty"`
}

type DeliveryInfo struct {
	DeliveryType          string            `json:"deliveryType"`
	DeliveryAttributeType string            `json:"deliveryAttributeType"`
	DeliveryCompany       string            `json:"deliveryCompany"`
	DeliveryFee           DeliveryFee       `json:"deliveryFee"`
	ClaimDeliveryInfo     ClaimDeliveryInfo `json:"claimDeliveryInfo"`
}

type DeliveryFee struct {
	DeliveryFeeType    string            `json:"deliveryFeeType"`
	BaseFee            int64             `json:"baseFee"`
	DeliveryFeePayType string            `json:"deliveryFeePayType"`
	DeliveryFeeByArea  DeliveryFeeByArea `json:"deliveryFeeByArea"`
}

type DeliveryFeeByArea struct {
	DeliveryAreaType string `json:"deliveryAreaType"`
	Area2ExtraFee    int64  `json:"area2extraFee"`
	Area3ExtraFee    int64  `json:"area3extraFee"`
}

type ClaimDeliveryInfo struct {
	ReturnDeliveryFee   int64 `json:"returnDeliveryFee"`
	ExchangeDeliveryFee int64 `json:"exchangeDeliveryFee"`
	ShippingAddressID   int64 `json:"shippingAddressId"`
	ReturnAddressID     int64 `json:"returnAddressId"`
}

type DetailAttribute struct {
	AfterServiceInfo                  AfterServiceInfo                  `json:"afterServiceInfo"`
	OriginAreaInfo                    OriginAreaInfo                    `json:"originAreaInfo"`
	SellerCodeInfo                    SellerCodeInfo                    `json:"sellerCodeInfo"`
	OptionInfo                        *OptionInfo                       `json:"optionInfo,omitempty"`
	CertificationTargetExcludeContent CertificationTargetExcludeContent `json:"certificationTargetExcludeContent"`
	MinorPurchasable                  bool                              `json:"minorPurchasable"`
	ProductInfoProvidedNotice         ProductInfoProvidedNotice         `json:"productInfoProvidedNotice"`
	SeoInfo                           SeoInfo                           `json:"seoInfo"`
}

type AfterServiceInfo struct {
	AfterServiceTelephoneNumber string `json:"afterServiceTelephoneNumber"`
	AfterServiceGuideContent    string `json:"afterServiceGuideContent"`
}

type OriginAreaInfo struct {
	OriginAreaCode string `json:"originAreaCode"`
	Importer       string `json:"importer"`
	Content        string `json:"content,omitempty"`
}

type SellerCodeInfo struct {
	SellerManagementCode string `json:"sellerManagementCode"`
}

// OptionInfo carries up to four named axes; unused names are omitted.
type OptionInfo struct {
	OptionCombinationGroupNames OptionGroupNames    `json:"optionCombinationGroupNames"`
	OptionCombinations          []OptionCombination `json:"optionCombinations"`
	UseStockManagement          bool                `json:"useStockManagement"`
}

type OptionGroupNames struct {
	OptionGroupName1 string `json:"optionGroupName1,omitempty"`
	OptionGroupName2 string `json:"optionGroupName2,omitempty"`
	OptionGroupName3 string `json:"optionGroupName3,omitempty"`
	OptionGroupName4 string `json:"optionGroupName4,omitempty"`
}

type OptionCombination struct {
	OptionName1       string `json:"optionName1,omitempty"`
	OptionName2       string `json:"optionName2,omitempty"`
	OptionName3       string `json:"optionName3,omitempty"`
	OptionName4       string `json:"optionName4,omitempty"`
	StockQuantity     int    `json:"stockQuantity"`
	Price             int64  `json:"price"`
	SellerManagerCode string `json:"sellerManagerCode,omitempty"`
	Usable            bool   `json:"usable"`
}

type CertificationTargetExcludeContent struct {
	KCExemptionType               string `json:"kcExemptionType"`
	KCCertifiedProductExclusionYn string `json:"kcCertifiedProductExclusionYn"`
}

type ProductInfoProvidedNotice struct {
	Type string    `json:"productInfoProvidedNoticeType"`
	Etc  NoticeEtc `json:"etc"`
}

type NoticeEtc struct {
	ReturnCostReason           string `json:"returnCostReason"`
	NoRefundReason             string `json:"noRefundReason"`
	QualityAssuranceStandard   string `json:"qualityAssuranceStandard"`
	CompensationProcedure      string `json:"compensationProcedure"`
	TroubleShootingContents    string `json:"troubleShootingContents"`
	ItemName                   string `json:"itemName"`
	ModelName                  string `json:"modelName"`
	Manufacturer               string `json:"manufacturer"`
	CustomerServicePhoneNumber string `json:"customerServicePhoneNumber"`
}

type SeoInfo struct {
	SellerTags []SellerTag `json:"sellerTags,omitempty"`
}

type SellerTag struct {
	Text string `json:"text"`
}

type SmartstoreChannelProduct struct {
	NaverShoppingRegistration       bool   `json:"naverShoppingRegistration"`
	ChannelProductDisplayStatusType string `json:"channelProductDisplayStatusType"`
}

// NewProductRequest maps a canonical payload onto the SmartStore product schema.
func NewProductRequest(p *listing.Payload) *ProductRequest {
	pol := p.Policy
	d := pol.Delivery

	images := ProductImages{RepresentativeImage: ImageURL{URL: p.Images.Primary}}
	for _, u := range p.Images.Gallery {
		images.OptionalImages = append(images.OptionalImages, ImageURL{URL: u})
	}

	var tags []SellerTag
	for _, t := range p.SellerTags {
		tags = append(tags, SellerTag{Text: t})
	}

	return &ProductRequest{
		OriginProduct: OriginProduct{
			StatusType:     "SALE",
			LeafCategoryID: p.Category,
			Name:           p.Name,
			DetailContent:  p.DetailContent,
			Images:         images,
			SalePrice:      p.SalePrice,
			StockQuantity:  p.StockQuantity,
			DeliveryInfo: DeliveryInfo{
				DeliveryType:          d.Type,
				DeliveryAttributeType: d.AttributeType,
				DeliveryCompany:       d.Company,
				DeliveryFee: DeliveryFee{
					DeliveryFeeType:    d.FeeType,
					BaseFee:            d.BaseFee,
					DeliveryFeePayType: d.FeePayType,
					DeliveryFeeByArea: DeliveryFeeByArea{
						DeliveryAreaType: d.AreaType,
						Area2ExtraFee:    d.Area2ExtraFee,
						Area3ExtraFee:    d.Area3ExtraFee,
					},
				},
				ClaimDeliveryInfo: ClaimDeliveryInfo{
					ReturnDeliveryFee:   d.ReturnFee,
					ExchangeDeliveryFee: d.ExchangeFee,
					ShippingAddressID:   d.ShippingAddressID,
					ReturnAddressID:     d.ReturnAddressID,
				},
			},
			DetailAttribute: DetailAttribute{
				AfterServiceInfo: AfterServiceInfo{
					AfterServiceTelephoneNumber: pol.AfterService.Phone,
					AfterServiceGuideContent:    pol.AfterService.Guide,
				},
				OriginAreaInfo: OriginAreaInfo{
					OriginAreaCode: pol.Origin.AreaCode,
					Importer:       pol.Origin.Importer,
					Content:        pol.Origin.Content,
				},
				SellerCodeInfo: SellerCodeInfo{SellerManagementCode: p.SellerCode},
				OptionInfo:     optionInfo(p.OptionInfo),
				CertificationTargetExcludeContent: CertificationTargetExcludeContent{
					KCExemptionType:               pol.Certification.KCExemptionType,
					KCCertifiedProductExclusionYn: pol.Certification.KCCertifiedProductExclusion,
				},
				MinorPurchasable: pol.MinorPurchasable,
				ProductInfoProvidedNotice: ProductInfoProvidedNotice{
					Type: pol.Notice.Type,
					Etc: NoticeEtc{
						ReturnCostReason:           pol.Notice.ReturnCostReason,
						NoRefundReason:             pol.Notice.NoRefundReason,
						QualityAssuranceStandard:   pol.Notice.QualityAssuranceStandard,
						CompensationProcedure:      pol.Notice.CompensationProcedure,
						TroubleShootingContents:    pol.Notice.TroubleShootingContents,
						ItemName:                   pol.Notice.ItemName,
						ModelName:                  pol.Notice.ModelName,
						Manufacturer:               pol.Notice.Manufacturer,
						CustomerServicePhoneNumber: pol.Notice.CustomerServicePhone,
					},
				},
				SeoInfo: SeoInfo{SellerTags: tags},
			},
		},
		SmartstoreChannelProduct: SmartstoreChannelProduct{
			NaverShoppingRegistration:       true,
			ChannelProductDisplayStatusType: "ON",
		},
	}
}

func optionInfo(o *listing.OptionInfo) *OptionInfo {
	if o == nil {
		return nil
	}
	at := func(s []string, i int) string {
		if i < len(s) {
			return s[i]
		}
		return ""
	}
	out := &OptionInfo{
		OptionCombinationGroupNames: OptionGroupNames{
			OptionGroupName1: at(o.GroupNames, 0),
			OptionGroupName2: at(o.GroupNames, 1),
			OptionGroupName3: at(o.GroupNames, 2),
			OptionGroupName4: at(o.GroupNames, 3),
		},
		OptionCombinations: make([]OptionCombination, 0, len(o.Combinations)),
		UseStockManagement: o.UseStockManagement,
	}
	for _, c := range o.Combinations {
		out.OptionCombinations = append(out.OptionCombinations, OptionCombination{
			OptionName1:       at(c.Names, 0),
			OptionName2:       at(c.Names, 1),
			OptionName3:       at(c.Names, 2),
			OptionName4:       at(c.Names, 3),
			StockQuantity:     c.Stock,
			Price:             c.PriceDelta,
			SellerManagerCode: c.SKUID,
			Usable:            true,
		})
	}
	return out
}

// productNo renders the numeric product numbers returned by the API.
func productNo(n int64) string {
	if n == 0 {
		return ""
	}
	return strconv.FormatInt(n, 10)
}
