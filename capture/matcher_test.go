package capture

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/hazyhaar/itemrelay/jsonp"
)

const (
	detailURL = "https://h5api.m.taobao.com/h5/mtop.taobao.pcdetail.data.get/1.0/?jsv=2.7.2&data=%7B%7D"
	descURL   = "https://h5api.m.taobao.com/h5/mtop.taobao.detail.getdesc/7.0/?jsv=2.7.2&callback=mtopjsonp3"
	otherURL  = "https://g.alicdn.com/some/script.js"

	detailJSON   = `{"api":"mtop.taobao.pcdetail.data.get","data":{"seller":{"sellerId":"221"},"item":{"itemId":"7001","title":"T"}}}`
	descRichJSON = `{"api":"mtop.taobao.detail.getdesc","data":{"components":{"componentData":{"desc_richtext_pc":{"model":{"text":"<img src=\"//img.alicdn.com/a.jpg\">"}}}}}}`
	descPicJSON  = `{"api":"mtop.taobao.detail.getdesc","data":{"components":{"componentData":{"detail_pic_1":{"model":{"picUrl":"//img.alicdn.com/b.jpg"}}}}}}`
)

func TestClassify(t *testing.T) {
	m := NewMatcher(ProductRules())

	tests := []struct {
		name string
		url  string
		body string
		want Channel
	}{
		{"detail plain", detailURL, detailJSON, ChannelDetail},
		{"detail jsonp", detailURL, "mtopjsonp1(" + detailJSON + ")", ChannelDetail},
		{"description rich text", descURL, "mtopjsonp3(" + descRichJSON + ")", ChannelDescription},
		{"description detail_pic layout", descURL, "mtopjsonp3(" + descPicJSON + ")", ChannelDescription},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, body, err := m.Classify(tt.url, []byte(tt.body))
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if ch != tt.want {
				t.Fatalf("channel: got %s, want %s", ch, tt.want)
			}
			if !json.Valid(body) {
				t.Fatalf("body not valid JSON: %s", body)
			}
		})
	}
}

func TestClassify_Rejections(t *testing.T) {
	m := NewMatcher(ProductRules())

	tests := []struct {
		name string
		url  string
		body string
		want error
	}{
		{"unrelated url", otherURL, detailJSON, ErrNoMatch},
		{"error envelope under detail url", detailURL, `{"ret":["FAIL_SYS_USER_VALIDATE::"],"data":{}}`, ErrShapeMismatch},
		{"empty seller", detailURL, `{"data":{"seller":{}}}`, ErrShapeMismatch},
		{"description without components", descURL, `mtopjsonp2({"data":{"components":{"componentData":{"other":{}}}}})`, ErrShapeMismatch},
		{"garbage body", detailURL, `<html>captcha</html>`, jsonp.ErrUnrecognizedEnvelope},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, body, err := m.Classify(tt.url, []byte(tt.body))
			if !errors.Is(err, tt.want) {
				t.Fatalf("Classify: got %v, want %v", err, tt.want)
			}
			if body != nil {
				t.Fatalf("Classify: got body %s alongside error", body)
			}
		})
	}
}

func TestClassify_FirstRuleWins(t *testing.T) {
	m := NewMatcher([]Rule{
		{Channel: "a", URLContains: "api/", Decode: jsonp.DecodeStrict},
		{Channel: "b", URLContains: "api/item", Decode: jsonp.DecodeStrict},
	})
	ch, _, err := m.Classify("https://x/api/item", []byte(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	if ch != "a" {
		t.Fatalf("channel: got %s, want a", ch)
	}
}

func TestMatcher_Channels_Distinct(t *testing.T) {
	rules := append(ProductRules(), Rule{Channel: ChannelDetail, URLContains: "pcdetail.alt", Decode: jsonp.Decode})
	got := NewMatcher(rules).Channels()
	if len(got) != 2 || got[0] != ChannelDetail || got[1] != ChannelDescription {
		t.Fatalf("Channels: got %v", got)
	}
}

func TestHasSearchItems(t *testing.T) {
	if !HasSearchItems(json.RawMessage(`{"data":{"itemsArray":[{"title":"x"}]}}`)) {
		t.Fatal("HasSearchItems: want true")
	}
	if HasSearchItems(json.RawMessage(`{"data":{"itemsArray":[]}}`)) {
		t.Fatal("HasSearchItems: want false for empty array")
	}
}
