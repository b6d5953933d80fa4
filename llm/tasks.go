package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/hazyhaar/itemrelay/refine"
)

// ErrUnresolvedCategory is returned when the model's answer matches no candidate.
var ErrUnresolvedCategory = errors.New("llm: category answer matches no candidate")

var languages = map[string]string{
	"zh": "Chinese",
	"ko": "Korean",
	"en": "English",
	"ja": "Japanese",
}

func language(code string) string {
	if name, ok := languages[code]; ok {
		return name
	}
	return code
}

// Translate translates a product text between the given language codes.
func (c *Client) Translate(ctx context.Context, text, from, to string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	system := fmt.Sprintf("You translate %s to %s for a company that sources products from %s marketplaces "+
		"and sells them on a %s e-commerce platform. Translate the given text and answer in this JSON format: "+
		`{"translated_text": "your translation"}`, language(from), language(to), language(from), language(to))

	var out struct {
		Text string `json:"translated_text"`
	}
	if err := c.complete(ctx, c.cfg.TranslateModel, system, text, &out); err != nil {
		return "", fmt.Errorf("llm: translate: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}

// RefineName removes modifiers that do not describe what the product is.
func (c *Client) RefineName(ctx context.Context, name string) (string, error) {
	const system = "You find categories for products in an e-commerce company. Product names carry modifiers " +
		"(brand, year, marketing claims) that hide what the product is. Remove them and keep a short name that " +
		"describes the essence of the product, in the same language. Answer in this JSON format: " +
		`{"refined_product_name": "refined name"}` + "\n" +
		"Example: Baseus 2024 스포츠를 위한 새로운 진정한 무선 블루투스 이어폰, 고품질 외관, 소음 감소 -> 무선 블루투스 이어폰"

	var out struct {
		Name string `json:"refined_product_name"`
	}
	if err := c.complete(ctx, c.cfg.Model, system, name, &out); err != nil {
		return "", fmt.Errorf("llm: refine name: %w", err)
	}
	return strings.TrimSpace(out.Name), nil
}

// Classify asks the model to pick the candidate category that fits name and
// maps its answer back to a candidate id.
func (c *Client) Classify(ctx context.Context, name string, candidates []refine.Candidate) (string, error) {
	if len(candidates) == 0 {
		return "", fmt.Errorf("llm: classify: no candidates")
	}
	const system = "You work for an e-commerce business and decide which category a product belongs to. " +
		"Given a product name and candidate category names, pick the single most accurate category."

	var b strings.Builder
	fmt.Fprintf(&b, "Product name: %s\n\nCandidate categories:\n", name)
	for _, cand := range candidates {
		b.WriteString(cand.Name)
		b.WriteByte('\n')
	}
	b.WriteString("\nWhich category does the product belong to? Answer in this JSON format:\n{\"category\": \"category name\"}\n")

	var out struct {
		Category string `json:"category"`
	}
	if err := c.complete(ctx, c.cfg.Model, system, b.String(), &out); err != nil {
		return "", fmt.Errorf("llm: classify: %w", err)
	}
	id, ok := resolveCategory(out.Category, candidates, c.cfg.MinSimilarity)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnresolvedCategory, out.Category)
	}
	return id, nil
}

// resolveCategory maps answer to a candidate id: exact name first, then the
// best Jaro-Winkler match at or above minSim.
func resolveCategory(answer string, candidates []refine.Candidate, minSim float64) (string, bool) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", false
	}
	for _, cand := range candidates {
		if cand.Name == answer || cand.ID == answer {
			return cand.ID, true
		}
	}
	bestID, best := "", 0.0
	for _, cand := range candidates {
		if score := matchr.JaroWinkler(answer, cand.Name, false); score > best {
			bestID, best = cand.ID, score
		}
	}
	return bestID, best >= minSim
}

// SellerTags proposes up to 10 search keywords for name.
func (c *Client) SellerTags(ctx context.Context, name string) ([]string, error) {
	const system = "You run an overseas fulfillment business that sources products from overseas e-commerce sites " +
		"and sells them on Korean e-commerce sites. Think of 20 keywords people in Korea might search for to find " +
		"the given product. Answer in this JSON format: " + `{"keywords": ["keyword", "..."]}`

	var out struct {
		Keywords []string `json:"keywords"`
	}
	if err := c.complete(ctx, c.cfg.Model, system, name, &out); err != nil {
		return nil, fmt.Errorf("llm: seller tags: %w", err)
	}
	if len(out.Keywords) > 10 {
		out.Keywords = out.Keywords[:10]
	}
	return out.Keywords, nil
}
