// CLAUDE:SUMMARY Refine pipeline: extracted vendor product → translated, classified, re-hosted, priced canonical payload.
// Package refine turns an extracted vendor product into a canonical
// destination payload. Text transforms, category lookup and image hosting are
// delegated to collaborators; normalization and assembly are done locally.
package refine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/itemrelay/listing"
	"github.com/hazyhaar/itemrelay/skuopt"
)

// Candidate is a destination category offered to the Classifier.
type Candidate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
}

// Translator translates short product texts.
type Translator interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// NameRefiner strips marketing modifiers from a translated product name.
type NameRefiner interface {
	RefineName(ctx context.Context, name string) (string, error)
}

// CandidateSource returns categories near a product name.
type CandidateSource interface {
	Candidates(ctx context.Context, query string, limit int) ([]Candidate, error)
}

// Classifier picks one of candidates for name and returns its id.
type Classifier interface {
	Classify(ctx context.Context, name string, candidates []Candidate) (string, error)
}

// Tagger proposes destination search tags.
type Tagger interface {
	SellerTags(ctx context.Context, name string) ([]string, error)
}

// ImageHost re-hosts vendor images on the destination and returns their new URLs.
type ImageHost interface {
	Upload(ctx context.Context, urls []string) ([]string, error)
}

// ErrNoCandidates is returned when the category index has nothing near the name.
var ErrNoCandidates = errors.New("refine: no category candidates")

// StageError tags a failure with the pipeline stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("refine: %s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Config wires a Refiner.
type Config struct {
	Translator  Translator
	NameRefiner NameRefiner // optional
	Candidates  CandidateSource
	Classifier  Classifier
	Tagger      Tagger    // optional
	Images      ImageHost // optional: vendor URLs are kept

	Pricing        Pricing
	Policy         listing.Policy
	Options        []skuopt.Option
	CandidateLimit int
	// TranslateOptions also translates option group and value names.
	TranslateOptions bool
	SourceLang       string
	TargetLang       string
	Logger           *slog.Logger
}

func (c *Config) defaults() {
	c.Pricing.defaults()
	if c.CandidateLimit <= 0 {
		c.CandidateLimit = 15
	}
	if c.SourceLang == "" {
		c.SourceLang = "zh"
	}
	if c.TargetLang == "" {
		c.TargetLang = "ko"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Refiner runs the refine pipeline. It is safe for concurrent use if its
// collaborators are.
type Refiner struct {
	cfg Config
}

// New validates cfg and returns a Refiner.
func New(cfg Config) (*Refiner, error) {
	cfg.defaults()
	switch {
	case cfg.Translator == nil:
		return nil, errors.New("refine: translator is required")
	case cfg.Candidates == nil:
		return nil, errors.New("refine: candidate source is required")
	case cfg.Classifier == nil:
		return nil, errors.New("refine: classifier is required")
	}
	return &Refiner{cfg: cfg}, nil
}

// Refine produces the destination payload of p. Normalization and assembly
// failures are returned as is; collaborator failures as *StageError.
func (r *Refiner) Refine(ctx context.Context, p *Product) (*listing.Payload, error) {
	log := r.cfg.Logger.With("item_id", p.ItemID)

	if len(p.Images) == 0 {
		return nil, listing.ErrNoImages
	}
	props := p.Props
	if r.cfg.TranslateOptions && len(props) > 0 {
		var err error
		if props, err = r.translateProps(ctx, props); err != nil {
			return nil, &StageError{Stage: "translate options", Err: err}
		}
	}
	opts, err := skuopt.Normalize(props, p.Records, r.cfg.Options...)
	if err != nil {
		return nil, err
	}
	opts = opts.Scale(r.cfg.Pricing.Convert)

	name, err := r.cfg.Translator.Translate(ctx, p.Title, r.cfg.SourceLang, r.cfg.TargetLang)
	if err != nil {
		return nil, &StageError{Stage: "translate", Err: err}
	}

	category, err := r.category(ctx, name)
	if err != nil {
		return nil, err
	}

	var tags []string
	if r.cfg.Tagger != nil {
		if tags, err = r.cfg.Tagger.SellerTags(ctx, name); err != nil {
			log.Warn("refine: seller tags failed", "error", err)
			tags = nil
		}
	}

	images := p.Images
	if r.cfg.Images != nil {
		if images, err = r.cfg.Images.Upload(ctx, p.Images); err != nil {
			return nil, &StageError{Stage: "images", Err: err}
		}
	}

	payload, err := listing.Assemble(listing.Input{
		Category:   category,
		Name:       name,
		DetailHTML: listing.DetailHTML(p.DescriptionImages),
		Images:     images,
		Options:    opts,
		SellerTags: tags,
		SellerCode: p.ItemID,
		Policy:     r.cfg.Policy,
	})
	if err != nil {
		return nil, err
	}
	log.Info("refine: payload assembled",
		"category", category, "combinations", len(opts.Combinations), "dropped", opts.Dropped)
	return payload, nil
}

func (r *Refiner) category(ctx context.Context, name string) (string, error) {
	query := name
	if r.cfg.NameRefiner != nil {
		refined, err := r.cfg.NameRefiner.RefineName(ctx, name)
		if err != nil {
			return "", &StageError{Stage: "refine name", Err: err}
		}
		if refined != "" {
			query = refined
		}
	}
	cands, err := r.cfg.Candidates.Candidates(ctx, query, r.cfg.CandidateLimit)
	if err != nil {
		return "", &StageError{Stage: "candidates", Err: err}
	}
	if len(cands) == 0 {
		return "", &StageError{Stage: "candidates", Err: fmt.Errorf("%w for %q", ErrNoCandidates, query)}
	}
	id, err := r.cfg.Classifier.Classify(ctx, query, cands)
	if err != nil {
		return "", &StageError{Stage: "classify", Err: err}
	}
	return id, nil
}

// translateProps translates each distinct group and value name once.
func (r *Refiner) translateProps(ctx context.Context, props []skuopt.Property) ([]skuopt.Property, error) {
	cache := make(map[string]string)
	tr := func(s string) (string, error) {
		if s == "" {
			return s, nil
		}
		if v, ok := cache[s]; ok {
			return v, nil
		}
		v, err := r.cfg.Translator.Translate(ctx, s, r.cfg.SourceLang, r.cfg.TargetLang)
		if err != nil {
			return "", err
		}
		cache[s] = v
		return v, nil
	}

	out := make([]skuopt.Property, len(props))
	for i, p := range props {
		name, err := tr(p.Name)
		if err != nil {
			return nil, err
		}
		out[i] = skuopt.Property{ID: p.ID, Name: name, Values: make([]skuopt.Value, len(p.Values))}
		for j, v := range p.Values {
			vn, err := tr(v.Name)
			if err != nil {
				return nil, err
			}
			out[i].Values[j] = skuopt.Value{ID: v.ID, Name: vn, Image: v.Image}
		}
	}
	return out, nil
}
