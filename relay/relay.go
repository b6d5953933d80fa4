// CLAUDE:SUMMARY Main relay orchestrator: stores captures, runs the refine pipeline, uploads to SmartStore, lists and summarizes products.
// Package relay is the product relisting service.
//
// It sits between the crawler (page captures) and the destination
// marketplace. The pipeline:
//
//	crawl → relay.Ingest → store (captured) → relay.Process → refine → store (processed) → relay.Upload → smartstore
//
// Usage:
//
//	r, err := relay.New(cfg, logger)
//	defer r.Close()
//	r.RegisterMCP(mcpServer)
//	http.ListenAndServe(cfg.HTTP.Addr, r.Handler())
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/itemrelay/capture"
	"github.com/hazyhaar/itemrelay/crawl"
	"github.com/hazyhaar/itemrelay/idgen"
	"github.com/hazyhaar/itemrelay/listing"
	"github.com/hazyhaar/itemrelay/llm"
	"github.com/hazyhaar/itemrelay/refine"
	"github.com/hazyhaar/itemrelay/relay/internal/store"
	"github.com/hazyhaar/itemrelay/smartstore"
	"github.com/hazyhaar/itemrelay/sourcing"
)

var (
	ErrNotFound   = errors.New("relay: product not found")
	ErrNoCrawler  = errors.New("relay: no crawler configured")
	ErrNoRegistry = errors.New("relay: no destination client configured")
)

// TextModel is the set of text transforms the refine pipeline needs.
type TextModel interface {
	refine.Translator
	refine.NameRefiner
	refine.Classifier
	refine.Tagger
}

// Registrar creates products on the destination marketplace.
type Registrar interface {
	Register(ctx context.Context, p *listing.Payload) (*smartstore.Registration, error)
}

// Crawler visits vendor pages.
type Crawler interface {
	Run(ctx context.Context, urls []string, fn func(context.Context, crawl.Result) error) (crawl.Stats, error)
	Search(ctx context.Context, keyword string) (json.RawMessage, error)
}

// Option configures a Relay.
type Option func(*options)

type options struct {
	text      TextModel
	images    refine.ImageHost
	registrar Registrar
	crawler   Crawler
	store     *store.Store
	noImages  bool
}

// WithTextModel replaces the LLM client built from Config.LLM.
func WithTextModel(m TextModel) Option { return func(o *options) { o.text = m } }

// WithImageHost replaces the SmartStore image host.
func WithImageHost(h refine.ImageHost) Option { return func(o *options) { o.images = h } }

// WithoutImageHosting keeps vendor image URLs in payloads.
func WithoutImageHosting() Option { return func(o *options) { o.noImages = true } }

// WithRegistrar replaces the SmartStore product client.
func WithRegistrar(r Registrar) Option { return func(o *options) { o.registrar = r } }

// WithCrawler enables Crawl and Source.
func WithCrawler(c Crawler) Option { return func(o *options) { o.crawler = c } }

func withStore(s *store.Store) Option { return func(o *options) { o.store = s } }

// Relay is the relisting orchestrator.
type Relay struct {
	store     *store.Store
	refiner   *refine.Refiner
	text      TextModel
	registrar Registrar
	crawler   Crawler
	ids       idgen.Generator
	visitIDs  idgen.Generator
	config    *Config
	logger    *slog.Logger
	bg        sync.WaitGroup
}

// New opens the database and wires the pipeline. Collaborators not given
// as options are built from cfg.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (*Relay, error) {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	s := o.store
	if s == nil {
		var err error
		if s, err = store.Open(cfg.DBPath); err != nil {
			return nil, fmt.Errorf("relay: open store: %w", err)
		}
	}

	if o.text == nil {
		o.text = llm.New(cfg.LLM, logger)
	}
	if o.images == nil || o.registrar == nil {
		ss := smartstore.New(cfg.SmartStore, nil, logger)
		if o.images == nil {
			o.images = ss
		}
		if o.registrar == nil {
			o.registrar = ss
		}
	}
	if o.noImages {
		o.images = nil
	}

	refiner, err := refine.New(refine.Config{
		Translator:       o.text,
		NameRefiner:      o.text,
		Candidates:       storeCandidates{s: s},
		Classifier:       o.text,
		Tagger:           o.text,
		Images:           o.images,
		Pricing:          cfg.Pricing,
		Policy:           cfg.Policy,
		Options:          cfg.normalizeOptions(),
		TranslateOptions: cfg.Options.Translate,
		Logger:           logger,
	})
	if err != nil {
		s.Close()
		return nil, err
	}

	return &Relay{
		store:     s,
		refiner:   refiner,
		text:      o.text,
		registrar: o.registrar,
		crawler:   o.crawler,
		ids:       idgen.Captures(),
		visitIDs:  idgen.Visits(),
		config:    cfg,
		logger:    logger,
	}, nil
}

// Close waits for background processing and closes the database.
func (r *Relay) Close() error {
	r.bg.Wait()
	return r.store.Close()
}

// Ingest stores a completed capture and resets its product to captured.
// It returns the vendor item id.
func (r *Relay) Ingest(ctx context.Context, url, keyword string, c capture.Capture) (string, error) {
	if c.Detail() == nil || c.Description() == nil {
		return "", fmt.Errorf("relay: ingest %s: incomplete capture", url)
	}
	itemID, err := refine.ItemID(c.Detail())
	if err != nil {
		return "", err
	}
	row := &store.Capture{
		ID:          r.ids(),
		ItemID:      itemID,
		URL:         url,
		Keyword:     keyword,
		Detail:      c.Detail(),
		Description: c.Description(),
	}
	if err := r.store.InsertCapture(ctx, row); err != nil {
		return "", err
	}
	r.logger.Info("relay: capture stored", "item_id", itemID, "capture_id", row.ID)
	return itemID, nil
}

// Process refines the latest capture of itemID into a payload. Failures
// are recorded on the product and returned.
func (r *Relay) Process(ctx context.Context, itemID string) (*listing.Payload, error) {
	if err := r.store.Transition(ctx, itemID, store.StatusProcessing,
		store.StatusCaptured, store.StatusFailed, store.StatusProcessed); err != nil {
		if p, _ := r.store.GetProduct(ctx, itemID); p == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, itemID)
		}
		return nil, err
	}

	payload, err := r.process(ctx, itemID)
	if err != nil {
		r.logger.Warn("relay: processing failed", "item_id", itemID, "error", err)
		if merr := r.store.MarkFailed(context.WithoutCancel(ctx), itemID, err.Error()); merr != nil {
			r.logger.Error("relay: record failure", "item_id", itemID, "error", merr)
		}
		return nil, err
	}
	return payload, nil
}

func (r *Relay) process(ctx context.Context, itemID string) (*listing.Payload, error) {
	p, err := r.store.GetProduct(ctx, itemID)
	if err != nil {
		return nil, err
	}
	c, err := r.store.GetCapture(ctx, p.CaptureID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("relay: capture %s missing", p.CaptureID)
	}

	product, err := refine.Extract(capture.Capture{
		capture.ChannelDetail:      c.Detail,
		capture.ChannelDescription: c.Description,
	})
	if err != nil {
		return nil, err
	}
	payload, err := r.refiner.Refine(ctx, product)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("relay: encode payload: %w", err)
	}
	if err := r.store.SavePayload(ctx, itemID, data); err != nil {
		return nil, err
	}
	r.logger.Info("relay: product processed", "item_id", itemID, "category", payload.Category)
	return payload, nil
}

// ProcessAsync runs Process on a background goroutine detached from ctx's
// cancellation. Close waits for it.
func (r *Relay) ProcessAsync(ctx context.Context, itemID string) {
	r.bg.Add(1)
	go func() {
		defer r.bg.Done()
		if _, err := r.Process(context.WithoutCancel(ctx), itemID); err != nil {
			r.logger.Debug("relay: background processing ended with error", "item_id", itemID, "error", err)
		}
	}()
}

// ProcessStats counts ProcessPending outcomes.
type ProcessStats struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// ProcessPending processes every captured product. A failing product is
// recorded and skipped. Each product is attempted at most once per call, so
// a row that cannot leave captured does not stall the sweep.
func (r *Relay) ProcessPending(ctx context.Context) (ProcessStats, error) {
	var st ProcessStats
	tried := make(map[string]bool)
	page := 1
	for {
		rows, _, err := r.store.ListProducts(ctx, store.ListOptions{Status: store.StatusCaptured, Page: page, PerPage: 50})
		if err != nil {
			return st, err
		}
		if len(rows) == 0 {
			return st, nil
		}
		fresh := 0
		for _, p := range rows {
			if err := ctx.Err(); err != nil {
				return st, err
			}
			if tried[p.ItemID] {
				continue
			}
			tried[p.ItemID] = true
			fresh++
			if _, err := r.Process(ctx, p.ItemID); err != nil {
				st.Failed++
				continue
			}
			st.Processed++
		}
		// Rows still captured on this page were all attempted.
		if fresh == 0 {
			page++
		}
	}
}

// Upload registers the processed payload of itemID on the destination. A
// rejected upload leaves the product processed with the error recorded.
func (r *Relay) Upload(ctx context.Context, itemID string) (*smartstore.Registration, error) {
	if r.registrar == nil {
		return nil, ErrNoRegistry
	}
	if err := r.config.Policy.Validate(); err != nil {
		return nil, err
	}
	if err := r.store.Transition(ctx, itemID, store.StatusUploading, store.StatusProcessed); err != nil {
		if p, _ := r.store.GetProduct(ctx, itemID); p == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, itemID)
		}
		return nil, err
	}

	reg, err := r.upload(ctx, itemID)
	if err != nil {
		r.logger.Warn("relay: upload failed", "item_id", itemID, "error", err)
		if serr := r.store.SetError(context.WithoutCancel(ctx), itemID, store.StatusProcessed, err.Error()); serr != nil {
			r.logger.Error("relay: record upload failure", "item_id", itemID, "error", serr)
		}
		return nil, err
	}
	return reg, nil
}

func (r *Relay) upload(ctx context.Context, itemID string) (*smartstore.Registration, error) {
	p, err := r.store.GetProduct(ctx, itemID)
	if err != nil {
		return nil, err
	}
	var payload listing.Payload
	if err := json.Unmarshal(p.Payload, &payload); err != nil {
		return nil, fmt.Errorf("relay: decode payload: %w", err)
	}
	reg, err := r.registrar.Register(ctx, &payload)
	if err != nil {
		return nil, err
	}
	if err := r.store.MarkUploaded(ctx, itemID, reg.ChannelProduct()); err != nil {
		return nil, err
	}
	return reg, nil
}

// ProductView is a product row with its decoded payload and summary.
type ProductView struct {
	ItemID           string           `json:"itemId"`
	Status           string           `json:"status"`
	Error            string           `json:"error,omitempty"`
	ChannelProductNo string           `json:"channelProductNo,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
	Summary          *listing.Summary `json:"summary,omitempty"`
	Payload          *listing.Payload `json:"-"`
}

func (r *Relay) view(p *store.Product) (*ProductView, error) {
	v := &ProductView{
		ItemID:           p.ItemID,
		Status:           string(p.Status),
		Error:            p.Error,
		ChannelProductNo: p.ChannelProductNo,
		CreatedAt:        time.UnixMilli(p.CreatedAt),
		UpdatedAt:        time.UnixMilli(p.UpdatedAt),
	}
	if len(p.Payload) == 0 {
		return v, nil
	}
	var payload listing.Payload
	if err := json.Unmarshal(p.Payload, &payload); err != nil {
		return nil, fmt.Errorf("relay: decode payload of %s: %w", p.ItemID, err)
	}
	sum := listing.Summarize(&payload, listing.SummaryMeta{
		ProductID:    p.ItemID,
		Site:         r.config.Site,
		ExchangeRate: r.config.Pricing.ExchangeRate,
		CreatedAt:    v.CreatedAt,
	})
	v.Payload, v.Summary = &payload, &sum
	return v, nil
}

// Get returns one product.
func (r *Relay) Get(ctx context.Context, itemID string) (*ProductView, error) {
	p, err := r.store.GetProduct(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, itemID)
	}
	return r.view(p)
}

// Page is one page of a product listing.
type Page struct {
	Items   []*ProductView `json:"items"`
	Total   int            `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"perPage"`
}

// List returns one page of products in status ("" for all).
func (r *Relay) List(ctx context.Context, status string, page, perPage int) (*Page, error) {
	opts := store.ListOptions{Status: store.Status(status), Page: page, PerPage: perPage}
	rows, total, err := r.store.ListProducts(ctx, opts)
	if err != nil {
		return nil, err
	}
	out := &Page{Items: make([]*ProductView, 0, len(rows)), Total: total, Page: max(page, 1), PerPage: perPage}
	if out.PerPage <= 0 {
		out.PerPage = 10
	}
	for _, p := range rows {
		v, err := r.view(p)
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, v)
	}
	return out, nil
}

// Counts returns the number of products per status.
func (r *Relay) Counts(ctx context.Context) (map[string]int, error) {
	byStatus, err := r.store.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(byStatus))
	for s, n := range byStatus {
		out[string(s)] = n
	}
	return out, nil
}

// Crawl visits urls, stores every complete capture and logs each visit.
// With process set, each stored capture is refined right away.
func (r *Relay) Crawl(ctx context.Context, urls []string, keyword string, process bool) (crawl.Stats, error) {
	if r.crawler == nil {
		return crawl.Stats{}, ErrNoCrawler
	}
	return r.crawler.Run(ctx, urls, func(ctx context.Context, res crawl.Result) error {
		visit := &store.Visit{ID: r.visitIDs(), URL: res.URL, Attempts: res.Attempts, Outcome: store.OutcomeOK}

		var itemID string
		err := res.Err
		if err == nil {
			itemID, err = r.Ingest(ctx, res.URL, keyword, res.Capture)
		}
		var te *capture.TimeoutError
		switch {
		case errors.As(err, &te):
			visit.Outcome = store.OutcomeTimeout
			for _, ch := range te.Missing {
				visit.Missing = append(visit.Missing, string(ch))
			}
		case err != nil:
			visit.Outcome = store.OutcomeError
		}
		if err != nil {
			visit.Error = err.Error()
		}
		if lerr := r.store.LogVisit(ctx, visit); lerr != nil {
			r.logger.Warn("relay: log visit", "url", res.URL, "error", lerr)
		}

		if err == nil && process {
			// Failures are recorded on the product; the batch goes on.
			r.Process(ctx, itemID)
		}
		return nil
	})
}

// Visits returns the latest crawl log entries.
func (r *Relay) Visits(ctx context.Context, limit int) ([]*store.Visit, error) {
	return r.store.RecentVisits(ctx, limit)
}

// Source searches the vendor for a destination-language keyword and
// returns the best-selling hits.
func (r *Relay) Source(ctx context.Context, keyword string, limit int) ([]sourcing.Candidate, error) {
	if r.crawler == nil {
		return nil, ErrNoCrawler
	}
	query, err := r.text.Translate(ctx, keyword, "ko", "zh")
	if err != nil {
		return nil, fmt.Errorf("relay: translate keyword: %w", err)
	}
	body, err := r.crawler.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return sourcing.Rank(body, limit)
}
