// CLAUDE:SUMMARY chi HTTP API: submit raw captures, read summaries, list processed/uploaded products, trigger uploads, health.
package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/itemrelay/capture"
	"github.com/hazyhaar/itemrelay/jsonp"
	"github.com/hazyhaar/itemrelay/kit"
	"github.com/hazyhaar/itemrelay/listing"
	"github.com/hazyhaar/itemrelay/relay/internal/store"
	"github.com/hazyhaar/itemrelay/smartstore"
)

// Handler returns the HTTP API.
func (r *Relay) Handler() http.Handler {
	get := kit.Chain(logged(r.logger, "get_product"))(r.getEndpoint())
	list := kit.Chain(logged(r.logger, "list_products"))(r.listEndpoint())

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := kit.WithCall(req.Context(), kit.Call{Transport: "http", RequestID: middleware.GetReqID(req.Context())})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})

	mux.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		counts, err := r.Counts(req.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "products": counts})
	})

	mux.Route("/products", func(pr chi.Router) {
		pr.Use(r.requireAPIKey)

		pr.Post("/process", r.handleProcess)

		listStatus := func(status store.Status) http.HandlerFunc {
			return func(w http.ResponseWriter, req *http.Request) {
				resp, err := list(req.Context(), &listRequest{
					Status:  string(status),
					Page:    queryInt(req, "page", 1),
					PerPage: queryInt(req, "per_page", 10),
				})
				if err != nil {
					writeError(w, http.StatusInternalServerError, err)
					return
				}
				writeJSON(w, http.StatusOK, resp)
			}
		}
		pr.Get("/processed", listStatus(store.StatusProcessed))
		pr.Get("/uploaded", listStatus(store.StatusUploaded))

		pr.Get("/{id}", func(w http.ResponseWriter, req *http.Request) {
			resp, err := get(req.Context(), &getRequest{ItemID: chi.URLParam(req, "id")})
			if err != nil {
				writeError(w, statusOf(err), err)
				return
			}
			writeJSON(w, http.StatusOK, resp)
		})

		pr.Post("/upload/{id}", func(w http.ResponseWriter, req *http.Request) {
			id := chi.URLParam(req, "id")
			reg, err := r.Upload(req.Context(), id)
			if err != nil {
				writeError(w, statusOf(err), err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"itemId":           id,
				"originProductNo":  reg.OriginProductNo,
				"channelProductNo": reg.ChannelProduct(),
			})
		})
	})

	return mux
}

// processRequest is a raw capture. Bodies may be JSON objects or strings
// holding the JSONP text as received.
type processRequest struct {
	URL         string          `json:"url"`
	Keyword     string          `json:"keyword"`
	Detail      json.RawMessage `json:"detail"`
	Description json.RawMessage `json:"description"`
}

func (r *Relay) handleProcess(w http.ResponseWriter, req *http.Request) {
	var body processRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, 16<<20)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	detail, err := channelBody(body.Detail)
	if err != nil || !capture.HasSeller(detail) {
		writeError(w, http.StatusBadRequest, errors.New("detail is not a product detail document"))
		return
	}
	desc, err := channelBody(body.Description)
	if err != nil || !capture.HasDescription(desc) {
		writeError(w, http.StatusBadRequest, errors.New("description is not a product description document"))
		return
	}

	id, err := r.Ingest(req.Context(), body.URL, body.Keyword, capture.Capture{
		capture.ChannelDetail:      detail,
		capture.ChannelDescription: desc,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	r.ProcessAsync(req.Context(), id)
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": string(store.StatusProcessing)})
}

func channelBody(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty body")
	}
	var text string
	if json.Unmarshal(raw, &text) == nil {
		return jsonp.Decode([]byte(text))
	}
	return raw, nil
}

func (r *Relay) requireAPIKey(next http.Handler) http.Handler {
	hash := []byte(r.config.HTTP.APIKeyHash)
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if len(hash) == 0 {
			next.ServeHTTP(w, req)
			return
		}
		key := req.Header.Get("X-API-Key")
		if key == "" {
			key = strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
		}
		if key == "" || bcrypt.CompareHashAndPassword(hash, []byte(key)) != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
			return
		}
		next.ServeHTTP(w, req)
	})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrStatus):
		return http.StatusConflict
	case errors.Is(err, listing.ErrInvalidPolicy):
		return http.StatusUnprocessableEntity
	case errors.Is(err, smartstore.ErrRejected):
		return http.StatusBadGateway
	case errors.Is(err, ErrNoRegistry):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
