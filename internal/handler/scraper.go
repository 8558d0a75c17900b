package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"buyee-scraper/internal/domain/model"
	"buyee-scraper/internal/usecase"
)

// ScraperHandler はHTTP境界層のハンドラー実装です。
// プロトコル層（JSON/HTTP）とドメイン層（usecase）を橋渡しします。
type ScraperHandler struct {
	search      *usecase.SearchUsecase
	bids        *usecase.BidUsecase
	concurrency int
	logger      *slog.Logger
}

// NewScraperHandler は新しいScraperHandlerインスタンスを作成します。
// concurrency はリクエストで指定が無い場合のバッチ同時実行数です。
func NewScraperHandler(search *usecase.SearchUsecase, bids *usecase.BidUsecase, concurrency int, logger *slog.Logger) *ScraperHandler {
	return &ScraperHandler{
		search:      search,
		bids:        bids,
		concurrency: concurrency,
		logger:      logger,
	}
}

// NewRouter はCORSと復帰ミドルウェアを備えたルーターを構築します
func NewRouter(h *ScraperHandler, allowedOrigins []string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Accept", "Origin"},
		AllowCredentials: true,
		MaxAge:           7200,
	}))

	r.Post("/search", h.handleSearch)
	r.Post("/details", h.handleDetails)
	r.Post("/place-bid", h.handlePlaceBid)
	r.Post("/update-bid-prices", h.handleUpdateBids)
	r.Get("/bids", h.handleBids)
	r.Post("/login", h.handleLogin)
	return r
}

type searchRequest struct {
	Terms       []model.SearchQuery `json:"terms"`
	Concurrency int                 `json:"concurrency,omitempty"`
}

type searchResponse struct {
	Success bool               `json:"success"`
	Results []model.Listing    `json:"results"`
	Count   int                `json:"count"`
	Errors  []model.BatchError `json:"errors"`
	Partial bool               `json:"partial"`
}

func (h *ScraperHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if len(req.Terms) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("No search terms provided"))
		return
	}

	concurrency := req.Concurrency
	if concurrency <= 0 {
		concurrency = h.concurrency
	}

	result, err := h.search.RunBatch(r.Context(), req.Terms, concurrency)
	if err != nil {
		// 全クエリ失敗。部分成功はここには来ない
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Success: true,
		Results: result.Results,
		Count:   len(result.Results),
		Errors:  result.Errors,
		Partial: result.Partial,
	})
}

type detailsRequest struct {
	URLs []string `json:"urls"`
}

func (h *ScraperHandler) handleDetails(w http.ResponseWriter, r *http.Request) {
	var req detailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if len(req.URLs) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("No URLs provided"))
		return
	}

	details, err := h.bids.FetchDetails(r.Context(), req.URLs)
	if err != nil {
		h.logger.Error("details fetch failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to fetch additional details"))
		return
	}
	if details == nil {
		details = []model.Listing{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"updatedDetails": details,
	})
}

type placeBidRequest struct {
	ProductID string  `json:"productId"`
	Amount    float64 `json:"amount"`
}

func (h *ScraperHandler) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	var req placeBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	placement, err := h.bids.PlaceBid(r.Context(), req.ProductID, req.Amount)
	if err != nil {
		h.logger.Error("bid placement failed", "url", req.ProductID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "Failed to place the bid. Please try again.",
		})
		return
	}
	if !placement.Success {
		writeJSON(w, http.StatusBadRequest, placement)
		return
	}
	writeJSON(w, http.StatusOK, placement)
}

type updateBidsRequest struct {
	ProductURLs []string `json:"productUrls"`
}

func (h *ScraperHandler) handleUpdateBids(w http.ResponseWriter, r *http.Request) {
	var req updateBidsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if len(req.ProductURLs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Product URLs must be an array and cannot be empty",
		})
		return
	}

	updates := h.bids.UpdateBids(r.Context(), req.ProductURLs)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"updatedBids": updates,
		"count":       len(updates),
	})
}

func (h *ScraperHandler) handleBids(w http.ResponseWriter, r *http.Request) {
	records, err := h.bids.ReadLedger()
	if err != nil {
		h.logger.Error("failed to read ledger", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, records)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *ScraperHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Username and password required",
		})
		return
	}

	if err := h.bids.Login(r.Context(), req.Username, req.Password); err != nil {
		h.logger.Error("login failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "Login failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Login successful",
	})
}

func errorBody(message string) map[string]any {
	return map[string]any{"success": false, "error": message}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
