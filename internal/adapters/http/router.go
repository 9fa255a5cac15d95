package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fitconnect/mealscan/internal/config"
	"github.com/fitconnect/mealscan/internal/core/domain"
	"github.com/fitconnect/mealscan/internal/core/ports"
	"github.com/fitconnect/mealscan/internal/core/usecase"
	"github.com/fitconnect/mealscan/internal/observability/metrics"
)

const maxUploadBytes = 10 << 20

var errNotOwned = errors.New("scan belongs to another user")

type Router struct {
	ingest   ports.ScanIngestor
	scans    ports.ScanReader
	saver    ports.MealSaver
	logger   ports.MealLogger
	meals    ports.MealReader
	catalog  ports.FoodCatalog
	store    ports.ImageStore
	sessions *usecase.ScanSessionFactory
	metrics  *metrics.HTTPServerMetrics
}

func NewRouter(
	ingest ports.ScanIngestor,
	scans ports.ScanReader,
	saver ports.MealSaver,
	logger ports.MealLogger,
	meals ports.MealReader,
	catalog ports.FoodCatalog,
	store ports.ImageStore,
	sessions *usecase.ScanSessionFactory,
	serverMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		ingest:   ingest,
		scans:    scans,
		saver:    saver,
		logger:   logger,
		meals:    meals,
		catalog:  catalog,
		store:    store,
		sessions: sessions,
		metrics:  serverMetrics,
	}
}

func (rt *Router) Handler(cfg config.Config) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/scans", rt.uploadScan)
	mux.HandleFunc("/v1/scans/", rt.scanSubroute)
	mux.HandleFunc("/v1/meals", rt.mealsCollection)
	mux.HandleFunc("/v1/meals/summary", rt.mealSummary)
	mux.HandleFunc("/v1/catalog/foods", rt.searchFoods)
	mux.HandleFunc("/v1/catalog/foods/", rt.getFoodByID)
	mux.HandleFunc("/ws/scan", rt.scanStream)
	mux.HandleFunc("/media/meals/", rt.serveMedia)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, cfg.APIMaxConcurrent,
		time.Duration(cfg.APIBackpressureWaitMS)*time.Millisecond)
	handler = rateLimitMiddleware(handler, cfg.APIRateLimitRPS, cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	userID, ok := rt.requireUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, fileHeader, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'image' is required"})
		return
	}
	defer file.Close()

	rec, err := rt.ingest.Submit(r.Context(), userID, fileHeader.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, rec)
}

func (rt *Router) scanSubroute(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/scans/")
	if id, found := strings.CutSuffix(rest, "/confirm"); found {
		rt.confirmScan(w, r, id)
		return
	}
	rt.getScanByID(w, r, rest)
}

func (rt *Router) getScanByID(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	userID, ok := rt.requireUser(w, r)
	if !ok {
		return
	}
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "scan id is required"})
		return
	}

	rec, err := rt.scans.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if rec.UserID != userID {
		// Scoped lookups never reveal other users' scans.
		writeError(w, domain.WrapError(domain.ErrScanNotFound, "get scan", errNotOwned))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// confirmScan turns an accepted gallery scan into a durable meal entry. The
// scan ID doubles as the meal ID, so repeating a confirm after a lost
// response cannot duplicate the entry.
func (rt *Router) confirmScan(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	userID, ok := rt.requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		MealType string `json:"meal_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	rec, err := rt.scans.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if rec.UserID != userID {
		writeError(w, domain.WrapError(domain.ErrScanNotFound, "confirm scan", errNotOwned))
		return
	}
	if rec.Status != domain.ScanReady || rec.Prediction == nil {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": "scan is not ready to confirm, rescan or log manually",
		})
		return
	}

	// Attach the already-stored scan image to the meal; losing it degrades
	// to an entry without a photo.
	var image []byte
	if reader, openErr := rt.store.Open(r.Context(), rec.StoragePath); openErr == nil {
		image, _ = io.ReadAll(reader)
		_ = reader.Close()
	}

	entry, err := rt.saver.Save(r.Context(), ports.SaveMealRequest{
		MealID:     rec.ID,
		UserID:     userID,
		MealType:   domain.MealType(req.MealType),
		Prediction: *rec.Prediction,
		Image:      image,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordMealLogged("api", string(domain.SourceScan))
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (rt *Router) mealsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.logMeal(w, r)
	case http.MethodGet:
		rt.recentMeals(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) logMeal(w http.ResponseWriter, r *http.Request) {
	userID, ok := rt.requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		FoodID    string `json:"food_id"`
		PortionID string `json:"portion_id"`
		MealType  string `json:"meal_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	entry, err := rt.logger.Log(r.Context(), userID, req.FoodID, req.PortionID, domain.MealType(req.MealType))
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordMealLogged("api", string(domain.SourceManual))
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (rt *Router) recentMeals(w http.ResponseWriter, r *http.Request) {
	userID, ok := rt.requireUser(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := rt.meals.Recent(r.Context(), userID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.MealEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"meals": entries})
}

func (rt *Router) mealSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	userID, ok := rt.requireUser(w, r)
	if !ok {
		return
	}

	summary, err := rt.meals.Summary(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (rt *Router) searchFoods(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if _, ok := rt.requireUser(w, r); !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := rt.catalog.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []domain.FoodItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"foods": items})
}

func (rt *Router) getFoodByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if _, ok := rt.requireUser(w, r); !ok {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/catalog/foods/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "food id is required"})
		return
	}

	item, err := rt.catalog.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (rt *Router) serveMedia(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	userID, ok := rt.requireUser(w, r)
	if !ok {
		return
	}

	// Media keys are user-prefixed; never serve another user's photo.
	key := strings.TrimPrefix(r.URL.Path, "/media/meals/")
	if !strings.HasPrefix(key, userID+"/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "media not found"})
		return
	}

	reader, err := rt.store.Open(r.Context(), key)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "media not found"})
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", contentTypeForKey(key))
	w.Header().Set("Cache-Control", "private, max-age=86400")
	_, _ = io.Copy(w, reader)
}

func contentTypeForKey(key string) string {
	switch {
	case strings.HasSuffix(key, ".png"):
		return "image/png"
	default:
		return "image/jpeg"
	}
}

func (rt *Router) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get(userIDHeader))
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "X-User-Id header is required"})
		return "", false
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
