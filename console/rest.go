package console

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/scrutinize/scout"
	"github.com/scrutinize/scout/dispatch"
	"github.com/scrutinize/scout/ingest"
)

//
// IMPLEMENTATION NOTE: Few notes about the approach to REST used in this file:
//  1. Always exchange JSON
//  2. Any successful request returns HTTP status 200, except /next which
//     answers 204 when no job could be handed out
//  3. Any error is flagged by HTTP status != 200, with a json error body
//

// Handler serves scout's REST API. All routes are JSON-only.
type Handler struct {
	Store      scout.Store
	Cache      scout.Cache
	Dispatcher *dispatch.Dispatcher
	Ingester   *ingest.Ingester
}

// NewHandler wires a Handler and the global Render object.
func NewHandler(store scout.Store, cache scout.Cache, fetcher scout.Fetcher, publisher scout.Publisher) *Handler {
	if Render == nil {
		BuildRender()
	}
	return &Handler{
		Store:      store,
		Cache:      cache,
		Dispatcher: dispatch.NewDispatcher(store, cache),
		Ingester:   ingest.NewIngester(store, cache, fetcher, publisher),
	}
}

// Router builds the mux router with every API route registered.
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/next", h.NextJob).Methods("GET")
	router.HandleFunc("/next/list", h.NextJobList).Methods("GET")
	router.HandleFunc("/next/count", h.NextJobsCount).Methods("GET")
	router.HandleFunc("/page", h.AddPage).Methods("POST")
	router.HandleFunc("/domains", h.Domains).Methods("GET")
	router.HandleFunc("/worker/ping", h.WorkerPing).Methods("POST")
	router.HandleFunc("/worker/start", h.WorkerStart).Methods("POST")
	router.HandleFunc("/worker/complete", h.WorkerComplete).Methods("POST")
	return router
}

func (h *Handler) lockTTL() time.Duration {
	ttl, err := time.ParseDuration(scout.Config.Dispatch.LockExpiration)
	if err != nil {
		// Checked in Config
		panic(err.Error())
	}
	return ttl
}

// NextJob hands one job to a worker, or 204 when nothing can be dispatched.
func (h *Handler) NextJob(w http.ResponseWriter, req *http.Request) {
	job, err := h.Dispatcher.NextJob(h.lockTTL(), 0)
	if err != nil {
		replyServerError(w, err)
		return
	}
	if job == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	Render.JSON(w, http.StatusOK, job)
}

// NextJobList returns the paginated non-dispatching job view. The page is
// selected with ?page=N, 1-based.
func (h *Handler) NextJobList(w http.ResponseWriter, req *http.Request) {
	page := 1
	if raw := req.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			Render.JSON(w, http.StatusBadRequest,
				buildError("bad-page", "page must be a positive integer"))
			return
		}
		page = parsed
	}

	entries, err := h.Dispatcher.NextJobList(page, 0)
	if err != nil {
		replyServerError(w, err)
		return
	}
	if entries == nil {
		entries = []*scout.JobListEntry{}
	}
	Render.JSON(w, http.StatusOK, entries)
}

// NextJobsCount reports how many pages are currently dispatchable.
func (h *Handler) NextJobsCount(w http.ResponseWriter, req *http.Request) {
	count, err := h.Dispatcher.NextJobsCount()
	if err != nil {
		replyServerError(w, err)
		return
	}
	Render.JSON(w, http.StatusOK, map[string]int{"count": count})
}

type addPageRequest struct {
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

// AddPage ingests one URL. Gate failures come back as 400 with the
// structured rejection; an admitted page answers with its uuid.
func (h *Handler) AddPage(w http.ResponseWriter, req *http.Request) {
	var body addPageRequest
	err := json.NewDecoder(req.Body).Decode(&body)
	if err != nil {
		logrus.Errorf("AddPage failed to decode: %v", err)
		Render.JSON(w, http.StatusBadRequest, buildError("bad-json-decode", err.Error()))
		return
	}
	if body.URL == "" {
		Render.JSON(w, http.StatusBadRequest, buildError("empty-url", "No url provided"))
		return
	}

	result, err := h.Ingester.AddPage(body.URL, body.Score)
	if err != nil {
		replyServerError(w, err)
		return
	}
	if result.Rejection != nil {
		Render.JSON(w, http.StatusBadRequest, result.Rejection)
		return
	}
	Render.JSON(w, http.StatusOK, map[string]string{"uuid": result.PageUUID})
}

type domainResponse struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	IsActive  bool   `json:"isActive"`
	PageCount int64  `json:"pageCount"`
}

// Domains lists every active domain with its cached page count.
func (h *Handler) Domains(w http.ResponseWriter, req *http.Request) {
	domains, err := h.Store.ActiveDomains()
	if err != nil {
		replyServerError(w, err)
		return
	}

	response := []*domainResponse{}
	for _, domain := range domains {
		count, err := h.Cache.PageCount(domain.Name)
		if err != nil {
			// Counters are advisory, a dead cache only costs the number.
			logrus.Errorf("Failed to read page count of %v: %v", domain.Name, err)
			count = 0
		}
		response = append(response, &domainResponse{
			Name:      domain.Name,
			URL:       domain.URL,
			IsActive:  domain.IsActive,
			PageCount: count,
		})
	}
	Render.JSON(w, http.StatusOK, response)
}

type workerRequest struct {
	UUID string `json:"uuid"`
	URL  string `json:"url"`
	Lock string `json:"lock"`
}

func (h *Handler) decodeWorker(w http.ResponseWriter, req *http.Request) *workerRequest {
	var body workerRequest
	err := json.NewDecoder(req.Body).Decode(&body)
	if err != nil {
		Render.JSON(w, http.StatusBadRequest, buildError("bad-json-decode", err.Error()))
		return nil
	}
	if body.UUID == "" {
		Render.JSON(w, http.StatusBadRequest, buildError("empty-uuid", "No worker uuid provided"))
		return nil
	}
	return &body
}

// WorkerPing registers the worker, or refreshes its last_ping when already
// known. Workers must ping to be counted toward dispatch depth.
func (h *Handler) WorkerPing(w http.ResponseWriter, req *http.Request) {
	body := h.decodeWorker(w, req)
	if body == nil {
		return
	}
	if err := h.Store.RegisterWorker(body.UUID); err != nil {
		replyServerError(w, err)
		return
	}
	Render.JSON(w, http.StatusOK, "")
}

// WorkerStart records that the worker began reviewing a URL. The limiter
// counts this worker against that URL's domain budget until it completes.
func (h *Handler) WorkerStart(w http.ResponseWriter, req *http.Request) {
	body := h.decodeWorker(w, req)
	if body == nil {
		return
	}
	if body.URL == "" {
		Render.JSON(w, http.StatusBadRequest, buildError("empty-url", "No url provided"))
		return
	}
	if err := h.Store.SetWorkerCurrentURL(body.UUID, body.URL); err != nil {
		replyServerError(w, err)
		return
	}
	Render.JSON(w, http.StatusOK, "")
}

// WorkerComplete records the end of a review: the worker goes idle and the
// page's review lock is released so it can be dispatched again.
func (h *Handler) WorkerComplete(w http.ResponseWriter, req *http.Request) {
	body := h.decodeWorker(w, req)
	if body == nil {
		return
	}
	if body.URL == "" {
		Render.JSON(w, http.StatusBadRequest, buildError("empty-url", "No url provided"))
		return
	}

	if err := h.Store.SetWorkerCurrentURL(body.UUID, ""); err != nil {
		replyServerError(w, err)
		return
	}
	if body.Lock != "" {
		if err := h.Cache.ReleaseLock(body.URL, body.Lock); err != nil {
			logrus.Errorf("Failed to release lock on %v: %v", body.URL, err)
		}
	}
	Render.JSON(w, http.StatusOK, "")
}
