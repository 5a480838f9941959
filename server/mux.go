package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	"github.com/juju/errors"
	"github.com/oxtoacart/bpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/voxhall/voxhall/server/auth"
	"github.com/voxhall/voxhall/server/identifiers"
	"github.com/voxhall/voxhall/server/logger"
	"github.com/voxhall/voxhall/server/message"
	"github.com/voxhall/voxhall/server/store"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

type MuxParams struct {
	Log        logger.Logger
	BaseURL    string
	Gate       *auth.Gate
	Store      store.Store
	WSS        http.Handler
	Prometheus PrometheusConfig
}

type Mux struct {
	BaseURL string
	log     logger.Logger
	handler *chi.Mux
	gate    *auth.Gate
	store   store.Store
	bufPool *bpool.BufferPool
}

func (mux *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux.handler.ServeHTTP(w, r)
}

func withGauge(counter prometheus.Counter, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counter.Inc()
		h.ServeHTTP(w, r)
	}
}

func NewMux(params MuxParams) *Mux {
	handler := chi.NewRouter()
	mux := &Mux{
		BaseURL: params.BaseURL,
		log:     params.Log.WithNamespaceAppended("mux"),
		handler: handler,
		gate:    params.Gate,
		store:   params.Store,
		bufPool: bpool.NewBufferPool(16),
	}

	var root string
	if params.BaseURL == "" {
		root = "/"
	} else {
		root = params.BaseURL
	}

	prom := params.Prometheus

	handler.Route(root, func(router chi.Router) {
		router.Get("/channels/{channelID}/messages", withGauge(prometheusHistoryRequestsTotal, mux.routeHistory))
		router.Get("/probes/liveness", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
		})
		router.Get("/probes/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
		})
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			accessToken := r.Header.Get("Authorization")
			if strings.HasPrefix(accessToken, "Bearer ") {
				accessToken = accessToken[len("Bearer "):]
			} else {
				accessToken = r.FormValue("access_token")
			}

			if accessToken == "" || accessToken != prom.AccessToken {
				w.WriteHeader(http.StatusUnauthorized)

				return
			}
			promhttp.Handler().ServeHTTP(w, r)
		})

		router.Handle("/ws", params.WSS)
	})

	return mux
}

type historyResponse struct {
	Messages []message.Chat `json:"messages"`
}

func (mux *Mux) routeHistory(w http.ResponseWriter, r *http.Request) {
	if _, err := mux.gate.Verify(mux.gate.Token(r)); err != nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)

		return
	}

	channelID := identifiers.ChannelID(chi.URLParam(r, "channelID"))

	limit := defaultHistoryLimit

	if value := r.URL.Query().Get("limit"); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)

			return
		}

		limit = n
	}

	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	records, err := mux.store.History(r.Context(), channelID, limit)
	if err != nil {
		mux.log.Error("Read history", errors.Trace(err), logger.Ctx{
			"channel_id": channelID,
		})

		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)

		return
	}

	res := historyResponse{
		Messages: make([]message.Chat, 0, len(records)),
	}

	for _, record := range records {
		res.Messages = append(res.Messages, message.Chat{
			ID:        record.ID,
			ChannelID: record.ChannelID,
			UserID:    record.UserID,
			Username:  record.Username,
			Content:   record.Content,
			CreatedAt: record.CreatedAt,
		})
	}

	buf := mux.bufPool.Get()
	defer mux.bufPool.Put(buf)

	if err := json.NewEncoder(buf).Encode(res); err != nil {
		mux.log.Error("Encode history", errors.Trace(err), nil)
		w.WriteHeader(http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = buf.WriteTo(w)
}
