package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"pumpradar/internal/application/port"
	"pumpradar/internal/domain"

	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	PathEvents  = "/stream/events"
	PathHealth  = "/healthz"
	PathRecent  = "/api/events/recent"
	PathLatest  = "/api/events/latest"
	subscriberQ = 64
)

// RecentLister 最近事件查询
type RecentLister interface {
	Recent(ctx context.Context, limit int) ([]domain.Event, error)
}

// LatestFinder 按类别和交易对查最近一次事件
type LatestFinder interface {
	Latest(ctx context.Context, kind domain.EventKind, symbol string) (domain.Event, bool, error)
}

// Server 通过 WebSocket 推送实时事件，并提供健康检查和最近事件查询
type Server struct {
	addr   string
	recent RecentLister
	latest LatestFinder
	status func() any

	mu   sync.Mutex
	subs map[chan domain.Event]struct{}

	dropped atomic.Int64
}

// NewServer recent 和 status 可以为 nil
func NewServer(addr string, recent RecentLister, status func() any) *Server {
	return &Server{
		addr:   addr,
		recent: recent,
		status: status,
		subs:   make(map[chan domain.Event]struct{}),
	}
}

// WithLatest 挂上最近事件查询，未设置时 PathLatest 返回 404
func (s *Server) WithLatest(f LatestFinder) *Server {
	s.latest = f
	return s
}

func (s *Server) Name() string { return "stream" }

// Notify 广播给所有订阅者，慢客户端的消息直接丢弃
func (s *Server) Notify(ctx context.Context, ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.dropped.Add(1)
		}
	}
	return nil
}

func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Server) subscribe() chan domain.Event {
	ch := make(chan domain.Event, subscriberQ)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *Server) unsubscribe(ch chan domain.Event) {
	s.mu.Lock()
	delete(s.subs, ch)
	s.mu.Unlock()
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(PathEvents, s.handleEvents)
	mux.HandleFunc(PathHealth, s.handleHealth)
	mux.HandleFunc(PathRecent, s.handleRecent)
	mux.HandleFunc(PathLatest, s.handleLatest)
	return mux
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		log.Warn().Err(err).Msg("stream accept failed")
		return
	}
	defer c.Close(websocket.StatusInternalError, "closing")

	ch := s.subscribe()
	defer s.unsubscribe(ch)

	// 客户端只读，CloseRead 在对端关闭时取消 ctx
	ctx := c.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			c.Close(websocket.StatusNormalClosure, "")
			return
		case ev := <-ch:
			wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(wctx, c, ev)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

type health struct {
	Status      string `json:"status"`
	Subscribers int    `json:"subscribers"`
	Dropped     int64  `json:"dropped"`
	Detail      any    `json:"detail,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := health{Status: "ok", Subscribers: s.Subscribers(), Dropped: s.dropped.Load()}
	if s.status != nil {
		h.Detail = s.status()
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if s.recent == nil {
		writeJSON(w, http.StatusOK, []domain.Event{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	evs, err := s.recent.Recent(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if evs == nil {
		evs = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, evs)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if s.latest == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "latest lookup not enabled"})
		return
	}
	q := r.URL.Query()
	kind := domain.EventKind(strings.ToUpper(strings.TrimSpace(q.Get("kind"))))
	symbol := strings.ToUpper(strings.TrimSpace(q.Get("symbol")))
	if kind == "" || symbol == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kind and symbol required"})
		return
	}
	ev, ok, err := s.latest.Latest(r.Context(), kind, symbol)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no event"})
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Run 监听 addr，ctx 取消后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.addr).Msg("stream server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

var _ port.Notifier = (*Server)(nil)
