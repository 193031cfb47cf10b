// Package daemon runs the long-lived tracker service: the intercepting
// proxy, the NST reset scheduler, and a local HTTP API serving ledger
// state and a live event stream.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/safeira/iglootrack/internal/classify"
	"github.com/safeira/iglootrack/internal/ledger"
	"github.com/safeira/iglootrack/internal/notify"
	"github.com/safeira/iglootrack/internal/nst"
	"github.com/safeira/iglootrack/internal/proxy"
	"github.com/safeira/iglootrack/internal/scheduler"
	"github.com/safeira/iglootrack/internal/store"
	"github.com/safeira/iglootrack/internal/tracker"
)

// Config controls the daemon runtime behavior.
type Config struct {
	ProxyAddr    string
	APIAddr      string
	Upstream     string
	StockPage    string // page checked once at startup for the cap message
	EventsBuffer int
	NotifyIcon   string
}

// Event is published on every persisted ledger change.
type Event struct {
	ID            int64     `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	TodayKey      string    `json:"today_key"`
	TodayTotal    int       `json:"today_total"`
	LifetimeTotal int       `json:"lifetime_total"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	TodayKey        string    `json:"today_key"`
	TodayTotal      int       `json:"today_total"`
	DailyLimit      int       `json:"daily_limit"`
	LifetimeTotal   int       `json:"lifetime_total"`
	ResetAt         time.Time `json:"reset_at"`
	ResetsIn        string    `json:"resets_in"`
	NotifyEnabled   bool      `json:"notify_enabled"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service wires the tracker, proxy, and scheduler together.
type Service struct {
	cfg     Config
	kv      store.KV
	tracker *tracker.Tracker
	sched   *scheduler.Scheduler
	prx     *proxy.Proxy
	log     zerolog.Logger

	startedAt time.Time

	mu          sync.RWMutex
	nextEventID int64
	events      []Event
	nextSubID   int
	subs        map[int]chan Event
}

// New builds the service on top of an opened KV store.
func New(ctx context.Context, cfg Config, kv store.KV, log zerolog.Logger) (*Service, error) {
	if cfg.ProxyAddr == "" {
		cfg.ProxyAddr = "127.0.0.1:8780"
	}
	if cfg.APIAddr == "" {
		cfg.APIAddr = "127.0.0.1:8781"
	}
	if cfg.Upstream == "" {
		cfg.Upstream = "https://www.neopets.com"
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}

	tr := tracker.New(ctx, store.NewLedgerStore(kv), log)

	var notifier notify.Notifier = notify.Disabled{}
	if store.GetBool(ctx, kv, store.NotifyEnabledKey, false) {
		notifier = &notify.Desktop{IconPath: cfg.NotifyIcon}
	}

	prx, err := proxy.New(cfg.Upstream, tr, log)
	if err != nil {
		return nil, fmt.Errorf("building proxy: %w", err)
	}

	s := &Service{
		cfg:       cfg,
		kv:        kv,
		tracker:   tr,
		prx:       prx,
		log:       log.With().Str("component", "daemon").Logger(),
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
	s.sched = scheduler.New(kv, tr, notifier, s.onRefresh, log)

	tr.OnChange(func(snapshot ledger.Ledger, todayKey string) {
		s.publish(snapshot, todayKey)
	})

	return s, nil
}

// Run serves the proxy and API until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	proxySrv := &http.Server{
		Addr:              s.cfg.ProxyAddr,
		Handler:           s.prx.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	apiSrv := &http.Server{
		Addr:              s.cfg.APIAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		if err := proxySrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("proxy server: %w", err)
		}
	}()
	go func() {
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	s.log.Info().
		Str("proxy", s.cfg.ProxyAddr).
		Str("api", s.cfg.APIAddr).
		Str("upstream", s.cfg.Upstream).
		Msg("daemon started")

	s.checkStockPage(ctx)
	s.sched.Arm(ctx)
	defer s.sched.Stop()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = proxySrv.Shutdown(shutdownCtx)
		return apiSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// checkStockPage fetches the igloo stock page once and applies the
// page-level cap signal if present. Any failure just skips the check.
func (s *Service) checkStockPage(ctx context.Context) {
	page := s.cfg.StockPage
	if page == "" {
		page = s.cfg.Upstream + "/winter/igloo.phtml?stock=1"
	}

	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, page, nil)
	if err != nil {
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		s.log.Debug().Err(err).Msg("stock page check skipped")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return
	}
	if classify.PageCapReached(string(body)) {
		s.log.Info().Msg("stock page reports cap already reached")
		if err := s.tracker.ApplyCapReached(ctx, time.Now()); err != nil {
			s.log.Warn().Err(err).Msg("applying page-level cap failed")
		}
	}
}

// onRefresh is the scheduler's rollover hook.
func (s *Service) onRefresh(snapshot ledger.Ledger, todayKey string) {
	s.publish(snapshot, todayKey)
}

func (s *Service) publish(snapshot ledger.Ledger, todayKey string) {
	todayTotal := 0
	if day, ok := snapshot[todayKey]; ok && day != nil {
		todayTotal = day.Total
	}

	s.mu.Lock()
	s.nextEventID++
	ev := Event{
		ID:            s.nextEventID,
		Timestamp:     time.Now(),
		TodayKey:      todayKey,
		TodayTotal:    todayTotal,
		LifetimeTotal: snapshot.LifetimeTotal(),
	}
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

// Router returns the control API handler.
func (s *Service) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/v1/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/v1/ledger", s.handleLedger).Methods(http.MethodGet)
	r.HandleFunc("/v1/days/{day}", s.handleDay).Methods(http.MethodGet)
	r.HandleFunc("/v1/events", s.handleEvents).Methods(http.MethodGet)
	r.HandleFunc("/v1/stream", s.handleStream).Methods(http.MethodGet)
	return r
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) currentStatus() Status {
	now := time.Now()
	todayKey := nst.DayKey(now)

	s.mu.RLock()
	eventCount := len(s.events)
	subCount := len(s.subs)
	s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		TodayKey:        todayKey,
		TodayTotal:      s.tracker.DayTotal(todayKey),
		DailyLimit:      ledger.DailyLimit,
		LifetimeTotal:   s.tracker.LifetimeTotal(),
		ResetAt:         nst.NextMidnight(now),
		ResetsIn:        nst.FormatCountdown(nst.UntilReset(now)),
		NotifyEnabled:   store.GetBool(context.Background(), s.kv, store.NotifyEnabledKey, false),
		EventCount:      eventCount,
		SubscriberCount: subCount,
	}
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.currentStatus())
}

func (s *Service) handleLedger(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.tracker.Snapshot())
}

func (s *Service) handleDay(w http.ResponseWriter, r *http.Request) {
	day := mux.Vars(r)["day"]
	snap := s.tracker.Snapshot()
	rec, ok := snap[day]
	if !ok {
		http.Error(w, "no record for "+day, http.StatusNotFound)
		return
	}
	writeJSON(w, rec)
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()
	writeJSON(w, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	writeSSE(w, "status", s.currentStatus())
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, "ledger_change", ev)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeSSE(w http.ResponseWriter, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", event)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
