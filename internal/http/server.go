// Package http exposes the JSON API for operations, calendar events,
// budgets, summaries, recipes and weekly menus.
package http

import (
	"container/list"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"hucha/internal/core"
	applog "hucha/internal/log"
	"hucha/internal/services"
	"hucha/internal/storage"
)

// lruCache is a size-bounded cache with TTL used for summary responses.
type lruCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
}

type cacheItem[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

func newLRUCache[T any](maxSize int, ttl time.Duration) *lruCache[T] {
	return &lruCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

func (c *lruCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, exists := c.items[key]
	if !exists {
		return zero, false
	}

	item := elem.Value.(*cacheItem[T])
	if time.Now().After(item.expiresAt) {
		c.removeElement(elem)
		return zero, false
	}

	c.lru.MoveToFront(elem)
	return item.data, true
}

func (c *lruCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := &cacheItem[T]{
		key:       key,
		data:      data,
		expiresAt: time.Now().Add(c.ttl),
	}

	if elem, exists := c.items[key]; exists {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}

	elem := c.lru.PushFront(item)
	c.items[key] = elem

	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

func (c *lruCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.removeElement(elem)
	}
}

func (c *lruCache[T]) removeElement(elem *list.Element) {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.key)
	c.lru.Remove(elem)
}

// CleanExpired removes all expired entries and reports how many went.
func (c *lruCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var toRemove []*list.Element
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*cacheItem[T]).expiresAt) {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		c.removeElement(elem)
	}
	return len(toRemove)
}

type Server struct {
	http.Server

	operations *services.OperationService
	calendar   *services.CalendarService
	budgets    *services.BudgetService
	meals      *services.MealsService
	users      storage.UserStore

	logger      *applog.Logger
	rateLimiter *rateLimiter

	monthCache *lruCache[core.MonthSummary]
	yearCache  *lruCache[core.YearSummary]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// Deps bundles what the server needs.
type Deps struct {
	Operations *services.OperationService
	Calendar   *services.CalendarService
	Budgets    *services.BudgetService
	Meals      *services.MealsService
	Users      storage.UserStore
	Logger     *applog.Logger
}

// NewServer configures all routes and returns a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		operations:       deps.Operations,
		calendar:         deps.Calendar,
		budgets:          deps.Budgets,
		meals:            deps.Meals,
		users:            deps.Users,
		logger:           logger.WithComponent(applog.ComponentHTTP),
		rateLimiter:      newRateLimiter(),
		monthCache:       newLRUCache[core.MonthSummary](200, 5*time.Minute),
		yearCache:        newLRUCache[core.YearSummary](100, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	// Operations
	mux.HandleFunc("POST /api/user/operations", s.secured(s.handleCreateOperation))
	mux.HandleFunc("GET /api/user/operations", s.secured(s.handleListOperations))
	mux.HandleFunc("GET /api/user/operations/{id}", s.secured(s.handleGetOperation))
	mux.HandleFunc("PUT /api/user/operations/{id}", s.secured(s.handleUpdateOperation))
	mux.HandleFunc("DELETE /api/user/operations/{id}", s.secured(s.handleDeleteOperation))

	// Legacy route names kept for old clients
	mux.HandleFunc("POST /operaciones", s.secured(s.handleCreateOperation))
	mux.HandleFunc("GET /operaciones", s.secured(s.handleListOperations))
	mux.HandleFunc("GET /operaciones/{id}", s.secured(s.handleGetOperation))
	mux.HandleFunc("PUT /operaciones/{id}", s.secured(s.handleUpdateOperation))
	mux.HandleFunc("DELETE /operaciones/{id}", s.secured(s.handleDeleteOperation))

	// Summaries
	mux.HandleFunc("GET /api/user/summary/month", s.secured(s.handleMonthSummary))
	mux.HandleFunc("GET /api/user/summary/year", s.secured(s.handleYearSummary))

	// Calendar events
	mux.HandleFunc("POST /api/user/calendar-events", s.secured(s.handleCreateEvent))
	mux.HandleFunc("GET /api/user/calendar-events", s.secured(s.handleListEvents))
	mux.HandleFunc("GET /api/user/calendar-events/month", s.secured(s.handleCalendarMonth))
	mux.HandleFunc("GET /api/user/calendar-events/{id}", s.secured(s.handleGetEvent))
	mux.HandleFunc("PUT /api/user/calendar-events/{id}", s.secured(s.handleUpdateEvent))
	mux.HandleFunc("DELETE /api/user/calendar-events/{id}", s.secured(s.handleDeleteEvent))
	mux.HandleFunc("GET /calendar-events", s.secured(s.handleListEvents))

	// Budgets
	mux.HandleFunc("GET /api/user/budgets", s.secured(s.handleGetBudgets))
	mux.HandleFunc("PUT /api/user/budgets", s.secured(s.handleReplaceBudgets))

	// Recipes and weekly menus
	mux.HandleFunc("POST /api/user/recipes", s.secured(s.handleCreateRecipe))
	mux.HandleFunc("GET /api/user/recipes", s.secured(s.handleListRecipes))
	mux.HandleFunc("GET /api/user/recipes/{id}", s.secured(s.handleGetRecipe))
	mux.HandleFunc("PUT /api/user/recipes/{id}", s.secured(s.handleUpdateRecipe))
	mux.HandleFunc("DELETE /api/user/recipes/{id}", s.secured(s.handleDeleteRecipe))
	mux.HandleFunc("GET /api/user/menu", s.secured(s.handleGetMenu))
	mux.HandleFunc("PUT /api/user/menu", s.secured(s.handleReplaceMenu))

	return s
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			monthCleaned := s.monthCache.CleanExpired()
			yearCleaned := s.yearCache.CleanExpired()
			if monthCleaned > 0 || yearCleaned > 0 {
				s.logger.Debug("Cache cleanup completed",
					"month_entries_removed", monthCleaned,
					"year_entries_removed", yearCleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the cleanup goroutines and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// secured wraps a handler with security headers, rate limiting on mutating
// methods, request logging and bearer-token authentication.
func (s *Server) secured(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		logger := s.logger.With(applog.FieldRequestID, requestID)
		ctx := applog.IntoContext(r.Context(), logger)

		logger.InfoContext(ctx, "Request started",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP)

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded", "")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		user, ok := s.authenticate(w, r.WithContext(ctx))
		if !ok {
			return
		}
		r = r.WithContext(withUser(ctx, user))

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		logger.InfoContext(ctx, "Request completed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, time.Since(start).Milliseconds(),
			applog.FieldUserID, user.ID)
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// responseWriter captures the status code for the completion log line.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func summaryKey(userID int64, year, month int) string {
	return strconv.FormatInt(userID, 10) + "-" + strconv.Itoa(year) + "-" + strconv.Itoa(month)
}

func yearKey(userID int64, year int) string {
	return strconv.FormatInt(userID, 10) + "-" + strconv.Itoa(year)
}

// invalidateSummaries drops the cached summaries touched by a write.
func (s *Server) invalidateSummaries(ops ...core.Operation) {
	for _, op := range ops {
		s.monthCache.Delete(summaryKey(op.UserID, op.Date.Year(), op.Date.Month()))
		s.yearCache.Delete(yearKey(op.UserID, op.Date.Year()))
	}
}
