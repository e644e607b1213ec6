// Package session owns the long-lived network resources of the bot: the
// outbound HTTP client, the cache connection and the storage pool. They are
// rebuilt on every platform login and torn down on logout or shutdown.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"obsidion/internal/cache"
	"obsidion/internal/config"
	"obsidion/internal/database"
	"obsidion/internal/fetch"
	"obsidion/internal/metrics"
)

// ErrNotReady is returned when a resource is used outside a live session
var ErrNotReady = errors.New("session: resource not ready")

// errSuperseded marks provisioning that finished after a newer Recreate or a Shutdown
var errSuperseded = errors.New("session: provisioning superseded")

// StoreOpener opens the storage pool
type StoreOpener func(ctx context.Context) (database.Store, error)

// CacheOpener opens the cache connection. stop releases anything started
// alongside the client (the in-process stand-in) and may be nil.
type CacheOpener func(ctx context.Context) (client *redis.Client, stop func(), err error)

// Flusher is the telemetry transport flushed last on shutdown
type Flusher interface {
	Shutdown(ctx context.Context) error
}

type Option func(*Session)

func WithStoreOpener(open StoreOpener) Option {
	return func(s *Session) { s.openStore = open }
}

func WithCacheOpener(open CacheOpener) Option {
	return func(s *Session) { s.openCache = open }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

func WithTelemetry(f Flusher) Option {
	return func(s *Session) { s.telemetry = f }
}

type cacheConn struct {
	client *redis.Client
	stop   func()
}

func (c *cacheConn) Close() error {
	err := c.client.Close()
	if c.stop != nil {
		c.stop()
	}
	return err
}

// Session is the process-wide owner of network resources. Handlers reach
// the cache and storage through Cache and Store, which wait for readiness.
type Session struct {
	cfg     *config.Config
	logger  *log.Logger
	metrics *metrics.Metrics

	openStore StoreOpener
	openCache CacheOpener
	telemetry Flusher

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	platform   io.Closer

	resolver   *net.Resolver
	transport  *http.Transport
	httpClient *http.Client
	fetcher    *fetch.Client
	httpClosed bool

	cacheConn   *cacheConn
	cache       *cache.Cache
	cacheClosed bool

	store       database.Store
	storeClosed bool

	telemetryFlushed bool

	cacheReady   *Signal
	storageReady *Signal

	provisioning sync.WaitGroup
}

// New builds an empty session. Nothing is opened until Recreate.
func New(cfg *config.Config, opts ...Option) *Session {
	s := &Session{
		cfg:          cfg,
		logger:       cfg.Logger,
		cacheReady:   NewSignal(),
		storageReady: NewSignal(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.openStore == nil {
		s.openStore = func(ctx context.Context) (database.Store, error) {
			return database.Open(ctx, cfg)
		}
	}
	if s.openCache == nil {
		s.openCache = s.defaultCacheOpener
	}
	return s
}

// Recreate rebuilds the HTTP client and schedules cache and storage
// provisioning in the background. Earlier in-flight provisioning is
// cancelled. Resources still open from a previous cycle are not closed,
// only replaced, and a warning is logged for each.
func (s *Session) Recreate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	gen := s.generation
	if s.cancel != nil {
		s.cancel()
	}
	provisionCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if s.transport != nil && !s.httpClosed {
		s.logger.Warn("previous HTTP client was not closed; it will remain open and be overwritten")
	}
	if s.cacheConn != nil && !s.cacheClosed {
		s.logger.Warn("previous cache connection was not closed; it will remain open and be overwritten")
	}
	if s.store != nil && !s.storeClosed {
		s.logger.Warn("previous storage pool was not closed; it will remain open and be overwritten")
	}

	s.cacheReady.ResetIfFailed()
	s.storageReady.ResetIfFailed()

	s.provisioning.Add(2)
	go func() {
		defer s.provisioning.Done()
		if err := s.provisionCache(provisionCtx, gen); err != nil && !errors.Is(err, errSuperseded) {
			s.logger.Error("Cache provisioning failed", "err", err)
		}
	}()
	go func() {
		defer s.provisioning.Done()
		if err := s.provisionStorage(provisionCtx, gen); err != nil && !errors.Is(err, errSuperseded) {
			s.logger.Error("Storage provisioning failed", "err", err)
		}
	}()

	s.resolver = &net.Resolver{PreferGo: true}
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Resolver:  s.resolver,
	}
	s.transport = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		// Pinned to IPv4 so hosts with broken AAAA records still resolve
		DialContext: func(ctx context.Context, _, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, "tcp4", addr)
		},
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	s.httpClient = &http.Client{Transport: s.transport}
	s.fetcher = fetch.New(s.httpClient, fetch.Options{
		Timeout:    s.cfg.GetFetchTimeout(),
		MaxRetries: s.cfg.GetFetchMaxRetries(),
		Metrics:    s.metrics,
	})
	s.httpClosed = false

	s.logger.Debug("Session recreated", "generation", gen)
}

// ProvisionCache opens the cache connection synchronously for the current generation
func (s *Session) ProvisionCache(ctx context.Context) error {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()
	return s.provisionCache(ctx, gen)
}

// ProvisionStorage opens the storage pool and bootstraps the schema for the current generation
func (s *Session) ProvisionStorage(ctx context.Context) error {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()
	return s.provisionStorage(ctx, gen)
}

func (s *Session) provisionCache(ctx context.Context, gen uint64) error {
	client, stop, err := s.openCache(ctx)
	if err != nil {
		err = fmt.Errorf("open cache: %w", err)
		s.failIfCurrent(gen, s.cacheReady, err)
		return err
	}
	conn := &cacheConn{client: client, stop: stop}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		_ = conn.Close()
		return errSuperseded
	}
	s.cacheConn = conn
	s.cache = cache.New(client, s.logger, s.metrics)
	s.cacheClosed = false
	s.cacheReady.Set()
	s.logger.Info("Cache connection ready")
	return nil
}

func (s *Session) provisionStorage(ctx context.Context, gen uint64) error {
	store, err := s.openStore(ctx)
	if err != nil {
		err = fmt.Errorf("open storage: %w", err)
		s.failIfCurrent(gen, s.storageReady, err)
		return err
	}

	created, err := store.EnsureSchema(ctx)
	if err != nil {
		_ = store.Close()
		err = fmt.Errorf("bootstrap schema: %w", err)
		s.failIfCurrent(gen, s.storageReady, err)
		return err
	}
	if created {
		s.logger.Info("Created database schema")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		_ = store.Close()
		return errSuperseded
	}
	s.store = store
	s.storeClosed = false
	s.storageReady.Set()
	s.logger.Info("Storage pool ready")
	return nil
}

func (s *Session) failIfCurrent(gen uint64, sig *Signal, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.generation {
		sig.Fail(err)
	}
}

// AttachPlatform registers the chat platform connection so Shutdown closes it first
func (s *Session) AttachPlatform(c io.Closer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.platform = c
}

// WaitCache blocks until the cache is ready, provisioning failed, or ctx ends
func (s *Session) WaitCache(ctx context.Context) error {
	return s.cacheReady.Wait(ctx)
}

// WaitStorage blocks until the storage pool is ready, provisioning failed, or ctx ends
func (s *Session) WaitStorage(ctx context.Context) error {
	return s.storageReady.Wait(ctx)
}

// Cache waits for readiness and returns the current cache
func (s *Session) Cache(ctx context.Context) (*cache.Cache, error) {
	if err := s.WaitCache(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache == nil || s.cacheClosed {
		return nil, ErrNotReady
	}
	return s.cache, nil
}

// Store waits for readiness and returns the current storage pool
func (s *Session) Store(ctx context.Context) (database.Store, error) {
	if err := s.WaitStorage(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil || s.storeClosed {
		return nil, ErrNotReady
	}
	return s.store, nil
}

// HTTPClient returns the current outbound client, or nil before the first Recreate
func (s *Session) HTTPClient() *http.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.httpClient
}

// Transport returns a round tripper that always forwards to the transport of
// the current cycle. Clients built once on top of it follow every Recreate.
func (s *Session) Transport() http.RoundTripper {
	return sessionTransport{s}
}

type sessionTransport struct {
	s *Session
}

func (t sessionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.s.mu.Lock()
	tr, closed := t.s.transport, t.s.httpClosed
	t.s.mu.Unlock()
	if tr == nil || closed {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, ErrNotReady
	}
	return tr.RoundTrip(req)
}

func (s *Session) currentFetcher() (*fetch.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetcher == nil || s.httpClosed {
		return nil, ErrNotReady
	}
	return s.fetcher, nil
}

// GetJSON issues a GET through the current HTTP client
func (s *Session) GetJSON(ctx context.Context, rawURL string, params url.Values, out any) error {
	f, err := s.currentFetcher()
	if err != nil {
		return err
	}
	return f.GetJSON(ctx, rawURL, params, out)
}

// PostJSON issues a POST through the current HTTP client
func (s *Session) PostJSON(ctx context.Context, rawURL string, headers map[string]string, body, out any) error {
	f, err := s.currentFetcher()
	if err != nil {
		return err
	}
	return f.PostJSON(ctx, rawURL, headers, body, out)
}

func (s *Session) CacheReady() bool {
	return s.cacheReady.IsSet()
}

func (s *Session) StorageReady() bool {
	return s.storageReady.IsSet()
}

// CacheClosed reports whether the last cache connection has been torn down
func (s *Session) CacheClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cacheConn == nil || s.cacheClosed
}

type release struct {
	name  string
	close func() error
}

// Shutdown releases every owned resource in order: platform connection,
// HTTP client, DNS resolver, cache, storage pool, telemetry. Each failure
// is logged and the remaining resources are still released. Calling it
// again is a no-op.
func (s *Session) Shutdown(ctx context.Context) {
	s.mu.Lock()
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	var steps []release
	if s.platform != nil {
		steps = append(steps, release{"platform connection", s.platform.Close})
		s.platform = nil
	}
	if s.transport != nil && !s.httpClosed {
		transport := s.transport
		steps = append(steps, release{"HTTP client", func() error {
			transport.CloseIdleConnections()
			return nil
		}})
		s.httpClosed = true
	}
	if s.resolver != nil {
		// The pure-Go resolver holds no sockets between lookups; dropping it is enough
		steps = append(steps, release{"DNS resolver", func() error { return nil }})
		s.resolver = nil
	}
	if s.cacheConn != nil && !s.cacheClosed {
		s.cacheReady.Clear()
		s.cacheClosed = true
		steps = append(steps, release{"cache connection", s.cacheConn.Close})
	}
	if s.store != nil && !s.storeClosed {
		s.storageReady.Clear()
		s.storeClosed = true
		steps = append(steps, release{"storage pool", s.store.Close})
	}
	if s.telemetry != nil && !s.telemetryFlushed {
		tel := s.telemetry
		steps = append(steps, release{"telemetry", func() error { return tel.Shutdown(ctx) }})
		s.telemetryFlushed = true
	}
	s.mu.Unlock()

	for _, step := range steps {
		if err := step.close(); err != nil {
			s.logger.Error("Failed to close "+step.name, "err", err)
			continue
		}
		s.logger.Debug("Closed " + step.name)
	}
}

func (s *Session) defaultCacheOpener(ctx context.Context) (*redis.Client, func(), error) {
	if !s.cfg.GetRedisEnabled() {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start in-process cache: %w", err)
		}
		s.logger.Info("Redis disabled, using in-process cache", "addr", mr.Addr())
		return redis.NewClient(&redis.Options{Addr: mr.Addr()}), mr.Close, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     s.cfg.GetRedisAddr(),
		Password: s.cfg.GetRedisPassword(),
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis at %s: %w", s.cfg.GetRedisAddr(), err)
	}
	return client, nil, nil
}
