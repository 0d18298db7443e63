// Package manager runs the poll-decide-act cycle against one web server.
package manager

import (
	"context"
	"time"

	"github.com/robalyx/apachemgr/internal/discovery"
	"github.com/robalyx/apachemgr/internal/metrics"
	"github.com/robalyx/apachemgr/internal/process"
	"github.com/robalyx/apachemgr/internal/reaper"
	"github.com/robalyx/apachemgr/internal/status"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultHangingThreshold is how long an active worker may run its current request
// before it is reported as hanging.
const DefaultHangingThreshold = 5 * time.Minute

// resolveConcurrency bounds the memory lookups running at once.
const resolveConcurrency = 8

// StatusFetcher retrieves status pages.
type StatusFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ProcessScanner locates the master process and its descendants.
type ProcessScanner interface {
	FindMaster(ctx context.Context) (int, error)
	ListDescendants(ctx context.Context, master int) ([]process.Process, error)
}

// Options configures a Manager.
type Options struct {
	StatusURL        string // HTML status page; discovered from PortsConfig when empty
	PortsConfig      string
	HangingThreshold time.Duration
	Columns          []string // Required worker table columns, status.Columns when empty
}

// Deps are the collaborators of a Manager.
type Deps struct {
	Fetcher    StatusFetcher
	Scanner    ProcessScanner
	Resolver   reaper.Resolver
	Terminator reaper.Terminator
}

// Manager exposes the state of a web server for one poll. Results are cached until
// Refresh is called. A Manager is not safe for concurrent use.
type Manager struct {
	opts   Options
	deps   Deps
	engine *reaper.Engine
	logger *zap.Logger

	htmlURL        string
	htmlStatus     []byte
	textStatus     []byte
	slots          []*status.Worker
	server         *status.ServerMetrics
	tree           []process.Process
	treeLoaded     bool
	statusResponse StatusResponse
}

// New creates a new Manager.
func New(opts Options, deps Deps, logger *zap.Logger) *Manager {
	if opts.HangingThreshold <= 0 {
		opts.HangingThreshold = DefaultHangingThreshold
	}
	if len(opts.Columns) == 0 {
		opts.Columns = status.Columns
	}
	if opts.PortsConfig == "" {
		opts.PortsConfig = discovery.DefaultPortsConfig
	}

	logger = logger.Named("manager")

	return &Manager{
		opts:    opts,
		deps:    deps,
		engine:  reaper.NewEngine(deps.Terminator, logger),
		logger:  logger,
		htmlURL: opts.StatusURL,
	}
}

// Refresh drops every cached result so the next call polls the server again.
// Kill counters are kept.
func (m *Manager) Refresh() {
	m.htmlStatus = nil
	m.textStatus = nil
	m.slots = nil
	m.server = nil
	m.tree = nil
	m.treeLoaded = false
}

// StatusURLs returns the HTML and machine readable status page URLs.
func (m *Manager) StatusURLs() (htmlURL, textURL string, err error) {
	if m.htmlURL == "" {
		addresses, err := discovery.ParsePortsConfig(m.opts.PortsConfig, m.logger)
		if err != nil {
			return "", "", err
		}

		m.htmlURL, _ = discovery.StatusURLs(addresses)
		m.logger.Debug("Discovered status page", zap.String("url", m.htmlURL))
	}

	return m.htmlURL, discovery.TextURL(m.htmlURL), nil
}

// Prefetch retrieves the HTML and machine readable status pages concurrently.
func (m *Manager) Prefetch(ctx context.Context) error {
	if m.htmlStatus != nil && m.textStatus != nil {
		return nil
	}

	htmlURL, textURL, err := m.StatusURLs()
	if err != nil {
		return err
	}

	var htmlBody, textBody []byte

	p := pool.New().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		body, err := m.deps.Fetcher.Fetch(ctx, htmlURL)
		htmlBody = body
		return err
	})
	p.Go(func(ctx context.Context) error {
		body, err := m.deps.Fetcher.Fetch(ctx, textURL)
		textBody = body
		return err
	})

	err = p.Wait()
	m.recordResponse(err)
	if err != nil {
		return err
	}

	m.htmlStatus, m.textStatus = htmlBody, textBody
	return nil
}

// Slots returns every worker slot of the status page, empty slots included.
func (m *Manager) Slots(ctx context.Context) ([]*status.Worker, error) {
	if m.slots != nil {
		return m.slots, nil
	}

	if m.htmlStatus == nil {
		htmlURL, _, err := m.StatusURLs()
		if err != nil {
			return nil, err
		}

		if m.htmlStatus, err = m.fetch(ctx, htmlURL); err != nil {
			return nil, err
		}
	}

	slots, err := status.ParseWorkers(m.htmlStatus, m.opts.Columns)
	if err != nil {
		return nil, err
	}

	m.slots = slots
	return slots, nil
}

// Workers returns the slots that have a process assigned.
func (m *Manager) Workers(ctx context.Context) ([]*status.Worker, error) {
	slots, err := m.Slots(ctx)
	if err != nil {
		return nil, err
	}

	return status.Workers(slots), nil
}

// HangingWorkers returns the active workers whose current request started at least
// the hanging threshold ago.
func (m *Manager) HangingWorkers(ctx context.Context) ([]*status.Worker, error) {
	workers, err := m.Workers(ctx)
	if err != nil {
		return nil, err
	}

	var hanging []*status.Worker
	for _, w := range workers {
		if w.IsActive() && w.RequestAge() >= m.opts.HangingThreshold {
			hanging = append(hanging, w)
		}
	}

	return hanging, nil
}

// KillableWorkers returns the registry of native and foreign workers.
func (m *Manager) KillableWorkers(ctx context.Context) (reaper.Registry, error) {
	workers, err := m.Workers(ctx)
	if err != nil {
		return nil, err
	}

	return reaper.Build(ctx, workers, m.processTree(ctx), m.deps.Resolver), nil
}

// KillWorkers kills the workers exceeding the thresholds and returns what was killed.
func (m *Manager) KillWorkers(ctx context.Context, thresholds reaper.Thresholds, dryRun bool) (*reaper.Result, error) {
	registry, err := m.KillableWorkers(ctx)
	if err != nil {
		return nil, err
	}

	return m.engine.Apply(ctx, registry, thresholds, dryRun), nil
}

// ServerMetrics returns the global metrics of the machine readable status page.
func (m *Manager) ServerMetrics(ctx context.Context) (status.ServerMetrics, error) {
	if m.server != nil {
		return *m.server, nil
	}

	if m.textStatus == nil {
		_, textURL, err := m.StatusURLs()
		if err != nil {
			return status.ServerMetrics{}, err
		}

		if m.textStatus, err = m.fetch(ctx, textURL); err != nil {
			return status.ServerMetrics{}, err
		}
	}

	server, missing := status.ParseServerMetrics(m.textStatus)
	for _, name := range missing {
		m.logger.Warn("Metric missing from status page", zap.String("metric", name))
	}

	m.server = &server
	return server, nil
}

// MemoryUsage returns the resident memory of the worker processes per group.
func (m *Manager) MemoryUsage(ctx context.Context) metrics.MemoryUsage {
	usage := metrics.MemoryUsage{Groups: make(map[string]metrics.StatsList)}
	tree := m.processTree(ctx)

	infos := make([]process.Info, len(tree))
	resolved := make([]bool, len(tree))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)

	for i, p := range tree {
		g.Go(func() error {
			infos[i], resolved[i] = m.deps.Resolver.Resolve(gctx, p.PID)
			return nil
		})
	}
	_ = g.Wait()

	for i, p := range tree {
		if !resolved[i] {
			continue
		}

		if p.Group == "" {
			usage.Native = append(usage.Native, infos[i].RSS)
		} else {
			usage.Groups[p.Group] = append(usage.Groups[p.Group], infos[i].RSS)
		}
	}

	return usage
}

// Metrics returns the manager metrics. A status page that cannot be parsed leaves the
// hanging worker count at zero. After a failed request the server is not asked again.
func (m *Manager) Metrics(ctx context.Context) Metrics {
	var hanging []*status.Worker
	if m.statusResponse != StatusFailed {
		var err error
		if hanging, err = m.HangingWorkers(ctx); err != nil {
			m.logger.Debug("Hanging workers unavailable", zap.Error(err))
		}
	}

	return Metrics{
		WorkersHanging:      len(hanging),
		WorkersKilledActive: m.engine.ActiveKilled(),
		WorkersKilledIdle:   m.engine.IdleKilled(),
		StatusResponse:      m.statusResponse,
	}
}

// StatusResponse returns whether the last status page request succeeded.
func (m *Manager) StatusResponse() StatusResponse {
	return m.statusResponse
}

// ResetCounters clears the kill counters.
func (m *Manager) ResetCounters() {
	m.engine.Reset()
}

// Report collects everything written to the metrics data file. Server metrics that
// cannot be retrieved are left out and the error is returned alongside the report.
func (m *Manager) Report(ctx context.Context) (metrics.Report, error) {
	report := metrics.Report{Memory: m.MemoryUsage(ctx)}

	server, err := m.ServerMetrics(ctx)
	if err == nil {
		report.Server = server.Metrics()
	}

	report.Internal = m.Metrics(ctx).List()
	return report, err
}

// fetch retrieves a page and records the outcome.
func (m *Manager) fetch(ctx context.Context, url string) ([]byte, error) {
	body, err := m.deps.Fetcher.Fetch(ctx, url)
	m.recordResponse(err)
	if err != nil {
		return nil, err
	}

	return body, nil
}

func (m *Manager) recordResponse(err error) {
	if err != nil {
		m.statusResponse = StatusFailed
		return
	}

	m.statusResponse = StatusOK
}

// processTree returns the descendants of the master process. A missing master is
// logged and yields no processes.
func (m *Manager) processTree(ctx context.Context) []process.Process {
	if m.treeLoaded {
		return m.tree
	}
	m.treeLoaded = true

	master, err := m.deps.Scanner.FindMaster(ctx)
	if err != nil {
		m.logger.Warn("Failed to find master process", zap.Error(err))
		return nil
	}

	tree, err := m.deps.Scanner.ListDescendants(ctx, master)
	if err != nil {
		m.logger.Warn("Failed to list worker processes",
			zap.Int("master", master),
			zap.Error(err))
		return nil
	}

	m.tree = tree
	return tree
}
