package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hikgate/hikgate-core/internal/audit"
	"github.com/hikgate/hikgate-core/internal/auth"
	"github.com/hikgate/hikgate-core/internal/events"
	"github.com/hikgate/hikgate-core/internal/hikcentral"
	"github.com/hikgate/hikgate-core/internal/infrastructure/config"
	"github.com/hikgate/hikgate-core/internal/infrastructure/logging"
	"github.com/hikgate/hikgate-core/internal/person"
	"github.com/hikgate/hikgate-core/internal/search"
	"github.com/hikgate/hikgate-core/internal/vehicle"
)

// gracefulShutdownTimeout bounds in-flight requests during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Vendor is the subset of the HikCentral gateway called directly by handlers.
type Vendor interface {
	GetPersonByCode(ctx context.Context, personCode string) (*hikcentral.Person, error)
	UpdateFace(ctx context.Context, personCode, faceData string) error
	AssignAccessLevel(ctx context.Context, personCode, groupID string) error
	ListAccessGroups(ctx context.Context, pageNo, pageSize int) (*hikcentral.Page[hikcentral.AccessGroup], error)
	ListOrganizations(ctx context.Context, pageNo, pageSize int) (*hikcentral.Page[hikcentral.Organization], error)
}

// Workflow runs person create and update.
type Workflow interface {
	Create(ctx context.Context, req person.Request) (*person.Report, error)
	Update(ctx context.Context, personID string, req person.Request) (*person.Report, error)
}

// Searcher lists and ranks people.
type Searcher interface {
	Search(ctx context.Context, query string) (*search.Listing, error)
	Page(ctx context.Context, pageNo, pageSize int) (*search.Listing, error)
	Enrich(ctx context.Context, results []search.Result)
}

// VehicleCache is the shared vehicle index.
type VehicleCache interface {
	Get(ctx context.Context) (vehicle.Index, error)
	Invalidate()
	ExpiresAt() time.Time
}

// HealthChecker is a dependency reported by /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Vendor   Vendor
	Workflow Workflow
	Searcher Searcher
	Vehicles VehicleCache
	Users    auth.UserRepository
	Tokens   *auth.TokenIssuer
	Audit    audit.Repository // optional
	Events   events.Publisher // optional

	// DefaultOrg is applied to new persons whose request names no organisation.
	DefaultOrg string

	// Health lists named dependencies reported by /health.
	Health map[string]HealthChecker

	Version string
}

// Server is the HTTP API server.
type Server struct {
	cfg        config.APIConfig
	logger     *logging.Logger
	vendor     Vendor
	workflow   Workflow
	searcher   Searcher
	vehicles   VehicleCache
	userRepo   auth.UserRepository
	tokens     *auth.TokenIssuer
	auditRepo  audit.Repository
	auditCh    chan *audit.Entry
	auditDone  chan struct{}
	events     events.Publisher
	eventCh    chan events.Event
	eventsDone chan struct{}
	defaultOrg string
	health     map[string]HealthChecker
	version    string
	server     *http.Server
	cancel     context.CancelFunc
}

// New validates deps and returns a server that is not yet listening.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger is required")
	case deps.Vendor == nil:
		return nil, fmt.Errorf("vendor gateway is required")
	case deps.Workflow == nil:
		return nil, fmt.Errorf("person workflow is required")
	case deps.Searcher == nil:
		return nil, fmt.Errorf("searcher is required")
	case deps.Vehicles == nil:
		return nil, fmt.Errorf("vehicle cache is required")
	case deps.Users == nil || deps.Tokens == nil:
		return nil, fmt.Errorf("user repository and token issuer are required")
	}

	s := &Server{
		cfg:        deps.Config,
		logger:     deps.Logger,
		vendor:     deps.Vendor,
		workflow:   deps.Workflow,
		searcher:   deps.Searcher,
		vehicles:   deps.Vehicles,
		userRepo:   deps.Users,
		tokens:     deps.Tokens,
		auditRepo:  deps.Audit,
		events:     deps.Events,
		defaultOrg: deps.DefaultOrg,
		health:     deps.Health,
		version:    deps.Version,
	}
	if s.events == nil {
		s.events = events.Noop{}
	} else {
		s.eventCh = make(chan events.Event, eventChanSize)
	}
	if s.auditRepo != nil {
		s.auditCh = make(chan *audit.Entry, auditChanSize)
	}
	return s, nil
}

// Start launches the audit writer, the event publisher and the HTTP
// listener in the background.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.auditCh != nil {
		s.auditDone = make(chan struct{})
		go func() {
			defer close(s.auditDone)
			s.drainAuditLog(srvCtx)
		}()
	}
	if s.eventCh != nil {
		s.eventsDone = make(chan struct{})
		go func() {
			defer close(s.eventsDone)
			s.drainEvents(srvCtx)
		}()
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close stops accepting requests, waits for in-flight ones, then flushes
// queued audit entries and events.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	err := s.server.Shutdown(ctx)

	if s.cancel != nil {
		s.cancel()
	}
	if s.auditDone != nil {
		<-s.auditDone
	}
	if s.eventsDone != nil {
		<-s.eventsDone
	}

	if err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
