package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/plugin"
	"github.com/prometheus/client_golang/prometheus"

	configpkg "github.com/luntra/eventflow/internal/runtime/config"
	loggingpkg "github.com/luntra/eventflow/internal/runtime/logging"
	metricspkg "github.com/luntra/eventflow/internal/runtime/metrics"
	registrypkg "github.com/luntra/eventflow/internal/runtime/registry"
	retrypkg "github.com/luntra/eventflow/internal/runtime/retry"
	transportpkg "github.com/luntra/eventflow/internal/runtime/transport"
)

var routerRun = func(router *message.Router, ctx context.Context) error {
	return router.Run(ctx)
}

// ServiceDependencies holds the optional collaborators that the Service can use.
// Leave fields nil to use the built-in defaults.
type ServiceDependencies struct {
	Middlewares               []MiddlewareRegistration // Appended after the default middleware chain.
	DisableDefaultMiddlewares bool                     // Skips registering the default middleware chain when true.
	TransportFactory          transportpkg.Factory
	Hooks                     JobHooks
	MetricsRegisterer         prometheus.Registerer
	ErrorClassifier           ErrorClassifier
}

// Service wires a Watermill router, publisher, subscriber, handler registry,
// retry policy, and dead-letter routing into one integration event pipeline.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router

	registry    *registrypkg.Registry
	metrics     *metricspkg.JobMetrics
	retryPolicy retrypkg.Policy
	hooks       JobHooks

	handlers   []*HandlerInfo
	handlersMu sync.RWMutex

	httpServers   map[int]*http.ServeMux
	httpServersMu sync.Mutex

	errorClassifier ErrorClassifier
	resourceTracker *resourceTracker
}

// NewService constructs a Service for the supplied configuration. Register
// event handlers on the returned Service before calling Start; the registry
// is frozen once the router runs.
func NewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps ServiceDependencies) *Service {
	conf.ApplyDefaults()

	wmLogger := loggingpkg.NewWatermillAdapter(log)
	log.Info("Creating event service",
		loggingpkg.LogFields{
			"pubsub_system": conf.PubSubSystem,
			"config":        conf,
		})

	s := &Service{
		Conf:            conf,
		Logger:          log,
		registry:        registrypkg.New(),
		metrics:         metricspkg.NewJobMetrics(deps.MetricsRegisterer),
		hooks:           deps.Hooks,
		resourceTracker: newResourceTracker(),
		retryPolicy: retrypkg.Policy{
			MaxAttempts:       conf.MaxAttempts,
			BaseDelay:         conf.BaseDelay,
			PerAttemptTimeout: conf.JobTimeout,
		},
	}

	if deps.ErrorClassifier != nil {
		s.errorClassifier = deps.ErrorClassifier
	} else {
		s.errorClassifier = defaultErrorClassifier
	}

	if conf.MetricsEnabled {
		if err := s.metrics.Register(); err != nil {
			panic(err)
		}
	}

	factory := deps.TransportFactory
	if factory == nil {
		factory = transportpkg.DefaultFactory()
	}
	transport, err := factory.Build(ctx, conf, wmLogger)
	if err != nil {
		panic(err)
	}

	s.publisher = transport.Publisher
	s.subscriber = transport.Subscriber

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		panic(err)
	}

	s.router = router
	s.router.AddPlugin(plugin.SignalsHandler)

	s.registerConfiguredMiddlewares(deps)

	return s
}

// Start freezes the handler registry and runs the underlying Watermill router
// until the provided context is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.registry.Freeze()
	s.StartOpsAPIServer()
	s.startHTTPServers()
	return routerRun(s.router, ctx)
}

// Close tears down the router and the transport connections. After Close the
// service can no longer publish or consume; build a new Service instead of
// reusing a closed one.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}

	var errs []error
	if s.router != nil {
		if err := s.router.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.subscriber != nil {
		if err := s.subscriber.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Metrics exposes the job metrics collector, mainly for hooks and the ops API.
func (s *Service) Metrics() *metricspkg.JobMetrics {
	return s.metrics
}

// RetryPolicy returns the retry policy applied to every job.
func (s *Service) RetryPolicy() retrypkg.Policy {
	return s.retryPolicy
}

func (s *Service) registerConfiguredMiddlewares(deps ServiceDependencies) {
	var defaults []MiddlewareRegistration
	if !deps.DisableDefaultMiddlewares {
		defaults = DefaultMiddlewares()
	}
	registrations := make([]MiddlewareRegistration, 0, len(defaults)+len(deps.Middlewares))
	registrations = append(registrations, defaults...)
	registrations = append(registrations, deps.Middlewares...)

	for _, reg := range registrations {
		if err := s.RegisterMiddleware(reg); err != nil {
			name := reg.Name
			if name == "" {
				name = "anonymous_middleware"
			}
			panic(fmt.Sprintf("failed to register middleware %s: %v", name, err))
		}
	}
}

func (s *Service) getErrorClassifier() ErrorClassifier {
	if s.errorClassifier == nil {
		return defaultErrorClassifier
	}
	return s.errorClassifier
}

func (s *Service) getResourceTracker() *resourceTracker {
	if s.resourceTracker == nil {
		s.resourceTracker = newResourceTracker()
	}
	return s.resourceTracker
}

func (s *Service) RegisterHTTPHandler(port int, pattern string, handler http.Handler) {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	if s.httpServers == nil {
		s.httpServers = make(map[int]*http.ServeMux)
	}

	mux, ok := s.httpServers[port]
	if !ok {
		mux = http.NewServeMux()
		s.httpServers[port] = mux
	}

	mux.Handle(pattern, handler)
}

func (s *Service) startHTTPServers() {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	for port, mux := range s.httpServers {
		addr := fmt.Sprintf(":%d", port)
		s.Logger.Info("Starting HTTP server", loggingpkg.LogFields{"address": addr})
		go func(addr string, handler http.Handler) {
			if err := http.ListenAndServe(addr, handler); err != nil {
				s.Logger.Error("Failed to start HTTP server", err, loggingpkg.LogFields{"address": addr})
			}
		}(addr, mux)
	}
}
