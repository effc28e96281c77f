package apiserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/acorn-io/acorn-edge/pkg/backend"
	"github.com/acorn-io/acorn-edge/pkg/config"
	"github.com/acorn-io/acorn-edge/pkg/host"
	"github.com/acorn-io/acorn-edge/pkg/version"
	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type apiServer struct {
	ctx  context.Context
	log  *logrus.Entry
	port int
}

func NewAPIServer(ctx context.Context, log *logrus.Entry, port int) *apiServer {
	return &apiServer{
		ctx:  ctx,
		log:  log,
		port: port,
	}
}

// NewRouter builds the full edge handler chain. Routes are tried in the order
// they are registered and the first match answers. A nil ready reports ready.
func NewRouter(cfg config.Config, b backend.Backend, upstreams Upstreams, ready func() error, log *logrus.Entry) http.Handler {
	router := mux.NewRouter()
	h := newHandler(cfg, b, upstreams)
	h.ready = ready

	router.Path("/healthz").MatcherFunc(notSubdomain).HandlerFunc(h.root)
	router.Path("/readyz").MatcherFunc(notSubdomain).HandlerFunc(h.readyz)

	// Everything addressed to <sub>.<apex> stays on the subdomain branch.
	sub := router.MatcherFunc(isSubdomain).Subrouter()
	sub.Path(wellKnownNostrPath).Methods("GET", "HEAD").HandlerFunc(h.subdomainDiscovery)
	sub.MatcherFunc(h.isStaticAsset).HandlerFunc(h.fallback)
	sub.PathPrefix("/").Methods("GET", "HEAD").HandlerFunc(h.profile)
	sub.PathPrefix("/").HandlerFunc(h.fallback)

	for _, path := range cfg.RedirectPaths() {
		router.Path(path).Handler(redirectHandler(path, cfg.Redirects[path]))
	}

	router.Path(wellKnownNostrPath).Methods("GET", "HEAD").HandlerFunc(h.apexDiscovery)

	router.Path("/video/{id}").Methods("GET", "HEAD").MatcherFunc(h.isCrawler).HandlerFunc(h.videoPreview)
	router.Path("/video/{id}").HandlerFunc(h.videoPage)

	if cfg.ServiceWorkerPath != "" {
		router.Path(cfg.ServiceWorkerPath).HandlerFunc(h.serveServiceWorker)
	}

	if cfg.ReportPath != "" && h.report != nil {
		router.Path(cfg.ReportPath).Methods("POST", "OPTIONS").Handler(h.report)
	}

	router.PathPrefix("/").HandlerFunc(h.fallback)

	classifier := host.Classifier{
		ApexDomains:        cfg.ApexDomains,
		ReservedSubdomains: cfg.ReservedSubdomains,
		OriginalHostHeader: cfg.OriginalHostHeader,
	}

	// The route matchers read the host classification, so it is attached
	// before the router sees the request.
	var handler http.Handler = router
	handler = hostMiddleware(classifier, cfg.OriginalHostHeader)(handler)
	handler = loggingMiddleware(log)(handler)
	return ghandlers.CORS()(handler)
}

func (a *apiServer) Start(cfg config.Config, b backend.Backend, upstreams Upstreams) error {
	logrus.Infof("Version: %s", version.Get())

	prober := backend.NewProber(b, cfg.ShellPath, 0)

	// Below this point is where the server is started and graceful shutdown occurs.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.port),
		Handler:           NewRouter(cfg, b, upstreams, prober.Ready, a.log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		a.log.WithFields(logrus.Fields{
			"port": a.port,
			"apex": cfg.ApexDomains,
		}).Info("starting edge server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Fatalf("listen: %s\n", err)
		}
	}()

	go prober.Start(a.ctx.Done())

	<-a.ctx.Done()

	a.log.Info("shutting down the edge server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer func() {
		cancel()
	}()

	if err := srv.Shutdown(ctx); err != nil {
		a.log.WithError(err).Error("unable to shutdown the edge server gracefully")
		return err
	}

	return nil
}
