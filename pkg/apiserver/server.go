package apiserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gowso/bizsites/pkg/backend"
	"github.com/gowso/bizsites/pkg/version"
	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type apiServer struct {
	ctx            context.Context
	log            *logrus.Entry
	port           int
	allowedOrigins []string
	tokenHash      string
}

// NewAPIServer creates the server. allowedOrigins is a comma separated CORS origin list and tokenHash, when set,
// is the bcrypt hash of the bearer token guarding the provisioning routes.
func NewAPIServer(ctx context.Context, log *logrus.Entry, port int, allowedOrigins, tokenHash string) *apiServer {
	var origins []string
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &apiServer{
		ctx:            ctx,
		log:            log,
		port:           port,
		allowedOrigins: origins,
		tokenHash:      tokenHash,
	}
}

func (a *apiServer) routes(b backend.Backend) http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.Use(loggingMiddleware(a.log))
	h := newHandler(b)
	authed := tokenAuthMiddleware(a.tokenHash)

	router.Path("/healthz").HandlerFunc(h.root)

	api := router.PathPrefix("/v1").Subrouter()

	// Runs the provisioning workflow once and answers with the run summary.
	api.Path("/provision").Methods(http.MethodPost).Handler(authed(http.HandlerFunc(h.provision)))
	api.Path("/provision").HandlerFunc(h.methodNotAllowed)

	api.Path("/business").Methods(http.MethodGet, http.MethodHead).HandlerFunc(h.business)
	api.Path("/business").HandlerFunc(h.methodNotAllowed)

	api.Path("/sites").Methods(http.MethodGet).Handler(authed(http.HandlerFunc(h.sites)))
	api.Path("/sites").HandlerFunc(h.methodNotAllowed)
	api.Path("/sites/{label}").Methods(http.MethodGet).Handler(authed(http.HandlerFunc(h.site)))
	api.Path("/sites/{label}").HandlerFunc(h.methodNotAllowed)

	// Unknown api paths must not fall through to the business pages below.
	api.NewRoute().HandlerFunc(http.NotFound)

	// Every other path on a business host is that business's page.
	router.MatcherFunc(func(r *http.Request, _ *mux.RouteMatch) bool {
		return b.IsSiteHost(r.Host)
	}).Methods(http.MethodGet, http.MethodHead).HandlerFunc(h.page)

	// When functioning properly, this route will return the version of the app that is running
	router.Path("/").HandlerFunc(h.root)

	// Note: this allows not found urls to be logged via the middleware
	// It **HAS** to be defined after all other paths are defined.
	router.NotFoundHandler = router.NewRoute().HandlerFunc(http.NotFound).GetHandler()

	return ghandlers.CORS(
		ghandlers.AllowedOrigins(a.allowedOrigins),
		ghandlers.AllowedMethods([]string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions}),
		ghandlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)(router)
}

func (a *apiServer) Start(b backend.Backend) error {
	logrus.Infof("Version: %s", version.Get())

	// Below this point is where the server is started and graceful shutdown occurs.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.port),
		Handler:           a.routes(b),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		a.log.WithFields(logrus.Fields{
			"port":   a.port,
			"domain": b.GetRootDomain(),
		}).Info("starting api server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Fatalf("listen: %s\n", err)
		}
	}()

	go b.StartProvisionDaemon(a.ctx.Done())

	<-a.ctx.Done()

	a.log.Info("shutting down the api server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		a.log.WithError(err).Error("unable to shutdown the api server gracefully")
		return err
	}

	return nil
}
