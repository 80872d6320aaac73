package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/gorilla/mux"
)

type Controller interface {
	Register(r *mux.Router)
	Key() string
}

func NewHTTPServer(controllers ...Controller) *HTTPServer {
	return &HTTPServer{Controllers: controllers}
}

type HTTPServer struct {
	Controllers []Controller
	// Middlewares run on matched routes only.
	Middlewares []mux.MiddlewareFunc
	// Wrappers run outside the router, so they also see requests no route
	// matches, such as CORS preflights.
	Wrappers                []func(http.Handler) http.Handler
	NotFoundHandler         http.Handler
	MethodNotAllowedHandler http.Handler
}

func (s *HTTPServer) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.Middlewares...)
	for _, controller := range s.Controllers {
		controller.Register(r)
	}

	if s.NotFoundHandler != nil {
		r.NotFoundHandler = s.wrap(s.NotFoundHandler)
	}
	if s.MethodNotAllowedHandler != nil {
		r.MethodNotAllowedHandler = s.wrap(s.MethodNotAllowedHandler)
	}
	return r
}

func (s *HTTPServer) wrap(h http.Handler) http.Handler {
	for i := len(s.Middlewares) - 1; i >= 0; i-- {
		h = s.Middlewares[i](h)
	}
	return h
}

func (s *HTTPServer) Handler() http.Handler {
	var h http.Handler = s.Router()
	for i := len(s.Wrappers) - 1; i >= 0; i-- {
		h = s.Wrappers[i](h)
	}
	return gziphandler.GzipHandler(h)
}

// Serve listens on socketAddress until ctx is done, then shuts down gracefully.
func (s *HTTPServer) Serve(ctx context.Context, socketAddress string) error {
	srv := &http.Server{
		Addr:              socketAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
