// Package localsrv serves API Gateway proxy handlers over plain HTTP so the
// dashboard can be developed against a local table.
package localsrv

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/dmitriko/greenhouse/pkg/awsapi"
	"github.com/dmitriko/greenhouse/pkg/config"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/cors"
)

type Server struct {
	cfg      *config.Config
	readings awsapi.ProxyHandler
	infoLog  *log.Logger
	errorLog *log.Logger
}

func New(cfg *config.Config, readings awsapi.ProxyHandler) *Server {
	return &Server{
		cfg:      cfg,
		readings: readings,
		infoLog:  log.New(os.Stdout, "INFO\t", log.Ldate|log.Ltime),
		errorLog: log.New(os.Stderr, "ERROR\t", log.Ldate|log.Ltime|log.Lshortfile),
	}
}

func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/readings", s.proxy(s.readings)).Methods(http.MethodGet)
	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	})
	return c.Handler(r)
}

// Converts request into API Gateway proxy event and writes back the response
func (s *Server) proxy(h awsapi.ProxyHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h(r.Context(), toProxyRequest(r))
		if err != nil {
			s.errorLog.Printf("%s %s: %v", r.Method, r.URL.Path, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(resp.StatusCode)
		if _, err = w.Write([]byte(resp.Body)); err != nil {
			s.errorLog.Printf("write response: %v", err)
		}
	}
}

func toProxyRequest(r *http.Request) events.APIGatewayProxyRequest {
	headers := map[string]string{}
	for k, v := range r.Header {
		headers[k] = strings.Join(v, ",")
	}
	query := map[string]string{}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}
	return events.APIGatewayProxyRequest{
		Path:                  r.URL.Path,
		HTTPMethod:            r.Method,
		Headers:               headers,
		QueryStringParameters: query,
	}
}

// Serve blocks until ctx is cancelled or the server fails
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Routes(),
		IdleTimeout:       30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.infoLog.Printf("serving table %s on %s", s.cfg.TableName, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.infoLog.Println("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.errorLog.Printf("graceful shutdown failed: %v", err)
			_ = srv.Close()
		}
		return <-errCh
	case err := <-errCh:
		return errors.Wrap(err, "listen")
	}
}
