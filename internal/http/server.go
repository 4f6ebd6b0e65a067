// SPDX-License-Identifier: AGPL-3.0-or-later
// relaybus - a distributed peer-to-peer service bus
// Copyright (C) 2023-2026 relaybus contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// The source code is available at <https://github.com/relaybus/relaybus>

// Package http exposes the admin/inspection API: a small read-only
// REST surface and a websocket relay over the peer directory's state,
// following the shape (though not the scope) of DMRHub's own
// internal/http server.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/relaybus/relaybus/internal/bus/directory"
	"github.com/relaybus/relaybus/internal/bus/repository"
	"github.com/relaybus/relaybus/internal/config"
	"github.com/relaybus/relaybus/internal/http/api"
	"github.com/relaybus/relaybus/internal/http/api/middleware"
	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"
)

const (
	defTimeout    = 10 * time.Second
	rateLimitRate = time.Second
	rateLimitLimit = 20
)

var (
	// ErrClosed is returned by Start once the server has been shut
	// down via Stop.
	ErrClosed = errors.New("http: server closed")
	// ErrFailed is returned by Start when ListenAndServe fails for any
	// other reason.
	ErrFailed = errors.New("http: failed to start server")
)

// Server is the admin/inspection HTTP server.
type Server struct {
	*http.Server
	shutdownChannel chan bool
}

// New builds the admin server, wiring CORS, rate limiting, optional
// tracing, and the peer routes/websocket onto a gin router.
func New(cfg *config.Config, server *directory.Server, repo repository.Repository) *Server {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	if err := r.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		slog.Error("http: failed setting trusted proxies", "error", err)
	}

	if cfg.Metrics.OTLPEndpoint != "" {
		r.Use(otelgin.Middleware("relaybus-http"))
		r.Use(middleware.TracingProvider(cfg))
	}

	r.Use(middleware.DirectoryProvider(server))
	r.Use(middleware.RepositoryProvider(repo))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSHosts
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	r.Use(cors.New(corsConfig))

	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  rateLimitRate,
		Limit: rateLimitLimit,
	})
	rl := ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			c.String(http.StatusTooManyRequests, "too many requests, try again in "+time.Until(info.ResetTime).String())
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})

	api.ApplyRoutes(r, cfg, server, rl)

	s := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Bind, cfg.HTTP.Port),
		Handler:      r,
		ReadTimeout:  defTimeout,
		WriteTimeout: defTimeout,
	}

	return &Server{Server: s, shutdownChannel: make(chan bool)}
}

// Start runs the server until Stop is called or ListenAndServe fails.
func (s *Server) Start() error {
	g := new(errgroup.Group)
	g.Go(func() error {
		err := s.ListenAndServe()
		switch {
		case err == nil:
			return nil
		case errors.Is(err, http.ErrServerClosed):
			s.shutdownChannel <- true
			return ErrClosed
		default:
			slog.Error("http: failed to start server", "error", err)
			return ErrFailed
		}
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() {
	const timeout = 5 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		slog.Error("http: failed to shut down server", "error", err)
		return
	}
	<-s.shutdownChannel
}
