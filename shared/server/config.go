// Package server builds the addon's HTTP server with timeouts sized
// around the stream aggregation deadline.
package server

import (
	"net/http"
	"time"
)

type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewConfig sizes the write timeout to cover the aggregation deadline
// plus serialization headroom. maxRequestWait of zero keeps the default.
func NewConfig(addr string, maxRequestWait time.Duration) *Config {
	write := 60 * time.Second
	if maxRequestWait > 0 && maxRequestWait+15*time.Second > write {
		write = maxRequestWait + 15*time.Second
	}
	return &Config{
		Addr:         addr,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: write,
		IdleTimeout:  60 * time.Second,
	}
}

func Create(cfg *Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
