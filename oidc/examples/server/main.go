// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	azuread "github.com/hashicorp/cap-azuread"
	"github.com/hashicorp/cap-azuread/oidc"
	"github.com/hashicorp/go-hclog"
)

// loginHost plays the part of the authentication host: it maps the verified
// username onto the configured users.
type loginHost struct {
	logger hclog.Logger
	users  []azuread.User
}

func (h *loginHost) permissions(username string) (azuread.Permission, bool) {
	for _, u := range h.users {
		if u.Username == username {
			return u.Permissions, true
		}
	}
	return "", false
}

func (h *loginHost) success(w http.ResponseWriter, _ *http.Request, p *azuread.Profile) {
	perm, ok := h.permissions(p.Username)
	if !ok {
		h.logger.Warn("user is not configured", "username", p.Username)
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	fmt.Fprintf(w, "Welcome %s, permissions: %s\n", p.Username, perm)
}

func (h *loginHost) failure(w http.ResponseWriter, req *http.Request, err error) {
	h.logger.Error("login failed", "error", err)
	oidc.DefaultError(w, req, err)
}

func main() {
	configFile := flag.String("config", os.Getenv("AZUREAD_CONFIG"), "path to the YAML strategy config")
	addr := flag.String("addr", "localhost:1880", "listen address")
	flag.Parse()

	logger := hclog.New(&hclog.LoggerOptions{Name: "azuread-example", Level: hclog.Info})

	if *configFile == "" {
		fmt.Fprint(os.Stderr, "-config (or env AZUREAD_CONFIG) is empty\n")
		os.Exit(1)
	}
	raw, err := os.ReadFile(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	cfg, err := azuread.ParseConfig(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	host := &loginHost{logger: logger, users: cfg.Users}
	d, err := azuread.NewDescriptor(cfg, oidc.NewConstructor(
		oidc.WithSuccessFunc(host.success),
		oidc.WithErrorFunc(host.failure),
	), azuread.WithLogger(logger))
	if err != nil {
		// a *azuread.ConfigError names every missing option
		fmt.Fprintf(os.Stderr, "invalid config: %s\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	s, err := d.NewStrategy(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	defer s.(*oidc.Strategy).Done()

	mux := http.NewServeMux()
	mux.Handle("/auth/strategy", s.LoginHandler())
	mux.Handle("/auth/strategy/callback", s.CallbackHandler())

	srv := &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving", "addr", *addr, "strategy", d.Strategy.Name, "label", d.Strategy.Label)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}
