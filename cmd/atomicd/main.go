// Copyright 2015-2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Command atomicd is the HTTP daemon of spec section 6, wiring
// internal/storeconfig, populate, and server together behind a
// -backend flag, grounded on the teacher's cmd/coordinated/main.go.
package main

import (
	"flag"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/diffeo-labs/atomic-data-go/internal/storeconfig"
	"github.com/diffeo-labs/atomic-data-go/populate"
	"github.com/diffeo-labs/atomic-data-go/server"
)

func main() {
	log := logrus.StandardLogger()

	bind := flag.String("bind", ":8080", "[ip]:port to listen on")
	baseURL := flag.String("base-url", "http://localhost:8080", "base URL used to derive Agent and Commit subjects")
	backend := storeconfig.Backend{Implementation: "memory"}
	flag.Var(&backend, "backend", "impl[:path] of the store backend (memory or bolt:FILE)")
	configPath := flag.String("config", "", "optional YAML configuration file (base_url, bookmarks)")
	skipPopulate := flag.Bool("skip-populate", false, "skip bootstrapping built-in schema and defaults")
	flag.Parse()

	bookmarksMap := map[string]string{}
	effectiveBaseURL := *baseURL
	if *configPath != "" {
		cfg, err := storeconfig.Load(*configPath)
		if err != nil {
			log.WithError(err).Fatal("loading config")
		}
		if cfg.BaseURL != "" {
			effectiveBaseURL = cfg.BaseURL
		}
		if cfg.Bookmarks != nil {
			bookmarksMap = cfg.Bookmarks
		}
	}

	s, err := backend.Store()
	if err != nil {
		log.WithError(err).Fatal("opening store")
	}

	if !*skipPopulate {
		if err := populate.PopulateBaseModels(s); err != nil {
			log.WithError(err).Fatal("populating base models")
		}
		if err := populate.PopulateDefault(s); err != nil {
			log.WithError(err).Fatal("populating defaults")
		}
		if err := populate.PopulateCollections(s, effectiveBaseURL); err != nil {
			log.WithError(err).Fatal("populating collections")
		}
	}

	srv := server.New(s, effectiveBaseURL, bookmarksMap, log)
	log.WithFields(logrus.Fields{"bind": *bind, "backend": backend.String(), "base_url": effectiveBaseURL}).Info("atomicd listening")
	if err := http.ListenAndServe(*bind, srv.Router()); err != nil {
		log.WithError(err).Fatal("http server exited")
	}
}
