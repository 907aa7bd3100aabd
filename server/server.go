// Copyright 2015-2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package server implements the external HTTP surface of spec
// section 4.7: commit submission, TPF queries, dotted-path
// resolution, and direct resource fetch, content-negotiated between
// AD3 and JSON-AD. It follows the gorilla/mux routing shape of the
// teacher's restserver package, trimmed to this spec's three
// resource kinds and without restserver's multi-variant JSON
// content-type table (this wire format has exactly two media types,
// not an evolving v1/v2 JSON history to keep compatible).
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/diffeo-labs/atomic-data-go/atomicerr"
	"github.com/diffeo-labs/atomic-data-go/commit"
	"github.com/diffeo-labs/atomic-data-go/path"
	"github.com/diffeo-labs/atomic-data-go/populate"
	"github.com/diffeo-labs/atomic-data-go/serialize"
	"github.com/diffeo-labs/atomic-data-go/store"
)

// Server holds the persistent state behind the HTTP API.
type Server struct {
	Store    store.Store
	BaseURL  string
	Resolver *path.Resolver
	Log      *logrus.Logger
}

// New builds a Server. bookmarks may be nil.
func New(s store.Store, baseURL string, bookmarks map[string]string, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		Store:    s,
		BaseURL:  baseURL,
		Resolver: path.New(s, bookmarks),
		Log:      log,
	}
}

// Router builds the gorilla/mux router serving every endpoint.
func (srv *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.UseEncodedPath()
	r.HandleFunc("/commits", srv.handleCommit).Methods(http.MethodPost)
	r.HandleFunc("/tpf", srv.handleTPF).Methods(http.MethodGet)
	r.HandleFunc("/resolve", srv.handleResolve).Methods(http.MethodGet)
	r.HandleFunc("/resources/{subject}", srv.handleResource).Methods(http.MethodGet)
	r.HandleFunc("/import", srv.handleImport).Methods(http.MethodPost)
	r.Use(srv.loggingMiddleware)
	return r
}

// handleImport bulk-inserts unvalidated JSON-AD objects, the
// unsigned counterpart to handleCommit: useful for seeding a store
// from a bulk export without signing one commit per Resource.
func (srv *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var objects []map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&objects); err != nil {
		writeError(w, atomicerr.InvalidValue("import", "", err.Error()))
		return
	}
	if err := populate.PopulateFromJSONAD(srv.Store, objects); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (srv *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.Log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Debug("request")
		next.ServeHTTP(w, r)
	})
}

type wireCommit struct {
	Subject   string            `json:"subject"`
	CreatedAt int64             `json:"created_at"`
	Signer    string            `json:"signer"`
	Set       map[string]string `json:"set,omitempty"`
	Remove    []string          `json:"remove,omitempty"`
	Destroy   bool              `json:"destroy,omitempty"`
	Signature string            `json:"signature"`
}

func (srv *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	var wc wireCommit
	if err := json.NewDecoder(r.Body).Decode(&wc); err != nil {
		writeError(w, atomicerr.InvalidValue("commit", "", err.Error()))
		return
	}
	c := &commit.Commit{
		Subject:   wc.Subject,
		CreatedAt: wc.CreatedAt,
		Signer:    wc.Signer,
		Set:       wc.Set,
		Remove:    wc.Remove,
		Destroy:   wc.Destroy,
		Signature: wc.Signature,
	}
	stored, err := c.Apply(srv.Store, srv.BaseURL)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", serialize.JSONADMediaType)
	w.Header().Set("Location", stored.Subject())
	w.WriteHeader(http.StatusCreated)
	if err := serialize.WriteJSONAD(w, stored); err != nil {
		srv.Log.WithError(err).Error("writing commit response")
	}
}

func (srv *Server) handleTPF(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pattern := store.Pattern{Subject: q.Get("subject"), Property: q.Get("property"), Value: q.Get("value")}
	atoms, err := srv.Store.TPF(pattern)
	if err != nil {
		writeError(w, err)
		return
	}
	if acceptsJSONAD(r) {
		writeAtomsAsJSONAD(w, atoms)
		return
	}
	w.Header().Set("Content-Type", serialize.AD3MediaType)
	if err := serialize.WriteAD3(w, atoms); err != nil {
		srv.Log.WithError(err).Error("writing tpf response")
	}
}

func (srv *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if p == "" {
		writeError(w, atomicerr.NotFound("missing path query parameter"))
		return
	}
	res, val, err := srv.Resolver.Resolve(p)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", serialize.JSONADMediaType)
	if res != nil {
		if err := serialize.WriteJSONAD(w, res); err != nil {
			srv.Log.WithError(err).Error("writing resolve response")
		}
		return
	}
	enc := json.NewEncoder(w)
	if err := enc.Encode(map[string]string{"datatype": val.Datatype().URL(), "value": val.String()}); err != nil {
		srv.Log.WithError(err).Error("writing resolve response")
	}
}

func (srv *Server) handleResource(w http.ResponseWriter, r *http.Request) {
	subject, err := url.QueryUnescape(mux.Vars(r)["subject"])
	if err != nil {
		writeError(w, atomicerr.InvalidValue("subject", mux.Vars(r)["subject"], "not a valid URL-encoded subject"))
		return
	}
	res, err := srv.Store.GetResource(subject)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", serialize.JSONADMediaType)
	if err := serialize.WriteJSONAD(w, res); err != nil {
		srv.Log.WithError(err).Error("writing resource response")
	}
}

func acceptsJSONAD(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "json")
}

func writeAtomsAsJSONAD(w http.ResponseWriter, atoms []store.Atom) {
	bySubject := make(map[string][]store.Atom)
	var subjects []string
	for _, a := range atoms {
		if _, ok := bySubject[a.Subject]; !ok {
			subjects = append(subjects, a.Subject)
		}
		bySubject[a.Subject] = append(bySubject[a.Subject], a)
	}
	sort.Strings(subjects)

	out := make([]map[string]interface{}, 0, len(subjects))
	for _, subject := range subjects {
		obj := map[string]interface{}{"@id": subject}
		for _, a := range bySubject[subject] {
			obj[a.Property] = a.Value.String()
		}
		out = append(out, obj)
	}
	w.Header().Set("Content-Type", serialize.JSONADMediaType)
	_ = json.NewEncoder(w).Encode(out)
}

// writeError maps a core error to its spec section 7 HTTP status and
// writes it as a small JSON body. The core itself never does this
// mapping; only this boundary does.
func writeError(w http.ResponseWriter, err error) {
	var ae *atomicerr.Error
	status := http.StatusInternalServerError
	message := err.Error()
	if errors.As(err, &ae) {
		status = ae.HTTPStatus()
		message = ae.Message
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
