// Copyright 2015-2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Command atomic is the CLI surface of spec section 6: new, get, tpf,
// delta, list, populate, validate, grounded on the teacher's
// cmd/coordbench urfave/cli layout and backend.Backend-style generic
// flag.
package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/satori/go.uuid"
	"github.com/urfave/cli"

	"github.com/diffeo-labs/atomic-data-go/atomicerr"
	"github.com/diffeo-labs/atomic-data-go/bookmarks"
	"github.com/diffeo-labs/atomic-data-go/commit"
	"github.com/diffeo-labs/atomic-data-go/ids"
	"github.com/diffeo-labs/atomic-data-go/internal/storeconfig"
	"github.com/diffeo-labs/atomic-data-go/path"
	"github.com/diffeo-labs/atomic-data-go/populate"
	"github.com/diffeo-labs/atomic-data-go/serialize"
	"github.com/diffeo-labs/atomic-data-go/store"
)

// wildcard is the CLI-only sentinel for an absent TPF filter
// (spec section 6: "`.` is the wildcard sentinel on the CLI only").
const wildcard = "."

var (
	backend       = storeconfig.Backend{Implementation: "memory"}
	baseURL       string
	bookmarksPath string
)

func main() {
	app := cli.NewApp()
	app.Name = "atomic"
	app.Usage = "inspect and mutate an Atomic Data store"
	app.Flags = []cli.Flag{
		cli.GenericFlag{
			Name:  "backend",
			Value: &backend,
			Usage: "impl[:path] of the store backend (memory or bolt:FILE)",
		},
		cli.StringFlag{
			Name:  "base-url",
			Value: "http://localhost",
			Usage: "base URL used to derive Agent and Commit subjects",
		},
		cli.StringFlag{
			Name:  "bookmarks",
			Usage: "bookmarks file path (defaults to the user config directory)",
		},
	}
	app.Before = func(c *cli.Context) error {
		baseURL = strings.TrimRight(c.String("base-url"), "/")
		bookmarksPath = c.String("bookmarks")
		if bookmarksPath == "" {
			p, err := bookmarks.Path()
			if err != nil {
				return err
			}
			bookmarksPath = p
		}
		return nil
	}
	app.Commands = []cli.Command{newCommand, getCommand, tpfCommand, deltaCommand, listCommand, populateCommand, validateCommand}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to spec section 6's exit codes: 0 success
// (never reached here), 1 user error, 2 internal error.
func exitCode(err error) int {
	ae, ok := err.(*atomicerr.Error)
	if ok && ae.Kind != atomicerr.KindInternalError {
		return 1
	}
	return 2
}

func openStore() (store.Store, error) {
	return backend.Store()
}

func loadBookmarks() (map[string]string, error) {
	return bookmarks.Load(bookmarksPath)
}

var newCommand = cli.Command{
	Name:      "new",
	Usage:     "generate a new signing identity",
	ArgsUsage: " ",
	Action: func(c *cli.Context) error {
		_, priv, err := ed25519.GenerateKey(nil)
		if err != nil {
			return atomicerr.InternalError("generating key: %v", err)
		}
		pub := priv.Public().(ed25519.PublicKey)
		subject := commit.AgentSubject(baseURL, pub)

		dir, err := bookmarks.Dir()
		if err != nil {
			return atomicerr.InternalError("resolving config dir: %v", err)
		}
		identDir := filepath.Join(dir, "identities")
		if err := os.MkdirAll(identDir, 0700); err != nil {
			return atomicerr.InternalError("creating identity dir: %v", err)
		}
		name := uuid.NewV4().String()
		keyPath := filepath.Join(identDir, name+".key")
		seed := priv.Seed()
		if err := os.WriteFile(keyPath, []byte(base64.StdEncoding.EncodeToString(seed)), 0600); err != nil {
			return atomicerr.InternalError("writing identity file: %v", err)
		}

		fmt.Printf("agent: %s\nidentity: %s\n", subject, keyPath)
		return nil
	},
}

var getCommand = cli.Command{
	Name:      "get",
	Usage:     "resolve a dotted path to a Resource or Value",
	ArgsUsage: "<path>",
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 {
			return atomicerr.SchemaError("get requires a path argument")
		}
		s, err := openStore()
		if err != nil {
			return err
		}
		marks, err := loadBookmarks()
		if err != nil {
			return err
		}
		rv := path.New(s, marks)
		res, val, err := rv.Resolve(strings.Join(c.Args(), " "))
		if err != nil {
			return err
		}
		if res != nil {
			return serialize.WriteJSONAD(os.Stdout, res)
		}
		fmt.Printf("%s %s\n", val.Datatype().URL(), val.String())
		return nil
	},
}

var tpfCommand = cli.Command{
	Name:      "tpf",
	Usage:     "query the store by Triple Pattern Fragment",
	ArgsUsage: "<subject|.> <property|.> <value|.>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 3 {
			return atomicerr.SchemaError("tpf requires exactly three arguments: subject property value")
		}
		s, err := openStore()
		if err != nil {
			return err
		}
		pattern := store.Pattern{
			Subject:  unwildcard(c.Args().Get(0)),
			Property: unwildcard(c.Args().Get(1)),
			Value:    unwildcard(c.Args().Get(2)),
		}
		atoms, err := s.TPF(pattern)
		if err != nil {
			return err
		}
		return serialize.WriteAD3(os.Stdout, atoms)
	},
}

// deltaCommand is the legacy single-atom mutation of spec section 9's
// design note 3. It is implemented as a one-property Commit signed by
// a caller-supplied identity file, rather than as its own mutation
// path: the store has no unsigned write path, so even the legacy
// command goes through the signed Commit protocol.
var deltaCommand = cli.Command{
	Name:      "delta",
	Usage:     "legacy single-atom update (set or remove), implemented via Commit",
	ArgsUsage: "<set|remove> <subject> <property> <value>",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "identity", Usage: "path to an identity file produced by 'new'"},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 4 {
			return atomicerr.SchemaError("delta requires: <set|remove> <subject> <property> <value>")
		}
		identityPath := c.String("identity")
		if identityPath == "" {
			return atomicerr.SchemaError("delta requires -identity")
		}
		seedB64, err := os.ReadFile(identityPath)
		if err != nil {
			return atomicerr.InternalError("reading identity file: %v", err)
		}
		priv, err := commit.KeyFromSeed(strings.TrimSpace(string(seedB64)))
		if err != nil {
			return err
		}
		pub := priv.Public().(ed25519.PublicKey)
		signer := commit.AgentSubject(baseURL, pub)

		method := c.Args().Get(0)
		subject := c.Args().Get(1)
		property := c.Args().Get(2)
		value := c.Args().Get(3)

		builder := commit.NewBuilder(subject, signer, 0)
		switch method {
		case "set":
			builder = builder.WithSet(property, value)
		case "remove":
			builder = builder.WithRemove(property)
		default:
			return atomicerr.SchemaError("delta method must be 'set' or 'remove', got %q", method)
		}
		signed, err := builder.Sign(priv)
		if err != nil {
			return err
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		_, err = signed.Apply(s, baseURL)
		return err
	},
}

// listCommand enumerates the members of one of the five built-in
// collections (spec section 4.5), defaulting to "classes".
var listCommand = cli.Command{
	Name:      "list",
	Usage:     "list members of a built-in collection",
	ArgsUsage: "[classes|properties|commits|agents|collections]",
	Action: func(c *cli.Context) error {
		name := "classes"
		if c.NArg() > 0 {
			name = c.Args().Get(0)
		}
		classURL, ok := map[string]string{
			"classes":     ids.ClassClass,
			"properties":  ids.ClassProperty,
			"commits":     ids.ClassCommit,
			"agents":      ids.ClassAgent,
			"collections": ids.ClassCollection,
		}[name]
		if !ok {
			return atomicerr.SchemaError("unknown collection %q", name)
		}
		s, err := openStore()
		if err != nil {
			return err
		}
		col := populate.NewCollection(s, ids.IsA, classURL)
		members, err := col.Members()
		if err != nil {
			return err
		}
		for _, m := range members {
			fmt.Println(m)
		}
		return nil
	},
}

var populateCommand = cli.Command{
	Name:  "populate",
	Usage: "bootstrap the store's built-in schema, defaults, and collections",
	Action: func(c *cli.Context) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		if err := populate.PopulateBaseModels(s); err != nil {
			return err
		}
		if err := populate.PopulateDefault(s); err != nil {
			return err
		}
		return populate.PopulateCollections(s, baseURL)
	},
}

var validateCommand = cli.Command{
	Name:  "validate",
	Usage: "scan the store for schema violations",
	Action: func(c *cli.Context) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		report, err := s.ValidateStore()
		if err != nil {
			return err
		}
		if report.OK() {
			fmt.Println("ok")
			return nil
		}
		for _, v := range report.Violations {
			fmt.Printf("%d\t%s\t%s\t%s\n", v.Kind, v.Subject, v.Property, v.Detail)
		}
		return atomicerr.SchemaError("store failed validation with %d violation(s)", len(report.Violations))
	},
}

func unwildcard(s string) string {
	if s == wildcard {
		return ""
	}
	return s
}
