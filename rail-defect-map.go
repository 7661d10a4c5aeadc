// Command rail-defect-map serves an interactive dashboard for two defect
// feeds: track-geometry (DTN) and automated-inspection (ATGMS/TEC)
// defects. Every interaction — subdivision pick, filter change, mode
// toggle — runs one synchronous filter → prioritize → aggregate → render
// pass and redraws the Leaflet map plus the two tables.
package main

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"html/template"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/acme/autocert"

	"github.com/joho/godotenv"

	"rail-defect-map/pkg/api"
	"rail-defect-map/pkg/dashboard"
	"rail-defect-map/pkg/dataset"
	"rail-defect-map/pkg/datastore"
	"rail-defect-map/pkg/datastore/drivers"
	"rail-defect-map/pkg/maprender"
	"rail-defect-map/pkg/qrshare"
)

//go:embed public_html/*
var content embed.FS

// pageTemplate is parsed once at startup; handlers only execute it.
var pageTemplate = template.Must(template.New("map.html").Funcs(template.FuncMap{
	// template.JS so the artifact lands in the page as an object literal
	// instead of an escaped string.
	"toJSON": func(data interface{}) (template.JS, error) {
		b, err := json.Marshal(data)
		return template.JS(b), err
	},
}).ParseFS(content, "public_html/map.html"))

// Load .env before the flag vars below evaluate their env-backed defaults.
// Within one file, dependency-free package vars initialize in declaration
// order, so this must stay above the flag block.
var _ = func() error { return godotenv.Load() }()

var domain = flag.String("domain", envOr("DOMAIN", ""), "Use 80 and 443 ports. Automatic HTTPS cert via Let's Encrypt.")
var port = flag.Int("port", envIntOr("PORT", 8765), "Port for running the server")
var sourceKind = flag.String("source", envOr("SOURCE", "csv"), "Tabular source kind: csv or sql")
var dtnPath = flag.String("dtn-path", envOr("DTN_PATH", "dtn.csv"), "DTN source: CSV file, or database file for embedded SQL drivers")
var tecPath = flag.String("tec-path", envOr("TEC_PATH", "tec.csv"), "TEC source: CSV file, or database file for embedded SQL drivers")
var dtnTable = flag.String("dtn-table", envOr("DTN_TABLE", "dtn_defects"), "DTN table name (sql source)")
var tecTable = flag.String("tec-table", envOr("TEC_TABLE", "tec_defects"), "TEC table name (sql source)")
var dbType = flag.String("db-type", envOr("DB_TYPE", "sqlite"), "SQL driver for -source=sql: sqlite, genji, duckdb, or pgx (postgresql)")
var dbHost = flag.String("db-host", envOr("DB_HOST", "127.0.0.1"), "Database host (pgx driver)")
var dbPort = flag.Int("db-port", envIntOr("DB_PORT", 5432), "Database port (pgx driver)")
var dbUser = flag.String("db-user", envOr("DB_USER", "postgres"), "Database user (pgx driver)")
var dbPass = flag.String("db-pass", envOr("DB_PASS", ""), "Database password (pgx driver)")
var dbName = flag.String("db-name", envOr("DB_NAME", "RailDefects"), "Database name (pgx driver)")
var pgSSLMode = flag.String("pg-ssl-mode", envOr("PG_SSL_MODE", "prefer"), "PostgreSQL SSL mode: disable, allow, prefer, require, verify-ca, or verify-full")
var subdivisions = flag.String("subdivisions", envOr("SUBDIVISIONS", ""), "Comma-separated subdivision names (defaults to the standard four)")
var version = flag.Bool("version", false, "Show the application version")

var CompileVersion = "dev"

var ctrl *dashboard.Controller

// envOr reads an environment variable with a fallback, so deployments can
// configure through .env files as well as flags.
func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// withServerHeader wraps any http.Handler, adding a
// "Server: rail-defect-map/<CompileVersion>" header.
//
// A HEAD request to "/" answers 200 OK with no body so monitors can see
// the service is alive without triggering a render pass.
func withServerHeader(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "rail-defect-map/"+CompileVersion)

		if r.Method == http.MethodHead && r.URL.Path == "/" {
			w.WriteHeader(http.StatusOK)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// serveWithDomain runs:
//   - :80  — ACME HTTP-01 challenges + 301 redirect to https://<domain>/…
//   - :443 — HTTPS with automatic Let's Encrypt certificates.
//
// If autocert cannot issue a cert for a host/SNI, the previously obtained
// fallback cert is served instead of failing the handshake.
//
// HTTPS matters beyond transport security here: browsers only grant the
// geolocation the locate control asks for on secure origins.
func serveWithDomain(domain string, handler http.Handler) {
	certMgr := &autocert.Manager{
		Prompt: autocert.AcceptTOS,
		Cache:  autocert.DirCache("certs"),
		HostPolicy: func(ctx context.Context, host string) error {
			// Allow the bare domain and www.<domain>.
			if host == domain || host == "www."+domain {
				return nil
			}
			// IP address? Don't block, just don't request a cert.
			if net.ParseIP(host) != nil {
				return nil
			}
			return errors.New("acme/autocert: host not configured")
		},
	}

	// :80 — challenge + redirect.
	go func() {
		mux80 := http.NewServeMux()
		mux80.Handle("/.well-known/acme-challenge/", certMgr.HTTPHandler(nil))
		mux80.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			target := "https://" + domain + r.URL.RequestURI()
			http.Redirect(w, r, target, http.StatusMovedPermanently)
		})

		log.Printf("HTTP  server (ACME+redirect) ➜ :80")
		if err := (&http.Server{
			Addr:              ":80",
			Handler:           mux80,
			ReadHeaderTimeout: 10 * time.Second,
		}).ListenAndServe(); err != nil {
			log.Printf("HTTP  server error: %v", err)
		}
	}()

	// Daily certificate renewal check.
	go func() {
		t := time.NewTicker(24 * time.Hour)
		defer t.Stop()
		for range t.C {
			if _, err := certMgr.GetCertificate(&tls.ClientHelloInfo{ServerName: domain}); err != nil {
				log.Printf("autocert renewal check: %v", err)
			}
		}
	}()

	// :443 — HTTPS.
	tlsCfg := certMgr.TLSConfig()
	tlsCfg.MinVersion = tls.VersionTLS10
	tlsCfg.NextProtos = append([]string{"http/1.0"}, tlsCfg.NextProtos...)

	var defaultCert *tls.Certificate
	go func() {
		for defaultCert == nil {
			if c, err := certMgr.GetCertificate(&tls.ClientHelloInfo{ServerName: domain}); err == nil {
				defaultCert = c
			}
			time.Sleep(time.Minute)
		}
	}()
	tlsCfg.GetCertificate = func(chi *tls.ClientHelloInfo) (*tls.Certificate, error) {
		c, err := certMgr.GetCertificate(chi)
		if err == nil {
			return c, nil
		}
		if defaultCert != nil {
			return defaultCert, nil
		}
		return nil, err
	}

	log.Printf("HTTPS server for %s ➜ :443 (TLS ≥1.0, ALPN h2/http1.1/1.0)", domain)
	if err := (&http.Server{
		Addr:              ":443",
		Handler:           handler,
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 10 * time.Second,
	}).ListenAndServeTLS("", ""); err != nil {
		log.Printf("HTTPS server error: %v", err)
	}
}

// =====================
// WEB — dashboard page
// =====================

// pageData is everything map.html needs for one render pass. On error the
// view is suppressed: Err carries the visible message and nothing else is
// drawn, matching the failure surface for missing sources and schemas.
type pageData struct {
	View     *dashboard.View
	Err      string
	Version  string
	Basemaps []string
	Query    string // current query string, for the share QR link
}

func dashboardHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	// Live-tracking start/stop and reset are interactions too; they just
	// change state before the recomputation pass runs. Nothing is wired
	// to the flag itself.
	switch r.URL.Query().Get("live") {
	case "start":
		ctrl.StartTracking()
	case "stop":
		ctrl.StopTracking()
	}

	data := pageData{
		Version:  CompileVersion,
		Basemaps: maprender.PresetNames(),
		Query:    r.URL.RawQuery,
	}

	view, err := ctrl.View(r.Context(), api.StateFromQuery(r))
	if err != nil {
		data.Err = err.Error()
	} else {
		data.View = &view
	}

	// Render into a buffer so a template error never double-writes headers.
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		log.Printf("Error executing template: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

// qrPngHandler encodes the current view URL as a QR PNG so the exact
// filtered view can be opened on a handheld in the field.
func qrPngHandler(w http.ResponseWriter, r *http.Request) {
	scheme := "http"
	if r.TLS != nil || *domain != "" {
		scheme = "https"
	}
	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     "/",
		RawQuery: r.URL.RawQuery,
	}

	w.Header().Set("Content-Type", "image/png")
	if err := qrshare.EncodePNG(w, u.String(), qrshare.Options{}); err != nil {
		log.Printf("qr: %v", err)
		http.Error(w, "QR encoding failed", http.StatusInternalServerError)
	}
}

// splitList parses a comma-separated flag value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func buildSource(t dataset.Type, path, table string) datastore.Source {
	src := datastore.Source{Kind: datastore.SourceCSV, Type: t, Path: path}
	if *sourceKind == string(datastore.SourceSQL) {
		src.Kind = datastore.SourceSQL
		src.Table = table
		src.SQL = datastore.SQLConfig{
			Driver:  *dbType,
			Host:    *dbHost,
			Port:    *dbPort,
			User:    *dbUser,
			Pass:    *dbPass,
			Name:    *dbName,
			SSLMode: *pgSSLMode,
		}
	}
	return src
}

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("rail-defect-map version %s\n", CompileVersion)
		return
	}
	if CompileVersion == "dev" {
		CompileVersion = "latest"
	}

	if *domain != "" && runtime.GOOS != "windows" && os.Geteuid() != 0 {
		log.Println("⚠  Binding to :80 / :443 requires super-user rights; run with sudo or as root.")
	}

	// SQL driver registrations live behind build tags; the explicit call
	// documents why the import exists.
	drivers.Ready()

	store := datastore.NewStore()
	ctrl = dashboard.NewController(
		store,
		buildSource(dataset.DTN, *dtnPath, *dtnTable),
		buildSource(dataset.TEC, *tecPath, *tecTable),
		splitList(*subdivisions),
	)

	http.HandleFunc("/", dashboardHandler)
	http.HandleFunc("/qr.png", qrPngHandler)
	api.NewHandler(ctrl, log.Printf).Register(http.DefaultServeMux)

	rootHandler := withServerHeader(http.DefaultServeMux)

	if *domain != "" {
		go serveWithDomain(*domain, rootHandler)
	} else {
		addr := fmt.Sprintf(":%d", *port)
		go func() {
			log.Printf("HTTP server ➜ http://localhost%s", addr)
			if err := http.ListenAndServe(addr, rootHandler); err != nil {
				log.Printf("HTTP server error: %v", err)
			}
		}()
	}

	// Keep the main goroutine alive.
	select {}
}
