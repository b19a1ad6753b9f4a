// Package ingest wires the pipeline together for the CLI: it builds
// the client, picks the storage backend, and runs the orchestrator
// until done or interrupted.
package ingest

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	openaq "github.com/aqkit/openaq-ingest"
	s3store "github.com/aqkit/openaq-ingest/aws/s3"
	"github.com/aqkit/openaq-ingest/file"
)

// Main contains the configuration for one ingestion run.
type Main struct {
	From         string `flag:"from" help:"Start of the measurement window (RFC3339, e.g. 2025-09-01T00:00:00Z)."`
	To           string `flag:"to" help:"End of the measurement window (RFC3339)."`
	Zone         string `help:"Process only the zone with this name."`
	Zones        string `help:"Path to the zones configuration file."`
	Out          string `help:"Base output directory for the filesystem backend."`
	Bucket       string `help:"S3 bucket name. Selects the object-store backend unless --storage says otherwise."`
	BronzePrefix string `flag:"bronze-prefix" help:"Key prefix for objects uploaded to S3."`
	Region       string `help:"AWS region for the S3 backend."`
	Storage      string `help:"Storage backend: 'file' or 's3'. Defaults to s3 when a bucket is set."`
	BaseURL      string `flag:"base-url" help:"OpenAQ API base URL."`
	APIKey       string `flag:"api-key" help:"OpenAQ API key, sent as the X-API-Key header."`
	PageLimit    int    `flag:"page-limit" help:"Page size requested from paginated endpoints."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		Zones:        "zones.json",
		Out:          "./raw_openaq",
		BronzePrefix: s3store.DefaultPrefix,
		BaseURL:      openaq.DefaultBaseURL,
		PageLimit:    openaq.DefaultPageLimit,
	}
}

// Run executes one full ingestion run and blocks until it finishes or
// is interrupted. A run that completes with per-item errors returns
// openaq.PartialFailureError so the caller exits non-zero.
func (m *Main) Run() error {
	w, err := m.window()
	if err != nil {
		return err
	}
	zones, err := openaq.LoadZones(m.Zones)
	if err != nil {
		return err
	}
	store, err := m.store()
	if err != nil {
		return err
	}

	client := openaq.NewClient(m.BaseURL, m.APIKey,
		openaq.OptClientPageLimit(m.PageLimit))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch := &openaq.Orchestrator{
		Zones:      zones,
		TargetZone: m.Zone,
		Runner:     &openaq.Processor{Client: client, Store: store},
		Out:        os.Stdout,
	}
	_, err = orch.Run(ctx, w)
	return err
}

func (m *Main) window() (openaq.Window, error) {
	if m.From == "" || m.To == "" {
		return openaq.Window{}, errors.New("--from and --to are required")
	}
	from, err := time.Parse(time.RFC3339, m.From)
	if err != nil {
		return openaq.Window{}, errors.Wrap(err, "parsing --from")
	}
	to, err := time.Parse(time.RFC3339, m.To)
	if err != nil {
		return openaq.Window{}, errors.Wrap(err, "parsing --to")
	}
	return openaq.Window{From: from, To: to}, nil
}

// store picks the backend: an explicit --storage wins, otherwise a
// configured bucket selects S3 and anything else falls back to the
// local filesystem.
func (m *Main) store() (openaq.Store, error) {
	mode := m.Storage
	if mode == "" {
		if m.Bucket != "" {
			mode = "s3"
		} else {
			mode = "file"
		}
	}
	switch mode {
	case "file":
		return file.NewStore(m.Out), nil
	case "s3":
		if m.Bucket == "" {
			return nil, errors.New("s3 storage requires --bucket")
		}
		return s3store.NewStore(m.Bucket,
			s3store.OptStorePrefix(m.BronzePrefix),
			s3store.OptStoreRegion(m.Region))
	default:
		return nil, errors.Errorf("unknown storage backend %q", mode)
	}
}
