package sifter

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/soundprediction/sifter/pkg/alert"
	"github.com/soundprediction/sifter/pkg/config"
	"github.com/soundprediction/sifter/pkg/driver"
	"github.com/soundprediction/sifter/pkg/importer"
	"github.com/soundprediction/sifter/pkg/schema"
	"github.com/soundprediction/sifter/pkg/search"
	"github.com/soundprediction/sifter/pkg/types"
)

// EntityInfo summarizes a declared entity.
type EntityInfo struct {
	Name   string   `json:"name"`
	Label  string   `json:"label"`
	Plural string   `json:"plural"`
	Search []string `json:"search"`
}

// Options holds client settings.
type Options struct {
	// PageSize is used when a request does not ask for a page size.
	PageSize int
	// MaxPageSize caps requested page sizes.
	MaxPageSize int
	// ImportBatchSize is the number of records per storage write on import.
	ImportBatchSize int
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{PageSize: 25, MaxPageSize: 500, ImportBatchSize: importer.DefaultBatchSize}
}

// Client is the main implementation of the Sifter interface.
type Client struct {
	schema   *schema.Schema
	driver   driver.Driver
	engine   *search.Engine
	session  *search.Session
	importer *importer.Importer
	options  Options
	logger   *slog.Logger
}

// NewClient wires a schema and a storage driver into a search client.
func NewClient(sch *schema.Schema, d driver.Driver, opts *Options, logger *slog.Logger) (*Client, error) {
	if sch == nil {
		return nil, fmt.Errorf("schema is required")
	}
	if d == nil {
		return nil, fmt.Errorf("driver is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	o := DefaultOptions()
	if opts != nil {
		if opts.PageSize > 0 {
			o.PageSize = opts.PageSize
		}
		if opts.MaxPageSize > 0 {
			o.MaxPageSize = opts.MaxPageSize
		}
		if opts.ImportBatchSize > 0 {
			o.ImportBatchSize = opts.ImportBatchSize
		}
	}

	engine := search.NewEngine(sch, d, logger)
	return &Client{
		schema:   sch,
		driver:   d,
		engine:   engine,
		session:  search.NewSession(engine, d, logger),
		importer: importer.New(d, sch, logger, importer.WithBatchSize(o.ImportBatchSize)),
		options:  o,
		logger:   logger,
	}, nil
}

// Open builds a client from configuration: it loads the schema, opens the
// configured driver and wraps it in write retries and a circuit breaker.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sch, err := schema.Load(cfg.Schema.Path)
	if err != nil {
		return nil, err
	}
	d, err := driver.Open(ctx, cfg.Database, sch, logger)
	if err != nil {
		return nil, err
	}
	d = driver.NewRetryDriver(d, &driver.RetryConfig{MaxRetries: cfg.Database.MaxRetries}, logger)
	d = driver.NewCircuitBreakerDriver(d, cfg.CircuitBreaker, alert.New(cfg.Alert, logger), logger)

	logger.Info("sifter client ready", "driver", d.Provider(), "entities", len(sch.Entities()))
	return NewClient(sch, d, &Options{
		PageSize:    cfg.Search.PageSize,
		MaxPageSize: cfg.Search.MaxPageSize,
	}, logger)
}

// Schema returns the loaded schema.
func (c *Client) Schema() *schema.Schema { return c.schema }

// Driver returns the storage driver.
func (c *Client) Driver() driver.Driver { return c.driver }

// Entities implements FieldCatalog.
func (c *Client) Entities() []EntityInfo {
	names := c.schema.Entities()
	out := make([]EntityInfo, 0, len(names))
	for _, name := range names {
		e, err := c.schema.Entity(name)
		if err != nil {
			continue
		}
		out = append(out, EntityInfo{
			Name:   e.Name,
			Label:  e.Label,
			Plural: e.Plural,
			Search: append([]string{}, e.Search...),
		})
	}
	return out
}

// Fields implements FieldCatalog.
func (c *Client) Fields(ctx context.Context, entity string) (*search.SelectorView, error) {
	reg, err := c.engine.Registry(ctx, entity)
	if err != nil {
		return nil, err
	}
	view := reg.SelectorView()
	return &view, nil
}

// Search implements Searcher.
func (c *Client) Search(ctx context.Context, entity string, params map[string]string, page types.Page) (*search.Result, error) {
	if err := c.session.ApplyParams(ctx, entity, params); err != nil {
		return nil, err
	}
	return c.Filter(ctx, entity, params[search.ParamCriteria], page)
}

// Filter implements Searcher.
func (c *Client) Filter(ctx context.Context, entity, criteria string, page types.Page) (*search.Result, error) {
	return c.session.Filter(ctx, entity, criteria, c.ClampPage(page))
}

// ClampPage implements Searcher.
func (c *Client) ClampPage(page types.Page) types.Page {
	if page.Limit <= 0 {
		page.Limit = c.options.PageSize
	}
	if page.Limit > c.options.MaxPageSize {
		page.Limit = c.options.MaxPageSize
	}
	if page.Offset < 0 {
		page.Offset = 0
	}
	return page
}

// Import implements RecordStore.
func (c *Client) Import(ctx context.Context, r io.Reader) (*importer.Report, error) {
	return c.importer.Import(ctx, r)
}

// ImportFile imports the document at path.
func (c *Client) ImportFile(ctx context.Context, path string) (*importer.Report, error) {
	return c.importer.ImportFile(ctx, path)
}

// GetRecord implements RecordStore.
func (c *Client) GetRecord(ctx context.Context, entity string, id int64) (*types.Record, error) {
	if _, err := c.schema.Entity(entity); err != nil {
		return nil, err
	}
	return c.driver.Get(ctx, entity, id)
}

// Stats implements RecordStore.
func (c *Client) Stats(ctx context.Context) (*driver.Stats, error) {
	return c.driver.Stats(ctx)
}

// Ping implements Sifter.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.driver.Stats(ctx); err != nil {
		return fmt.Errorf("storage unavailable: %w", err)
	}
	return nil
}

// Close implements Sifter.
func (c *Client) Close() error {
	return c.driver.Close()
}
