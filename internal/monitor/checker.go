// Package monitor runs price checks over the tracked products.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	neturl "net/url"
	"sync"
	"time"

	"github.com/maltedev/price-monitor/internal/evaluator"
	"github.com/maltedev/price-monitor/internal/extractor"
	"github.com/maltedev/price-monitor/internal/history"
	"github.com/maltedev/price-monitor/internal/models"
	"github.com/maltedev/price-monitor/internal/registry"
	"github.com/maltedev/price-monitor/internal/stores"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidURL is returned by Track for URLs that are not absolute http(s) URLs.
var ErrInvalidURL = errors.New("invalid product url")

// AlertSink accepts alerts without blocking.
type AlertSink interface {
	Dispatch(product *models.Product, transition models.Transition, record models.PriceRecord) bool
}

type Config struct {
	// Workers bounds how many products are checked at once.
	Workers int
}

// Checker extracts, evaluates and records prices. Each product has at
// most one check in flight at a time.
type Checker struct {
	registry  registry.Registry
	history   history.Store
	extractor extractor.Extractor
	evaluator *evaluator.Evaluator
	alerts    AlertSink
	workers   int
	locks     *keyedMutex
	now       func() time.Time
	logger    *slog.Logger
}

func NewChecker(
	reg registry.Registry,
	hist history.Store,
	ext extractor.Extractor,
	eval *evaluator.Evaluator,
	alerts AlertSink,
	cfg Config,
	logger *slog.Logger,
) *Checker {
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}
	return &Checker{
		registry:  reg,
		history:   hist,
		extractor: ext,
		evaluator: eval,
		alerts:    alerts,
		workers:   cfg.Workers,
		locks:     newKeyedMutex(),
		now:       time.Now,
		logger:    logger.With("component", "checker"),
	}
}

// Outcome is the result of checking one product.
type Outcome struct {
	Product    *models.Product         `json:"product"`
	Result     models.ExtractionResult `json:"result"`
	Transition *models.Transition      `json:"transition,omitempty"`
	Record     *models.PriceRecord     `json:"record,omitempty"`
	Duplicate  bool                    `json:"duplicate,omitempty"`
}

// CycleReport summarizes one pass over the active products.
type CycleReport struct {
	Started     time.Time     `json:"started"`
	Duration    time.Duration `json:"duration"`
	Checked     int           `json:"checked"`
	Failed      int           `json:"failed"`
	Drops       int           `json:"drops"`
	Restocks    int           `json:"restocks"`
	Duplicates  int           `json:"duplicates"`
	StoreErrors int           `json:"store_errors"`
	Skipped     int           `json:"skipped"`
}

func (r *CycleReport) add(out Outcome, err error) {
	r.Checked++
	switch {
	case err != nil && errors.Is(err, history.ErrStore):
		r.StoreErrors++
	case err != nil:
		r.Failed++
	case out.Duplicate:
		r.Duplicates++
	case out.Transition != nil && out.Transition.Kind == models.PriceDrop:
		r.Drops++
	case out.Transition != nil && out.Transition.Kind == models.Restock:
		r.Restocks++
	}
}

// RunCycle checks every active product. Failures are contained to the
// product they concern. Products not started before ctx is cancelled are
// skipped and ctx.Err() is returned.
func (c *Checker) RunCycle(ctx context.Context) (CycleReport, error) {
	report := CycleReport{Started: c.now().UTC()}

	products, err := c.registry.ListActive(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list products: %w", err)
	}

	c.logger.Info("starting check cycle", "products", len(products), "workers", c.workers)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(c.workers)

	for _, product := range products {
		if ctx.Err() != nil {
			mu.Lock()
			report.Skipped++
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				mu.Lock()
				report.Skipped++
				mu.Unlock()
				return nil
			}

			out, err := c.CheckProduct(ctx, product)

			mu.Lock()
			report.add(out, err)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(report.Started)
	c.logger.Info("check cycle finished",
		"checked", report.Checked,
		"failed", report.Failed,
		"drops", report.Drops,
		"restocks", report.Restocks,
		"duplicates", report.Duplicates,
		"store_errors", report.StoreErrors,
		"skipped", report.Skipped,
		"duration", report.Duration)

	return report, ctx.Err()
}

// CheckProduct runs one extraction for product and records the outcome.
// Extraction failures are returned as *models.ExtractionError and leave the
// history untouched.
func (c *Checker) CheckProduct(ctx context.Context, product *models.Product) (Outcome, error) {
	key := product.ID.String()
	if err := c.locks.Lock(ctx, key); err != nil {
		return Outcome{Product: product}, err
	}
	defer c.locks.Unlock(key)

	res := c.extractor.Extract(ctx, product.URL)
	if !res.Success {
		c.logger.Warn("extraction failed",
			"product_id", product.ID,
			"store", res.Store,
			"url", res.URL,
			"reason", res.Reason,
			"detail", res.Detail)
		return Outcome{Product: product, Result: res}, res.Err()
	}

	return c.record(ctx, product, res)
}

// record evaluates a successful result against the latest record, appends
// it and dispatches an alert when notable. Callers hold the product lock.
func (c *Checker) record(ctx context.Context, product *models.Product, res models.ExtractionResult) (Outcome, error) {
	out := Outcome{Product: product, Result: res}

	last, err := c.history.Latest(ctx, product.ID)
	if err != nil {
		c.logger.Error("failed to read history", "product_id", product.ID, "error", err)
		return out, wrapStore(err)
	}

	transition, err := c.evaluator.Evaluate(product.ID, res, last)
	if err != nil {
		return out, err
	}

	rec := res.Record(product.ID, c.now())
	if err := c.history.Append(ctx, rec); err != nil {
		if errors.Is(err, history.ErrDuplicateRecord) {
			c.logger.Warn("discarding duplicate record",
				"product_id", product.ID,
				"observed_at", rec.ObservedAt)
			out.Duplicate = true
			return out, nil
		}
		c.logger.Error("failed to append record", "product_id", product.ID, "error", err)
		return out, wrapStore(err)
	}

	out.Transition = &transition
	out.Record = &rec

	c.logger.Info("price recorded",
		"product_id", product.ID,
		"store", product.Store,
		"price", rec.Price.String(),
		"currency", rec.Currency,
		"in_stock", rec.InStock,
		"transition", transition.Kind,
		"tier", res.Tier)

	if transition.Notable() && c.alerts != nil {
		c.alerts.Dispatch(product, transition, rec)
	}

	return out, nil
}

// Track registers a product and stores its first observation. When the
// page cannot be extracted the product is still registered if a name was
// given; otherwise the extraction error is returned.
func (c *Checker) Track(ctx context.Context, rawURL, name string) (*models.Product, Outcome, error) {
	u, err := neturl.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, Outcome{}, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	res := c.extractor.Extract(ctx, rawURL)
	if !res.Success && name == "" {
		return nil, Outcome{Result: res}, res.Err()
	}

	product := models.NewProduct(rawURL, productName(name, res, rawURL))
	product.CreatedAt = c.now().UTC()

	stored, err := c.registry.Add(ctx, product)
	if err != nil {
		return nil, Outcome{Result: res}, fmt.Errorf("failed to register product: %w", err)
	}

	c.logger.Info("tracking product",
		"product_id", stored.ID,
		"store", stored.Store,
		"name", stored.Name,
		"extracted", res.Success)

	if !res.Success {
		return stored, Outcome{Product: stored, Result: res}, nil
	}

	key := stored.ID.String()
	if err := c.locks.Lock(ctx, key); err != nil {
		return stored, Outcome{Product: stored, Result: res}, err
	}
	defer c.locks.Unlock(key)

	out, err := c.record(ctx, stored, res)
	return stored, out, err
}

func productName(override string, res models.ExtractionResult, rawURL string) string {
	if override != "" {
		return override
	}
	if res.Name != "" {
		return res.Name
	}
	return "Producto de " + stores.Detect(rawURL).String()
}

func wrapStore(err error) error {
	if errors.Is(err, history.ErrStore) {
		return err
	}
	return fmt.Errorf("%w: %v", history.ErrStore, err)
}
