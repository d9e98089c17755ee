package extractor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/maltedev/price-monitor/internal/models"
	"github.com/maltedev/price-monitor/internal/parser"
	"github.com/maltedev/price-monitor/internal/stores"
)

// StaticConfig configures the plain HTTP tier.
type StaticConfig struct {
	Timeout        time.Duration
	UserAgents     []string
	AcceptLanguage string
}

// Static fetches pages over plain HTTP without running scripts.
type Static struct {
	cfg    StaticConfig
	rules  *parser.Registry
	logger *slog.Logger
}

func NewStatic(cfg StaticConfig, rules *parser.Registry, logger *slog.Logger) *Static {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.AcceptLanguage == "" {
		cfg.AcceptLanguage = "es-AR,es;q=0.9,en;q=0.8"
	}
	return &Static{
		cfg:    cfg,
		rules:  rules,
		logger: logger.With("component", "static_extractor"),
	}
}

func (s *Static) Extract(ctx context.Context, url string) models.ExtractionResult {
	store := stores.Detect(url)

	body, err := s.fetch(ctx, url)
	if err != nil {
		s.logger.Debug("static fetch failed", "url", url, "store", store, "error", err)
		res := models.Failed(models.ReasonFetch, store, url, err.Error())
		res.Tier = models.TierStatic
		return res
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		res := models.Failed(models.ReasonParse, store, url, err.Error())
		res.Tier = models.TierStatic
		return res
	}

	res := s.rules.Apply(doc, url)
	res.Tier = models.TierStatic
	return res
}

// fetch runs a single-use collector so concurrent calls share no state.
func (s *Static) fetch(ctx context.Context, url string) ([]byte, error) {
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.UserAgent(s.userAgent()),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(s.cfg.Timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", s.cfg.AcceptLanguage)
		r.Headers.Set("Referer", "https://www.google.com/")
	})

	var (
		body     []byte
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	if err := c.Visit(url); err != nil && fetchErr == nil {
		fetchErr = err
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty response body")
	}
	return body, nil
}

func (s *Static) userAgent() string {
	if len(s.cfg.UserAgents) == 0 {
		return "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	return s.cfg.UserAgents[rand.Intn(len(s.cfg.UserAgents))]
}
