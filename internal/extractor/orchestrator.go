package extractor

import (
	"context"
	"log/slog"
	neturl "net/url"

	"github.com/maltedev/price-monitor/internal/models"
	"github.com/maltedev/price-monitor/internal/ratelimit"
	"github.com/maltedev/price-monitor/internal/stores"
)

// Orchestrator tries the static tier first and falls back to the dynamic
// tier. Requests to the same host are throttled by the limiter.
type Orchestrator struct {
	static  Extractor
	dynamic Extractor
	limiter *ratelimit.HostLimiter
	logger  *slog.Logger
}

// NewOrchestrator wires the two tiers. A nil dynamic tier disables the
// fallback; a nil limiter disables throttling.
func NewOrchestrator(static, dynamic Extractor, limiter *ratelimit.HostLimiter, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		static:  static,
		dynamic: dynamic,
		limiter: limiter,
		logger:  logger.With("component", "orchestrator"),
	}
}

// Extract never retries. When both tiers fail the dynamic result is
// returned unchanged.
func (o *Orchestrator) Extract(ctx context.Context, url string) models.ExtractionResult {
	if o.limiter != nil {
		reservation, err := o.limiter.Acquire(ctx, hostOf(url))
		if err != nil {
			return models.Failed(models.ReasonFetch, stores.Detect(url), url, err.Error())
		}
		defer func() {
			if err := reservation.Release(ctx); err != nil {
				o.logger.Debug("delay interrupted", "url", url, "error", err)
			}
		}()
	}

	res := o.static.Extract(ctx, url)
	if res.Success {
		o.logger.Debug("static extraction succeeded", "url", url, "store", res.Store)
		return res
	}

	if o.dynamic == nil || ctx.Err() != nil {
		return res
	}

	o.logger.Info("falling back to browser",
		"url", url,
		"store", res.Store,
		"static_reason", res.Reason)

	return o.dynamic.Extract(ctx, url)
}

func hostOf(raw string) string {
	u, err := neturl.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Hostname()
}
