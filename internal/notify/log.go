package notify

import (
	"context"
	"log/slog"

	"github.com/maltedev/price-monitor/internal/models"
)

// LogNotifier writes alerts to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "alerts")}
}

func (n *LogNotifier) Notify(ctx context.Context, product *models.Product, transition models.Transition, record models.PriceRecord) error {
	n.logger.InfoContext(ctx, "price alert",
		"kind", transition.Kind,
		"product_id", product.ID,
		"store", product.Store,
		"price", record.Price.String(),
		"currency", record.Currency,
		"percent_change", transition.PercentChange.StringFixed(2),
		"message", Compose(product, transition, record))
	return nil
}
