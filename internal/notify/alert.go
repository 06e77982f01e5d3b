package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/marketsentinel/sentinel/internal/domain"
)

// Event types recognized by the notifier filter.
const (
	EventHighProbability = "high_probability"
	EventFreshInsider    = "fresh_insider"
	EventError           = "error"
)

// FormatAlert renders a domain alert as a notification title and body.
func FormatAlert(a domain.Alert) (title, message string) {
	switch a.Kind {
	case domain.AlertKindMonitor:
		title = fmt.Sprintf("%s on %s", a.Flag, a.Platform)
		var b strings.Builder
		fmt.Fprintf(&b, "%s\n", a.Question)
		fmt.Fprintf(&b, "Trade value: $%.2f\n", a.TradeValue)
		if a.Message != "" {
			b.WriteString(a.Message)
		}
		return title, strings.TrimRight(b.String(), "\n")
	default:
		title = fmt.Sprintf("Suspicious activity on %s", a.Platform)
		var b strings.Builder
		fmt.Fprintf(&b, "%s\n", a.Question)
		fmt.Fprintf(&b, "Insider probability: %.0f%%\n", a.Probability*100)
		fmt.Fprintf(&b, "Market: %s", a.MarketID)
		if a.Message != "" {
			fmt.Fprintf(&b, "\n%s", a.Message)
		}
		return title, b.String()
	}
}

// NotifyAlert formats and dispatches a domain alert under the appropriate
// event type.
func (n *Notifier) NotifyAlert(ctx context.Context, a domain.Alert) error {
	event := EventHighProbability
	if a.Kind == domain.AlertKindMonitor {
		event = EventFreshInsider
	}
	title, message := FormatAlert(a)
	return n.Notify(ctx, event, title, message)
}
