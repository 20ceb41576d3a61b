package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"git.home.luguber.info/inful/recreate-skps/internal/logfields"
)

// Exporter ships a registry's metrics at the end of a run.
type Exporter struct {
	Gatherer       prom.Gatherer
	PushgatewayURL string
	Job            string
	Textfile       string
	Grouping       map[string]string // extra pushgateway grouping labels, e.g. builder
}

// Export pushes to the pushgateway and writes the textfile, whichever are
// configured. Both targets are attempted; their errors are joined.
func (e *Exporter) Export(ctx context.Context) error {
	var errs []error
	if e.PushgatewayURL != "" {
		pusher := push.New(e.PushgatewayURL, e.Job).Gatherer(e.Gatherer)
		for k, v := range e.Grouping {
			pusher = pusher.Grouping(k, v)
		}
		if err := pusher.PushContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("push metrics: %w", err))
		} else {
			slog.Debug("Pushed metrics", logfields.URL(e.PushgatewayURL), logfields.Job(e.Job))
		}
	}
	if e.Textfile != "" {
		if err := prom.WriteToTextfile(e.Textfile, e.Gatherer); err != nil {
			errs = append(errs, fmt.Errorf("write metrics textfile: %w", err))
		} else {
			slog.Debug("Wrote metrics textfile", logfields.Path(e.Textfile))
		}
	}
	return errors.Join(errs...)
}
