// Package alert delivers the new-incident cue.
package alert

import (
	"context"
	"io"
	"sync"

	"github.com/Zachdehooge/grid-dashboard/internal/incident"
	"go.uber.org/zap"
)

// Bell rings the terminal bell.
type Bell struct {
	mu sync.Mutex
	W  io.Writer
}

func (b *Bell) NewIncident(_ context.Context, _ incident.Result) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, _ = io.WriteString(b.W, "\a")
}

// Log writes the alert to a logger.
type Log struct {
	Logger *zap.Logger
}

func (l Log) NewIncident(_ context.Context, res incident.Result) {
	l.Logger.Info("new incident detected", zap.Int("total", res.Total))
}

// Multi fans an alert out to several alerters.
type Multi []incident.Alerter

func (m Multi) NewIncident(ctx context.Context, res incident.Result) {
	for _, a := range m {
		a.NewIncident(ctx, res)
	}
}
