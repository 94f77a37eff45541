// Package notify announces scan results over optional channels.
// Delivery is best-effort: failures are logged at debug level and dropped.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/hiring-scanner/internal/logging"
	"github.com/JakeFAU/hiring-scanner/internal/posting"
)

// Message describes newly stored postings.
type Message struct {
	RunID      string               `json:"run_id"`
	Text       string               `json:"text"`
	Inserted   int                  `json:"inserted"`
	ExportPath string               `json:"export_path"`
	Highlights []posting.JobPosting `json:"highlights,omitempty"`
}

// Channel is one delivery mechanism.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Fanout sends every message to each configured channel in turn.
type Fanout struct {
	channels []Channel
	logger   *zap.Logger
}

// NewFanout builds a Fanout over channels. Nil entries are ignored.
func NewFanout(logger *zap.Logger, channels ...Channel) *Fanout {
	kept := make([]Channel, 0, len(channels))
	for _, c := range channels {
		if c != nil {
			kept = append(kept, c)
		}
	}
	return &Fanout{channels: kept, logger: logging.OrNop(logger).Named("notify")}
}

// Len reports the number of configured channels.
func (f *Fanout) Len() int {
	return len(f.channels)
}

// Notify delivers msg on every channel and swallows failures.
func (f *Fanout) Notify(ctx context.Context, msg Message) {
	for _, c := range f.channels {
		if err := c.Send(ctx, msg); err != nil {
			f.logger.Debug("notification dropped", zap.String("channel", c.Name()), zap.Error(err))
		}
	}
}
