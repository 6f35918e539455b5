package pipeline

import (
	"context"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/jpg-converter/internal/model"
)

// Observer receives item status transitions and progress updates from a run.
// Calls are made from the goroutine driving the run, in order.
type Observer interface {
	ItemStatusChanged(ctx context.Context, item model.QueueItem, status model.Status)
	ProgressChanged(ctx context.Context, percent int)
}

// Observers fans events out to every non-nil observer in order.
func Observers(obs ...Observer) Observer {
	list := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			list = append(list, o)
		}
	}
	return list
}

type multiObserver []Observer

func (m multiObserver) ItemStatusChanged(ctx context.Context, item model.QueueItem, status model.Status) {
	for _, o := range m {
		o.ItemStatusChanged(ctx, item, status)
	}
}

func (m multiObserver) ProgressChanged(ctx context.Context, percent int) {
	for _, o := range m {
		o.ProgressChanged(ctx, percent)
	}
}

type nopObserver struct{}

func (nopObserver) ItemStatusChanged(context.Context, model.QueueItem, model.Status) {}

func (nopObserver) ProgressChanged(context.Context, int) {}

// LogObserver writes run events to the application logger.
func LogObserver() Observer {
	return logObserver{}
}

type logObserver struct{}

func (logObserver) ItemStatusChanged(_ context.Context, item model.QueueItem, status model.Status) {
	zlog.Logger.Info().
		Str("item", item.ID.String()).
		Str("name", item.DisplayName).
		Str("status", string(status)).
		Msg("item status changed")
}

func (logObserver) ProgressChanged(_ context.Context, percent int) {
	zlog.Logger.Debug().Int("percent", percent).Msg("export progress")
}
