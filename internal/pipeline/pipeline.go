// Package pipeline converts a snapshot of queue items one at a time and
// packages the results into a single archive.
//
// A Pipeline is meant to run once per queue snapshot. Running it again over
// the same items simply reports their statuses again.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/jpg-converter/internal/archive"
	"github.com/aliskhannn/jpg-converter/internal/model"
)

// Decoder converts one source file into a JPEG payload.
type Decoder interface {
	Decode(ctx context.Context, src model.SourceFile) ([]byte, error)
}

// Packager collects named payloads and serializes them into one blob.
type Packager interface {
	AddEntry(name string, data []byte)
	Finalize() ([]byte, error)
}

// Result is the outcome of a run that produced an archive.
type Result struct {
	Data      []byte
	Entries   []string
	Completed int
	Failed    int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPackager overrides how a fresh Packager is created for each run.
func WithPackager(fn func() Packager) Option {
	return func(p *Pipeline) {
		p.newPackager = fn
	}
}

// Pipeline drains queue snapshots sequentially.
type Pipeline struct {
	newPackager func() Packager
}

// New creates a Pipeline that packages results as zip archives.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		newPackager: func() Packager { return archive.New() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run converts items in order with dec, reporting every status change and
// progress step to obs. A failed item is marked as such and the run moves
// on. The run itself fails only if the context is canceled between items or
// the archive cannot be finalized; no archive is returned in that case.
func (p *Pipeline) Run(ctx context.Context, dec Decoder, items []model.QueueItem, obs Observer) (Result, error) {
	if obs == nil {
		obs = nopObserver{}
	}

	pkg := p.newPackager()
	res := Result{Entries: make([]string, 0, len(items))}

	for i, item := range items {
		// Stop between items, never mid-decode.
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("export canceled after %d of %d items: %w", i, len(items), err)
		}

		obs.ItemStatusChanged(ctx, item, model.StatusConverting)

		data, err := dec.Decode(ctx, item.Source)
		if err != nil {
			zlog.Logger.Err(err).
				Str("item", item.ID.String()).
				Str("name", item.DisplayName).
				Msg("failed to convert item")

			res.Failed++
			obs.ItemStatusChanged(ctx, item, model.StatusError)
		} else {
			name := OutputName(item.DisplayName)
			pkg.AddEntry(name, data)

			res.Entries = append(res.Entries, name)
			res.Completed++
			obs.ItemStatusChanged(ctx, item, model.StatusCompleted)
		}

		obs.ProgressChanged(ctx, Percent(i+1, len(items)))
	}

	data, err := pkg.Finalize()
	if err != nil {
		return Result{}, fmt.Errorf("finalize archive: %w", err)
	}
	res.Data = data

	return res, nil
}

// OutputName replaces the extension of a display name with ".jpg".
// Only a non-empty final extension without path separators is replaced.
func OutputName(displayName string) string {
	stem := displayName
	if i := strings.LastIndexByte(displayName, '.'); i >= 0 && i < len(displayName)-1 {
		if !strings.ContainsRune(displayName[i+1:], '/') {
			stem = displayName[:i]
		}
	}
	return stem + ".jpg"
}

// Percent returns processed/total as a rounded integer percentage.
func Percent(processed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(processed) / float64(total)))
}
