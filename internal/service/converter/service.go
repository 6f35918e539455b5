// Package converter implements the conversion session: the queue of
// accepted files, the active mode and export orchestration.
package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/jpg-converter/internal/model"
	"github.com/aliskhannn/jpg-converter/internal/pipeline"
	"github.com/aliskhannn/jpg-converter/internal/preview"
	"github.com/aliskhannn/jpg-converter/internal/processor"
	"github.com/aliskhannn/jpg-converter/internal/queue"
)

var (
	ErrQueueEmpty       = errors.New("queue is empty")
	ErrExportInProgress = errors.New("export already in progress")
	ErrQueueNotEmpty    = errors.New("queue is not empty")
	ErrPreviewNotFound  = errors.New("preview not found")
)

// strategies defines the interface for looking up the conversion strategy of a mode.
type strategies interface {
	Strategy(mode model.Mode) (processor.Strategy, error)
}

// runner defines the interface for converting a queue snapshot into an archive.
type runner interface {
	Run(ctx context.Context, dec pipeline.Decoder, items []model.QueueItem, obs pipeline.Observer) (pipeline.Result, error)
}

// archiveSink defines the interface for keeping a copy of exported archives
// (e.g., local directory, MinIO).
type archiveSink interface {
	Save(ctx context.Context, subdir, filename string, src io.Reader) (string, error)
}

// DeliverFunc hands a finished archive to the user. The exported items are
// removed from the queue only after it returns nil.
type DeliverFunc func(archive model.Archive) error

// Option configures a Service.
type Option func(*Service)

// WithObserver adds an observer that receives every export event.
func WithObserver(obs pipeline.Observer) Option {
	return func(s *Service) {
		s.observers = append(s.observers, obs)
	}
}

// WithSink saves every exported archive to sink under subdir, retrying
// with strategy.
func WithSink(sink archiveSink, subdir string, strategy retry.Strategy) Option {
	return func(s *Service) {
		s.sink = sink
		s.sinkSubdir = subdir
		s.retry = strategy
	}
}

// Service owns one conversion session.
type Service struct {
	processor strategies
	pipeline  runner
	previews  *preview.Store
	observers []pipeline.Observer

	sink       archiveSink
	sinkSubdir string
	retry      retry.Strategy

	now func() time.Time

	mu        sync.Mutex
	mode      model.Mode
	queue     *queue.Queue
	running   bool
	runStatus model.RunStatus
	processed int
	total     int
	percent   int
}

// NewService creates a session in the given mode.
func NewService(mode model.Mode, p strategies, r runner, previews *preview.Store, opts ...Option) *Service {
	s := &Service{
		processor: p,
		pipeline:  r,
		previews:  previews,
		now:       time.Now,
		mode:      mode,
		queue:     queue.New(previews),
		runStatus: model.RunIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mode returns the active mode.
func (s *Service) Mode() model.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mode
}

// SetMode switches the active mode. Formats cannot be mixed, so the queue
// must be empty.
func (s *Service) SetMode(mode model.Mode) error {
	if _, err := s.processor.Strategy(mode); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if mode == s.mode {
		return nil
	}
	if s.queue.Len() > 0 {
		return ErrQueueNotEmpty
	}

	s.mode = mode
	return nil
}

// AddFiles accepts the files matching the active mode and enqueues them.
// Files of other formats are dropped; their count is returned as rejected.
func (s *Service) AddFiles(files []model.SourceFile) (added []model.QueueItem, rejected int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	strategy, err := s.processor.Strategy(s.mode)
	if err != nil {
		return nil, 0, err
	}

	accepted := make([]model.SourceFile, 0, len(files))
	for _, f := range files {
		if !strategy.Accepts(f) {
			zlog.Logger.Debug().Str("name", f.Name).Str("mode", s.mode.String()).Msg("file rejected at ingestion")
			rejected++
			continue
		}
		accepted = append(accepted, f)
	}

	added = s.queue.Add(s.mode, accepted)
	if !s.running {
		s.runStatus = model.RunIdle
	}

	return added, rejected, nil
}

// Items returns the queued items in processing order.
func (s *Service) Items() []model.QueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.queue.Snapshot()
}

// Remove removes one item and releases its preview.
func (s *Service) Remove(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.queue.Remove(id); err != nil {
		return fmt.Errorf("remove item: %w", err)
	}
	return nil
}

// Clear removes all items and resets progress.
func (s *Service) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrExportInProgress
	}

	s.queue.Clear()
	s.runStatus = model.RunIdle
	s.resetProgressLocked()

	return nil
}

// Progress returns the state of the current or last export run.
func (s *Service) Progress() model.ProgressState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return model.ProgressState{
		Percent:   s.percent,
		Processed: s.processed,
		Total:     s.total,
		RunStatus: s.runStatus,
	}
}

// Preview returns the preview resource of an item.
func (s *Service) Preview(id uuid.UUID) (preview.Resource, error) {
	s.mu.Lock()
	item, err := s.queue.Get(id)
	s.mu.Unlock()
	if err != nil {
		return preview.Resource{}, err
	}

	if item.Preview == model.PlaceholderPreview {
		return placeholderPreview, nil
	}

	r, ok := s.previews.Get(item.Preview)
	if !ok {
		return preview.Resource{}, ErrPreviewNotFound
	}
	return r, nil
}

// Export converts every item queued at the time of the call, packages the
// results and hands the archive to deliver. Items added while the export
// runs are not part of it and stay queued afterwards.
//
// An empty queue is a no-op and returns ErrQueueEmpty. Individual conversion
// failures only mark their items; the export fails as a whole only if
// packaging, saving or delivery fails, in which case the queue is kept.
func (s *Service) Export(ctx context.Context, deliver DeliverFunc) (model.Archive, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return model.Archive{}, ErrExportInProgress
	}

	items := s.queue.Snapshot()
	if len(items) == 0 {
		s.mu.Unlock()
		return model.Archive{}, ErrQueueEmpty
	}

	mode := s.mode
	strategy, err := s.processor.Strategy(mode)
	if err != nil {
		s.mu.Unlock()
		return model.Archive{}, err
	}

	s.running = true
	s.runStatus = model.RunProcessing
	s.processed, s.total, s.percent = 0, len(items), 0
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	zlog.Logger.Info().
		Str("mode", mode.String()).
		Int("items", len(items)).
		Msg("export started")

	obs := pipeline.Observers(append([]pipeline.Observer{s}, s.observers...)...)

	res, err := s.pipeline.Run(ctx, strategy, items, obs)
	if err != nil {
		s.fail(err)
		return model.Archive{}, fmt.Errorf("export: %w", err)
	}

	archive := model.Archive{
		Name:    ArchiveName(mode, s.now()),
		Data:    res.Data,
		Entries: res.Entries,
	}

	if s.sink != nil {
		if err := s.save(ctx, archive); err != nil {
			s.fail(err)
			return model.Archive{}, fmt.Errorf("export: %w", err)
		}
	}

	if deliver != nil {
		if err := deliver(archive); err != nil {
			s.fail(err)
			return model.Archive{}, fmt.Errorf("export: deliver archive: %w", err)
		}
	}

	s.mu.Lock()
	for _, item := range items {
		_ = s.queue.Remove(item.ID)
	}
	s.runStatus = model.RunCompleted
	s.resetProgressLocked()
	s.mu.Unlock()

	zlog.Logger.Info().
		Str("archive", archive.Name).
		Int("completed", res.Completed).
		Int("failed", res.Failed).
		Msg("export finished")

	return archive, nil
}

// ItemStatusChanged applies a status reported by the pipeline to the queue.
func (s *Service) ItemStatusChanged(_ context.Context, item model.QueueItem, status model.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.queue.SetStatus(item.ID, status)
	if !ok {
		// Removed while the export was running.
		return
	}
	if !model.CanTransition(prev, status) {
		zlog.Logger.Warn().
			Str("item", item.ID.String()).
			Str("from", string(prev)).
			Str("to", string(status)).
			Msg("item status overwritten out of order")
	}
}

// ProgressChanged records the progress reported by the pipeline.
func (s *Service) ProgressChanged(_ context.Context, percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.processed++
	s.percent = percent
}

// ArchiveName returns the download name of an archive exported at t.
func ArchiveName(mode model.Mode, t time.Time) string {
	return fmt.Sprintf("converted_%s_%d.zip", mode, t.UnixMilli())
}

func (s *Service) save(ctx context.Context, archive model.Archive) error {
	var dst string
	err := retry.Do(func() error {
		var saveErr error
		dst, saveErr = s.sink.Save(ctx, s.sinkSubdir, archive.Name, bytes.NewReader(archive.Data))
		return saveErr
	}, s.retry)
	if err != nil {
		return fmt.Errorf("save archive: %w", err)
	}

	zlog.Logger.Info().Str("path", dst).Msg("archive saved")
	return nil
}

func (s *Service) fail(err error) {
	zlog.Logger.Err(err).Msg("export failed")

	s.mu.Lock()
	s.runStatus = model.RunError
	s.mu.Unlock()
}

func (s *Service) resetProgressLocked() {
	s.processed, s.total, s.percent = 0, 0, 0
}
