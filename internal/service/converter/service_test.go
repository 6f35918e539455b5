package converter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/jpg-converter/internal/archive"
	"github.com/aliskhannn/jpg-converter/internal/model"
	"github.com/aliskhannn/jpg-converter/internal/pipeline"
	"github.com/aliskhannn/jpg-converter/internal/preview"
	"github.com/aliskhannn/jpg-converter/internal/processor"
)

// fakeStrategy accepts files by extension and "converts" by prefixing the
// payload. Payloads equal to "corrupt" fail.
type fakeStrategy struct {
	mode     model.Mode
	ext      string
	onDecode func(src model.SourceFile)
}

func (f *fakeStrategy) Mode() model.Mode { return f.mode }

func (f *fakeStrategy) Accepts(src model.SourceFile) bool {
	return strings.HasSuffix(strings.ToLower(src.Name), f.ext)
}

func (f *fakeStrategy) Decode(_ context.Context, src model.SourceFile) ([]byte, error) {
	if f.onDecode != nil {
		f.onDecode(src)
	}
	if string(src.Data) == "corrupt" {
		return nil, errors.New("cannot parse")
	}
	return append([]byte("jpg:"), src.Data...), nil
}

type statusRecorder struct {
	final    map[string]model.Status
	progress []int
}

func (r *statusRecorder) ItemStatusChanged(_ context.Context, item model.QueueItem, status model.Status) {
	if r.final == nil {
		r.final = make(map[string]model.Status)
	}
	r.final[item.DisplayName] = status
}

func (r *statusRecorder) ProgressChanged(_ context.Context, percent int) {
	r.progress = append(r.progress, percent)
}

type memSink struct {
	saved map[string][]byte
	err   error
	calls int
}

func (m *memSink) Save(_ context.Context, subdir, filename string, src io.Reader) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	dst := filepath.Join(subdir, filename)
	m.saved[dst] = data
	return dst, nil
}

var fixedNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	svg   *fakeStrategy
	store *preview.Store
	rec   *statusRecorder
}

func newFixture(opts ...Option) fixture {
	svg := &fakeStrategy{mode: model.ModeSVG, ext: ".svg"}
	heic := &fakeStrategy{mode: model.ModeHEIC, ext: ".heic"}
	store := preview.NewStore()
	rec := &statusRecorder{}

	opts = append([]Option{WithObserver(rec)}, opts...)
	svc := NewService(model.ModeSVG, processor.New(svg, heic), pipeline.New(), store, opts...)
	svc.now = func() time.Time { return fixedNow }

	return fixture{svc: svc, svg: svg, store: store, rec: rec}
}

func src(name, data string) model.SourceFile {
	return model.SourceFile{Name: name, Data: []byte(data), Size: int64(len(data))}
}

func entries(t *testing.T, data []byte) map[string]string {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}

	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		b, _ := io.ReadAll(rc)
		rc.Close()
		out[f.Name] = string(b)
	}
	return out
}

func TestExport_EmptyQueueIsNoop(t *testing.T) {
	f := newFixture()
	delivered := false

	_, err := f.svc.Export(context.Background(), func(model.Archive) error {
		delivered = true
		return nil
	})
	if !errors.Is(err, ErrQueueEmpty) {
		t.Fatalf("expected ErrQueueEmpty, got %v", err)
	}
	if delivered {
		t.Fatalf("archive delivered for empty queue")
	}
	if p := f.svc.Progress(); p.RunStatus != model.RunIdle || p.Percent != 0 {
		t.Fatalf("progress changed: %+v", p)
	}
	if len(f.rec.final) != 0 {
		t.Fatalf("status events emitted: %v", f.rec.final)
	}
}

func TestExport_PartialFailureDeliversAndClears(t *testing.T) {
	f := newFixture()
	if _, _, err := f.svc.AddFiles([]model.SourceFile{
		src("A.svg", "a"), src("B.svg", "corrupt"), src("C.svg", "c"),
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if f.store.Len() != 3 {
		t.Fatalf("previews = %d, want 3", f.store.Len())
	}

	var got model.Archive
	archive, err := f.svc.Export(context.Background(), func(a model.Archive) error {
		got = a
		return nil
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	if archive.Name != ArchiveName(model.ModeSVG, fixedNow) || got.Name != archive.Name {
		t.Fatalf("archive name = %q, delivered %q", archive.Name, got.Name)
	}

	ents := entries(t, got.Data)
	if len(ents) != 2 || ents["A.jpg"] != "jpg:a" || ents["C.jpg"] != "jpg:c" {
		t.Fatalf("unexpected entries %v", ents)
	}

	if f.rec.final["B.svg"] != model.StatusError || f.rec.final["A.svg"] != model.StatusCompleted {
		t.Fatalf("unexpected statuses %v", f.rec.final)
	}
	if last := f.rec.progress[len(f.rec.progress)-1]; last != 100 || len(f.rec.progress) != 3 {
		t.Fatalf("progress = %v", f.rec.progress)
	}

	if len(f.svc.Items()) != 0 {
		t.Fatalf("queue not cleared after delivery")
	}
	if f.store.Len() != 0 {
		t.Fatalf("previews leaked: %d", f.store.Len())
	}
	if p := f.svc.Progress(); p.RunStatus != model.RunCompleted || p.Percent != 0 {
		t.Fatalf("progress after export = %+v", p)
	}
}

func TestExport_RemovedItemIsExcluded(t *testing.T) {
	f := newFixture()
	added, _, _ := f.svc.AddFiles([]model.SourceFile{src("a.svg", "a"), src("b.svg", "b")})

	if err := f.svc.Remove(added[0].ID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	archive, err := f.svc.Export(context.Background(), nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	ents := entries(t, archive.Data)
	if _, ok := ents["a.jpg"]; ok || len(ents) != 1 {
		t.Fatalf("removed item exported: %v", ents)
	}
	if len(f.rec.progress) != 1 || f.rec.progress[0] != 100 {
		t.Fatalf("progress denominator includes removed item: %v", f.rec.progress)
	}
}

func TestExport_DeliveryFailureKeepsQueue(t *testing.T) {
	f := newFixture()
	f.svc.AddFiles([]model.SourceFile{src("a.svg", "a"), src("b.svg", "corrupt")})

	boom := errors.New("client went away")
	_, err := f.svc.Export(context.Background(), func(model.Archive) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected delivery error, got %v", err)
	}

	items := f.svc.Items()
	if len(items) != 2 {
		t.Fatalf("queue has %d items, want 2", len(items))
	}
	if items[0].Status != model.StatusCompleted || items[1].Status != model.StatusError {
		t.Fatalf("statuses = %s, %s", items[0].Status, items[1].Status)
	}
	if f.svc.Progress().RunStatus != model.RunError {
		t.Fatalf("run status = %s", f.svc.Progress().RunStatus)
	}
}

type brokenPackager struct{}

func (brokenPackager) AddEntry(string, []byte) {}

func (brokenPackager) Finalize() ([]byte, error) {
	return nil, &archive.PackagingError{Err: errors.New("disk full")}
}

func TestExport_PackagingFailureKeepsQueue(t *testing.T) {
	svg := &fakeStrategy{mode: model.ModeSVG, ext: ".svg"}
	store := preview.NewStore()
	p := pipeline.New(pipeline.WithPackager(func() pipeline.Packager { return brokenPackager{} }))
	svc := NewService(model.ModeSVG, processor.New(svg), p, store)

	svc.AddFiles([]model.SourceFile{src("a.svg", "a"), src("b.svg", "b")})

	delivered := false
	_, err := svc.Export(context.Background(), func(model.Archive) error {
		delivered = true
		return nil
	})

	var pkgErr *archive.PackagingError
	if !errors.As(err, &pkgErr) {
		t.Fatalf("expected PackagingError, got %v", err)
	}
	if delivered {
		t.Fatalf("archive delivered after packaging failure")
	}
	if svc.Progress().RunStatus != model.RunError {
		t.Fatalf("run status = %s, want error", svc.Progress().RunStatus)
	}
	if len(svc.Items()) != 2 || store.Len() != 2 {
		t.Fatalf("queue or previews dropped after packaging failure")
	}

	// The session accepts a new export once the failed one is over.
	if _, err := svc.Export(context.Background(), nil); errors.Is(err, ErrExportInProgress) {
		t.Fatalf("failed export left the session running")
	}
}

func TestExport_ItemsAddedMidRunStayQueued(t *testing.T) {
	f := newFixture()
	f.svc.AddFiles([]model.SourceFile{src("a.svg", "a")})

	f.svg.onDecode = func(model.SourceFile) {
		f.svg.onDecode = nil
		if _, _, err := f.svc.AddFiles([]model.SourceFile{src("late.svg", "late")}); err != nil {
			t.Errorf("add during export: %v", err)
		}
	}

	archive, err := f.svc.Export(context.Background(), nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	if _, ok := entries(t, archive.Data)["late.jpg"]; ok {
		t.Fatalf("item added mid-run was exported")
	}
	items := f.svc.Items()
	if len(items) != 1 || items[0].DisplayName != "late.svg" || items[0].Status != model.StatusPending {
		t.Fatalf("unexpected queue after export: %+v", items)
	}
}

func TestExport_RejectsConcurrentExportAndClear(t *testing.T) {
	f := newFixture()
	f.svc.AddFiles([]model.SourceFile{src("a.svg", "a")})

	var nestedExport, nestedClear error
	f.svg.onDecode = func(model.SourceFile) {
		_, nestedExport = f.svc.Export(context.Background(), nil)
		nestedClear = f.svc.Clear()
	}

	if _, err := f.svc.Export(context.Background(), nil); err != nil {
		t.Fatalf("export: %v", err)
	}
	if !errors.Is(nestedExport, ErrExportInProgress) {
		t.Fatalf("nested export: %v", nestedExport)
	}
	if !errors.Is(nestedClear, ErrExportInProgress) {
		t.Fatalf("nested clear: %v", nestedClear)
	}
}

func TestExport_SavesToSink(t *testing.T) {
	sink := &memSink{}
	f := newFixture(WithSink(sink, "archives", retry.Strategy{Attempts: 1}))
	f.svc.AddFiles([]model.SourceFile{src("a.svg", "a")})

	archive, err := f.svc.Export(context.Background(), nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	saved, ok := sink.saved[filepath.Join("archives", archive.Name)]
	if !ok {
		t.Fatalf("archive not saved, sink has %v", sink.saved)
	}
	if !bytes.Equal(saved, archive.Data) {
		t.Fatalf("saved archive differs from delivered one")
	}
}

func TestExport_SinkFailureKeepsQueue(t *testing.T) {
	sink := &memSink{err: errors.New("bucket unavailable")}
	f := newFixture(WithSink(sink, "archives", retry.Strategy{Attempts: 2, Backoff: 1}))
	f.svc.AddFiles([]model.SourceFile{src("a.svg", "a")})

	delivered := false
	_, err := f.svc.Export(context.Background(), func(model.Archive) error {
		delivered = true
		return nil
	})
	if err == nil {
		t.Fatalf("expected sink error")
	}
	if delivered {
		t.Fatalf("archive delivered after sink failure")
	}
	if len(f.svc.Items()) != 1 {
		t.Fatalf("queue cleared after sink failure")
	}
	if sink.calls < 1 {
		t.Fatalf("sink was not called")
	}
}

func TestAddFiles_FiltersByMode(t *testing.T) {
	f := newFixture()

	added, rejected, err := f.svc.AddFiles([]model.SourceFile{
		src("a.svg", "a"), src("b.heic", "b"), src("c.png", "c"),
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(added) != 1 || rejected != 2 {
		t.Fatalf("added=%d rejected=%d", len(added), rejected)
	}
}

func TestAddFiles_DeduplicatesNames(t *testing.T) {
	f := newFixture()

	f.svc.AddFiles([]model.SourceFile{src("logo.svg", "1"), src("logo.svg", "2")})
	f.svc.AddFiles([]model.SourceFile{src("logo.svg", "3")})

	items := f.svc.Items()
	want := []string{"logo.svg", "logo (copy 1).svg", "logo (copy 2).svg"}
	for i, w := range want {
		if items[i].DisplayName != w {
			t.Fatalf("item %d = %q, want %q", i, items[i].DisplayName, w)
		}
	}
}

func TestSetMode(t *testing.T) {
	f := newFixture()

	if err := f.svc.SetMode(model.ModeHEIC); err != nil {
		t.Fatalf("switch on empty queue: %v", err)
	}
	if f.svc.Mode() != model.ModeHEIC {
		t.Fatalf("mode = %s", f.svc.Mode())
	}

	f.svc.AddFiles([]model.SourceFile{src("IMG_1.heic", "x")})
	if err := f.svc.SetMode(model.ModeSVG); !errors.Is(err, ErrQueueNotEmpty) {
		t.Fatalf("expected ErrQueueNotEmpty, got %v", err)
	}
	if err := f.svc.SetMode(model.Mode("png")); !errors.Is(err, processor.ErrUnknownMode) {
		t.Fatalf("expected ErrUnknownMode, got %v", err)
	}
}

func TestPreview(t *testing.T) {
	f := newFixture()
	added, _, _ := f.svc.AddFiles([]model.SourceFile{src("a.svg", "<svg/>")})

	r, err := f.svc.Preview(added[0].ID)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if string(r.Data) != "<svg/>" || r.ContentType != "image/svg+xml" {
		t.Fatalf("unexpected preview %+v", r)
	}

	f.svc.Clear()
	if _, err := f.svc.Preview(added[0].ID); err == nil {
		t.Fatalf("preview of cleared item resolved")
	}

	f.svc.SetMode(model.ModeHEIC)
	heicItems, _, _ := f.svc.AddFiles([]model.SourceFile{src("IMG_1.heic", "x")})
	r, err = f.svc.Preview(heicItems[0].ID)
	if err != nil {
		t.Fatalf("heic preview: %v", err)
	}
	if !bytes.Contains(r.Data, []byte("<svg")) {
		t.Fatalf("heic preview is not the placeholder")
	}
}

func TestClear_ResetsProgress(t *testing.T) {
	f := newFixture()
	f.svc.AddFiles([]model.SourceFile{src("a.svg", "a"), src("b.svg", "b")})

	if err := f.svc.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(f.svc.Items()) != 0 || f.store.Len() != 0 {
		t.Fatalf("clear left items or previews behind")
	}
	if p := f.svc.Progress(); p.Percent != 0 || p.RunStatus != model.RunIdle {
		t.Fatalf("progress = %+v", p)
	}
}

func TestArchiveName(t *testing.T) {
	got := ArchiveName(model.ModeHEIC, time.UnixMilli(1700000000123))
	if got != "converted_heic_1700000000123.zip" {
		t.Fatalf("got %q", got)
	}
}
