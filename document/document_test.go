package document

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/image/font/gofont/goregular"

	perrors "github.com/wippyai/pdf-runtime/errors"
	"github.com/wippyai/pdf-runtime/native"
	"github.com/wippyai/pdf-runtime/resource"
	"github.com/wippyai/pdf-runtime/sim"
)

func fixture() []byte {
	return sim.Build(sim.Fixture{
		Pages: []sim.Page{
			{Text: []string{"Hello", "Grüße"}, Paths: []native.Rect{{Left: 72, Top: 172, Right: 272, Bottom: 72}}},
			{Width: 300, Height: 400, Annots: []sim.Annot{{Subtype: "Link", Rect: native.Rect{Left: 10, Top: 30, Right: 50, Bottom: 10}}}},
			{Text: []string{"third"}},
		},
	})
}

func setup(t *testing.T) (*sim.Engine, *Library, *Document) {
	t.Helper()
	e := sim.New()
	lib, err := NewLibrary(e)
	if err != nil {
		t.Fatalf("NewLibrary failed: %v", err)
	}
	doc, err := lib.OpenBytes(fixture(), "")
	if err != nil {
		t.Fatalf("OpenBytes failed: %v", err)
	}
	return e, lib, doc
}

func TestOpenBytes(t *testing.T) {
	_, lib, doc := setup(t)
	defer lib.Close()

	n, err := doc.PageCount()
	if err != nil || n != 3 {
		t.Fatalf("PageCount = %d, %v", n, err)
	}
	if v, err := doc.FileVersion(); err != nil || v != 17 {
		t.Errorf("FileVersion = %d, %v", v, err)
	}
	w, h, err := doc.PageSize(1)
	if err != nil || w != 300 || h != 400 {
		t.Errorf("PageSize(1) = %gx%g, %v", w, h, err)
	}
	if _, _, err := doc.PageSize(3); !perrors.IsKind(err, perrors.KindOutOfBounds) {
		t.Errorf("PageSize(3) err = %v", err)
	}
}

func TestOpenBytes_Failures(t *testing.T) {
	e := sim.New()
	lib, _ := NewLibrary(e)
	defer lib.Close()

	_, err := lib.OpenBytes([]byte("garbage"), "")
	if !errors.Is(err, perrors.ErrConstructionFailed) {
		t.Fatalf("err = %v, want ConstructionFailed", err)
	}
	if !strings.Contains(err.Error(), "format") {
		t.Errorf("error should carry the native reason: %v", err)
	}

	locked := sim.Build(sim.Fixture{Password: "pw", Pages: []sim.Page{{}}})
	_, err = lib.OpenBytes(locked, "nope")
	var pe *perrors.Error
	if !errors.As(err, &pe) || pe.Code != native.ErrPassword {
		t.Errorf("err = %v, want password failure", err)
	}
	if _, err := lib.OpenBytes(locked, "pw"); err != nil {
		t.Errorf("correct password: %v", err)
	}

	if _, err := lib.OpenBytes(nil, ""); !errors.Is(err, perrors.ErrConstructionFailed) {
		t.Errorf("empty data err = %v", err)
	}
	if _, err := lib.OpenReader(bytes.NewReader(nil), 0, ""); !errors.Is(err, perrors.ErrConstructionFailed) {
		t.Errorf("empty reader err = %v", err)
	}
}

func TestOpenFileAndReader(t *testing.T) {
	e := sim.New()
	lib, _ := NewLibrary(e)
	defer lib.Close()

	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, fixture(), 0o600); err != nil {
		t.Fatal(err)
	}
	doc, err := lib.OpenFile(path, "")
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	if n, _ := doc.PageCount(); n != 3 {
		t.Errorf("PageCount = %d", n)
	}

	if _, err := lib.OpenFile(filepath.Join(t.TempDir(), "missing.pdf"), ""); err == nil {
		t.Error("missing file should fail")
	}

	data := fixture()
	doc, err = lib.OpenReader(bytes.NewReader(data), int64(len(data)), "")
	if err != nil {
		t.Fatalf("OpenReader failed: %v", err)
	}
	if n, _ := doc.PageCount(); n != 3 {
		t.Errorf("PageCount = %d", n)
	}
}

// Closing a document with an open page and text layer closes both first.
func TestCloseDocumentWithOpenChildren(t *testing.T) {
	e, lib, doc := setup(t)
	defer lib.Close()

	page, err := doc.LoadPage(0)
	if err != nil {
		t.Fatalf("LoadPage failed: %v", err)
	}
	text, err := page.TextLayer()
	if err != nil {
		t.Fatalf("TextLayer failed: %v", err)
	}

	e.ResetJournal()
	if err := doc.Close(); err != nil {
		t.Fatal(err)
	}

	if !page.Closed() || !text.Closed() {
		t.Fatal("children should report closed")
	}
	if _, _, err := page.Size(); !errors.Is(err, perrors.ErrResourceDisposed) {
		t.Errorf("page.Size err = %v", err)
	}
	if _, err := text.Text(); !errors.Is(err, perrors.ErrResourceDisposed) {
		t.Errorf("text.Text err = %v", err)
	}

	got := e.Releases()
	want := []native.Kind{native.KindTextPage, native.KindPage, native.KindDocument}
	if len(got) != len(want) {
		t.Fatalf("releases = %v", got)
	}
	for i, k := range want {
		if got[i].Kind != k {
			t.Errorf("release %d = %v, want %v", i, got[i].Kind, k)
		}
	}
	if v := e.Violations(); len(v) != 0 {
		t.Errorf("violations: %v", v)
	}

	// Closing again is a no-op.
	doc.Close()
	page.Close()
	text.Close()
	if len(e.Releases()) != 3 {
		t.Errorf("repeated close released again: %v", e.Releases())
	}
}

func TestForgottenPageClosedBeforeDocument(t *testing.T) {
	e, lib, doc := setup(t)
	defer lib.Close()

	func() {
		if _, err := doc.LoadPage(0); err != nil {
			t.Fatalf("LoadPage failed: %v", err)
		}
	}()
	for i := 0; i < 3; i++ {
		runtime.GC()
		time.Sleep(5 * time.Millisecond)
	}
	if n := doc.Resource().Registry().Len(); n != 1 {
		t.Fatalf("forgotten page not tracked by its document: %d children", n)
	}

	e.ResetJournal()
	if err := doc.Close(); err != nil {
		t.Fatal(err)
	}
	got := e.Releases()
	if len(got) != 2 || got[0].Kind != native.KindPage || got[1].Kind != native.KindDocument {
		t.Errorf("releases = %v", got)
	}
	if v := e.Violations(); len(v) != 0 {
		t.Errorf("violations: %v", v)
	}
}

type limitedEngine struct {
	*sim.Engine
	limit int64
}

func (e limitedEngine) MaxDocumentSize() int64 { return e.limit }

func TestOpen_DocumentTooLarge(t *testing.T) {
	e := limitedEngine{Engine: sim.New(), limit: 16}
	lib, err := NewLibrary(e)
	if err != nil {
		t.Fatal(err)
	}
	defer lib.Close()

	data := fixture()
	if _, err := lib.OpenBytes(data, ""); !perrors.IsKind(err, perrors.KindInvalidInput) {
		t.Errorf("OpenBytes err = %v, want invalid_input", err)
	}
	if _, err := lib.OpenReader(bytes.NewReader(data), int64(len(data)), ""); !perrors.IsKind(err, perrors.KindInvalidInput) {
		t.Errorf("OpenReader err = %v, want invalid_input", err)
	}
	if n := e.Live(native.KindDocument); n != 0 {
		t.Errorf("%d documents reached the engine", n)
	}
	if !native.SizeFits(sim.New(), 1<<40) {
		t.Error("engine without a limit should accept any size")
	}
}

func TestStaleHandleNeverForwarded(t *testing.T) {
	e, lib, doc := setup(t)
	defer lib.Close()

	first, _ := doc.LoadPage(0)
	h, _ := first.Resource().Handle()
	first.Close()

	second, err := doc.LoadPage(1)
	if err != nil {
		t.Fatal(err)
	}
	if h2, _ := second.Resource().Handle(); h2 != h {
		t.Skipf("engine did not reuse handle %d", h)
	}

	if _, _, err := first.Size(); !errors.Is(err, perrors.ErrResourceDisposed) {
		t.Fatalf("closed page reached the engine: %v", err)
	}
	w, _, _ := second.Size()
	if w != 300 {
		t.Errorf("second page width = %g", w)
	}
	if len(e.Violations()) != 0 {
		t.Errorf("violations: %v", e.Violations())
	}
}

func TestPageContent(t *testing.T) {
	_, lib, doc := setup(t)
	defer lib.Close()

	page, err := doc.LoadPage(0)
	if err != nil {
		t.Fatal(err)
	}
	if page.Index() != 0 || page.Document() != doc {
		t.Error("page metadata wrong")
	}

	objs, err := page.Objects()
	if err != nil || len(objs) != 3 {
		t.Fatalf("Objects = %d, %v", len(objs), err)
	}
	if typ, _ := objs[2].Type(); typ != native.ObjectPath {
		t.Errorf("object 2 type = %v", typ)
	}
	if r, err := objs[2].Bounds(); err != nil || r.Width() != 200 {
		t.Errorf("bounds = %+v, %v", r, err)
	}
	if _, err := page.Object(3); !perrors.IsKind(err, perrors.KindOutOfBounds) {
		t.Errorf("Object(3) err = %v", err)
	}

	text, err := page.TextLayer()
	if err != nil {
		t.Fatal(err)
	}
	again, _ := page.TextLayer()
	if again != text {
		t.Error("text layer should be cached")
	}
	s, err := text.Text()
	if err != nil || s != "Hello\r\nGrüße" {
		t.Errorf("Text = %q, %v", s, err)
	}
	if s, _ := text.TextRange(7, 100); s != "Grüße" {
		t.Errorf("TextRange = %q", s)
	}
	if _, err := text.TextRange(99, 1); !perrors.IsKind(err, perrors.KindOutOfBounds) {
		t.Errorf("TextRange(99) err = %v", err)
	}

	text.Close()
	fresh, err := page.TextLayer()
	if err != nil || fresh == text {
		t.Errorf("closed text layer should be replaced: %v", err)
	}

	p1, _ := doc.LoadPage(1)
	annots, err := p1.Annotations()
	if err != nil || len(annots) != 1 {
		t.Fatalf("Annotations = %d, %v", len(annots), err)
	}
	if st, _ := annots[0].Subtype(); st != native.AnnotLink {
		t.Errorf("subtype = %v", st)
	}

	p1.Close()
	if _, err := annots[0].Rect(); !errors.Is(err, perrors.ErrResourceDisposed) {
		t.Errorf("view outlived its page: %v", err)
	}
}

func TestLoadPage_Independent(t *testing.T) {
	e, lib, doc := setup(t)
	defer lib.Close()

	a, _ := doc.LoadPage(2)
	b, _ := doc.LoadPage(2)
	if doc.Pages() != 2 || e.Live(native.KindPage) != 2 {
		t.Fatalf("expected two independent pages")
	}
	a.Close()
	if b.Closed() {
		t.Error("closing one page closed the other")
	}
	if _, err := doc.LoadPage(-1); !perrors.IsKind(err, perrors.KindOutOfBounds) {
		t.Errorf("LoadPage(-1) err = %v", err)
	}
}

func TestLoadFont(t *testing.T) {
	e, lib, doc := setup(t)
	defer lib.Close()

	f, err := doc.LoadFont(goregular.TTF, native.FontTrueType, false)
	if err != nil {
		t.Fatalf("LoadFont failed: %v", err)
	}
	if f.Family() != "Go" {
		t.Errorf("Family = %q", f.Family())
	}
	if f.Glyphs() == 0 {
		t.Error("no glyphs")
	}

	if _, err := doc.LoadFont([]byte("not a font"), native.FontTrueType, false); !perrors.IsKind(err, perrors.KindInvalidInput) {
		t.Errorf("bad font err = %v", err)
	}
	if _, err := doc.LoadFont([]byte{1}, native.FontType(7), false); !perrors.IsKind(err, perrors.KindUnsupported) {
		t.Errorf("unknown type err = %v", err)
	}

	doc.Close()
	if e.Live(native.KindFont) != 0 {
		t.Error("font outlived its document")
	}
	if !f.Resource().Disposed() {
		t.Error("font not disposed")
	}
}

func TestLibraryClose(t *testing.T) {
	e, lib, doc := setup(t)
	page, _ := doc.LoadPage(0)

	lib.Close()
	if !doc.Closed() || !page.Closed() {
		t.Error("library close should close everything")
	}
	if e.Live(native.KindLibrary) != 0 || e.Live(native.KindDocument) != 0 || e.Live(native.KindPage) != 0 {
		t.Error("handles leaked")
	}
	if v := e.Violations(); len(v) != 0 {
		t.Errorf("violations: %v", v)
	}
	if _, err := lib.OpenBytes(fixture(), ""); !errors.Is(err, perrors.ErrResourceDisposed) {
		t.Errorf("open on closed library err = %v", err)
	}
}

func TestWithObserver(t *testing.T) {
	var mu sync.Mutex
	counts := map[resource.EventType]int{}
	obs := resource.ObserverFunc(func(ev resource.Event) {
		mu.Lock()
		counts[ev.Type]++
		mu.Unlock()
	})

	lib, err := NewLibrary(sim.New(), WithObserver(obs))
	if err != nil {
		t.Fatal(err)
	}
	doc, _ := lib.OpenBytes(fixture(), "")
	page, _ := doc.LoadPage(0)
	lib.Close()
	runtime.KeepAlive(page)

	mu.Lock()
	defer mu.Unlock()
	if counts[resource.EventCreated] != 2 {
		t.Errorf("created = %d, want 2", counts[resource.EventCreated])
	}
	if counts[resource.EventDisposed] != 3 {
		t.Errorf("disposed = %d, want 3", counts[resource.EventDisposed])
	}
	if counts[resource.EventOrphaned] != 2 {
		t.Errorf("orphaned = %d, want 2", counts[resource.EventOrphaned])
	}
}
