package main

import (
	"bytes"
	"context"
	stderrors "errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/wippyai/pdf-runtime/errors"
	"github.com/wippyai/pdf-runtime/native"
	"github.com/wippyai/pdf-runtime/sim"
)

func fixture(linearized bool, padding int) []byte {
	return sim.Build(sim.Fixture{
		Linearized: linearized,
		Pages: []sim.Page{
			{
				Text:    []string{"Hello PDF"},
				Paths:   []native.Rect{{Left: 10, Top: 90, Right: 60, Bottom: 40}},
				Annots:  []sim.Annot{{Subtype: "Link", Rect: native.Rect{Left: 5, Top: 20, Right: 50, Bottom: 5}}},
				Width:   200,
				Height:  100,
				Padding: padding,
			},
			{Text: []string{"second"}, Padding: padding},
			{Text: []string{"third"}, Padding: padding},
		},
	})
}

func localConfig(t *testing.T, data []byte) Config {
	t.Helper()
	cfg := defaultConfig()
	cfg.Input = filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(cfg.Input, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	cfg.Timeout = 5 * time.Second
	return cfg
}

func TestRun_LocalFile(t *testing.T) {
	cfg := localConfig(t, fixture(false, 0))
	cfg.Thumbnail = filepath.Join(t.TempDir(), "thumb.png")
	cfg.ThumbnailWidth = 50
	cfg.PauseEvery = 1

	var stages []stage
	rep, err := run(context.Background(), cfg, func(ev progressEvent) {
		stages = append(stages, ev.stage)
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if rep.Pages != 3 || rep.Version != 17 {
		t.Errorf("pages=%d version=%d", rep.Pages, rep.Version)
	}
	if rep.Linearization != native.NotLinearized.String() {
		t.Errorf("linearization = %s", rep.Linearization)
	}
	if rep.Size != int64(len(fixture(false, 0))) {
		t.Errorf("size = %d", rep.Size)
	}

	p := rep.Page
	if p == nil || p.Width != 200 || p.Height != 100 {
		t.Fatalf("page report = %+v", p)
	}
	if p.Objects["text"] != 1 || p.Objects["path"] != 1 {
		t.Errorf("objects = %v", p.Objects)
	}
	if len(p.Annotations) != 1 || p.Annotations[0].Subtype != "Link" {
		t.Errorf("annotations = %+v", p.Annotations)
	}
	if p.Chars != 9 || p.Text != "Hello PDF" {
		t.Errorf("text = %q (%d chars)", p.Text, p.Chars)
	}

	r := rep.Render
	if r == nil || r.Status != native.RenderDone.String() {
		t.Fatalf("render report = %+v", r)
	}
	if r.Width != 200 || r.Height != 100 || r.Steps < 2 {
		t.Errorf("render %dx%d in %d steps", r.Width, r.Height, r.Steps)
	}

	f, err := os.Open(cfg.Thumbnail)
	if err != nil {
		t.Fatalf("thumbnail not written: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if img.Bounds().Dx() != 50 {
		t.Errorf("thumbnail width = %d", img.Bounds().Dx())
	}

	if rep.Resources.Live != 0 || rep.Resources.Created != rep.Resources.Disposed {
		t.Errorf("resources leaked: %+v", rep.Resources)
	}
	if rep.Resources.Orphaned == 0 {
		t.Error("closing the page with its text layer open should be reported")
	}

	if stages[0] != stageOpen || stages[len(stages)-1] != stageDone {
		t.Errorf("stages = %v", stages)
	}
}

func TestRun_RemoteLinearized(t *testing.T) {
	data := fixture(true, 4000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "doc.pdf", time.Time{}, bytes.NewReader(data))
	}))
	defer srv.Close()

	cfg := defaultConfig()
	cfg.Input = srv.URL + "/doc.pdf"
	cfg.ChunkSize = 1024
	cfg.Timeout = 5 * time.Second
	cfg.PauseEvery = 0

	downloads := 0
	rep, err := run(context.Background(), cfg, func(ev progressEvent) {
		if ev.stage == stageDownload {
			downloads++
			if ev.total != int64(len(data)) {
				t.Errorf("download total = %d", ev.total)
			}
		}
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if rep.Linearization != native.Linearized.String() {
		t.Errorf("linearization = %s", rep.Linearization)
	}
	if downloads == 0 || rep.Transfer.Requests == 0 {
		t.Errorf("downloads=%d requests=%d", downloads, rep.Transfer.Requests)
	}
	if rep.Transfer.Fetched <= 0 || rep.Transfer.Fetched > int64(len(data)) {
		t.Errorf("fetched = %d of %d", rep.Transfer.Fetched, len(data))
	}
	if rep.Render == nil || rep.Render.Steps != 1 {
		t.Errorf("never-pausing render should take one step: %+v", rep.Render)
	}
}

func TestRun_Failures(t *testing.T) {
	t.Run("wrong password", func(t *testing.T) {
		cfg := localConfig(t, sim.Build(sim.Fixture{Password: "secret", Pages: []sim.Page{{}}}))
		cfg.Password = "guess"
		_, err := run(context.Background(), cfg, nil)
		var perr *errors.Error
		if !errors.IsKind(err, errors.KindConstructionFailed) || !stderrors.As(err, &perr) || perr.Code != native.ErrPassword {
			t.Errorf("expected password failure, got %v", err)
		}
	})

	t.Run("page out of range", func(t *testing.T) {
		cfg := localConfig(t, fixture(false, 0))
		cfg.Page = 7
		if _, err := run(context.Background(), cfg, nil); !errors.IsKind(err, errors.KindOutOfBounds) {
			t.Errorf("expected out_of_bounds, got %v", err)
		}
	})

	t.Run("missing input", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Input = filepath.Join(t.TempDir(), "nope.pdf")
		if _, err := run(context.Background(), cfg, nil); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("engine module without exports", func(t *testing.T) {
		cfg := localConfig(t, fixture(false, 0))
		cfg.Engine = filepath.Join(t.TempDir(), "empty.wasm")
		if err := os.WriteFile(cfg.Engine, []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}, 0o644); err != nil {
			t.Fatal(err)
		}
		var missing *errors.MissingExportsError
		if _, err := run(context.Background(), cfg, nil); !stderrors.As(err, &missing) {
			t.Errorf("expected MissingExportsError, got %v", err)
		}
	})

	t.Run("corrupt document", func(t *testing.T) {
		cfg := localConfig(t, []byte("not a pdf at all"))
		if _, err := run(context.Background(), cfg, nil); !errors.IsKind(err, errors.KindConstructionFailed) {
			t.Errorf("expected construction_failed, got %v", err)
		}
	})
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	in := &Report{
		Input:     "doc.pdf",
		Pages:     3,
		Page:      &PageReport{Index: 1, Objects: map[string]int{"text": 2}},
		Resources: ResourceReport{Created: 4, Disposed: 4},
	}
	if err := writeReport(path, in); err != nil {
		t.Fatalf("writeReport failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	if out["input"] != "doc.pdf" || out["pages"] != float64(3) {
		t.Errorf("report = %v", out)
	}
	if _, ok := out["render"]; ok {
		t.Error("nil render should be omitted")
	}
}
