package main

import (
	"os"
	"sync"

	"github.com/goccy/go-json"

	"github.com/wippyai/pdf-runtime/errors"
	"github.com/wippyai/pdf-runtime/resource"
)

// Report is the JSON summary of one run.
type Report struct {
	Page          *PageReport    `json:"page,omitempty"`
	Render        *RenderReport  `json:"render,omitempty"`
	Input         string         `json:"input"`
	Engine        string         `json:"engine"`
	Linearization string         `json:"linearization"`
	Form          string         `json:"form"`
	Transfer      TransferReport `json:"transfer"`
	Resources     ResourceReport `json:"resources"`
	Size          int64          `json:"size"`
	Version       int            `json:"version,omitempty"`
	Pages         int            `json:"pages"`
	FirstPage     int            `json:"first_page"`
}

type PageReport struct {
	Objects     map[string]int `json:"objects"`
	Text        string         `json:"text,omitempty"`
	Annotations []AnnotReport  `json:"annotations,omitempty"`
	Index       int            `json:"index"`
	Width       float64        `json:"width"`
	Height      float64        `json:"height"`
	Rotation    int            `json:"rotation"`
	Chars       int            `json:"chars"`
}

type AnnotReport struct {
	Subtype string     `json:"subtype"`
	Rect    [4]float64 `json:"rect"`
}

type RenderReport struct {
	Status     string `json:"status"`
	Thumbnail  string `json:"thumbnail,omitempty"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Steps      int    `json:"steps"`
	DurationMS int64  `json:"duration_ms"`
}

type TransferReport struct {
	Requests int   `json:"requests"`
	Fetched  int64 `json:"fetched"`
}

type ResourceReport struct {
	Created  int `json:"created"`
	Disposed int `json:"disposed"`
	Orphaned int `json:"orphaned"`
	Live     int `json:"live"`
}

// resourceStats counts lifecycle events of one library's resource tree.
type resourceStats struct {
	mu       sync.Mutex
	created  int
	disposed int
	orphaned int
}

func (s *resourceStats) OnResourceEvent(e resource.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch e.Type {
	case resource.EventCreated:
		s.created++
	case resource.EventDisposed:
		s.disposed++
	case resource.EventOrphaned:
		s.orphaned++
	}
}

func (s *resourceStats) snapshot() ResourceReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ResourceReport{
		Created:  s.created,
		Disposed: s.disposed,
		Orphaned: s.orphaned,
		Live:     s.created - s.disposed,
	}
}

func writeReport(path string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "encode report")
	}
	data = append(data, '\n')
	if path == "" || path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
