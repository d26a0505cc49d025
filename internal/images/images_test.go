package images

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/image/bmp"

	"github.com/jackzampolin/ieltsmeta/internal/testutil"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	return img
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage()); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestInspect(t *testing.T) {
	pngData := encodePNG(t)

	var bmpBuf bytes.Buffer
	if err := bmp.Encode(&bmpBuf, testImage()); err != nil {
		t.Fatalf("bmp.Encode: %v", err)
	}

	tests := []struct {
		name       string
		data       []byte
		maxBytes   int
		maxPixels  int
		wantFormat string
		wantErr    error
		wantAnyErr bool
	}{
		{name: "png", data: pngData, wantFormat: "png"},
		{name: "bmp", data: bmpBuf.Bytes(), wantFormat: "bmp"},
		{name: "empty", data: nil, wantErr: ErrEmpty},
		{name: "too large", data: pngData, maxBytes: 10, wantErr: ErrTooLarge},
		{name: "too many pixels", data: pngData, maxPixels: 11, wantErr: ErrTooManyPixels},
		{name: "oversized header", data: testutil.PNGHeader(30000, 30000), wantErr: ErrTooManyPixels},
		{name: "text", data: []byte("definitely not an image"), wantAnyErr: true},
		{name: "truncated png", data: pngData[:len(pngData)/2], wantAnyErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Inspect(tt.data, tt.maxBytes, tt.maxPixels)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Inspect() error = %v, want %v", err, tt.wantErr)
				}
				return
			case tt.wantAnyErr:
				if err == nil {
					t.Fatal("Inspect() error = nil, want error")
				}
				return
			case err != nil:
				t.Fatalf("Inspect() error = %v", err)
			}

			if info.Format != tt.wantFormat {
				t.Errorf("Format = %q, want %q", info.Format, tt.wantFormat)
			}
			if info.Width != 4 || info.Height != 3 {
				t.Errorf("size = %dx%d, want 4x3", info.Width, info.Height)
			}
			if info.Bytes != len(tt.data) {
				t.Errorf("Bytes = %d, want %d", info.Bytes, len(tt.data))
			}
			if got := info.MediaType(); got != "image/"+tt.wantFormat {
				t.Errorf("MediaType() = %q", got)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"https://example.com/chart.png", false},
		{"http://localhost:8080/a.jpg", false},
		{"", true},
		{"not a url", true},
		{"ftp://example.com/chart.png", true},
		{"/relative/path.png", true},
		{"https://", true},
	}
	for _, tt := range tests {
		_, err := ValidateURL(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidURL) {
			t.Errorf("ValidateURL(%q) error = %v, want ErrInvalidURL", tt.in, err)
		}
	}
}

func TestFetcher_Fetch(t *testing.T) {
	pngData := encodePNG(t)

	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			w.Write(pngData)
		}))
		defer server.Close()

		f := NewFetcher(FetcherConfig{Delay: time.Millisecond})
		got, err := f.Fetch(context.Background(), server.URL+"/chart.png")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if !bytes.Equal(got, pngData) {
			t.Errorf("Fetch() returned %d bytes, want %d", len(got), len(pngData))
		}
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write(pngData)
		}))
		defer server.Close()

		f := NewFetcher(FetcherConfig{Delay: time.Millisecond})
		if _, err := f.Fetch(context.Background(), server.URL); err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if got := calls.Load(); got != 3 {
			t.Errorf("calls = %d, want 3", got)
		}
	})

	t.Run("does not retry not found", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.NotFound(w, r)
		}))
		defer server.Close()

		f := NewFetcher(FetcherConfig{Delay: time.Millisecond})
		_, err := f.Fetch(context.Background(), server.URL)

		var serr *StatusError
		if !errors.As(err, &serr) || serr.StatusCode != http.StatusNotFound {
			t.Fatalf("Fetch() error = %v, want StatusError 404", err)
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("calls = %d, want 1", got)
		}
	})

	t.Run("size limit", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write(pngData)
		}))
		defer server.Close()

		f := NewFetcher(FetcherConfig{Delay: time.Millisecond, MaxBytes: 8})
		if _, err := f.Fetch(context.Background(), server.URL); !errors.Is(err, ErrTooLarge) {
			t.Errorf("Fetch() error = %v, want ErrTooLarge", err)
		}
	})

	t.Run("invalid url", func(t *testing.T) {
		f := NewFetcher(FetcherConfig{})
		if _, err := f.Fetch(context.Background(), "file:///etc/passwd"); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("Fetch() error = %v, want ErrInvalidURL", err)
		}
	})
}
