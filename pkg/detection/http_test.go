package detection

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/teslashibe/go-posegame/pkg/landmark"
)

func newPoseService(t *testing.T, healthy bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/detect", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if r.Header.Get("Content-Type") != "image/jpeg" || len(body) == 0 {
			http.Error(w, "bad frame", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(Result{
			Landmarks:   []landmark.Normalized{{X: 0.5, Y: 0.5}},
			ImageWidth:  640,
			ImageHeight: 480,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPDetector_Detect(t *testing.T) {
	srv := newPoseService(t, true)
	d, err := NewHTTPDetector(t.Context(), HTTPConfig{URL: srv.URL + "/", Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewHTTPDetector: %v", err)
	}
	if !d.Ready() {
		t.Fatal("detector should be ready")
	}

	res, err := d.Detect(t.Context(), []byte{0xff, 0xd8})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if res.Skeleton != SkeletonTracked {
		t.Errorf("Skeleton = %q, want default %q", res.Skeleton, SkeletonTracked)
	}
	if res.Timestamp.IsZero() {
		t.Error("Timestamp should be filled in")
	}
	px := res.Pixels()
	if len(px) != 1 || px[0].X != 320 || px[0].Y != 240 {
		t.Errorf("Pixels() = %v", px)
	}
}

func TestHTTPDetector_BadFrame(t *testing.T) {
	srv := newPoseService(t, true)
	d, err := NewHTTPDetector(t.Context(), HTTPConfig{URL: srv.URL, Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	_, err = d.Detect(t.Context(), nil)
	var de *Error
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *Error", err)
	}
}

func TestHTTPDetector_Unhealthy(t *testing.T) {
	srv := newPoseService(t, false)
	_, err := NewHTTPDetector(t.Context(), HTTPConfig{URL: srv.URL, Timeout: time.Second})
	var de *Error
	if !errors.As(err, &de) || de.Code != CodeGeneric {
		t.Fatalf("err = %v, want generic *Error", err)
	}
}

func TestHTTPDetector_Closed(t *testing.T) {
	srv := newPoseService(t, true)
	d, err := NewHTTPDetector(t.Context(), HTTPConfig{URL: srv.URL, Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	d.Close()
	if _, err := d.Detect(t.Context(), []byte{1}); !errors.Is(err, ErrNotReady) {
		t.Errorf("Detect after Close = %v, want ErrNotReady", err)
	}
}
