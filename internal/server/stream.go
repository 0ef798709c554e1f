package server

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ayusman/trainiq/internal/app"
	"github.com/ayusman/trainiq/internal/transport"
)

// StreamHandler serves annotated frames from the app's frame loop as MJPEG.
type StreamHandler struct {
	app     *app.App
	encoder transport.Encoder
	log     *slog.Logger
}

// NewStreamHandler creates a StreamHandler. MJPEG parts are always JPEG,
// whatever format enc is configured with.
func NewStreamHandler(a *app.App, enc transport.Encoder, log *slog.Logger) *StreamHandler {
	enc.Format = transport.FormatJPEG
	return &StreamHandler{app: a, encoder: enc, log: log}
}

// ServeHTTP streams MJPEG frames until the client disconnects.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id, updates := h.app.Subscribe()
	defer h.app.Unsubscribe(id)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	var buf bytes.Buffer
	for {
		select {
		case <-r.Context().Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if u.Err != nil || u.Result.Image == nil {
				continue
			}

			buf.Reset()
			if err := h.encoder.Encode(&buf, u.Result.Image); err != nil {
				h.log.Debug("mjpeg encode", "err", err)
				continue
			}

			fmt.Fprintf(w, "--frame\r\n")
			fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
			fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", buf.Len())
			if _, err := w.Write(buf.Bytes()); err != nil {
				return
			}
			fmt.Fprintf(w, "\r\n")

			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}
