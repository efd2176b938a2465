package tracking

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/campaign-tracker/internal/domain"
)

// 1x1 transparent GIF, 43 bytes. Served for every open callback no matter
// what the tracking outcome was.
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
	0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21,
	0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00,
	0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44,
	0x01, 0x00, 0x3b,
}

// Handler serves the public tracking endpoints.
type Handler struct {
	recorder *Recorder
}

// NewHandler creates a tracking HTTP handler.
func NewHandler(recorder *Recorder) *Handler {
	return &Handler{recorder: recorder}
}

// Routes returns the tracking router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/track/open/{trackingID}", h.HandleOpen)
	r.Get("/track/click/{trackingID}", h.HandleClick)
	r.Get("/health", h.HandleHealth)
	return r
}

// HandleOpen records an open and serves the pixel. The pixel is served even
// when the tracking identifier matches nothing.
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	trackingID := chi.URLParam(r, "trackingID")

	h.recorder.RecordOpen(r.Context(), trackingID, clientInfo(r))

	h.servePixel(w)
}

// HandleClick records a click and redirects to the original link target.
func (h *Handler) HandleClick(w http.ResponseWriter, r *http.Request) {
	trackingID := chi.URLParam(r, "trackingID")
	rawURL := r.URL.Query().Get("url")

	target := h.recorder.RecordClick(r.Context(), trackingID, rawURL, clientInfo(r))

	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) servePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Write(pixelGIF)
}

func clientInfo(r *http.Request) domain.ClientInfo {
	return domain.ClientInfo{
		IPAddress: realIP(r),
		UserAgent: r.UserAgent(),
	}
}

func realIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
