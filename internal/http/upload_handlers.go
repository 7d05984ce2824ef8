package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/beachhouses/CuppaChat-KDJK/internal/store"
	"github.com/beachhouses/CuppaChat-KDJK/pkg/metrics"
)

type UploadAPI struct {
	Store    *store.Uploads
	MaxBytes int64
}

// Upload accepts one multipart file under the "file" field and returns the
// stored location. The client echoes the url back inside a "file" chat
// event; the relay itself never validates the bytes.
func (a *UploadAPI) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxBytes)

	f, hdr, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field required", http.StatusBadRequest)
		return
	}
	defer f.Close()

	up, err := a.Store.Save(f, hdr.Filename, hdr.Header.Get("Content-Type"))
	if err != nil {
		http.Error(w, "store failed", http.StatusInternalServerError)
		return
	}

	metrics.UploadsTotal.Inc()
	writeJSON(w, up)
}

// send JSON with proper headers
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
