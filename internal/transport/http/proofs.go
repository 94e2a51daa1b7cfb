package http

import (
	"net/http"

	"quest-board-service/internal/infra/memory"
)

// ProofFiles serves artifacts kept by the in-memory store under GET /proofs/.
// Bucket-backed deployments hand out bucket URLs instead.
func ProofFiles(store *memory.ArtifactStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		obj, ok := store.Get(r.PathValue("path"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		// Uploaded content types are client supplied; never let them run as active content.
		w.Header().Set("Content-Type", obj.ContentType)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Content-Security-Policy", "sandbox")
		_, _ = w.Write(obj.Data)
	}
}
