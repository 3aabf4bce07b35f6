package routing

import (
	"fmt"
	"log/slog"
	"path"

	"github.com/verifiq/invoice-verifier/internal/objectstore"
	"github.com/verifiq/invoice-verifier/internal/rules"
)

// Destination describes where routed documents land.
type Destination struct {
	Bucket string

	// KeyPrefix, when set, routes objects under prefix + source base name
	// (e.g. "approved/"). When empty the source key is preserved.
	KeyPrefix string
}

func (d Destination) keyFor(source objectstore.Location) string {
	if d.KeyPrefix == "" {
		return source.Key
	}
	return d.KeyPrefix + path.Base(source.Key)
}

// Router copies source documents to the approved or denied destination
// matching a verdict. The source object is never mutated; the copy is not
// retried internally.
type Router struct {
	store    objectstore.Store
	approved Destination
	denied   Destination
}

// NewRouter creates a new Router instance
func NewRouter(store objectstore.Store, approved, denied Destination) *Router {
	return &Router{
		store:    store,
		approved: approved,
		denied:   denied,
	}
}

// Route copies the source object to the destination matching the verdict
// and returns the resulting location
func (r *Router) Route(verdict rules.Verdict, source objectstore.Location) (objectstore.Location, error) {
	dest := r.denied
	if verdict.Passed {
		dest = r.approved
	}

	target := objectstore.Location{
		Bucket: dest.Bucket,
		Key:    dest.keyFor(source),
	}
	if err := r.store.Copy(source.Bucket, source.Key, target.Bucket, target.Key); err != nil {
		return objectstore.Location{}, fmt.Errorf("routing document to %s: %w", target.URI(), err)
	}

	slog.Info("Routed document", "passed", verdict.Passed, "source", source.URI(), "destination", target.URI())

	return target, nil
}
