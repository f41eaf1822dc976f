package sentry

import (
	"sync"

	"crashgate/internal/models"
)

const defaultMaxBreadcrumbs = 100

// breadcrumbRing keeps the most recent breadcrumbs, oldest first.
type breadcrumbRing struct {
	mu    sync.Mutex
	items []models.Breadcrumb
	head  int
	count int
}

func newBreadcrumbRing(size int) *breadcrumbRing {
	if size <= 0 {
		size = defaultMaxBreadcrumbs
	}
	return &breadcrumbRing{items: make([]models.Breadcrumb, size)}
}

func (r *breadcrumbRing) Add(b models.Breadcrumb) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[r.head] = b
	r.head = (r.head + 1) % len(r.items)
	if r.count < len(r.items) {
		r.count++
	}
}

// Snapshot returns the buffered breadcrumbs in chronological order.
func (r *breadcrumbRing) Snapshot() []models.Breadcrumb {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return nil
	}
	out := make([]models.Breadcrumb, r.count)
	start := 0
	if r.count == len(r.items) {
		start = r.head
	}
	for i := 0; i < r.count; i++ {
		out[i] = r.items[(start+i)%len(r.items)]
	}
	return out
}
