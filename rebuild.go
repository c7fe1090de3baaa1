package framecomp

import "sync/atomic"

// RebuildState tracks whether the swapchain-dependent objects must be
// recreated. Resize events and shader reloads mark it from any goroutine;
// the render loop checks it before each frame.
type RebuildState struct {
	requested  atomic.Uint64
	satisfied  atomic.Uint64
	generation atomic.Uint64
}

// MarkResized requests a rebuild before the next frame.
func (r *RebuildState) MarkResized() {
	r.requested.Add(1)
}

// NeedsRebuild reports whether a request arrived after the last
// successful rebuild.
func (r *RebuildState) NeedsRebuild() bool {
	return r.requested.Load() > r.satisfied.Load()
}

// Generation counts successful rebuilds.
func (r *RebuildState) Generation() uint64 {
	return r.generation.Load()
}

// Rebuild runs fn and, when it succeeds, clears the requests seen before
// fn started. Requests made while fn runs stay pending. A failing fn
// leaves the flag set so the next frame retries.
func (r *RebuildState) Rebuild(fn func() error) error {
	seen := r.requested.Load()
	if err := fn(); err != nil {
		return err
	}
	for {
		cur := r.satisfied.Load()
		if cur >= seen || r.satisfied.CompareAndSwap(cur, seen) {
			break
		}
	}
	r.generation.Add(1)
	return nil
}
