package landmark

// DefaultSmoothing is the weight given to the previous smoothed frame.
const DefaultSmoothing = 0.6

// Smoother blends each raw frame with the previous smoothed frame to damp
// detector jitter. It is not safe for concurrent use; one pipeline owns it.
type Smoother struct {
	alpha    float64
	previous Set
}

// NewSmoother creates a smoother with the given history weight in [0, 1].
// Out-of-range values fall back to DefaultSmoothing.
func NewSmoother(alpha float64) *Smoother {
	if alpha < 0 || alpha > 1 {
		alpha = DefaultSmoothing
	}
	return &Smoother{alpha: alpha}
}

// Apply returns the smoothed version of raw and remembers it for the next call.
// The first frame, and any frame whose length differs from the previous one,
// passes through unchanged.
func (s *Smoother) Apply(raw Set) Set {
	out := Smooth(raw, s.previous, s.alpha)
	s.previous = out
	return out.Clone()
}

// Reset forgets the smoothing history, e.g. when the exercise changes.
func (s *Smoother) Reset() {
	s.previous = nil
}

// Previous returns a copy of the last smoothed frame, or nil.
func (s *Smoother) Previous() Set {
	return s.previous.Clone()
}

// Smooth computes alpha*previous + (1-alpha)*raw point by point. When previous
// is empty or has a different length, a copy of raw is returned.
func Smooth(raw, previous Set, alpha float64) Set {
	if len(previous) == 0 || len(previous) != len(raw) {
		return raw.Clone()
	}
	out := make(Set, len(raw))
	for i, now := range raw {
		prev := previous[i]
		out[i] = Point{
			X: alpha*prev.X + (1-alpha)*now.X,
			Y: alpha*prev.Y + (1-alpha)*now.Y,
		}
	}
	return out
}
