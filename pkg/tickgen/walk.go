package tickgen

// randomWalk is the value stream of a generator: unpaced, finite, private state.
type randomWalk struct {
	price float64
	steps int
	done  bool
	cfg   Config
	rand  Rand
}

func newRandomWalk(cfg Config, rnd Rand) *randomWalk {
	return &randomWalk{price: cfg.StartPrice, cfg: cfg, rand: rnd}
}

// next returns the current price and advances the walk. ok is false once the
// walk has ended; the sample that crossed the ceiling is still returned.
func (w *randomWalk) next() (price float64, ok bool) {
	if w.done {
		return 0, false
	}
	if w.cfg.MaxSteps > 0 && w.steps >= w.cfg.MaxSteps {
		w.done = true
		return 0, false
	}

	price = w.price
	w.steps++
	if price > w.cfg.Ceiling {
		w.done = true
		return price, true
	}
	w.price += w.delta()
	return price, true
}

// delta is uniform on [MinDelta, MaxDelta)
func (w *randomWalk) delta() float64 {
	return w.cfg.MinDelta + w.rand.Float64()*(w.cfg.MaxDelta-w.cfg.MinDelta)
}
