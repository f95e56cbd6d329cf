package registry

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/shubham-shewale/tickstream/pkg/tickgen"
)

var ErrInvalidArgument = errors.New("invalid argument")

// SequenceFactory builds the tick sequence for one ticker.
type SequenceFactory interface {
	Generate(ticker string) tickgen.Sequence
}

// binding is immutable; Subscribe swaps in a new one.
type binding struct {
	seq     tickgen.Sequence
	tickers []string
}

func (b *binding) extend(ticker string, seq tickgen.Sequence) *binding {
	tickers := make([]string, len(b.tickers), len(b.tickers)+1)
	copy(tickers, b.tickers)
	return &binding{
		seq:     tickgen.Merge(b.seq, seq),
		tickers: append(tickers, ticker),
	}
}

// Registry maps client ids to the merged sequence of every ticker they have
// subscribed to. Entries only grow: there is no unsubscribe, so an entry
// lives as long as the Registry.
type Registry struct {
	clients sync.Map // clientID -> *binding
	gen     SequenceFactory
	logger  *zap.Logger
}

func New(gen SequenceFactory, logger *zap.Logger) *Registry {
	return &Registry{gen: gen, logger: logger}
}

// Subscribe merges a fresh sequence for ticker into the client's binding.
// Calls for the same client never lose each other's tickers; calls for
// different clients do not contend. Subscribing twice to one ticker merges
// two independent sequences.
func (r *Registry) Subscribe(clientID, ticker string) error {
	if clientID == "" {
		return fmt.Errorf("%w: empty client id", ErrInvalidArgument)
	}
	if ticker == "" {
		return fmt.Errorf("%w: empty ticker", ErrInvalidArgument)
	}

	fresh := r.gen.Generate(ticker)

	v, _ := r.clients.LoadOrStore(clientID, &binding{seq: tickgen.Empty()})
	for {
		cur := v.(*binding)
		if r.clients.CompareAndSwap(clientID, cur, cur.extend(ticker, fresh)) {
			r.logger.Debug("Client subscribed",
				zap.String("client", clientID),
				zap.String("ticker", ticker),
				zap.Int("streams", len(cur.tickers)+1))
			return nil
		}
		// lost a race with another Subscribe for this client; retry on its result
		v, _ = r.clients.Load(clientID)
	}
}

// StreamFor returns the client's sequence as bound right now. Later
// subscriptions are not reflected in the returned value. Unknown clients get
// an empty sequence.
func (r *Registry) StreamFor(clientID string) tickgen.Sequence {
	v, ok := r.clients.Load(clientID)
	if !ok {
		return tickgen.Empty()
	}
	return v.(*binding).seq
}

// Tickers lists the client's subscriptions in order, duplicates included.
func (r *Registry) Tickers(clientID string) []string {
	v, ok := r.clients.Load(clientID)
	if !ok {
		return nil
	}
	tickers := v.(*binding).tickers
	out := make([]string, len(tickers))
	copy(out, tickers)
	return out
}

// Len is the number of known clients.
func (r *Registry) Len() int {
	n := 0
	r.clients.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
