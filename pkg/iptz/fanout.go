package iptz

import (
	"context"
	"sync"
	"time"
)

// fanOut launches one bounded fetch per registered provider and returns a
// channel of outcomes in completion order. The channel is buffered to the
// provider count so abandoned fetches can always deposit their outcome and
// exit; it is closed once every provider has reported. The caller is free to
// stop reading at any point — cancelling ctx aborts whatever is still in
// flight.
func (r *Resolver) fanOut(ctx context.Context, ip string, timeout time.Duration) <-chan outcome {
	out := make(chan outcome, len(r.providers))

	var wg sync.WaitGroup
	for _, provider := range r.providers {
		wg.Add(1)
		go func(p Provider) {
			defer wg.Done()
			out <- r.fetch(ctx, p, ip, timeout)
		}(provider)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
