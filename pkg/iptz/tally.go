package iptz

// tally accumulates provider votes for one resolution call. It is mutated by
// exactly one consumer goroutine, which is what keeps the majority check free
// of races; it is discarded when the call returns.
type tally struct {
	counts     map[string]int
	reps       map[string]Location
	order      []string
	registered int
	majority   int
	responded  int
}

func newTally(registered int) *tally {
	return &tally{
		counts:     make(map[string]int),
		reps:       make(map[string]Location),
		registered: registered,
		majority:   (registered + 1) / 2,
	}
}

// add records one outcome. It returns a result and true the moment any
// identifier reaches majority: counts are monotonic, so no later vote can
// overturn a reached threshold and consumption can stop immediately. Absent
// outcomes count as responses but carry no vote.
func (t *tally) add(oc outcome) (*Result, bool) {
	t.responded++
	if !oc.observed() {
		return nil, false
	}

	if _, seen := t.counts[oc.timezone]; !seen {
		t.order = append(t.order, oc.timezone)
		// first-seen representative wins; later duplicates never overwrite
		t.reps[oc.timezone] = oc.geo
	}
	t.counts[oc.timezone]++

	if t.counts[oc.timezone] >= t.majority {
		return t.result(oc.timezone), true
	}
	return nil, false
}

// finish produces the plurality decision once the outcome stream is exhausted
// or the total deadline has fired. Ties break toward the identifier first
// seen in arrival order — that order depends on network timing and carries no
// reliability signal. Returns nil when no provider ever voted.
func (t *tally) finish() *Result {
	var winner string
	best := 0
	for _, tz := range t.order {
		if t.counts[tz] > best {
			winner = tz
			best = t.counts[tz]
		}
	}
	if winner == "" {
		return nil
	}
	return t.result(winner)
}

func (t *tally) result(tz string) *Result {
	return &Result{
		Timezone:   tz,
		Location:   t.reps[tz],
		Method:     "consensus",
		Confidence: float64(t.counts[tz]) / float64(t.registered),
		Agreement:  t.counts[tz],
		Responded:  t.responded,
		Providers:  t.registered,
	}
}
