package courier

import (
	"context"
	"math"
	"sync"
	"time"

	da "github.com/lintang-b-s/streetmap/pkg/datastructure"
	"github.com/lintang-b-s/streetmap/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTimeBudget     = 45 * time.Second
	DefaultCoolingRate    = 0.975
	DefaultMinTemperature = 1e-3
	DefaultSwapAttempts   = 64

	// improvementFlushWait bounds how long Optimize waits past its deadline for the improvement handler.
	improvementFlushWait = 50 * time.Millisecond
)

// PerturbFunc proposes two interior positions of c to swap. ok is false when no legal swap was found.
type PerturbFunc func(c *Candidate, rng *rand.Rand) (i, j int, ok bool)

// AcceptFunc decides whether a move that changes the route cost by delta is taken at temperature.
type AcceptFunc func(delta, temperature float64, rng *rand.Rand) bool

// RandomLegalSwap draws random position pairs until one keeps the route legal, giving up after attempts
// draws.
func RandomLegalSwap(attempts int) PerturbFunc {
	return func(c *Candidate, rng *rand.Rand) (int, int, bool) {
		interior := c.Len() - 2
		if interior < 2 {
			return 0, 0, false
		}
		for a := 0; a < attempts; a++ {
			i := 1 + rng.Intn(interior)
			j := 1 + rng.Intn(interior)
			if i == j {
				continue
			}
			if i > j {
				i, j = j, i
			}
			if c.SwapIsLegal(i, j) {
				return i, j, true
			}
		}
		return 0, 0, false
	}
}

// MetropolisAccept always takes improving moves and takes a worsening move with probability
// exp(-delta/temperature).
func MetropolisAccept(delta, temperature float64, rng *rand.Rand) bool {
	if delta < 0 {
		return true
	}
	if temperature <= 0 || math.IsInf(delta, 1) {
		return false
	}
	return rng.Float64() < math.Exp(-delta/temperature)
}

// HillClimbAccept only takes strictly improving moves.
func HillClimbAccept(delta, _ float64, _ *rand.Rand) bool {
	return delta < 0
}

type Config struct {
	// TimeBudget bounds the whole optimization. Zero with MaxIterations > 0 means no wall-clock limit.
	TimeBudget time.Duration
	// InitialTemperature <= 0 derives it from the mean leg time of the starting route.
	InitialTemperature float64
	CoolingRate        float64
	// MinTemperature triggers a reheat from the best route found so far.
	MinTemperature float64
	// MovesPerTemperature <= 0 uses the number of movable stops.
	MovesPerTemperature int
	// MaxIterations caps the number of temperature steps per chain; zero means unlimited.
	MaxIterations int
	Parallel      bool
	Seed          uint64
}

func DefaultConfig() Config {
	return Config{
		TimeBudget:     DefaultTimeBudget,
		CoolingRate:    DefaultCoolingRate,
		MinTemperature: DefaultMinTemperature,
		Seed:           1,
	}
}

func (c Config) normalize() Config {
	if c.TimeBudget <= 0 && c.MaxIterations <= 0 {
		c.TimeBudget = DefaultTimeBudget
	}
	if c.CoolingRate <= 0 || c.CoolingRate >= 1 {
		c.CoolingRate = DefaultCoolingRate
	}
	if c.MinTemperature <= 0 {
		c.MinTemperature = DefaultMinTemperature
	}
	return c
}

// Improvement is reported every time the overall best route gets cheaper.
type Improvement struct {
	Chain   int
	Cost    float64
	Route   Route
	Elapsed time.Duration
}

type Stats struct {
	Chains       int
	Iterations   int
	Proposals    int
	Accepted     int
	Improvements int
	Reheats      int
}

func (s *Stats) add(o Stats) {
	s.Iterations += o.Iterations
	s.Proposals += o.Proposals
	s.Accepted += o.Accepted
	s.Improvements += o.Improvements
	s.Reheats += o.Reheats
}

type Result struct {
	Route       Route
	Cost        float64
	InitialCost float64
	Stats       Stats
}

type AnnealerOption func(*Annealer)

func WithPerturbFunc(f PerturbFunc) AnnealerOption {
	return func(a *Annealer) { a.perturb = f }
}

func WithAcceptFunc(f AcceptFunc) AnnealerOption {
	return func(a *Annealer) { a.accept = f }
}

func WithClock(now func() time.Time) AnnealerOption {
	return func(a *Annealer) { a.now = now }
}

// WithImprovementHandler receives every new overall best route, in order, on a goroutine of its own.
func WithImprovementHandler(f func(Improvement)) AnnealerOption {
	return func(a *Annealer) { a.onImprovement = f }
}

// WithTimeBudget overrides Config.TimeBudget. Non-positive budgets are ignored.
func WithTimeBudget(budget time.Duration) AnnealerOption {
	return func(a *Annealer) {
		if budget > 0 {
			a.cfg.TimeBudget = budget
		}
	}
}

// Annealer improves legal courier routes by simulated annealing over legal pairwise swaps. One chain runs
// per starting route; chains either share the time budget in turn or run concurrently.
type Annealer struct {
	cfg           Config
	perturb       PerturbFunc
	accept        AcceptFunc
	now           func() time.Time
	onImprovement func(Improvement)
	logger        *zap.Logger

	mu        sync.Mutex
	start     time.Time
	bestCost  float64
	bestRoute Route
	feed      *improvementFeed
}

func NewAnnealer(cfg Config, logger *zap.Logger, opts ...AnnealerOption) *Annealer {
	a := &Annealer{
		cfg:     cfg.normalize(),
		perturb: RandomLegalSwap(DefaultSwapAttempts),
		accept:  MetropolisAccept,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Optimize anneals every route in initial and returns the cheapest legal route seen. initial must hold at
// least one legal, finite-cost route.
//
// The improvement handler runs on its own goroutine. Optimize waits for it to drain, but never longer than
// a short grace period past the deadline; a handler that is still busy then may run after Optimize returns
// and gets no further events.
func (a *Annealer) Optimize(ctx context.Context, m *TravelTimeMatrix, p *Problem, initial []Route) Result {
	a.start = a.now()
	a.bestCost = math.Inf(1)
	a.bestRoute = nil
	a.feed = nil
	if a.onImprovement != nil {
		a.feed = newImprovementFeed(a.onImprovement)
	}

	var deadline time.Time
	if a.cfg.TimeBudget > 0 {
		deadline = a.start.Add(a.cfg.TimeBudget)
	}

	res := Result{Cost: math.Inf(1), InitialCost: math.Inf(1)}
	for _, r := range initial {
		if c := RouteCost(m, r); c < res.InitialCost {
			res.InitialCost = c
			res.Route = r.Clone()
			res.Cost = c
		}
	}
	a.report(0, res.Route, res.Cost)

	chains := make([]chainResult, len(initial))
	if a.cfg.Parallel && len(initial) > 1 {
		var g errgroup.Group
		for idx := range initial {
			idx := idx
			g.Go(func() error {
				chains[idx] = a.runChain(ctx, m, p, idx, initial[idx], deadline)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for idx := range initial {
			chainDeadline := deadline
			if !deadline.IsZero() {
				remaining := deadline.Sub(a.now())
				chainDeadline = a.now().Add(remaining / time.Duration(len(initial)-idx))
			}
			chains[idx] = a.runChain(ctx, m, p, idx, initial[idx], chainDeadline)
		}
	}

	res.Stats.Chains = len(chains)
	for _, c := range chains {
		res.Stats.add(c.stats)
		if c.cost < res.Cost {
			res.Cost = c.cost
			res.Route = c.route
		}
	}

	if res.Route != nil {
		util.AssertPanic(p.ValidateRoute(res.Route), "annealed courier route breaks pickup and drop-off order")
	}
	a.flushImprovements(ctx, deadline)

	a.logger.Debug("courier route annealed",
		zap.Float64("initial_cost", res.InitialCost),
		zap.Float64("best_cost", res.Cost),
		zap.Int("chains", res.Stats.Chains),
		zap.Int("iterations", res.Stats.Iterations),
		zap.Int("accepted", res.Stats.Accepted),
		zap.Int("reheats", res.Stats.Reheats),
		zap.Duration("took", a.now().Sub(a.start)))
	return res
}

type chainResult struct {
	route Route
	cost  float64
	stats Stats
}

func (a *Annealer) runChain(ctx context.Context, m *TravelTimeMatrix, p *Problem, idx int, start Route,
	deadline time.Time) chainResult {
	rng := rand.New(rand.NewSource(a.cfg.Seed + uint64(idx)))
	cand := newCandidate(p, start)

	curr := RouteCost(m, start)
	best := chainResult{route: start.Clone(), cost: curr}

	moves := a.cfg.MovesPerTemperature
	if moves <= 0 {
		moves = cand.Len() - 2
	}

	t0 := a.cfg.InitialTemperature
	if t0 <= 0 {
		t0 = 1
		if legs := cand.Len() - 1; legs > 0 && curr > 0 {
			t0 = curr / float64(legs)
		}
	}
	temperature := t0

	for iter := 0; a.cfg.MaxIterations <= 0 || iter < a.cfg.MaxIterations; iter++ {
		if util.StopConcurrentOperation(ctx) || (!deadline.IsZero() && !a.now().Before(deadline)) {
			break
		}
		best.stats.Iterations++

		for k := 0; k < moves; k++ {
			i, j, ok := a.perturb(cand, rng)
			best.stats.Proposals++
			if !ok {
				continue
			}
			delta := cand.swapDelta(m, i, j)
			if !a.accept(delta, temperature, rng) {
				continue
			}
			cand.swap(i, j)
			curr += delta
			best.stats.Accepted++

			if curr < best.cost {
				// recompute to keep rounding drift out of the reported cost
				exact := RouteCost(m, cand.stops)
				curr = exact
				if da.Lt(exact, best.cost) {
					best.cost = exact
					best.route = cand.Route()
					best.stats.Improvements++
					a.report(idx, best.route, best.cost)
				}
			}
		}

		temperature *= a.cfg.CoolingRate
		if temperature < a.cfg.MinTemperature {
			temperature = t0
			if route, cost := a.globalBest(); route != nil && da.Lt(cost, best.cost) {
				best.route, best.cost = route, cost
			}
			cand.reset(best.route)
			curr = best.cost
			best.stats.Reheats++
		}
	}
	return best
}

func (a *Annealer) report(chain int, r Route, cost float64) {
	if r == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if !da.Lt(cost, a.bestCost) {
		return
	}
	a.bestCost = cost
	a.bestRoute = r.Clone()
	if a.feed != nil {
		a.feed.push(Improvement{Chain: chain, Cost: cost, Route: r.Clone(), Elapsed: a.now().Sub(a.start)})
	}
}

// globalBest returns a copy of the cheapest route reported by any chain.
func (a *Annealer) globalBest() (Route, float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bestRoute == nil {
		return nil, math.Inf(1)
	}
	return a.bestRoute.Clone(), a.bestCost
}

func (a *Annealer) flushImprovements(ctx context.Context, deadline time.Time) {
	if a.feed == nil {
		return
	}
	a.feed.close()

	if deadline.IsZero() {
		select {
		case <-a.feed.done:
		case <-ctx.Done():
			a.feed.discard()
		}
		return
	}

	wait := improvementFlushWait
	if remaining := deadline.Sub(a.now()); remaining > 0 {
		wait += remaining
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-a.feed.done:
	case <-ctx.Done():
		a.feed.discard()
	case <-timer.C:
		a.feed.discard()
		a.logger.Debug("courier improvement handler did not keep up, dropping pending improvements")
	}
}
