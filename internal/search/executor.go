// Package search enumerates a bounded preimage space and finds the preimage
// whose derived key an external verifier accepts.
package search

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mrand "math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wskdf/internal/kdf"
)

var (
	ErrInvalidThreads = errors.New("threads must be > 0")
	ErrDerivation     = errors.New("key derivation failed")
)

// Deriver is the expensive derivation primitive.
type Deriver interface {
	Derive(preimage kdf.Preimage, salt kdf.Salt, params kdf.Params) (kdf.Key, error)
}

// Verifier accepts or rejects a derived key. It must be safe for concurrent use.
type Verifier interface {
	Verify(ctx context.Context, key kdf.Key) bool
}

type DeriverFunc func(kdf.Preimage, kdf.Salt, kdf.Params) (kdf.Key, error)

func (f DeriverFunc) Derive(p kdf.Preimage, s kdf.Salt, params kdf.Params) (kdf.Key, error) {
	return f(p, s, params)
}

type VerifierFunc func(context.Context, kdf.Key) bool

func (f VerifierFunc) Verify(ctx context.Context, key kdf.Key) bool { return f(ctx, key) }

// SeedSource returns seeds for the walk start offset and the per-worker
// generators. Inject a deterministic one to reproduce a search.
type SeedSource func() uint64

// CryptoSeeds seeds from the operating system's entropy source.
func CryptoSeeds() uint64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

type Strategy int

const (
	// StrategyWalk visits every candidate once, striped across workers.
	StrategyWalk Strategy = iota
	// StrategyRandom samples independently per worker with no upper bound.
	StrategyRandom
)

func (s Strategy) String() string {
	switch s {
	case StrategyWalk:
		return "walk"
	case StrategyRandom:
		return "random"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "walk", "systematic":
		return StrategyWalk, nil
	case "random":
		return StrategyRandom, nil
	}
	return 0, errors.Errorf("unknown strategy %q (want walk or random)", s)
}

type Request struct {
	Space    Space
	Salt     kdf.Salt
	Params   kdf.Params
	Threads  int
	Strategy Strategy
	Deriver  Deriver
	Verifier Verifier
	Seeds    SeedSource
	Logger   *zap.Logger
}

func (r Request) validate() error {
	if r.Space.Size() == 0 {
		return errors.Wrap(ErrInvalidBits, "search space not initialised")
	}
	if r.Threads < 1 {
		return errors.Wrapf(ErrInvalidThreads, "got %d", r.Threads)
	}
	if r.Deriver == nil || r.Verifier == nil {
		return errors.New("search needs a deriver and a verifier")
	}
	if r.Strategy != StrategyWalk && r.Strategy != StrategyRandom {
		return errors.Errorf("unknown strategy %v", r.Strategy)
	}
	return nil
}

type Outcome int

const (
	Aborted Outcome = iota
	Found
	Exhausted
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case Exhausted:
		return "exhausted"
	default:
		return "aborted"
	}
}

type Match struct {
	Preimage kdf.Preimage
	Key      kdf.Key
}

type Result struct {
	Outcome  Outcome
	Match    Match
	Attempts uint64
	Elapsed  time.Duration
}

// DerivationError reports the candidate whose derivation failed.
type DerivationError struct {
	Preimage kdf.Preimage
	Err      error
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("%v for preimage %s: %v", ErrDerivation, e.Preimage, e.Err)
}

func (e *DerivationError) Unwrap() error { return e.Err }

func (e *DerivationError) Is(target error) bool { return target == ErrDerivation }

type searcher struct {
	req      Request
	log      *zap.Logger
	cancel   context.CancelFunc
	match    atomic.Pointer[Match]
	attempts atomic.Uint64
}

// Run searches req.Space until a worker's verifier accepts a key, the walk
// runs out of candidates, a derivation fails or ctx is cancelled.
//
// Workers check for cancellation before each candidate; derivations and
// verifications already in flight run to completion.
func Run(ctx context.Context, req Request) (Result, error) {
	if err := req.validate(); err != nil {
		return Result{Outcome: Aborted}, err
	}
	if req.Logger == nil {
		req.Logger = zap.NewNop()
	}
	if req.Seeds == nil {
		req.Seeds = CryptoSeeds
	}

	begin := time.Now()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := &searcher{req: req, log: req.Logger, cancel: cancel}
	g, gctx := errgroup.WithContext(runCtx)

	switch req.Strategy {
	case StrategyWalk:
		walk := req.Space.Walk(req.Seeds())
		s.log.Info("starting parallel search",
			zap.Stringer("strategy", req.Strategy),
			zap.Int("threads", req.Threads),
			zap.Int("n_bits", req.Space.Bits()),
			zap.Uint64("start", walk.Start()))
		for w := range req.Threads {
			g.Go(func() error { return s.walk(gctx, walk, uint64(w)) })
		}
	case StrategyRandom:
		s.log.Info("starting parallel search",
			zap.Stringer("strategy", req.Strategy),
			zap.Int("threads", req.Threads),
			zap.Int("n_bits", req.Space.Bits()))
		for range req.Threads {
			r := mrand.New(mrand.NewPCG(req.Seeds(), req.Seeds()))
			g.Go(func() error { return s.sample(gctx, r) })
		}
	}

	err := g.Wait()
	res := Result{Attempts: s.attempts.Load(), Elapsed: time.Since(begin)}
	switch m := s.match.Load(); {
	case m != nil:
		res.Outcome = Found
		res.Match = *m
		return res, nil
	case err != nil:
		return res, err
	case ctx.Err() != nil:
		return res, errors.Wrap(ctx.Err(), "search interrupted")
	}
	res.Outcome = Exhausted
	return res, nil
}

// walk visits indices w, w+threads, w+2*threads, ... of the shared walk.
func (s *searcher) walk(ctx context.Context, walk Walk, w uint64) error {
	size, step := s.req.Space.Size(), uint64(s.req.Threads)
	for i := w; i < size; i += step {
		if ctx.Err() != nil {
			return nil
		}
		if err := s.try(ctx, walk.At(i)); err != nil {
			return err
		}
	}
	return nil
}

func (s *searcher) sample(ctx context.Context, r *mrand.Rand) error {
	for ctx.Err() == nil {
		if err := s.try(ctx, s.req.Space.Random(r)); err != nil {
			return err
		}
	}
	return nil
}

func (s *searcher) try(ctx context.Context, p kdf.Preimage) error {
	s.log.Debug("deriving key", zap.Stringer("preimage", p))
	key, err := s.req.Deriver.Derive(p, s.req.Salt, s.req.Params)
	s.attempts.Add(1)
	if err != nil {
		return &DerivationError{Preimage: p, Err: err}
	}
	if !s.req.Verifier.Verify(ctx, key) {
		return nil
	}
	if s.match.CompareAndSwap(nil, &Match{Preimage: p, Key: key}) {
		s.log.Info("verifier accepted key", zap.Stringer("preimage", p))
		s.cancel()
	}
	return nil
}
