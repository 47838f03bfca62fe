// Package bench measures the cost of the derivation on a fixed-size pool.
package bench

import (
	"context"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wskdf/internal/kdf"
	"wskdf/internal/search"
)

// preimageBits is the size of the throwaway preimage derived over and over.
const preimageBits = 32

type Config struct {
	Iterations int // per thread
	Threads    int
	Params     kdf.Params
	Deriver    search.Deriver
	Logger     *zap.Logger
}

type Result struct {
	RunID           string
	Threads         int
	TotalIterations int
	Elapsed         time.Duration
	MemAllocMB      float64
}

// AvgSecs is the wall time per derivation across all threads.
func (r Result) AvgSecs() float64 {
	return r.Elapsed.Seconds() / float64(r.TotalIterations)
}

func (r Result) DerivationsPerSecond() float64 {
	return float64(r.TotalIterations) / r.Elapsed.Seconds()
}

// ThreadAvgSecs is how long one thread takes per derivation. This is the
// figure estimates are built on.
func (r Result) ThreadAvgSecs() float64 {
	return r.Elapsed.Seconds() / float64(r.TotalIterations/r.Threads)
}

func (r Result) ThreadDerivationsPerSecond() float64 {
	return float64(r.TotalIterations/r.Threads) / r.Elapsed.Seconds()
}

// Run derives Iterations*Threads keys from one random preimage and a zero
// salt on a pool of Threads workers. The first derivation error aborts it.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.Iterations < 1 {
		return Result{}, errors.New("iterations must be > 0")
	}
	if cfg.Threads < 1 {
		return Result{}, errors.Wrapf(search.ErrInvalidThreads, "got %d", cfg.Threads)
	}
	if cfg.Deriver == nil {
		cfg.Deriver = kdf.Argon2id{}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	space, err := search.NewSpace(preimageBits)
	if err != nil {
		return Result{}, err
	}
	preimage := space.Random(search.NewSecureRand())
	var salt kdf.Salt

	res := Result{RunID: uuid.NewString(), Threads: cfg.Threads, TotalIterations: cfg.Iterations * cfg.Threads}
	log.Info("starting benchmark",
		zap.String("run_id", res.RunID),
		zap.Int("iterations", cfg.Iterations),
		zap.Int("threads", cfg.Threads))

	runtime.GC()
	var startMem runtime.MemStats
	runtime.ReadMemStats(&startMem)
	begin := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Threads)
	for range res.TotalIterations {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if _, err := cfg.Deriver.Derive(preimage, salt, cfg.Params); err != nil {
				return errors.Wrap(err, "key derivation failed")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, errors.Wrap(err, "benchmark interrupted")
	}

	res.Elapsed = time.Since(begin)
	var endMem runtime.MemStats
	runtime.ReadMemStats(&endMem)
	res.MemAllocMB = float64(endMem.TotalAlloc-startMem.TotalAlloc) / (1024 * 1024)
	return res, nil
}
