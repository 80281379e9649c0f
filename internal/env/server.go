package env

import (
	"context"
	"errors"
	"io"
	"math/rand"

	"github.com/observe-l/fountain/fec"
	"github.com/observe-l/fountain/internal/dropper"
	"github.com/observe-l/fountain/internal/sim"
)

// Experiment environment for driving fountain-code loss experiments. The
// gRPC surface is registered separately so this package compiles without
// generated protos; the types below stand in for the generated messages.

type Netem interface {
	Apply(*sim.Scenario) error
	Update(*sim.Scenario) error
	Cleanup() error
}

// ExperimentConfig selects the live channel impairment and the codec
// geometry used for in-process trials.
type ExperimentConfig struct {
	Net        sim.Scenario
	BlockCount int
	BlockBytes int
	Seed       int64
}

// Observation reports the state of the last trial.
type Observation struct {
	TrialsRun int
	LastOK    bool
}

// StepRequest asks for one trial at the given loss rate; zero means the
// configured scenario's rate.
type StepRequest struct {
	LossRate float64
}

// StepMetrics carries the outcome of one decode trial.
type StepMetrics struct {
	SymbolsSent int
	SymbolsLost int
	SymbolsFed  int
	Overhead    int // symbols beyond the block count the decoder needed
	Decoded     bool
}

type StepResponse struct {
	Obs     Observation
	Reward  float64
	Done    bool
	Metrics StepMetrics
}

// EnvServer applies channel scenarios and runs codec trials against them.
type EnvServer struct {
	netem  Netem
	cfg    *ExperimentConfig
	rng    *rand.Rand
	trials int
	lastOK bool
}

func NewEnvServer(netem Netem) *EnvServer { return &EnvServer{netem: netem} }

func (s *EnvServer) Configure(ctx context.Context, cfg *ExperimentConfig) error {
	if cfg.Net.Dev != "" {
		if err := s.netem.Apply(&cfg.Net); err != nil {
			return err
		}
	}
	if cfg.BlockCount == 0 {
		cfg.BlockCount = 256
	}
	if cfg.BlockBytes == 0 {
		cfg.BlockBytes = 1200
	}
	if fec.NextSupportedBlockCount(cfg.BlockCount) != cfg.BlockCount {
		return errors.New("env: block count not in codec schedule")
	}
	s.cfg = cfg
	s.rng = rand.New(rand.NewSource(cfg.Seed))
	return nil
}

func (s *EnvServer) Reset(ctx context.Context) (*Observation, error) {
	if s.cfg != nil && s.cfg.Net.Dev != "" {
		if err := s.netem.Update(&s.cfg.Net); err != nil {
			return nil, err
		}
	}
	s.trials = 0
	s.lastOK = false
	return &Observation{}, nil
}

// step runs one in-process encode/loss/decode trial.
func (s *EnvServer) step(req *StepRequest) StepMetrics {
	k := s.cfg.BlockCount
	b := s.cfg.BlockBytes

	loss := req.LossRate
	if loss <= 0 {
		loss = float64(s.cfg.Net.LossRate)
	}

	msg := make([]byte, k*b)
	s.rng.Read(msg)

	var metrics StepMetrics
	enc, err := fec.NewEncoder(msg, b)
	if err != nil {
		return metrics
	}
	dec, err := fec.NewDecoder(len(msg), b)
	if err != nil {
		return metrics
	}

	drop := dropper.NewBernoulli(loss, s.rng)
	block := make([]byte, b)
	for id := uint32(0); int(id) < 2*k+64; id++ {
		metrics.SymbolsSent++
		enc.Encode(id, block)
		if drop.Drop() {
			metrics.SymbolsLost++
			continue
		}
		metrics.SymbolsFed++
		done, err := dec.AddBlock(id, block)
		if err != nil {
			return metrics
		}
		if done {
			metrics.Decoded = true
			metrics.Overhead = metrics.SymbolsFed - k
			break
		}
	}
	return metrics
}

// Rollout drives trials over a bidirectional stream until the client closes.
func (s *EnvServer) Rollout(streamRecv func() (*StepRequest, error), streamSend func(*StepResponse) error) error {
	if s.cfg == nil {
		return errors.New("env: not configured")
	}
	for {
		req, err := streamRecv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		m := s.step(req)
		s.trials++
		s.lastOK = m.Decoded

		reward := -1.0
		if m.Decoded {
			// Fewer overhead symbols is better.
			reward = 1.0 / float64(1+m.Overhead)
		}
		resp := &StepResponse{
			Obs:     Observation{TrialsRun: s.trials, LastOK: s.lastOK},
			Reward:  reward,
			Metrics: m,
		}
		if err := streamSend(resp); err != nil {
			return err
		}
	}
}
