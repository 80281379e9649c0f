package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/francoispqt/gojay"
	"github.com/xssnick/raptorq"
	"golang.org/x/sync/errgroup"

	"github.com/observe-l/fountain/fec"
	"github.com/observe-l/fountain/internal/dropper"
)

// fountain-eval sweeps loss rates over the fountain codec and a RaptorQ
// baseline, measuring decode success, symbol overhead and wall time.

type trialKey struct {
	Scheme string
	K      int
	Loss   float64
}

type agg struct {
	Trials    int
	Decoded   int
	Overhead  int // sum of symbols fed beyond K on success
	EncodeDur time.Duration
	DecodeDur time.Duration
}

// aggRow is the exported form of one aggregate, streamed as JSON lines.
type aggRow struct {
	Scheme       string
	K            int
	BlockBytes   int
	Loss         float64
	Trials       int
	DecodedRate  float64
	MeanOverhead float64
	EncodeMs     float64
	DecodeMs     float64
}

func (r *aggRow) MarshalJSONObject(enc *gojay.Encoder) {
	enc.AddStringKey("scheme", r.Scheme)
	enc.AddIntKey("k", r.K)
	enc.AddIntKey("block_bytes", r.BlockBytes)
	enc.AddFloat64Key("loss", r.Loss)
	enc.AddIntKey("trials", r.Trials)
	enc.AddFloat64Key("decoded_rate", r.DecodedRate)
	enc.AddFloat64Key("mean_overhead", r.MeanOverhead)
	enc.AddFloat64Key("encode_ms", r.EncodeMs)
	enc.AddFloat64Key("decode_ms", r.DecodeMs)
}

func (r *aggRow) IsNil() bool { return r == nil }

type trialResult struct {
	decoded  bool
	overhead int
	encDur   time.Duration
	decDur   time.Duration
}

func fountainTrial(k, b int, loss float64, rng *rand.Rand) trialResult {
	msg := make([]byte, k*b)
	rng.Read(msg)

	var res trialResult
	t0 := time.Now()
	enc, err := fec.NewEncoder(msg, b)
	if err != nil {
		return res
	}
	res.encDur = time.Since(t0)

	dec, err := fec.NewDecoder(len(msg), b)
	if err != nil {
		return res
	}

	drop := dropper.NewBernoulli(loss, rng)
	block := make([]byte, b)
	fed := 0
	t1 := time.Now()
	for id := uint32(0); int(id) < 2*k+64; id++ {
		enc.Encode(id, block)
		if drop.Drop() {
			continue
		}
		fed++
		done, err := dec.AddBlock(id, block)
		if err != nil {
			return res
		}
		if done {
			res.decoded = true
			res.overhead = fed - k
			break
		}
	}
	res.decDur = time.Since(t1)
	return res
}

func raptorqTrial(k, b int, loss float64, rng *rand.Rand) trialResult {
	msg := make([]byte, k*b)
	rng.Read(msg)

	var res trialResult
	rq := raptorq.NewRaptorQ(uint32(b))

	t0 := time.Now()
	enc, err := rq.CreateEncoder(msg)
	if err != nil {
		return res
	}
	res.encDur = time.Since(t0)

	dec, err := rq.CreateDecoder(uint32(len(msg)))
	if err != nil {
		return res
	}
	need := int(dec.FastSymbolsNumRequired())

	drop := dropper.NewBernoulli(loss, rng)
	fed := 0
	t1 := time.Now()
	for id := uint32(0); int(id) < 2*k+64; id++ {
		sym := enc.GenSymbol(id)
		if drop.Drop() {
			continue
		}
		if _, err := dec.AddSymbol(id, sym); err != nil {
			continue
		}
		fed++
		if fed < need {
			continue
		}
		ok, _, err := dec.Decode()
		if err == nil && ok {
			res.decoded = true
			res.overhead = fed - need
			break
		}
	}
	res.decDur = time.Since(t1)
	return res
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func main() {
	var (
		kList    = flag.String("k", "64,256,1024", "block counts to sweep")
		block    = flag.Int("b", 1200, "bytes per block")
		lossList = flag.String("loss", "0.01,0.05,0.1,0.2", "loss rates to sweep")
		trials   = flag.Int("trials", 20, "trials per point")
		workers  = flag.Int("workers", 4, "parallel trial workers")
		seed     = flag.Int64("seed", 1, "base RNG seed")
		csvPath  = flag.String("csv", "", "write aggregate CSV here")
		jsonPath = flag.String("json", "", "write aggregate JSON lines here")
		schemes  = flag.String("schemes", "fountain,raptorq", "schemes to run")
	)
	flag.Parse()

	ks, err := parseInts(*kList)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad -k: %v\n", err)
		os.Exit(2)
	}
	losses, err := parseFloats(*lossList)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad -loss: %v\n", err)
		os.Exit(2)
	}

	for _, k := range ks {
		if fec.NextSupportedBlockCount(k) != k {
			fmt.Fprintf(os.Stderr, "K=%d is not in the codec schedule\n", k)
			os.Exit(2)
		}
	}

	var mu sync.Mutex
	results := make(map[trialKey]*agg)

	var g errgroup.Group
	g.SetLimit(*workers)

	for _, scheme := range strings.Split(*schemes, ",") {
		scheme = strings.TrimSpace(scheme)
		for _, k := range ks {
			for _, loss := range losses {
				scheme, k, loss := scheme, k, loss
				g.Go(func() error {
					rng := rand.New(rand.NewSource(*seed + int64(k)*1000003 + int64(loss*1e6)))
					a := &agg{}
					for i := 0; i < *trials; i++ {
						var res trialResult
						switch scheme {
						case "fountain":
							res = fountainTrial(k, *block, loss, rng)
						case "raptorq":
							res = raptorqTrial(k, *block, loss, rng)
						default:
							return fmt.Errorf("unknown scheme %q", scheme)
						}
						a.Trials++
						if res.decoded {
							a.Decoded++
							a.Overhead += res.overhead
						}
						a.EncodeDur += res.encDur
						a.DecodeDur += res.decDur
					}
					mu.Lock()
					results[trialKey{Scheme: scheme, K: k, Loss: loss}] = a
					mu.Unlock()
					return nil
				})
			}
		}
	}

	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "eval failed: %v\n", err)
		os.Exit(1)
	}

	keys := make([]trialKey, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Scheme != b.Scheme {
			return a.Scheme < b.Scheme
		}
		if a.K != b.K {
			return a.K < b.K
		}
		return a.Loss < b.Loss
	})

	rows := make([]aggRow, 0, len(keys))
	for _, k := range keys {
		a := results[k]
		row := aggRow{
			Scheme:     k.Scheme,
			K:          k.K,
			BlockBytes: *block,
			Loss:       k.Loss,
			Trials:     a.Trials,
			EncodeMs:   float64(a.EncodeDur.Milliseconds()) / float64(a.Trials),
			DecodeMs:   float64(a.DecodeDur.Milliseconds()) / float64(a.Trials),
		}
		if a.Trials > 0 {
			row.DecodedRate = float64(a.Decoded) / float64(a.Trials)
		}
		if a.Decoded > 0 {
			row.MeanOverhead = float64(a.Overhead) / float64(a.Decoded)
		}
		rows = append(rows, row)
		fmt.Printf("%-9s K=%-6d loss=%.3f decoded=%.2f overhead=%.2f enc=%.1fms dec=%.1fms\n",
			row.Scheme, row.K, row.Loss, row.DecodedRate, row.MeanOverhead, row.EncodeMs, row.DecodeMs)
	}

	if *csvPath != "" {
		if err := writeCSV(*csvPath, rows); err != nil {
			fmt.Fprintf(os.Stderr, "csv: %v\n", err)
			os.Exit(1)
		}
	}
	if *jsonPath != "" {
		if err := writeJSONLines(*jsonPath, rows); err != nil {
			fmt.Fprintf(os.Stderr, "json: %v\n", err)
			os.Exit(1)
		}
	}
}

func writeCSV(path string, rows []aggRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"scheme", "k", "block_bytes", "loss", "trials",
		"decoded_rate", "mean_overhead", "encode_ms", "decode_ms"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Scheme,
			strconv.Itoa(r.K),
			strconv.Itoa(r.BlockBytes),
			strconv.FormatFloat(r.Loss, 'f', -1, 64),
			strconv.Itoa(r.Trials),
			strconv.FormatFloat(r.DecodedRate, 'f', 4, 64),
			strconv.FormatFloat(r.MeanOverhead, 'f', 3, 64),
			strconv.FormatFloat(r.EncodeMs, 'f', 2, 64),
			strconv.FormatFloat(r.DecodeMs, 'f', 2, 64),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

func writeJSONLines(path string, rows []aggRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for i := range rows {
		b, err := gojay.MarshalJSONObject(&rows[i])
		if err != nil {
			return err
		}
		if _, err := f.Write(append(b, '\n')); err != nil {
			return err
		}
	}
	return nil
}
