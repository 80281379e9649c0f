package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/observe-l/fountain/fountainudp"
)

func main() {
	var (
		addr        = flag.String("addr", ":4747", "UDP listen address")
		out         = flag.String("out", ".", "output directory")
		name        = flag.String("name", "fountain_recv.bin", "output file name")
		timeout     = flag.Duration("timeout", 2*time.Minute, "receive deadline")
		metricsAddr = flag.String("metrics", "", "serve Prometheus metrics on this address (empty disables)")
	)
	flag.Parse()

	reg := prometheus.NewRegistry()
	metrics := fountainudp.NewMetrics(reg)

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
			}
		}()
	}

	conn, err := net.ListenPacket("udp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "listen: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	fmt.Printf("listening on %s\n", conn.LocalAddr())
	path, err := fountainudp.ReceiveFile(conn, *out, *name, metrics, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "receive failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", path)
}
