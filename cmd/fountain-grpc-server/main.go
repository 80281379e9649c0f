package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/observe-l/fountain/internal/env"
	"github.com/observe-l/fountain/internal/sim"
)

func main() {
	var (
		addr = flag.String("addr", ":50051", "gRPC listen address")
	)
	flag.Parse()

	mgr := sim.NewNetemManager()
	defer mgr.Cleanup()

	srv := env.NewEnvServer(mgr)

	grpcServer := grpc.NewServer()
	registerEnv(grpcServer, srv)

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "listen: %v\n", err)
		os.Exit(1)
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		grpcServer.GracefulStop()
	}()

	fmt.Printf("experiment server on %s\n", *addr)
	if err := grpcServer.Serve(lis); err != nil {
		fmt.Fprintf(os.Stderr, "serve: %v\n", err)
		os.Exit(1)
	}
}
