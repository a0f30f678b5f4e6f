// Command graph-convert turns an osmnx node-link JSON export into the GOB or
// SQLite network format the route server loads at startup.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/stockholm-raps/RouteServer/graphs_go"
	"github.com/stockholm-raps/RouteServer/utils"
)

func main() {
	output := flag.String("o", "", "output file (.gob, .db or .sqlite); defaults to <input>.gob")
	level := flag.String("log-level", "info", "log level")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: graph-convert [-o output] <input.json>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger, err := utils.NewLogger("development", *level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	start := time.Now()
	out, g, err := graphs_go.ConvertNetwork(ctx, flag.Arg(0), *output)
	if err != nil {
		logger.Fatal("Conversion failed", zap.String("input", flag.Arg(0)), zap.Error(err))
	}
	logger.Info("Network converted",
		zap.String("input", flag.Arg(0)),
		zap.String("output", out),
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", g.EdgeCount()),
		zap.Duration("took", time.Since(start)),
	)
}
