// Command lidarodometry wires a Config, a file-backed ScanSource/MapperSink
// pair, and a Pipeline together into a runnable program, per the module's
// cmd/ convention of a small main that assembles library pieces rather than
// implementing anything itself.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edaniels/golog"

	"github.com/viamlidar/lidarodometry/config"
	"github.com/viamlidar/lidarodometry/pipeline"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file")
	scanDir := flag.String("scan-dir", "", "directory of PCD sweeps to replay")
	outDir := flag.String("out-dir", ".", "directory to write odometry feature clouds to")
	flag.Parse()

	logger := golog.NewDevelopmentLogger("lidarodometry")

	if err := run(*configPath, *scanDir, *outDir, logger); err != nil {
		logger.Fatalw("lidarodometry exited with an error", "error", err)
	}
}

func run(configPath, scanDir, outDir string, logger golog.Logger) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	source, err := pipeline.NewFileScanSource(scanDir, time.Duration(cfg.ScanPeriod*float64(time.Second)))
	if err != nil {
		return err
	}
	sink := pipeline.NewFileMapperSink(outDir)

	p, err := pipeline.New(logger, cfg, source, sink)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p.Start(ctx)
	defer p.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	return nil
}
