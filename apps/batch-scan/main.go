package main

import (
	"flag"
	"log"

	"github.com/sirupsen/logrus"
)

var (
	configPath *string
	inDir      *string
	outDir     *string
	jobID      *string
	batchSize  *int
	numBatches *int
)

func main() {
	// flag management
	configPath = flag.String("config", "", "yaml config file")
	inDir = flag.String("input-dir", "/tf/images", "input dir")
	outDir = flag.String("out-dir", "/tf/out", "output dir")
	jobID = flag.String("job-id", "default", "job id")
	batchSize = flag.Int("batch-size", 100, "batch size")
	numBatches = flag.Int("num-batches", 25, "number of batches to run")
	flag.Parse()

	if *batchSize <= 0 {
		logrus.Fatal("--batch-size has to be a positive integer")
	}
	if *numBatches <= 0 {
		logrus.Fatal("--num-batches has to be a positive integer")
	}

	if err := run(); err != nil {
		log.Fatal(err)
	}
}
