package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sdeoras/cropguard/apps/batch-scan/scan"
	"github.com/sdeoras/cropguard/config"
	"github.com/sirupsen/logrus"
)

func run() error {
	t0 := time.Now()
	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	cfg.ApplyLogLevel()

	if *jobID == "default" {
		*jobID = uuid.New().String()
		logrus.Info("using job id:", *jobID)
	}

	pipeline, closeModel, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeModel()

	filenames, err := scan.Files(*inDir)
	if err != nil {
		return err
	}

	var b bytes.Buffer
	bw := bufio.NewWriter(&b)
	enc := json.NewEncoder(bw)

	// loop over number of batches
	for i := 0; i < *numBatches; i++ {
		batch := scan.Batch(filenames, i, *batchSize)
		if len(batch) == 0 {
			break
		}

		logrus.Info("computing batch: ", i, ", images: ", len(batch))
		t := time.Now()
		for _, name := range batch {
			res, err := scan.Classify(ctx, pipeline, filepath.Join(*inDir, name))
			if err != nil {
				logrus.WithField("file", name).Error(err)
				continue
			}
			if err := enc.Encode(res); err != nil {
				logrus.WithField("file", name).Error("error in json encoding: ", err)
				continue
			}
		}
		logrus.Info("looping over images took: ", time.Since(t), ", for jobID: ", *jobID, ", batch: ", i)
	}

	// output
	timeStamp := strconv.FormatInt(time.Now().UnixNano(), 16)
	dirName := filepath.Join(*outDir, *jobID)
	fileName := filepath.Join(dirName, *jobID+"_"+timeStamp+".json")

	if err := os.MkdirAll(dirName, 0755); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if jb := b.Bytes(); len(jb) > 0 {
		if err := os.WriteFile(fileName, jb, 0644); err != nil {
			return err
		}
		logrus.Info("writing output: ", fileName)
	}

	// all done
	logrus.Info("all done: ", time.Since(t0))
	return nil
}
