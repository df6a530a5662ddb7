// Package scan walks a directory of photographs in batches and classifies each
// file. It holds no TensorFlow code so it can be tested on its own.
package scan

import (
	"bytes"
	"context"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sdeoras/cropguard/recommend"
)

// Result is one line of the job output.
type Result struct {
	Filename       string                   `json:"filename"`
	FileSize       uint64                   `json:"filesize"`
	FileIOTime     time.Duration            `json:"fileiotime"`
	ComputeTime    time.Duration            `json:"computetime"`
	Recommendation recommend.Recommendation `json:"recommendation"`
}

// Recommender is the part of recommend.Pipeline the scanner needs.
type Recommender interface {
	Decode(r io.Reader) (image.Image, error)
	Recommend(ctx context.Context, img image.Image) (recommend.Recommendation, error)
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

// Files lists the image files directly under inputDir in name order.
func Files(inputDir string) ([]string, error) {
	var tokens []string

	files, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, err
	}

	for _, f := range files {
		if !f.IsDir() && imageExts[strings.ToLower(filepath.Ext(f.Name()))] {
			tokens = append(tokens, f.Name())
		}
	}
	sort.Strings(tokens)

	return tokens, nil
}

// Batch returns the i-th batch of size n, empty when past the end.
func Batch(filenames []string, i, n int) []string {
	start := i * n
	if start >= len(filenames) {
		return nil
	}
	end := start + n
	if end > len(filenames) {
		end = len(filenames)
	}
	return filenames[start:end]
}

// Classify reads, decodes and classifies one file.
func Classify(ctx context.Context, r Recommender, fileName string) (*Result, error) {
	tLoop := time.Now()
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	fileIOTime := time.Since(tLoop)

	tLoop = time.Now()
	img, err := r.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	rec, err := r.Recommend(ctx, img)
	if err != nil {
		return nil, err
	}

	return &Result{
		Filename:       filepath.Base(fileName),
		FileSize:       uint64(len(data)),
		FileIOTime:     fileIOTime,
		ComputeTime:    time.Since(tLoop),
		Recommendation: rec,
	}, nil
}
