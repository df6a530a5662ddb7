// Package loader builds the label set, rule table and pipeline described by a
// config.Config. Model loading stays with the caller.
package loader

import (
	"context"

	"github.com/sdeoras/cropguard/advisor"
	"github.com/sdeoras/cropguard/asset"
	"github.com/sdeoras/cropguard/classifier"
	"github.com/sdeoras/cropguard/config"
	"github.com/sdeoras/cropguard/labels"
	"github.com/sdeoras/cropguard/metrics"
	"github.com/sdeoras/cropguard/preprocess"
	"github.com/sdeoras/cropguard/recommend"
	"github.com/sirupsen/logrus"
)

// Labels reads the configured label file, or returns labels.Default.
func Labels(ctx context.Context, cfg *config.Config) (labels.Set, error) {
	if cfg.Model.Labels == "" {
		return labels.Default, nil
	}

	rc, err := asset.Open(ctx, cfg.Model.Labels)
	if err != nil {
		return labels.Set{}, err
	}
	defer rc.Close()

	return labels.Read(rc)
}

// Advisor reads the configured rule table, or returns advisor.Default.
func Advisor(cfg *config.Config) (*advisor.Advisor, error) {
	if cfg.Rules == "" {
		return advisor.Default(), nil
	}
	return advisor.LoadFile(cfg.Rules)
}

// Pipeline pairs a loaded model with everything else cfg describes.
func Pipeline(cfg *config.Config, model classifier.Model, set labels.Set, adv *advisor.Advisor) (*recommend.Pipeline, error) {
	pre, err := preprocess.New(cfg.Preprocess.Mean, cfg.Preprocess.Scale)
	if err != nil {
		return nil, err
	}
	pre.MaxPixels = cfg.Preprocess.MaxPixels

	engine, err := classifier.NewEngine(model, set)
	if err != nil {
		return nil, err
	}

	recorder, err := metrics.New(nil)
	if err != nil {
		return nil, err
	}

	logrus.WithField("labels", set.Len()).
		WithField("rules", len(adv.Rules())).
		Info("classification enabled")

	return &recommend.Pipeline{
		Preprocessor: pre,
		Engine:       engine,
		Advisor:      adv,
		Metrics:      recorder,
		TopK:         cfg.TopK,
	}, nil
}
