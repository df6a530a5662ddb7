package main

import (
	"context"

	"github.com/sdeoras/cropguard/config"
	"github.com/sdeoras/cropguard/loader"
	"github.com/sdeoras/cropguard/recommend"
	"github.com/sdeoras/cropguard/tfmodel"
	"github.com/sirupsen/logrus"
)

// newPipeline loads the model once; a load failure ends the run.
func newPipeline(ctx context.Context, cfg *config.Config) (*recommend.Pipeline, func(), error) {
	set, err := loader.Labels(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	adv, err := loader.Advisor(cfg)
	if err != nil {
		return nil, nil, err
	}

	model, err := tfmodel.Load(ctx, tfmodel.Options{
		Location: cfg.Model.Location,
		InputOp:  cfg.Model.InputOp,
		OutputOp: cfg.Model.OutputOp,
	})
	if err != nil {
		return nil, nil, err
	}

	closeModel := func() {
		if err := model.Close(); err != nil {
			logrus.Error("closing session: ", err)
		}
	}

	pipeline, err := loader.Pipeline(cfg, model, set, adv)
	if err != nil {
		closeModel()
		return nil, nil, err
	}
	return pipeline, closeModel, nil
}
