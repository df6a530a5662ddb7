// Package service implements the cropguard gRPC service on top of a
// recommendation pipeline.
package service

import (
	"bytes"
	"context"
	"errors"

	"github.com/sdeoras/cropguard/advisor"
	"github.com/sdeoras/cropguard/classifier"
	"github.com/sdeoras/cropguard/labels"
	"github.com/sdeoras/cropguard/preprocess"
	"github.com/sdeoras/cropguard/proto"
	"github.com/sdeoras/cropguard/recommend"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Server implements proto.CropsServer.
type Server struct {
	pipeline *recommend.Pipeline
	loadErr  error
	labels   labels.Set
	advisor  *advisor.Advisor
}

// New serves classification through pipeline.
func New(pipeline *recommend.Pipeline, adv *advisor.Advisor) *Server {
	if adv == nil {
		adv = advisor.Default()
	}
	return &Server{
		pipeline: pipeline,
		labels:   pipeline.Engine.Labels(),
		advisor:  adv,
	}
}

// Disabled serves labels and advice only; Classify reports loadErr.
func Disabled(loadErr error, set labels.Set, adv *advisor.Advisor) *Server {
	return &Server{loadErr: loadErr, labels: set, advisor: adv}
}

func (s *Server) Classify(ctx context.Context, in *wrapperspb.BytesValue) (*structpb.Struct, error) {
	if s.pipeline == nil {
		return nil, status.Errorf(codes.FailedPrecondition, "classification disabled: %v", s.loadErr)
	}

	img, err := s.pipeline.Decode(bytes.NewReader(in.GetValue()))
	if err != nil {
		s.pipeline.Metrics.Failure(ctx, "decode")
		logrus.WithField("signal", "classify").Warn(err)
		return nil, toStatus(err)
	}

	rec, err := s.pipeline.Recommend(withRequestID(ctx), img)
	if err != nil {
		return nil, toStatus(err)
	}

	out, err := proto.FromRecommendation(rec)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *Server) Labels(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	logrus.WithField("signal", "labels").
		WithField("count", s.labels.Len()).
		Info("listing labels")

	values := make([]interface{}, 0, s.labels.Len())
	for _, l := range s.labels.Strings() {
		values = append(values, l)
	}
	out, err := structpb.NewList(values)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *Server) Advise(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	if in.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "label is required")
	}

	p := s.advisor.Advise(labels.Label(in.GetValue()))
	logrus.WithField("signal", "advise").
		WithField("label", in.GetValue()).
		WithField("authority", p.Authority).
		Info("advice")

	out, err := proto.FromProtocol(p)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// withRequestID copies the caller's request id, if any, from the incoming metadata.
func withRequestID(ctx context.Context) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx
	}
	if ids := md.Get(proto.RequestIDHeader); len(ids) > 0 {
		return recommend.WithRequestID(ctx, ids[0])
	}
	return ctx
}

func toStatus(err error) error {
	var (
		invalid *preprocess.InvalidImageError
		load    *classifier.ModelLoadError
	)

	switch {
	case errors.As(err, &invalid):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &load):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	// shape mismatches, non-finite scores and empty vectors mean a broken model
	return status.Error(codes.Internal, err.Error())
}
