package recommend

import (
	"context"
	"image"
	"io"

	"github.com/google/uuid"
	"github.com/sdeoras/cropguard/advisor"
	"github.com/sdeoras/cropguard/classifier"
	"github.com/sdeoras/cropguard/metrics"
	"github.com/sdeoras/cropguard/perf"
	"github.com/sdeoras/cropguard/preprocess"
	"github.com/sdeoras/cropguard/resolve"
	"github.com/sirupsen/logrus"
)

type requestIDKey struct{}

// WithRequestID attaches a caller supplied request id to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}

// Pipeline runs image -> tensor -> scores -> label -> advice for one engine.
// A nil Preprocessor or Advisor falls back to the package defaults.
type Pipeline struct {
	Preprocessor *preprocess.Preprocessor
	Engine       *classifier.Engine
	Advisor      *advisor.Advisor
	Metrics      *metrics.Recorder

	// TopK is the length of the ranked list, 0 disables it.
	TopK int
}

func (p *Pipeline) preprocessor() *preprocess.Preprocessor {
	if p.Preprocessor == nil {
		return preprocess.Default
	}
	return p.Preprocessor
}

// Decode reads an encoded image within the preprocessor's size limit.
func (p *Pipeline) Decode(r io.Reader) (image.Image, error) {
	return p.preprocessor().Decode(r)
}

// Recommend classifies img and returns the treatment recommendation. ctx carries
// request metadata only; the call always runs to completion.
func (p *Pipeline) Recommend(ctx context.Context, img image.Image) (Recommendation, error) {
	id := requestID(ctx)
	log := logrus.WithField("requestID", id)

	tensor, err := p.preprocessor().Normalize(img)
	if err != nil {
		p.Metrics.Failure(ctx, "preprocess")
		log.Error("preprocess: ", err)
		return Recommendation{}, err
	}

	scores, latency, err := p.Engine.Infer(tensor)
	if err != nil {
		p.Metrics.Failure(ctx, "inference")
		log.Error("inference: ", err)
		return Recommendation{}, err
	}

	set := p.Engine.Labels()
	result, err := resolve.Resolve(set, scores)
	if err != nil {
		p.Metrics.Failure(ctx, "resolve")
		log.Error("resolve: ", err)
		return Recommendation{}, err
	}

	metric := perf.Estimate(latency)
	adv := p.Advisor
	if adv == nil {
		adv = advisor.Default()
	}
	protocol := adv.Advise(result.Label)

	rec, err := Assemble(result, metric, protocol)
	if err != nil {
		p.Metrics.Failure(ctx, "assemble")
		log.Error("assemble: ", err)
		return Recommendation{}, err
	}
	rec.RequestID = id
	if p.TopK > 0 {
		rec.Ranked = resolve.TopK(set, scores, p.TopK)
	}

	p.Metrics.Recommendation(ctx, string(result.Label), protocol.Status.String(), latency, metric.SpeedupRatio)
	log.WithFields(logrus.Fields{
		"label":      result.Label,
		"confidence": result.Confidence,
		"latencyMs":  latency,
		"speedup":    metric.SpeedupRatio,
		"authority":  protocol.Authority,
	}).Info("recommendation")

	return rec, nil
}
