// Package tfmodel runs a frozen TensorFlow graph as a classifier.Model.
package tfmodel

import (
	"context"
	"fmt"

	"github.com/sdeoras/cropguard/asset"
	"github.com/sdeoras/cropguard/classifier"
	"github.com/sdeoras/cropguard/preprocess"
	"github.com/sirupsen/logrus"
	tf "github.com/tensorflow/tensorflow/tensorflow/go"
)

// Options locate the graph and name its input and output operations.
type Options struct {
	Location string
	InputOp  string
	OutputOp string
}

// Model is a loaded graph with an open session. It is read-only after Load.
type Model struct {
	graph   *tf.Graph
	session *tf.Session
	input   tf.Output
	output  tf.Output
}

// Load reads and imports the graph and starts a session. Every failure is a
// *classifier.ModelLoadError.
func Load(ctx context.Context, opts Options) (*Model, error) {
	fail := func(err error) (*Model, error) {
		return nil, &classifier.ModelLoadError{Location: opts.Location, Err: err}
	}

	logrus.WithField("location", opts.Location).Info("loading graph")
	def, err := asset.ReadAll(ctx, opts.Location)
	if err != nil {
		return fail(err)
	}

	graph := tf.NewGraph()
	if err := graph.Import(def, ""); err != nil {
		return fail(err)
	}

	in := graph.Operation(opts.InputOp)
	if in == nil {
		return fail(fmt.Errorf("graph has no operation %q", opts.InputOp))
	}
	out := graph.Operation(opts.OutputOp)
	if out == nil {
		return fail(fmt.Errorf("graph has no operation %q", opts.OutputOp))
	}

	session, err := tf.NewSession(graph, nil)
	if err != nil {
		return fail(err)
	}
	logrus.WithField("location", opts.Location).Info("graph loaded")

	return &Model{
		graph:   graph,
		session: session,
		input:   in.Output(0),
		output:  out.Output(0),
	}, nil
}

// Predict feeds t as a batch of one and returns the scores of that image.
func (m *Model) Predict(t *preprocess.Tensor) ([]float32, error) {
	tensor, err := tf.NewTensor(t.Batch())
	if err != nil {
		return nil, err
	}

	output, err := m.session.Run(
		map[tf.Output]*tf.Tensor{m.input: tensor},
		[]tf.Output{m.output},
		nil)
	if err != nil {
		return nil, err
	}

	scores, ok := output[0].Value().([][]float32)
	if !ok || len(scores) != 1 {
		return nil, fmt.Errorf("unexpected output %v of type %v", output[0].Shape(), output[0].DataType())
	}
	return scores[0], nil
}

// Close ends the session.
func (m *Model) Close() error {
	return m.session.Close()
}
