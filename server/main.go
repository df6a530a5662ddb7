package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/sdeoras/cropguard/config"
	"github.com/sdeoras/cropguard/loader"
	"github.com/sdeoras/cropguard/proto"
	"github.com/sdeoras/cropguard/service"
	"github.com/sdeoras/cropguard/tfmodel"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

func main() {
	configPath := flag.String("config", "", "yaml config file")
	host := flag.String("host", "", "gRPC host in host:port format, overrides config")
	model := flag.String("model", "", "model location (path, gs:// or s3://), overrides config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatal(err)
	}
	if *host != "" {
		cfg.Host = *host
	}
	if *model != "" {
		cfg.Model.Location = *model
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatal(err)
	}
	cfg.ApplyLogLevel()

	ctx := context.Background()
	srv, err := newServer(ctx, cfg)
	if err != nil {
		logrus.Fatal(err)
	}

	lis, err := net.Listen("tcp", cfg.Host)
	if err != nil {
		logrus.Fatal(err)
	}
	s := grpc.NewServer()
	proto.RegisterCropsServer(s, srv)
	reflection.Register(s)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logrus.Info("listening on ", cfg.Host)
		logrus.Info("ctrl-c to exit")
		return s.Serve(lis)
	})
	g.Go(func() error {
		<-ctx.Done()
		logrus.Info("shutting down")
		s.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logrus.Fatal(err)
	}
}

// newServer wires the pipeline from cfg. A model that fails to load leaves the
// server up with classification disabled.
func newServer(ctx context.Context, cfg *config.Config) (*service.Server, error) {
	set, err := loader.Labels(ctx, cfg)
	if err != nil {
		return nil, err
	}
	adv, err := loader.Advisor(cfg)
	if err != nil {
		return nil, err
	}

	model, err := tfmodel.Load(ctx, tfmodel.Options{
		Location: cfg.Model.Location,
		InputOp:  cfg.Model.InputOp,
		OutputOp: cfg.Model.OutputOp,
	})
	if err != nil {
		logrus.WithField("location", cfg.Model.Location).
			Error("classification disabled: ", err)
		return service.Disabled(err, set, adv), nil
	}

	pipeline, err := loader.Pipeline(cfg, model, set, adv)
	if err != nil {
		return nil, err
	}
	return service.New(pipeline, adv), nil
}
