package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sdeoras/cropguard/advisor"
	"github.com/sdeoras/cropguard/proto"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type options struct {
	host    string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "cropguard",
		Short:         "Classify crop photographs and get treatment advice",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !strings.Contains(opts.host, ":") {
				return fmt.Errorf("--host requires a port number")
			}
			if opts.verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.host, "host", "0.0.0.0:7001", "grpc server host:port")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(
		newClassifyCmd(opts),
		newLabelsCmd(opts),
		newAdviseCmd(opts),
	)
	return cmd
}

// connect dials the server and runs fn with a client.
func connect(opts *options, fn func(ctx context.Context, client proto.CropsClient) error) error {
	logrus.Debug("dialing grpc server: ", opts.host)
	conn, err := grpc.NewClient(opts.host, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(context.Background(), proto.NewCropsClient(conn))
}

func newClassifyCmd(opts *options) *cobra.Command {
	var requestID string

	cmd := &cobra.Command{
		Use:   "classify IMAGE...",
		Short: "Classify one or more JPEG, PNG or WebP photographs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return connect(opts, func(ctx context.Context, client proto.CropsClient) error {
				for _, fileName := range args {
					image, err := os.ReadFile(fileName)
					if err != nil {
						return err
					}

					id := requestID
					if id == "" {
						id = uuid.New().String()
					}
					rctx := metadata.AppendToOutgoingContext(ctx, proto.RequestIDHeader, id)

					t := time.Now()
					out, err := client.Classify(rctx, wrapperspb.Bytes(image))
					if err != nil {
						return fmt.Errorf("%s: %w", fileName, err)
					}
					rec, err := proto.ToRecommendation(out)
					if err != nil {
						return err
					}
					logrus.WithField("file", fileName).
						WithField("requestID", rec.RequestID).
						Debug("classify took: ", time.Since(t))

					printRecommendation(cmd.OutOrStdout(), fileName, rec)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&requestID, "request-id", "", "request id to send, random when empty")
	return cmd
}

func newLabelsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "List the labels the server's model predicts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return connect(opts, func(ctx context.Context, client proto.CropsClient) error {
				list, err := client.Labels(ctx, &emptypb.Empty{})
				if err != nil {
					return err
				}
				for i, v := range list.GetValues() {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", i, v.GetStringValue())
				}
				return nil
			})
		},
	}
}

func newAdviseCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "advise LABEL",
		Short: "Show the treatment protocol for a label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return connect(opts, func(ctx context.Context, client proto.CropsClient) error {
				out, err := client.Advise(ctx, wrapperspb.String(args[0]))
				if err != nil {
					return err
				}
				p, err := proto.ToProtocol(out)
				if err != nil {
					return err
				}
				printProtocol(cmd.OutOrStdout(), p)
				return nil
			})
		},
	}
}

func printRecommendation(w io.Writer, fileName string, rec *proto.Recommendation) {
	fmt.Fprintf(w, "%s: %s\n", fileName, rec.Classification.Label)
	fmt.Fprintf(w, "%.1f%% Confidence\n", rec.Classification.Confidence*100)
	fmt.Fprintf(w, "Inference: %dms, simulated accelerator: %dms (%.1fx)\n",
		rec.Performance.ObservedLatencyMs, rec.Performance.EstimatedLatencyMs, rec.Performance.SpeedupRatio)
	for _, r := range rec.Ranked {
		fmt.Fprintf(w, "  %-24s %.3f\n", r.Label, r.Confidence)
	}
	fmt.Fprintln(w)
	printProtocol(w, &rec.Protocol)
}

func printProtocol(w io.Writer, p *proto.Protocol) {
	advisor.Render(w, p.Headline, p.Steps, p.Authority)
}
