// Package proto describes the cropguard gRPC service. Messages are protobuf
// well-known types, so the service needs no generated code.
package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName = "cropguard.Crops"

	ClassifyMethod = "/cropguard.Crops/Classify"
	LabelsMethod   = "/cropguard.Crops/Labels"
	AdviseMethod   = "/cropguard.Crops/Advise"
)

// RequestIDHeader carries the caller's request id in gRPC metadata.
const RequestIDHeader = "x-request-id"

// CropsServer is the server side of the service.
type CropsServer interface {
	// Classify takes an encoded JPEG, PNG or WebP photograph.
	Classify(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
	// Labels lists the class labels in model output order.
	Labels(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	// Advise returns the treatment protocol for a label without classifying.
	Advise(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

// RegisterCropsServer registers srv on s.
func RegisterCropsServer(s grpc.ServiceRegistrar, srv CropsServer) {
	s.RegisterService(&cropsServiceDesc, srv)
}

var cropsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CropsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Classify", Handler: classifyHandler},
		{MethodName: "Labels", Handler: labelsHandler},
		{MethodName: "Advise", Handler: adviseHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cropguard.proto",
}

func classifyHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CropsServer).Classify(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ClassifyMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CropsServer).Classify(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func labelsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CropsServer).Labels(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: LabelsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CropsServer).Labels(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func adviseHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CropsServer).Advise(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AdviseMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CropsServer).Advise(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// CropsClient is the client side of the service.
type CropsClient interface {
	Classify(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	Labels(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error)
	Advise(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type cropsClient struct {
	cc grpc.ClientConnInterface
}

// NewCropsClient returns a client on cc.
func NewCropsClient(cc grpc.ClientConnInterface) CropsClient {
	return &cropsClient{cc}
}

func (c *cropsClient) Classify(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ClassifyMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *cropsClient) Labels(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, LabelsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *cropsClient) Advise(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, AdviseMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
