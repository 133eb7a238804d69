package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "pdfcompare.v1.ComparisonService"

const (
	CompareMethod    = "/" + ServiceName + "/Compare"
	GetRunMethod     = "/" + ServiceName + "/GetRun"
	ListRunsMethod   = "/" + ServiceName + "/ListRuns"
	ExportRunsMethod = "/" + ServiceName + "/ExportRuns"
)

// ComparisonServer is the server API for the comparison service.
type ComparisonServer interface {
	Compare(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRuns(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportRuns(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterComparisonServer(s grpc.ServiceRegistrar, srv ComparisonServer) {
	s.RegisterService(&comparisonServiceDesc, srv)
}

type unaryMethod func(ComparisonServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ComparisonServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ComparisonServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var comparisonServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ComparisonServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Compare", Handler: unaryHandler(CompareMethod, ComparisonServer.Compare)},
		{MethodName: "GetRun", Handler: unaryHandler(GetRunMethod, ComparisonServer.GetRun)},
		{MethodName: "ListRuns", Handler: unaryHandler(ListRunsMethod, ComparisonServer.ListRuns)},
		{MethodName: "ExportRuns", Handler: unaryHandler(ExportRunsMethod, ComparisonServer.ExportRuns)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pdfcompare/v1/comparison.proto",
}

// Client calls a ComparisonService over conn.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Compare(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, CompareMethod, in, opts...)
}

func (c *Client) GetRun(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, GetRunMethod, in, opts...)
}

func (c *Client) ListRuns(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, ListRunsMethod, in, opts...)
}

func (c *Client) ExportRuns(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, ExportRunsMethod, in, opts...)
}
