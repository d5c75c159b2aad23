package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "cohortkeeper.segment.v1.SegmentService"

// Full method names, as seen by interceptors.
const (
	ExecuteMethod      = "/" + ServiceName + "/Execute"
	RunSegmentMethod   = "/" + ServiceName + "/RunSegment"
	ListSegmentsMethod = "/" + ServiceName + "/ListSegments"
	ExportCohortMethod = "/" + ServiceName + "/ExportCohort"
)

// SegmentServiceServer is the server API for SegmentService.
type SegmentServiceServer interface {
	Execute(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RunSegment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListSegments(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportCohort(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterSegmentServiceServer registers srv on s.
func RegisterSegmentServiceServer(s grpc.ServiceRegistrar, srv SegmentServiceServer) {
	s.RegisterService(&SegmentServiceDesc, srv)
}

type structMethod func(SegmentServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// unaryHandler adapts a Struct-to-Struct method to grpc.MethodHandler.
func unaryHandler(fullMethod string, call structMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SegmentServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SegmentServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// SegmentServiceDesc is the grpc.ServiceDesc for SegmentService.
var SegmentServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SegmentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Execute",
			Handler:    unaryHandler(ExecuteMethod, SegmentServiceServer.Execute),
		},
		{
			MethodName: "RunSegment",
			Handler:    unaryHandler(RunSegmentMethod, SegmentServiceServer.RunSegment),
		},
		{
			MethodName: "ListSegments",
			Handler:    unaryHandler(ListSegmentsMethod, SegmentServiceServer.ListSegments),
		},
		{
			MethodName: "ExportCohort",
			Handler:    unaryHandler(ExportCohortMethod, SegmentServiceServer.ExportCohort),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cohortkeeper/segment/v1/segment.proto",
}

// SegmentServiceClient calls SegmentService.
type SegmentServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewSegmentServiceClient creates a client over cc.
func NewSegmentServiceClient(cc grpc.ClientConnInterface) *SegmentServiceClient {
	return &SegmentServiceClient{cc: cc}
}

func (c *SegmentServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Execute evaluates an ad hoc rule.
func (c *SegmentServiceClient) Execute(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ExecuteMethod, in, opts...)
}

// RunSegment executes a predefined segment.
func (c *SegmentServiceClient) RunSegment(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, RunSegmentMethod, in, opts...)
}

// ListSegments lists the predefined segments.
func (c *SegmentServiceClient) ListSegments(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ListSegmentsMethod, in, opts...)
}

// ExportCohort runs a predefined segment and delivers it as a cohort.
func (c *SegmentServiceClient) ExportCohort(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ExportCohortMethod, in, opts...)
}
