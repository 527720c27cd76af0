package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// The service exchanges google.protobuf.Struct messages so no generated stubs are needed.
// Field names mirror the HTTP JSON API.
const (
	ServiceName = "beneficio.v1.BenefitService"

	TransferFullMethod   = "/" + ServiceName + "/Transfer"
	GetBenefitFullMethod = "/" + ServiceName + "/GetBenefit"
)

// BenefitServiceServer is the server API for the BenefitService service
type BenefitServiceServer interface {
	Transfer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetBenefit(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterBenefitServiceServer registers srv on s
func RegisterBenefitServiceServer(s grpc.ServiceRegistrar, srv BenefitServiceServer) {
	s.RegisterService(&BenefitServiceDesc, srv)
}

func transferHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BenefitServiceServer).Transfer(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: TransferFullMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BenefitServiceServer).Transfer(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getBenefitHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BenefitServiceServer).GetBenefit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetBenefitFullMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BenefitServiceServer).GetBenefit(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// BenefitServiceDesc is the grpc.ServiceDesc for BenefitService
var BenefitServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BenefitServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Transfer",
			Handler:    transferHandler,
		},
		{
			MethodName: "GetBenefit",
			Handler:    getBenefitHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "beneficio/v1/benefit.proto",
}

// Client is the client API for BenefitService
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Transfer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, TransferFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetBenefit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetBenefitFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
