// Package rpc exposes chatd's document store, auth and blob storage over
// gRPC. Messages are google.protobuf.Struct values, so the service needs
// no generated code.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "chatsync.v1.Backend"

// Full method names.
const (
	MethodSignUp    = "/" + serviceName + "/SignUp"
	MethodSignIn    = "/" + serviceName + "/SignIn"
	MethodGet       = "/" + serviceName + "/Get"
	MethodPut       = "/" + serviceName + "/Put"
	MethodUpdate    = "/" + serviceName + "/Update"
	MethodNewID     = "/" + serviceName + "/NewID"
	MethodUpload    = "/" + serviceName + "/Upload"
	MethodSubscribe = "/" + serviceName + "/Subscribe"
)

// BackendServer is the server API for the Backend service.
type BackendServer interface {
	SignUp(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SignIn(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Get(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Put(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Update(context.Context, *structpb.Struct) (*structpb.Struct, error)
	NewID(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Upload(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Subscribe(*structpb.Struct, grpc.ServerStream) error
}

type unaryCall func(BackendServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BackendServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BackendServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(BackendServer).Subscribe(in, stream)
}

// ServiceDesc describes the Backend service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*BackendServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SignUp", Handler: unaryHandler(MethodSignUp, BackendServer.SignUp)},
		{MethodName: "SignIn", Handler: unaryHandler(MethodSignIn, BackendServer.SignIn)},
		{MethodName: "Get", Handler: unaryHandler(MethodGet, BackendServer.Get)},
		{MethodName: "Put", Handler: unaryHandler(MethodPut, BackendServer.Put)},
		{MethodName: "Update", Handler: unaryHandler(MethodUpdate, BackendServer.Update)},
		{MethodName: "NewID", Handler: unaryHandler(MethodNewID, BackendServer.NewID)},
		{MethodName: "Upload", Handler: unaryHandler(MethodUpload, BackendServer.Upload)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: subscribeHandler, ServerStreams: true},
	},
	Metadata: "chatsync/v1/backend.proto",
}

// RegisterBackendServer registers srv on s.
func RegisterBackendServer(s grpc.ServiceRegistrar, srv BackendServer) {
	s.RegisterService(&ServiceDesc, srv)
}
