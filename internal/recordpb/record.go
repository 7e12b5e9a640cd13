// Package recordpb описывает gRPC сервис records.v1.RecordService.
// Сообщения передаются как google.protobuf.Struct, поля записи произвольные.
package recordpb

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "records.v1.RecordService"

const (
	FetchRecordsMethod = "/" + ServiceName + "/FetchRecords"
	CreateRecordMethod = "/" + ServiceName + "/CreateRecord"
	UpdateRecordMethod = "/" + ServiceName + "/UpdateRecord"
	DeleteRecordMethod = "/" + ServiceName + "/DeleteRecord"
)

// RecordServiceServer - серверная часть record API
type RecordServiceServer interface {
	FetchRecords(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CreateRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func RegisterRecordServiceServer(s grpc.ServiceRegistrar, srv RecordServiceServer) {
	s.RegisterService(&RecordService_ServiceDesc, srv)
}

func unaryHandler(method string, call func(RecordServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RecordServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RecordServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var RecordService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecordServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "FetchRecords",
			Handler:    unaryHandler(FetchRecordsMethod, RecordServiceServer.FetchRecords),
		},
		{
			MethodName: "CreateRecord",
			Handler:    unaryHandler(CreateRecordMethod, RecordServiceServer.CreateRecord),
		},
		{
			MethodName: "UpdateRecord",
			Handler:    unaryHandler(UpdateRecordMethod, RecordServiceServer.UpdateRecord),
		},
		{
			MethodName: "DeleteRecord",
			Handler:    unaryHandler(DeleteRecordMethod, RecordServiceServer.DeleteRecord),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "records/v1/records.proto",
}

// RecordServiceClient - клиентская часть record API
type RecordServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewRecordServiceClient(cc grpc.ClientConnInterface) *RecordServiceClient {
	return &RecordServiceClient{cc: cc}
}

func (c *RecordServiceClient) FetchRecords(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, FetchRecordsMethod, in, opts...)
}

func (c *RecordServiceClient) CreateRecord(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, CreateRecordMethod, in, opts...)
}

func (c *RecordServiceClient) UpdateRecord(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, UpdateRecordMethod, in, opts...)
}

func (c *RecordServiceClient) DeleteRecord(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, DeleteRecordMethod, in, opts...)
}

func (c *RecordServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ToStruct переводит json-совместимое значение (структуру с json тегами) в Struct
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return structpb.NewStruct(m)
}

// FromStruct - обратное преобразование в v через json.
// Числа в Struct всегда double, поэтому целые поля v должны декодироваться из float.
func FromStruct(s *structpb.Struct, v any) error {
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}
