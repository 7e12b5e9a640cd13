package client

import (
	"context"
	"fmt"

	"github.com/St1cky1/taskflow/internal/entity"
	"github.com/St1cky1/taskflow/internal/recordpb"
	"github.com/St1cky1/taskflow/internal/repository"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// RecordClient - SDK record API поверх gRPC
type RecordClient struct {
	conn   *grpc.ClientConn
	client *recordpb.RecordServiceClient
}

var _ repository.IRecordClient = (*RecordClient)(nil)

func NewRecordClient(addr string, opts ...grpc.DialOption) (*RecordClient, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create record client: %w", err)
	}

	return &RecordClient{
		conn:   conn,
		client: recordpb.NewRecordServiceClient(conn),
	}, nil
}

func (c *RecordClient) FetchRecords(ctx context.Context, req *entity.FetchRecordsRequest) (*entity.FetchRecordsResponse, error) {
	out, err := c.call(ctx, c.client.FetchRecords, req)
	if err != nil {
		return nil, err
	}

	var resp entity.FetchRecordsResponse
	if err := recordpb.FromStruct(out, &resp); err != nil {
		return nil, fmt.Errorf("decode fetch response: %w", err)
	}
	return &resp, nil
}

func (c *RecordClient) CreateRecord(ctx context.Context, req *entity.CreateRecordRequest) (*entity.RecordResponse, error) {
	return c.batch(ctx, c.client.CreateRecord, req)
}

func (c *RecordClient) UpdateRecord(ctx context.Context, req *entity.UpdateRecordRequest) (*entity.RecordResponse, error) {
	return c.batch(ctx, c.client.UpdateRecord, req)
}

func (c *RecordClient) DeleteRecord(ctx context.Context, req *entity.DeleteRecordRequest) (*entity.RecordResponse, error) {
	return c.batch(ctx, c.client.DeleteRecord, req)
}

type invokeFunc func(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)

func (c *RecordClient) call(ctx context.Context, invoke invokeFunc, req any) (*structpb.Struct, error) {
	in, err := recordpb.ToStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return invoke(ctx, in)
}

func (c *RecordClient) batch(ctx context.Context, invoke invokeFunc, req any) (*entity.RecordResponse, error) {
	out, err := c.call(ctx, invoke, req)
	if err != nil {
		return nil, err
	}

	var resp entity.RecordResponse
	if err := recordpb.FromStruct(out, &resp); err != nil {
		return nil, fmt.Errorf("decode record response: %w", err)
	}
	return &resp, nil
}

func (c *RecordClient) Close() error {
	return c.conn.Close()
}
