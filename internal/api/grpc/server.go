package grpc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/St1cky1/taskflow/internal/entity"
	"github.com/St1cky1/taskflow/internal/recordpb"
	"github.com/St1cky1/taskflow/internal/repository"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// GRPCServer - сервер record API поверх IRecordRepository
type GRPCServer struct {
	recordRepo repository.IRecordRepository
	server     *grpc.Server
}

var _ recordpb.RecordServiceServer = (*GRPCServer)(nil)

func NewGRPCServer(recordRepo repository.IRecordRepository) *GRPCServer {
	s := &GRPCServer{
		recordRepo: recordRepo,
	}
	s.server = grpc.NewServer(
		grpc.UnaryInterceptor(s.unaryInterceptor),
	)
	recordpb.RegisterRecordServiceServer(s.server, s)
	reflection.Register(s.server)
	return s
}

func (s *GRPCServer) Start(port string) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	log.Printf("gRPC server listening on :%s", port)
	return s.Serve(lis)
}

// Serve обслуживает уже открытый listener (bufconn в тестах)
func (s *GRPCServer) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

func (s *GRPCServer) Stop() {
	s.server.GracefulStop()
}

func (s *GRPCServer) unaryInterceptor(ctx context.Context, req interface{},
	info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	log.Printf("gRPC method: %s (%s) err=%v", info.FullMethod, time.Since(start), err)
	return resp, err
}

// FetchRecords - выборка записей таблицы
func (s *GRPCServer) FetchRecords(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req entity.FetchRecordsRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if err := requireTable(req.Table); err != nil {
		return nil, err
	}

	records, err := s.recordRepo.Fetch(ctx, &req)
	if err != nil {
		if errors.Is(err, repository.ErrUnsupportedQuery) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		log.Printf("❌ Error fetching records: %v", err)
		return recordpb.ToStruct(&entity.FetchRecordsResponse{
			Success: false,
			Message: err.Error(),
			Data:    []entity.Record{},
		})
	}

	return recordpb.ToStruct(&entity.FetchRecordsResponse{
		Success: true,
		Data:    records,
	})
}

// CreateRecord - пакетное создание, результат по каждой записи
func (s *GRPCServer) CreateRecord(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req entity.CreateRecordRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if err := requireTable(req.Table); err != nil {
		return nil, err
	}

	results := make([]entity.RecordResult, 0, len(req.Records))
	for _, fields := range req.Records {
		record, err := s.recordRepo.Create(ctx, req.Table, fields)
		if err != nil {
			log.Printf("❌ Error creating record in %s: %v", req.Table, err)
			results = append(results, failed(entity.CodeInternal, err.Error()))
			continue
		}
		results = append(results, entity.RecordResult{Success: true, Data: record})
	}

	return batchResponse(results)
}

// UpdateRecord - частичное обновление, Id обязателен в каждой записи
func (s *GRPCServer) UpdateRecord(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req entity.UpdateRecordRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if err := requireTable(req.Table); err != nil {
		return nil, err
	}

	results := make([]entity.RecordResult, 0, len(req.Records))
	for _, fields := range req.Records {
		id, ok := fields.ID()
		if !ok {
			results = append(results, failed(entity.CodeInvalid, "record id is required"))
			continue
		}

		record, err := s.recordRepo.Update(ctx, req.Table, id, fields)
		switch {
		case err != nil:
			log.Printf("❌ Error updating record %d in %s: %v", id, req.Table, err)
			results = append(results, failed(entity.CodeInternal, err.Error()))
		case record == nil:
			results = append(results, failed(entity.CodeNotFound, fmt.Sprintf("record %d not found", id)))
		default:
			results = append(results, entity.RecordResult{Success: true, Data: record})
		}
	}

	return batchResponse(results)
}

// DeleteRecord - удаление по списку id
func (s *GRPCServer) DeleteRecord(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req entity.DeleteRecordRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if err := requireTable(req.Table); err != nil {
		return nil, err
	}

	results := make([]entity.RecordResult, 0, len(req.RecordIDs))
	for _, id := range req.RecordIDs {
		deleted, err := s.recordRepo.Delete(ctx, req.Table, id)
		switch {
		case err != nil:
			log.Printf("❌ Error deleting record %d in %s: %v", id, req.Table, err)
			results = append(results, failed(entity.CodeInternal, err.Error()))
		case !deleted:
			results = append(results, failed(entity.CodeNotFound, fmt.Sprintf("record %d not found", id)))
		default:
			results = append(results, entity.RecordResult{Success: true})
		}
	}

	return batchResponse(results)
}

func decodeRequest(in *structpb.Struct, v any) error {
	if err := recordpb.FromStruct(in, v); err != nil {
		return status.Error(codes.InvalidArgument, "malformed request: "+err.Error())
	}
	return nil
}

func requireTable(table string) error {
	if strings.TrimSpace(table) == "" {
		return status.Error(codes.InvalidArgument, "table is required")
	}
	return nil
}

func failed(code, message string) entity.RecordResult {
	return entity.RecordResult{Success: false, Code: code, Message: message}
}

// batchResponse - success только если успешны все записи, message берется у первой неудачной
func batchResponse(results []entity.RecordResult) (*structpb.Struct, error) {
	resp := &entity.RecordResponse{Success: true, Results: results}
	if first, ok := resp.FirstFailure(); ok {
		resp.Success = false
		resp.Message = first.Message
	}
	return recordpb.ToStruct(resp)
}
