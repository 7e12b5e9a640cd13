package grpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/St1cky1/taskflow/internal/entity"
	"github.com/St1cky1/taskflow/internal/recordpb"
	"github.com/St1cky1/taskflow/internal/repository"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

type recordCall func(client *recordpb.RecordServiceClient, ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)

// NewGatewayHandler создает HTTP Gateway для gRPC.
// POST /v1/records/{table}/{fetch|create|update|delete}, тело - JSON запроса без table.
func NewGatewayHandler(ctx context.Context, grpcAddr string) (*runtime.ServeMux, error) {
	opts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}

	conn, err := grpc.NewClient(grpcAddr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to register gateway: %w", err)
	}
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	return NewGatewayMux(recordpb.NewRecordServiceClient(conn))
}

// NewGatewayMux регистрирует маршруты поверх готового клиента
func NewGatewayMux(client *recordpb.RecordServiceClient) (*runtime.ServeMux, error) {
	mux := runtime.NewServeMux()

	routes := map[string]recordCall{
		"fetch":  (*recordpb.RecordServiceClient).FetchRecords,
		"create": (*recordpb.RecordServiceClient).CreateRecord,
		"update": (*recordpb.RecordServiceClient).UpdateRecord,
		"delete": (*recordpb.RecordServiceClient).DeleteRecord,
	}
	for action, call := range routes {
		pattern := "/v1/records/{table}/" + action
		if err := mux.HandlePath(http.MethodPost, pattern, proxy(mux, client, call)); err != nil {
			return nil, fmt.Errorf("failed to register gateway: %w", err)
		}
	}

	return mux, nil
}

func proxy(mux *runtime.ServeMux, client *recordpb.RecordServiceClient, call recordCall) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
		ctx := r.Context()
		_, outbound := runtime.MarshalerForRequest(mux, r)

		in, err := readStruct(r)
		if err != nil {
			runtime.HTTPError(ctx, mux, outbound, w, r, status.Error(codes.InvalidArgument, err.Error()))
			return
		}
		in.Fields["table"] = structpb.NewStringValue(pathParams["table"])

		out, err := call(client, ctx, in)
		if err != nil {
			runtime.HTTPError(ctx, mux, outbound, w, r, err)
			return
		}

		data, err := outbound.Marshal(out)
		if err != nil {
			runtime.HTTPError(ctx, mux, outbound, w, r, status.Error(codes.Internal, err.Error()))
			return
		}
		w.Header().Set("Content-Type", outbound.ContentType(out))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

func readStruct(r *http.Request) (*structpb.Struct, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	in := &structpb.Struct{Fields: map[string]*structpb.Value{}}
	if len(body) == 0 {
		return in, nil
	}
	if err := protojson.Unmarshal(body, in); err != nil {
		return nil, fmt.Errorf("invalid json body: %w", err)
	}
	if in.Fields == nil {
		in.Fields = map[string]*structpb.Value{}
	}
	return in, nil
}

// HandleAuditHistory - GET /v1/audit/tasks/{id}, история изменений задачи из task_audit
func HandleAuditHistory(mux *runtime.ServeMux, auditRepo repository.ITaskAuditRepository) error {
	return mux.HandlePath(http.MethodGet, "/v1/audit/tasks/{id}", func(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
		audits, err := auditRepo.GetByEntityId(r.Context(), pathParams["id"])
		if err != nil {
			_, outbound := runtime.MarshalerForRequest(mux, r)
			runtime.HTTPError(r.Context(), mux, outbound, w, r, status.Error(codes.Internal, err.Error()))
			return
		}
		views := make([]auditView, 0, len(audits))
		for _, a := range audits {
			views = append(views, auditView{
				ID:         a.ID,
				Action:     a.Action,
				EntityType: a.EntityType,
				EntityID:   a.EntityID,
				OldValues:  rawJSON(a.OldValues),
				NewValues:  rawJSON(a.NewValues),
				Changes:    rawJSON(a.Changes),
				ChangedAt:  a.ChangesAt,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"audits": views})
	})
}

// auditView - запись аудита для ответа, jsonb-колонки отдаются объектами, а не строками
type auditView struct {
	ID         int               `json:"id"`
	Action     entity.ActionType `json:"action"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	OldValues  json.RawMessage   `json:"old_values"`
	NewValues  json.RawMessage   `json:"new_values"`
	Changes    json.RawMessage   `json:"changes"`
	ChangedAt  time.Time         `json:"changed_at"`
}

func rawJSON(s *string) json.RawMessage {
	if s == nil {
		return json.RawMessage("null")
	}
	if !json.Valid([]byte(*s)) {
		quoted, _ := json.Marshal(*s)
		return quoted
	}
	return json.RawMessage(*s)
}

// HandleHealth - GET /healthz, 503 если check вернул ошибку
func HandleHealth(mux *runtime.ServeMux, check func(ctx context.Context) error) error {
	return mux.HandlePath(http.MethodGet, "/healthz", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		if err := check(r.Context()); err != nil {
			http.Error(w, "unhealthy: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
}
