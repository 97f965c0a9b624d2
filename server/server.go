// Package server exposes the report engine over gRPC.
package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"sales-report-go/config"
	"sales-report-go/operators"
	"sales-report-go/reports"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ReportServer answers ReportService calls from one engine. The dataset
// behind the engine is loaded once, before the server starts.
type ReportServer struct {
	engine *reports.Engine
}

func NewReportServer(engine *reports.Engine) *ReportServer {
	return &ReportServer{engine: engine}
}

func (s *ReportServer) ListReports(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	names := reports.Names()
	list := make([]interface{}, len(names))
	for i, n := range names {
		list[i] = n
	}
	return structpb.NewStruct(map[string]interface{}{"reports": list})
}

func (s *ReportServer) RunReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name := req.GetFields()["name"].GetStringValue()
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "name is required")
	}
	logrus.WithField("report", name).Debug("RunReport")

	res := s.engine.Run(ctx, name)
	if res.Err != nil {
		return nil, toStatus(res.Err)
	}
	defer res.Batch.Release()
	out, err := batchToStruct(name, res.Batch)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, reports.ErrUnknownReport):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, operators.ErrMissingColumn):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(errors.UnwrapAll(err)).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func batchToStruct(name string, batch *operators.RecordBatch) (*structpb.Struct, error) {
	names := batch.ColumnNames()
	columns := make([]interface{}, len(names))
	for i, n := range names {
		columns[i] = n
	}
	rows := make([]interface{}, 0, batch.RowCount)
	for _, row := range batch.Rows() {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			if t, ok := v.(time.Time); ok {
				v = t.Format("2006-01-02")
			}
			cells[j] = v
		}
		rows = append(rows, cells)
	}
	return structpb.NewStruct(map[string]interface{}{
		"report":  name,
		"columns": columns,
		"rows":    rows,
	})
}

// NewGRPCServer builds a server with ReportService registered and message
// sizes capped by server.max_request_size_mb.
func NewGRPCServer(cfg *config.Config, engine *reports.Engine) *grpc.Server {
	limit := cfg.MaxRequestBytes()
	grpcServer := grpc.NewServer(
		grpc.MaxRecvMsgSize(limit),
		grpc.MaxSendMsgSize(limit),
	)
	RegisterReportServiceServer(grpcServer, NewReportServer(engine))
	return grpcServer
}

// Serve runs grpcServer on lis until ctx is cancelled, then stops gracefully.
func Serve(ctx context.Context, lis net.Listener, grpcServer *grpc.Server) error {
	go func() {
		<-ctx.Done()
		grpcServer.GracefulStop()
	}()
	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return errors.Wrap(err, "serve")
	}
	return nil
}

// Start listens on server.host:server.port and serves until ctx is done.
func Start(ctx context.Context, cfg *config.Config, engine *reports.Engine) error {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}
	logrus.WithField("addr", addr).Info("report server listening")
	return Serve(ctx, listener, NewGRPCServer(cfg, engine))
}
