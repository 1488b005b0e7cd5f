package engine

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	errs "sgf_review/internal/errors"
)

const (
	EngineServiceName = "sgf_review.Engine"
	AnalyzeMethod     = "/" + EngineServiceName + "/Analyze"

	// JSONCodecName is the content subtype the engine service speaks.
	JSONCodecName = "json"
)

// jsonCodec lets AnalyzeRequest and AnalyzeResponse travel as they do over
// HTTP, so the service needs no generated message types.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return JSONCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type EngineServer interface {
	Analyze(ctx context.Context, req *AnalyzeRequest) (*AnalyzeResponse, error)
}

var EngineServiceDesc = grpc.ServiceDesc{
	ServiceName: EngineServiceName,
	HandlerType: (*EngineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Analyze", Handler: analyzeRPCHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sgf_review/engine",
}

func analyzeRPCHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AnalyzeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EngineServer).Analyze(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AnalyzeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EngineServer).Analyze(ctx, req.(*AnalyzeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

type grpcEngine struct {
	h *EngineHandler
}

func (g *grpcEngine) Analyze(ctx context.Context, req *AnalyzeRequest) (*AnalyzeResponse, error) {
	requestID := uuid.NewString()
	resp, err := g.h.analyze(ctx, requestID, *req)
	if err != nil {
		code := codeFor(err)
		if code == codes.Internal || code == codes.Unavailable {
			g.h.log.Errorw("analysis failed", "request_id", requestID, "error", err)
		}
		return nil, status.Errorf(code, "%s: %v", requestID, err)
	}
	return &resp, nil
}

// RegisterGrpc serves Analyze and the standard health service on s. The
// returned health server is marked serving; shut it down before stopping s.
func (h *EngineHandler) RegisterGrpc(s *grpc.Server) *health.Server {
	s.RegisterService(&EngineServiceDesc, &grpcEngine{h: h})

	hs := health.NewServer()
	hs.SetServingStatus(EngineServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return hs
}

// AnalyzeRemote calls Analyze on a remote engine service.
func AnalyzeRemote(ctx context.Context, cc grpc.ClientConnInterface, req *AnalyzeRequest) (*AnalyzeResponse, error) {
	out := new(AnalyzeResponse)
	if err := cc.Invoke(ctx, AnalyzeMethod, req, out, grpc.CallContentSubtype(JSONCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func UnaryLogger(log *zap.SugaredLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Infow("grpc call", "method", info.FullMethod, "code", status.Code(err).String(), "duration", time.Since(start))
		return resp, err
	}
}

func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, errs.ErrBadCoordinate), errors.Is(err, errs.ErrBadColor):
		return codes.InvalidArgument
	case errors.Is(err, errs.ErrLaunchFailed), errors.Is(err, errs.ErrEngineNotRunning):
		return codes.Unavailable
	case errors.Is(err, errs.ErrCommandTimeout), errors.Is(err, errs.ErrAnalysisIncomplete),
		errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	}
	return codes.Internal
}
