package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"tournament-ledger/internal/models"
	"tournament-ledger/internal/services"
)

const (
	ServiceName = "settlement.Settlement"

	userIDHeader   = "x-user-id"
	userRoleHeader = "x-user-role"
)

// SettlementServer is the internal settlement surface used by the gateway.
// Requests and responses are google.protobuf.Struct messages.
type SettlementServer interface {
	GetBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeclareWinner(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ReviewTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type Server struct {
	Ledger  *services.LedgerService
	Winners *services.WinnerService
	Reviews *services.ReviewService
}

func NewServer(ledger *services.LedgerService, winners *services.WinnerService, reviews *services.ReviewService) *Server {
	return &Server{Ledger: ledger, Winners: winners, Reviews: reviews}
}

func unaryHandler(call func(SettlementServer, context.Context, *structpb.Struct) (*structpb.Struct, error), method string) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SettlementServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(SettlementServer), ctx, req.(*structpb.Struct))
		})
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SettlementServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetBalance", Handler: unaryHandler(SettlementServer.GetBalance, "GetBalance")},
		{MethodName: "DeclareWinner", Handler: unaryHandler(SettlementServer.DeclareWinner, "DeclareWinner")},
		{MethodName: "ReviewTransaction", Handler: unaryHandler(SettlementServer.ReviewTransaction, "ReviewTransaction")},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "settlement.proto",
}

func RegisterSettlementServer(s grpc.ServiceRegistrar, srv SettlementServer) {
	s.RegisterService(&serviceDesc, srv)
}

// NewGRPCServer builds a server with the settlement and health services registered.
func NewGRPCServer(srv SettlementServer) *grpc.Server {
	s := grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor))
	RegisterSettlementServer(s, srv)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return s
}

// StartGRPCServer listens on port and serves until the server is stopped.
func StartGRPCServer(port string, srv SettlementServer) (*grpc.Server, error) {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	s := NewGRPCServer(srv)
	go func() {
		zap.L().Info("gRPC server listening", zap.String("port", port))
		if err := s.Serve(lis); err != nil {
			zap.L().Error("gRPC server stopped", zap.Error(err))
		}
	}()
	return s, nil
}

func loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	fields := []zap.Field{
		zap.String("method", info.FullMethod),
		zap.Duration("duration", time.Since(start)),
		zap.String("code", status.Code(err).String()),
	}
	if err != nil && status.Code(err) == codes.Internal {
		zap.L().Error("gRPC request failed", append(fields, zap.Error(err))...)
	} else {
		zap.L().Debug("gRPC request", fields...)
	}
	return resp, err
}

// actorFrom reads the caller forwarded by the gateway. A missing or
// malformed id yields the anonymous actor.
func actorFrom(ctx context.Context) services.Actor {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return services.Actor{}
	}
	var a services.Actor
	if v := md.Get(userIDHeader); len(v) > 0 {
		if id, err := strconv.ParseUint(v[0], 10, 64); err == nil {
			a.UserID = uint(id)
		}
	}
	a.Role = models.RoleUser
	if v := md.Get(userRoleHeader); len(v) > 0 && models.Role(v[0]) == models.RoleAdmin {
		a.Role = models.RoleAdmin
	}
	return a
}

// toStatus maps a service error onto a gRPC status.
func toStatus(err error) error {
	var (
		validation   *services.ValidationError
		insufficient *services.InsufficientFundsError
		notFound     *services.NotFoundError
		conflict     *services.ConflictError
		forbidden    *services.ForbiddenError
	)
	switch {
	case errors.As(err, &validation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &insufficient):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.As(err, &notFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &conflict):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.As(err, &forbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func idField(req *structpb.Struct, name string) (uint, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, nil
	}
	n := v.GetNumberValue()
	if n < 0 || n != float64(uint64(n)) {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a non-negative integer", name)
	}
	return uint(n), nil
}

func (s *Server) GetBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor := actorFrom(ctx)
	if actor.UserID == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing caller identity")
	}
	userID, err := idField(req, "user_id")
	if err != nil {
		return nil, err
	}
	if userID == 0 {
		userID = actor.UserID
	}
	if userID != actor.UserID && !actor.IsAdmin() {
		return nil, status.Error(codes.PermissionDenied, "cannot read another user's balance")
	}

	balance, err := s.Ledger.GetBalance(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]interface{}{
		"user_id":     userID,
		"balance":     balance,
		"balance_pkr": models.CoinsToPKR(balance).String(),
	})
}

func (s *Server) DeclareWinner(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	tournamentID, err := idField(req, "tournament_id")
	if err != nil {
		return nil, err
	}
	teamID, err := idField(req, "team_id")
	if err != nil {
		return nil, err
	}

	res, err := s.Winners.DeclareWinner(ctx, actorFrom(ctx), services.DeclareWinnerDTO{
		TournamentID: tournamentID,
		TeamID:       teamID,
		Placement:    int(req.GetFields()["placement"].GetNumberValue()),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]interface{}{
		"winner_id":        res.Winner.ID,
		"captain_id":       res.CaptainID,
		"balance":          res.Balance,
		"wins":             res.Wins,
		"bonus_credited":   res.BonusCredited,
		"became_star":      res.BecameStar,
		"tournament_ended": res.TournamentEnded,
	})
}

func (s *Server) ReviewTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	transactionID, err := idField(req, "transaction_id")
	if err != nil {
		return nil, err
	}

	res, err := s.Reviews.ReviewTransaction(ctx, actorFrom(ctx), services.ReviewTransactionDTO{
		TransactionID: transactionID,
		Action:        req.GetFields()["action"].GetStringValue(),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]interface{}{
		"transaction_id": res.Transaction.ID,
		"status":         string(res.Transaction.Status),
		"message":        res.Message,
	})
}
