package grpc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/beneficio-backend/internal/domain"
	"github.com/simaogato/beneficio-backend/internal/usecase/benefit"
	"github.com/simaogato/beneficio-backend/internal/usecase/transfer"
)

// Server implements the BenefitService gRPC server
type Server struct {
	Transfers transfer.Executor
	Benefits  *benefit.BenefitService
}

// NewServer creates a new gRPC server instance
func NewServer(transfers transfer.Executor, benefits *benefit.BenefitService) *Server {
	return &Server{
		Transfers: transfers,
		Benefits:  benefits,
	}
}

// NewGRPCServer builds a grpc.Server with logging and token auth and registers srv on it
func NewGRPCServer(srv *Server, apiToken string, logger *zap.Logger) *grpc.Server {
	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			LoggingInterceptor(logger),
			AuthInterceptor(apiToken),
		),
	)
	RegisterBenefitServiceServer(gs, srv)
	reflection.Register(gs)
	return gs
}

// Transfer handles the Transfer RPC
// Request fields: originId, destinationId (numbers) and amount (decimal string or number)
func (s *Server) Transfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	originID, err := int64Field(req, "originId")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	destinationID, err := int64Field(req, "destinationId")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	amount, err := decimalField(req, "amount")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	result, err := s.Transfers.Execute(ctx, domain.TransferRequest{
		OriginID:      originID,
		DestinationID: destinationID,
		Amount:        amount,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return structpb.NewStruct(map[string]interface{}{
		"success":       true,
		"transactionId": result.TransactionID.String(),
		"originId":      result.OriginID,
		"destinationId": result.DestinationID,
		"amount":        result.Amount.String(),
		"timestamp":     result.Timestamp.UTC().Format(time.RFC3339Nano),
		"origin":        endpointFields(result.Origin),
		"destination":   endpointFields(result.Destination),
	})
}

// GetBenefit handles the GetBenefit RPC
func (s *Server) GetBenefit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := int64Field(req, "id")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	b, err := s.Benefits.Get(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}

	return structpb.NewStruct(map[string]interface{}{
		"id":          b.ID,
		"name":        b.Name,
		"description": b.Description,
		"balance":     b.Balance.String(),
		"active":      b.Active,
		"version":     b.Version,
	})
}

func endpointFields(e domain.TransferEndpoint) map[string]interface{} {
	return map[string]interface{}{
		"id":            e.ID,
		"name":          e.Name,
		"balanceBefore": e.BalanceBefore.String(),
		"balanceAfter":  e.BalanceAfter.String(),
	}
}

func int64Field(s *structpb.Struct, name string) (int64, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return 0, fmt.Errorf("missing field %s", name)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("field %s must be a number", name)
	}
	f := n.NumberValue
	// float64(math.MaxInt64) rounds up to 2^63, which is already out of range
	if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 || f != math.Trunc(f) {
		return 0, fmt.Errorf("field %s must be an integer", name)
	}
	return int64(f), nil
}

func decimalField(s *structpb.Struct, name string) (decimal.Decimal, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return decimal.Zero, fmt.Errorf("missing field %s", name)
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(k.StringValue)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid %s format: %v", name, err)
		}
		return d, nil
	case *structpb.Value_NumberValue:
		return decimal.NewFromFloat(k.NumberValue), nil
	default:
		return decimal.Zero, fmt.Errorf("field %s must be a decimal string or number", name)
	}
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch domain.KindOf(err) {
	case domain.FailureInvalidRequest:
		return status.Error(codes.InvalidArgument, err.Error())
	case domain.FailureNotFound:
		return status.Error(codes.NotFound, err.Error())
	case domain.FailureInvalidState, domain.FailureInsufficientFunds:
		return status.Error(codes.FailedPrecondition, err.Error())
	case domain.FailureConflict:
		return status.Error(codes.Aborted, err.Error())
	case domain.FailureInconsistent:
		return status.Error(codes.DataLoss, err.Error())
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrDuplicateName):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, domain.ErrVersionMismatch):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	// Default to Internal error for unknown errors
	return status.Error(codes.Internal, err.Error())
}

var _ BenefitServiceServer = (*Server)(nil)
