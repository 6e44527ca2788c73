package grpc

import (
	"context"
	"errors"

	"github.com/Varun5711/tinyauth/internal/auth"
	"github.com/Varun5711/tinyauth/internal/logger"
	usermodel "github.com/Varun5711/tinyauth/internal/models/user"
	"github.com/Varun5711/tinyauth/internal/service"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "tinyauth.v1.AuthService"

// AuthService is the RPC surface. Requests and responses are
// google.protobuf.Struct so no generated code is needed.
type AuthService interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ValidateToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type UserService interface {
	Register(ctx context.Context, in service.RegisterInput) (*usermodel.AuthResult, error)
	Login(ctx context.Context, in service.LoginInput) (*usermodel.AuthResult, error)
	ValidateToken(ctx context.Context, token string) (*usermodel.PublicUser, error)
}

type AuthServer struct {
	svc UserService
	log *logger.Logger
}

func NewAuthServer(svc UserService, log *logger.Logger) *AuthServer {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthServer{svc: svc, log: log}
}

func Register(server grpc.ServiceRegistrar, svc AuthService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*AuthService)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "Register", Handler: unaryHandler("Register", svc.Register)},
			{MethodName: "Login", Handler: unaryHandler("Login", svc.Login)},
			{MethodName: "ValidateToken", Handler: unaryHandler("ValidateToken", svc.ValidateToken)},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "tinyauth/v1/auth.proto",
	}, svc)
}

func (s *AuthServer) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.svc.Register(ctx, service.RegisterInput{
		Name:     stringField(req, "name"),
		Email:    stringField(req, "email"),
		Password: stringField(req, "password"),
	})
	if err != nil {
		return nil, s.toStatus("Register", err)
	}
	return authResultStruct(res)
}

func (s *AuthServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.svc.Login(ctx, service.LoginInput{
		Email:    stringField(req, "email"),
		Password: stringField(req, "password"),
	})
	if err != nil {
		return nil, s.toStatus("Login", err)
	}
	return authResultStruct(res)
}

func (s *AuthServer) ValidateToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	token := stringField(req, "token")
	if token == "" {
		return nil, status.Error(codes.InvalidArgument, "missing token")
	}

	user, err := s.svc.ValidateToken(ctx, token)
	if err != nil {
		return nil, s.toStatus("ValidateToken", err)
	}

	resp, err := structpb.NewStruct(map[string]any{
		"valid":   true,
		"user_id": user.ID,
		"email":   user.Email,
		"name":    user.Name,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func (s *AuthServer) toStatus(method string, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrUserAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, auth.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, "token expired")
	case errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, service.ErrUserNotFound):
		return status.Error(codes.Unauthenticated, "invalid token")
	default:
		s.log.Error("%s failed: %v", method, err)
		return status.Error(codes.Internal, "internal error")
	}
}

func authResultStruct(res *usermodel.AuthResult) (*structpb.Struct, error) {
	resp, err := structpb.NewStruct(map[string]any{
		"user_id":    res.User.ID,
		"name":       res.User.Name,
		"email":      res.User.Email,
		"token":      res.Token,
		"expires_at": res.ExpiresAt.Unix(),
		"created_at": res.User.CreatedAt.Unix(),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func stringField(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

func unaryHandler(method string, call func(context.Context, *structpb.Struct) (*structpb.Struct, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return call(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}
