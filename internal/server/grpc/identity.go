package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/corund/internal/common"
	"github.com/dmitrijs2005/corund/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// CurrentMethod returns the caller's own user. It is guarded by the access
// token interceptor.
const CurrentMethod = "/" + ServiceName + "/Current"

// UserResolver returns an active user by id.
type UserResolver interface {
	ResolveByID(ctx context.Context, id int64) (*models.User, error)
}

type identityServer interface {
	Current(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
}

var identityServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*identityServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Current",
			Handler:    currentHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "corund/identity",
}

func currentHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(identityServer).Current(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: CurrentMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(identityServer).Current(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// Current returns {id, username, firstname, patronym, surname} of the user
// the access token was issued to.
func (s *GRPCServer) Current(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	u, err := s.users.ResolveByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			return nil, status.Error(codes.NotFound, "user not found")
		}
		s.logger.Error(ctx, "resolve current user", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	return structpb.NewStruct(map[string]interface{}{
		"id":        u.ID,
		"username":  u.Username,
		"firstname": optional(u.Firstname),
		"patronym":  optional(u.Patronym),
		"surname":   optional(u.Surname),
	})
}

func optional(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
