package rpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/matheus3301/chatsync/internal/auth"
	"github.com/matheus3301/chatsync/internal/blob"
	"github.com/matheus3301/chatsync/internal/remote"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps a backend error onto a gRPC status.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var code codes.Code
	switch {
	case errors.Is(err, remote.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, remote.ErrInvalidQuery), errors.Is(err, auth.ErrInvalidInput), errors.Is(err, blob.ErrInvalidKey):
		code = codes.InvalidArgument
	case errors.Is(err, auth.ErrEmailTaken):
		code = codes.AlreadyExists
	case errors.Is(err, auth.ErrInvalidCredentials):
		code = codes.PermissionDenied
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, remote.ErrUnauthenticated):
		code = codes.Unauthenticated
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

// fromStatus turns a gRPC status back into the matching package error.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	var sentinel error
	switch st.Code() {
	case codes.NotFound:
		sentinel = remote.ErrNotFound
	case codes.InvalidArgument:
		sentinel = remote.ErrInvalidQuery
	case codes.AlreadyExists:
		sentinel = auth.ErrEmailTaken
	case codes.PermissionDenied:
		sentinel = auth.ErrInvalidCredentials
	case codes.Unauthenticated:
		sentinel = remote.ErrUnauthenticated
	case codes.Canceled:
		sentinel = context.Canceled
	case codes.DeadlineExceeded:
		sentinel = context.DeadlineExceeded
	default:
		return fmt.Errorf("rpc %s: %s", st.Code(), st.Message())
	}
	return fmt.Errorf("%w (%s)", sentinel, st.Message())
}
