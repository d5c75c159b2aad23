package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/cohortkeeper/internal/types"
)

// validationErrors are the authoring errors reported as INVALID_ARGUMENT.
var validationErrors = []error{
	types.ErrEmptyPath,
	types.ErrPathTooDeep,
	types.ErrRuleTooDeep,
	types.ErrInvalidOperator,
	types.ErrInValuesNotArray,
	types.ErrTooManyInValues,
	types.ErrInvalidRegex,
	types.ErrUnknownNodeKind,
	types.ErrMissingChild,
	types.ErrInvalidPredicate,
}

// statusFor maps err onto a gRPC status.
// Validation errors map to INVALID_ARGUMENT.
// Unknown segments map to NOT_FOUND.
// Context timeouts map to DEADLINE_EXCEEDED, cancellation to CANCELED.
// Everything else is a store failure and maps to UNAVAILABLE.
func statusFor(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, types.ErrSegmentNotFound):
		return status.Error(codes.NotFound, err.Error())
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return status.Error(codes.InvalidArgument, err.Error())
		}
	}
	return status.Error(codes.Unavailable, err.Error())
}

// invalidArgument reports a malformed request.
func invalidArgument(msg string, err error) error {
	if err != nil {
		msg += ": " + err.Error()
	}
	return status.Error(codes.InvalidArgument, msg)
}
