package grpcutil

import (
	"context"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestTranslateContextError_Canceled(t *testing.T) {
	st, _ := status.FromError(TranslateContextError(context.Canceled))
	if st.Code() != codes.Canceled {
		t.Errorf("got %v", st.Code())
	}
}

func TestTranslateContextError_Deadline(t *testing.T) {
	st, _ := status.FromError(TranslateContextError(context.DeadlineExceeded))
	if st.Code() != codes.DeadlineExceeded {
		t.Errorf("got %v", st.Code())
	}
}

func TestTranslateContextError_Other(t *testing.T) {
	err := status.Error(codes.Internal, "x")
	if TranslateContextError(err) != err {
		t.Error("should pass through")
	}
}
