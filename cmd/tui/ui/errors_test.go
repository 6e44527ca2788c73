package ui

import (
	"errors"
	"strings"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestDescribe(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{status.Error(codes.AlreadyExists, "user already exists"), "already exists"},
		{status.Error(codes.InvalidArgument, "invalid input: email is not valid"), "Check your details: invalid input: email is not valid"},
		{status.Error(codes.Unauthenticated, "invalid email or password"), "incorrect"},
		{status.Error(codes.Unavailable, "connection refused"), "Cannot reach"},
		{status.Error(codes.DeadlineExceeded, "deadline"), "did not answer"},
		{status.Error(codes.Internal, "internal error"), "Unexpected error: internal error"},
		{errors.New("plain failure"), "plain failure"},
	}

	for _, tc := range cases {
		if got := describe(tc.err); !strings.Contains(got, tc.want) {
			t.Errorf("describe(%v) = %q, want it to contain %q", tc.err, got, tc.want)
		}
	}

	if describe(status.Error(codes.AlreadyExists, "x")) == describe(status.Error(codes.InvalidArgument, "x")) {
		t.Error("AlreadyExists and InvalidArgument must read differently")
	}
}
