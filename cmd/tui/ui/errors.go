package ui

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// describe turns an auth service error into a line for the user.
func describe(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return err.Error()
	}

	switch st.Code() {
	case codes.AlreadyExists:
		return "An account with that email already exists."
	case codes.InvalidArgument:
		return "Check your details: " + st.Message()
	case codes.Unauthenticated:
		return "Email or password is incorrect."
	case codes.Unavailable:
		return "Cannot reach the auth service. Is user-service running?"
	case codes.DeadlineExceeded:
		return "The auth service did not answer in time."
	default:
		return "Unexpected error: " + st.Message()
	}
}
