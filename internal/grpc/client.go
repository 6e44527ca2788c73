package grpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

type AuthReply struct {
	UserID    string
	Name      string
	Email     string
	Token     string
	ExpiresAt time.Time
}

type Identity struct {
	UserID string
	Name   string
	Email  string
}

type AuthClient struct {
	conn *grpc.ClientConn
}

func NewAuthClient(address string, opts ...grpc.DialOption) (*AuthClient, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}

	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}

	return &AuthClient{conn: conn}, nil
}

func (c *AuthClient) Close() error {
	return c.conn.Close()
}

func (c *AuthClient) Register(ctx context.Context, name, email, password string) (*AuthReply, error) {
	resp, err := c.call(ctx, "Register", map[string]any{
		"name":     name,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	return authReply(resp), nil
}

func (c *AuthClient) Login(ctx context.Context, email, password string) (*AuthReply, error) {
	resp, err := c.call(ctx, "Login", map[string]any{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	return authReply(resp), nil
}

func (c *AuthClient) ValidateToken(ctx context.Context, token string) (*Identity, error) {
	resp, err := c.call(ctx, "ValidateToken", map[string]any{"token": token})
	if err != nil {
		return nil, err
	}
	return &Identity{
		UserID: stringField(resp, "user_id"),
		Name:   stringField(resp, "name"),
		Email:  stringField(resp, "email"),
	}, nil
}

func (c *AuthClient) call(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func authReply(resp *structpb.Struct) *AuthReply {
	return &AuthReply{
		UserID:    stringField(resp, "user_id"),
		Name:      stringField(resp, "name"),
		Email:     stringField(resp, "email"),
		Token:     stringField(resp, "token"),
		ExpiresAt: time.Unix(int64(resp.GetFields()["expires_at"].GetNumberValue()), 0),
	}
}
