package client

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "tinyauth.v1.AuthService"

type Session struct {
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

func NewAuthClient(addr string) (*AuthClient, error) {
	conn, err := grpc.NewClient(
		addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, err
	}

	return &AuthClient{conn: conn}, nil
}

func (c *AuthClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *AuthClient) Register(email, password, name string) (*Session, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := c.invoke(ctx, "Register", map[string]any{
		"name":     name,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	return session(resp), nil
}

func (c *AuthClient) Login(email, password string) (*Session, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := c.invoke(ctx, "Login", map[string]any{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	return session(resp), nil
}

// Profile resolves the account behind token. It fails once the token has
// expired or the account was deleted.
func (c *AuthClient) Profile(token string) (*Identity, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := c.invoke(ctx, "ValidateToken", map[string]any{"token": token})
	if err != nil {
		return nil, err
	}
	return &Identity{
		UserID: field(resp, "user_id"),
		Name:   field(resp, "name"),
		Email:  field(resp, "email"),
	}, nil
}

func (c *AuthClient) invoke(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, "/"+serviceName+"/"+method, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func session(resp *structpb.Struct) *Session {
	return &Session{
		UserID:    field(resp, "user_id"),
		Name:      field(resp, "name"),
		Email:     field(resp, "email"),
		Token:     field(resp, "token"),
		ExpiresAt: time.Unix(int64(resp.GetFields()["expires_at"].GetNumberValue()), 0),
	}
}

func field(resp *structpb.Struct, key string) string {
	return resp.GetFields()[key].GetStringValue()
}
