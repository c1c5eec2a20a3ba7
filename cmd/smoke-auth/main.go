package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type client struct {
	base string
	http *http.Client
}

func main() {
	log.SetFlags(0)
	base := envOr("IDENTITY_SMOKE_URL", "http://localhost:8080")
	grpcAddr := envOr("IDENTITY_SMOKE_GRPC_ADDR", "localhost:9090")
	username := envOr("IDENTITY_SMOKE_USER", "admin")
	password := envOr("IDENTITY_SMOKE_PASSWORD", "admin")

	c := &client{base: base, http: &http.Client{Timeout: 5 * time.Second}}

	var login struct {
		Token string `json:"token"`
	}
	c.call("/auth/token", map[string]string{"username": username, "password": password}, &login)
	if login.Token == "" {
		log.Fatal("login returned an empty token")
	}
	if !c.valid(login.Token) {
		log.Fatal("fresh token does not introspect as valid")
	}

	var refreshed struct {
		Token string `json:"token"`
	}
	c.call("/auth/refresh", map[string]string{"token": login.Token}, &refreshed)
	if c.valid(login.Token) {
		log.Fatal("refreshed token is still valid")
	}
	if !c.valid(refreshed.Token) {
		log.Fatal("new token does not introspect as valid")
	}

	c.call("/auth/logout", map[string]string{"token": refreshed.Token}, nil)
	if c.valid(refreshed.Token) {
		log.Fatal("token is still valid after logout")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("dial grpc at %s: %v", grpcAddr, err)
	}
	defer conn.Close()
	health, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		log.Fatalf("grpc health: %v", err)
	}
	if health.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		log.Fatalf("grpc health: %s", protojson.Format(health))
	}

	fmt.Printf("✅ identity smoke test passed: user=%s\n", username)
}

func (c *client) valid(token string) bool {
	var res struct {
		Valid bool `json:"valid"`
	}
	c.call("/auth/introspect", map[string]string{"token": token}, &res)
	return res.Valid
}

func (c *client) call(path string, body any, out any) {
	payload, err := json.Marshal(body)
	if err != nil {
		log.Fatalf("%s: marshal: %v", path, err)
	}
	resp, err := c.http.Post(c.base+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("%s: %v", path, err)
	}
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		log.Fatalf("%s: decode: %v", path, err)
	}
	if resp.StatusCode != http.StatusOK || env.Code != 1000 {
		log.Fatalf("%s: status %d code %d: %s", path, resp.StatusCode, env.Code, env.Message)
	}
	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			log.Fatalf("%s: decode result: %v", path, err)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
