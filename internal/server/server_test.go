package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"bank-ledger/internal/config"
)

type ServerTestSuite struct {
	suite.Suite
	server *Server
}

func (s *ServerTestSuite) SetupTest() {
	cfg := config.Load()
	cfg.DBDriver = config.DriverSQLite
	cfg.SQLitePath = ":memory:"
	cfg.ServerPort = "0"
	cfg.JWTSecret = "server-test-secret-server-test-s"
	cfg.BootstrapRootUsername = "root"
	cfg.BootstrapRootPassword = "rootpass"
	cfg.CORSAllowedOrigins = []string{"http://localhost:5500"}

	srv, err := NewServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Require().NoError(err)
	s.server = srv
}

func (s *ServerTestSuite) TearDownTest() {
	s.server.Stop(context.Background())
}

func (s *ServerTestSuite) do(method, path, token, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.server.GetRouter().ServeHTTP(rec, req)

	var payload map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		dec := json.NewDecoder(rec.Body)
		dec.UseNumber()
		dec.Decode(&payload)
	}
	return rec, payload
}

func (s *ServerTestSuite) login(username, password string) string {
	rec, body := s.do(http.MethodPost, "/login", "", `{"username": "`+username+`", "password": "`+password+`"}`)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("Bearer", body["token_type"])
	return body["access_token"].(string)
}

func (s *ServerTestSuite) TestLedgerFlow() {
	rec, body := s.do(http.MethodPost, "/register", "", `{"username": "alice", "password": "alicepass"}`)
	s.Require().Equal(http.StatusCreated, rec.Code)
	s.NotEmpty(body["user_id"])

	rec, body = s.do(http.MethodPost, "/register", "", `{"username": "alice", "password": "x"}`)
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal("duplicate_username", body["code"])

	alice := s.login("alice", "alicepass")
	root := s.login("root", "rootpass")

	rec, body = s.do(http.MethodGet, "/current-user", alice, "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("standard", body["role"])
	s.NotContains(body, "password_hash")

	rec, body = s.do(http.MethodPost, "/accounts", alice, `{"customer_name": "Alice", "email": "alice@example.com", "balance": "100"}`)
	s.Require().Equal(http.StatusCreated, rec.Code)
	account := body["account"].(map[string]interface{})
	s.Equal(json.Number("100.00"), account["balance"])
	s.Equal(json.Number("1"), account["account_id"])

	rec, body = s.do(http.MethodPut, "/accounts/1", alice, `{"balance": "1000000"}`)
	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal("forbidden", body["code"])

	rec, _ = s.do(http.MethodPost, "/transactions", alice, `{"account_id": 1, "amount": 50, "transaction_type": "deposit"}`)
	s.Equal(http.StatusForbidden, rec.Code)

	rec, body = s.do(http.MethodPut, "/accounts/1", alice, "")
	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal("forbidden", body["code"])

	rec, _ = s.do(http.MethodPost, "/transactions", alice, "")
	s.Equal(http.StatusForbidden, rec.Code)

	rec, body = s.do(http.MethodPost, "/transactions", root, `{"account_id": "1", "amount": "50", "transaction_type": "deposit"}`)
	s.Require().Equal(http.StatusCreated, rec.Code)
	s.Equal(json.Number("150.00"), body["balance"])

	rec, body = s.do(http.MethodPost, "/transactions", root, `{"account_id": "1", "amount": "200", "transaction_type": "withdrawal"}`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("insufficient_funds", body["code"])

	rec, body = s.do(http.MethodGet, "/accounts/1", alice, "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(json.Number("150.00"), body["balance"])
	txs := body["transactions"].([]interface{})
	s.Require().Len(txs, 1)
	first := txs[0].(map[string]interface{})
	s.Equal("deposit", first["transaction_type"])
	s.Equal(json.Number("50.00"), first["amount"])
	s.NotEmpty(first["timestamp"])

	rec, body = s.do(http.MethodGet, "/transactions/1", alice, "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Len(body["transactions"], 1)

	rec, body = s.do(http.MethodGet, "/accounts/1/balance-logs", root, "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Len(body["balance_logs"], 2)

	rec, _ = s.do(http.MethodGet, "/accounts/1/balance-logs", alice, "")
	s.Equal(http.StatusForbidden, rec.Code)

	rec, body = s.do(http.MethodPut, "/accounts/1", root, `{"customer_name": "Alice Smith"}`)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("Alice Smith", body["account"].(map[string]interface{})["customer_name"])

	rec, _ = s.do(http.MethodDelete, "/accounts/1", root, "")
	s.Require().Equal(http.StatusOK, rec.Code)

	rec, body = s.do(http.MethodGet, "/accounts/1", alice, "")
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("account_not_found", body["code"])
}

func (s *ServerTestSuite) TestAuthFailures() {
	rec, body := s.do(http.MethodGet, "/accounts/1", "", "")
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("unauthorized", body["code"])

	rec, _ = s.do(http.MethodGet, "/accounts/1", "not-a-token", "")
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec, body = s.do(http.MethodPost, "/login", "", `{"username": "root", "password": "wrong"}`)
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("invalid_credentials", body["code"])

	token := s.login("root", "rootpass")
	rec, _ = s.do(http.MethodPost, "/logout", token, "")
	s.Require().Equal(http.StatusOK, rec.Code)

	rec, _ = s.do(http.MethodGet, "/current-user", token, "")
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *ServerTestSuite) TestRouteFallbacks() {
	rec, body := s.do(http.MethodGet, "/nope", "", "")
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("route_not_found", body["code"])

	rec, body = s.do(http.MethodPatch, "/accounts/1", "", "")
	s.Equal(http.StatusMethodNotAllowed, rec.Code)
	s.Equal("method_not_allowed", body["code"])
}

func (s *ServerTestSuite) TestCORSPreflight() {
	req := httptest.NewRequest(http.MethodOptions, "/accounts/1", nil)
	req.Header.Set("Origin", "http://localhost:5500")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)

	rec := httptest.NewRecorder()
	s.server.GetRouter().ServeHTTP(rec, req)

	s.Equal(http.StatusNoContent, rec.Code)
	s.Equal("http://localhost:5500", rec.Header().Get("Access-Control-Allow-Origin"))
	s.Contains(rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)
	s.Contains(rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	req = httptest.NewRequest(http.MethodOptions, "/accounts/1", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	s.server.GetRouter().ServeHTTP(rec, req)
	s.Empty(rec.Header().Get("Access-Control-Allow-Origin"))
}

func (s *ServerTestSuite) TestHealthAndMetrics() {
	rec, body := s.do(http.MethodGet, "/health", "", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("healthy", body["status"])
	s.NotEmpty(rec.Header().Get(requestIDHeader))

	rec, _ = s.do(http.MethodGet, "/metrics", "", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "ledger_http_requests_total")
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func TestNewServerRejectsBadConfig(t *testing.T) {
	cfg := config.Load()
	cfg.DBDriver = "oracle"

	_, err := NewServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err == nil {
		t.Fatal("expected an error for an unsupported driver")
	}
}
