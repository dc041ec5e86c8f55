package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"petiqa/internal/config"
	"petiqa/internal/db"
	"petiqa/internal/domain"
	"petiqa/internal/engine"
	"petiqa/internal/migrate"
)

func newAuthedServer(t *testing.T, auth AuthConfig) *httptest.Server {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	handler, err := New(Config{Engine: engine.New(conn, config.Default()), Auth: auth})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		srv.Close()
		conn.Close()
	})
	return srv
}

func TestAPIKeyRequired(t *testing.T) {
	srv := newAuthedServer(t, AuthConfig{APIKey: "sekrit"})
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/pets", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous list status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/pets", nil, map[string]string{"X-Api-Key": "wrong"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad key status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/pets", nil, map[string]string{"X-Api-Key": "sekrit"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("good key status %d: %s", res.StatusCode, string(data))
	}
	// health stays open
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(data))
	}
}

func TestAuthedEventCarriesActor(t *testing.T) {
	srv := newAuthedServer(t, AuthConfig{APIKey: "sekrit"})
	client := srv.Client()
	key := map[string]string{"X-Api-Key": "sekrit"}

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/pets", map[string]any{"name": "Keyed"}, key)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create pet %d: %s", res.StatusCode, string(data))
	}
	var pet domain.Pet
	if err := json.Unmarshal(data, &pet); err != nil {
		t.Fatalf("unmarshal pet: %v", err)
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/pets/"+pet.ID+"/events", map[string]any{
		"type": "note", "description": "checked in",
	}, key)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create event %d: %s", res.StatusCode, string(data))
	}
	var evt domain.EventLog
	if err := json.Unmarshal(data, &evt); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if evt.MetadataJSON == nil || !strings.Contains(*evt.MetadataJSON, `"actor":"api-key"`) {
		t.Fatalf("event metadata = %v, want actor stamp", evt.MetadataJSON)
	}
}

func TestJWTBearer(t *testing.T) {
	secret := "test-secret"
	srv := newAuthedServer(t, AuthConfig{JWTSecret: secret})
	client := srv.Client()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "owner-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/pets", nil, map[string]string{"Authorization": "Bearer " + signed})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("bearer status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/pets", nil, map[string]string{"Authorization": "Bearer not-a-token"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad bearer status %d: %s", res.StatusCode, string(data))
	}
}
