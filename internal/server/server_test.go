package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"petiqa/internal/config"
	"petiqa/internal/db"
	"petiqa/internal/domain"
	"petiqa/internal/engine"
	"petiqa/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default())
	e.Now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	handler, err := New(Config{Engine: e, BasePath: "/v0"})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func createTestPet(t *testing.T, srv *testServer, name string) domain.Pet {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/pets", map[string]any{"name": name}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create pet status %d: %s", res.StatusCode, string(data))
	}
	var pet domain.Pet
	if err := json.Unmarshal(data, &pet); err != nil {
		t.Fatalf("unmarshal pet: %v", err)
	}
	return pet
}

func TestPetLifecycleFlow(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	pet := createTestPet(t, srv, "Momo")

	if pet.Status.Energy != 100 || pet.Wallet.Coins != 0 {
		t.Fatalf("unexpected defaults: %+v", pet)
	}

	// status patch: set then increment
	res, data := doJSON(t, client, http.MethodPatch, srv.URL+"/v0/pets/"+pet.ID+"/status", map[string]any{
		"set": map[string]any{"mood": 0},
		"inc": map[string]any{"mood": 30},
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("patch status %d: %s", res.StatusCode, string(data))
	}
	var status domain.StatusSnapshot
	_ = json.Unmarshal(data, &status)
	if status.Mood != 30 {
		t.Fatalf("mood = %d, want 30", status.Mood)
	}

	// wallet credit then ledger check
	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/pets/"+pet.ID+"/wallet", map[string]any{
		"inc": map[string]any{"coins": 25}, "reason": "quest",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("patch wallet %d: %s", res.StatusCode, string(data))
	}
	var wallet domain.WalletSnapshot
	_ = json.Unmarshal(data, &wallet)
	if wallet.Coins != 25 {
		t.Fatalf("coins = %d, want 25", wallet.Coins)
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/pets/"+pet.ID+"/wallet/transactions", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list transactions %d: %s", res.StatusCode, string(data))
	}
	var txns struct {
		Items []domain.LedgerEntry `json:"items"`
	}
	_ = json.Unmarshal(data, &txns)
	if len(txns.Items) != 1 || txns.Items[0].Amount != 25 {
		t.Fatalf("ledger = %+v", txns.Items)
	}

	// inventory add and use
	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/pets/"+pet.ID+"/inventory", map[string]any{
		"adjustments": []map[string]any{{"item": "Apple", "delta": 2}},
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("adjust inventory %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/pets/"+pet.ID+"/inventory/use", map[string]any{
		"item": "Apple",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("use item %d: %s", res.StatusCode, string(data))
	}
	var inv struct {
		Items map[string]domain.InventoryEntry `json:"items"`
	}
	_ = json.Unmarshal(data, &inv)
	if inv.Items["Apple"].Quantity != 1 {
		t.Fatalf("apple quantity = %d, want 1", inv.Items["Apple"].Quantity)
	}

	// daily tasks and fused complete+claim
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/pets/"+pet.ID+"/tasks", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list tasks %d: %s", res.StatusCode, string(data))
	}
	var cycle domain.TaskCycle
	_ = json.Unmarshal(data, &cycle)
	if len(cycle.Tasks) == 0 {
		t.Fatalf("no seeded tasks: %s", string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/pets/"+pet.ID+"/tasks/feed-pet/complete", map[string]any{}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("complete task %d: %s", res.StatusCode, string(data))
	}
	var task domain.TaskRecord
	_ = json.Unmarshal(data, &task)
	if !task.Completed || !task.RewardClaimed {
		t.Fatalf("task = %+v", task)
	}

	// progress aggregate; sections are a comma-separated list
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/pets/"+pet.ID+"/progress?include=wallet,tasks", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("progress %d: %s", res.StatusCode, string(data))
	}
	var progress struct {
		Wallet *domain.WalletSnapshot `json:"wallet"`
		Status *domain.StatusSnapshot `json:"status"`
		Tasks  []domain.TaskRecord    `json:"tasks"`
	}
	_ = json.Unmarshal(data, &progress)
	if progress.Wallet == nil || len(progress.Tasks) == 0 {
		t.Fatalf("progress sections missing: %s", string(data))
	}
	if progress.Status != nil {
		t.Fatalf("progress leaked status section: %s", string(data))
	}
}

func TestErrorEnvelope(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	pet := createTestPet(t, srv, "Kiwi")

	// duplicate name conflicts
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/pets", map[string]any{"name": "Kiwi"}, nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate name status %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Error.Code != "conflict" {
		t.Fatalf("code = %s, want conflict", envelope.Error.Code)
	}

	// unknown pet is 404
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/pets/7b8e4cb4-3f62-4f7e-9b89-000000000000/status", nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown pet status %d: %s", res.StatusCode, string(data))
	}

	// malformed id is 400
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/pets/not-a-uuid/status", nil, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed id status %d: %s", res.StatusCode, string(data))
	}
	_ = json.Unmarshal(data, &envelope)
	if envelope.Error.Code != "invalid_request" {
		t.Fatalf("code = %s, want invalid_request", envelope.Error.Code)
	}

	// inventory underflow rejected with detail payload
	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/pets/"+pet.ID+"/inventory", map[string]any{
		"adjustments": []map[string]any{{"item": "Potion", "delta": -1}},
	}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("underflow status %d: %s", res.StatusCode, string(data))
	}
	_ = json.Unmarshal(data, &envelope)
	if envelope.Error.Details["item"] != "Potion" {
		t.Fatalf("details = %+v", envelope.Error.Details)
	}
}

func TestUseItemEffectsOptIn(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	pet := createTestPet(t, srv, "Nori")

	res, data := doJSON(t, client, http.MethodPatch, srv.URL+"/v0/pets/"+pet.ID+"/status", map[string]any{
		"set": map[string]any{"energy": 50, "mood": 50},
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("set status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/pets/"+pet.ID+"/inventory", map[string]any{
		"adjustments": []map[string]any{{"item": "Apple", "delta": 2}},
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("adjust inventory %d: %s", res.StatusCode, string(data))
	}

	// bare use only consumes stock
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/pets/"+pet.ID+"/inventory/use", map[string]any{
		"item": "Apple",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("use item %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/pets/"+pet.ID+"/status", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get status %d: %s", res.StatusCode, string(data))
	}
	var status domain.StatusSnapshot
	_ = json.Unmarshal(data, &status)
	if status.Energy != 50 || status.Mood != 50 {
		t.Fatalf("status after bare use = %+v, want untouched 50/50", status)
	}

	// opting in applies the configured boost
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/pets/"+pet.ID+"/inventory/use", map[string]any{
		"item": "Apple", "apply_effects": true,
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("use with effects %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/pets/"+pet.ID+"/status", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get status %d: %s", res.StatusCode, string(data))
	}
	_ = json.Unmarshal(data, &status)
	if status.Energy != 55 || status.Mood != 52 {
		t.Fatalf("status after boosted use = %+v, want energy 55 mood 52", status)
	}
}

func TestTickEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	pet := createTestPet(t, srv, "Tico")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/pets/"+pet.ID+"/status/tick", map[string]any{"minutes": 15}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("tick %d: %s", res.StatusCode, string(data))
	}
	var status domain.StatusSnapshot
	_ = json.Unmarshal(data, &status)
	if status.Satiation != 97 || status.Mood != 97 {
		t.Fatalf("after tick: %+v", status)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/pets/"+pet.ID+"/status/tick", map[string]any{"minutes": 999}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("out-of-range tick %d: %s", res.StatusCode, string(data))
	}
}

func TestHealthOpenToAnyone(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health %d: %s", res.StatusCode, string(data))
	}
}
