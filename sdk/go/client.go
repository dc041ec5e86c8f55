package petiqasdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Petiqa HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Pet represents the API pet model.
type Pet struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Character       *string `json:"character,omitempty"`
	Status          Status  `json:"status"`
	Wallet          Wallet  `json:"wallet"`
	TotalExperience int     `json:"total_experience"`
}

type Status struct {
	Energy    int    `json:"energy"`
	Mood      int    `json:"mood"`
	Satiation int    `json:"satiation"`
	Vitality  int    `json:"vitality"`
	UpdatedAt string `json:"updated_at"`
}

type Wallet struct {
	Coins     int    `json:"coins"`
	Points    int    `json:"points"`
	UpdatedAt string `json:"updated_at"`
}

type InventoryEntry struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Quantity int    `json:"quantity"`
}

type LedgerEntry struct {
	ID           int64   `json:"id"`
	Currency     string  `json:"currency"`
	Amount       int     `json:"amount"`
	BalanceAfter int     `json:"balance_after"`
	Reason       *string `json:"reason,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

type TaskRecord struct {
	TaskID         string `json:"task_id"`
	Completed      bool   `json:"completed"`
	RewardClaimed  bool   `json:"reward_claimed"`
	RewardCurrency string `json:"reward_currency"`
	RewardAmount   int    `json:"reward_amount"`
}

type TaskCycle struct {
	CycleKey string       `json:"cycle_key"`
	Tasks    []TaskRecord `json:"tasks"`
}

type Achievement struct {
	AchievementID string  `json:"achievement_id"`
	Completed     bool    `json:"completed"`
	Claimed       bool    `json:"claimed"`
	CompletedAt   *string `json:"completed_at,omitempty"`
	ClaimedAt     *string `json:"claimed_at,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreatePet creates a pet.
func (c *Client) CreatePet(ctx context.Context, name string, character *string) (Pet, error) {
	body := map[string]any{"name": name}
	if character != nil {
		body["character"] = *character
	}
	var resp Pet
	err := c.do(ctx, http.MethodPost, "v0/pets", body, &resp)
	return resp, err
}

// GetPet fetches a pet by id.
func (c *Client) GetPet(ctx context.Context, petID string) (Pet, error) {
	var resp Pet
	err := c.do(ctx, http.MethodGet, c.petPath(petID, ""), nil, &resp)
	return resp, err
}

// SetStatus sets status metrics to absolute values.
func (c *Client) SetStatus(ctx context.Context, petID string, values map[string]int) (Status, error) {
	var resp Status
	err := c.do(ctx, http.MethodPatch, c.petPath(petID, "status"), map[string]any{"set": values}, &resp)
	return resp, err
}

// IncStatus increments status metrics.
func (c *Client) IncStatus(ctx context.Context, petID string, values map[string]int) (Status, error) {
	var resp Status
	err := c.do(ctx, http.MethodPatch, c.petPath(petID, "status"), map[string]any{"inc": values}, &resp)
	return resp, err
}

// Tick advances simulated time.
func (c *Client) Tick(ctx context.Context, petID string, minutes int) (Status, error) {
	var resp Status
	err := c.do(ctx, http.MethodPost, c.petPath(petID, "status/tick"), map[string]any{"minutes": minutes}, &resp)
	return resp, err
}

// AdjustWallet applies wallet increments.
func (c *Client) AdjustWallet(ctx context.Context, petID string, inc map[string]int, reason string) (Wallet, error) {
	body := map[string]any{"inc": inc}
	if reason != "" {
		body["reason"] = reason
	}
	var resp Wallet
	err := c.do(ctx, http.MethodPatch, c.petPath(petID, "wallet"), body, &resp)
	return resp, err
}

// Transactions lists recent ledger entries.
func (c *Client) Transactions(ctx context.Context, petID, currency string, limit int) ([]LedgerEntry, error) {
	endpoint := c.petPath(petID, "wallet/transactions")
	params := url.Values{}
	if currency != "" {
		params.Set("currency", currency)
	}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	var resp struct {
		Items []LedgerEntry `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// AdjustInventory applies an atomic batch of item deltas.
func (c *Client) AdjustInventory(ctx context.Context, petID string, deltas map[string]int) (map[string]InventoryEntry, error) {
	adjustments := make([]map[string]any, 0, len(deltas))
	for item, delta := range deltas {
		adjustments = append(adjustments, map[string]any{"item": item, "delta": delta})
	}
	var resp struct {
		Items map[string]InventoryEntry `json:"items"`
	}
	err := c.do(ctx, http.MethodPatch, c.petPath(petID, "inventory"), map[string]any{"adjustments": adjustments}, &resp)
	return resp.Items, err
}

// UseItem consumes an item. applyEffects opts into the server's
// configured consumption boost.
func (c *Client) UseItem(ctx context.Context, petID, item string, quantity int, applyEffects bool) (map[string]InventoryEntry, error) {
	body := map[string]any{"item": item, "quantity": quantity}
	if applyEffects {
		body["apply_effects"] = true
	}
	var resp struct {
		Items map[string]InventoryEntry `json:"items"`
	}
	err := c.do(ctx, http.MethodPost, c.petPath(petID, "inventory/use"), body, &resp)
	return resp.Items, err
}

// DailyTasks returns today's task cycle.
func (c *Client) DailyTasks(ctx context.Context, petID string) (TaskCycle, error) {
	var resp TaskCycle
	err := c.do(ctx, http.MethodGet, c.petPath(petID, "tasks"), nil, &resp)
	return resp, err
}

// CompleteTask completes a daily task and claims its reward.
func (c *Client) CompleteTask(ctx context.Context, petID, taskID string) (TaskRecord, error) {
	endpoint := c.petPath(petID, fmt.Sprintf("tasks/%s/complete", url.PathEscape(taskID)))
	var resp TaskRecord
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{}, &resp)
	return resp, err
}

// ClaimAchievement claims an achievement.
func (c *Client) ClaimAchievement(ctx context.Context, petID, achievementID string) (Achievement, error) {
	endpoint := c.petPath(petID, fmt.Sprintf("achievements/%s/claim", url.PathEscape(achievementID)))
	var resp Achievement
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) petPath(petID, p string) string {
	base := fmt.Sprintf("v0/pets/%s", url.PathEscape(petID))
	if p == "" {
		return base
	}
	return base + "/" + strings.TrimLeft(p, "/")
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
