package engine_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"petiqa/internal/config"
	"petiqa/internal/db"
	"petiqa/internal/domain"
	"petiqa/internal/engine"
	"petiqa/internal/migrate"
	"petiqa/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	Pet    domain.Pet
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	pet, err := eng.CreatePet(ctx, "Momo", nil)
	if err != nil {
		t.Fatalf("create pet: %v", err)
	}
	return testEnv{Engine: eng, Ctx: ctx, Pet: pet}
}

func intPtr(v int) *int { return &v }

func kindOf(t *testing.T, err error) engine.Kind {
	t.Helper()
	var e *engine.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected engine error, got %v", err)
	}
	return e.Kind
}

func TestCreatePetDefaults(t *testing.T) {
	env := newTestEnv(t)
	p := env.Pet
	if p.Status.Energy != 100 || p.Status.Mood != 100 || p.Status.Satiation != 100 || p.Status.Vitality != 100 {
		t.Fatalf("new pet metrics not at 100: %+v", p.Status)
	}
	if p.Wallet.Coins != 0 || p.Wallet.Points != 0 {
		t.Fatalf("new pet wallet not empty: %+v", p.Wallet)
	}
	if p.TotalExperience != 0 {
		t.Fatalf("new pet experience = %d", p.TotalExperience)
	}
}

func TestCreatePetNameConflict(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreatePet(env.Ctx, "Momo", nil)
	if kindOf(t, err) != engine.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestDuplicateNameHitsConstraint(t *testing.T) {
	env := newTestEnv(t)
	// A writer that skips the name check, like a create racing past it,
	// must surface the unique constraint as ErrNameTaken.
	tx, err := env.Engine.DB.BeginTx(env.Ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()
	dup := domain.NewPet("7b8e4cb4-3f62-4f7e-9b89-111111111111", "Momo", nil, time.Now())
	err = env.Engine.Repo.InsertPet(env.Ctx, tx, dup)
	if !errors.Is(err, repo.ErrNameTaken) {
		t.Fatalf("duplicate insert error = %v, want ErrNameTaken", err)
	}
}

func TestPetLookupErrors(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.GetPet(env.Ctx, "not-a-uuid")
	if kindOf(t, err) != engine.KindInvalidRequest {
		t.Fatalf("expected invalid_request for malformed id, got %v", err)
	}
	_, err = env.Engine.GetPet(env.Ctx, "7b8e4cb4-3f62-4f7e-9b89-000000000000")
	if kindOf(t, err) != engine.KindNotFound {
		t.Fatalf("expected not_found for unknown id, got %v", err)
	}
}

func TestStatusClampExtremes(t *testing.T) {
	env := newTestEnv(t)
	snap, err := env.Engine.UpdateStatus(env.Ctx, env.Pet.ID, engine.StatusUpdate{
		Set: &engine.StatusValues{Energy: intPtr(10000)},
		Inc: &engine.StatusValues{Mood: intPtr(-10000)},
	})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if snap.Energy != 100 {
		t.Fatalf("energy = %d, want 100", snap.Energy)
	}
	if snap.Mood != 0 {
		t.Fatalf("mood = %d, want 0", snap.Mood)
	}
}

func TestStatusSetThenInc(t *testing.T) {
	env := newTestEnv(t)
	snap, err := env.Engine.UpdateStatus(env.Ctx, env.Pet.ID, engine.StatusUpdate{
		Set: &engine.StatusValues{Energy: intPtr(100), Mood: intPtr(0), Satiation: intPtr(50), Vitality: intPtr(100)},
		Inc: &engine.StatusValues{Mood: intPtr(30)},
	})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if snap.Mood != 30 {
		t.Fatalf("mood = %d, want 30 (set before inc)", snap.Mood)
	}
	if snap.Satiation != 50 {
		t.Fatalf("satiation = %d, want 50", snap.Satiation)
	}
}

func TestStatusUpdateRequiresFields(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.UpdateStatus(env.Ctx, env.Pet.ID, engine.StatusUpdate{})
	if kindOf(t, err) != engine.KindInvalidRequest {
		t.Fatalf("expected invalid_request, got %v", err)
	}
}

func TestTickDecayAndRecovery(t *testing.T) {
	env := newTestEnv(t)
	// drain energy so the recovery is observable
	if _, err := env.Engine.UpdateStatus(env.Ctx, env.Pet.ID, engine.StatusUpdate{
		Set: &engine.StatusValues{Energy: intPtr(50)},
	}); err != nil {
		t.Fatal(err)
	}
	snap, err := env.Engine.Tick(env.Ctx, env.Pet.ID, 15)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if snap.Energy != 53 || snap.Mood != 97 || snap.Satiation != 97 {
		t.Fatalf("after 15m tick: %+v", snap)
	}
	snap, err = env.Engine.Tick(env.Ctx, env.Pet.ID, 15)
	if err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if snap.Energy != 56 || snap.Mood != 94 || snap.Satiation != 94 {
		t.Fatalf("after second 15m tick: %+v", snap)
	}
	pet, err := env.Engine.GetPet(env.Ctx, env.Pet.ID)
	if err != nil {
		t.Fatal(err)
	}
	if pet.LastTickAt == nil {
		t.Fatalf("last tick watermark not stamped")
	}
}

func TestTickEnergyGainCap(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.UpdateStatus(env.Ctx, env.Pet.ID, engine.StatusUpdate{
		Set: &engine.StatusValues{Energy: intPtr(0)},
	}); err != nil {
		t.Fatal(err)
	}
	// 60 minutes is 12 intervals, but energy gain is capped at 5
	snap, err := env.Engine.Tick(env.Ctx, env.Pet.ID, 60)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if snap.Energy != 5 {
		t.Fatalf("energy = %d, want capped gain of 5", snap.Energy)
	}
	if snap.Satiation != 88 {
		t.Fatalf("satiation = %d, want 88", snap.Satiation)
	}
}

func TestTickMinutesOutOfRange(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.Tick(env.Ctx, env.Pet.ID, 361)
	if kindOf(t, err) != engine.KindInvalidRequest {
		t.Fatalf("expected invalid_request, got %v", err)
	}
	_, err = env.Engine.Tick(env.Ctx, env.Pet.ID, -1)
	if kindOf(t, err) != engine.KindInvalidRequest {
		t.Fatalf("expected invalid_request for negative minutes, got %v", err)
	}
}

func TestWalletFloorAndLedger(t *testing.T) {
	env := newTestEnv(t)
	snap, err := env.Engine.UpdateWallet(env.Ctx, env.Pet.ID, engine.WalletUpdate{
		Inc: &engine.WalletValues{Coins: intPtr(10)}, Reason: "test credit",
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if snap.Coins != 10 {
		t.Fatalf("coins = %d, want 10", snap.Coins)
	}
	// over-debit floors at zero and ledgers the observed delta
	snap, err = env.Engine.UpdateWallet(env.Ctx, env.Pet.ID, engine.WalletUpdate{
		Inc: &engine.WalletValues{Coins: intPtr(-15)}, Reason: "test debit",
	})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if snap.Coins != 0 {
		t.Fatalf("coins = %d, want 0 after floored debit", snap.Coins)
	}
	entries, err := env.Engine.ListTransactions(env.Ctx, env.Pet.ID, domain.CurrencyCoin, 0)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("ledger entries = %d, want 2", len(entries))
	}
	// most recent first
	if entries[0].Amount != -10 || entries[0].BalanceAfter != 0 {
		t.Fatalf("debit entry = %+v, want amount -10 balance 0", entries[0])
	}
	if entries[1].Amount != 10 || entries[1].BalanceAfter != 10 {
		t.Fatalf("credit entry = %+v, want amount 10 balance 10", entries[1])
	}
}

func TestWalletNoLedgerWithoutChange(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.UpdateWallet(env.Ctx, env.Pet.ID, engine.WalletUpdate{
		Set: &engine.WalletValues{Coins: intPtr(0)},
	}); err != nil {
		t.Fatal(err)
	}
	entries, err := env.Engine.ListTransactions(env.Ctx, env.Pet.ID, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("ledger entries = %d, want 0 for no-op set", len(entries))
	}
}

func TestWalletUpdateRequiresFields(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.UpdateWallet(env.Ctx, env.Pet.ID, engine.WalletUpdate{})
	if kindOf(t, err) != engine.KindInvalidRequest {
		t.Fatalf("expected invalid_request, got %v", err)
	}
}

func TestInventoryBatchAtomicity(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.AdjustInventory(env.Ctx, env.Pet.ID, []engine.InventoryAdjustment{
		{Item: "Apple", Delta: 5},
		{Item: "Potion", Delta: -1},
	})
	if kindOf(t, err) != engine.KindInvalidRequest {
		t.Fatalf("expected invalid_request for underflow, got %v", err)
	}
	inv, err := env.Engine.GetInventory(env.Ctx, env.Pet.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(inv) != 0 {
		t.Fatalf("inventory = %v, want untouched after rejected batch", inv)
	}
}

func TestInventoryAdjustAndKinds(t *testing.T) {
	env := newTestEnv(t)
	inv, err := env.Engine.AdjustInventory(env.Ctx, env.Pet.ID, []engine.InventoryAdjustment{
		{Item: "Apple", Delta: 3},
		{Item: "Mystery Box", Delta: 1},
	})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if inv["Apple"].Quantity != 3 || inv["Apple"].Kind != domain.ItemKindFood {
		t.Fatalf("apple entry = %+v", inv["Apple"])
	}
	if inv["Mystery Box"].Kind != domain.ItemKindMisc {
		t.Fatalf("uncataloged item kind = %s, want misc", inv["Mystery Box"].Kind)
	}
}

func TestInventoryFilterOmitsAbsentItems(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.AdjustInventory(env.Ctx, env.Pet.ID, []engine.InventoryAdjustment{{Item: "Apple", Delta: 1}}); err != nil {
		t.Fatal(err)
	}
	inv, err := env.Engine.GetInventory(env.Ctx, env.Pet.ID, []string{"Apple", "Potion"})
	if err != nil {
		t.Fatal(err)
	}
	if len(inv) != 1 {
		t.Fatalf("filtered inventory = %v, want only held items", inv)
	}
	if _, ok := inv["Potion"]; ok {
		t.Fatalf("never-held item synthesized: %+v", inv["Potion"])
	}
	if inv["Apple"].Quantity != 1 {
		t.Fatalf("apple entry = %+v", inv["Apple"])
	}
}

func TestUseItemConsumesAndBoosts(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.UpdateStatus(env.Ctx, env.Pet.ID, engine.StatusUpdate{
		Set: &engine.StatusValues{Energy: intPtr(50), Mood: intPtr(50)},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.AdjustInventory(env.Ctx, env.Pet.ID, []engine.InventoryAdjustment{{Item: "Apple", Delta: 2}}); err != nil {
		t.Fatal(err)
	}
	inv, err := env.Engine.UseItem(env.Ctx, env.Pet.ID, "Apple", 0, true)
	if err != nil {
		t.Fatalf("use item: %v", err)
	}
	if inv["Apple"].Quantity != 1 {
		t.Fatalf("apple quantity = %d, want 1", inv["Apple"].Quantity)
	}
	status, err := env.Engine.GetStatus(env.Ctx, env.Pet.ID)
	if err != nil {
		t.Fatal(err)
	}
	if status.Energy != 55 || status.Mood != 52 {
		t.Fatalf("status after use = %+v, want energy 55 mood 52", status)
	}
}

func TestUseItemWithoutStock(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.UseItem(env.Ctx, env.Pet.ID, "Potion", 1, true)
	if kindOf(t, err) != engine.KindInvalidRequest {
		t.Fatalf("expected invalid_request, got %v", err)
	}
	// rejected use must not leak the status boost
	status, err := env.Engine.GetStatus(env.Ctx, env.Pet.ID)
	if err != nil {
		t.Fatal(err)
	}
	if status.Energy != 100 || status.Mood != 100 {
		t.Fatalf("status changed by failed use: %+v", status)
	}
}

func TestDailyTasksSeededFromCatalog(t *testing.T) {
	env := newTestEnv(t)
	cycle, err := env.Engine.DailyTasks(env.Ctx, env.Pet.ID)
	if err != nil {
		t.Fatalf("daily tasks: %v", err)
	}
	if cycle.CycleKey != "2024-01-01" {
		t.Fatalf("cycle key = %s, want 2024-01-01", cycle.CycleKey)
	}
	if len(cycle.Tasks) != 4 {
		t.Fatalf("tasks = %d, want 4 from the default catalog", len(cycle.Tasks))
	}
	if cycle.Tasks[0].TaskID != "feed-pet" || cycle.Tasks[0].RewardAmount != 10 {
		t.Fatalf("first task = %+v", cycle.Tasks[0])
	}
	// repeated call reuses the same cycle
	again, err := env.Engine.DailyTasks(env.Ctx, env.Pet.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != cycle.ID {
		t.Fatalf("second call created a new cycle")
	}
}

func TestCompleteTaskPaysOnce(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CompleteTask(env.Ctx, env.Pet.ID, "feed-pet", "test")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !task.Completed || !task.RewardClaimed {
		t.Fatalf("task not marked complete+claimed: %+v", task)
	}
	// retry is a no-op
	if _, err := env.Engine.CompleteTask(env.Ctx, env.Pet.ID, "feed-pet", "test"); err != nil {
		t.Fatalf("repeat complete: %v", err)
	}
	wallet, err := env.Engine.GetWallet(env.Ctx, env.Pet.ID)
	if err != nil {
		t.Fatal(err)
	}
	if wallet.Coins != 10 {
		t.Fatalf("coins = %d, want single 10 coin payout", wallet.Coins)
	}
	entries, err := env.Engine.ListTransactions(env.Ctx, env.Pet.ID, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(entries))
	}
	if entries[0].Reason == nil || *entries[0].Reason != "Task reward: feed-pet" {
		t.Fatalf("ledger reason = %v", entries[0].Reason)
	}
}

func TestCompleteUnknownTask(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CompleteTask(env.Ctx, env.Pet.ID, "no-such-task", "")
	if kindOf(t, err) != engine.KindNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestClaimAchievementIdempotent(t *testing.T) {
	env := newTestEnv(t)
	first, err := env.Engine.ClaimAchievement(env.Ctx, env.Pet.ID, "first-steps")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !first.Completed || !first.Claimed || first.CompletedAt == nil || first.ClaimedAt == nil {
		t.Fatalf("claim state = %+v", first)
	}
	second, err := env.Engine.ClaimAchievement(env.Ctx, env.Pet.ID, "first-steps")
	if err != nil {
		t.Fatalf("repeat claim: %v", err)
	}
	if *second.CompletedAt != *first.CompletedAt || *second.ClaimedAt != *first.ClaimedAt {
		t.Fatalf("repeat claim rewrote timestamps: %+v vs %+v", second, first)
	}
	list, err := env.Engine.Achievements(env.Ctx, env.Pet.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("achievements = %d, want 1", len(list))
	}
}

func TestActivityCompletionAppliesEffects(t *testing.T) {
	env := newTestEnv(t)
	score := 25
	entry, err := env.Engine.RecordActivityCompletion(env.Ctx, env.Pet.ID, "morning-run", engine.ActivityCompletion{
		Result: &engine.ActivityResult{Score: &score},
		Effects: &engine.ActivityEffects{
			Status:    &engine.StatusValues{Mood: intPtr(5), Energy: intPtr(-10)},
			Wallet:    []engine.WalletEffect{{Currency: domain.CurrencyCoin, Amount: 7}},
			Inventory: []engine.InventoryAdjustment{{Item: "Driftwood", Delta: 1}},
		},
		Metadata: map[string]any{"session": "dawn"},
	})
	if err != nil {
		t.Fatalf("record activity: %v", err)
	}
	if entry.ActivityID != "morning-run" || entry.ResultJSON == nil {
		t.Fatalf("activity log = %+v", entry)
	}
	pet, err := env.Engine.GetPet(env.Ctx, env.Pet.ID)
	if err != nil {
		t.Fatal(err)
	}
	if pet.TotalExperience != 25 {
		t.Fatalf("experience = %d, want 25", pet.TotalExperience)
	}
	if pet.Status.Mood != 100 || pet.Status.Energy != 90 {
		t.Fatalf("status = %+v, want mood clamped at 100, energy 90", pet.Status)
	}
	if pet.Wallet.Coins != 7 {
		t.Fatalf("coins = %d, want 7", pet.Wallet.Coins)
	}
	inv, err := env.Engine.GetInventory(env.Ctx, env.Pet.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if inv["Driftwood"].Quantity != 1 || inv["Driftwood"].Kind != domain.ItemKindMaterial {
		t.Fatalf("driftwood entry = %+v", inv["Driftwood"])
	}
	entries, err := env.Engine.ListTransactions(env.Ctx, env.Pet.ID, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Reason == nil || *entries[0].Reason != "Activity reward: morning-run" {
		t.Fatalf("ledger = %+v", entries)
	}
	// completion metadata travels to the ledger row
	if entries[0].MetadataJSON == nil ||
		!strings.Contains(*entries[0].MetadataJSON, `"session":"dawn"`) ||
		!strings.Contains(*entries[0].MetadataJSON, `"activity_id":"morning-run"`) {
		t.Fatalf("ledger metadata = %v", entries[0].MetadataJSON)
	}
	logs, err := env.Engine.ListActivityLogs(env.Ctx, env.Pet.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 {
		t.Fatalf("activity logs = %d, want 1", len(logs))
	}
}

func TestActivityInventoryUnderflowRollsBack(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.RecordActivityCompletion(env.Ctx, env.Pet.ID, "craft", engine.ActivityCompletion{
		Effects: &engine.ActivityEffects{
			Wallet:    []engine.WalletEffect{{Currency: domain.CurrencyCoin, Amount: 7}},
			Inventory: []engine.InventoryAdjustment{{Item: "Driftwood", Delta: -1}},
		},
	})
	if kindOf(t, err) != engine.KindInvalidRequest {
		t.Fatalf("expected invalid_request, got %v", err)
	}
	wallet, err := env.Engine.GetWallet(env.Ctx, env.Pet.ID)
	if err != nil {
		t.Fatal(err)
	}
	if wallet.Coins != 0 {
		t.Fatalf("coins = %d, wallet credit leaked from failed activity", wallet.Coins)
	}
	logs, err := env.Engine.ListActivityLogs(env.Ctx, env.Pet.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 0 {
		t.Fatalf("activity logs = %d, want none after rollback", len(logs))
	}
}

func TestLogEvent(t *testing.T) {
	env := newTestEnv(t)
	entry, err := env.Engine.LogEvent(env.Ctx, env.Pet.ID, "vet.visit", "Annual checkup", nil, map[string]any{"clinic": "central"})
	if err != nil {
		t.Fatalf("log event: %v", err)
	}
	if entry.Type != "vet.visit" {
		t.Fatalf("event = %+v", entry)
	}
	_, err = env.Engine.LogEvent(env.Ctx, env.Pet.ID, "", "missing type", nil, nil)
	if kindOf(t, err) != engine.KindInvalidRequest {
		t.Fatalf("expected invalid_request, got %v", err)
	}
	logs, err := env.Engine.ListEventLogs(env.Ctx, env.Pet.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	// pet.created plus the explicit event
	if len(logs) != 2 {
		t.Fatalf("event logs = %d, want 2", len(logs))
	}
}

func TestProgressSections(t *testing.T) {
	env := newTestEnv(t)
	full, err := env.Engine.GetProgress(env.Ctx, env.Pet.ID, nil)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if full.Status == nil || full.Wallet == nil || full.Tasks == nil {
		t.Fatalf("full progress missing sections: %+v", full)
	}
	walletOnly, err := env.Engine.GetProgress(env.Ctx, env.Pet.ID, []string{"wallet"})
	if err != nil {
		t.Fatalf("filtered progress: %v", err)
	}
	if walletOnly.Wallet == nil {
		t.Fatalf("wallet section missing")
	}
	if walletOnly.Status != nil || walletOnly.Tasks != nil || walletOnly.Achievements != nil {
		t.Fatalf("filtered progress leaked sections: %+v", walletOnly)
	}
}

func TestRenamePet(t *testing.T) {
	env := newTestEnv(t)
	other, err := env.Engine.CreatePet(env.Ctx, "Kiwi", nil)
	if err != nil {
		t.Fatal(err)
	}
	name := "Momo"
	_, err = env.Engine.UpdatePetIdentity(env.Ctx, other.ID, engine.IdentityUpdate{Name: &name})
	if kindOf(t, err) != engine.KindConflict {
		t.Fatalf("expected conflict on duplicate name, got %v", err)
	}
	name = "Kiwi II"
	updated, err := env.Engine.UpdatePetIdentity(env.Ctx, other.ID, engine.IdentityUpdate{Name: &name})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if updated.Name != "Kiwi II" {
		t.Fatalf("name = %s", updated.Name)
	}
}
