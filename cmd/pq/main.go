package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"petiqa/internal/app"
	"petiqa/internal/config"
	"petiqa/internal/db"
	"petiqa/internal/domain"
	"petiqa/internal/engine"
	"petiqa/internal/migrate"
	"petiqa/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "pq",
	Short: "Petiqa CLI",
	Long: `Petiqa is a virtual pet state engine.
- Status: four metrics (energy, mood, satiation, vitality) clamped to 0..100.
- Wallet: coin and point balances that never go negative, with a full ledger.
- Inventory: named item stacks, adjusted in all-or-nothing batches.
- Tasks: a daily cycle of tasks; completing one pays its reward exactly once.
- Achievements: claimable milestones, idempotent on repeat claims.
- Activities and events: a history of what your pet has been up to.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("PETIQA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().StringP("pet", "p", "", "pet id or name (defaults to the only pet)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("pet", rootCmd.PersistentFlags().Lookup("pet"))
}

func registerCommands() {
	rootCmd.AddCommand(petCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(walletCmd())
	rootCmd.AddCommand(inventoryCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(achievementCmd())
	rootCmd.AddCommand(activityCmd())
	rootCmd.AddCommand(eventCmd())
	rootCmd.AddCommand(progressCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
}

func petCmd() *cobra.Command {
	pet := &cobra.Command{Use: "pet", Short: "Manage pets"}
	pet.AddCommand(petCreateCmd())
	pet.AddCommand(petListCmd())
	pet.AddCommand(petShowCmd())
	pet.AddCommand(petRenameCmd())
	return pet
}

func petCreateCmd() *cobra.Command {
	var name, character string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a pet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var charPtr *string
				if cmd.Flags().Changed("character") {
					charPtr = &character
				}
				p, err := e.CreatePet(ctx, name, charPtr)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "pet name")
	cmd.Flags().StringVar(&character, "character", "", "character description")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func petListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				pets, err := e.ListPets(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(pets)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Energy", "Mood", "Satiation", "Vitality", "Coins", "Points"})
				for _, p := range pets {
					tw.AppendRow(table.Row{p.ID, p.Name, p.Status.Energy, p.Status.Mood, p.Status.Satiation, p.Status.Vitality, p.Wallet.Coins, p.Wallet.Points})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func petShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current pet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPet(cmd.Context(), func(ctx context.Context, e engine.Engine, pet domain.Pet) error {
				return printJSONOrTable(pet)
			})
		},
	}
	return cmd
}

func petRenameCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "rename",
		Short: "Rename the current pet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPet(cmd.Context(), func(ctx context.Context, e engine.Engine, pet domain.Pet) error {
				p, err := e.UpdatePetIdentity(ctx, pet.ID, engine.IdentityUpdate{Name: &name})
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func statusCmd() *cobra.Command {
	status := &cobra.Command{
		Use:   "status",
		Short: "Pet status metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPet(cmd.Context(), func(ctx context.Context, e engine.Engine, pet domain.Pet) error {
				return printJSONOrTable(pet.Status)
			})
		},
	}
	status.AddCommand(statusSetCmd())
	status.AddCommand(statusIncCmd())
	status.AddCommand(statusTickCmd())
	return status
}

func statusValueFlags(cmd *cobra.Command, vals *map[string]*int) {
	for _, metric := range []string{domain.MetricEnergy, domain.MetricMood, domain.MetricSatiation, domain.MetricVitality} {
		var v int
		cmd.Flags().IntVar(&v, metric, 0, metric+" value")
		(*vals)[metric] = &v
	}
}

func statusValuesFromFlags(cmd *cobra.Command, vals map[string]*int) *engine.StatusValues {
	out := &engine.StatusValues{}
	if cmd.Flags().Changed(domain.MetricEnergy) {
		out.Energy = vals[domain.MetricEnergy]
	}
	if cmd.Flags().Changed(domain.MetricMood) {
		out.Mood = vals[domain.MetricMood]
	}
	if cmd.Flags().Changed(domain.MetricSatiation) {
		out.Satiation = vals[domain.MetricSatiation]
	}
	if cmd.Flags().Changed(domain.MetricVitality) {
		out.Vitality = vals[domain.MetricVitality]
	}
	return out
}

func statusSetCmd() *cobra.Command {
	vals := map[string]*int{}
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set status metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPet(cmd.Context(), func(ctx context.Context, e engine.Engine, pet domain.Pet) error {
				snap, err := e.UpdateStatus(ctx, pet.ID, engine.StatusUpdate{Set: statusValuesFromFlags(cmd, vals), Source: "cli"})
				if err != nil {
					return err
				}
				return printJSONOrTable(snap)
			})
		},
	}
	statusValueFlags(cmd, &vals)
	return cmd
}

func statusIncCmd() *cobra.Command {
	vals := map[string]*int{}
	cmd := &cobra.Command{
		Use:   "inc",
		Short: "Increment status metrics (negative to decrement)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPet(cmd.Context(), func(ctx context.Context, e engine.Engine, pet domain.Pet) error {
				snap, err := e.UpdateStatus(ctx, pet.ID, engine.StatusUpdate{Inc: statusValuesFromFlags(cmd, vals), Source: "cli"})
				if err != nil {
					return err
				}
				return printJSONOrTable(snap)
			})
		},
	}
	statusValueFlags(cmd, &vals)
	return cmd
}

func statusTickCmd() *cobra.Command {
	var minutes int
	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Advance simulated time",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPet(cmd.Context(), func(ctx context.Context, e engine.Engine, pet domain.Pet) error {
				snap, err := e.Tick(ctx, pet.ID, minutes)
				if err != nil {
					return err
				}
				return printJSONOrTable(snap)
			})
		},
	}
	cmd.Flags().IntVar(&minutes, "minutes", 0, "elapsed minutes (default: one tick interval)")
	return cmd
}

func walletCmd() *cobra.Command {
	wallet := &cobra.Command{
		Use:   "wallet",
		Short: "Pet wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPet(cmd.Context(), func(ctx context.Context, e engine.Engine, pet domain.Pet) error {
				return printJSONOrTable(pet.Wallet)
			})
		},
	}
	wallet.AddCommand(walletAdjustCmd())
	wallet.AddCommand(walletHistoryCmd())
	return wallet
}

func walletAdjustCmd() *cobra.Command {
	var coins, points int
	var set bool
	var reason string
	cmd := &cobra.Command{
		Use:   "adjust",
		Short: "Credit, debit, or set wallet balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPet(cmd.Context(), func(ctx context.Context, e engine.Engine, pet domain.Pet) error {
				values := &engine.WalletValues{}
				if cmd.Flags().Changed("coins") {
					values.Coins = &coins
				}
				if cmd.Flags().Changed("points") {
					values.Points = &points
				}
				upd := engine.WalletUpdate{Reason: reason}
				if set {
					upd.Set = values
				} else {
					upd.Inc = values
				}
				snap, err := e.UpdateWallet(ctx, pet.ID, upd)
				if err != nil {
					return err
				}
				return printJSONOrTable(snap)
			})
		},
	}
	cmd.Flags().IntVar(&coins, "coins", 0, "coin delta (or value with --set)")
	cmd.Flags().IntVar(&points, "points", 0, "point delta (or value with --set)")
	cmd.Flags().BoolVar(&set, "set", false, "set absolute values instead of incrementing")
	cmd.Flags().StringVar(&reason, "reason", "", "ledger reason")
	return cmd
}

func walletHistoryCmd() *cobra.Command {
	var currency string
	var n int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Wallet ledger entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPet(cmd.Context(), func(ctx context.Context, e engine.Engine, pet domain.Pet) error {
				entries, err := e.ListTransactions(ctx, pet.ID, currency, n)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(entries)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Created", "Currency", "Amount", "Balance", "Reason"})
				for _, t := range entries {
					reason := ""
					if t.Reason != nil {
						reason = *t.Reason
					}
					tw.AppendRow(table.Row{t.CreatedAt, t.Currency, t.Amount, t.BalanceAfter, reason})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&currency, "currency", "", "filter by currency (coin or point)")
	cmd.Flags().IntVar(&n, "n", 50, "number of entries")
	return cmd
}

func inventoryCmd() *cobra.Command {
	inv := &cobra.Command{
		Use:   "inventory",
		Short: "Pet inventory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPet(cmd.Context(), func(ctx context.Context, e engine.Engine, pet domain.Pet) error {
				items, err := e.GetInventory(ctx, pet.ID, nil)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Item", "Kind", "Quantity"})
				for _, entry := range items {
					tw.AppendRow(table.Row{entry.Name, entry.Kind, entry.Quantity})
				}
				tw.Render()
				return nil
			})
		},
	}
	inv.AddCommand(inventoryAdjustCmd())
	inv.AddCommand(inventoryUseCmd())
	return inv
}

// parseAdjustments turns item=delta arguments into a batch.
func parseAdjustments(args []string) ([]engine.InventoryAdjustment, error) {
	var out []engine.InventoryAdjustment
	for _, arg := range args {
		name, deltaStr, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid adjustment %q; expected item=delta", arg)
		}
		var delta int
		if _, err := fmt.Sscanf(deltaStr, "%d", &delta); err != nil {
			return nil, fmt.Errorf("invalid delta in %q", arg)
		}
		out = append(out, engine.InventoryAdjustment{Item: name, Delta: delta})
	}
	return out, nil
}

func inventoryAdjustCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adjust <item=delta> [item=delta ...]",
		Short: "Adjust item quantities atomically",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adjustments, err := parseAdjustments(args)
			if err != nil {
				return err
			}
			return withPet(cmd.Context(), func(ctx context.Context, e engine.Engine, pet domain.Pet) error {
				items, err := e.AdjustInventory(ctx, pet.ID, adjustments)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	return cmd
}

func inventoryUseCmd() *cobra.Command {
	var quantity int
	var applyEffects bool
	cmd := &cobra.Command{
		Use:   "use <item>",
		Short: "Consume an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPet(cmd.Context(), func(ctx context.Context, e engine.Engine, pet domain.Pet) error {
				items, err := e.UseItem(ctx, pet.ID, args[0], quantity, applyEffects)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().IntVar(&quantity, "quantity", 1, "how many to consume")
	cmd.Flags().BoolVar(&applyEffects, "effects", false, "apply the consumption status boost")
	return cmd
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "Daily tasks"}
	task.AddCommand(taskListCmd())
	task.AddCommand(taskCompleteCmd())
	return task
}

func taskListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List today's tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPet(cmd.Context(), func(ctx context.Context, e engine.Engine, pet domain.Pet) error {
				cycle, err := e.DailyTasks(ctx, pet.ID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cycle)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Task", "Completed", "Claimed", "Reward"})
				for _, t := range cycle.Tasks {
					tw.AppendRow(table.Row{t.TaskID, t.Completed, t.RewardClaimed, fmt.Sprintf("%d %s", t.RewardAmount, t.RewardCurrency)})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func taskCompleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete <task-id>",
		Short: "Complete a task and claim its reward",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPet(cmd.Context(), func(ctx context.Context, e engine.Engine, pet domain.Pet) error {
				task, err := e.CompleteTask(ctx, pet.ID, args[0], "cli")
				if err != nil {
					return err
				}
				return printJSONOrTable(task)
			})
		},
	}
	return cmd
}

func achievementCmd() *cobra.Command {
	ach := &cobra.Command{Use: "achievement", Short: "Achievements"}
	ach.AddCommand(achievementListCmd())
	ach.AddCommand(achievementClaimCmd())
	return ach
}

func achievementListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List achievement states",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPet(cmd.Context(), func(ctx context.Context, e engine.Engine, pet domain.Pet) error {
				items, err := e.Achievements(ctx, pet.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	return cmd
}

func achievementClaimCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim <achievement-id>",
		Short: "Claim an achievement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPet(cmd.Context(), func(ctx context.Context, e engine.Engine, pet domain.Pet) error {
				state, err := e.ClaimAchievement(ctx, pet.ID, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(state)
			})
		},
	}
	return cmd
}

func activityCmd() *cobra.Command {
	act := &cobra.Command{Use: "activity", Short: "Activities"}
	act.AddCommand(activityCompleteCmd())
	act.AddCommand(activityHistoryCmd())
	return act
}

func activityCompleteCmd() *cobra.Command {
	var score, coins, points int
	cmd := &cobra.Command{
		Use:   "complete <activity-id>",
		Short: "Record an activity completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPet(cmd.Context(), func(ctx context.Context, e engine.Engine, pet domain.Pet) error {
				opts := engine.ActivityCompletion{}
				if cmd.Flags().Changed("score") {
					opts.Result = &engine.ActivityResult{Score: &score}
				}
				var effects engine.ActivityEffects
				if cmd.Flags().Changed("coins") {
					effects.Wallet = append(effects.Wallet, engine.WalletEffect{Currency: domain.CurrencyCoin, Amount: coins})
				}
				if cmd.Flags().Changed("points") {
					effects.Wallet = append(effects.Wallet, engine.WalletEffect{Currency: domain.CurrencyPoint, Amount: points})
				}
				if len(effects.Wallet) > 0 {
					opts.Effects = &effects
				}
				entry, err := e.RecordActivityCompletion(ctx, pet.ID, args[0], opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(entry)
			})
		},
	}
	cmd.Flags().IntVar(&score, "score", 0, "activity score (adds experience)")
	cmd.Flags().IntVar(&coins, "coins", 0, "coin reward")
	cmd.Flags().IntVar(&points, "points", 0, "point reward")
	return cmd
}

func activityHistoryCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Recent activity completions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPet(cmd.Context(), func(ctx context.Context, e engine.Engine, pet domain.Pet) error {
				items, err := e.ListActivityLogs(ctx, pet.ID, n)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of entries")
	return cmd
}

func eventCmd() *cobra.Command {
	evt := &cobra.Command{Use: "event", Short: "Event log"}
	evt.AddCommand(eventAddCmd())
	evt.AddCommand(eventTailCmd())
	return evt
}

func eventAddCmd() *cobra.Command {
	var evtType, description string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Log a gameplay event",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPet(cmd.Context(), func(ctx context.Context, e engine.Engine, pet domain.Pet) error {
				entry, err := e.LogEvent(ctx, pet.ID, evtType, description, nil, nil)
				if err != nil {
					return err
				}
				return printJSONOrTable(entry)
			})
		},
	}
	cmd.Flags().StringVar(&evtType, "type", "", "event type")
	cmd.Flags().StringVar(&description, "description", "", "event description")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func eventTailCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Recent events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPet(cmd.Context(), func(ctx context.Context, e engine.Engine, pet domain.Pet) error {
				items, err := e.ListEventLogs(ctx, pet.ID, n)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	return cmd
}

func progressCmd() *cobra.Command {
	var include []string
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Aggregated progress snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPet(cmd.Context(), func(ctx context.Context, e engine.Engine, pet domain.Pet) error {
				p, err := e.GetProgress(ctx, pet.ID, include)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringSliceVar(&include, "include", nil, "sections to include (status, wallet, inventory, tasks, achievements)")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Workspace config"}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default petiqa.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			authCfg := server.AuthConfig{
				JWTSecret: os.Getenv("PETIQA_JWT_SECRET"),
				APIKey:    os.Getenv("PETIQA_API_KEY"),
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Petiqa API on http://%s%s (db %s, Swagger UI at /docs)\n", addr, basePath, db.Path(workspace))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOptional(viper.GetString("workspace"))
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func withPet(ctx context.Context, fn func(context.Context, engine.Engine, domain.Pet) error) error {
	return withEngine(ctx, func(ctx context.Context, e engine.Engine) error {
		pet, err := app.ResolvePet(ctx, viper.GetString("pet"), e.Repo)
		if err != nil {
			return err
		}
		return fn(ctx, e, pet)
	})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
