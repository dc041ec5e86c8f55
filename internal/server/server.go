package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"petiqa/internal/domain"
	"petiqa/internal/engine"
	"petiqa/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"invalid_request"`
	Message string         `json:"message" example:"insufficient item quantity"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"item\":\"Potion\"}"`
}

type bodyBytesKey struct{}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Petiqa API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema violations come back as 400 invalid_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Petiqa API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerPets(group, cfg.Engine)
	registerStatus(group, cfg.Engine)
	registerWallet(group, cfg.Engine)
	registerInventory(group, cfg.Engine)
	registerTasks(group, cfg.Engine)
	registerAchievements(group, cfg.Engine)
	registerActivities(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerProgress(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var ee *engine.Error
	if errors.As(err, &ee) {
		switch ee.Kind {
		case engine.KindNotFound:
			return newAPIError(http.StatusNotFound, "not_found", ee.Message, ee.Details)
		case engine.KindConflict:
			return newAPIError(http.StatusConflict, "conflict", ee.Message, ee.Details)
		case engine.KindInvalidRequest:
			return newAPIError(http.StatusBadRequest, "invalid_request", ee.Message, ee.Details)
		}
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func bodyBytes(ctx context.Context) []byte {
	b, _ := ctx.Value(bodyBytesKey{}).([]byte)
	return b
}

func rawBodyMap(ctx context.Context) map[string]json.RawMessage {
	var m map[string]json.RawMessage
	_ = json.Unmarshal(bodyBytes(ctx), &m)
	return m
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

type petPath struct {
	PetID string `path:"pet_id"`
}

func registerPets(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-pet",
		Method:        http.MethodPost,
		Path:          "/pets",
		Summary:       "Create pet",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreatePetRequest `json:"body"`
	}) (*struct {
		Body domain.Pet `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "invalid_request", "body required", nil)
		}
		if input.Body.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "invalid_request", "name is required", nil)
		}
		pet, err := e.CreatePet(ctx, input.Body.Name, input.Body.Character)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Pet `json:"body"`
		}{Body: pet}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-pets",
		Method:      http.MethodGet,
		Path:        "/pets",
		Summary:     "List pets",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Pet `json:"body"`
	}, error) {
		pets, err := e.ListPets(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if pets == nil {
			pets = []domain.Pet{}
		}
		return &struct {
			Body []domain.Pet `json:"body"`
		}{Body: pets}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-pet",
		Method:      http.MethodGet,
		Path:        "/pets/{pet_id}",
		Summary:     "Get pet",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *petPath) (*struct {
		Body domain.Pet `json:"body"`
	}, error) {
		pet, err := e.GetPet(ctx, input.PetID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Pet `json:"body"`
		}{Body: pet}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-pet",
		Method:      http.MethodPatch,
		Path:        "/pets/{pet_id}",
		Summary:     "Update pet identity",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		PetID string           `path:"pet_id"`
		Body  UpdatePetRequest `json:"body"`
	}) (*struct {
		Body domain.Pet `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "invalid_request", "body required", nil)
		}
		upd := engine.IdentityUpdate{Name: input.Body.Name}
		// "character": null clears, absence leaves alone
		if _, ok := rawBodyMap(ctx)["character"]; ok {
			upd.CharacterSet = true
			upd.Character = input.Body.Character
		}
		pet, err := e.UpdatePetIdentity(ctx, input.PetID, upd)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Pet `json:"body"`
		}{Body: pet}, nil
	})
}

func registerStatus(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/pets/{pet_id}/status",
		Summary:     "Pet status",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *petPath) (*struct {
		Body domain.StatusSnapshot `json:"body"`
	}, error) {
		snap, err := e.GetStatus(ctx, input.PetID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.StatusSnapshot `json:"body"`
		}{Body: snap}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-status",
		Method:      http.MethodPatch,
		Path:        "/pets/{pet_id}/status",
		Summary:     "Set or increment status metrics",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		PetID string              `path:"pet_id"`
		Body  UpdateStatusRequest `json:"body"`
	}) (*struct {
		Body domain.StatusSnapshot `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "invalid_request", "body required", nil)
		}
		snap, err := e.UpdateStatus(ctx, input.PetID, engine.StatusUpdate{
			Set: input.Body.Set.toEngine(),
			Inc: input.Body.Inc.toEngine(),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.StatusSnapshot `json:"body"`
		}{Body: snap}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "tick-status",
		Method:      http.MethodPost,
		Path:        "/pets/{pet_id}/status/tick",
		Summary:     "Advance simulated time",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		PetID string      `path:"pet_id"`
		Body  TickRequest `json:"body,omitempty"`
	}) (*struct {
		Body domain.StatusSnapshot `json:"body"`
	}, error) {
		snap, err := e.Tick(ctx, input.PetID, input.Body.Minutes)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.StatusSnapshot `json:"body"`
		}{Body: snap}, nil
	})
}

func registerWallet(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-wallet",
		Method:      http.MethodGet,
		Path:        "/pets/{pet_id}/wallet",
		Summary:     "Pet wallet",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *petPath) (*struct {
		Body domain.WalletSnapshot `json:"body"`
	}, error) {
		snap, err := e.GetWallet(ctx, input.PetID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.WalletSnapshot `json:"body"`
		}{Body: snap}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-wallet",
		Method:      http.MethodPatch,
		Path:        "/pets/{pet_id}/wallet",
		Summary:     "Set or increment wallet balances",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		PetID string              `path:"pet_id"`
		Body  UpdateWalletRequest `json:"body"`
	}) (*struct {
		Body domain.WalletSnapshot `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "invalid_request", "body required", nil)
		}
		snap, err := e.UpdateWallet(ctx, input.PetID, engine.WalletUpdate{
			Set:      input.Body.Set.toEngine(),
			Inc:      input.Body.Inc.toEngine(),
			Reason:   input.Body.Reason,
			Metadata: input.Body.Metadata,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.WalletSnapshot `json:"body"`
		}{Body: snap}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-wallet-transactions",
		Method:      http.MethodGet,
		Path:        "/pets/{pet_id}/wallet/transactions",
		Summary:     "Wallet ledger",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		PetID    string `path:"pet_id"`
		Currency string `query:"currency" enum:"coin,point,"`
		Limit    int    `query:"limit" default:"50"`
	}) (*struct {
		Body TransactionsResponse `json:"body"`
	}, error) {
		items, err := e.ListTransactions(ctx, input.PetID, input.Currency, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.LedgerEntry{}
		}
		return &struct {
			Body TransactionsResponse `json:"body"`
		}{Body: TransactionsResponse{Items: items}}, nil
	})
}

func registerInventory(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-inventory",
		Method:      http.MethodGet,
		Path:        "/pets/{pet_id}/inventory",
		Summary:     "Pet inventory",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		PetID string   `path:"pet_id"`
		Items []string `query:"items"`
	}) (*struct {
		Body InventoryResponse `json:"body"`
	}, error) {
		items, err := e.GetInventory(ctx, input.PetID, input.Items)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body InventoryResponse `json:"body"`
		}{Body: InventoryResponse{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "adjust-inventory",
		Method:      http.MethodPatch,
		Path:        "/pets/{pet_id}/inventory",
		Summary:     "Adjust item quantities",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		PetID string                 `path:"pet_id"`
		Body  AdjustInventoryRequest `json:"body"`
	}) (*struct {
		Body InventoryResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "invalid_request", "body required", nil)
		}
		items, err := e.AdjustInventory(ctx, input.PetID, input.Body.toEngine())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body InventoryResponse `json:"body"`
		}{Body: InventoryResponse{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "use-item",
		Method:      http.MethodPost,
		Path:        "/pets/{pet_id}/inventory/use",
		Summary:     "Consume an item",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		PetID string         `path:"pet_id"`
		Body  UseItemRequest `json:"body"`
	}) (*struct {
		Body InventoryResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "invalid_request", "body required", nil)
		}
		items, err := e.UseItem(ctx, input.PetID, input.Body.Item, input.Body.Quantity, input.Body.ApplyEffects)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body InventoryResponse `json:"body"`
		}{Body: InventoryResponse{Items: items}}, nil
	})
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-daily-tasks",
		Method:      http.MethodGet,
		Path:        "/pets/{pet_id}/tasks",
		Summary:     "Today's task cycle",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *petPath) (*struct {
		Body domain.TaskCycle `json:"body"`
	}, error) {
		cycle, err := e.DailyTasks(ctx, input.PetID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.TaskCycle `json:"body"`
		}{Body: cycle}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-task",
		Method:      http.MethodPost,
		Path:        "/pets/{pet_id}/tasks/{task_id}/complete",
		Summary:     "Complete a daily task and claim its reward",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		PetID  string              `path:"pet_id"`
		TaskID string              `path:"task_id"`
		Body   CompleteTaskRequest `json:"body,omitempty"`
	}) (*struct {
		Body domain.TaskRecord `json:"body"`
	}, error) {
		task, err := e.CompleteTask(ctx, input.PetID, input.TaskID, input.Body.Source)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.TaskRecord `json:"body"`
		}{Body: task}, nil
	})
}

func registerAchievements(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-achievements",
		Method:      http.MethodGet,
		Path:        "/pets/{pet_id}/achievements",
		Summary:     "Achievement states",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *petPath) (*struct {
		Body AchievementsResponse `json:"body"`
	}, error) {
		items, err := e.Achievements(ctx, input.PetID)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.AchievementState{}
		}
		return &struct {
			Body AchievementsResponse `json:"body"`
		}{Body: AchievementsResponse{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "claim-achievement",
		Method:      http.MethodPost,
		Path:        "/pets/{pet_id}/achievements/{achievement_id}/claim",
		Summary:     "Claim an achievement",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		PetID         string `path:"pet_id"`
		AchievementID string `path:"achievement_id"`
	}) (*struct {
		Body domain.AchievementState `json:"body"`
	}, error) {
		state, err := e.ClaimAchievement(ctx, input.PetID, input.AchievementID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.AchievementState `json:"body"`
		}{Body: state}, nil
	})
}

func registerActivities(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "complete-activity",
		Method:      http.MethodPost,
		Path:        "/pets/{pet_id}/activities/{activity_id}/complete",
		Summary:     "Record an activity completion",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		PetID      string                  `path:"pet_id"`
		ActivityID string                  `path:"activity_id"`
		Body       ActivityCompleteRequest `json:"body,omitempty"`
	}) (*struct {
		Body domain.ActivityLog `json:"body"`
	}, error) {
		entry, err := e.RecordActivityCompletion(ctx, input.PetID, input.ActivityID, input.Body.toEngine())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ActivityLog `json:"body"`
		}{Body: entry}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-activities",
		Method:      http.MethodGet,
		Path:        "/pets/{pet_id}/activities",
		Summary:     "Activity history",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		PetID string `path:"pet_id"`
		Limit int    `query:"limit" default:"50"`
	}) (*struct {
		Body ActivityLogsResponse `json:"body"`
	}, error) {
		items, err := e.ListActivityLogs(ctx, input.PetID, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.ActivityLog{}
		}
		return &struct {
			Body ActivityLogsResponse `json:"body"`
		}{Body: ActivityLogsResponse{Items: items}}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-event",
		Method:        http.MethodPost,
		Path:          "/pets/{pet_id}/events",
		Summary:       "Log a gameplay event",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		PetID string             `path:"pet_id"`
		Body  CreateEventRequest `json:"body"`
	}) (*struct {
		Body domain.EventLog `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "invalid_request", "body required", nil)
		}
		metadata := input.Body.Metadata
		if p, ok := principalFromContext(ctx); ok {
			if metadata == nil {
				metadata = map[string]any{}
			}
			metadata["actor"] = p.OwnerID
		}
		entry, err := e.LogEvent(ctx, input.PetID, input.Body.Type, input.Body.Description, input.Body.Effects, metadata)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.EventLog `json:"body"`
		}{Body: entry}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/pets/{pet_id}/events",
		Summary:     "Event history",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		PetID string `path:"pet_id"`
		Limit int    `query:"limit" default:"50"`
	}) (*struct {
		Body EventLogsResponse `json:"body"`
	}, error) {
		items, err := e.ListEventLogs(ctx, input.PetID, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.EventLog{}
		}
		return &struct {
			Body EventLogsResponse `json:"body"`
		}{Body: EventLogsResponse{Items: items}}, nil
	})
}

func registerProgress(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-progress",
		Method:      http.MethodGet,
		Path:        "/pets/{pet_id}/progress",
		Summary:     "Aggregated progress snapshot",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		PetID   string   `path:"pet_id"`
		Include []string `query:"include" doc:"Comma-separated sections: status,wallet,inventory,tasks,achievements. Empty means all."`
	}) (*struct {
		Body engine.Progress `json:"body"`
	}, error) {
		progress, err := e.GetProgress(ctx, input.PetID, input.Include)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.Progress `json:"body"`
		}{Body: progress}, nil
	})
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Petiqa API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}
