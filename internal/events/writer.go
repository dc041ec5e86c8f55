package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"petiqa/internal/domain"
)

// Writer appends immutable rows to the pet event log. Appends ride the
// caller's transaction so a log entry is never visible without the state
// change it describes.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type Payload map[string]any

func (w Writer) Append(ctx context.Context, tx *sql.Tx, petID, evtType, description string, effects, metadata Payload) (domain.EventLog, error) {
	if w.Now == nil {
		w.Now = time.Now
	}
	entry := domain.EventLog{
		ID:          uuid.New().String(),
		PetID:       petID,
		Type:        evtType,
		Description: description,
		CreatedAt:   w.Now().UTC().Format(time.RFC3339),
	}
	effectsJSON, err := marshalPayload(effects)
	if err != nil {
		return entry, fmt.Errorf("marshal event effects: %w", err)
	}
	metadataJSON, err := marshalPayload(metadata)
	if err != nil {
		return entry, fmt.Errorf("marshal event metadata: %w", err)
	}
	entry.EffectsJSON = effectsJSON
	entry.MetadataJSON = metadataJSON
	_, err = tx.ExecContext(ctx, `INSERT INTO event_logs(id,pet_id,type,description,effects_json,metadata_json,created_at) VALUES (?,?,?,?,?,?,?)`,
		entry.ID, entry.PetID, entry.Type, entry.Description, nullableStringPtr(entry.EffectsJSON), nullableStringPtr(entry.MetadataJSON), entry.CreatedAt)
	return entry, err
}

func marshalPayload(p Payload) (*string, error) {
	if len(p) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
