package activity

import (
	"encoding/json"
	"fmt"

	"squadup-backend/internal/database"
	"squadup-backend/internal/models"

	"github.com/google/uuid"
)

type LogOptions struct {
	GroupID     *uuid.UUID
	UserID      uuid.UUID
	UserName    string
	EntityType  string
	EntityID    uuid.UUID
	Action      models.ActivityAction
	Description string
	Before      any
	After       any
}

// Write appends one activity log entry. Snapshots marshal to JSON; a missing
// side is stored as the JSON literal null so the jsonb column stays valid.
// Logging failures are returned, not fatal: callers decide whether a failed
// log should abort the operation.
func Write(opts LogOptions) error {
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	entry := models.ActivityLog{
		GroupID:     opts.GroupID,
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := database.DB.Create(&entry).Error; err != nil {
		return fmt.Errorf("could not write activity log: %w", err)
	}
	return nil
}
