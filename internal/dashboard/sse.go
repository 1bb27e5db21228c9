package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prominer44/Dare-or-truth/internal/models"
	"gorm.io/gorm"
)

// actionEvent holds data for an action SSE event.
type actionEvent struct {
	ID       uint   `json:"id"`
	GameID   uint   `json:"game_id"`
	ActorID  string `json:"actor_id"`
	Category string `json:"category"`
	Level    string `json:"level"`
	Status   string `json:"status"`
}

// handleSSE streams new turn outcomes as they land in the action log.
func handleSSE(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		// Send connected event.
		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		// If no DB, just send connected and return. Tests use nil DB.
		if db == nil {
			return
		}

		// Only stream actions logged after the client connects.
		var lastSeenID uint
		var latest models.Action
		if err := db.Order("id DESC").Limit(1).First(&latest).Error; err == nil {
			lastSeenID = latest.ID
		}

		ctx := c.Request.Context()
		ticker := time.NewTicker(2 * time.Second)
		heartbeat := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-ticker.C:
				var newActions []models.Action
				db.Where("id > ?", lastSeenID).
					Order("id ASC").
					Limit(50).
					Find(&newActions)

				if len(newActions) == 0 {
					continue
				}
				lastSeenID = newActions[len(newActions)-1].ID

				for _, a := range newActions {
					writeSSE(c.Writer, "action", actionEvent{
						ID:       a.ID,
						GameID:   a.GameID,
						ActorID:  a.ActorID,
						Category: a.Category,
						Level:    a.Level,
						Status:   a.Status,
					})
				}
				c.Writer.Flush()
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
