package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/airyou-code/ai-nutritiolog-bot/models"
	"github.com/airyou-code/ai-nutritiolog-bot/nutrition"
	"github.com/airyou-code/ai-nutritiolog-bot/utils"
)

// DiaryStore is the slice of storage used directly by the gateway, outside
// the food state machine: profiles, the daily summary and diary browsing.
type DiaryStore interface {
	SaveProfile(ctx context.Context, userID string, profile models.UserProfile) error
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	DailySummary(ctx context.Context, userID string, day time.Time) (*models.DailySummary, error)
	RecordsByDay(ctx context.Context, userID string, day time.Time) ([]*models.FoodRecord, error)
	GetRecord(ctx context.Context, id string) (*models.FoodRecord, error)
	DeleteRecord(ctx context.Context, userID, id string) (bool, error)
}

// Transcriber converts a voice note into text. Nil when voice input is
// not configured.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Gateway accepts websocket connections and routes messages into per-user
// food sessions.
type Gateway struct {
	Pipeline    *Pipeline
	Diary       DiaryStore
	Transcriber Transcriber
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow connections from any origin
	},
}

type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// wsTransport serializes writes to a single websocket connection. The food
// session and the heartbeat both write; gorilla/websocket forbids concurrent
// writers.
type wsTransport struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	logger *zap.Logger
}

func (t *wsTransport) Render(promptKind string, payload interface{}) error {
	msg := WebSocketMessage{
		Type:      promptKind,
		Data:      payload,
		Timestamp: time.Now(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.conn.WriteJSON(msg); err != nil {
		t.logger.Error("Failed to send websocket message", zap.Error(err), zap.String("type", promptKind))
		return err
	}
	return nil
}

// HandleFoodSession upgrades the HTTP connection and runs one dialogue
// session until the client disconnects.
func (g *Gateway) HandleFoodSession(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Error("Failed to upgrade to websocket", zap.Error(err))
		return
	}
	defer conn.Close()

	sessionID := uuid.New().String()
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = sessionID
	}

	logger := zap.L().With(zap.String("session_id", sessionID), zap.String("user_id", userID))
	logger.Info("New food session started")

	transport := &wsTransport{conn: conn, logger: logger}
	session := NewFoodSession(sessionID, userID, g.Pipeline, transport)

	g.listenWebsocketMessages(r.Context(), conn, session, transport, logger)

	logger.Info("Food session ended")
}

func (g *Gateway) listenWebsocketMessages(ctx context.Context, conn *websocket.Conn, session *FoodSession, transport *wsTransport, logger *zap.Logger) {
	for {
		var msg WebSocketMessage
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error", zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "text":
			g.handleText(ctx, session, msg.Data, logger)
		case "photo":
			g.handlePhoto(ctx, session, msg.Data, logger)
		case "voice":
			g.handleVoice(ctx, session, transport, msg.Data, logger)
		case "select_portion":
			g.handleSelectPortion(ctx, session, msg.Data, logger)
		case "confirm":
			if err := session.Confirm(ctx); err != nil {
				logger.Error("Confirm failed", zap.Error(err))
			}
		case "change_portion":
			if err := session.ChangePortion(ctx); err != nil {
				logger.Error("Change portion failed", zap.Error(err))
			}
		case "cancel":
			if err := session.Cancel(ctx); err != nil {
				logger.Error("Cancel failed", zap.Error(err))
			}
		case "profile":
			g.handleProfile(ctx, session, transport, msg.Data, logger)
		case "summary":
			g.handleSummary(ctx, session, transport, logger)
		case "diary":
			g.handleDiary(ctx, session, transport, msg.Data, logger)
		case "entry":
			g.handleEntry(ctx, session, transport, msg.Data, logger)
		case "delete_entry":
			g.handleDeleteEntry(ctx, session, transport, msg.Data, logger)
		case "ping":
			transport.Render("pong", nil)
		case "stop":
			logger.Info("Received stop command from client")
			transport.Render("stop_confirmation", map[string]interface{}{
				"session_id": session.ID,
			})
			return
		default:
			logger.Warn("Unknown message type", zap.String("type", msg.Type))
		}
	}
}

func (g *Gateway) handleText(ctx context.Context, session *FoodSession, data interface{}, logger *zap.Logger) {
	text, ok := data.(string)
	if !ok {
		logger.Error("Invalid text data format")
		return
	}
	if err := session.HandleText(ctx, text); err != nil {
		logger.Error("Text handling failed", zap.Error(err))
	}
}

func (g *Gateway) handlePhoto(ctx context.Context, session *FoodSession, data interface{}, logger *zap.Logger) {
	photoData, ok := data.(map[string]interface{})
	if !ok {
		logger.Error("Invalid photo data format")
		return
	}

	encoded, _ := photoData["image"].(string)
	caption, _ := photoData["caption"].(string)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		logger.Error("Failed to decode photo payload", zap.Error(err))
		return
	}

	prepared, err := utils.PrepareImage(raw)
	if err != nil {
		logger.Error("Failed to prepare photo", zap.Error(err))
		return
	}

	if err := session.HandlePhoto(ctx, prepared, caption); err != nil {
		logger.Error("Photo handling failed", zap.Error(err))
	}
}

func (g *Gateway) handleVoice(ctx context.Context, session *FoodSession, transport Transport, data interface{}, logger *zap.Logger) {
	if g.Transcriber == nil {
		transport.Render("voice_unavailable", nil)
		return
	}

	encoded, ok := data.(string)
	if !ok {
		logger.Error("Invalid voice data format")
		return
	}

	audio, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		logger.Error("Failed to decode voice payload", zap.Error(err))
		return
	}

	transcript, err := g.Transcriber.Transcribe(ctx, audio)
	if err != nil {
		logger.Error("Transcription failed", zap.Error(err))
		transport.Render("voice_failed", nil)
		return
	}
	logger.Debug("Transcribed voice note", zap.Int("length", len(transcript)))

	if err := session.HandleTranscript(ctx, transcript); err != nil {
		logger.Error("Transcript handling failed", zap.Error(err))
	}
}

func (g *Gateway) handleSelectPortion(ctx context.Context, session *FoodSession, data interface{}, logger *zap.Logger) {
	// JSON numbers arrive as float64.
	index, ok := data.(float64)
	if !ok {
		logger.Error("Invalid portion index format")
		return
	}
	if err := session.SelectPortion(ctx, int(index)); err != nil {
		logger.Error("Portion selection failed", zap.Error(err))
	}
}

func (g *Gateway) handleProfile(ctx context.Context, session *FoodSession, transport Transport, data interface{}, logger *zap.Logger) {
	raw, err := json.Marshal(data)
	if err != nil {
		logger.Error("Invalid profile data format", zap.Error(err))
		return
	}

	var profile models.UserProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		logger.Error("Failed to parse profile", zap.Error(err))
		transport.Render("profile_invalid", nil)
		return
	}

	if err := g.Diary.SaveProfile(ctx, session.UserID, profile); err != nil {
		logger.Error("Failed to save profile", zap.Error(err))
		transport.Render("profile_save_failed", nil)
		return
	}

	targets, ok := nutrition.Macros(profile)
	if !ok {
		transport.Render("profile_incomplete", nil)
		return
	}

	transport.Render("profile_saved", map[string]interface{}{
		"targets": targets,
	})
}

func (g *Gateway) handleSummary(ctx context.Context, session *FoodSession, transport Transport, logger *zap.Logger) {
	summary, err := g.Diary.DailySummary(ctx, session.UserID, time.Now().UTC())
	if err != nil {
		logger.Error("Failed to load daily summary", zap.Error(err))
		transport.Render("summary_failed", nil)
		return
	}

	payload := map[string]interface{}{
		"summary": summary,
	}

	// Attach progress against targets when a complete profile exists.
	profile, err := g.Diary.GetProfile(ctx, session.UserID)
	if err == nil && profile != nil {
		if targets, ok := nutrition.Macros(*profile); ok {
			payload["targets"] = targets
		}
	}

	transport.Render("summary", payload)
}

// handleDiary lists the user's entries for one day, newest first. The data
// may carry a "date" field (YYYY-MM-DD, UTC); absent means today.
func (g *Gateway) handleDiary(ctx context.Context, session *FoodSession, transport Transport, data interface{}, logger *zap.Logger) {
	day := time.Now().UTC()
	if fields, ok := data.(map[string]interface{}); ok {
		if raw, ok := fields["date"].(string); ok && raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				logger.Warn("Invalid diary date", zap.String("date", raw))
				transport.Render("diary_invalid_date", map[string]interface{}{"date": raw})
				return
			}
			day = parsed
		}
	}

	records, err := g.Diary.RecordsByDay(ctx, session.UserID, day)
	if err != nil {
		logger.Error("Failed to list diary entries", zap.Error(err))
		transport.Render("diary_failed", nil)
		return
	}

	transport.Render("diary", map[string]interface{}{
		"date":    day.Format("2006-01-02"),
		"entries": records,
	})
}

// handleEntry renders one diary entry in full. Entries belonging to another
// user are reported as missing rather than leaked.
func (g *Gateway) handleEntry(ctx context.Context, session *FoodSession, transport Transport, data interface{}, logger *zap.Logger) {
	id, ok := data.(string)
	if !ok || id == "" {
		logger.Error("Invalid entry id format")
		return
	}

	record, err := g.Diary.GetRecord(ctx, id)
	if err != nil || record.UserID != session.UserID {
		if err != nil {
			logger.Warn("Failed to load diary entry", zap.Error(err), zap.String("entry_id", id))
		}
		transport.Render("entry_not_found", map[string]interface{}{"id": id})
		return
	}

	transport.Render("entry", map[string]interface{}{"entry": record})
}

func (g *Gateway) handleDeleteEntry(ctx context.Context, session *FoodSession, transport Transport, data interface{}, logger *zap.Logger) {
	id, ok := data.(string)
	if !ok || id == "" {
		logger.Error("Invalid entry id format")
		return
	}

	deleted, err := g.Diary.DeleteRecord(ctx, session.UserID, id)
	if err != nil {
		logger.Error("Failed to delete diary entry", zap.Error(err), zap.String("entry_id", id))
		transport.Render("delete_failed", map[string]interface{}{"id": id})
		return
	}
	if !deleted {
		transport.Render("entry_not_found", map[string]interface{}{"id": id})
		return
	}

	transport.Render("entry_deleted", map[string]interface{}{"id": id})
}
