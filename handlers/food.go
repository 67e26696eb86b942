package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/airyou-code/ai-nutritiolog-bot/models"
	"github.com/airyou-code/ai-nutritiolog-bot/nutrition"
)

// Stage is the conversation position of one food session.
type Stage string

const (
	StageIdle                  Stage = "idle"
	StageAwaitingPortion       Stage = "awaiting_portion"
	StageAwaitingConfirmation  Stage = "awaiting_confirmation"
	StageAwaitingClarification Stage = "awaiting_clarification"
)

// Clarification rounds before the session gives up and resets.
const maxClarificationAttempts = 3

// Transport renders the next prompt to the user. The state machine never
// formats presentation text; it hands over canonical payload fields only.
type Transport interface {
	Render(promptKind string, payload interface{}) error
}

// Persistence receives finalized records on confirmation.
type Persistence interface {
	CreateRecord(ctx context.Context, record *models.FoodRecord) (string, error)
}

// Pipeline bundles the collaborators shared by all sessions, injected once
// at bootstrap so tests can substitute fakes.
type Pipeline struct {
	Classifier *nutrition.Classifier
	Analyzer   *nutrition.Analyzer
	Store      Persistence
}

// FoodSession is the per-user conversation state machine:
//
//	idle → awaiting_portion → awaiting_confirmation → idle
//	idle → awaiting_clarification → idle | awaiting_portion
//
// A session is owned by exactly one user. State is replaced, never merged,
// on each transition. Every public method holds the session mutex, so the
// machine stays consistent even when the surrounding transport does not
// guarantee in-order delivery per user.
type FoodSession struct {
	ID        string
	UserID    string
	pipeline  *Pipeline
	transport Transport
	logger    *zap.Logger

	mu              sync.Mutex
	stage           Stage
	analysis        models.FoodAnalysis
	selected        models.PortionOption
	resolved        models.ResolvedNutrition
	provenance      models.Provenance
	clarifyAttempts int
}

func NewFoodSession(id, userID string, pipeline *Pipeline, transport Transport) *FoodSession {
	return &FoodSession{
		ID:        id,
		UserID:    userID,
		pipeline:  pipeline,
		transport: transport,
		logger:    zap.L().With(zap.String("session_id", id), zap.String("user_id", userID)),
		stage:     StageIdle,
	}
}

// Stage reports the current conversation stage.
func (s *FoodSession) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// HandleText processes a typed food message.
func (s *FoodSession) HandleText(ctx context.Context, text string) error {
	return s.handleTextInput(ctx, text, "text")
}

// HandleTranscript processes a transcribed voice note through the same path.
func (s *FoodSession) HandleTranscript(ctx context.Context, transcript string) error {
	return s.handleTextInput(ctx, transcript, "voice")
}

func (s *FoodSession) handleTextInput(ctx context.Context, text, method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage == StageAwaitingClarification {
		return s.handleClarification(ctx, text, method)
	}

	// Any other stage: text starts a fresh resolution, replacing whatever
	// was in flight.
	return s.classifyAndAnalyze(ctx, text, method)
}

func (s *FoodSession) classifyAndAnalyze(ctx context.Context, text, method string) error {
	classification := s.pipeline.Classifier.Classify(ctx, text)
	s.logger.Debug("classified input",
		zap.String("type", string(classification.Type)),
		zap.Float64("confidence", classification.Confidence))

	switch classification.Type {
	case models.AnalysisNotFood:
		s.reset()
		return s.transport.Render("not_food", map[string]interface{}{
			"original_input": classification.OriginalInput,
		})

	case models.AnalysisNeedClarification:
		s.stage = StageAwaitingClarification
		s.clarifyAttempts = 0
		s.provenance = models.Provenance{Method: method, OriginalInput: text}
		return s.transport.Render("clarification", map[string]interface{}{
			"original_input": classification.OriginalInput,
		})
	}

	return s.analyze(ctx, classification, method)
}

func (s *FoodSession) handleClarification(ctx context.Context, text, method string) error {
	classification := s.pipeline.Classifier.Classify(ctx, text)

	if !classification.IsFoodRelated || classification.Type == models.AnalysisNeedClarification {
		s.clarifyAttempts++
		if s.clarifyAttempts >= maxClarificationAttempts {
			s.logger.Info("giving up on clarification", zap.Int("attempts", s.clarifyAttempts))
			s.reset()
			return s.transport.Render("clarification_give_up", nil)
		}
		return s.transport.Render("clarification", map[string]interface{}{
			"original_input": classification.OriginalInput,
			"attempt":        s.clarifyAttempts,
		})
	}

	return s.analyze(ctx, classification, method)
}

func (s *FoodSession) analyze(ctx context.Context, classification models.ClassificationResult, method string) error {
	analysis, err := s.pipeline.Analyzer.AnalyzeText(ctx, classification.FoodDescription, classification.PortionHint)
	if err != nil {
		// The session stays in its prior stage: failed analysis must not
		// silently advance the dialogue.
		return s.renderAnalysisError(err)
	}

	if !analysis.IsFood {
		s.reset()
		return s.transport.Render("not_food", map[string]interface{}{
			"description": analysis.Description,
		})
	}

	s.analysis = analysis
	s.provenance = models.Provenance{Method: method, OriginalInput: classification.OriginalInput}
	return s.offerPortions(analysis)
}

// HandlePhoto processes a prepared food photo with an optional caption.
func (s *FoodSession) HandlePhoto(ctx context.Context, image []byte, caption string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	analysis, err := s.pipeline.Analyzer.AnalyzePhoto(ctx, image, caption)
	if err != nil {
		return s.renderAnalysisError(err)
	}

	if !analysis.IsFood {
		s.reset()
		return s.transport.Render("not_food", map[string]interface{}{
			"description": analysis.Description,
		})
	}

	original := "photo"
	if caption != "" {
		original = "photo: " + caption
	}
	s.analysis = analysis
	s.provenance = models.Provenance{Method: "photo", OriginalInput: original}
	return s.offerPortions(analysis)
}

// offerPortions moves to portion selection, or straight to confirmation when
// the analysis carries a single exact portion.
func (s *FoodSession) offerPortions(analysis models.FoodAnalysis) error {
	if nutrition.AutoSelectable(analysis) {
		resolved, option, err := nutrition.Resolve(analysis, nutrition.AutoIndex)
		if err != nil {
			return err
		}
		s.selected = option
		s.resolved = resolved
		s.stage = StageAwaitingConfirmation
		return s.renderConfirmation()
	}

	s.stage = StageAwaitingPortion
	return s.transport.Render("portion_choice", map[string]interface{}{
		"food_name":   analysis.FoodName,
		"description": analysis.Description,
		"options":     nutrition.PortionsWithNutrition(analysis),
	})
}

// SelectPortion resolves nutrition for the chosen option index.
func (s *FoodSession) SelectPortion(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != StageAwaitingPortion {
		s.logger.Debug("ignoring portion selection outside awaiting_portion", zap.String("stage", string(s.stage)))
		return nil
	}

	resolved, option, err := nutrition.Resolve(s.analysis, index)
	if errors.Is(err, models.ErrInvalidSelection) {
		// Stale or out-of-range index: the session is left unchanged.
		return s.transport.Render("invalid_selection", map[string]interface{}{
			"index":   index,
			"options": len(s.analysis.PortionOptions),
		})
	}
	if err != nil {
		return err
	}

	s.selected = option
	s.resolved = resolved
	s.stage = StageAwaitingConfirmation
	return s.renderConfirmation()
}

// Confirm persists the finalized record. Idempotent: a duplicate confirm on
// an already-cleared session is a no-op, not an error.
func (s *FoodSession) Confirm(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != StageAwaitingConfirmation {
		s.logger.Debug("ignoring duplicate confirm", zap.String("stage", string(s.stage)))
		return nil
	}

	record := &models.FoodRecord{
		ID:              uuid.New().String(),
		UserID:          s.UserID,
		FoodName:        s.analysis.FoodName,
		FoodDescription: s.analysis.Description,
		PortionSize:     s.selected.Size,
		PortionWeight:   s.selected.WeightGrams,
		CaloriesPer100g: s.analysis.NutritionPer100g.Calories,
		ProteinPer100g:  s.analysis.NutritionPer100g.Protein,
		FatPer100g:      s.analysis.NutritionPer100g.Fat,
		CarbsPer100g:    s.analysis.NutritionPer100g.Carbs,
		TotalCalories:   s.resolved.TotalCalories,
		TotalProtein:    s.resolved.TotalProtein,
		TotalFat:        s.resolved.TotalFat,
		TotalCarbs:      s.resolved.TotalCarbs,
		InputMethod:     s.provenance.Method,
		OriginalInput:   s.provenance.OriginalInput,
		CreatedAt:       time.Now().UTC(),
	}

	recordID, err := s.pipeline.Store.CreateRecord(ctx, record)
	if err != nil {
		// Keep awaiting_confirmation so the user can retry without
		// re-doing classification.
		s.logger.Error("failed to persist food record", zap.Error(err))
		return s.transport.Render("save_failed", map[string]interface{}{
			"food_name": s.analysis.FoodName,
		})
	}

	s.pipeline.Analyzer.Remember(ctx, s.analysis)

	saved := map[string]interface{}{
		"record_id": recordID,
		"food_name": s.analysis.FoodName,
		"portion":   s.selected,
		"nutrition": s.resolved,
	}
	s.reset()
	return s.transport.Render("record_saved", saved)
}

// ChangePortion returns to portion selection with the analysis retained.
func (s *FoodSession) ChangePortion(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != StageAwaitingConfirmation {
		return nil
	}

	s.stage = StageAwaitingPortion
	return s.transport.Render("portion_choice", map[string]interface{}{
		"food_name":   s.analysis.FoodName,
		"description": s.analysis.Description,
		"options":     nutrition.PortionsWithNutrition(s.analysis),
	})
}

// Cancel clears the session from any state.
func (s *FoodSession) Cancel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	return s.transport.Render("cancelled", nil)
}

func (s *FoodSession) renderAnalysisError(err error) error {
	kind := "analysis_failed"
	if errors.Is(err, models.ErrValidation) {
		s.logger.Warn("analysis rejected by validation", zap.Error(err))
	} else {
		s.logger.Error("analysis failed", zap.Error(err))
	}
	return s.transport.Render(kind, map[string]interface{}{
		"reason": err.Error(),
	})
}

func (s *FoodSession) renderConfirmation() error {
	return s.transport.Render("confirmation", map[string]interface{}{
		"food_name":      s.analysis.FoodName,
		"description":    s.analysis.Description,
		"portion":        s.selected,
		"nutrition":      s.resolved,
		"original_input": s.provenance.OriginalInput,
	})
}

func (s *FoodSession) reset() {
	s.stage = StageIdle
	s.analysis = models.FoodAnalysis{}
	s.selected = models.PortionOption{}
	s.resolved = models.ResolvedNutrition{}
	s.provenance = models.Provenance{}
	s.clarifyAttempts = 0
}
