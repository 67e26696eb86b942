package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/airyou-code/ai-nutritiolog-bot/models"
)

// SQLiteStorage is the persistence collaborator: finalized food records and
// user profiles. The resolution pipeline only ever reaches it through
// CreateRecord on a confirmed entry.
type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	storage := &SQLiteStorage{db: db}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS food_entries (
        id TEXT PRIMARY KEY,
        user_id TEXT NOT NULL,
        food_name TEXT NOT NULL,
        food_description TEXT,
        portion_size TEXT NOT NULL,
        portion_weight REAL NOT NULL,
        calories_per_100g REAL NOT NULL,
        protein_per_100g REAL NOT NULL,
        fat_per_100g REAL NOT NULL,
        carbs_per_100g REAL NOT NULL,
        total_calories REAL NOT NULL,
        total_protein REAL NOT NULL,
        total_fat REAL NOT NULL,
        total_carbs REAL NOT NULL,
        input_method TEXT NOT NULL,
        original_input TEXT,
        created_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS user_profiles (
        user_id TEXT PRIMARY KEY,
        age INTEGER NOT NULL,
        weight_kg REAL NOT NULL,
        height_cm REAL NOT NULL,
        gender TEXT NOT NULL,
        activity_level TEXT NOT NULL,
        goal TEXT NOT NULL,
        updated_at DATETIME NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_food_entries_user ON food_entries(user_id, created_at);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// CreateRecord persists one confirmed diary entry and returns its id.
func (s *SQLiteStorage) CreateRecord(ctx context.Context, record *models.FoodRecord) (string, error) {
	query := `
        INSERT INTO food_entries (
            id, user_id, food_name, food_description, portion_size, portion_weight,
            calories_per_100g, protein_per_100g, fat_per_100g, carbs_per_100g,
            total_calories, total_protein, total_fat, total_carbs,
            input_method, original_input, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.UserID, record.FoodName, record.FoodDescription,
		record.PortionSize, record.PortionWeight,
		record.CaloriesPer100g, record.ProteinPer100g, record.FatPer100g, record.CarbsPer100g,
		record.TotalCalories, record.TotalProtein, record.TotalFat, record.TotalCarbs,
		record.InputMethod, record.OriginalInput, record.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("failed to insert food entry: %w", err)
	}

	return record.ID, nil
}

// GetRecord loads one entry by id.
func (s *SQLiteStorage) GetRecord(ctx context.Context, id string) (*models.FoodRecord, error) {
	query := `
        SELECT id, user_id, food_name, food_description, portion_size, portion_weight,
               calories_per_100g, protein_per_100g, fat_per_100g, carbs_per_100g,
               total_calories, total_protein, total_fat, total_carbs,
               input_method, original_input, created_at
        FROM food_entries WHERE id = ?
    `
	record := &models.FoodRecord{}
	var createdAt string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID, &record.UserID, &record.FoodName, &record.FoodDescription,
		&record.PortionSize, &record.PortionWeight,
		&record.CaloriesPer100g, &record.ProteinPer100g, &record.FatPer100g, &record.CarbsPer100g,
		&record.TotalCalories, &record.TotalProtein, &record.TotalFat, &record.TotalCarbs,
		&record.InputMethod, &record.OriginalInput, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to load food entry: %w", err)
	}

	if record.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return record, nil
}

// RecordsByDay lists a user's entries for the given UTC day, newest first.
func (s *SQLiteStorage) RecordsByDay(ctx context.Context, userID string, day time.Time) ([]*models.FoodRecord, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	query := `
        SELECT id, user_id, food_name, food_description, portion_size, portion_weight,
               calories_per_100g, protein_per_100g, fat_per_100g, carbs_per_100g,
               total_calories, total_protein, total_fat, total_carbs,
               input_method, original_input, created_at
        FROM food_entries
        WHERE user_id = ? AND created_at >= ? AND created_at < ?
        ORDER BY created_at DESC
    `
	rows, err := s.db.QueryContext(ctx, query, userID,
		start.Format(time.RFC3339), end.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to list food entries: %w", err)
	}
	defer rows.Close()

	var records []*models.FoodRecord
	for rows.Next() {
		record := &models.FoodRecord{}
		var createdAt string

		if err := rows.Scan(
			&record.ID, &record.UserID, &record.FoodName, &record.FoodDescription,
			&record.PortionSize, &record.PortionWeight,
			&record.CaloriesPer100g, &record.ProteinPer100g, &record.FatPer100g, &record.CarbsPer100g,
			&record.TotalCalories, &record.TotalProtein, &record.TotalFat, &record.TotalCarbs,
			&record.InputMethod, &record.OriginalInput, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan food entry: %w", err)
		}
		if record.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate food entries: %w", err)
	}

	return records, nil
}

// DeleteRecord removes one entry, scoped to its owner so a stray id cannot
// touch another user's diary. Returns whether a row was deleted.
func (s *SQLiteStorage) DeleteRecord(ctx context.Context, userID, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM food_entries WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete food entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count deleted rows: %w", err)
	}
	return affected > 0, nil
}

// DailySummary aggregates a user's confirmed entries for the given day.
func (s *SQLiteStorage) DailySummary(ctx context.Context, userID string, day time.Time) (*models.DailySummary, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	query := `
        SELECT COALESCE(SUM(total_calories), 0), COALESCE(SUM(total_protein), 0),
               COALESCE(SUM(total_fat), 0), COALESCE(SUM(total_carbs), 0), COUNT(*)
        FROM food_entries
        WHERE user_id = ? AND created_at >= ? AND created_at < ?
    `
	summary := &models.DailySummary{}
	err := s.db.QueryRowContext(ctx, query, userID,
		start.Format(time.RFC3339), end.Format(time.RFC3339)).Scan(
		&summary.TotalCalories, &summary.TotalProtein,
		&summary.TotalFat, &summary.TotalCarbs, &summary.EntriesCount)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily summary: %w", err)
	}

	return summary, nil
}

// SaveProfile upserts the user's profile for the macro calculator.
func (s *SQLiteStorage) SaveProfile(ctx context.Context, userID string, profile models.UserProfile) error {
	query := `
        INSERT INTO user_profiles (user_id, age, weight_kg, height_cm, gender, activity_level, goal, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(user_id) DO UPDATE SET
            age = excluded.age,
            weight_kg = excluded.weight_kg,
            height_cm = excluded.height_cm,
            gender = excluded.gender,
            activity_level = excluded.activity_level,
            goal = excluded.goal,
            updated_at = excluded.updated_at
    `
	_, err := s.db.ExecContext(ctx, query,
		userID, profile.Age, profile.WeightKg, profile.HeightCm,
		profile.Gender, profile.ActivityLevel, profile.Goal,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// GetProfile loads the user's profile; (nil, nil) when absent.
func (s *SQLiteStorage) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	query := `
        SELECT age, weight_kg, height_cm, gender, activity_level, goal
        FROM user_profiles WHERE user_id = ?
    `
	profile := &models.UserProfile{}
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.Age, &profile.WeightKg, &profile.HeightCm,
		&profile.Gender, &profile.ActivityLevel, &profile.Goal)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return profile, nil
}
