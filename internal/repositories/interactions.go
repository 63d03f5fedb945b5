package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/shared"
)

// InteractionRepository implements [models.Repository] for [models.Interaction] persistence.
type InteractionRepository struct {
	db *sql.DB
}

// NewInteractionRepository creates a new [InteractionRepository] with the given database connection
func NewInteractionRepository(db *sql.DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

// Create inserts a new interaction into the database with generated ID and sequence
func (r *InteractionRepository) Create(interaction *models.Interaction) error {
	sequence, err := NextSequence(r.db, "interactions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	interaction.SetID(id)

	if err := interaction.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO interactions (id, sequence, session_id, image_filename, vibe_json, playlist_json, grounded, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, id, sequence, interaction.SessionID(), interaction.ImageFilename(),
		interaction.VibeJSON(), interaction.PlaylistJSON(), interaction.Grounded(),
		interaction.CreatedAt(), interaction.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert interaction: %w", err)
	}

	return nil
}

// Get retrieves an interaction by ID, excluding soft-deleted rows
func (r *InteractionRepository) Get(id string) (*models.Interaction, error) {
	query := `
		SELECT id, session_id, image_filename, vibe_json, playlist_json, grounded, created_at, updated_at
		FROM interactions
		WHERE id = ? AND deleted_at IS NULL
	`

	row := r.db.QueryRow(query, id)
	interaction, err := scanInteraction(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("interaction not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query interaction: %w", err)
	}

	return interaction, nil
}

// Update modifies an existing interaction's JSON blobs in the database
func (r *InteractionRepository) Update(interaction *models.Interaction) error {
	if err := interaction.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	interaction.SetUpdatedAt(now)

	query := `
		UPDATE interactions
		SET vibe_json = ?, playlist_json = ?, grounded = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, interaction.VibeJSON(), interaction.PlaylistJSON(),
		interaction.Grounded(), now, interaction.ID())
	if err != nil {
		return fmt.Errorf("failed to update interaction: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("interaction not found or already deleted: %s", interaction.ID())
	}

	return nil
}

// Delete soft-deletes an interaction by ID
func (r *InteractionRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE interactions
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete interaction: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("interaction not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all interactions matching the given criteria, excluding soft-deleted rows
func (r *InteractionRepository) List(criteria map[string]any) ([]*models.Interaction, error) {
	query := `
		SELECT id, session_id, image_filename, vibe_json, playlist_json, grounded, created_at, updated_at
		FROM interactions
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if sessionID, ok := criteria["session_id"].(string); ok && sessionID != "" {
		query += " AND session_id = ?"
		args = append(args, sessionID)
	}
	if grounded, ok := criteria["grounded"].(bool); ok {
		query += " AND grounded = ?"
		args = append(args, grounded)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	var interactions []*models.Interaction
	for rows.Next() {
		interaction, err := scanInteraction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		interactions = append(interactions, interaction)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return interactions, nil
}

// scanInteraction rebuilds an interaction from one row's scan function.
func scanInteraction(scan func(...any) error) (*models.Interaction, error) {
	var (
		id            string
		sessionID     string
		imageFilename string
		vibeJSON      string
		playlistJSON  string
		grounded      bool
		createdAt     time.Time
		updatedAt     time.Time
	)

	if err := scan(&id, &sessionID, &imageFilename, &vibeJSON, &playlistJSON, &grounded, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	interaction := models.NewInteraction(sessionID, imageFilename, vibeJSON, playlistJSON, grounded)
	interaction.SetID(id)
	interaction.SetTimestamps(createdAt, updatedAt)
	return interaction, nil
}
