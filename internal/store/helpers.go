package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/KayitWorks/KayitFlow/internal/models"
)

// scanCompletionRow scans one completion record from a single sql.Row.
func scanCompletionRow(row *sql.Row) (*models.CompletionRecord, error) {
	var rec models.CompletionRecord
	var answersJSON string
	if err := row.Scan(&rec.ID, &rec.UserID, &answersJSON, &rec.CompletedAt); err != nil {
		return nil, err
	}
	if err := unmarshalAnswers(answersJSON, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// collectCompletions drains a result set into completion records.
func collectCompletions(rows *sql.Rows) ([]models.CompletionRecord, error) {
	var out []models.CompletionRecord
	for rows.Next() {
		var rec models.CompletionRecord
		var answersJSON string
		if err := rows.Scan(&rec.ID, &rec.UserID, &answersJSON, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan completion failed: %w", err)
		}
		if err := unmarshalAnswers(answersJSON, &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completions failed: %w", err)
	}
	return out, nil
}

func unmarshalAnswers(answersJSON string, rec *models.CompletionRecord) error {
	rec.Answers = make(map[string]string)
	if answersJSON == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(answersJSON), &rec.Answers); err != nil {
		return fmt.Errorf("unmarshal answers for %s failed: %w", rec.UserID, err)
	}
	return nil
}
