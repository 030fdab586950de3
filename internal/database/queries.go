package database

import (
	"context"
	"errors"
	"fmt"

	"dialoguesum/internal/models"
)

func (d *Database) RecordSummary(ctx context.Context, record models.SummaryRecord) error {
	if record.Summary == "" {
		return errors.New("summary is empty")
	}

	query := "insert into summaries (dialogue, method, max_new_tokens, model, summary) values (?, ?, ?, ?, ?)"

	_, err := d.db.ExecContext(
		ctx,
		query,
		record.Dialogue,
		record.Method,
		record.MaxNewTokens,
		record.Model,
		record.Summary,
	)

	return err
}

func (d *Database) RecentSummaries(ctx context.Context, limit int64) ([]models.SummaryRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `select id, dialogue, method, max_new_tokens, model, summary, created_at
from summaries order by id desc limit ?`

	rows, err := d.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			d.log.Warn("Failed to close rows",
				"error", closeErr)
		}
	}()

	var records []models.SummaryRecord
	for rows.Next() {
		var record models.SummaryRecord
		if err := rows.Scan(
			&record.ID,
			&record.Dialogue,
			&record.Method,
			&record.MaxNewTokens,
			&record.Model,
			&record.Summary,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return records, nil
}
