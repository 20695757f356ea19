package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/biweekly/internal/common"
	"github.com/Veraticus/biweekly/internal/model"
	"github.com/Veraticus/biweekly/internal/period"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// RecordGeneration stores a generation, replacing any earlier record for the same period.
func (s *SQLiteStorage) RecordGeneration(ctx context.Context, gen *model.Generation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateGeneration(gen); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	year, month := gen.Period.Year, int(gen.Period.Month)

	if _, err := tx.ExecContext(ctx, `DELETE FROM generations WHERE year = ? AND month = ?`, year, month); err != nil {
		return fmt.Errorf("failed to clear previous generation: %w", err)
	}

	createdAt := gen.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO generations
			(year, month, run_id, output_path, predecessor_path, source_sheet, anchor_kind, anchor_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		year, month, gen.ID, gen.OutputPath,
		nullString(gen.PredecessorPath), nullString(gen.SourceSheet),
		string(gen.AnchorKind), gen.AnchorDate.Format(dateLayout),
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert generation: %w", err)
	}

	for _, sp := range gen.SubPeriods {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sub_periods (year, month, idx, start_date, end_date, retained)
			VALUES (?, ?, ?, ?, ?, ?)`,
			year, month, sp.Index, sp.Start.Format(dateLayout), sp.End.Format(dateLayout), sp.Retained,
		)
		if err != nil {
			return fmt.Errorf("failed to insert sub-period %d: %w", sp.Index, err)
		}
	}

	for _, b := range gen.Balances {
		var amount sql.NullString
		if b.Amount.Valid {
			amount = sql.NullString{String: b.Amount.Decimal.String(), Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO carried_balances (year, month, category_row, raw, amount)
			VALUES (?, ?, ?, ?, ?)`,
			year, month, b.Row, b.Text, amount,
		)
		if err != nil {
			return fmt.Errorf("failed to insert balance for row %d: %w", b.Row, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit generation: %w", err)
	}
	return nil
}

// GetGeneration returns the recorded generation for p, or common.ErrNotFound.
func (s *SQLiteStorage) GetGeneration(ctx context.Context, p period.Period) (*model.Generation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT year, month, run_id, output_path, predecessor_path, source_sheet, anchor_kind, anchor_date, created_at
		FROM generations WHERE year = ? AND month = ?`, p.Year, int(p.Month))

	gen, err := scanGeneration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("generation %s: %w", p, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadDetails(ctx, gen); err != nil {
		return nil, err
	}
	return gen, nil
}

// ListGenerations returns every recorded generation, most recent period first.
func (s *SQLiteStorage) ListGenerations(ctx context.Context) ([]model.Generation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT year, month, run_id, output_path, predecessor_path, source_sheet, anchor_kind, anchor_date, created_at
		FROM generations ORDER BY year DESC, month DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query generations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var gens []model.Generation
	for rows.Next() {
		gen, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		gens = append(gens, *gen)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Close before issuing detail queries on the single connection.
	_ = rows.Close()

	for i := range gens {
		if err := s.loadDetails(ctx, &gens[i]); err != nil {
			return nil, err
		}
	}
	return gens, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGeneration(row rowScanner) (*model.Generation, error) {
	var (
		gen                          model.Generation
		year, month                  int
		predecessorPath, sourceSheet sql.NullString
		anchorKind, anchorDate       string
		createdAt                    string
	)

	err := row.Scan(&year, &month, &gen.ID, &gen.OutputPath, &predecessorPath, &sourceSheet, &anchorKind, &anchorDate, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan generation: %w", err)
	}

	gen.Period = period.Period{Year: year, Month: time.Month(month)}
	gen.PredecessorPath = predecessorPath.String
	gen.SourceSheet = sourceSheet.String
	gen.AnchorKind = model.AnchorKind(anchorKind)
	if gen.AnchorDate, err = time.Parse(dateLayout, anchorDate); err != nil {
		return nil, fmt.Errorf("failed to parse anchor date %q: %w", anchorDate, err)
	}
	gen.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return &gen, nil
}

func (s *SQLiteStorage) loadDetails(ctx context.Context, gen *model.Generation) error {
	year, month := gen.Period.Year, int(gen.Period.Month)

	spRows, err := s.db.QueryContext(ctx, `
		SELECT idx, start_date, end_date, retained FROM sub_periods
		WHERE year = ? AND month = ? ORDER BY idx`, year, month)
	if err != nil {
		return fmt.Errorf("failed to query sub-periods: %w", err)
	}
	defer func() { _ = spRows.Close() }()

	for spRows.Next() {
		var (
			sp         model.SubPeriod
			start, end string
		)
		if err := spRows.Scan(&sp.Index, &start, &end, &sp.Retained); err != nil {
			return fmt.Errorf("failed to scan sub-period: %w", err)
		}
		if sp.Start, err = time.Parse(dateLayout, start); err != nil {
			return fmt.Errorf("failed to parse sub-period start %q: %w", start, err)
		}
		if sp.End, err = time.Parse(dateLayout, end); err != nil {
			return fmt.Errorf("failed to parse sub-period end %q: %w", end, err)
		}
		gen.SubPeriods = append(gen.SubPeriods, sp)
	}
	if err := spRows.Err(); err != nil {
		return err
	}
	_ = spRows.Close()

	bRows, err := s.db.QueryContext(ctx, `
		SELECT category_row, raw, amount FROM carried_balances
		WHERE year = ? AND month = ? ORDER BY category_row`, year, month)
	if err != nil {
		return fmt.Errorf("failed to query balances: %w", err)
	}
	defer func() { _ = bRows.Close() }()

	for bRows.Next() {
		var (
			b      model.Balance
			amount sql.NullString
		)
		if err := bRows.Scan(&b.Row, &b.Text, &amount); err != nil {
			return fmt.Errorf("failed to scan balance: %w", err)
		}
		if amount.Valid {
			d, err := decimal.NewFromString(amount.String)
			if err != nil {
				return fmt.Errorf("failed to parse balance %q: %w", amount.String, err)
			}
			b.Amount = decimal.NewNullDecimal(d)
		}
		gen.Balances = append(gen.Balances, b)
	}
	return bRows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
