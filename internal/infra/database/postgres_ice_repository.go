package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"simpleice/internal/domain/ice"

	"github.com/lib/pq" // For pq.Array, pq.Error and driver registration
	"github.com/sirupsen/logrus"
)

// undefinedTable is the PostgreSQL error code for a missing relation.
const undefinedTable = "42P01"

const createIcesTable = `CREATE TABLE IF NOT EXISTS ices (
    position    INTEGER PRIMARY KEY,
    description TEXT NOT NULL,
    message     TEXT NOT NULL,
    emails      TEXT[] NOT NULL DEFAULT '{}',
    active      BOOLEAN NOT NULL DEFAULT FALSE,
    send_date   TIMESTAMPTZ NULL,
    CONSTRAINT ices_schedule_matches_active CHECK (active = (send_date IS NOT NULL))
)`

// PostgresIceRepository stores the ICE collection in one table. Positions are
// rewritten on every save, so they mean the same thing as slice indices.
type PostgresIceRepository struct {
	db     *sql.DB
	logger *logrus.Entry
}

func NewPostgresIceRepository(db *sql.DB, logger *logrus.Logger) *PostgresIceRepository {
	return &PostgresIceRepository{db: db, logger: logger.WithField("store", "postgres")}
}

func (r *PostgresIceRepository) Load(ctx context.Context) ([]*ice.Ice, error) {
	query := `SELECT description, message, emails, active, send_date
               FROM ices ORDER BY position`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, fmt.Errorf("%w: table ices", ice.ErrStoreNotFound)
		}
		return nil, fmt.Errorf("%w: error listing ICE mails: %v", ice.ErrStoreIO, err)
	}
	defer rows.Close()

	ices := make([]*ice.Ice, 0)
	for rows.Next() {
		var (
			description, message string
			emails               []string
			active               bool
			sendDate             sql.NullTime
		)
		if err := rows.Scan(&description, &message, pq.Array(&emails), &active, &sendDate); err != nil {
			return nil, fmt.Errorf("%w: error scanning ICE mail: %v", ice.ErrStoreCorrupt, err)
		}
		i, err := iceFromRow(description, message, emails, active, sendDate)
		if err != nil {
			return nil, err
		}
		ices = append(ices, i)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating ICE mails: %v", ice.ErrStoreIO, err)
	}
	r.logger.Debugf("Loaded %d ICE mails", len(ices))
	return ices, nil
}

// Save replaces every row in one transaction. Nothing is changed unless the
// whole collection is written.
func (r *PostgresIceRepository) Save(ctx context.Context, ices []*ice.Ice) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", ice.ErrStoreIO, err)
	}
	defer txn.Rollback() // Rollback if not committed

	if _, err := txn.ExecContext(ctx, createIcesTable); err != nil {
		return fmt.Errorf("%w: failed to create ices table: %v", ice.ErrStoreIO, err)
	}
	if _, err := txn.ExecContext(ctx, `DELETE FROM ices`); err != nil {
		return fmt.Errorf("%w: failed to clear ices table: %v", ice.ErrStoreIO, err)
	}

	stmt, err := txn.PrepareContext(ctx, `INSERT INTO ices (position, description, message, emails, active, send_date)
                                         VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return fmt.Errorf("%w: failed to prepare insert: %v", ice.ErrStoreIO, err)
	}
	defer stmt.Close()

	for position, i := range ices {
		if i == nil {
			return fmt.Errorf("%w: entry %d is nil", ice.ErrStoreCorrupt, position)
		}
		description, message, emails, active, sendDate := rowFromIce(i)
		if _, err := stmt.ExecContext(ctx, position, description, message, pq.Array(emails), active, sendDate); err != nil {
			return fmt.Errorf("%w: error inserting ICE mail %d (%q): %v", ice.ErrStoreIO, position, description, err)
		}
	}

	if err := txn.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit: %v", ice.ErrStoreIO, err)
	}
	r.logger.Debugf("Saved %d ICE mails", len(ices))
	return nil
}

func iceFromRow(description, message string, emails []string, active bool, sendDate sql.NullTime) (*ice.Ice, error) {
	var at *time.Time
	if sendDate.Valid {
		t := sendDate.Time
		at = &t
	}
	restored, err := ice.Restore(description, message, emails, active, at)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ice.ErrStoreCorrupt, err)
	}
	return restored, nil
}

func rowFromIce(i *ice.Ice) (string, string, []string, bool, sql.NullTime) {
	var sendDate sql.NullTime
	if t, ok := i.SendDate(); ok {
		sendDate = sql.NullTime{Time: t, Valid: true}
	}
	return i.Description(), i.Message(), i.Recipients(), i.IsActive(), sendDate
}

func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == undefinedTable
}
