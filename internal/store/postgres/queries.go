package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/streams/internal/model"
)

// fieldColumns is the column list used for SELECT statements on the fields table.
const fieldColumns = `id, name, slug, namespace, type, extra, is_locked, created_at`

// streamColumns is the column list used for SELECT statements on the streams table.
const streamColumns = `id, name, slug, namespace, prefix, about, title_column, sorting, created_at`

// assignmentSelect joins each assignment with the field it points to.
const assignmentSelect = `
	SELECT a.id, a.stream_id, a.field_id, a.sort_order, a.instructions,
		a.is_unique, a.is_required, a.created_at,
		f.name, f.slug, f.type, f.extra
	FROM field_assignments a
	JOIN fields f ON f.id = a.field_id`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryCreateField(ctx context.Context, db executor, f *model.Field) error {
	extra, err := jsonbMap(f.Extra)
	if err != nil {
		return fmt.Errorf("encode extra: %w", err)
	}
	return db.QueryRowContext(ctx, `
		INSERT INTO fields (id, name, slug, namespace, type, extra, is_locked)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		f.ID, f.Name, f.Slug, f.Namespace, f.Type, extra, f.Locked,
	).Scan(&f.CreatedAt)
}

func queryGetFieldBySlug(ctx context.Context, db executor, slug, namespace string) (*model.Field, error) {
	row := db.QueryRowContext(ctx, `SELECT `+fieldColumns+` FROM fields WHERE slug = $1 AND namespace = $2`, slug, namespace)
	return scanField(row)
}

func queryListFields(ctx context.Context, db executor, namespace string) ([]*model.Field, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+fieldColumns+` FROM fields WHERE namespace = $1 ORDER BY slug`, namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFields(rows)
}

// queryDeleteField drops the entry column of every stream the field is
// assigned to, then deletes the field. Assignments go with it through
// ON DELETE CASCADE.
func queryDeleteField(ctx context.Context, db executor, id string) error {
	rows, err := db.QueryContext(ctx, `
		SELECT s.id, s.prefix, s.slug, f.slug
		FROM field_assignments a
		JOIN streams s ON s.id = a.stream_id
		JOIN fields f ON f.id = a.field_id
		WHERE a.field_id = $1`, id)
	if err != nil {
		return fmt.Errorf("list field streams: %w", err)
	}
	type target struct {
		streamID, table, column string
	}
	var targets []target
	for rows.Next() {
		var t target
		var prefix, slug string
		if err := rows.Scan(&t.streamID, &prefix, &slug, &t.column); err != nil {
			rows.Close()
			return fmt.Errorf("scan field streams: %w", err)
		}
		t.table = prefix + slug
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("scan field streams: %w", err)
	}
	rows.Close()

	for _, t := range targets {
		if err := dropColumn(ctx, db, t.table, t.column); err != nil {
			return err
		}
		if err := clearTitleColumn(ctx, db, t.streamID, t.column); err != nil {
			return err
		}
	}

	res, err := db.ExecContext(ctx, `DELETE FROM fields WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func queryCreateStream(ctx context.Context, db executor, s *model.Stream) error {
	err := db.QueryRowContext(ctx, `
		INSERT INTO streams (id, name, slug, namespace, prefix, about, sorting)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		s.ID, s.Name, s.Slug, s.Namespace, s.Prefix, nullString(s.About), s.Sorting,
	).Scan(&s.CreatedAt)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `CREATE TABLE `+pq.QuoteIdentifier(s.TableName())+` (
		id BIGSERIAL PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ,
		created_by TEXT,
		ordering_count INTEGER NOT NULL DEFAULT 0
	)`)
	if err != nil {
		return fmt.Errorf("create entry table %s: %w", s.TableName(), err)
	}
	return nil
}

func queryEntryTableExists(ctx context.Context, db executor, table string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT to_regclass($1) IS NOT NULL`, pq.QuoteIdentifier(table)).Scan(&exists)
	return exists, err
}

func queryGetStream(ctx context.Context, db executor, slug, namespace string) (*model.Stream, error) {
	row := db.QueryRowContext(ctx, `SELECT `+streamColumns+` FROM streams WHERE slug = $1 AND namespace = $2`, slug, namespace)
	return scanStream(row)
}

func queryListNamespaces(ctx context.Context, db executor) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT namespace FROM fields UNION SELECT namespace FROM streams ORDER BY 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var namespaces []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, err
		}
		namespaces = append(namespaces, ns)
	}
	return namespaces, rows.Err()
}

func queryListStreams(ctx context.Context, db executor, namespace string) ([]*model.Stream, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+streamColumns+` FROM streams WHERE namespace = $1 ORDER BY slug`, namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStreams(rows)
}

func queryDeleteStream(ctx context.Context, db executor, s *model.Stream) error {
	if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS `+pq.QuoteIdentifier(s.TableName())); err != nil {
		return fmt.Errorf("drop entry table %s: %w", s.TableName(), err)
	}
	res, err := db.ExecContext(ctx, `DELETE FROM streams WHERE id = $1`, s.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func querySetStreamTitleColumn(ctx context.Context, db executor, streamID, column string) error {
	res, err := db.ExecContext(ctx, `UPDATE streams SET title_column = $2 WHERE id = $1`, streamID, nullString(column))
	if err != nil {
		return err
	}
	return requireRow(res)
}

func queryAddAssignment(ctx context.Context, db executor, s *model.Stream, a *model.Assignment, col *model.Column) error {
	err := db.QueryRowContext(ctx, `
		INSERT INTO field_assignments (id, stream_id, field_id, sort_order, instructions, is_unique, is_required)
		VALUES ($1, $2, $3,
			(SELECT COALESCE(MAX(sort_order), 0) + 1 FROM field_assignments WHERE stream_id = $2),
			$4, $5, $6)
		RETURNING sort_order, created_at`,
		a.ID, a.StreamID, a.FieldID, nullStringPtr(a.Instructions), a.Unique, a.Required,
	).Scan(&a.SortOrder, &a.CreatedAt)
	if err != nil {
		return err
	}

	if col == nil {
		return nil
	}
	_, err = db.ExecContext(ctx, `ALTER TABLE `+pq.QuoteIdentifier(s.TableName())+
		` ADD COLUMN `+pq.QuoteIdentifier(col.Name)+` `+col.Type)
	if err != nil {
		return fmt.Errorf("add column %s to %s: %w", col.Name, s.TableName(), err)
	}
	return nil
}

func queryUpdateAssignment(ctx context.Context, db executor, a *model.Assignment) error {
	res, err := db.ExecContext(ctx, `
		UPDATE field_assignments
		SET instructions = $2, is_unique = $3, is_required = $4
		WHERE id = $1`,
		a.ID, nullStringPtr(a.Instructions), a.Unique, a.Required,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func queryGetAssignment(ctx context.Context, db executor, streamID, fieldID string) (*model.Assignment, error) {
	row := db.QueryRowContext(ctx, assignmentSelect+`
		WHERE a.stream_id = $1 AND a.field_id = $2
		LIMIT 1`, streamID, fieldID)
	return scanAssignment(row)
}

func queryRemoveAssignment(ctx context.Context, db executor, s *model.Stream, a *model.Assignment) error {
	res, err := db.ExecContext(ctx, `DELETE FROM field_assignments WHERE id = $1`, a.ID)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	if err := dropColumn(ctx, db, s.TableName(), a.FieldSlug); err != nil {
		return err
	}
	return clearTitleColumn(ctx, db, s.ID, a.FieldSlug)
}

func queryListStreamAssignments(ctx context.Context, db executor, streamID string) ([]*model.Assignment, error) {
	rows, err := db.QueryContext(ctx, assignmentSelect+`
		WHERE a.stream_id = $1
		ORDER BY a.sort_order ASC, a.created_at ASC`, streamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssignments(rows)
}

func queryListFieldAssignments(ctx context.Context, db executor, fieldID string) ([]*model.Assignment, error) {
	rows, err := db.QueryContext(ctx, assignmentSelect+`
		WHERE a.field_id = $1
		ORDER BY a.created_at ASC`, fieldID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssignments(rows)
}

func queryRecordEvent(ctx context.Context, db executor, e *model.Event) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO events (topic, subject_id, actor, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		e.Topic, e.SubjectID, e.Actor, []byte(e.Payload),
	).Scan(&e.ID, &e.CreatedAt)
}

func queryGetEvents(ctx context.Context, db executor, subjectID string) ([]*model.Event, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, topic, subject_id, actor, payload, created_at
		FROM events
		WHERE subject_id = $1
		ORDER BY created_at ASC`,
		subjectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func dropColumn(ctx context.Context, db executor, table, column string) error {
	_, err := db.ExecContext(ctx, `ALTER TABLE `+pq.QuoteIdentifier(table)+
		` DROP COLUMN IF EXISTS `+pq.QuoteIdentifier(column))
	if err != nil {
		return fmt.Errorf("drop column %s from %s: %w", column, table, err)
	}
	return nil
}

func clearTitleColumn(ctx context.Context, db executor, streamID, column string) error {
	_, err := db.ExecContext(ctx, `UPDATE streams SET title_column = NULL WHERE id = $1 AND title_column = $2`, streamID, column)
	return err
}

// requireRow returns sql.ErrNoRows when the statement touched nothing.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
