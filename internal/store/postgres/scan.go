package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/alfredjeanlab/streams/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanField scans a single row into a model.Field.
// The row must contain columns in the order defined by fieldColumns.
func scanField(row scannable) (*model.Field, error) {
	var f model.Field
	var extra []byte
	err := row.Scan(
		&f.ID,
		&f.Name,
		&f.Slug,
		&f.Namespace,
		&f.Type,
		&extra,
		&f.Locked,
		&f.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if f.Extra, err = decodeExtra(extra); err != nil {
		return nil, fmt.Errorf("decode extra for field %s: %w", f.ID, err)
	}
	return &f, nil
}

// scanFields scans multiple rows into a slice of model.Field pointers.
func scanFields(rows *sql.Rows) ([]*model.Field, error) {
	var fields []*model.Field
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return fields, nil
}

// scanStream scans a single row into a model.Stream.
// The row must contain columns in the order defined by streamColumns.
func scanStream(row scannable) (*model.Stream, error) {
	var s model.Stream
	var (
		about       sql.NullString
		titleColumn sql.NullString
	)
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Slug,
		&s.Namespace,
		&s.Prefix,
		&about,
		&titleColumn,
		&s.Sorting,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.About = about.String
	s.TitleColumn = titleColumn.String
	return &s, nil
}

// scanStreams scans multiple rows into a slice of model.Stream pointers.
func scanStreams(rows *sql.Rows) ([]*model.Stream, error) {
	var streams []*model.Stream
	for rows.Next() {
		s, err := scanStream(rows)
		if err != nil {
			return nil, err
		}
		streams = append(streams, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return streams, nil
}

// scanAssignment scans a row produced by assignmentSelect.
func scanAssignment(row scannable) (*model.Assignment, error) {
	var a model.Assignment
	var (
		instructions sql.NullString
		extra        []byte
	)
	err := row.Scan(
		&a.ID,
		&a.StreamID,
		&a.FieldID,
		&a.SortOrder,
		&instructions,
		&a.Unique,
		&a.Required,
		&a.CreatedAt,
		&a.FieldName,
		&a.FieldSlug,
		&a.FieldType,
		&extra,
	)
	if err != nil {
		return nil, err
	}
	if instructions.Valid {
		s := instructions.String
		a.Instructions = &s
	}
	if a.FieldExtra, err = decodeExtra(extra); err != nil {
		return nil, fmt.Errorf("decode extra for assignment %s: %w", a.ID, err)
	}
	return &a, nil
}

// scanAssignments scans multiple rows into a slice of model.Assignment pointers.
func scanAssignments(rows *sql.Rows) ([]*model.Assignment, error) {
	var assigns []*model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assigns = append(assigns, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assigns, nil
}

// scanEvent scans a single row into a model.Event.
func scanEvent(row scannable) (*model.Event, error) {
	var e model.Event
	var (
		actor   sql.NullString
		payload []byte
	)
	err := row.Scan(&e.ID, &e.Topic, &e.SubjectID, &actor, &payload, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Actor = actor.String
	if len(payload) > 0 {
		e.Payload = json.RawMessage(payload)
	}
	return &e, nil
}

// scanEvents scans multiple rows into a slice of model.Event pointers.
func scanEvents(rows *sql.Rows) ([]*model.Event, error) {
	var events []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringPtr converts a *string to sql.NullString; nil is null.
func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// jsonbMap encodes a map for a JSONB column; nil becomes an empty object.
func jsonbMap(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// decodeExtra decodes a JSONB object; NULL or empty input yields an empty map.
func decodeExtra(b []byte) (map[string]any, error) {
	m := map[string]any{}
	if len(b) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
