package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alfredjeanlab/streams/internal/model"
	"github.com/alfredjeanlab/streams/internal/store"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

var fieldRowColumns = []string{"id", "name", "slug", "namespace", "type", "extra", "is_locked", "created_at"}

var streamRowColumns = []string{"id", "name", "slug", "namespace", "prefix", "about", "title_column", "sorting", "created_at"}

var assignmentRowColumns = []string{
	"id", "stream_id", "field_id", "sort_order", "instructions",
	"is_unique", "is_required", "created_at",
	"name", "slug", "type", "extra",
}

func exactSQL(q string) string {
	return regexp.QuoteMeta(q)
}

func testStream() *model.Stream {
	return &model.Stream{ID: "str-1", Name: "Posts", Slug: "posts", Namespace: "blog", Prefix: "blog_", Sorting: model.SortingTitle}
}

func TestScanHelpers(t *testing.T) {
	if nullString("").Valid {
		t.Error("nullString(\"\") should be invalid")
	}
	if ns := nullString("hello"); !ns.Valid || ns.String != "hello" {
		t.Errorf("nullString(\"hello\") = %v", ns)
	}

	if nullStringPtr(nil).Valid {
		t.Error("nullStringPtr(nil) should be invalid")
	}
	empty := ""
	if ns := nullStringPtr(&empty); !ns.Valid {
		t.Error("nullStringPtr(&\"\") should be valid")
	}

	b, err := jsonbMap(nil)
	if err != nil || string(b) != "{}" {
		t.Errorf("jsonbMap(nil) = %s, %v", b, err)
	}
	b, err = jsonbMap(map[string]any{"max_length": 40})
	if err != nil || string(b) != `{"max_length":40}` {
		t.Errorf("jsonbMap = %s, %v", b, err)
	}

	m, err := decodeExtra(nil)
	if err != nil || m == nil || len(m) != 0 {
		t.Errorf("decodeExtra(nil) = %v, %v", m, err)
	}
	m, err = decodeExtra([]byte(`{"choice_type":"radio"}`))
	if err != nil || m["choice_type"] != "radio" {
		t.Errorf("decodeExtra = %v, %v", m, err)
	}
	if _, err := decodeExtra([]byte(`not json`)); err == nil {
		t.Error("decodeExtra(not json) should fail")
	}
}

func TestQueryCreateField(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	f := &model.Field{ID: "fld-1", Name: "Title", Slug: "title", Namespace: "blog", Type: "text"}

	mock.ExpectQuery("INSERT INTO fields").
		WithArgs("fld-1", "Title", "title", "blog", "text", []byte("{}"), false).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	if err := queryCreateField(context.Background(), db, f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", f.CreatedAt, now)
	}
}

func TestQueryGetFieldBySlug(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .+ FROM fields WHERE slug = \\$1 AND namespace = \\$2").
		WithArgs("title", "blog").
		WillReturnRows(sqlmock.NewRows(fieldRowColumns).
			AddRow("fld-1", "Title", "title", "blog", "text", []byte(`{"max_length":80}`), false, now))

	f, err := queryGetFieldBySlug(context.Background(), db, "title", "blog")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.ID != "fld-1" || f.Type != "text" {
		t.Fatalf("got id=%q type=%q", f.ID, f.Type)
	}
	if f.Extra["max_length"] != float64(80) {
		t.Errorf("extra = %v", f.Extra)
	}
}

func TestQueryGetFieldBySlug_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT .+ FROM fields WHERE slug = \\$1").
		WithArgs("missing", "blog").
		WillReturnError(sql.ErrNoRows)

	_, err := queryGetFieldBySlug(context.Background(), db, "missing", "blog")
	if err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestQueryListFields(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .+ FROM fields WHERE namespace = \\$1 ORDER BY slug").
		WithArgs("blog").
		WillReturnRows(sqlmock.NewRows(fieldRowColumns).
			AddRow("fld-1", "Body", "body", "blog", "textarea", nil, false, now).
			AddRow("fld-2", "Title", "title", "blog", "text", []byte(`{}`), true, now))

	fields, err := queryListFields(context.Background(), db, "blog")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].Extra == nil {
		t.Error("NULL extra should decode to an empty map")
	}
	if !fields[1].Locked {
		t.Error("expected second field to be locked")
	}
}

func TestQueryListNamespaces(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(exactSQL("SELECT namespace FROM fields UNION SELECT namespace FROM streams ORDER BY 1")).
		WillReturnRows(sqlmock.NewRows([]string{"namespace"}).AddRow("blog").AddRow("shop"))

	got, err := queryListNamespaces(context.Background(), db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "blog" || got[1] != "shop" {
		t.Fatalf("unexpected namespaces: %v", got)
	}
}

func TestQueryEntryTableExists(t *testing.T) {
	for _, tc := range []struct {
		table string
		want  bool
	}{
		{"blog_posts", true},
		{"shop_posts", false},
	} {
		t.Run(tc.table, func(t *testing.T) {
			db, mock := newMockDB(t)
			mock.ExpectQuery(exactSQL("SELECT to_regclass($1) IS NOT NULL")).
				WithArgs(`"` + tc.table + `"`).
				WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(tc.want))

			got, err := queryEntryTableExists(context.Background(), db, tc.table)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("exists = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestQueryDeleteField(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT s.id, s.prefix, s.slug, f.slug FROM field_assignments a").
		WithArgs("fld-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "prefix", "slug", "slug"}).
			AddRow("str-1", "blog_", "posts", "title"))
	mock.ExpectExec(exactSQL(`ALTER TABLE "blog_posts" DROP COLUMN IF EXISTS "title"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE streams SET title_column = NULL WHERE id = \\$1 AND title_column = \\$2").
		WithArgs("str-1", "title").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM fields WHERE id = \\$1").
		WithArgs("fld-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := queryDeleteField(context.Background(), db, "fld-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryDeleteField_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT s.id, s.prefix, s.slug, f.slug FROM field_assignments a").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "prefix", "slug", "slug"}))
	mock.ExpectExec("DELETE FROM fields WHERE id = \\$1").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := queryDeleteField(context.Background(), db, "missing"); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestQueryCreateStream(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	s := testStream()

	mock.ExpectQuery("INSERT INTO streams").
		WithArgs("str-1", "Posts", "posts", "blog", "blog_", nil, "title").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectExec(exactSQL(`CREATE TABLE "blog_posts"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := queryCreateStream(context.Background(), db, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", s.CreatedAt, now)
	}
}

func TestQueryCreateStream_TableError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("INSERT INTO streams").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectExec(exactSQL(`CREATE TABLE "blog_posts"`)).
		WillReturnError(errors.New("relation already exists"))

	err := queryCreateStream(context.Background(), db, testStream())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestQueryGetStream(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .+ FROM streams WHERE slug = \\$1 AND namespace = \\$2").
		WithArgs("posts", "blog").
		WillReturnRows(sqlmock.NewRows(streamRowColumns).
			AddRow("str-1", "Posts", "posts", "blog", "blog_", nil, "title", "title", now))

	s, err := queryGetStream(context.Background(), db, "posts", "blog")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.TableName() != "blog_posts" || s.TitleColumn != "title" || s.About != "" {
		t.Fatalf("unexpected stream: %+v", s)
	}
}

func TestQueryDeleteStream(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(exactSQL(`DROP TABLE IF EXISTS "blog_posts"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM streams WHERE id = \\$1").
		WithArgs("str-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := queryDeleteStream(context.Background(), db, testStream()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQuerySetStreamTitleColumn(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("UPDATE streams SET title_column = \\$2 WHERE id = \\$1").
		WithArgs("str-1", "title").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := querySetStreamTitleColumn(context.Background(), db, "str-1", "title"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryAddAssignment(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	instructions := "Shown under the input"
	a := &model.Assignment{ID: "asn-1", StreamID: "str-1", FieldID: "fld-1", Instructions: &instructions, Required: true}

	mock.ExpectQuery("INSERT INTO field_assignments").
		WithArgs("asn-1", "str-1", "fld-1", instructions, false, true).
		WillReturnRows(sqlmock.NewRows([]string{"sort_order", "created_at"}).AddRow(3, now))
	mock.ExpectExec(exactSQL(`ALTER TABLE "blog_posts" ADD COLUMN "title" VARCHAR(255)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := queryAddAssignment(context.Background(), db, testStream(), a, &model.Column{Name: "title", Type: "VARCHAR(255)"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.SortOrder != 3 {
		t.Errorf("SortOrder = %d, want 3", a.SortOrder)
	}
}

func TestQueryAddAssignment_NoColumn(t *testing.T) {
	db, mock := newMockDB(t)
	a := &model.Assignment{ID: "asn-1", StreamID: "str-1", FieldID: "fld-1"}

	mock.ExpectQuery("INSERT INTO field_assignments").
		WithArgs("asn-1", "str-1", "fld-1", nil, false, false).
		WillReturnRows(sqlmock.NewRows([]string{"sort_order", "created_at"}).AddRow(1, time.Now()))

	if err := queryAddAssignment(context.Background(), db, testStream(), a, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryUpdateAssignment_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("UPDATE field_assignments").
		WithArgs("asn-missing", nil, true, false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := queryUpdateAssignment(context.Background(), db, &model.Assignment{ID: "asn-missing", Unique: true})
	if err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestQueryGetAssignment(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .+ FROM field_assignments a JOIN fields f ON f.id = a.field_id WHERE a.stream_id = \\$1 AND a.field_id = \\$2").
		WithArgs("str-1", "fld-1").
		WillReturnRows(sqlmock.NewRows(assignmentRowColumns).
			AddRow("asn-1", "str-1", "fld-1", 1, "Help", true, false, now, "Title", "title", "text", []byte(`{}`)))

	a, err := queryGetAssignment(context.Background(), db, "str-1", "fld-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.FieldSlug != "title" || a.InstructionsText() != "Help" || !a.Unique {
		t.Fatalf("unexpected assignment: %+v", a)
	}
}

func TestQueryRemoveAssignment(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("DELETE FROM field_assignments WHERE id = \\$1").
		WithArgs("asn-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(exactSQL(`ALTER TABLE "blog_posts" DROP COLUMN IF EXISTS "title"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE streams SET title_column = NULL").
		WithArgs("str-1", "title").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := queryRemoveAssignment(context.Background(), db, testStream(), &model.Assignment{ID: "asn-1", FieldSlug: "title"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryRemoveAssignment_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("DELETE FROM field_assignments WHERE id = \\$1").
		WithArgs("asn-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := queryRemoveAssignment(context.Background(), db, testStream(), &model.Assignment{ID: "asn-1", FieldSlug: "title"})
	if err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestQueryListStreamAssignments(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .+ WHERE a.stream_id = \\$1 ORDER BY a.sort_order ASC").
		WithArgs("str-1").
		WillReturnRows(sqlmock.NewRows(assignmentRowColumns).
			AddRow("asn-1", "str-1", "fld-1", 1, nil, false, true, now, "Title", "title", "text", []byte(`{}`)).
			AddRow("asn-2", "str-1", "fld-2", 2, "Markdown", false, false, now, "Body", "body", "textarea", nil))

	assigns, err := queryListStreamAssignments(context.Background(), db, "str-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(assigns) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(assigns))
	}
	if assigns[0].Instructions != nil || !assigns[0].Required {
		t.Errorf("first assignment = %+v", assigns[0])
	}
	if assigns[1].InstructionsText() != "Markdown" || assigns[1].FieldType != "textarea" {
		t.Errorf("second assignment = %+v", assigns[1])
	}
}

func TestQueryListStreamAssignments_Empty(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT .+ WHERE a.stream_id = \\$1").
		WithArgs("str-1").
		WillReturnRows(sqlmock.NewRows(assignmentRowColumns))

	assigns, err := queryListStreamAssignments(context.Background(), db, "str-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(assigns) != 0 {
		t.Fatalf("expected no assignments, got %d", len(assigns))
	}
}

func TestQueryRecordEvent(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	e := &model.Event{Topic: "streams.field.created", SubjectID: "fld-1", Actor: "ada", Payload: []byte(`{}`)}
	mock.ExpectQuery("INSERT INTO events").
		WithArgs("streams.field.created", "fld-1", "ada", []byte(`{}`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), now))

	if err := queryRecordEvent(context.Background(), db, e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID != 7 {
		t.Errorf("ID = %d, want 7", e.ID)
	}
}

func TestRunInTransaction_Commit(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewFromDB(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE streams SET title_column").
		WithArgs("str-1", "title").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.RunInTransaction(context.Background(), func(tx store.Store) error {
		return tx.SetStreamTitleColumn(context.Background(), "str-1", "title")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunInTransaction_Rollback(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewFromDB(db)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := s.RunInTransaction(context.Background(), func(tx store.Store) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}
