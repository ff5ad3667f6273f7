package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// insertTask is a test helper that stores a task with sensible defaults.
func insertTask(t *testing.T, s *Store, id string, area Area, date string, order int) Task {
	t.Helper()
	task := Task{
		ID:        id,
		Title:     "task " + id,
		Area:      area,
		Date:      date,
		Order:     order,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
	if err := s.Insert(context.Background(), task); err != nil {
		t.Fatalf("insert %s: %v", id, err)
	}
	return task
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != currentVersion {
		t.Fatalf("expected user_version %d, got %d", currentVersion, version)
	}
}

func TestNewWithPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sub/tinynotes.db"
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	insertTask(t, s, "a", AreaInbox, "", 0)
	s.Close()

	// Reopen: should succeed, not re-migrate, and keep data
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if _, err := s2.GetTask(context.Background(), "a"); err != nil {
		t.Fatalf("task lost across reopen: %v", err)
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	if _, err := Open("mysql", "x"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

func TestMigrateFromV1(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, dialect: dialectSQLite}
	defer s.Close()

	if err := s.migrateV1(); err != nil {
		t.Fatal(err)
	}
	if err := s.setSchemaVersion(1); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO tasks (id, title, area, created_at, updated_at)
		VALUES ('old', 'Old task', 'inbox', '2024-04-01T12:00:00Z', '2024-04-01T12:00:00Z')`); err != nil {
		t.Fatal(err)
	}

	if err := s.migrate(); err != nil {
		t.Fatal(err)
	}
	version, _ := s.schemaVersion()
	if version != currentVersion {
		t.Fatalf("expected version %d, got %d", currentVersion, version)
	}
	got, err := s.GetTask(context.Background(), "old")
	if err != nil {
		t.Fatal(err)
	}
	if got.Time != "" || got.EndTime != "" {
		t.Fatalf("untimed task gained a schedule: %+v", got)
	}
}

func TestBackfillEndTimes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	timed := insertTask(t, s, "timed", AreaWeek, "2024-05-01", 0)
	if _, err := s.db.Exec(`UPDATE tasks SET time = '23:45', end_time = NULL WHERE id = 'timed'`); err != nil {
		t.Fatal(err)
	}
	insertTask(t, s, "plain", AreaInbox, "", 0)

	if err := s.backfillEndTimes(); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetTask(ctx, timed.ID)
	if got.Time != "23:45" || got.EndTime != "00:15" {
		t.Fatalf("expected 23:45-00:15, got %s-%s", got.Time, got.EndTime)
	}
	plain, _ := s.GetTask(ctx, "plain")
	if plain.EndTime != "" {
		t.Fatal("untimed task should not get an end time")
	}
}

func TestMalformedTimestampIsAnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTask(t, s, "good", AreaInbox, "", 0)
	insertTask(t, s, "bad", AreaInbox, "", 1)
	if _, err := s.db.Exec(`UPDATE tasks SET created_at = 'yesterday' WHERE id = 'bad'`); err != nil {
		t.Fatal(err)
	}

	if _, err := s.GetTask(ctx, "good"); err != nil {
		t.Fatalf("good row: %v", err)
	}
	if _, err := s.GetTask(ctx, "bad"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected a parse error, got %v", err)
	}
	if _, err := s.FetchBaseTasks(ctx); err == nil {
		t.Fatal("listing should fail on a malformed timestamp")
	}
}

func TestRebind(t *testing.T) {
	q := `UPDATE tasks SET title = ?, "order" = ? WHERE id = ?`
	if got := dialectSQLite.rebind(q); got != q {
		t.Fatalf("sqlite rebind changed query: %s", got)
	}
	want := `UPDATE tasks SET title = $1, "order" = $2 WHERE id = $3`
	if got := dialectPostgres.rebind(q); got != want {
		t.Fatalf("postgres rebind = %s", got)
	}
}

// ============================================================
// Tasks
// ============================================================

func TestInsertAndGetTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	in := Task{
		ID:          "t1",
		Title:       "Buy milk",
		Description: "2 liters",
		Area:        AreaWeek,
		Date:        "2024-05-01",
		Time:        "09:00",
		EndTime:     "09:30",
		Order:       3,
		Completed:   true,
		Color:       ColorGreen,
		CreatedAt:   testNow,
		UpdatedAt:   testNow.Add(time.Minute),
	}
	if err := s.Insert(ctx, in); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetTask(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if *got != in {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", *got, in)
	}
}

func TestInsertOptionalFieldsStoredAsNull(t *testing.T) {
	s := newTestStore(t)
	insertTask(t, s, "t1", AreaInbox, "", 0)

	var desc, date, color *string
	err := s.db.QueryRow(`SELECT description, date, color FROM tasks WHERE id = 't1'`).Scan(&desc, &date, &color)
	if err != nil {
		t.Fatal(err)
	}
	if desc != nil || date != nil || color != nil {
		t.Fatal("empty optional fields should be NULL in storage")
	}
}

func TestInsertDuplicateID(t *testing.T) {
	s := newTestStore(t)
	insertTask(t, s, "dup", AreaInbox, "", 0)
	err := s.Insert(context.Background(), Task{ID: "dup", Title: "again", Area: AreaInbox})
	if err == nil {
		t.Fatal("expected error for duplicate id")
	}
}

func TestGetTaskNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetTask(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdatePartial(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTask(t, s, "t1", AreaInbox, "", 0)

	area := AreaWeek
	date := "2024-05-02"
	done := true
	if err := s.Update(ctx, "t1", Patch{Area: &area, Date: &date, Completed: &done}); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetTask(ctx, "t1")
	if got.Area != AreaWeek || got.Date != "2024-05-02" || !got.Completed {
		t.Fatalf("update failed: %+v", got)
	}
	if got.Title != "task t1" {
		t.Fatal("untouched field changed")
	}
}

func TestUpdateClearsOptionalField(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTask(t, s, "t1", AreaWeek, "2024-05-01", 0)

	area := AreaSomeday
	empty := ""
	if err := s.Update(ctx, "t1", Patch{Area: &area, Date: &empty}); err != nil {
		t.Fatal(err)
	}
	var date *string
	s.db.QueryRow(`SELECT date FROM tasks WHERE id = 't1'`).Scan(&date)
	if date != nil {
		t.Fatalf("date should be NULL, got %q", *date)
	}
}

func TestUpdateEmptyPatchIsNoop(t *testing.T) {
	s := newTestStore(t)
	if err := s.Update(context.Background(), "whatever", Patch{}); err != nil {
		t.Fatalf("empty patch: %v", err)
	}
}

func TestUpdateNotFound(t *testing.T) {
	s := newTestStore(t)
	title := "x"
	err := s.Update(context.Background(), "missing", Patch{Title: &title})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTask(t, s, "t1", AreaInbox, "", 0)
	if err := s.Delete(ctx, "t1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetTask(ctx, "t1"); !errors.Is(err, ErrNotFound) {
		t.Fatal("task should be gone")
	}
	if err := s.Delete(ctx, "t1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestUpdateCanceledContext(t *testing.T) {
	s := newTestStore(t)
	insertTask(t, s, "t1", AreaInbox, "", 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	title := "x"
	if err := s.Update(ctx, "t1", Patch{Title: &title}); err == nil {
		t.Fatal("expected error on canceled context")
	}
}

// ============================================================
// Range queries
// ============================================================

func TestFetchBaseTasks(t *testing.T) {
	s := newTestStore(t)
	insertTask(t, s, "i2", AreaInbox, "", 2)
	insertTask(t, s, "i1", AreaInbox, "", 1)
	insertTask(t, s, "s0", AreaSomeday, "", 0)
	insertTask(t, s, "w0", AreaWeek, "2024-05-01", 0)

	tasks, err := s.FetchBaseTasks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 base tasks, got %d", len(tasks))
	}
	if tasks[0].ID != "s0" || tasks[1].ID != "i1" || tasks[2].ID != "i2" {
		t.Fatalf("expected ascending order: %s %s %s", tasks[0].ID, tasks[1].ID, tasks[2].ID)
	}
}

func TestFetchWeekTasks(t *testing.T) {
	s := newTestStore(t)
	insertTask(t, s, "before", AreaWeek, "2024-04-28", 0) // Sunday of previous week
	insertTask(t, s, "mon", AreaWeek, "2024-04-29", 1)
	insertTask(t, s, "sun", AreaWeek, "2024-05-05", 0)
	insertTask(t, s, "after", AreaWeek, "2024-05-06", 0)
	insertTask(t, s, "inbox", AreaInbox, "", 0)

	tasks, err := s.FetchWeekTasks(context.Background(), "2024-04-29")
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks in week, got %d", len(tasks))
	}
	if tasks[0].ID != "sun" || tasks[1].ID != "mon" {
		t.Fatalf("expected order sun, mon; got %s, %s", tasks[0].ID, tasks[1].ID)
	}
}

func TestFetchWeekTasksInvalidKey(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.FetchWeekTasks(context.Background(), "next week"); err == nil {
		t.Fatal("expected error for invalid week key")
	}
}

func TestQueryRangeEmpty(t *testing.T) {
	s := newTestStore(t)
	tasks, err := s.QueryRange(context.Background(), Filter{Areas: []Area{AreaInbox}})
	if err != nil {
		t.Fatal(err)
	}
	if tasks != nil {
		t.Fatalf("expected nil slice, got %d items", len(tasks))
	}
}

func TestListTasks(t *testing.T) {
	s := newTestStore(t)
	insertTask(t, s, "a", AreaInbox, "", 0)
	insertTask(t, s, "b", AreaWeek, "2024-05-01", 1)
	tasks, err := s.ListTasks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
}

// ============================================================
// Patch
// ============================================================

func TestPatchApplyAndDiff(t *testing.T) {
	from := Task{ID: "x", Title: "a", Area: AreaInbox, Order: 1, UpdatedAt: testNow}
	to := from
	to.Title = "b"
	to.Area = AreaWeek
	to.Date = "2024-05-01"
	to.UpdatedAt = testNow.Add(time.Second)

	p := Diff(from, to)
	if p.Order != nil || p.Completed != nil {
		t.Fatal("diff should only touch changed fields")
	}
	if got := p.Apply(from); got != to {
		t.Fatalf("apply(diff) mismatch: %+v", got)
	}
	if !Diff(from, from).Empty() {
		t.Fatal("diff of identical tasks should be empty")
	}
}

func TestPartition(t *testing.T) {
	inbox := Task{Area: AreaInbox, Date: "2024-05-01"}
	if inbox.Partition() != (Partition{Area: AreaInbox}) {
		t.Fatal("non-week partition ignores date")
	}
	week := Task{Area: AreaWeek, Date: "2024-05-01"}
	if week.Partition() != (Partition{Area: AreaWeek, Date: "2024-05-01"}) {
		t.Fatal("week partition includes date")
	}
}

func TestAreaAndColorValid(t *testing.T) {
	for _, a := range Areas {
		if !a.Valid() {
			t.Fatalf("%s should be valid", a)
		}
	}
	if Area("later").Valid() {
		t.Fatal("unknown area accepted")
	}
	if !ColorNone.Valid() || !ColorLavender.Valid() || Color("pink").Valid() {
		t.Fatal("color validation wrong")
	}
}

// ============================================================
// Settings
// ============================================================

func TestSettingsDefaults(t *testing.T) {
	s := newTestStore(t)
	v, err := s.GetSetting("snap_minutes")
	if err != nil {
		t.Fatal(err)
	}
	if v != "30" {
		t.Fatalf("snap_minutes = %q, want 30", v)
	}
	if n := s.GetIntSetting("min_duration_minutes", 0); n != 30 {
		t.Fatalf("min_duration_minutes = %d", n)
	}
}

func TestSetSettingUpsert(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetSetting("snap_minutes", "15"); err != nil {
		t.Fatal(err)
	}
	if n := s.GetIntSetting("snap_minutes", 0); n != 15 {
		t.Fatalf("expected 15, got %d", n)
	}
	if err := s.SetSetting("custom", "x"); err != nil {
		t.Fatal(err)
	}
	all, err := s.GetAllSettings()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 settings, got %d", len(all))
	}
}

func TestGetIntSettingFallback(t *testing.T) {
	s := newTestStore(t)
	if n := s.GetIntSetting("missing", 7); n != 7 {
		t.Fatalf("fallback not used: %d", n)
	}
	s.SetSetting("garbage", "abc")
	if n := s.GetIntSetting("garbage", 9); n != 9 {
		t.Fatalf("fallback not used for malformed value: %d", n)
	}
}
