package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"candidate-interview/internal/common/config"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createSnapshot() *Snapshot {
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	return &Snapshot{
		JobID: 42,
		Session: &models.CandidateSession{
			SessionID:     "1001",
			JobID:         42,
			JobTitle:      "Backend Engineer",
			Profile:       &models.CandidateProfile{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Phone: "+44 20 7946 0958"},
			HasCredential: true,
			CurrentStage:  models.StageQuiz,
			Plan:          []models.Stage{models.StageResumeIntake, models.StageIdentityVerification, models.StageQuiz, models.StageVideoInterview, models.StageCompletion},
			MatchStatus:   models.AnalysisDeferred,
			StartedAt:     at,
		},
		Responses: []models.InterviewResponse{
			{Stage: models.StageQuiz, QuestionID: "5", Order: 1, Payload: models.ResponsePayload{OptionIDs: []int64{11}}, SubmittedAt: at},
		},
		SavedAt: at,
	}
}

// ==========================
// Memory Store Tests
// ==========================

func TestMemoryStore_SaveLoadDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	snapshot := createSnapshot()

	require.NoError(t, store.Save(ctx, snapshot))

	loaded, err := store.Load(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, snapshot, loaded)

	snapshot.Session.CurrentStage = models.StageCoding
	again, err := store.Load(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, models.StageQuiz, again.Session.CurrentStage)

	require.NoError(t, store.Delete(ctx, 42))
	_, err = store.Load(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_RejectsIncompleteSnapshot(t *testing.T) {
	store := NewMemoryStore()

	assert.Error(t, store.Save(context.Background(), nil))
	assert.Error(t, store.Save(context.Background(), &Snapshot{JobID: 42}))
	assert.Error(t, store.Save(context.Background(), &Snapshot{Session: &models.CandidateSession{}}))
}

func TestNopStore(t *testing.T) {
	store := NopStore{}
	require.NoError(t, store.Save(context.Background(), createSnapshot()))

	_, err := store.Load(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

// ==========================
// Postgres Store Tests
// ==========================

func newPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewPostgresStore(db, "", logger.NewTestLogger(t))
	require.NoError(t, err)
	return store, mock
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock := newPostgresStore(t)
	snapshot := createSnapshot()

	mock.ExpectExec(`INSERT INTO "interview_session_snapshots"`).
		WithArgs(int64(42), "1001", "quiz", sqlmock.AnyArg(), snapshot.SavedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Save(context.Background(), snapshot))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveFailure(t *testing.T) {
	store, mock := newPostgresStore(t)

	mock.ExpectExec(`INSERT INTO`).WillReturnError(fmt.Errorf("connection reset"))

	err := store.Save(context.Background(), createSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPostgresStore_Load(t *testing.T) {
	store, mock := newPostgresStore(t)
	payload, err := json.Marshal(createSnapshot())
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT payload FROM "interview_session_snapshots" WHERE job_id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))

	loaded, err := store.Load(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, createSnapshot(), loaded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadMissing(t *testing.T) {
	store, mock := newPostgresStore(t)

	mock.ExpectQuery(`SELECT payload`).WithArgs(int64(7)).WillReturnError(sql.ErrNoRows)

	_, err := store.Load(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_LoadCorrupt(t *testing.T) {
	store, mock := newPostgresStore(t)

	mock.ExpectQuery(`SELECT payload`).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow([]byte("{not json")))

	_, err := store.Load(context.Background(), 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode snapshot")
}

func TestPostgresStore_DeleteAndSchema(t *testing.T) {
	store, mock := newPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "interview_session_snapshots"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM "interview_session_snapshots" WHERE job_id = \$1`).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, store.Delete(context.Background(), 42))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgresStore_RejectsUnsafeTableName(t *testing.T) {
	_, err := NewPostgresStore(nil, "snapshots; DROP TABLE users", nil)
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tests := []struct {
		name    string
		cfg     config.SessionConfig
		db      *sql.DB
		want    interface{}
		wantErr string
	}{
		{name: "default", want: &MemoryStore{}},
		{name: "none", cfg: config.SessionConfig{SnapshotBackend: config.BackendNone}, want: NopStore{}},
		{name: "postgres", cfg: config.SessionConfig{SnapshotBackend: config.BackendPostgres}, db: db, want: &PostgresStore{}},
		{name: "postgres without db", cfg: config.SessionConfig{SnapshotBackend: config.BackendPostgres}, wantErr: "postgres connection is required"},
		{name: "unknown", cfg: config.SessionConfig{SnapshotBackend: "dynamo"}, wantErr: "unknown snapshot backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewFromConfig(tt.cfg, tt.db, logger.NewNoOpLogger())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, store)
		})
	}
}
