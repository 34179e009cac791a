package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-disaster-id-scan/internal/mrz"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	repo.now = func() time.Time { return time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC) }

	r := &Registrant{
		FirstName:          "ERIKA",
		LastName:           "MUSTERMANN",
		DateOfBirth:        date(1988, 3, 21),
		Nationality:        "Germany",
		Residence:          "Germany",
		PlaceOfCatastrophe: "Ahrweiler",
		DateOfCatastrophe:  date(2026, 10, 14),
		DocumentType:       "TD1",
		DocumentNumber:     "T22000129",
		ChecksumsValid:     true,
	}
	require.NoError(t, repo.Create(ctx, r))
	require.NotEmpty(t, r.ID)
	assert.Equal(t, repo.now(), r.RegisteredAt)

	got, err := repo.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, got)

	got.PlaceOfShelter = "Turnhalle Nord"
	got.DateOfBirth = nil
	require.NoError(t, repo.Update(ctx, got))

	updated, err := repo.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Turnhalle Nord", updated.PlaceOfShelter)
	assert.Nil(t, updated.DateOfBirth)
	assert.Equal(t, r.RegisteredAt, updated.RegisteredAt)

	require.NoError(t, repo.Delete(ctx, r.ID))
	_, err = repo.Get(ctx, r.ID)
	assert.ErrorIs(t, err, ErrRegistrantNotFound)
}

func TestSQLiteRepository_UpdateKeepsRegistrationTime(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	r := &Registrant{LastName: "DOE", RegisteredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	require.NoError(t, repo.Create(ctx, r))

	require.NoError(t, repo.Update(ctx, &Registrant{ID: r.ID, LastName: "DOE", FirstName: "JANE"}))
	got, err := repo.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "JANE", got.FirstName)
	assert.Equal(t, r.RegisteredAt, got.RegisteredAt)
}

func TestSQLiteRepository_Errors(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	assert.ErrorIs(t, repo.Create(ctx, &Registrant{}), ErrInvalidRegistrant)
	assert.ErrorIs(t, repo.Update(ctx, &Registrant{ID: "missing", LastName: "X", RegisteredAt: time.Now()}), ErrRegistrantNotFound)
	assert.ErrorIs(t, repo.Update(ctx, &Registrant{ID: "missing", LastName: "X"}), ErrRegistrantNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "missing"), ErrRegistrantNotFound)

	future := time.Now().AddDate(1, 0, 0)
	assert.ErrorIs(t, repo.Create(ctx, &Registrant{LastName: "X", DateOfBirth: &future}), ErrInvalidRegistrant)

	require.NoError(t, repo.Ping(ctx))
}

func TestSQLiteRepository_ListOrder(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	base := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	for i, name := range []string{"C", "A", "B"} {
		// Registered out of insertion order.
		offset := map[int]time.Duration{0: 2 * time.Hour, 1: 0, 2: time.Hour}[i]
		require.NoError(t, repo.Create(ctx, &Registrant{LastName: name, RegisteredAt: base.Add(offset)}))
	}

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "A", list[0].LastName)
	assert.Equal(t, "B", list[1].LastName)
	assert.Equal(t, "C", list[2].LastName)
}

func TestSQLiteRepository_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "registrants.db")

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	r := &Registrant{LastName: "PERSISTED"}
	require.NoError(t, repo.Create(ctx, r))
	require.NoError(t, repo.Close())

	reopened, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "PERSISTED", got.LastName)
}

func TestFromIdentity(t *testing.T) {
	id, err := mrz.Parse("IDD<<T220001293<<<<<<<<<<<<<<<8803218F3103315D<<<<<<<<<<<<<0MUSTERMANN<<ERIKA<<<<<<<<<<<<<",
		mrz.DefaultOptions().WithCenturyPivot(mrz.PivotRelativeTo(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), mrz.DefaultMaxAge)))
	require.NoError(t, err)

	r := FromIdentity(id)
	assert.Equal(t, "ERIKA", r.FirstName)
	assert.Equal(t, "MUSTERMANN", r.LastName)
	assert.Equal(t, date(1988, 3, 21), r.DateOfBirth)
	assert.Equal(t, "Germany", r.Nationality)
	assert.Equal(t, "Germany", r.Residence)
	assert.Equal(t, "TD1", r.DocumentType)
	assert.True(t, r.ChecksumsValid)
}

func TestDisplayName(t *testing.T) {
	r := &Registrant{ID: "42", FirstName: "ERIKA", LastName: "MUSTERMANN"}
	assert.Equal(t, "MUSTERMANN, ERIKA #42", r.DisplayName())
}

func TestWriteCSV(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	registrants := []*Registrant{
		{
			FirstName:          "ERIKA",
			LastName:           "MUSTERMANN",
			DateOfBirth:        date(1988, 3, 21),
			Nationality:        "Germany",
			Residence:          "Germany",
			PlaceOfShelter:     "Turnhalle Nord",
			PlaceOfCatastrophe: "Ahrweiler",
			DateOfCatastrophe:  date(2026, 10, 14),
			RegisteredAt:       time.Date(2026, 10, 18, 9, 5, 7, 0, time.UTC),
		},
		{LastName: "UNKNOWN"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, registrants, now))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, ExportHeader, records[0])
	assert.Equal(t, []string{
		"MUSTERMANN", "ERIKA", "21.03.1988", "38", "Germany", "Germany",
		"Turnhalle Nord", "Ahrweiler", "14.10.2026", "18.10.2026 09:05:07",
	}, records[1])
	assert.Equal(t, []string{"UNKNOWN", "", "", "", "", "", "", "", "", ""}, records[2])
}

func TestWriteJSON_RoundTrip(t *testing.T) {
	registrants := []*Registrant{
		{ID: "1", LastName: "A", DateOfBirth: date(1990, 1, 1), RegisteredAt: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, registrants))
	got, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, registrants, got)

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, nil))
	assert.JSONEq(t, "[]", buf.String())
}
