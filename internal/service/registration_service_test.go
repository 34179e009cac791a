package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "go-disaster-id-scan/internal/errors"
	"go-disaster-id-scan/internal/mrz"
	"go-disaster-id-scan/internal/observer"
	"go-disaster-id-scan/internal/ocr"
	"go-disaster-id-scan/internal/repository"
	"go-disaster-id-scan/internal/scanner"
	"go-disaster-id-scan/internal/storage"
	"go-disaster-id-scan/pkg/models"
	"go-disaster-id-scan/pkg/validation"
)

const germanMRZ = "IDD<<T220001293<<<<<<<<<<<<<<<\n8803218F3103315D<<<<<<<<<<<<<0\nMUSTERMANN<<ERIKA<<<<<<<<<<<<<"

var referenceNow = time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

type eventRecorder struct {
	mu     sync.Mutex
	events []observer.EventType
}

func (r *eventRecorder) OnEvent(ctx context.Context, event observer.ScanEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event.EventType)
}

func (r *eventRecorder) GetObserverName() string { return "recorder" }

func (r *eventRecorder) has(t observer.EventType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == t {
			return true
		}
	}
	return false
}

type failingSink struct{}

func (failingSink) Put(ctx context.Context, name string, data []byte) error {
	return errors.New("disk full")
}
func (failingSink) Name() string { return "failing" }

type fixture struct {
	svc    RegistrationService
	sink   *storage.LocalSink
	events *eventRecorder
	dir    string
}

func newFixture(t *testing.T, sink storage.ExportSink) *fixture {
	t.Helper()

	repo, err := repository.NewSQLiteRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	dir := t.TempDir()
	local, err := storage.NewLocalSink(dir)
	require.NoError(t, err)
	if sink == nil {
		sink = local
	}

	events := &eventRecorder{}
	publisher := observer.NewEventPublisher()
	publisher.Subscribe(events)

	parseOpts := mrz.DefaultOptions().WithCenturyPivot(mrz.PivotRelativeTo(referenceNow, mrz.DefaultMaxAge))
	svc := NewRegistrationService(
		repo,
		scanner.New(ocr.NewTextEngine(), scanner.WithParseOptions(parseOpts)),
		storage.NewHTTPFrameFetcher(5*time.Second, storage.WithBackoff(time.Millisecond)),
		validation.NewURLValidator(),
		sink,
		publisher,
		Options{ParseOptions: parseOpts, Now: func() time.Time { return referenceNow }},
	)
	return &fixture{svc: svc, sink: local, events: events, dir: dir}
}

func TestParseText(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := f.svc.ParseText(context.Background(), models.ParseRequest{Text: germanMRZ})
	require.NoError(t, err)
	assert.Equal(t, "MUSTERMANN", resp.Identity.LastName)
	assert.Equal(t, "ERIKA", resp.Identity.FirstName)
	assert.Equal(t, time.Date(1988, 3, 21, 0, 0, 0, 0, time.UTC), *resp.Identity.BirthDate)
	assert.True(t, resp.Identity.ChecksumsValid())
	assert.Equal(t, "Germany", resp.Registrant.Residence)
	assert.Empty(t, resp.Registrant.ID, "parsing must not register anyone")
	assert.True(t, f.events.has(observer.ScanCompleted))

	list, err := f.svc.ListRegistrants(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestParseText_CenturyPivot(t *testing.T) {
	f := newFixture(t, nil)
	pivot := 90

	resp, err := f.svc.ParseText(context.Background(), models.ParseRequest{Text: germanMRZ, CenturyPivot: &pivot})
	require.NoError(t, err)
	assert.Equal(t, 2088, resp.Identity.BirthDate.Year())
}

func TestParseText_Errors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.ParseText(ctx, models.ParseRequest{Text: "  "})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = f.svc.ParseText(ctx, models.ParseRequest{Text: "HELLO<WORLD"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnrecognizedFormat))
	assert.Equal(t, http.StatusUnprocessableEntity, apperrors.GetStatusCode(err))
	assert.True(t, f.events.has(observer.ScanFailed))

	corrupted := strings.Replace(germanMRZ, "8803218F", "8803219F", 1)
	resp, err := f.svc.ParseText(ctx, models.ParseRequest{Text: corrupted, StrictChecksums: true})
	require.True(t, apperrors.IsType(err, apperrors.ErrorTypeChecksum))
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Details, "birth_date")
	require.NotNil(t, resp, "the decoded identity is kept for review")
	assert.Equal(t, "MUSTERMANN", resp.Identity.LastName)
	assert.Equal(t, "ERIKA", resp.Registrant.FirstName)
	assert.False(t, resp.Identity.ChecksumsValid())

	// Advisory by default.
	resp, err = f.svc.ParseText(ctx, models.ParseRequest{Text: corrupted})
	require.NoError(t, err)
	assert.False(t, resp.Identity.ChecksumsValid())
}

func TestScanFrame(t *testing.T) {
	f := newFixture(t, nil)

	frame := []byte("BUNDESREPUBLIK DEUTSCHLAND\n" + germanMRZ)
	expected := strings.Replace(germanMRZ, "\n", "", -1)

	resp, err := f.svc.ScanFrame(context.Background(), frame, expected)
	require.NoError(t, err)
	assert.Equal(t, mrz.TD1, resp.Identity.DocumentType)
	require.NotNil(t, resp.Accuracy)
	assert.True(t, resp.Accuracy.Exact)

	_, err = f.svc.ScanFrame(context.Background(), nil, "")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = f.svc.ScanFrame(context.Background(), []byte("NO MRZ HERE"), "")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnrecognizedFormat))
}

func TestScanURL(t *testing.T) {
	f := newFixture(t, nil)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(germanMRZ))
	}))
	defer server.Close()

	resp, err := f.svc.ScanURL(context.Background(), models.ScanURLRequest{URL: server.URL + "/frame"})
	require.NoError(t, err)
	assert.Equal(t, "MUSTERMANN", resp.Identity.LastName)
	assert.True(t, f.events.has(observer.FrameFetched))

	_, err = f.svc.ScanURL(context.Background(), models.ScanURLRequest{URL: server.URL + "/missing"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNetwork))
	assert.True(t, f.events.has(observer.FrameFetchFailed))

	_, err = f.svc.ScanURL(context.Background(), models.ScanURLRequest{URL: "ftp://example.com/frame"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestRegistrantLifecycle_Autosave(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	parsed, err := f.svc.ParseText(ctx, models.ParseRequest{Text: germanMRZ})
	require.NoError(t, err)

	draft := parsed.Registrant
	draft.PlaceOfShelter = "Turnhalle Nord"
	saved, err := f.svc.Register(ctx, draft)
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)
	assert.Equal(t, referenceNow, saved.RegisteredAt)
	assert.True(t, f.events.has(observer.RegistrantSaved))
	assert.True(t, f.events.has(observer.ExportWritten))

	records := readExport(t, f.dir)
	require.Len(t, records, 2)
	assert.Equal(t, []string{
		"MUSTERMANN", "ERIKA", "21.03.1988", "38", "Germany", "Germany",
		"Turnhalle Nord", "", "", "18.10.2026 10:00:00",
	}, records[1])

	saved.FirstName = "ERIKA MARIA"
	_, err = f.svc.UpdateRegistrant(ctx, saved)
	require.NoError(t, err)
	got, err := f.svc.GetRegistrant(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "ERIKA MARIA", got.FirstName)
	assert.Equal(t, "ERIKA MARIA", readExport(t, f.dir)[1][1])

	snapshot, err := os.Open(filepath.Join(f.dir, repository.JSONExportName))
	require.NoError(t, err)
	restored, err := repository.ReadJSON(snapshot)
	snapshot.Close()
	require.NoError(t, err)
	require.Len(t, restored, 1)
	assert.Equal(t, saved.ID, restored[0].ID)

	require.NoError(t, f.svc.DeleteRegistrant(ctx, saved.ID))
	assert.Len(t, readExport(t, f.dir), 1)

	_, err = f.svc.GetRegistrant(ctx, saved.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestImportSnapshot(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	parsed, err := f.svc.ParseText(ctx, models.ParseRequest{Text: germanMRZ})
	require.NoError(t, err)
	saved, err := f.svc.Register(ctx, parsed.Registrant)
	require.NoError(t, err)

	snapshot, err := os.ReadFile(filepath.Join(f.dir, repository.JSONExportName))
	require.NoError(t, err)

	n, err := f.svc.Import(ctx, bytes.NewReader(snapshot))
	require.NoError(t, err)
	assert.Equal(t, 0, n, "stored IDs are skipped")

	require.NoError(t, f.svc.DeleteRegistrant(ctx, saved.ID))
	n, err = f.svc.Import(ctx, bytes.NewReader(snapshot))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	restored, err := f.svc.GetRegistrant(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "MUSTERMANN", restored.LastName)
	assert.True(t, saved.RegisteredAt.Equal(restored.RegisteredAt))
	assert.Len(t, readExport(t, f.dir), 2)

	_, err = f.svc.Import(ctx, strings.NewReader("{not json"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestPing(t *testing.T) {
	f := newFixture(t, nil)
	assert.NoError(t, f.svc.Ping(context.Background()))
}

func TestRegistrantErrors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, &repository.Registrant{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = f.svc.GetRegistrant(ctx, "not-a-uuid")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	err = f.svc.DeleteRegistrant(ctx, "6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	_, err = f.svc.UpdateRegistrant(ctx, &repository.Registrant{ID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8", LastName: "X"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestAutosaveFailureKeepsRegistration(t *testing.T) {
	f := newFixture(t, failingSink{})
	ctx := context.Background()

	saved, err := f.svc.Register(ctx, &repository.Registrant{LastName: "DOE"})
	require.NoError(t, err)
	assert.True(t, f.events.has(observer.ExportFailed))

	got, err := f.svc.GetRegistrant(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "DOE", got.LastName)

	err = f.svc.Export(ctx)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStorage))
}

func TestWriteCSV(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, &repository.Registrant{LastName: "DOE", FirstName: "JANE"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.svc.WriteCSV(ctx, &buf))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, repository.ExportHeader, records[0])
	assert.Equal(t, "DOE", records[1][0])
}

func readExport(t *testing.T, dir string) [][]string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, repository.CSVExportName))
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}
