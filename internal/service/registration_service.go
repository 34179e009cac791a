package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go-disaster-id-scan/internal/capture"
	apperrors "go-disaster-id-scan/internal/errors"
	"go-disaster-id-scan/internal/logger"
	"go-disaster-id-scan/internal/mrz"
	"go-disaster-id-scan/internal/observer"
	"go-disaster-id-scan/internal/ocr"
	"go-disaster-id-scan/internal/repository"
	"go-disaster-id-scan/internal/scanner"
	"go-disaster-id-scan/internal/storage"
	"go-disaster-id-scan/pkg/models"
	"go-disaster-id-scan/pkg/validation"
)

// RegistrationService defines the operations behind the registration desk
type RegistrationService interface {
	// Decoding; results are returned for review and never stored. A checksum
	// failure in strict mode returns the response together with the error.
	ParseText(ctx context.Context, req models.ParseRequest) (*models.ScanResponse, error)
	ScanFrame(ctx context.Context, frame []byte, expectedMRZ string) (*models.ScanResponse, error)
	ScanURL(ctx context.Context, req models.ScanURLRequest) (*models.ScanResponse, error)

	// Registrant management; every mutation refreshes the export
	Register(ctx context.Context, r *repository.Registrant) (*repository.Registrant, error)
	UpdateRegistrant(ctx context.Context, r *repository.Registrant) (*repository.Registrant, error)
	DeleteRegistrant(ctx context.Context, id string) error
	GetRegistrant(ctx context.Context, id string) (*repository.Registrant, error)
	ListRegistrants(ctx context.Context) ([]*repository.Registrant, error)

	// Export writes the CSV and JSON snapshot to the export sink
	Export(ctx context.Context) error
	// WriteCSV streams the current CSV export to w
	WriteCSV(ctx context.Context, w io.Writer) error
	// Import restores registrants from a JSON snapshot written by Export,
	// skipping IDs that are already stored. It returns the number added.
	Import(ctx context.Context, r io.Reader) (int, error)

	// Ping reports whether the registrant store is reachable
	Ping(ctx context.Context) error
}

// Options configures a registration service
type Options struct {
	ParseOptions mrz.Options
	ScanTimeout  time.Duration
	// Now is used for ages in exports and as the reference for
	// request-level century pivots.
	Now func() time.Time
}

// registrationService wires the scanner, repository and export sink together
type registrationService struct {
	repo      repository.RegistrantRepository
	scanner   *scanner.Scanner
	fetcher   storage.FrameFetcher
	validator *validation.URLValidator
	sink      storage.ExportSink
	events    observer.Subject
	opts      Options
}

// NewRegistrationService creates a new registration service. sink may be nil
// to disable autosave.
func NewRegistrationService(
	repo repository.RegistrantRepository,
	frameScanner *scanner.Scanner,
	fetcher storage.FrameFetcher,
	validator *validation.URLValidator,
	sink storage.ExportSink,
	events observer.Subject,
	opts Options,
) RegistrationService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = 20 * time.Second
	}
	if events == nil {
		events = observer.NewEventPublisher()
	}
	return &registrationService{
		repo:      repo,
		scanner:   frameScanner,
		fetcher:   fetcher,
		validator: validator,
		sink:      sink,
		events:    events,
		opts:      opts,
	}
}

// ParseText decodes MRZ text directly, without OCR.
func (s *registrationService) ParseText(ctx context.Context, req models.ParseRequest) (*models.ScanResponse, error) {
	start := s.opts.Now()
	if strings.TrimSpace(req.Text) == "" {
		return nil, apperrors.NewValidationError("MRZ text is required", nil)
	}

	opts := s.opts.ParseOptions
	if req.StrictChecksums {
		opts = opts.WithStrictChecksums()
	}
	if req.CenturyPivot != nil {
		opts = opts.WithCenturyPivot(mrz.FixedPivot(*req.CenturyPivot))
	}

	s.publish(ctx, observer.ScanEvent{EventType: observer.ScanStarted, Source: "text"})
	id, err := mrz.Parse(req.Text, opts)
	if err != nil {
		appErr := s.mapScanError(err)
		s.publishFailure(ctx, "text", start, appErr)
		if id == nil {
			return nil, appErr
		}
		// Checksum failures still carry the decoded identity for review.
		return s.respond(&scanner.Result{Identity: id, Candidate: mrz.Normalize(req.Text), Strategy: "text"}, start), appErr
	}

	resp := s.respond(&scanner.Result{Identity: id, Candidate: mrz.Normalize(req.Text), Strategy: "text"}, start)
	s.publishSuccess(ctx, "text", start, id)
	return resp, nil
}

// ScanFrame runs OCR over an uploaded frame.
func (s *registrationService) ScanFrame(ctx context.Context, frame []byte, expectedMRZ string) (*models.ScanResponse, error) {
	return s.scan(ctx, "upload", frame, expectedMRZ)
}

// ScanURL fetches a frame from a capture device or blob storage and scans it.
func (s *registrationService) ScanURL(ctx context.Context, req models.ScanURLRequest) (*models.ScanResponse, error) {
	if err := s.validator.ValidateFrameURL(req.URL); err != nil {
		return nil, err
	}

	start := s.opts.Now()
	frame, err := s.fetcher.FetchFrame(ctx, req.URL)
	if err != nil {
		appErr := apperrors.NewNetworkError("failed to fetch frame", err)
		if errors.Is(err, storage.ErrFrameTooLarge) {
			appErr = apperrors.NewValidationError("frame too large", err)
		}
		s.publish(ctx, observer.ScanEvent{
			EventType:      observer.FrameFetchFailed,
			Source:         req.URL,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		})
		return nil, appErr
	}
	s.publish(ctx, observer.ScanEvent{
		EventType:      observer.FrameFetched,
		Source:         req.URL,
		ProcessingTime: time.Since(start),
		Success:        true,
		Metadata:       map[string]interface{}{"bytes": len(frame)},
	})

	return s.scan(ctx, req.URL, frame, req.ExpectedMRZ)
}

func (s *registrationService) scan(ctx context.Context, source string, frame []byte, expectedMRZ string) (*models.ScanResponse, error) {
	start := s.opts.Now()
	if len(frame) == 0 {
		return nil, apperrors.NewValidationError("frame is empty", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.ScanTimeout)
	defer cancel()

	s.publish(ctx, observer.ScanEvent{EventType: observer.ScanStarted, Source: source})
	result, err := s.scanner.Scan(ctx, frame)
	if err != nil && result == nil {
		appErr := s.mapScanError(err)
		s.publishFailure(ctx, source, start, appErr)
		return nil, appErr
	}

	resp := s.respond(result, start)
	if strings.TrimSpace(expectedMRZ) != "" {
		accuracy := scanner.MeasureAccuracy(expectedMRZ, result.Candidate)
		resp.Accuracy = &accuracy
	}
	if err != nil {
		appErr := s.mapScanError(err)
		s.publishFailure(ctx, source, start, appErr)
		return resp, appErr
	}
	s.publishSuccess(ctx, source, start, result.Identity)
	return resp, nil
}

func (s *registrationService) respond(result *scanner.Result, start time.Time) *models.ScanResponse {
	now := s.opts.Now()
	return &models.ScanResponse{
		Identity:          result.Identity,
		Candidate:         result.Candidate,
		Strategy:          result.Strategy,
		Confidence:        result.Confidence,
		Quality:           result.Quality,
		Registrant:        repository.FromIdentity(result.Identity),
		Timestamp:         now.Format(time.RFC3339),
		ProcessingTimeSec: now.Sub(start).Seconds(),
	}
}

// mapScanError converts decoder, scanner and OCR errors to AppErrors
func (s *registrationService) mapScanError(err error) *apperrors.AppError {
	var (
		qualityErr  *scanner.QualityError
		checksumErr *mrz.ChecksumError
	)
	switch {
	case errors.As(err, &qualityErr):
		return apperrors.NewImageQualityError("frame quality too low, please re-capture", err).
			WithDetails(strings.Join(qualityErr.Assessment.Messages(), "; "))
	case errors.As(err, &checksumErr):
		return apperrors.NewChecksumError("check digits do not match", err).
			WithDetails(strings.Join(checksumErr.Fields, ", "))
	case errors.Is(err, mrz.ErrUnrecognizedFormat), errors.Is(err, scanner.ErrNoMRZFound):
		return apperrors.NewUnrecognizedFormatError("no machine-readable zone recognized", err)
	case errors.Is(err, capture.ErrUndecodableFrame):
		return apperrors.NewValidationError("frame is not a JPEG or PNG image", err)
	case errors.Is(err, ocr.ErrEmptyFrame):
		return apperrors.NewValidationError("frame is empty", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError("scan timed out", err)
	case errors.Is(err, ocr.ErrOCRNotEnabled):
		return apperrors.NewOCRError("OCR engine unavailable", err)
	default:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperrors.NewOCRError("OCR failed", err)
	}
}

// Register stores a reviewed registrant and refreshes the export.
func (s *registrationService) Register(ctx context.Context, r *repository.Registrant) (*repository.Registrant, error) {
	if r == nil {
		return nil, apperrors.NewValidationError("registrant is required", nil)
	}
	r.ID = ""
	r.RegisteredAt = time.Time{}

	if err := s.repo.Create(ctx, r); err != nil {
		return nil, mapRepositoryError(err)
	}
	s.publish(ctx, observer.ScanEvent{
		EventType: observer.RegistrantSaved,
		Success:   true,
		Metadata:  map[string]interface{}{"registrant_id": r.ID, "operation": "create"},
	})
	s.autosave(ctx)
	return r, nil
}

func (s *registrationService) UpdateRegistrant(ctx context.Context, r *repository.Registrant) (*repository.Registrant, error) {
	if r == nil {
		return nil, apperrors.NewValidationError("registrant is required", nil)
	}
	if err := validation.ValidateRegistrantID(r.ID); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, r); err != nil {
		return nil, mapRepositoryError(err)
	}
	s.publish(ctx, observer.ScanEvent{
		EventType: observer.RegistrantSaved,
		Success:   true,
		Metadata:  map[string]interface{}{"registrant_id": r.ID, "operation": "update"},
	})
	s.autosave(ctx)
	return r, nil
}

func (s *registrationService) DeleteRegistrant(ctx context.Context, id string) error {
	if err := validation.ValidateRegistrantID(id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepositoryError(err)
	}
	s.publish(ctx, observer.ScanEvent{
		EventType: observer.RegistrantDeleted,
		Success:   true,
		Metadata:  map[string]interface{}{"registrant_id": id},
	})
	s.autosave(ctx)
	return nil
}

func (s *registrationService) GetRegistrant(ctx context.Context, id string) (*repository.Registrant, error) {
	if err := validation.ValidateRegistrantID(id); err != nil {
		return nil, err
	}
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return r, nil
}

func (s *registrationService) ListRegistrants(ctx context.Context) ([]*repository.Registrant, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return list, nil
}

func (s *registrationService) WriteCSV(ctx context.Context, w io.Writer) error {
	list, err := s.ListRegistrants(ctx)
	if err != nil {
		return err
	}
	if err := repository.WriteCSV(w, list, s.opts.Now()); err != nil {
		return apperrors.NewInternalError("failed to write export", err)
	}
	return nil
}

func (s *registrationService) Export(ctx context.Context) error {
	if s.sink == nil {
		return apperrors.NewStorageError("no export sink configured", nil)
	}
	start := s.opts.Now()

	list, err := s.ListRegistrants(ctx)
	if err != nil {
		return err
	}

	var csvBuf, jsonBuf bytes.Buffer
	if err := repository.WriteCSV(&csvBuf, list, s.opts.Now()); err != nil {
		return apperrors.NewInternalError("failed to write export", err)
	}
	if err := repository.WriteJSON(&jsonBuf, list); err != nil {
		return apperrors.NewInternalError("failed to write snapshot", err)
	}

	for name, data := range map[string][]byte{
		repository.CSVExportName:  csvBuf.Bytes(),
		repository.JSONExportName: jsonBuf.Bytes(),
	} {
		if err := s.sink.Put(ctx, name, data); err != nil {
			s.publish(ctx, observer.ScanEvent{
				EventType:    observer.ExportFailed,
				Source:       s.sink.Name(),
				ErrorMessage: err.Error(),
			})
			return apperrors.NewStorageError(fmt.Sprintf("failed to store %s", name), err)
		}
	}

	s.publish(ctx, observer.ScanEvent{
		EventType:      observer.ExportWritten,
		Source:         s.sink.Name(),
		ProcessingTime: s.opts.Now().Sub(start),
		Success:        true,
		Metadata:       map[string]interface{}{"registrants": len(list)},
	})
	return nil
}

func (s *registrationService) Import(ctx context.Context, r io.Reader) (int, error) {
	registrants, err := repository.ReadJSON(r)
	if err != nil {
		return 0, apperrors.NewValidationError("snapshot is not valid JSON", err)
	}

	imported := 0
	for _, reg := range registrants {
		if reg == nil {
			continue
		}
		if reg.ID != "" {
			if err := validation.ValidateRegistrantID(reg.ID); err != nil {
				return imported, err
			}
			if _, err := s.repo.Get(ctx, reg.ID); err == nil {
				continue
			} else if !errors.Is(err, repository.ErrRegistrantNotFound) {
				return imported, mapRepositoryError(err)
			}
		}
		if err := s.repo.Create(ctx, reg); err != nil {
			return imported, mapRepositoryError(err)
		}
		imported++
	}

	s.publish(ctx, observer.ScanEvent{
		EventType: observer.RegistrantSaved,
		Success:   true,
		Metadata:  map[string]interface{}{"operation": "import", "registrants": imported},
	})
	if imported > 0 {
		s.autosave(ctx)
	}
	return imported, nil
}

func (s *registrationService) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return apperrors.NewStorageError("registrant store unavailable", err)
	}
	return nil
}

// autosave refreshes the export after a mutation. The registrant is already
// stored, so a failing sink is logged rather than returned.
func (s *registrationService) autosave(ctx context.Context) {
	if s.sink == nil {
		return
	}
	if err := s.Export(ctx); err != nil {
		logger.WithError(err).Warn("Autosave export failed")
	}
}

func mapRepositoryError(err error) error {
	switch {
	case errors.Is(err, repository.ErrRegistrantNotFound):
		return apperrors.NewNotFoundError("registrant not found", err)
	case errors.Is(err, repository.ErrInvalidRegistrant):
		return apperrors.NewValidationError("invalid registrant", err).WithDetails(err.Error())
	default:
		return apperrors.NewStorageError("registrant storage failed", err)
	}
}

func (s *registrationService) publish(ctx context.Context, event observer.ScanEvent) {
	event.Timestamp = s.opts.Now()
	s.events.NotifyObservers(ctx, event)
}

func (s *registrationService) publishFailure(ctx context.Context, source string, start time.Time, err *apperrors.AppError) {
	s.publish(ctx, observer.ScanEvent{
		EventType:      observer.ScanFailed,
		Source:         source,
		ProcessingTime: s.opts.Now().Sub(start),
		ErrorMessage:   err.Error(),
		Metadata:       map[string]interface{}{"error_type": string(err.Type)},
	})
}

func (s *registrationService) publishSuccess(ctx context.Context, source string, start time.Time, id *mrz.Identity) {
	s.publish(ctx, observer.ScanEvent{
		EventType:      observer.ScanCompleted,
		Source:         source,
		ProcessingTime: s.opts.Now().Sub(start),
		Success:        true,
		Metadata: map[string]interface{}{
			"document_type":                 id.DocumentType.String(),
			"birth_date_ambiguous":          id.BirthDateAmbiguous,
			observer.MetadataChecksumsValid: id.ChecksumsValid(),
		},
	})
}
