package observer

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"go-disaster-id-scan/internal/logger"
)

// ScanEvent represents a scan or registration event
type ScanEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	Source         string                 `json:"source"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of scan event
type EventType string

const (
	// ScanStarted when a frame or text is submitted for decoding
	ScanStarted EventType = "scan_started"
	// ScanCompleted when an MRZ was decoded
	ScanCompleted EventType = "scan_completed"
	// ScanFailed when no MRZ could be decoded
	ScanFailed EventType = "scan_failed"
	// FrameFetched when a remote frame was downloaded
	FrameFetched EventType = "frame_fetched"
	// FrameFetchFailed when a remote frame could not be downloaded
	FrameFetchFailed EventType = "frame_fetch_failed"
	// RegistrantSaved when a registrant was created or updated
	RegistrantSaved EventType = "registrant_saved"
	// RegistrantDeleted when a registrant was removed
	RegistrantDeleted EventType = "registrant_deleted"
	// ExportWritten when the export files were refreshed
	ExportWritten EventType = "export_written"
	// ExportFailed when refreshing the export files failed
	ExportFailed EventType = "export_failed"
)

// MetadataChecksumsValid is set on ScanCompleted events.
const MetadataChecksumsValid = "checksums_valid"

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event ScanEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event ScanEvent)
}

// LoggingObserver logs scan events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles scan events by logging them. Personal data never goes into
// metadata, so everything here is safe to log.
func (o *LoggingObserver) OnEvent(ctx context.Context, event ScanEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"source":          event.Source,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}

	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case ScanStarted, FrameFetched:
		entry.Debug("Scan event")
	case ScanCompleted:
		entry.Info("MRZ decoded")
	case ScanFailed:
		entry.Warn("MRZ scan failed")
	case FrameFetchFailed:
		entry.Error("Frame fetch failed")
	case RegistrantSaved:
		entry.Info("Registrant saved")
	case RegistrantDeleted:
		entry.Info("Registrant deleted")
	case ExportWritten:
		entry.Debug("Export refreshed")
	case ExportFailed:
		entry.Error("Export failed")
	default:
		entry.Info("Scan event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver exports scan events as Prometheus metrics
type MetricsObserver struct {
	scansStarted      prometheus.Counter
	scans             *prometheus.CounterVec
	scanDuration      prometheus.Histogram
	checksumFailures  prometheus.Counter
	frameFetches      *prometheus.CounterVec
	registrantChanges *prometheus.CounterVec
	exports           *prometheus.CounterVec
}

// NewMetricsObserver registers the scan metrics on reg
func NewMetricsObserver(reg prometheus.Registerer) *MetricsObserver {
	factory := promauto.With(reg)
	return &MetricsObserver{
		scansStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "idscan_scans_started_total",
			Help: "Total number of scans submitted",
		}),
		scans: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idscan_scans_total",
			Help: "Total number of finished scans by outcome",
		}, []string{"outcome"}),
		scanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "idscan_scan_duration_seconds",
			Help:    "Duration of successful scans including OCR",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		checksumFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "idscan_checksum_failures_total",
			Help: "Decoded MRZs with at least one mismatching check digit",
		}),
		frameFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idscan_frame_fetches_total",
			Help: "Remote frame downloads by outcome",
		}, []string{"outcome"}),
		registrantChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idscan_registrant_changes_total",
			Help: "Registrant mutations by kind",
		}, []string{"kind"}),
		exports: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idscan_exports_total",
			Help: "Export refreshes by outcome",
		}, []string{"outcome"}),
	}
}

// OnEvent handles scan events by updating metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event ScanEvent) {
	switch event.EventType {
	case ScanStarted:
		o.scansStarted.Inc()
	case ScanCompleted:
		o.scans.WithLabelValues("decoded").Inc()
		o.scanDuration.Observe(event.ProcessingTime.Seconds())
		if valid, ok := event.Metadata[MetadataChecksumsValid].(bool); ok && !valid {
			o.checksumFailures.Inc()
		}
	case ScanFailed:
		o.scans.WithLabelValues("failed").Inc()
	case FrameFetched:
		o.frameFetches.WithLabelValues("ok").Inc()
	case FrameFetchFailed:
		o.frameFetches.WithLabelValues("failed").Inc()
	case RegistrantSaved:
		o.registrantChanges.WithLabelValues("saved").Inc()
	case RegistrantDeleted:
		o.registrantChanges.WithLabelValues("deleted").Inc()
	case ExportWritten:
		o.exports.WithLabelValues("ok").Inc()
	case ExportFailed:
		o.exports.WithLabelValues("failed").Inc()
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers delivers event to every observer in subscription order.
// A panicking observer is logged and skipped.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event ScanEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		notify(ctx, observer, event)
	}
}

func notify(ctx context.Context, obs Observer, event ScanEvent) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("observer", obs.GetObserverName()).
				WithField("panic", r).
				Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}
