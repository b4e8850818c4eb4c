package metrics

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// Gauge ...
	Gauge instrument = iota
	// Counter ...
	Counter
	// Histogram ...
	Histogram
)

var (
	// ErrInstrumentNotSupported signals the specified instrument is not yet supported
	ErrInstrumentNotSupported = errors.New("instrument type unsupported")
	// ErrInstrumentTypeMismatch signal the type of the instrument is not expected
	ErrInstrumentTypeMismatch = errors.New("instrument is not of the expected type")
)

var (
	// Chunks received per snapshot sync, labelled by outcome (applied/duplicate)
	snapshotChunkCounter *prometheus.CounterVec
	// Size distribution of applied chunk segments
	snapshotChunkSize prometheus.Histogram
	// Last applied chunk index of the snapshot sync in progress
	snapshotSyncGauge prometheus.Gauge
	// Wallet sync pairs received, labelled by outcome (added/duplicate)
	walletPairCounter *prometheus.CounterVec
	// Time spent per engine operation
	engineTime *prometheus.CounterVec

	setupOnce sync.Once
	setupErr  error
)

// abstract prometheus types
type instrument int

// combine all possible prometheus options + way to differentiate between regular or vector type
type instrumentOpts struct {
	opts    prometheus.Opts
	buckets []float64
	vectors []string
}

type mi struct {
	gaugeV     *prometheus.GaugeVec
	gauge      prometheus.Gauge
	counterV   *prometheus.CounterVec
	counter    prometheus.Counter
	histogramV *prometheus.HistogramVec
	histogram  prometheus.Histogram
}

// MetricInstrument - template interface for mi type return value
type MetricInstrument interface {
	Gauge() (prometheus.Gauge, error)
	GaugeVec() (*prometheus.GaugeVec, error)
	Counter() (prometheus.Counter, error)
	CounterVec() (*prometheus.CounterVec, error)
	Histogram() (prometheus.Histogram, error)
	HistogramVec() (*prometheus.HistogramVec, error)
}

// InstrumentOption - vararg for instrument options setting
type InstrumentOption func(o *instrumentOpts)

// Vectors - configure the instrument to be a vector
func Vectors(labels ...string) InstrumentOption {
	return func(o *instrumentOpts) {
		o.vectors = labels
	}
}

// Help - set the help field on instrument
func Help(help string) InstrumentOption {
	return func(o *instrumentOpts) {
		o.opts.Help = help
	}
}

// Namespace - set namespace
func Namespace(ns string) InstrumentOption {
	return func(o *instrumentOpts) {
		o.opts.Namespace = ns
	}
}

// Subsystem - set subsystem
func Subsystem(s string) InstrumentOption {
	return func(o *instrumentOpts) {
		o.opts.Subsystem = s
	}
}

// Labels set labels for instrument
func Labels(labels map[string]string) InstrumentOption {
	return func(o *instrumentOpts) {
		o.opts.ConstLabels = labels
	}
}

// Buckets - specific to histogram type
func Buckets(b []float64) InstrumentOption {
	return func(o *instrumentOpts) {
		o.buckets = b
	}
}

// AddInstrument  configure and register new metrics instrument.
func AddInstrument(t instrument, name string, opts ...InstrumentOption) (*mi, error) {
	var col prometheus.Collector
	ret := mi{}
	opt := instrumentOpts{
		opts: prometheus.Opts{
			Name: name,
		},
	}
	for _, o := range opts {
		o(&opt)
	}
	switch t {
	case Gauge:
		o := opt.gauge()
		if len(opt.vectors) == 0 {
			ret.gauge = prometheus.NewGauge(o)
			col = ret.gauge
		} else {
			ret.gaugeV = prometheus.NewGaugeVec(o, opt.vectors)
			col = ret.gaugeV
		}
	case Counter:
		o := opt.counter()
		if len(opt.vectors) == 0 {
			ret.counter = prometheus.NewCounter(o)
			col = ret.counter
		} else {
			ret.counterV = prometheus.NewCounterVec(o, opt.vectors)
			col = ret.counterV
		}
	case Histogram:
		o := opt.histogram()
		if len(opt.vectors) == 0 {
			ret.histogram = prometheus.NewHistogram(o)
			col = ret.histogram
		} else {
			ret.histogramV = prometheus.NewHistogramVec(o, opt.vectors)
			col = ret.histogramV
		}
	default:
		return nil, ErrInstrumentNotSupported
	}
	if err := prometheus.Register(col); err != nil {
		return nil, err
	}
	return &ret, nil
}

// Setup registers the instruments with the default prometheus registry. It
// is safe to call more than once; registration happens on the first call.
func Setup() error {
	setupOnce.Do(func() {
		setupErr = setupMetrics()
	})
	return setupErr
}

// Start enable metrics (given config)
func Start(conf Config) {
	if !conf.Enabled {
		return
	}
	if err := Setup(); err != nil {
		panic("could not set up metrics")
	}
	http.Handle(conf.Path, promhttp.Handler())
	go func() {
		log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", conf.Port), nil))
	}()
}

func (i instrumentOpts) gauge() prometheus.GaugeOpts {
	return prometheus.GaugeOpts(i.opts)
}

func (i instrumentOpts) counter() prometheus.CounterOpts {
	return prometheus.CounterOpts(i.opts)
}

func (i instrumentOpts) histogram() prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Name:        i.opts.Name,
		Namespace:   i.opts.Namespace,
		Subsystem:   i.opts.Subsystem,
		ConstLabels: i.opts.ConstLabels,
		Help:        i.opts.Help,
		Buckets:     i.buckets,
	}
}

// Gauge returns a prometheus Gauge instrument
func (m mi) Gauge() (prometheus.Gauge, error) {
	if m.gauge == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.gauge, nil
}

// GaugeVec returns a prometheus GaugeVec instrument
func (m mi) GaugeVec() (*prometheus.GaugeVec, error) {
	if m.gaugeV == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.gaugeV, nil
}

// Counter returns a prometheus Counter instrument
func (m mi) Counter() (prometheus.Counter, error) {
	if m.counter == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.counter, nil
}

// CounterVec returns a prometheus CounterVec instrument
func (m mi) CounterVec() (*prometheus.CounterVec, error) {
	if m.counterV == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.counterV, nil
}

// Histogram returns a prometheus Histogram instrument
func (m mi) Histogram() (prometheus.Histogram, error) {
	if m.histogram == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.histogram, nil
}

// HistogramVec returns a prometheus HistogramVec instrument
func (m mi) HistogramVec() (*prometheus.HistogramVec, error) {
	if m.histogramV == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.histogramV, nil
}

func setupMetrics() error {
	h, err := AddInstrument(
		Counter,
		"engine_seconds_total",
		Namespace("ember"),
		Vectors("engine", "fn"),
	)
	if err != nil {
		return err
	}
	est, err := h.CounterVec()
	if err != nil {
		return err
	}
	engineTime = est

	h, err = AddInstrument(
		Counter,
		"snapshot_chunks_total",
		Namespace("ember"),
		Vectors("outcome"),
		Help("Number of snapshot chunks received, by outcome"),
	)
	if err != nil {
		return err
	}
	scc, err := h.CounterVec()
	if err != nil {
		return err
	}
	snapshotChunkCounter = scc

	h, err = AddInstrument(
		Histogram,
		"snapshot_chunk_bytes",
		Namespace("ember"),
		Buckets(prometheus.ExponentialBuckets(1<<10, 4, 8)),
		Help("Size distribution of applied snapshot chunk segments, in bytes"),
	)
	if err != nil {
		return err
	}
	scs, err := h.Histogram()
	if err != nil {
		return err
	}
	snapshotChunkSize = scs

	h, err = AddInstrument(
		Gauge,
		"snapshot_sync_applied_chunks",
		Namespace("ember"),
		Help("Last applied chunk index of the snapshot sync in progress"),
	)
	if err != nil {
		return err
	}
	ssg, err := h.Gauge()
	if err != nil {
		return err
	}
	snapshotSyncGauge = ssg

	h, err = AddInstrument(
		Counter,
		"wallet_sync_pairs_total",
		Namespace("ember"),
		Vectors("outcome"),
		Help("Number of wallet sync pairs received, by outcome"),
	)
	if err != nil {
		return err
	}
	wpc, err := h.CounterVec()
	if err != nil {
		return err
	}
	walletPairCounter = wpc

	return nil
}

// SnapshotChunkReceived increments the chunk counter for the given outcome
// ("applied" or "duplicate").
func SnapshotChunkReceived(outcome string) {
	if snapshotChunkCounter == nil {
		return
	}
	snapshotChunkCounter.WithLabelValues(outcome).Inc()
}

// SnapshotChunkSize observes the size in bytes of an applied chunk segment.
func SnapshotChunkSize(sizeBytes int) {
	if snapshotChunkSize == nil {
		return
	}
	snapshotChunkSize.Observe(float64(sizeBytes))
}

// SnapshotSyncProgress sets the applied-chunk gauge.
func SnapshotSyncProgress(lastApplied uint64) {
	if snapshotSyncGauge == nil {
		return
	}
	snapshotSyncGauge.Set(float64(lastApplied))
}

// WalletPairReceived increments the wallet pair counter for the given
// outcome ("added" or "duplicate").
func WalletPairReceived(outcome string) {
	if walletPairCounter == nil {
		return
	}
	walletPairCounter.WithLabelValues(outcome).Inc()
}

// StartEngine returns a function to track the time spent in an engine call.
func StartEngine(engine, fn string) func() {
	if engineTime == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		engineTime.WithLabelValues(engine, fn).Add(time.Since(start).Seconds())
	}
}
