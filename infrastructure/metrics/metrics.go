package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/xerrors"

	"portmirror/constant"
	"portmirror/domain/entity"
	"portmirror/domain/valueobject"
	"portmirror/infrastructure/log"
)

// Sized is anything that reports its number of entries, like the engine tables.
type Sized interface {
	Len() int
}

type Metrics struct {
	registry     *prometheus.Registry
	frames       *prometheus.CounterVec
	diagnostics  *prometheus.CounterVec
	cloneErrors  *prometheus.CounterVec
	keyMask      prometheus.Gauge
	tableEntries *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portmirror_frames_total",
				Help: "Frames processed, by action.",
			},
			[]string{"action"},
		),
		diagnostics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portmirror_diagnostics_total",
				Help: "Frames passed without a mirror, by reason.",
			},
			[]string{"reason"},
		),
		cloneErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portmirror_clone_errors_total",
				Help: "Failures writing a cloned frame, by mirror ifindex.",
			},
			[]string{"mirror"},
		),
		keyMask: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "portmirror_key_mask",
				Help: "Active key field mask (src=1 dst=2 proto=4 sport=8 dport=16).",
			},
		),
		tableEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "portmirror_table_entries",
				Help: "Entries in the engine tables at load.",
			},
			[]string{"table"},
		),
	}
	m.registry.MustRegister(m.frames, m.diagnostics, m.cloneErrors, m.keyMask, m.tableEntries)
	// Pre-create label values so series exist from the start.
	for _, r := range valueobject.Reasons() {
		m.diagnostics.WithLabelValues(r.String())
	}
	m.frames.WithLabelValues("pass")
	m.frames.WithLabelValues("mirror")
	return m
}

func (m *Metrics) Observe(d valueobject.Diagnostic) {
	m.diagnostics.WithLabelValues(d.Reason.String()).Inc()
}

func (m *Metrics) ObserveAction(a entity.Action) {
	if a.IsMirror() {
		m.frames.WithLabelValues("mirror").Inc()
		return
	}
	m.frames.WithLabelValues("pass").Inc()
}

func (m *Metrics) ObserveCloneError(mirror uint32) {
	m.cloneErrors.WithLabelValues(strconv.FormatUint(uint64(mirror), 10)).Inc()
}

func (m *Metrics) SetKeyMask(mask entity.KeyFieldMask) {
	m.keyMask.Set(float64(mask))
}

func (m *Metrics) SetTableEntries(policies, interfaces Sized) {
	m.tableEntries.WithLabelValues("policy").Set(float64(policies.Len()))
	m.tableEntries.WithLabelValues("interface").Set(float64(interfaces.Len()))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Serve exposes the metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle(constant.MetricsPath, m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Logger.Infof("serving metrics on %s%s", addr, constant.MetricsPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return xerrors.Errorf("metrics server: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return xerrors.Errorf("failed to shutdown metrics server: %w", err)
		}
		return nil
	}
}
