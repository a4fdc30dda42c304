package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors of one server. Each server owns its
// registry so several servers can run in one process. A nil *Metrics
// records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	Connections      prometheus.Gauge
	ConnectionsTotal prometheus.Counter
	Users            prometheus.Gauge
	Channels         prometheus.Gauge
	Registrations    *prometheus.CounterVec
	LinesIn          prometheus.Counter
	LinesOut         prometheus.Counter
	ParseErrors      prometheus.Counter
	Commands         *prometheus.CounterVec
	MailboxOverflows *prometheus.CounterVec
}

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Connections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ircd_connections",
			Help: "Number of open client connections",
		}),
		ConnectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ircd_connections_total",
			Help: "Total number of accepted client connections",
		}),
		Users: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ircd_users",
			Help: "Number of registered users",
		}),
		Channels: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ircd_channels",
			Help: "Number of channels",
		}),
		Registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ircd_registrations_total",
			Help: "Registration attempts by result",
		}, []string{"result"}),
		LinesIn: factory.NewCounter(prometheus.CounterOpts{
			Name: "ircd_lines_in_total",
			Help: "Lines received from clients",
		}),
		LinesOut: factory.NewCounter(prometheus.CounterOpts{
			Name: "ircd_lines_out_total",
			Help: "Lines written to clients",
		}),
		ParseErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "ircd_parse_errors_total",
			Help: "Lines dropped because they failed to parse",
		}),
		Commands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ircd_commands_total",
			Help: "Commands processed by verb",
		}, []string{"command"}),
		MailboxOverflows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ircd_mailbox_overflows_total",
			Help: "Deliveries that found a full mailbox, by policy",
		}, []string{"policy"}),
	}
}

func (m *Metrics) setRegistryCounts(users, channels int) {
	if m == nil {
		return
	}
	m.Users.Set(float64(users))
	m.Channels.Set(float64(channels))
}

func (m *Metrics) connectionOpened() {
	if m == nil {
		return
	}
	m.Connections.Inc()
	m.ConnectionsTotal.Inc()
}

func (m *Metrics) connectionClosed() {
	if m == nil {
		return
	}
	m.Connections.Dec()
}

func (m *Metrics) registration(result string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(result).Inc()
}

func (m *Metrics) lineIn() {
	if m == nil {
		return
	}
	m.LinesIn.Inc()
}

func (m *Metrics) linesOut(n int) {
	if m == nil {
		return
	}
	m.LinesOut.Add(float64(n))
}

func (m *Metrics) parseError() {
	if m == nil {
		return
	}
	m.ParseErrors.Inc()
}

func (m *Metrics) command(verb string) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(verb).Inc()
}

func (m *Metrics) mailboxOverflow(policy OverflowPolicy) {
	if m == nil {
		return
	}
	m.MailboxOverflows.WithLabelValues(policy.String()).Inc()
}
