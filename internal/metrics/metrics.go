package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for MessagesTotal.
const (
	OutcomeProcessed     = "processed"
	OutcomeUnknownTenant = "unknown_tenant"
	OutcomeNoAttachment  = "no_attachment"
	OutcomeExtraction    = "extraction_failed"
	OutcomeMissingField  = "missing_field"
	OutcomeNoRecipient   = "no_recipient"
	OutcomeError         = "error"
)

var (
	// SMTP metrics
	SessionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailworker_smtp_sessions_total",
			Help: "Total number of SMTP connections accepted",
		},
	)

	RecipientsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailworker_smtp_recipients_rejected_total",
			Help: "Total number of recipients rejected as unknown mailboxes",
		},
	)

	MessagesOversized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailworker_smtp_messages_oversized_total",
			Help: "Total number of transactions aborted for exceeding the size limit",
		},
	)

	MessageBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailworker_smtp_message_bytes_total",
			Help: "Total bytes of message data received",
		},
	)

	// Pipeline metrics
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailworker_messages_total",
			Help: "Total number of messages processed by outcome",
		},
		[]string{"outcome"},
	)

	ProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mailworker_processing_duration_seconds",
			Help:    "Duration of message processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Sink metrics
	SinkWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailworker_sink_writes_total",
			Help: "Total number of sink writes by sink and status",
		},
		[]string{"sink", "status"},
	)

	SinkDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailworker_sink_duration_seconds",
			Help:    "Duration of sink writes in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sink"},
	)

	// Account metrics
	TrialExpiredTenants = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mailworker_trial_expired_tenants",
			Help: "Unpaid tenants past the trial period at the last monitor run",
		},
	)

	PaymentWebhooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailworker_payment_webhooks_total",
			Help: "Total number of payment webhooks received by event and status",
		},
		[]string{"event", "status"},
	)
)
