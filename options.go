package mqpayload

import (
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultWaitTimeSeconds = 20
	defaultIdleSleep       = 5000 * time.Millisecond
)

type options struct {
	threshold       int
	storeDelete     bool
	waitTimeSeconds int
	idleSleep       time.Duration

	// Zero is a valid setting for these, so defaults only fill unset ones.
	thresholdSet bool
	waitSet      bool
	idleSleepSet bool

	codec       HandleCodec
	compression Compression
	logger      logrus.FieldLogger
	metrics     Metrics
}

func (o options) withDefaults() options {
	if !o.thresholdSet || o.threshold < 0 {
		o.threshold = DefaultThreshold
	}
	if !o.waitSet || o.waitTimeSeconds < 0 {
		o.waitTimeSeconds = defaultWaitTimeSeconds
	}
	if !o.idleSleepSet || o.idleSleep < 0 {
		o.idleSleep = defaultIdleSleep
	}
	if o.codec == nil {
		o.codec = EnvelopeCodec{}
	}
	if o.logger == nil {
		o.logger = defaultLogger()
	}
	if o.metrics == nil {
		o.metrics = NopMetrics{}
	}

	return o
}

// Option configures a Client.
type Option func(*options)

// WithThreshold sets the message size, in bytes, above which bodies are
// offloaded. A threshold of 0 offloads every message.
func WithThreshold(bytes int) Option {
	return func(o *options) {
		o.threshold = bytes
		o.thresholdSet = true
	}
}

// WithStoreDelete enables deleting stored payloads when their message is
// deleted. It is disabled by default so payloads remain for manual cleanup
// or audit.
func WithStoreDelete(enabled bool) Option {
	return func(o *options) {
		o.storeDelete = enabled
	}
}

// WithWaitTimeSeconds sets the long poll duration used when a receive
// request does not specify one. The default is 20 seconds; 0 selects short
// polling.
func WithWaitTimeSeconds(seconds int) Option {
	return func(o *options) {
		o.waitTimeSeconds = seconds
		o.waitSet = true
	}
}

// WithIdleSleep sets how long the consumer sleeps after an empty poll.
// The default is 5 seconds; 0 polls again immediately.
func WithIdleSleep(d time.Duration) Option {
	return func(o *options) {
		o.idleSleep = d
		o.idleSleepSet = true
	}
}

// WithHandleCodec sets the codec embedding payload locators in receipt handles.
func WithHandleCodec(codec HandleCodec) Option {
	return func(o *options) {
		o.codec = codec
	}
}

// WithCompression sets the compression applied to offloaded payloads.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithLogger sets the client logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the client metrics recorder.
func WithMetrics(metrics Metrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}
