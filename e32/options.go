package e32

import "time"

type settings struct {
	pollInterval      time.Duration
	settleDelay       time.Duration
	modeTimeout       time.Duration
	readyTimeout      time.Duration
	transmitTimeout   time.Duration
	responseTimeout   time.Duration
	configGap         time.Duration
	receiveTimeout    time.Duration
	interPacketWindow time.Duration
	atResponseWindow  time.Duration

	chunkSize     int
	checksum      Checksum
	splitHeader   bool
	dialect       Dialect
	skipConfigure bool
}

func defaultSettings() settings {
	return settings{
		pollInterval:      10 * time.Millisecond,
		settleDelay:       50 * time.Millisecond,
		modeTimeout:       2 * time.Second,
		readyTimeout:      5 * time.Second,
		transmitTimeout:   5 * time.Second,
		responseTimeout:   2 * time.Second,
		configGap:         20 * time.Millisecond,
		receiveTimeout:    2 * time.Second,
		interPacketWindow: 500 * time.Millisecond,
		atResponseWindow:  500 * time.Millisecond,
		chunkSize:         MaxChunkSize,
		checksum:          CRC16XMODEM,
		dialect:           Binary(DefaultConfigFrame()),
	}
}

// Option is a functional option for configuring the Driver.
type Option func(*settings)

// WithPollInterval sets how often AUX is sampled while waiting.
func WithPollInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithSettleDelay sets the pause after AUX confirms a mode change.
// Default is 50ms.
func WithSettleDelay(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.settleDelay = d
		}
	}
}

// WithModeTimeout bounds the wait for AUX after the select lines change.
func WithModeTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.modeTimeout = d
		}
	}
}

// WithReadyTimeout bounds the wait for AUX before each chunk is written.
func WithReadyTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.readyTimeout = d
		}
	}
}

// WithTransmitTimeout bounds the busy-then-ready edge after each chunk.
func WithTransmitTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.transmitTimeout = d
		}
	}
}

// WithResponseTimeout bounds configuration readback.
func WithResponseTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.responseTimeout = d
		}
	}
}

// WithConfigGap sets the pause between writing a configuration and
// requesting it back.
func WithConfigGap(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.configGap = d
		}
	}
}

// WithReceiveTimeout sets the overall limit of Receive and ReceiveFramed.
func WithReceiveTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.receiveTimeout = d
		}
	}
}

// WithInterPacketWindow sets how long Receive watches for another chunk
// before it considers a burst complete.
func WithInterPacketWindow(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.interPacketWindow = d
		}
	}
}

// WithATResponseWindow sets how long a text command's response is collected.
func WithATResponseWindow(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.atResponseWindow = d
		}
	}
}

// WithChunkSize sets the chunk size used by Send. Open fails with
// ErrInvalidChunkSize for values outside 1..MaxChunkSize.
func WithChunkSize(size int) Option {
	return func(s *settings) {
		s.chunkSize = size
	}
}

// WithChecksum selects the checksum used by framed transfers.
// Default is CRC16XMODEM.
func WithChecksum(c Checksum) Option {
	return func(s *settings) {
		if c != nil {
			s.checksum = c
		}
	}
}

// WithSplitHeader sends the framing header and the payload as two separate
// sends instead of one.
func WithSplitHeader(split bool) Option {
	return func(s *settings) {
		s.splitHeader = split
	}
}

// WithDialect selects the command dialect. Default is Binary(DefaultConfigFrame()).
func WithDialect(d Dialect) Option {
	return func(s *settings) {
		if d != nil {
			s.dialect = d
		}
	}
}

// WithoutConfigure makes Open skip the configuration handshake.
func WithoutConfigure() Option {
	return func(s *settings) {
		s.skipConfigure = true
	}
}
