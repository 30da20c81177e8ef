// Package serial is a thin NMEA/serial GPS+speed ingress adapter: it reads
// $GPRMC sentences off a serial GPS/OBD device and feeds decoded samples to
// a telemetry sink, standing in for the MQTT ingress bridge named but left
// external by the core engine's scope.
package serial

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	goserial "go.bug.st/serial"

	"racetelemetry/telemetry"
)

const knotsToKmh = 1.852

// Config bounds the serial connection and its reconnect behavior.
type Config struct {
	Port     string
	BaudRate int
	Retry    RetryConfig
	Breaker  CircuitBreakerConfig
}

// DefaultConfig returns a Config for a typical 4800-baud NMEA GPS puck.
func DefaultConfig(port string) Config {
	return Config{
		Port:     port,
		BaudRate: 4800,
		Retry:    DefaultRetryConfig(),
		Breaker:  DefaultCircuitBreakerConfig(),
	}
}

// Sink receives decoded samples. It returns an error only when the sample
// was rejected by validation or the downstream engine; Reader logs and
// continues rather than treating that as a fatal read-loop error.
type Sink func(telemetry.Sample) error

// Reader owns one serial connection and decodes it into telemetry.Samples.
type Reader struct {
	cfg     Config
	breaker *CircuitBreaker
	retrier *RetryHandler
}

// NewReader constructs a Reader for cfg.
func NewReader(cfg Config) *Reader {
	return &Reader{
		cfg:     cfg,
		breaker: NewCircuitBreaker(cfg.Breaker),
		retrier: NewRetryHandler(cfg.Retry),
	}
}

// Run opens the serial port and decodes sentences into sink until ctx is
// cancelled or a connection attempt fails. Each attempt runs through the
// circuit breaker and the retry handler: a session that ends without error
// is reopened, and a retryable error is retried up to MaxRetries times. The
// first non-retryable error, exhausted retries, or a breaker that rejects
// the attempt ends Run with an error; Run does not wait out the breaker's
// recovery timeout.
func (r *Reader) Run(ctx context.Context, sink Sink) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := r.breaker.Execute(func() error {
			return r.retrier.Retry(ctx, func() error {
				return r.readSession(ctx, sink)
			})
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("Warning: serial ingress: %v", err)
			return fmt.Errorf("serial: connection permanently unavailable: %w", err)
		}
	}
}

// readSession opens the port once and streams sentences until the port
// errors or ctx is cancelled. A clean cancellation is not reported as an
// error to the retry handler.
func (r *Reader) readSession(ctx context.Context, sink Sink) error {
	mode := &goserial.Mode{BaudRate: r.cfg.BaudRate}
	port, err := goserial.Open(r.cfg.Port, mode)
	if err != nil {
		return fmt.Errorf("open %s: %w", r.cfg.Port, err)
	}
	defer port.Close()

	log.Printf("serial ingress: connected to %s at %d baud", r.cfg.Port, r.cfg.BaudRate)

	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		sample, ok, err := ParseGPRMC(line)
		if err != nil {
			log.Printf("Warning: serial ingress: discarding malformed sentence: %v", err)
			continue
		}
		if !ok {
			continue // not a $GPRMC sentence, or a void fix
		}

		if err := sink(sample); err != nil {
			log.Printf("Warning: serial ingress: sink rejected sample: %v", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", r.cfg.Port, err)
	}
	return nil
}

// ParseGPRMC decodes one NMEA $GPRMC (or $GNRMC) sentence into a
// telemetry.Sample. ok is false (with nil error) for any sentence that is
// neither $GPRMC nor $GNRMC, or whose status field marks the fix as void ("V").
//
// $GPRMC,hhmmss.ss,A,ddmm.mmmm,N,dddmm.mmmm,W,speed_knots,track,ddmmyy,...
func ParseGPRMC(line string) (sample telemetry.Sample, ok bool, err error) {
	if !strings.HasPrefix(line, "$GPRMC") && !strings.HasPrefix(line, "$GNRMC") {
		return telemetry.Sample{}, false, nil
	}

	fields := strings.Split(line, ",")
	if len(fields) < 8 {
		return telemetry.Sample{}, false, fmt.Errorf("too few fields: %q", line)
	}
	if fields[2] != "A" {
		return telemetry.Sample{}, false, nil // void fix
	}

	timeOfDay, err := parseTimeOfDay(fields[1])
	if err != nil {
		return telemetry.Sample{}, false, fmt.Errorf("time field: %w", err)
	}

	lat, err := parseCoordinate(fields[3], fields[4], 2)
	if err != nil {
		return telemetry.Sample{}, false, fmt.Errorf("latitude: %w", err)
	}
	lon, err := parseCoordinate(fields[5], fields[6], 3)
	if err != nil {
		return telemetry.Sample{}, false, fmt.Errorf("longitude: %w", err)
	}

	knots, err := strconv.ParseFloat(fields[7], 64)
	if err != nil {
		return telemetry.Sample{}, false, fmt.Errorf("speed field: %w", err)
	}

	return telemetry.Sample{
		Timestamp: timeOfDay,
		Lat:       lat,
		Lon:       lon,
		Speed:     knots * knotsToKmh,
	}, true, nil
}

// parseTimeOfDay converts "hhmmss.ss" into seconds since midnight UTC.
func parseTimeOfDay(field string) (float64, error) {
	if len(field) < 6 {
		return 0, fmt.Errorf("malformed time %q", field)
	}
	hh, err := strconv.Atoi(field[0:2])
	if err != nil {
		return 0, err
	}
	mm, err := strconv.Atoi(field[2:4])
	if err != nil {
		return 0, err
	}
	ss, err := strconv.ParseFloat(field[4:], 64)
	if err != nil {
		return 0, err
	}
	return float64(hh)*3600 + float64(mm)*60 + ss, nil
}

// parseCoordinate converts NMEA "d..ddmm.mmmm" + hemisphere into signed
// decimal degrees. degreeDigits is 2 for latitude, 3 for longitude.
func parseCoordinate(field, hemisphere string, degreeDigits int) (float64, error) {
	if len(field) <= degreeDigits {
		return 0, fmt.Errorf("malformed coordinate %q", field)
	}
	degrees, err := strconv.ParseFloat(field[:degreeDigits], 64)
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.ParseFloat(field[degreeDigits:], 64)
	if err != nil {
		return 0, err
	}

	decimal := degrees + minutes/60
	if hemisphere == "S" || hemisphere == "W" {
		decimal = -decimal
	}
	return decimal, nil
}
