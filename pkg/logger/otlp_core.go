package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// OTLPCore is a zapcore.Core that batches entries and ships them to an OTel
// Collector over OTLP/HTTP JSON.
type OTLPCore struct {
	zapcore.LevelEnabler
	shipper *otlpShipper
	fields  []zapcore.Field
}

// otlpShipper owns the buffer and flush loop shared by every core derived
// through With.
type otlpShipper struct {
	endpoint      string
	serviceName   string
	client        *http.Client
	batchSize     int
	batchInterval time.Duration

	mu     sync.Mutex
	buffer []LogRecord

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// LogRecord is one entry in OTLP JSON form
type LogRecord struct {
	Timestamp         int64      `json:"timeUnixNano,string"`
	ObservedTimestamp int64      `json:"observedTimeUnixNano,string"`
	SeverityNumber    int32      `json:"severityNumber"`
	SeverityText      string     `json:"severityText"`
	Body              AnyValue   `json:"body"`
	Attributes        []KeyValue `json:"attributes,omitempty"`
	TraceID           string     `json:"traceId,omitempty"`
	SpanID            string     `json:"spanId,omitempty"`
}

// AnyValue holds exactly one of its fields
type AnyValue struct {
	StringValue *string  `json:"stringValue,omitempty"`
	IntValue    *int64   `json:"intValue,omitempty,string"`
	DoubleValue *float64 `json:"doubleValue,omitempty"`
	BoolValue   *bool    `json:"boolValue,omitempty"`
}

// KeyValue is an OTLP attribute
type KeyValue struct {
	Key   string   `json:"key"`
	Value AnyValue `json:"value"`
}

type otlpLogPayload struct {
	ResourceLogs []resourceLogs `json:"resourceLogs"`
}

type resourceLogs struct {
	Resource  otlpResource `json:"resource"`
	ScopeLogs []scopeLogs  `json:"scopeLogs"`
}

type otlpResource struct {
	Attributes []KeyValue `json:"attributes"`
}

type scopeLogs struct {
	Scope      otlpScope   `json:"scope"`
	LogRecords []LogRecord `json:"logRecords"`
}

type otlpScope struct {
	Name string `json:"name"`
}

// NewOTLPCore starts a batching core for cfg.OTLPEndpoint. It returns nil if
// no endpoint is configured.
func NewOTLPCore(cfg *Config, level zapcore.LevelEnabler) *OTLPCore {
	if cfg == nil || cfg.OTLPEndpoint == "" {
		return nil
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	batchInterval := cfg.BatchInterval
	if batchInterval <= 0 {
		batchInterval = time.Second
	}
	timeout := cfg.OTLPTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	s := &otlpShipper{
		endpoint:      logsEndpoint(cfg.OTLPEndpoint),
		serviceName:   cfg.ServiceName,
		client:        &http.Client{Timeout: timeout},
		batchSize:     batchSize,
		batchInterval: batchInterval,
		buffer:        make([]LogRecord, 0, batchSize),
		stopCh:        make(chan struct{}),
	}
	s.wg.Add(1)
	go s.flushLoop()

	return &OTLPCore{LevelEnabler: level, shipper: s}
}

// logsEndpoint turns a collector address into its OTLP/HTTP logs URL. The
// gRPC port 4317 maps to the HTTP port 4318.
func logsEndpoint(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimSuffix(addr, "/") + "/v1/logs"
	}
	if host, port, err := net.SplitHostPort(addr); err == nil && port == "4317" {
		addr = net.JoinHostPort(host, "4318")
	}
	return "http://" + addr + "/v1/logs"
}

// With returns a core carrying the extra fields
func (c *OTLPCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &OTLPCore{LevelEnabler: c.LevelEnabler, shipper: c.shipper, fields: merged}
}

// Check adds this core when the level is enabled
func (c *OTLPCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// Write buffers the entry, flushing in the background once a batch is full
func (c *OTLPCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	record := LogRecord{
		Timestamp:         ent.Time.UnixNano(),
		ObservedTimestamp: time.Now().UnixNano(),
		SeverityNumber:    zapLevelToOTLP(ent.Level),
		SeverityText:      ent.Level.CapitalString(),
		Body:              stringValue(ent.Message),
	}

	attrs := make([]KeyValue, 0, len(c.fields)+len(fields)+2)
	if ent.Caller.Defined {
		attrs = append(attrs, KeyValue{Key: "caller", Value: stringValue(ent.Caller.TrimmedPath())})
	}
	if ent.LoggerName != "" {
		attrs = append(attrs, KeyValue{Key: "logger", Value: stringValue(ent.LoggerName)})
	}

	for _, f := range append(c.fields[:len(c.fields):len(c.fields)], fields...) {
		switch f.Key {
		case "trace_id":
			record.TraceID = f.String
			continue
		case "span_id":
			record.SpanID = f.String
			continue
		}
		if kv, ok := fieldToKeyValue(f); ok {
			attrs = append(attrs, kv)
		}
	}
	record.Attributes = attrs

	if c.shipper.add(record) {
		go c.shipper.flush()
	}
	return nil
}

// Sync flushes buffered entries
func (c *OTLPCore) Sync() error {
	c.shipper.flush()
	return nil
}

// Close stops the flush loop and sends what is left
func (c *OTLPCore) Close() error {
	c.shipper.stopOnce.Do(func() { close(c.shipper.stopCh) })
	c.shipper.wg.Wait()
	c.shipper.flush()
	return nil
}

func (s *otlpShipper) add(record LogRecord) (full bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = append(s.buffer, record)
	return len(s.buffer) >= s.batchSize
}

func (s *otlpShipper) flushLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.batchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.flush()
		case <-s.stopCh:
			return
		}
	}
}

func (s *otlpShipper) flush() {
	s.mu.Lock()
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return
	}
	records := make([]LogRecord, len(s.buffer))
	copy(records, s.buffer)
	s.buffer = s.buffer[:0]
	s.mu.Unlock()

	payload := otlpLogPayload{
		ResourceLogs: []resourceLogs{{
			Resource: otlpResource{Attributes: []KeyValue{
				{Key: "service.name", Value: stringValue(s.serviceName)},
				{Key: "service.namespace", Value: stringValue("jelli-fit")},
			}},
			ScopeLogs: []scopeLogs{{
				Scope:      otlpScope{Name: "go.uber.org/zap"},
				LogRecords: records,
			}},
		}},
	}

	// Export failures go to stderr; logging them would recurse.
	data, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: failed to encode OTLP payload: %v\n", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(data))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: failed to build OTLP request: %v\n", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		fmt.Fprintf(os.Stderr, "logger: OTLP export failed with status %d\n", resp.StatusCode)
	}
}

func zapLevelToOTLP(level zapcore.Level) int32 {
	switch level {
	case zapcore.DebugLevel:
		return 5
	case zapcore.InfoLevel:
		return 9
	case zapcore.WarnLevel:
		return 13
	case zapcore.ErrorLevel:
		return 17
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return 21
	default:
		return 0
	}
}

func stringValue(s string) AnyValue { return AnyValue{StringValue: &s} }
func intValue(i int64) AnyValue { return AnyValue{IntValue: &i} }
func doubleValue(f float64) AnyValue { return AnyValue{DoubleValue: &f} }
func boolValue(b bool) AnyValue { return AnyValue{BoolValue: &b} }

func fieldToKeyValue(f zapcore.Field) (KeyValue, bool) {
	var v AnyValue
	switch f.Type {
	case zapcore.StringType:
		v = stringValue(f.String)
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
		zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		v = intValue(f.Integer)
	case zapcore.Float64Type:
		v = doubleValue(math.Float64frombits(uint64(f.Integer)))
	case zapcore.Float32Type:
		v = doubleValue(float64(math.Float32frombits(uint32(f.Integer))))
	case zapcore.BoolType:
		v = boolValue(f.Integer == 1)
	case zapcore.DurationType:
		v = stringValue(time.Duration(f.Integer).String())
	case zapcore.TimeType:
		t := time.Unix(0, f.Integer)
		if loc, ok := f.Interface.(*time.Location); ok {
			t = t.In(loc)
		}
		v = stringValue(t.Format(time.RFC3339Nano))
	case zapcore.ErrorType:
		err, ok := f.Interface.(error)
		if !ok {
			return KeyValue{}, false
		}
		v = stringValue(err.Error())
	case zapcore.StringerType:
		s, ok := f.Interface.(fmt.Stringer)
		if !ok {
			return KeyValue{}, false
		}
		v = stringValue(s.String())
	default:
		if f.Interface == nil {
			return KeyValue{}, false
		}
		data, err := json.Marshal(f.Interface)
		if err != nil {
			return KeyValue{}, false
		}
		v = stringValue(string(data))
	}
	return KeyValue{Key: f.Key, Value: v}, true
}
