package commands

import (
	"bufio"
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/medkit-core/medkit-go/pkg/log"
	"github.com/medkit-core/medkit-go/pkg/wire"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test"+log.FileExtension)

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func sampleEvents(t *testing.T) []log.Event {
	t.Helper()
	ts := time.Date(2026, 3, 2, 10, 15, 32, 123456000, time.UTC)

	value, err := wire.EncodeValue(uint64(120))
	if err != nil {
		t.Fatalf("EncodeValue: %v", err)
	}
	msg, err := wire.EncodeMessage(&wire.Message{
		Kind:     wire.KindUpdate,
		Resource: "pressure.systolic",
		Time:     ts,
		Value:    value,
	})
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}

	return []log.Event{
		{
			Timestamp:    ts,
			ConnectionID: "abc12345-port",
			Direction:    log.DirectionOut,
			Layer:        log.LayerPort,
			Category:     log.CategoryState,
			RemoteAddr:   "10.0.0.5:7400",
			StateChange:  &log.StateChangeEvent{Entity: log.StateEntityPort, OldState: "IDLE", NewState: "STARTED"},
		},
		{
			Timestamp:    ts.Add(time.Millisecond),
			ConnectionID: "abc12345-port",
			Direction:    log.DirectionIn,
			Layer:        log.LayerPort,
			Category:     log.CategoryData,
			DeviceID:     "pump-1",
			Frame:        log.NewFrameEvent(msg),
		},
		{
			Timestamp:    ts.Add(2 * time.Millisecond),
			ConnectionID: "def67890-conn",
			Direction:    log.DirectionIn,
			Layer:        log.LayerConnection,
			Category:     log.CategoryError,
			DeviceID:     "pump-2",
			Error:        &log.ErrorEventData{Layer: log.LayerConnection, Message: "bad unit", Context: "decode message"},
		},
	}
}

func TestViewFormatsEvents(t *testing.T) {
	path := createTestLogFile(t, sampleEvents(t))

	var buf bytes.Buffer
	if err := RunView(path, log.Filter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"2026-03-02T10:15:32.123456Z [conn:abc12345] OUT PORT State",
		"IDLE -> STARTED",
		"Remote: 10.0.0.5:7400",
		"IN  PORT Frame",
		"Message: UPDATE pressure.systolic",
		"Value: 120",
		"Context: decode message",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestViewAppliesFilter(t *testing.T) {
	path := createTestLogFile(t, sampleEvents(t))

	filter, err := BuildFilter(FilterOptions{Layer: "connection"})
	if err != nil {
		t.Fatalf("BuildFilter: %v", err)
	}

	var buf bytes.Buffer
	if err := RunView(path, filter, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	if strings.Contains(buf.String(), "PORT") {
		t.Errorf("port events should be filtered:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "bad unit") {
		t.Errorf("connection event missing:\n%s", buf.String())
	}
}

func TestBuildFilterErrors(t *testing.T) {
	cases := []FilterOptions{
		{Layer: "wire"},
		{Direction: "sideways"},
		{Category: "message"},
		{TimeStart: "yesterday"},
		{TimeEnd: "tomorrow"},
	}
	for _, opts := range cases {
		if _, err := BuildFilter(opts); err == nil {
			t.Errorf("BuildFilter(%+v) should fail", opts)
		}
	}
}

func TestFilterWritesMatchingEvents(t *testing.T) {
	path := createTestLogFile(t, sampleEvents(t))
	out := filepath.Join(t.TempDir(), "out"+log.FileExtension)

	n, err := RunFilter(path, FilterOptions{Output: out, DeviceID: "pump-1"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("filtered %d events, want 1", n)
	}

	reader, err := log.NewReader(out)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer reader.Close()

	events, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(events) != 1 || events[0].DeviceID != "pump-1" {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestExportJSONL(t *testing.T) {
	path := createTestLogFile(t, sampleEvents(t))
	out := filepath.Join(t.TempDir(), "out.jsonl")

	if err := RunExport(path, "jsonl", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	reader, err := log.NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	if err := export(reader, "jsonl", &buf); err != nil {
		t.Fatalf("export: %v", err)
	}

	lines := 0
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var m map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("line %d is not JSON: %v", lines, err)
		}
		lines++
	}
	if lines != 3 {
		t.Errorf("got %d lines, want 3", lines)
	}
}

func TestExportCSV(t *testing.T) {
	path := createTestLogFile(t, sampleEvents(t))

	reader, err := log.NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	if err := export(reader, "csv", &buf); err != nil {
		t.Fatalf("export: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header + 3", len(lines))
	}
	if !strings.HasPrefix(lines[0], "timestamp,connection_id") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[2], "Frame") || !strings.Contains(lines[2], "pump-1") {
		t.Errorf("unexpected frame row %q", lines[2])
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, sampleEvents(t))
	if err := RunExport(path, "xml", filepath.Join(t.TempDir(), "x")); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestStats(t *testing.T) {
	events := sampleEvents(t)
	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Total Events: 3",
		"PORT:",
		"CONNECTION:",
		"Connections: 2",
		"Device: pump-1",
		"Last state: STARTED",
		"Errors: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}

	reader, err := log.NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer reader.Close()
	stats, err := Collect(reader)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got := stats.Bytes[log.DirectionIn]; got != events[1].Frame.Size {
		t.Errorf("inbound bytes = %d, want %d", got, events[1].Frame.Size)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[time.Duration]string{
		500 * time.Nanosecond:   "0.500us",
		1500 * time.Microsecond: "1.500ms",
		2 * time.Second:         "2.000s",
	}
	for d, want := range cases {
		if got := formatDuration(d); got != want {
			t.Errorf("formatDuration(%v) = %q, want %q", d, got, want)
		}
	}
}
