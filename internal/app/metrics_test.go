package app

import (
	"testing"
	"time"
)

func TestNewMetrics(t *testing.T) {
	snapshot := NewMetrics().Snapshot()
	if snapshot.FrameCount != 0 {
		t.Errorf("expected 0 frame count, got %d", snapshot.FrameCount)
	}
	if snapshot.MinFrameTimeNs != 0 {
		t.Errorf("expected 0 min frame time (sentinel handled), got %d", snapshot.MinFrameTimeNs)
	}
	if snapshot.AvgFPS() != 0 {
		t.Errorf("expected 0 fps, got %f", snapshot.AvgFPS())
	}
}

func TestMetrics_RecordFrame(t *testing.T) {
	m := NewMetrics()

	m.RecordFrame(10 * time.Millisecond)
	m.RecordFrame(20 * time.Millisecond)
	m.RecordFrame(5 * time.Millisecond)
	m.RecordFailedFrame()

	snapshot := m.Snapshot()
	if snapshot.FrameCount != 3 {
		t.Errorf("expected 3 frames, got %d", snapshot.FrameCount)
	}
	if snapshot.MinFrameTimeNs != int64(5*time.Millisecond) {
		t.Errorf("expected min 5ms, got %d ns", snapshot.MinFrameTimeNs)
	}
	if snapshot.MaxFrameTimeNs != int64(20*time.Millisecond) {
		t.Errorf("expected max 20ms, got %d ns", snapshot.MaxFrameTimeNs)
	}
	if snapshot.LastFrameNs != int64(5*time.Millisecond) {
		t.Errorf("expected last 5ms, got %d ns", snapshot.LastFrameNs)
	}
	if snapshot.FailedFrames != 1 {
		t.Errorf("expected 1 failed frame, got %d", snapshot.FailedFrames)
	}
	if fps := snapshot.AvgFPS(); fps < 85 || fps > 86 {
		t.Errorf("expected ~85.7 fps, got %f", fps)
	}
}

func TestMetrics_Events(t *testing.T) {
	m := NewMetrics()

	m.RecordInput(time.Millisecond)
	m.RecordInput(3 * time.Millisecond)
	m.RecordWindowEvent(false)
	m.RecordWindowEvent(true)
	m.RecordReload()

	snapshot := m.Snapshot()
	if snapshot.InputCount != 2 || snapshot.AvgInputTimeNs != int64(2*time.Millisecond) {
		t.Errorf("unexpected input stats %+v", snapshot)
	}
	if snapshot.WindowEvents != 2 || snapshot.CloseRequests != 1 {
		t.Errorf("unexpected window stats %+v", snapshot)
	}
	if snapshot.Reloads != 1 {
		t.Errorf("expected 1 reload, got %d", snapshot.Reloads)
	}
}
