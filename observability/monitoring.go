// Package observability keeps the live counters of the coordinator. They are
// exposed by the stats and health endpoints.
package observability

import (
	"planning-poker/domain/event"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// ProcessStats is one sample of the process taken by the health worker.
type ProcessStats struct {
	PID           int32         `json:"pid"`
	Status        ProcessStatus `json:"status"`
	CPUPercent    float64       `json:"cpuPercent"`
	MemoryPercent float32       `json:"memoryPercent"`
	RSSBytes      uint64        `json:"rssBytes"`
	SampledAt     time.Time     `json:"sampledAt"`
}

// Stats is the snapshot served on /api/stats.
type Stats struct {
	ActiveRooms   int64              `json:"activeRooms"`
	Connections   int64              `json:"connections"`
	EventsSent    uint64             `json:"eventsSent"`
	EventsFailed  uint64             `json:"eventsFailed"`
	ErrorsSent    uint64             `json:"errorsSent"`
	Rejected      uint64             `json:"rejected"`
	HeapAllocMb   uint64             `json:"heapAllocMb"`
	NumGC         uint32             `json:"numGc"`
	Goroutines    int                `json:"goroutines"`
	UptimeSeconds int64              `json:"uptimeSeconds"`
	Backlogs      map[string]Backlog `json:"backlogs"`
	Process       *ProcessStats      `json:"process,omitempty"`
}

// Backlog is the last sampled usage of an internal queue.
type Backlog struct {
	Length   int `json:"length"`
	Capacity int `json:"capacity"`
}

type Monitor struct {
	startedAt    time.Time
	activeRooms  atomic.Int64
	connections  atomic.Int64
	eventsSent   atomic.Uint64
	eventsFailed atomic.Uint64
	errorsSent   atomic.Uint64
	rejected     atomic.Uint64

	mu       sync.RWMutex
	process  *ProcessStats
	backlogs map[string]Backlog
}

func NewMonitor() *Monitor {
	return &Monitor{startedAt: time.Now(), backlogs: make(map[string]Backlog)}
}

func (m *Monitor) RoomStarted()      { m.activeRooms.Add(1) }
func (m *Monitor) RoomReleased()     { m.activeRooms.Add(-1) }
func (m *Monitor) ConnectionOpened() { m.connections.Add(1) }
func (m *Monitor) ConnectionClosed() { m.connections.Add(-1) }
func (m *Monitor) InboundRejected()  { m.rejected.Add(1) }

// Handle counts a delivery record, Monitor sits in the telemetry chain.
func (m *Monitor) Handle(d event.Delivery) {
	m.eventsSent.Add(uint64(d.Delivered))
	m.eventsFailed.Add(uint64(d.Failed))
	if d.Name == event.ErrorType {
		m.errorsSent.Add(uint64(d.Delivered))
	}
}

func (m *Monitor) RecordProcess(stats ProcessStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.process = &stats
}

func (m *Monitor) RecordBacklog(name string, length, capacity int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backlogs[name] = Backlog{Length: length, Capacity: capacity}
}

// Process returns the last process sample, if any was taken.
func (m *Monitor) Process() (ProcessStats, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.process == nil {
		return ProcessStats{}, false
	}
	return *m.process, true
}

func (m *Monitor) Snapshot() Stats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	stats := Stats{
		ActiveRooms:   m.activeRooms.Load(),
		Connections:   m.connections.Load(),
		EventsSent:    m.eventsSent.Load(),
		EventsFailed:  m.eventsFailed.Load(),
		ErrorsSent:    m.errorsSent.Load(),
		Rejected:      m.rejected.Load(),
		HeapAllocMb:   mem.HeapAlloc / 1024 / 1024,
		NumGC:         mem.NumGC,
		Goroutines:    runtime.NumGoroutine(),
		UptimeSeconds: int64(time.Since(m.startedAt).Seconds()),
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats.Backlogs = make(map[string]Backlog, len(m.backlogs))
	for name, b := range m.backlogs {
		stats.Backlogs[name] = b
	}
	if m.process != nil {
		p := *m.process
		stats.Process = &p
	}
	return stats
}
