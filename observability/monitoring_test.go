package observability

import (
	"planning-poker/domain/event"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMonitor_Counts_Rooms_Connections_And_Deliveries(t *testing.T) {
	req := require.New(t)
	m := NewMonitor()

	// Given two rooms, one released, and three connections, one closed
	m.RoomStarted()
	m.RoomStarted()
	m.RoomReleased()
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.InboundRejected()

	// When deliveries go through the telemetry chain
	m.Handle(event.Delivery{Name: event.VoteRegisteredType, Delivered: 4})
	m.Handle(event.Delivery{Name: event.VotingRevealedType, Delivered: 2, Failed: 1})
	m.Handle(event.Delivery{Name: event.ErrorType, Delivered: 1})

	// Then the snapshot reflects every counter
	stats := m.Snapshot()
	req.Equal(int64(1), stats.ActiveRooms)
	req.Equal(int64(2), stats.Connections)
	req.Equal(uint64(7), stats.EventsSent)
	req.Equal(uint64(1), stats.EventsFailed)
	req.Equal(uint64(1), stats.ErrorsSent)
	req.Equal(uint64(1), stats.Rejected)
	req.Positive(stats.Goroutines)
	req.Nil(stats.Process)
	req.Empty(stats.Backlogs)
}

func TestMonitor_Keeps_Last_Samples(t *testing.T) {
	req := require.New(t)
	m := NewMonitor()

	_, ok := m.Process()
	req.False(ok)

	// When two process samples and backlogs are recorded
	m.RecordProcess(ProcessStats{PID: 42, CPUPercent: 1.5, SampledAt: time.Now()})
	m.RecordProcess(ProcessStats{PID: 42, CPUPercent: 3, SampledAt: time.Now()})
	m.RecordBacklog("telemetry", 10, 1024)
	m.RecordBacklog("telemetry", 2, 1024)
	m.RecordBacklog("rooms", 0, 256)

	// Then only the last ones are kept
	p, ok := m.Process()
	req.True(ok)
	req.Equal(3.0, p.CPUPercent)

	stats := m.Snapshot()
	req.NotNil(stats.Process)
	req.Equal(int32(42), stats.Process.PID)
	req.Equal(map[string]Backlog{
		"telemetry": {Length: 2, Capacity: 1024},
		"rooms":     {Length: 0, Capacity: 256},
	}, stats.Backlogs)
}

func TestToStatus(t *testing.T) {
	req := require.New(t)
	req.Equal(Running, ToStatus("R"))
	req.Equal(Sleeping, ToStatus("S"))
	req.Equal(Zombie, ToStatus("Z"))
	req.Equal(Unknown, ToStatus("?"))
}
