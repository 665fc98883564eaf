package event

import (
	"encoding/json"
	"planning-poker/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewEnvelope_Wire_Format(t *testing.T) {
	taskID := "task-2"
	estimate := 5
	testCases := []struct {
		name     string
		event    DomainEvent
		expected string
	}{
		{
			name:     "next task",
			event:    VotingNextTask{TaskID: &taskID, PreviousTaskDuration: 42},
			expected: `{"type":"voting:next_task","data":{"taskId":"task-2","previousTaskDuration":42}}`,
		},
		{
			name:     "queue exhausted keeps a null task id",
			event:    VotingNextTask{PreviousTaskDuration: 7},
			expected: `{"type":"voting:next_task","data":{"taskId":null,"previousTaskDuration":7}}`,
		},
		{
			name:     "current task without previous duration",
			event:    TaskCurrentChanged{TaskID: "task-1"},
			expected: `{"type":"task:current_changed","data":{"taskId":"task-1"}}`,
		},
		{
			name:     "reset carries an empty object",
			event:    VotingReset{},
			expected: `{"type":"voting:reset","data":{}}`,
		},
		{
			name: "revealed tally is flattened",
			event: VotingRevealed{Tally: domain.Tally{
				Votes:         []domain.Vote{},
				FinalEstimate: &estimate,
				Percentages:   map[int]int{5: 100},
			}},
			expected: `{"type":"voting:revealed","data":{"votes":[],"finalEstimate":5,"percentages":{"5":100}}}`,
		},
		{
			name:     "timer",
			event:    TimerSync{StartedAt: time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)},
			expected: `{"type":"timer:sync","data":{"startedAt":"2024-03-14T09:00:00Z"}}`,
		},
		{
			name:     "error",
			event:    Error{Message: "not authorized"},
			expected: `{"type":"error","data":{"message":"not authorized"}}`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			raw, err := json.Marshal(NewEnvelope(tc.event))
			req.NoError(err)
			req.JSONEq(tc.expected, string(raw))
		})
	}
}

func TestInboundEnvelope_Keeps_Data_Raw(t *testing.T) {
	req := require.New(t)

	var envelope InboundEnvelope
	req.NoError(json.Unmarshal([]byte(`{"type":"task:reorder","data":{"taskId":"t-1","newOrder":0}}`), &envelope))
	req.Equal(TaskReorderType, envelope.Type)
	req.JSONEq(`{"taskId":"t-1","newOrder":0}`, string(envelope.Data))

	// An action without payload leaves Data empty
	envelope = InboundEnvelope{}
	req.NoError(json.Unmarshal([]byte(`{"type":"voting:reveal"}`), &envelope))
	req.Equal(VotingRevealType, envelope.Type)
	req.Empty(envelope.Data)
}

func TestScope_String(t *testing.T) {
	req := require.New(t)
	req.Equal("origin", ScopeOrigin.String())
	req.Equal("room", ScopeRoom.String())
	req.Equal("others", ScopeOthers.String())
	req.Equal("user", ScopeUser.String())
	req.Equal("unknown", Scope(42).String())
}
