package console

import (
	"bytes"
	"testing"
	"time"

	"remoteshutdown/internal/core/countdown"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockController struct {
	mock.Mock
}

func (controller *mockController) Abort() bool {
	return controller.Called().Bool(0)
}

func (controller *mockController) State() countdown.State {
	return controller.Called().Get(0).(countdown.State)
}

func TestExecuteAbort(t *testing.T) {
	controller := &mockController{}
	controller.On("Abort").Return(true).Once()
	controller.On("Abort").Return(false).Once()
	console := &Console{controller: controller}

	var out bytes.Buffer
	assert.False(t, console.Execute(&out, "abort"))
	assert.Contains(t, out.String(), "Abort requested.")

	out.Reset()
	assert.False(t, console.Execute(&out, "  A "))
	assert.Contains(t, out.String(), "No countdown is running.")
	controller.AssertExpectations(t)
}

func TestExecuteStatusHelpQuit(t *testing.T) {
	controller := &mockController{}
	controller.On("State").Return(countdown.StateRunning)
	console := &Console{controller: controller}

	var out bytes.Buffer
	assert.False(t, console.Execute(&out, "status"))
	assert.Equal(t, "Countdown is running.\n", out.String())

	out.Reset()
	assert.False(t, console.Execute(&out, "help"))
	assert.Contains(t, out.String(), "abort, a")

	out.Reset()
	assert.False(t, console.Execute(&out, "reboot now"))
	assert.Contains(t, out.String(), `Unknown command "reboot now"`)

	out.Reset()
	assert.False(t, console.Execute(&out, "   "))
	assert.Empty(t, out.String())

	assert.True(t, console.Execute(&out, "quit"))
	assert.True(t, console.Execute(&out, "exit"))
}

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		event countdown.Event
		want  string
	}{
		{countdown.Event{Type: countdown.EventStarted, Remaining: 60 * time.Second}, "Shutdown requested: shutting down in 60s. Type 'abort' to cancel."},
		{countdown.Event{Type: countdown.EventProgress, Remaining: 42 * time.Second}, "Shutdown in 42s"},
		{countdown.Event{Type: countdown.EventFired}, "Shutting down now."},
		{countdown.Event{Type: countdown.EventAborted, Remaining: 1500 * time.Millisecond}, "Shutdown aborted with 2s left."},
	}

	for _, tt := range tests {
		t.Run(string(tt.event.Type), func(t *testing.T) {
			assert.Equal(t, tt.want, FormatEvent(tt.event))
		})
	}
}
