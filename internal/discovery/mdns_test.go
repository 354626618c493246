package discovery

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstanceName(t *testing.T) {
	tests := []struct {
		hostname string
		want     string
	}{
		{"desk", "remote-shutdown-desk"},
		{"desk.example.lan", "remote-shutdown-desk"},
		{"  ", "remote-shutdown-host"},
		{strings.Repeat("x", 80), "remote-shutdown-" + strings.Repeat("x", MaxInstanceNameLen-len("remote-shutdown-"))},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			name := InstanceName(tt.hostname)
			assert.Equal(t, tt.want, name)
			assert.LessOrEqual(t, len(name), MaxInstanceNameLen)
		})
	}
}

func TestTXTRecordsDoNotLeakSecret(t *testing.T) {
	records := TXTRecords(Info{Hostname: "desk", Port: 8000, Version: "1.2.3"})

	assert.Contains(t, records, "version=1.2.3")
	assert.Contains(t, records, "path=/{secret}/shutdown")
	assert.Contains(t, TXTRecords(Info{}), "version=dev")
}

func TestAdvertiseRejectsInvalidPort(t *testing.T) {
	advertiser := NewAdvertiser(nil)
	assert.Error(t, advertiser.Advertise(Info{Hostname: "desk"}))
	advertiser.Stop()
}

func TestInterfacesUnknownName(t *testing.T) {
	assert.Nil(t, interfaces(""))
	assert.Nil(t, interfaces("no-such-interface0"))
}
