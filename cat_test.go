package main

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

// fakeSerialPort scripts rig responses: every poll write queues the
// configured response, and an exhausted queue reads as a timeout (0, nil)
// just like a real port with a read deadline.
type fakeSerialPort struct {
	mu       sync.Mutex
	response string
	pending  []byte
	writes   []string
	readErr  error
	closed   bool
}

func (p *fakeSerialPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = append(p.writes, string(b))
	if string(b) == catPollCommand {
		p.pending = append(p.pending, p.response...)
	}
	return len(b), nil
}

func (p *fakeSerialPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readErr != nil {
		return 0, p.readErr
	}
	if len(p.pending) == 0 {
		return 0, nil
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *fakeSerialPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakeSerialPort) failReads(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readErr = err
}

func (p *fakeSerialPort) lastWrite() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.writes) == 0 {
		return ""
	}
	return p.writes[len(p.writes)-1]
}

func (p *fakeSerialPort) SetMode(*serial.Mode) error                        { return nil }
func (p *fakeSerialPort) SetReadTimeout(time.Duration) error                { return nil }
func (p *fakeSerialPort) Drain() error                                      { return nil }
func (p *fakeSerialPort) ResetInputBuffer() error                           { return nil }
func (p *fakeSerialPort) ResetOutputBuffer() error                          { return nil }
func (p *fakeSerialPort) SetDTR(bool) error                                 { return nil }
func (p *fakeSerialPort) SetRTS(bool) error                                 { return nil }
func (p *fakeSerialPort) GetModemStatusBits() (*serial.ModemStatusBits, error) { return nil, nil }
func (p *fakeSerialPort) Break(time.Duration) error                         { return nil }

// ifResponse builds an IF status response with the transmit flag set as
// requested.
func ifResponse(transmit bool) string {
	b := []byte("IF" + strings.Repeat("0", 35))
	if transmit {
		b[catTransmitOffset] = '1'
	}
	return string(b)
}

func testCATConfig() *CATConfig {
	return &CATConfig{
		Enabled:               true,
		Port:                  "/dev/ttyUSB0",
		Baud:                  9600,
		PollIntervalMillis:    5,
		ReconnectDelaySeconds: 0,
	}
}

// TestCATDispatch verifies each response command updates its slice of
// the radio state.
func TestCATDispatch(t *testing.T) {
	state := NewRadioState()
	link := NewCATLink(testCATConfig(), state, nil)

	link.dispatch("FA00014074000")
	assert.Equal(t, uint64(14074000), state.Frequency())

	link.dispatch("MD2")
	assert.Equal(t, "USB", state.Mode())

	link.dispatch("MD3")
	assert.Equal(t, "CW", state.Mode())

	// unknown digit falls back to SSB
	link.dispatch("MD7")
	assert.Equal(t, "SSB", state.Mode())

	link.dispatch("SM0012")
	assert.Equal(t, 12, state.SMeter())

	link.dispatch(ifResponse(true))
	assert.True(t, state.Transmit())

	link.dispatch(ifResponse(false))
	assert.False(t, state.Transmit())
}

// TestCATDispatchGarbage verifies malformed responses are dropped
// without disturbing existing state.
func TestCATDispatchGarbage(t *testing.T) {
	state := NewRadioState()
	state.SetFrequency(7074000)
	link := NewCATLink(testCATConfig(), state, nil)

	link.dispatch("")
	link.dispatch("F")
	link.dispatch("FAxyz")
	link.dispatch("SMbad")
	link.dispatch("IF123") // too short for the transmit flag
	link.dispatch("ZZ999")

	assert.Equal(t, uint64(7074000), state.Frequency())
	assert.False(t, state.Transmit())
}

// TestCATPollCycle verifies one poll round trip: command out, responses
// read until timeout, state updated.
func TestCATPollCycle(t *testing.T) {
	state := NewRadioState()
	link := NewCATLink(testCATConfig(), state, nil)

	port := &fakeSerialPort{
		response: "FA00014074000;MD2;SM0009;" + ifResponse(false) + ";",
	}
	link.port = port
	link.connected = true

	require.NoError(t, link.pollCycle())
	assert.Equal(t, uint64(14074000), state.Frequency())
	assert.Equal(t, "USB", state.Mode())
	assert.Equal(t, 9, state.SMeter())
	assert.False(t, state.Transmit())
}

// TestCATLinkReconnect verifies the poll loop survives an open failure
// and a mid-session read error, reopening the port each time.
func TestCATLinkReconnect(t *testing.T) {
	state := NewRadioState()
	link := NewCATLink(testCATConfig(), state, nil)

	var mu sync.Mutex
	var opens int
	var ports []*fakeSerialPort
	link.openPort = func(string, *serial.Mode) (serial.Port, error) {
		mu.Lock()
		defer mu.Unlock()
		opens++
		if opens == 1 {
			return nil, errors.New("device busy")
		}
		port := &fakeSerialPort{response: "FA00007074000;"}
		ports = append(ports, port)
		return port, nil
	}

	require.NoError(t, link.Start())
	defer link.Stop()

	require.Eventually(t, func() bool {
		return state.Frequency() == 7074000
	}, 2*time.Second, time.Millisecond)

	mu.Lock()
	ports[0].failReads(errors.New("device unplugged"))
	mu.Unlock()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ports) >= 2
	}, 2*time.Second, time.Millisecond)
}

// TestCATTuneTo verifies the tune command format and the no-op when the
// link is down.
func TestCATTuneTo(t *testing.T) {
	link := NewCATLink(testCATConfig(), NewRadioState(), nil)

	// disconnected: nothing to write to, nothing happens
	link.TuneTo(14074000)

	port := &fakeSerialPort{}
	link.port = port
	link.TuneTo(14074000)
	assert.Equal(t, "FA00014074000;", port.lastWrite())
}

// TestCATDisabled verifies a disabled link starts and stops cleanly
// without touching any port.
func TestCATDisabled(t *testing.T) {
	cfg := testCATConfig()
	cfg.Enabled = false
	link := NewCATLink(cfg, NewRadioState(), nil)
	link.openPort = func(string, *serial.Mode) (serial.Port, error) {
		t.Fatal("disabled link opened a port")
		return nil, nil
	}

	require.NoError(t, link.Start())
	link.Stop()
}
