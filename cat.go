package main

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// catPollCommand requests VFO-A frequency, mode, S-meter and transceiver
// status in one write. Responses come back as ';'-terminated commands.
const catPollCommand = "FA;MD;SM0;IF;"

// catModeMap translates the MD response digit to a mode name.
var catModeMap = map[string]string{
	"1": "LSB",
	"2": "USB",
	"3": "CW",
	"4": "FM",
	"5": "AM",
	"9": "DIG",
}

// catTransmitOffset is the character position of the transmit flag inside
// an IF response.
const catTransmitOffset = 28

// CATLink owns the serial connection to the transceiver. It runs a
// poll/parse/dispatch loop, publishing decoded state into a RadioState
// and retrying forever across serial failures. Radio control is
// best-effort: nothing this component does may destabilize the process.
type CATLink struct {
	cfg     *CATConfig
	state   *RadioState
	metrics *Metrics

	// openPort is swappable so tests can inject a fake serial port
	openPort func(name string, mode *serial.Mode) (serial.Port, error)

	mu        sync.Mutex
	port      serial.Port
	connected bool

	stopChan chan struct{}
	done     chan struct{}
}

// NewCATLink creates a CAT link for the configured port. The link does
// nothing until Start is called.
func NewCATLink(cfg *CATConfig, state *RadioState, metrics *Metrics) *CATLink {
	return &CATLink{
		cfg:      cfg,
		state:    state,
		metrics:  metrics,
		openPort: serial.Open,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the poll loop in the background.
func (l *CATLink) Start() error {
	if !l.cfg.Enabled {
		log.Println("CAT: Disabled in configuration")
		close(l.done)
		return nil
	}
	if l.cfg.Port == "" {
		close(l.done)
		return fmt.Errorf("CAT serial port not configured")
	}

	log.Printf("CAT: Starting link on %s @ %d baud", l.cfg.Port, l.cfg.Baud)
	go l.pollLoop()
	return nil
}

// Stop requests shutdown and waits for the poll loop to exit.
func (l *CATLink) Stop() {
	close(l.stopChan)
	<-l.done
}

// IsConnected reports whether the serial port is currently open.
func (l *CATLink) IsConnected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

// pollLoop is the CAT state machine: Disconnected -> Connected-Polling
// -> Faulted-Backoff and around again. The port is recreated from
// scratch on every reconnect.
func (l *CATLink) pollLoop() {
	defer close(l.done)
	defer l.closePort()

	reconnectDelay := time.Duration(l.cfg.ReconnectDelaySeconds) * time.Second
	pollInterval := time.Duration(l.cfg.PollIntervalMillis) * time.Millisecond

	for {
		select {
		case <-l.stopChan:
			return
		default:
		}

		if !l.IsConnected() {
			if err := l.connect(); err != nil {
				if DebugMode {
					log.Printf("CAT: Open failed: %v", err)
				}
				if l.metrics != nil {
					l.metrics.FeedReconnects.WithLabelValues("cat").Inc()
				}
				if !l.sleepStop(reconnectDelay) {
					return
				}
				continue
			}
			log.Printf("CAT: Connected to %s", l.cfg.Port)
		}

		if err := l.pollCycle(); err != nil {
			log.Printf("CAT: Poll failed: %v", err)
			l.closePort()
			if !l.sleepStop(reconnectDelay) {
				return
			}
			continue
		}

		if !l.sleepStop(pollInterval) {
			return
		}
	}
}

// connect opens a fresh serial port with a short read timeout.
func (l *CATLink) connect() error {
	mode := &serial.Mode{
		BaudRate: l.cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := l.openPort(l.cfg.Port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", l.cfg.Port, err)
	}
	if err := port.SetReadTimeout(500 * time.Millisecond); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout: %w", err)
	}

	l.mu.Lock()
	l.port = port
	l.connected = true
	l.mu.Unlock()
	return nil
}

// closePort tears the connection down; the next cycle reconnects.
func (l *CATLink) closePort() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.port != nil {
		l.port.Close()
		l.port = nil
	}
	l.connected = false
}

// pollCycle writes one poll command and dispatches whatever responses the
// rig returned before the read timeout.
func (l *CATLink) pollCycle() error {
	l.mu.Lock()
	port := l.port
	l.mu.Unlock()
	if port == nil {
		return fmt.Errorf("not connected")
	}

	if _, err := port.Write([]byte(catPollCommand)); err != nil {
		return fmt.Errorf("poll write failed: %w", err)
	}

	// Drain everything available this cycle. A timeout shows up as a
	// zero-byte read and ends the drain.
	var response strings.Builder
	buf := make([]byte, 256)
	for {
		n, err := port.Read(buf)
		if err != nil {
			return fmt.Errorf("poll read failed: %w", err)
		}
		if n == 0 {
			break
		}
		response.Write(buf[:n])
	}

	for _, cmd := range strings.Split(response.String(), ";") {
		l.dispatch(strings.TrimSpace(cmd))
	}
	return nil
}

// dispatch routes one response command by its two-letter prefix. Anything
// unparseable is dropped; a flaky rig must not kill the loop.
func (l *CATLink) dispatch(cmd string) {
	if len(cmd) < 2 {
		return
	}

	switch cmd[:2] {
	case "FA":
		freq, err := strconv.ParseUint(cmd[2:], 10, 64)
		if err != nil {
			return
		}
		l.state.SetFrequency(freq)
		if l.metrics != nil {
			l.metrics.RadioFrequency.Set(float64(freq))
		}
	case "MD":
		if len(cmd) < 3 {
			return
		}
		mode, ok := catModeMap[cmd[2:3]]
		if !ok {
			mode = "SSB"
		}
		l.state.SetMode(mode)
	case "SM":
		level, err := strconv.Atoi(cmd[2:])
		if err != nil {
			return
		}
		l.state.SetSMeter(level)
	case "IF":
		if len(cmd) >= 30 {
			l.state.SetTransmit(cmd[catTransmitOffset] == '1')
		}
	}
}

// sleepStop waits for d, returning false if Stop was requested first.
func (l *CATLink) sleepStop(d time.Duration) bool {
	select {
	case <-l.stopChan:
		return false
	case <-time.After(d):
		return true
	}
}

// TuneTo sets the VFO-A frequency on the rig. Silently a no-op when the
// link is down; write failures are logged and swallowed.
func (l *CATLink) TuneTo(freqHz uint64) {
	l.mu.Lock()
	port := l.port
	l.mu.Unlock()
	if port == nil {
		return
	}

	if _, err := port.Write([]byte(fmt.Sprintf("FA%011d;", freqHz))); err != nil {
		log.Printf("CAT: Tune write failed: %v", err)
	}
}
