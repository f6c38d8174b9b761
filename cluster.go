package main

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// spotRingCapacity bounds the in-memory spot history.
const spotRingCapacity = 200

// SpotCandidate is an ephemeral DX spot. Spots are never persisted; they
// live in the ring buffer until newer spots push them out.
type SpotCandidate struct {
	Spotter   string `json:"spotter"`
	Frequency string `json:"frequency"` // kHz, as received
	Callsign  string `json:"callsign"`
	Comment   string `json:"comment"`
	Time      string `json:"time"`
	Band      string `json:"band"`
	Mode      string `json:"mode"`
	Country   string `json:"country"`
}

// ClusterClient maintains a telnet-style connection to a DX cluster node,
// reconnecting forever, and parses "DX de" spot lines into SpotCandidates.
type ClusterClient struct {
	cfg     *ClusterConfig
	metrics *Metrics

	mu        sync.RWMutex
	conn      net.Conn
	connected bool
	spots     []SpotCandidate // most recent first
	handlers  []func(SpotCandidate)

	stopChan chan struct{}
	done     chan struct{}
}

// NewClusterClient creates a cluster client. Nothing connects until Start.
func NewClusterClient(cfg *ClusterConfig, metrics *Metrics) *ClusterClient {
	return &ClusterClient{
		cfg:      cfg,
		metrics:  metrics,
		spots:    make([]SpotCandidate, 0, spotRingCapacity),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the connection loop in the background.
func (c *ClusterClient) Start() error {
	if !c.cfg.Enabled {
		log.Println("DX Cluster: Disabled in configuration")
		close(c.done)
		return nil
	}
	if c.cfg.Host == "" {
		close(c.done)
		return fmt.Errorf("DX cluster host not configured")
	}
	if c.cfg.Callsign == "" {
		close(c.done)
		return fmt.Errorf("DX cluster callsign not configured")
	}

	log.Printf("DX Cluster: Starting client for %s:%d", c.cfg.Host, c.cfg.Port)
	go c.connectionLoop()
	return nil
}

// Stop requests shutdown and waits for the connection loop to exit.
func (c *ClusterClient) Stop() {
	log.Println("DX Cluster: Stopping client")
	close(c.stopChan)

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.Unlock()

	<-c.done
}

// IsConnected reports whether the client currently has a live connection.
func (c *ClusterClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// OnSpot registers a handler invoked for every parsed spot.
func (c *ClusterClient) OnSpot(handler func(SpotCandidate)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler)
}

// RecentSpots returns a copy of the ring buffer, most recent first.
func (c *ClusterClient) RecentSpots() []SpotCandidate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	spots := make([]SpotCandidate, len(c.spots))
	copy(spots, c.spots)
	return spots
}

// connectionLoop rebuilds the connection from scratch whenever it drops.
func (c *ClusterClient) connectionLoop() {
	defer close(c.done)

	reconnectDelay := time.Duration(c.cfg.ReconnectDelaySeconds) * time.Second

	for {
		select {
		case <-c.stopChan:
			return
		default:
		}

		if err := c.connect(); err != nil {
			log.Printf("DX Cluster: Connection failed: %v", err)
			if c.metrics != nil {
				c.metrics.FeedReconnects.WithLabelValues("cluster").Inc()
			}
			if !c.sleepStop(reconnectDelay) {
				return
			}
			continue
		}

		c.readLoop()

		c.disconnect()
		if !c.sleepStop(reconnectDelay) {
			return
		}
	}
}

// connect dials the cluster and performs the login exchange. Cluster
// nodes prompt for a callsign shortly after accepting the connection, so
// the login is a short grace period followed by the callsign.
func (c *ClusterClient) connect() error {
	addr := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
	log.Printf("DX Cluster: Connecting to %s", addr)

	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if !c.sleepStop(time.Duration(c.cfg.LoginDelaySeconds) * time.Second) {
		return nil
	}

	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if _, err := fmt.Fprintf(conn, "%s\r\n", c.cfg.Callsign); err != nil {
		c.disconnect()
		return fmt.Errorf("login failed: %w", err)
	}
	conn.SetWriteDeadline(time.Time{})

	log.Printf("DX Cluster: Logged in as %s", c.cfg.Callsign)
	return nil
}

// disconnect closes the connection; reports whether it was open.
func (c *ClusterClient) disconnect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return false
	}
	c.connected = false
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	log.Println("DX Cluster: Disconnected")
	return true
}

// readLoop consumes lines until the connection dies.
func (c *ClusterClient) readLoop() {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		select {
		case <-c.stopChan:
			return
		default:
		}
		c.processLine(strings.TrimSpace(scanner.Text()))
	}

	if err := scanner.Err(); err != nil {
		log.Printf("DX Cluster: Read error: %v", err)
	}
}

// processLine parses a spot line, buffers it and fans it out to handlers.
func (c *ClusterClient) processLine(line string) {
	if !strings.Contains(line, "DX de") {
		return
	}

	spot, ok := parseSpotLine(line)
	if !ok {
		if c.metrics != nil {
			c.metrics.DecodeErrors.WithLabelValues("cluster").Inc()
		}
		return
	}

	if c.metrics != nil {
		c.metrics.SpotsReceived.Inc()
	}

	c.mu.Lock()
	c.spots = append([]SpotCandidate{spot}, c.spots...)
	if len(c.spots) > spotRingCapacity {
		c.spots = c.spots[:spotRingCapacity]
	}
	handlers := c.handlers
	c.mu.Unlock()

	for _, handler := range handlers {
		go handler(spot)
	}
}

// parseSpotLine parses a cluster spot positionally:
//
//	DX de K1ABC:    14025.0  JA1XYZ    Nice signal    1400Z
//
// Fields 2-4 are spotter, frequency and DX call; the last field is the
// spot time when present; anything between is the comment.
func parseSpotLine(line string) (SpotCandidate, bool) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return SpotCandidate{}, false
	}

	spot := SpotCandidate{
		Spotter:   strings.TrimSuffix(fields[2], ":"),
		Frequency: fields[3],
		Callsign:  fields[4],
	}

	rest := fields[5:]
	if len(fields) > 5 {
		spot.Time = fields[len(fields)-1]
		rest = fields[5 : len(fields)-1]
	}
	spot.Comment = strings.Join(rest, " ")

	if khz, err := strconv.ParseFloat(spot.Frequency, 64); err == nil {
		mhz := strconv.FormatFloat(khz/1000, 'f', -1, 64)
		spot.Band = FreqToBand(mhz)
		spot.Mode = ModeFromFreq(mhz)
	}
	spot.Country = CountryForCallsign(spot.Callsign)

	return spot, true
}

// sleepStop waits for d, returning false if Stop was requested first.
func (c *ClusterClient) sleepStop(d time.Duration) bool {
	select {
	case <-c.stopChan:
		return false
	case <-time.After(d):
		return true
	}
}
