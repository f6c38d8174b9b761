package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// dedupWindowMinutes is how far apart (in minutes, inclusive) two
// contacts with the same callsign, band and UTC date may be and still
// count as the same contact. Digital-mode loggers frequently report the
// same QSO over more than one feed a minute or two apart.
const dedupWindowMinutes = 3

// IngestOutcome says what the coordinator did with a candidate.
type IngestOutcome string

const (
	OutcomeStored    IngestOutcome = "stored"
	OutcomeDuplicate IngestOutcome = "duplicate"
)

// IngestResult is the reply for a synchronous ingest.
type IngestResult struct {
	Outcome IngestOutcome
	Record  ContactRecord
	Err     error
}

type ingestRequest struct {
	cand  ContactCandidate
	reply chan IngestResult // nil for fire-and-forget submissions
}

// Coordinator is the single serialization point for contact writes.
// Every candidate, whatever feed produced it, flows through one writer
// goroutine, so the duplicate check and the insert are atomic per
// process. Enrichment runs before a candidate enters the serialized
// section and never blocks it.
type Coordinator struct {
	store   *ContactStore
	lookup  *QRZClient
	mqtt    *MQTTPublisher
	metrics *Metrics
	station *StationConfig

	writeChan chan ingestRequest

	mu        sync.RWMutex
	listeners []func(ContactRecord)

	stopChan chan struct{}
	done     chan struct{}
}

// NewCoordinator wires the write path together. lookup and mqtt may be
// nil when those collaborators are disabled.
func NewCoordinator(store *ContactStore, lookup *QRZClient, mqtt *MQTTPublisher, metrics *Metrics, station *StationConfig) *Coordinator {
	return &Coordinator{
		store:     store,
		lookup:    lookup,
		mqtt:      mqtt,
		metrics:   metrics,
		station:   station,
		writeChan: make(chan ingestRequest, 64),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the writer goroutine.
func (c *Coordinator) Start() {
	go c.writerLoop()
}

// Stop drains nothing: pending submissions still in flight are dropped.
func (c *Coordinator) Stop() {
	close(c.stopChan)
	<-c.done
}

// OnStoreChanged registers a listener invoked after every stored contact.
func (c *Coordinator) OnStoreChanged(fn func(ContactRecord)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Submit queues a candidate without waiting for the outcome. Feeds use
// this; a slow directory lookup only delays this one candidate, never
// the feed's receive loop or other candidates.
func (c *Coordinator) Submit(cand ContactCandidate) {
	go func() {
		c.enrich(&cand)
		select {
		case c.writeChan <- ingestRequest{cand: cand}:
		case <-c.stopChan:
		}
	}()
}

// Ingest runs a candidate through the same write path as the feeds and
// waits for the outcome. Manual entry and bulk import use this.
func (c *Coordinator) Ingest(ctx context.Context, cand ContactCandidate) IngestResult {
	c.enrich(&cand)

	reply := make(chan IngestResult, 1)
	select {
	case c.writeChan <- ingestRequest{cand: cand, reply: reply}:
	case <-ctx.Done():
		return IngestResult{Err: ctx.Err()}
	case <-c.stopChan:
		return IngestResult{Err: fmt.Errorf("coordinator stopped")}
	}

	select {
	case res := <-reply:
		return res
	case <-ctx.Done():
		return IngestResult{Err: ctx.Err()}
	}
}

// ImportRecords ingests a batch of candidates sequentially, reporting
// how many were stored and how many were duplicates.
func (c *Coordinator) ImportRecords(ctx context.Context, cands []ContactCandidate) (stored, duplicates int, err error) {
	for _, cand := range cands {
		res := c.Ingest(ctx, cand)
		if res.Err != nil {
			return stored, duplicates, res.Err
		}
		switch res.Outcome {
		case OutcomeStored:
			stored++
		case OutcomeDuplicate:
			duplicates++
		}
	}
	return stored, duplicates, nil
}

// writerLoop is the only goroutine that writes contacts.
func (c *Coordinator) writerLoop() {
	defer close(c.done)

	for {
		select {
		case <-c.stopChan:
			return
		case req := <-c.writeChan:
			res := c.process(req.cand)
			if req.reply != nil {
				req.reply <- res
			}
		}
	}
}

// process normalizes, dedups and stores one candidate.
func (c *Coordinator) process(cand ContactCandidate) IngestResult {
	normalize(&cand)

	dup, err := c.isDuplicate(cand)
	if err != nil {
		if c.metrics != nil {
			c.metrics.StoreErrors.Inc()
		}
		return IngestResult{Err: fmt.Errorf("duplicate check failed: %w", err)}
	}
	if dup {
		log.Printf("Coordinator: Duplicate contact %s on %s at %s %s, skipping",
			cand.Callsign, cand.Band, cand.Date, cand.TimeOn)
		if c.metrics != nil {
			c.metrics.DuplicatesSkipped.Inc()
		}
		return IngestResult{Outcome: OutcomeDuplicate}
	}

	rec := newRecord(cand)
	if _, err := c.store.Insert(rec); err != nil {
		if c.metrics != nil {
			c.metrics.StoreErrors.Inc()
		}
		return IngestResult{Err: fmt.Errorf("failed to store contact: %w", err)}
	}

	log.Printf("Coordinator: Stored contact %s on %s (%s) from %s",
		rec.Callsign, rec.Band, rec.Mode, rec.Source)
	if c.metrics != nil {
		c.metrics.ContactsIngested.WithLabelValues(string(rec.Source)).Inc()
	}

	c.notify(*rec)
	return IngestResult{Outcome: OutcomeStored, Record: *rec}
}

// isDuplicate reports whether a contact with the same callsign and band
// already exists on the same UTC date within the dedup window.
func (c *Coordinator) isDuplicate(cand ContactCandidate) (bool, error) {
	times, err := c.store.TimesOn(cand.Callsign, cand.Band, cand.Date)
	if err != nil {
		return false, err
	}
	m, ok := minuteOfDay(cand.TimeOn)
	if !ok {
		return false, nil
	}
	for _, t := range times {
		tm, ok := minuteOfDay(t)
		if !ok {
			continue
		}
		diff := m - tm
		if diff < 0 {
			diff = -diff
		}
		if diff <= dedupWindowMinutes {
			return true, nil
		}
	}
	return false, nil
}

// enrich fills in operator details before the candidate reaches the
// writer. Every step is best-effort: a failed lookup just leaves fields
// empty.
func (c *Coordinator) enrich(cand *ContactCandidate) {
	cand.Callsign = strings.ToUpper(strings.TrimSpace(cand.Callsign))
	if cand.Callsign == "" {
		return
	}

	if c.lookup != nil && (cand.Name == "" || cand.Grid == "" || cand.QTH == "") {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		info := c.lookup.Resolve(ctx, cand.Callsign)
		cancel()
		if info == nil {
			if c.metrics != nil {
				c.metrics.LookupFailures.Inc()
			}
		} else {
			if cand.Name == "" {
				cand.Name = info.Name
			}
			if cand.QTH == "" {
				cand.QTH = info.QTH
			}
			if cand.Grid == "" {
				cand.Grid = info.Grid
			}
		}
	}

	if cand.QTH == "" {
		cand.QTH = CountryForCallsign(cand.Callsign)
	}

	if cand.Distance == "" && cand.Grid != "" && c.station != nil && c.station.Grid != "" {
		if dist, _, ok := GridDistanceBearing(c.station.Grid, cand.Grid); ok {
			cand.Distance = fmt.Sprintf("%d km", dist)
		}
	}
}

// normalize fills defaults so every stored row is well-formed no matter
// how sparse the feed's candidate was.
func normalize(cand *ContactCandidate) {
	now := time.Now().UTC()
	if cand.Date == "" {
		cand.Date = now.Format("2006-01-02")
	}
	if cand.TimeOn == "" {
		cand.TimeOn = now.Format("15:04")
	}
	if cand.Band == "" {
		cand.Band = FreqToBand(cand.Freq)
	}
	if cand.Mode == "" {
		cand.Mode = "FT8"
	}
	if cand.Source == "" {
		cand.Source = SourceManual
	}
}

// notify fans a stored record out to listeners and the broker without
// blocking the writer.
func (c *Coordinator) notify(rec ContactRecord) {
	c.mu.RLock()
	listeners := c.listeners
	c.mu.RUnlock()

	for _, fn := range listeners {
		go fn(rec)
	}
	if c.mqtt != nil {
		go c.mqtt.PublishContact(rec)
	}
}
