// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// A Capture records JSON log lines in memory so that tests can make
// assertions about the order of diagnostic events.
type Capture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewCapture returns a Capture and a debug-level logger that writes
// into it.
func NewCapture() (*Capture, zerolog.Logger) {
	c := &Capture{}
	return c, zerolog.New(c).Level(zerolog.DebugLevel)
}

// Write implements io.Writer. zerolog issues one Write per event.
func (c *Capture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

// Entries decodes every captured line. Lines that are not JSON objects
// are skipped.
func (c *Capture) Entries() []map[string]any {
	c.mu.Lock()
	data := bytes.Clone(c.buf.Bytes())
	c.mu.Unlock()

	var ret []map[string]any
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		ret = append(ret, entry)
	}
	return ret
}

// Events returns the value of the event field of each entry that has
// one, in the order written.
func (c *Capture) Events() []string {
	var ret []string
	for _, entry := range c.Entries() {
		if ev, ok := entry[FieldEvent].(string); ok {
			ret = append(ret, ev)
		}
	}
	return ret
}

// Count returns the number of entries with the given event name.
func (c *Capture) Count(event string) int {
	n := 0
	for _, ev := range c.Events() {
		if ev == event {
			n++
		}
	}
	return n
}
