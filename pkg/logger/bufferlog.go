// Package logger implements a per-pass in-memory log buffer.
//
// Detail lines are buffered WHILE a render pass runs.
// If the pass fails, the buffer is replayed followed by the final error.
// If the pass succeeds, the buffer is dropped and one short line is logged.
//
// Thread safety comes from a dedicated logger goroutine fed by a command
// channel; no mutexes.
package logger

import (
	"bytes"
	"log"
	"strings"
	"time"
)

type action int

const (
	actBegin action = iota
	actAppend
	actSuccess
	actFlushErr
)

type cmd struct {
	act     action
	passID  string
	message string    // for Append
	summary string    // for Success
	err     error     // for FlushError
	when    time.Time // timestamp, in case ordering ever matters
}

var ch = make(chan cmd, 128) // headroom for bursts of interactions

// Begin enables buffering for passID.
func Begin(passID string) { ch <- cmd{act: actBegin, passID: passID, when: time.Now()} }

// Append adds one detail line to the pass buffer.
func Append(passID, msg string) {
	ch <- cmd{act: actAppend, passID: passID, message: msg, when: time.Now()}
}

// Success drops the buffer and logs one short line for the pass.
func Success(passID, summary string) {
	ch <- cmd{act: actSuccess, passID: passID, summary: summary, when: time.Now()}
}

// FlushError replays the buffered detail followed by the final error.
func FlushError(passID string, err error) {
	ch <- cmd{act: actFlushErr, passID: passID, err: err, when: time.Now()}
}

func init() { go runloop() }

func runloop() {
	buffers := make(map[string]*bytes.Buffer)

	for c := range ch {
		switch c.act {
		case actBegin:
			buffers[c.passID] = &bytes.Buffer{}

		case actAppend:
			if b := buffers[c.passID]; b != nil {
				_, _ = b.WriteString(c.message + "\n")
			} else {
				log.Print(c.message) // no buffer, log immediately
			}

		case actSuccess:
			log.Printf("[%-6s][Render] ✔ %s", c.passID, c.summary)
			delete(buffers, c.passID)

		case actFlushErr:
			if b := buffers[c.passID]; b != nil {
				lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
				for _, ln := range lines {
					log.Print(ln)
				}
				delete(buffers, c.passID)
			}
			log.Printf("[%-6s][ERROR] %v", c.passID, c.err)
		}
	}
}
