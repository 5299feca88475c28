// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rpc

import (
	"encoding/json"
	"sync"

	"golang.org/x/net/websocket"
)

// streamBroadcaster pushes StateResponse snapshots to every connected
// /status/stream client, generalizing cmd/lepton/server.go's WebServer,
// which broadcasts lepton frames the same way: a condition variable guards
// the latest snapshot and its sequence number, and each connection's
// goroutine wakes on every broadcast and sends the latest snapshot if its
// sequence number has changed. Snapshots published while a send is in
// progress are not queued; only the newest one is sent.
type streamBroadcaster struct {
	cond  sync.Cond
	state StateResponse
	seq   int64
}

func newStreamBroadcaster() *streamBroadcaster {
	return &streamBroadcaster{cond: *sync.NewCond(&sync.Mutex{})}
}

func (b *streamBroadcaster) publish(s StateResponse) {
	b.cond.L.Lock()
	b.state = s
	b.seq++
	b.cond.L.Unlock()
	b.cond.Broadcast()
}

func (b *streamBroadcaster) handler() websocket.Handler {
	return func(conn *websocket.Conn) {
		defer conn.Close()
		lastSeq := int64(-1)
		b.cond.L.Lock()
		defer b.cond.L.Unlock()
		for {
			b.cond.Wait()
			if b.seq == lastSeq {
				continue
			}
			lastSeq = b.seq
			state := b.state
			b.cond.L.Unlock()
			err := json.NewEncoder(conn).Encode(state)
			b.cond.L.Lock()
			if err != nil {
				return
			}
		}
	}
}
