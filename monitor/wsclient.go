// Copyright 2024 The assetforge Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/sync/dispatcher"
	"go.chromium.org/luci/common/sync/dispatcher/buffer"
)

// defaultPingTimeout bounds how long Ping waits for its pong.
const defaultPingTimeout = 10 * time.Second

// Client is a BuildMonitor speaking JSON envelopes over a websocket.
//
// One-way calls enqueue into a dispatcher channel with a drop-oldest
// policy: if the coordinator is slow or gone, telemetry is dropped and
// the build goes on. Only Ping round-trips.
type Client struct {
	conn *websocket.Conn
	ch   dispatcher.Channel[envelope]

	seq atomic.Int64

	mu    sync.Mutex
	pongs map[int64]chan int

	readDone chan struct{}
}

var _ BuildMonitor = (*Client)(nil)

// Dial connects to a monitor endpoint (a ws:// or wss:// url).
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Annotate(err, "dialing build monitor %q", url).Err()
	}
	c := &Client{
		conn:     conn,
		pongs:    map[int64]chan int{},
		readDone: make(chan struct{}),
	}
	opts := &dispatcher.Options[envelope]{
		Buffer: buffer.Options{
			// The websocket conn tolerates one writer at a time.
			MaxLeases:     1,
			BatchItemsMax: 64,
			BatchAgeMax:   time.Second,
			FullBehavior:  &buffer.DropOldestBatch{MaxLiveItems: 4096},
		},
		ErrorFn: func(b *buffer.Batch[envelope], err error) bool {
			logging.Warningf(ctx, "build monitor: dropping %d notification(s): %s", len(b.Data), err)
			return false
		},
	}
	c.ch, err = dispatcher.NewChannel[envelope](ctx, opts, func(b *buffer.Batch[envelope]) error {
		for _, d := range b.Data {
			if err := conn.WriteJSON(d.Item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = conn.Close()
		return nil, errors.Annotate(err, "creating monitor send channel").Err()
	}
	go c.readLoop()
	return c, nil
}

// readLoop consumes pongs until the connection dies.
func (c *Client) readLoop() {
	defer close(c.readDone)
	for {
		var env envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return
		}
		if env.Kind != kindPong {
			continue
		}
		c.mu.Lock()
		waiter := c.pongs[env.Seq]
		delete(c.pongs, env.Seq)
		c.mu.Unlock()
		if waiter != nil {
			waiter <- env.Value
		}
	}
}

// send enqueues a one-way envelope, never blocking the caller beyond the
// channel's drop policy.
func (c *Client) send(env envelope) {
	c.ch.C <- env
}

// Close drains pending notifications and tears the connection down.
func (c *Client) Close(ctx context.Context) {
	c.ch.CloseAndDrain(ctx)
	_ = c.conn.Close()
	select {
	case <-c.readDone:
	case <-ctx.Done():
	}
}

// Ping implements BuildMonitor. It is the protocol's only two-way call.
func (c *Client) Ping(ctx context.Context, value int) (int, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultPingTimeout)
		defer cancel()
	}
	seq := c.seq.Add(1)
	waiter := make(chan int, 1)
	c.mu.Lock()
	c.pongs[seq] = waiter
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pongs, seq)
		c.mu.Unlock()
	}()

	c.send(envelope{Kind: kindPing, Seq: seq, Value: value})

	select {
	case got := <-waiter:
		return got, nil
	case <-c.readDone:
		return 0, errors.Reason("build monitor connection closed").Err()
	case <-ctx.Done():
		return 0, errors.Annotate(ctx.Err(), "waiting for monitor pong").Err()
	}
}

// StartBuild implements BuildMonitor.
func (c *Client) StartBuild(buildId string, startTime time.Time) {
	c.send(envelope{Kind: kindStartBuild, BuildId: buildId, StartTime: startTime})
}

// EndBuild implements BuildMonitor.
func (c *Client) EndBuild(buildId string, endTime time.Time) {
	c.send(envelope{Kind: kindEndBuild, BuildId: buildId, EndTime: endTime})
}

// SendBuildStepInfo implements BuildMonitor.
func (c *Client) SendBuildStepInfo(buildId string, executionId int64, description string, startTime time.Time) {
	c.send(envelope{
		Kind:        kindBuildStepInfo,
		BuildId:     buildId,
		ExecutionId: executionId,
		Description: description,
		StartTime:   startTime,
	})
}

// SendCommandLog implements BuildMonitor.
func (c *Client) SendCommandLog(buildId string, startTime time.Time, microthreadId int64, messages []LogMessage) {
	c.send(envelope{
		Kind:          kindCommandLog,
		BuildId:       buildId,
		StartTime:     startTime,
		MicrothreadId: microthreadId,
		Messages:      messages,
	})
}

// SendMicrothreadEvents implements BuildMonitor.
func (c *Client) SendMicrothreadEvents(buildId string, startTime, now time.Time, notifications []MicrothreadNotification) {
	c.send(envelope{
		Kind:          kindMicrothreadEvents,
		BuildId:       buildId,
		StartTime:     startTime,
		Now:           now,
		Notifications: notifications,
	})
}

// SendBuildStepResult implements BuildMonitor.
func (c *Client) SendBuildStepResult(buildId string, startTime time.Time, microthreadId int64, status string) {
	c.send(envelope{
		Kind:          kindBuildStepResult,
		BuildId:       buildId,
		StartTime:     startTime,
		MicrothreadId: microthreadId,
		Status:        status,
	})
}
