/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/event"
)

// slowQueryHook reports bun queries slower than slowTime through the logger.
type slowQueryHook struct {
	slowTime time.Duration
	logger   Logger
}

var _ bun.QueryHook = (*slowQueryHook)(nil)

func (h *slowQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *slowQueryHook) AfterQuery(_ context.Context, e *bun.QueryEvent) {
	if e.Err != nil && !errors.Is(e.Err, sql.ErrNoRows) {
		h.logger.Debug("Query failed", "operation", e.Operation(), "error", e.Err)
		return
	}
	if d := time.Since(e.StartTime); d > h.slowTime {
		h.logger.Warn("Slow query", "operation", e.Operation(), "duration", d.Round(time.Microsecond), "query", e.Query)
	}
}

var (
	opSelect = color.New(color.FgGreen)
	opInsert = color.New(color.FgBlue)
	opUpdate = color.New(color.FgYellow)
	opDelete = color.New(color.FgMagenta)
	opOther  = color.New(color.FgCyan)
	opFailed = color.New(color.BgRed, color.FgWhite)
)

func commandColor(name string) *color.Color {
	switch name {
	case "find", "aggregate", "count", "getMore":
		return opSelect
	case "insert":
		return opInsert
	case "update", "findAndModify":
		return opUpdate
	case "delete":
		return opDelete
	default:
		return opOther
	}
}

// commandMonitor is the MongoDB counterpart of the bun hooks: it traces
// commands when trace is set and logs slow or failed ones.
type commandMonitor struct {
	trace    bool
	slowTime time.Duration
	logger   Logger
	writer   io.Writer

	mu       sync.Mutex
	commands map[int64]string
}

func newCommandMonitor(cfg *ConnectionConfig, logger Logger) *commandMonitor {
	return &commandMonitor{
		trace:    cfg.EnableQueryLog,
		slowTime: cfg.SlowQueryTime,
		logger:   logger,
		writer:   os.Stderr,
		commands: make(map[int64]string),
	}
}

func (m *commandMonitor) Monitor() *event.CommandMonitor {
	return &event.CommandMonitor{
		Started:   m.started,
		Succeeded: m.succeeded,
		Failed:    m.failed,
	}
}

func (m *commandMonitor) started(_ context.Context, e *event.CommandStartedEvent) {
	if !m.trace {
		return
	}
	m.mu.Lock()
	m.commands[e.RequestID] = e.Command.String()
	m.mu.Unlock()
}

func (m *commandMonitor) take(id int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := m.commands[id]
	delete(m.commands, id)
	return cmd
}

func (m *commandMonitor) succeeded(_ context.Context, e *event.CommandSucceededEvent) {
	cmd := m.take(e.RequestID)
	if m.trace {
		m.print(e.CommandName, e.DatabaseName, e.Duration, cmd, "")
	}
	if m.slowTime > 0 && e.Duration > m.slowTime {
		m.logger.Warn("Slow command", "command", e.CommandName, "database", e.DatabaseName, "duration", e.Duration.Round(time.Microsecond))
	}
}

func (m *commandMonitor) failed(_ context.Context, e *event.CommandFailedEvent) {
	cmd := m.take(e.RequestID)
	if m.trace {
		m.print(e.CommandName, e.DatabaseName, e.Duration, cmd, e.Failure)
	}
	m.logger.Debug("Command failed", "command", e.CommandName, "database", e.DatabaseName, "error", e.Failure)
}

func (m *commandMonitor) print(name, db string, d time.Duration, cmd, failure string) {
	line := fmt.Sprintf("%s %15s %17s  %s",
		time.Now().Format("2006-01-02 15:04:05.000"),
		"[MONGO]",
		d.Round(time.Microsecond),
		commandColor(name).Sprintf("%s.%s %s", db, name, cmd),
	)
	if failure != "" {
		line += "\t" + opFailed.Sprintf(" %s ", failure)
	}
	_, _ = fmt.Fprintln(m.writer, line)
}
