// Central logging system. Buffers messages and writes to configured outputs
package logctx

import (
	"context"
	"devlogd/internal/global"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Logger Constructor.
// Embeds logger in returned context using provided context as base.
//
// logLevel is one of the global.Verbosity* values
func New(baseCtx context.Context, id string, logLevel int, done <-chan struct{}) (ctxLogger context.Context) {
	logger := &Logger{
		ID:         id,
		CreatedAt:  time.Now(),
		queue:      make([]Event, 0),
		Done:       done,
		PrintLevel: logLevel,
		wg:         &sync.WaitGroup{},
	}
	logger.cond = sync.NewCond(&logger.mutex)

	ctxLogger = WithLogger(baseCtx, logger)
	return
}

// Attach an existing logger to context
func WithLogger(ctx context.Context, logger *Logger) (ctxLogger context.Context) {
	ctxLogger = context.WithValue(ctx, global.LoggerKey, logger)
	return
}

// Change the logger's level
func SetLogLevel(ctx context.Context, newLevel int) {
	logger := GetLogger(ctx)
	if logger == nil {
		return
	}
	logger.mutex.Lock()
	defer logger.mutex.Unlock()
	logger.PrintLevel = newLevel
}

// Extracts Logger from context or returns nil
func GetLogger(ctx context.Context) (logger *Logger) {
	logger, ok := ctx.Value(global.LoggerKey).(*Logger)
	if !ok {
		logger = nil
	}
	return
}

// Hold main thread exit until logger is finished its work
func (logger *Logger) Wait() {
	logger.wg.Wait()
}

// Wake signals/broadcasts to any goroutines waiting on the condition variable
func (logger *Logger) Wake() {
	logger.mutex.Lock()
	defer logger.mutex.Unlock()
	logger.cond.Broadcast()
}

// Number of events not yet consumed by a watcher
func (logger *Logger) Pending() (count int) {
	logger.mutex.Lock()
	defer logger.mutex.Unlock()
	count = len(logger.queue)
	return
}

// Entry for logging events
func LogEvent(ctx context.Context, eventLevel int, severity string, message string, vars ...any) {
	logger := GetLogger(ctx)
	if logger == nil {
		return
	}

	newMsg := message
	// Skip formatting when there is nothing to substitute
	if len(vars) > 0 && strings.Contains(message, "%") {
		newMsg = fmt.Sprintf(message, vars...)
	}
	logger.log(eventLevel, severity, GetTagList(ctx), newMsg)
}

// Queues event if its level passes the current print level (errors always pass)
func (logger *Logger) log(eventLevel int, eventSeverity string, tags []string, fullMessage string) {
	logger.mutex.Lock()
	defer logger.mutex.Unlock()

	if eventLevel > logger.PrintLevel && eventSeverity != global.ErrorLog {
		return
	}

	logger.queue = append(logger.queue, Event{
		Timestamp: time.Now(),
		Tags:      tags,
		Severity:  eventSeverity,
		Message:   fullMessage,
	})
	logger.cond.Signal() // Notify watcher that new event is available
}
