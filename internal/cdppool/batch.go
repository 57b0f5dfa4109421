package cdppool

import (
	"context"
	"sync"
	"time"

	"github.com/riptide-engine/riptide/internal/models"
)

// batchedCommand is one queued CDP call awaiting flush.
type batchedCommand struct {
	method string
	params interface{}
	result interface{}
	done   chan error
}

// CommandResult is one command's outcome inside a BatchResult.
type CommandResult struct {
	Method  string
	Success bool
	Err     error
}

// BatchResult aggregates per-command success/failure for one flush (spec
// §4.6 batch_execute: "aggregates per-command success/failure").
type BatchResult struct {
	Results   []CommandResult
	Succeeded int
	Failed    int
}

// BatchCommand enqueues a command against a connection's per-browser queue.
// It only enqueues: queued commands run when BatchExecute is called, either
// directly or by the periodic flusher StartBatchFlusher launches every
// BatchTimeout. A queue reaching MaxBatchSize does not trigger a flush.
func (c *PooledConnection) BatchCommand(method string, params, result interface{}) <-chan error {
	done := make(chan error, 1)
	c.mu.Lock()
	c.batch = append(c.batch, batchedCommand{method: method, params: params, result: result, done: done})
	c.mu.Unlock()
	return done
}

// takeBatch atomically removes and returns up to max pending commands
// (all of them when max <= 0), releasing the
// connection's metadata lock before execution so further enqueues may
// proceed in parallel (spec §4.6 invariant).
func (c *PooledConnection) takeBatch(max int) []batchedCommand {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.batch) == 0 {
		return nil
	}
	n := len(c.batch)
	if max > 0 && n > max {
		n = max
	}
	taken := c.batch[:n]
	c.batch = c.batch[n:]
	return taken
}

// BatchExecute executes pending batched commands for conn with per-command
// timeouts, returning an aggregated BatchResult.
func (p *Pool) BatchExecute(ctx context.Context, conn *PooledConnection, perCommandTimeout time.Duration) (*BatchResult, error) {
	cmds := conn.takeBatch(p.cfg.MaxBatchSize)
	if len(cmds) == 0 {
		return &BatchResult{}, nil
	}

	result := &BatchResult{Results: make([]CommandResult, 0, len(cmds))}
	for _, cmd := range cmds {
		cmdCtx, cancel := context.WithTimeout(ctx, perCommandTimeout)
		err := conn.Session.Execute(cmdCtx, cmd.method, cmd.params, cmd.result)
		cancel()

		cmd.done <- err
		close(cmd.done)

		if err != nil {
			result.Failed++
			conn.Stats.FailedCommands++
		} else {
			result.Succeeded++
		}
		conn.Stats.TotalCommands++
		conn.Stats.BatchedCommands++
		result.Results = append(result.Results, CommandResult{Method: cmd.method, Success: err == nil, Err: err})
	}
	conn.LastUsed = time.Now()

	if result.Failed > 0 && result.Succeeded == 0 {
		return result, models.NewError(models.KindDependency, "all batched cdp commands failed", nil)
	}
	return result, nil
}

// StartBatchFlusher periodically flushes every connection's batch queue
// across all browsers every BatchTimeout until ctx is cancelled. This
// ticker is the only automatic flush; no flush is triggered by queue size.
func (p *Pool) StartBatchFlusher(ctx context.Context) {
	if !p.cfg.EnableBatching {
		return
	}
	ticker := time.NewTicker(p.cfg.BatchTimeout)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.flushAll(ctx)
			}
		}
	}()
}

func (p *Pool) flushAll(ctx context.Context) {
	p.mu.Lock()
	var conns []*PooledConnection
	for _, cs := range p.byBrowser {
		conns = append(conns, cs...)
	}
	p.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range conns {
		c := c
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.BatchExecute(ctx, c, 5*time.Second)
		}()
	}
	wg.Wait()
}
