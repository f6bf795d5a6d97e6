package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"teslabooking/internal/queue"
)

const (
	DefaultWorkerCount  = 2
	DefaultBatchSize    = 10
	DefaultBlockTimeout = 5 * time.Second
)

// Manager runs worker goroutines that consume the booking stream.
type Manager struct {
	consumer    queue.Consumer
	handler     *Handler
	workerCount int
	batchSize   int64
	blockTime   time.Duration
	logger      *slog.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// ManagerConfig holds configuration for the worker manager.
type ManagerConfig struct {
	WorkerCount  int
	BatchSize    int64
	BlockTimeout time.Duration
}

func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		WorkerCount:  DefaultWorkerCount,
		BatchSize:    DefaultBatchSize,
		BlockTimeout: DefaultBlockTimeout,
	}
}

func NewManager(consumer queue.Consumer, handler *Handler, cfg ManagerConfig) *Manager {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultWorkerCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = DefaultBlockTimeout
	}

	return &Manager{
		consumer:    consumer,
		handler:     handler,
		workerCount: cfg.WorkerCount,
		batchSize:   cfg.BatchSize,
		blockTime:   cfg.BlockTimeout,
		logger:      slog.Default().With("component", "worker"),
	}
}

// Start ensures the consumer group exists and launches the workers. Call
// Stop to shut them down.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	if err := m.consumer.EnsureGroup(m.ctx, queue.StreamBookings, queue.ConsumerGroupBookings); err != nil {
		m.cancel()
		return err
	}

	for i := 1; i <= m.workerCount; i++ {
		m.wg.Add(1)
		go m.runWorker(i, consumerNameForWorker(i))
	}

	m.logger.Info("workers started", "count", m.workerCount,
		"stream", queue.StreamBookings, "group", queue.ConsumerGroupBookings)
	return nil
}

// Stop cancels the workers and waits for them to return.
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.wg.Wait()
	m.logger.Info("workers stopped")
}

func (m *Manager) runWorker(workerID int, consumerName string) {
	defer m.wg.Done()
	log := m.logger.With("worker", workerID)

	// Messages delivered before a crash are replayed first.
	m.processPending(log, consumerName)

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
			m.processMessages(log, consumerName)
		}
	}
}

func (m *Manager) processPending(log *slog.Logger, consumerName string) {
	for {
		messages, err := m.consumer.ReadPending(m.ctx, queue.StreamBookings, queue.ConsumerGroupBookings, consumerName, m.batchSize)
		if err != nil {
			log.Warn("read pending failed", "error", err)
			return
		}
		if len(messages) == 0 {
			return
		}
		log.Info("replaying pending messages", "count", len(messages))
		if acked := m.handleMessages(log, messages); acked == 0 {
			// The same batch would come back on the next read.
			log.Warn("no pending message acked, leaving replay", "count", len(messages))
			return
		}
	}
}

func (m *Manager) processMessages(log *slog.Logger, consumerName string) {
	messages, err := m.consumer.Read(m.ctx, queue.StreamBookings, queue.ConsumerGroupBookings,
		consumerName, m.batchSize, m.blockTime)
	if err != nil {
		if m.ctx.Err() != nil {
			return
		}
		log.Warn("read failed", "error", err)
		select {
		case <-m.ctx.Done():
		case <-time.After(time.Second):
		}
		return
	}

	m.handleMessages(log, messages)
}

// handleMessages acks every message, failed or not, so a poison event is
// not retried forever. It returns how many acks succeeded.
func (m *Manager) handleMessages(log *slog.Logger, messages []queue.Message) int {
	acked := 0
	for _, msg := range messages {
		if err := m.handler.HandleEvent(m.ctx, msg.Event); err != nil {
			log.Warn("handle event failed", "msg_id", msg.ID, "type", msg.Event.Type, "error", err)
		}
		if err := m.consumer.Ack(m.ctx, queue.StreamBookings, queue.ConsumerGroupBookings, msg.ID); err != nil {
			log.Warn("ack failed", "msg_id", msg.ID, "error", err)
			continue
		}
		acked++
	}
	return acked
}

func consumerNameForWorker(workerID int) string {
	return fmt.Sprintf("worker-%d", workerID)
}
