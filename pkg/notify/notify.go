package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"jobboard-hq/custodian/pkg/retention"
)

// Type tags a notification so that downstream templates and email
// preferences can apply.
type Type string

const (
	// TypeApplicationDeletionWarning announces the deletion of an
	// application's personal data.
	TypeApplicationDeletionWarning Type = "APPLICATION_DATA_DELETION_WARNING"
	// TypeAccountDeletionWarning announces the deletion of an inactive account.
	TypeAccountDeletionWarning Type = "ACCOUNT_DELETION_WARNING"
)

// Recipient is the addressee of a notification.
type Recipient struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
}

// Notification is one outbound message.
type Notification struct {
	Type         Type                  `json:"type"`
	Recipient    Recipient             `json:"recipient"`
	Language     string                `json:"language"`
	SubjectKind  retention.SubjectKind `json:"subject_kind"`
	SubjectID    string                `json:"subject_id"`
	DeletionDate time.Time             `json:"deletion_date"`
}

// Sender hands notifications off for delivery. SendAsync never blocks on
// delivery and never reports delivery errors.
type Sender interface {
	SendAsync(ctx context.Context, n Notification)
}

// Transport delivers one notification synchronously.
type Transport interface {
	Name() string
	Deliver(ctx context.Context, n Notification) error
	Close() error
}

// Recorder counts delivery results.
type Recorder interface {
	RecordNotification(notificationType, result string)
}

// Delivery results passed to Recorder.
const (
	ResultSent    = "sent"
	ResultFailed  = "failed"
	ResultDropped = "dropped"
)

// ErrClosed is returned by Close on a sender that is already closed.
var ErrClosed = errors.New("notify: sender closed")

// AsyncConfig configures an AsyncSender.
type AsyncConfig struct {
	// QueueSize bounds the pending notifications. Default: 1000
	QueueSize int

	// Workers is the number of delivery goroutines. Default: 2
	Workers int

	// DeliveryTimeout bounds one Deliver call. Default: 30 seconds
	DeliveryTimeout time.Duration

	// Recorder receives delivery results. Optional.
	Recorder Recorder
}

// AsyncSender queues notifications to a bounded channel drained by a fixed
// set of workers. A full queue drops the notification.
type AsyncSender struct {
	transport Transport
	queue     chan Notification
	timeout   time.Duration
	recorder  Recorder
	logger    *slog.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	closed   atomic.Bool
	mu       sync.RWMutex

	sent    atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// NewAsyncSender starts the workers.
func NewAsyncSender(transport Transport, cfg AsyncConfig) *AsyncSender {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 30 * time.Second
	}

	s := &AsyncSender{
		transport: transport,
		queue:     make(chan Notification, cfg.QueueSize),
		timeout:   cfg.DeliveryTimeout,
		recorder:  cfg.Recorder,
		logger:    slog.Default().With("component", "notify.sender", "transport", transport.Name()),
	}

	s.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go s.work()
	}
	return s
}

// SendAsync implements Sender.
func (s *AsyncSender) SendAsync(ctx context.Context, n Notification) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed.Load() {
		s.drop(n, "sender closed")
		return
	}

	select {
	case s.queue <- n:
	default:
		s.drop(n, "queue full")
	}
}

func (s *AsyncSender) drop(n Notification, why string) {
	s.dropped.Add(1)
	s.record(n, ResultDropped)
	s.logger.Warn("notification dropped",
		"reason", why,
		"type", n.Type,
		"subject_id", n.SubjectID,
	)
}

func (s *AsyncSender) work() {
	defer s.wg.Done()
	for n := range s.queue {
		s.deliver(n)
	}
}

func (s *AsyncSender) deliver(n Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.transport.Deliver(ctx, n); err != nil {
		s.failed.Add(1)
		s.record(n, ResultFailed)
		err = retention.NewNotificationError(string(n.Type), n.Recipient.Email, err)
		s.logger.Error("notification delivery failed",
			"type", n.Type,
			"subject_id", n.SubjectID,
			"error", err,
		)
		return
	}

	s.sent.Add(1)
	s.record(n, ResultSent)
	s.logger.Debug("notification delivered", "type", n.Type, "subject_id", n.SubjectID)
}

func (s *AsyncSender) record(n Notification, result string) {
	if s.recorder != nil {
		s.recorder.RecordNotification(string(n.Type), result)
	}
}

// Stats returns the number of sent, failed and dropped notifications.
func (s *AsyncSender) Stats() (sent, failed, dropped int64) {
	return s.sent.Load(), s.failed.Load(), s.dropped.Load()
}

// Pending returns the number of queued notifications.
func (s *AsyncSender) Pending() int {
	return len(s.queue)
}

// Close stops accepting notifications, drains the queue and closes the
// transport. It gives up waiting when ctx is done.
func (s *AsyncSender) Close(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.closed.Store(true)
		close(s.queue)
		s.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.transport.Close()
}
