package worker

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"strconv"
	"sync"
	"time"

	appkafka "example.com/tweetfeed/internal/broker"
	"example.com/tweetfeed/internal/logger"
	"example.com/tweetfeed/internal/metrics"
	"example.com/tweetfeed/internal/models"
	"example.com/tweetfeed/internal/store"
	"github.com/segmentio/kafka-go"
)

var logg = logger.New()

const handleAttempts = 3

// ImageRemover deletes stored images by their public URL.
type ImageRemover interface {
	RemoveURL(url string) error
}

// Worker consumes domain events and repeats the integrity fix-ups of
// deleted tweets: reply references are swept again and images removed.
type Worker struct {
	store        store.StoreInterface
	images       ImageRemover
	reader       appkafka.KafkaReader
	workerCount  int
	jobQueueSize int
}

// New creates a new concurrent Worker using pre-initialized dependencies.
func New(st store.StoreInterface, images ImageRemover, reader appkafka.KafkaReader, workerCount, jobQueueSize int) *Worker {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if jobQueueSize <= 0 {
		jobQueueSize = workerCount * 10
	}
	return &Worker{
		store:        st,
		images:       images,
		reader:       reader,
		workerCount:  workerCount,
		jobQueueSize: jobQueueSize,
	}
}

// Run starts message reading and concurrent processing.
func (w *Worker) Run(ctx context.Context) {
	if w.workerCount <= 0 {
		w.workerCount = 1
	}
	if w.jobQueueSize <= 0 {
		w.jobQueueSize = 10
	}

	logg.Info("worker", "Starting "+strconv.Itoa(w.workerCount)+" workers with queue size "+strconv.Itoa(w.jobQueueSize))

	jobs := make(chan kafka.Message, w.jobQueueSize)
	var wg sync.WaitGroup

	for i := 0; i < w.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.processLoop(ctx, jobs)
		}()
	}

	w.readLoop(ctx, jobs)

	close(jobs)
	wg.Wait()
	logg.Info("worker", "All workers stopped gracefully")
}

// readLoop reads Kafka messages and pushes them into a job queue.
func (w *Worker) readLoop(ctx context.Context, jobs chan<- kafka.Message) {
	var retry int
	for {
		select {
		case <-ctx.Done():
			return
		default:
			msg, err := w.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logg.Error("worker", "Kafka read error, backing off", err)
				if !waitWithContext(ctx, backoff(retry)) {
					return
				}
				retry++
				continue
			}
			retry = 0

			if len(msg.Value) == 0 {
				if !waitWithContext(ctx, 50*time.Millisecond) {
					return
				}
				continue
			}

			for enqueued := false; !enqueued; {
				select {
				case jobs <- msg:
					enqueued = true
				case <-ctx.Done():
					return
				case <-time.After(100 * time.Millisecond):
					logg.Info("worker", "Queue full, waiting to enqueue Kafka message")
				}
			}
		}
	}
}

// processLoop decodes and handles queued messages.
func (w *Worker) processLoop(ctx context.Context, jobs <-chan kafka.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.processMessage(ctx, msg); err != nil {
				logg.Error("worker", "Failed to process event", err)
			}
		}
	}
}

// processMessage handles one event, retrying transient failures.
func (w *Worker) processMessage(ctx context.Context, msg kafka.Message) error {
	e, err := appkafka.DecodeEvent(msg)
	if err != nil {
		metrics.WorkerEventsProcessed.WithLabelValues("invalid", metrics.ResultError).Inc()
		return err
	}

	for attempt := 0; ; attempt++ {
		err = w.handle(ctx, e)
		if err == nil || attempt+1 >= handleAttempts {
			break
		}
		if !waitWithContext(ctx, backoff(attempt)) {
			break
		}
	}
	metrics.WorkerEventsProcessed.WithLabelValues(string(e.Type), metrics.Result(err)).Inc()
	if err != nil {
		return fmt.Errorf("%s %s: %w", e.Type, e.TweetID, err)
	}
	return nil
}

func (w *Worker) handle(ctx context.Context, e models.Event) error {
	switch e.Type {
	case models.EventTweetDeleted:
		changed, err := w.store.PullReplyReferences(ctx, e.TweetID)
		if err != nil {
			return err
		}
		if changed > 0 {
			logg.Info("worker", "Removed "+strconv.Itoa(changed)+" dangling reply references")
		}
		if e.Image != "" && w.images != nil {
			if err := w.images.RemoveURL(e.Image); err != nil {
				return err
			}
		}
		return nil
	default:
		logg.Debug("worker", "Observed "+string(e.Type)+" event")
		return nil
	}
}

func backoff(retry int) time.Duration {
	return time.Duration(math.Min(1000, math.Pow(2, float64(retry)))) * time.Millisecond
}

// waitWithContext waits for duration or context cancellation.
func waitWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Close shuts down the Kafka reader and the store.
func (w *Worker) Close() error {
	logg.Info("worker", "Closing Kafka reader")
	if err := w.reader.Close(); err != nil {
		logg.Error("worker", "Error closing Kafka reader", err)
		return err
	}

	logg.Info("worker", "Closing store")
	w.store.Close()
	return nil
}
