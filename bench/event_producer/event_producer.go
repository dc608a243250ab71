package main

import (
	"context"
	"flag"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	appkafka "example.com/tweetfeed/internal/broker"
	"example.com/tweetfeed/internal/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// eventFor builds the i-th synthetic event. Every tenth event is a delete so
// the worker exercises the reply sweep.
func eventFor(i int, userID string) models.Event {
	e := models.Event{
		ID:      uuid.NewString(),
		TweetID: uuid.NewString(),
		UserID:  userID,
		At:      time.Now().UTC(),
	}
	switch i % 10 {
	case 0:
		e.Type = models.EventTweetDeleted
	case 1, 2, 3:
		e.Type = models.EventTweetLiked
	case 4:
		e.Type = models.EventTweetRetweeted
	default:
		e.Type = models.EventTweetCreated
	}
	return e
}

func main() {
	var (
		total      int
		batchSize  int
		numWorkers int
		broker     string
		topic      string
	)
	flag.IntVar(&total, "n", 100000, "total number of events to send")
	flag.IntVar(&batchSize, "batch", 100, "batch size for sending events")
	flag.IntVar(&numWorkers, "c", 4, "number of parallel goroutines")
	flag.StringVar(&broker, "broker", "localhost:9092", "Kafka broker")
	flag.StringVar(&topic, "topic", "tweet-events", "Kafka topic")
	flag.Parse()

	// Kafka writer with asynchronous sending enabled
	w := &kafka.Writer{
		Addr:     kafka.TCP(broker),
		Topic:    topic,
		Balancer: &kafka.Hash{},
		Async:    true,
	}
	defer w.Close()

	userID := uuid.NewString()
	start := time.Now()

	var successCount uint64
	var failCount uint64

	// Channel for feeding event indexes to worker goroutines
	jobs := make(chan int, numWorkers*batchSize)
	var wg sync.WaitGroup

	flush := func(batch []kafka.Message) {
		if err := w.WriteMessages(context.Background(), batch...); err != nil {
			atomic.AddUint64(&failCount, uint64(len(batch)))
			fmt.Printf("write error: %v\n", err)
			return
		}
		atomic.AddUint64(&successCount, uint64(len(batch)))
	}

	// --- Start worker goroutines ---
	for wID := 0; wID < numWorkers; wID++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			batch := make([]kafka.Message, 0, batchSize)

			for i := range jobs {
				msg, err := appkafka.EncodeEvent(eventFor(i, userID))
				if err != nil {
					atomic.AddUint64(&failCount, 1)
					fmt.Printf("encode error: %v\n", err)
					continue
				}
				batch = append(batch, msg)

				if len(batch) >= batchSize {
					flush(batch)
					batch = batch[:0]
				}
			}

			// Send any remaining events after finishing loop
			if len(batch) > 0 {
				flush(batch)
			}
		}()
	}

	for i := 0; i < total; i++ {
		jobs <- i
	}
	close(jobs)

	wg.Wait()

	// --- Benchmark results ---
	elapsed := time.Since(start)
	fmt.Printf("Total events: %d\n", total)
	fmt.Printf("Successful: %d, Failed: %d\n", successCount, failCount)
	fmt.Printf("Elapsed time: %s\n", elapsed)
	fmt.Printf("Throughput: %.2f msg/s\n", float64(successCount)/elapsed.Seconds())
}
