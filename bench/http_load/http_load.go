package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"example.com/tweetfeed/bench/apiclient"
)

func main() {
	// --- Command-line flags ---
	var server string
	var duration int
	var concurrency int
	var csvFile string
	var likeRatio float64
	var insecure bool

	flag.StringVar(&server, "server", "http://localhost:5000", "server base URL")
	flag.IntVar(&duration, "duration", 30, "duration in seconds")
	flag.IntVar(&concurrency, "c", 50, "number of concurrent goroutines / users")
	flag.StringVar(&csvFile, "csv", "latencies.csv", "CSV file to save latencies")
	flag.Float64Var(&likeRatio, "likes", 0.5, "fraction of requests that like an existing tweet")
	flag.BoolVar(&insecure, "insecure", false, "skip TLS verification")
	flag.Parse()

	ctx := context.Background()
	client := apiclient.New(server, insecure)

	// --- Create users for each goroutine ---
	fmt.Printf("Creating %d users...\n", concurrency)
	run := time.Now().UnixNano()
	users := make([]apiclient.Session, concurrency)
	for i := range users {
		s, err := client.Signup(ctx, fmt.Sprintf("load%d_%d", run, i))
		if err != nil {
			fmt.Printf("signup failed: %v\n", err)
			os.Exit(1)
		}
		users[i] = s
	}
	fmt.Println("Users created.")

	// tweets created so far, shared for likes
	var tweetsMu sync.Mutex
	var tweetIDs []string

	stopTime := time.Now().Add(time.Duration(duration) * time.Second)
	var wg sync.WaitGroup

	// Atomic counters for thread-safe tracking
	var requests, successes, errors4xx, errors5xx int64

	latencySlices := make([][]float64, concurrency) // each goroutine records latencies

	// --- Start concurrent goroutines for load test ---
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			user := users[idx]
			rng := rand.New(rand.NewSource(int64(idx) + run))
			var local []float64

			for time.Now().Before(stopTime) {
				start := time.Now()
				var status int
				var err error

				tweetsMu.Lock()
				n := len(tweetIDs)
				var target string
				if n > 0 {
					target = tweetIDs[rng.Intn(n)]
				}
				tweetsMu.Unlock()

				if target != "" && rng.Float64() < likeRatio {
					status, err = client.Do(ctx, http.MethodPost, "/api/tweet/"+target+"/like", user.Token, nil, nil)
				} else {
					var id string
					id, status, err = client.CreateTweet(ctx, user, fmt.Sprintf("load test tweet %d", time.Now().UnixNano()))
					if err == nil && id != "" {
						tweetsMu.Lock()
						tweetIDs = append(tweetIDs, id)
						tweetsMu.Unlock()
					}
				}

				local = append(local, time.Since(start).Seconds()*1000)
				atomic.AddInt64(&requests, 1)

				if err != nil {
					fmt.Printf("Request error: %v\n", err)
					continue
				}

				// Count success/failure by status code
				switch {
				case status >= 200 && status < 300:
					atomic.AddInt64(&successes, 1)
				case status >= 400 && status < 500:
					atomic.AddInt64(&errors4xx, 1)
				case status >= 500:
					atomic.AddInt64(&errors5xx, 1)
				}
			}

			latencySlices[idx] = local
		}(i)
	}

	wg.Wait()

	// --- Merge all latencies ---
	var all []float64
	for _, slice := range latencySlices {
		all = append(all, slice...)
	}

	fmt.Printf("Requests: %d  Successes: %d  4xx: %d  5xx: %d\n", requests, successes, errors4xx, errors5xx)
	apiclient.Summary("Latency", all)

	if err := apiclient.WriteCSV(csvFile, all); err != nil {
		fmt.Printf("Failed to write CSV file: %v\n", err)
		return
	}
	fmt.Printf("Saved latencies to %s\n", csvFile)
}
