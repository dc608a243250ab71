package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"

	"example.com/tweetfeed/bench/apiclient"
)

// tweetView is the subset of a populated tweet the checks need.
type tweetView struct {
	ID      string `json:"_id"`
	Replies []struct {
		ID string `json:"_id"`
	} `json:"replies"`
}

type userView struct {
	User struct {
		Followers []string `json:"followers"`
	} `json:"user"`
}

// e2e_bench drives a full scenario (users, follows, tweets, replies,
// deletes) and then verifies from the outside that no tweet references a
// deleted reply and that follower sets match the follows issued.
func main() {
	var serverAddr string
	var U, F, P, concurrency int
	var deleteRatio float64
	var insecure bool

	flag.StringVar(&serverAddr, "server", "http://localhost:5000", "server base URL")
	flag.IntVar(&U, "users", 50, "number of users to create")
	flag.IntVar(&F, "follows", 10, "average follows per user")
	flag.IntVar(&P, "tweets", 100, "number of tweets to publish")
	flag.IntVar(&concurrency, "c", 20, "concurrency for tweeting")
	flag.Float64Var(&deleteRatio, "deletes", 0.3, "fraction of replies deleted again")
	flag.BoolVar(&insecure, "insecure", false, "skip TLS verification")
	flag.Parse()

	ctx := context.Background()
	client := apiclient.New(serverAddr, insecure)

	// --- 1) Create users ---
	fmt.Printf("Creating %d users...\n", U)
	run := time.Now().UnixNano()
	users := make([]apiclient.Session, 0, U)
	for i := 0; i < U; i++ {
		s, err := client.Signup(ctx, fmt.Sprintf("e2e%d_%d", run, i))
		if err != nil {
			fmt.Printf("create user error: %v\n", err)
			os.Exit(1)
		}
		users = append(users, s)
	}

	// --- 2) Create follow relationships between users ---
	fmt.Printf("Creating follows (~%d per user)...\n", F)
	expectedFollowers := make(map[string]map[string]bool)
	var followLat []float64
	for _, u := range users {
		for j := 0; j < F; j++ {
			target := users[rand.Intn(len(users))]
			if target.UserID == u.UserID {
				continue
			}
			start := time.Now()
			status, err := client.Do(ctx, http.MethodPost, "/api/user/"+target.UserID+"/follow", u.Token, nil, nil)
			if err != nil || status != http.StatusOK {
				fmt.Printf("follow error: status=%d err=%v\n", status, err)
				os.Exit(1)
			}
			followLat = append(followLat, time.Since(start).Seconds()*1000)
			if expectedFollowers[target.UserID] == nil {
				expectedFollowers[target.UserID] = map[string]bool{}
			}
			expectedFollowers[target.UserID][u.UserID] = true
		}
	}

	// --- 3) Publish tweets and replies concurrently ---
	fmt.Printf("Publishing %d tweets with concurrency %d...\n", P, concurrency)
	var mu sync.Mutex
	var tweetLat, replyLat, deleteLat []float64
	var parents []string
	deleted := map[string]bool{}

	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency) // concurrency limiter
	for i := 0; i < P; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			author := users[rand.Intn(len(users))]
			start := time.Now()
			id, status, err := client.CreateTweet(ctx, author, fmt.Sprintf("tweet %d", i))
			if err != nil || status != http.StatusCreated {
				fmt.Printf("tweet error: status=%d err=%v\n", status, err)
				return
			}
			elapsed := time.Since(start).Seconds() * 1000

			replier := users[rand.Intn(len(users))]
			var reply struct {
				ReplyID string `json:"replyId"`
			}
			start = time.Now()
			status, err = client.Do(ctx, http.MethodPost, "/api/tweet/"+id+"/reply", replier.Token, map[string]string{"content": "re"}, &reply)
			if err != nil || status != http.StatusCreated {
				fmt.Printf("reply error: status=%d err=%v\n", status, err)
				return
			}
			replyElapsed := time.Since(start).Seconds() * 1000

			var delElapsed float64
			removed := rand.Float64() < deleteRatio
			if removed {
				start = time.Now()
				status, err = client.Do(ctx, http.MethodDelete, "/api/tweet/"+reply.ReplyID, replier.Token, nil, nil)
				if err != nil || status != http.StatusOK {
					fmt.Printf("delete error: status=%d err=%v\n", status, err)
					removed = false
				}
				delElapsed = time.Since(start).Seconds() * 1000
			}

			mu.Lock()
			defer mu.Unlock()
			tweetLat = append(tweetLat, elapsed)
			replyLat = append(replyLat, replyElapsed)
			parents = append(parents, id)
			if removed {
				deleted[reply.ReplyID] = true
				deleteLat = append(deleteLat, delElapsed)
			}
		}(i)
	}
	wg.Wait()

	// --- 4) Verify integrity from the outside ---
	fmt.Println("Verifying reply references and follower sets...")
	var dangling, followerMismatch int
	for _, id := range parents {
		var v tweetView
		status, err := client.Do(ctx, http.MethodGet, "/api/tweet/"+id, "", nil, &v)
		if err != nil || status != http.StatusOK {
			fmt.Printf("get tweet error: status=%d err=%v\n", status, err)
			continue
		}
		for _, r := range v.Replies {
			if deleted[r.ID] {
				dangling++
			}
		}
	}
	for userID, want := range expectedFollowers {
		var v userView
		status, err := client.Do(ctx, http.MethodGet, "/api/user/"+userID, "", nil, &v)
		if err != nil || status != http.StatusOK {
			followerMismatch++
			continue
		}
		if len(v.User.Followers) != len(want) {
			followerMismatch++
		}
	}

	// --- 5) Compute latency statistics and export to CSV ---
	apiclient.Summary("Follow", followLat)
	apiclient.Summary("Tweet", tweetLat)
	apiclient.Summary("Reply", replyLat)
	apiclient.Summary("Delete", deleteLat)
	fmt.Printf("Integrity: deleted_replies=%d dangling_refs=%d follower_mismatches=%d\n",
		len(deleted), dangling, followerMismatch)

	if err := apiclient.WriteCSV("e2e_latencies.csv", append(append([]float64{}, tweetLat...), replyLat...)); err != nil {
		fmt.Printf("Failed to write CSV: %v\n", err)
	} else {
		fmt.Println("Saved e2e_latencies.csv")
	}

	if dangling > 0 || followerMismatch > 0 {
		os.Exit(1)
	}
}
