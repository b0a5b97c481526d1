//go:build ignore
// +build ignore

// Package main provides a manual concurrency stress test for the borrowing API.
//
// Usage:
//
//	go run ./scripts/concurrency_test.go <book_id> <member1_id> [member2_id ...]
//
// Or use the convenience environment variables:
//
//	BOOK_ID=<uuid>  MEMBER_IDS=<uuid1>,<uuid2>,...  go run ./scripts/concurrency_test.go
//
// What it does:
//  1. Fires N goroutines (one per member) all attempting to borrow the same book simultaneously.
//  2. Prints how many succeeded vs. were rejected for being out of stock.
//  3. The number of successes must never exceed the book's starting stock —
//     the row lock plus conditional decrement close the check-then-act race.
//
// Prerequisites:
//   - Server must be running with a reachable database.
//   - The book and the N members must exist. A book with stock 1 and several
//     members is the interesting case.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

const defaultServerAddr = "http://localhost:8080"

type borrowResult struct {
	MemberID   string
	StatusCode int
	Message    string
	Err        error
}

func main() {
	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}

	bookID := os.Getenv("BOOK_ID")
	memberIDsEnv := os.Getenv("MEMBER_IDS")

	var memberIDs []string
	if memberIDsEnv != "" {
		memberIDs = strings.Split(memberIDsEnv, ",")
	}

	// Support positional args: script <book_id> [member_ids...]
	args := os.Args[1:]
	if len(args) >= 1 {
		bookID = args[0]
	}
	if len(args) >= 2 {
		memberIDs = args[1:]
	}

	if bookID == "" {
		log.Fatal("Usage: BOOK_ID=<uuid> MEMBER_IDS=<m1,m2,...> go run ./scripts/concurrency_test.go\n" +
			"  or: go run ./scripts/concurrency_test.go <book_id> <member1_id> [member2_id ...]")
	}
	if len(memberIDs) == 0 {
		log.Fatal("At least one member ID must be provided via MEMBER_IDS env or positional args")
	}

	fmt.Printf("=== Borrowing Concurrency Test ===\n")
	fmt.Printf("Server  : %s\n", serverAddr)
	fmt.Printf("Book    : %s\n", bookID)
	fmt.Printf("Members : %d\n\n", len(memberIDs))

	results := make([]borrowResult, len(memberIDs))
	var wg sync.WaitGroup

	// Fire all goroutines simultaneously using a barrier.
	start := make(chan struct{})

	for i, mid := range memberIDs {
		wg.Add(1)
		go func(idx int, memberID string) {
			defer wg.Done()
			<-start // wait for the barrier
			results[idx] = attemptBorrow(serverAddr, bookID, strings.TrimSpace(memberID))
		}(i, mid)
	}

	fmt.Println("Firing all requests simultaneously...")
	close(start)

	wg.Wait()
	fmt.Println("All requests completed.")
	fmt.Println()

	var borrowed, outOfStock, rejected, failures int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failures++
			fmt.Printf("  [ERR ] member=%-38s err=%v\n", r.MemberID, r.Err)
		case r.StatusCode == http.StatusCreated:
			borrowed++
			fmt.Printf("  [BRRW] member=%-38s status=%d\n", r.MemberID, r.StatusCode)
		case strings.Contains(r.Message, "out of stock"):
			outOfStock++
			fmt.Printf("  [OOST] member=%-38s status=%d\n", r.MemberID, r.StatusCode)
		case r.StatusCode == http.StatusBadRequest:
			rejected++
			fmt.Printf("  [RJCT] member=%-38s status=%d msg=%s\n", r.MemberID, r.StatusCode, r.Message)
		default:
			failures++
			fmt.Printf("  [FAIL] member=%-38s status=%d unexpected response\n", r.MemberID, r.StatusCode)
		}
	}

	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Borrowed     : %d\n", borrowed)
	fmt.Printf("Out of stock : %d\n", outOfStock)
	fmt.Printf("Rejected     : %d\n", rejected)
	fmt.Printf("Failures     : %d\n", failures)
	fmt.Printf("Total        : %d\n\n", len(memberIDs))

	fmt.Println("--- Invariant Check ---")
	fmt.Println("Successful borrows must not exceed the book's starting stock; every")
	fmt.Println("other member must have received an out-of-stock rejection.")

	if failures > 0 {
		fmt.Printf("\n[WARNING] %d request(s) failed — check server logs for details.\n", failures)
		os.Exit(1)
	}
}

// attemptBorrow sends POST /api/borrowings for the given member and parses the
// JSON response envelope.
func attemptBorrow(serverAddr, bookID, memberID string) borrowResult {
	url := fmt.Sprintf("%s/api/borrowings", serverAddr)
	body := fmt.Sprintf(`{"book_id":"%s","member_id":"%s"}`, bookID, memberID)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		return borrowResult{MemberID: memberID, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	var parsed struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return borrowResult{MemberID: memberID, StatusCode: resp.StatusCode, Err: fmt.Errorf("bad JSON: %s", raw)}
	}

	return borrowResult{
		MemberID:   memberID,
		StatusCode: resp.StatusCode,
		Message:    parsed.Message,
	}
}
