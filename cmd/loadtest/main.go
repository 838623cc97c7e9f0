package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	vegeta "github.com/tsenart/vegeta/v12/lib"
)

type user struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "sweetcache server base URL")
	freq := flag.Int("rate", 50, "requests per second")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	ttl := flag.String("ttl", "5m", "ttl sent with every write")
	flag.Parse()

	gofakeit.Seed(time.Now().UnixNano())

	rate := vegeta.Rate{Freq: *freq, Per: time.Second}
	attacker := vegeta.NewAttacker()

	var metrics vegeta.Metrics
	for res := range attacker.Attack(newTargeter(*baseURL, *ttl), rate, *duration, "sweetcache") {
		metrics.Add(res)
	}
	metrics.Close()

	fmt.Printf("99th percentile: %s\n", metrics.Latencies.P99)
	fmt.Printf("95th percentile: %s\n", metrics.Latencies.P95)
	fmt.Printf("Mean: %s\n", metrics.Latencies.Mean)
	fmt.Printf("Max: %s\n", metrics.Latencies.Max)
	fmt.Printf("Requests per second: %.2f\n", metrics.Rate)
	fmt.Printf("Success ratio: %.2f%%\n", metrics.Success*100)
	fmt.Printf("Status codes: %v\n", metrics.StatusCodes)
	fmt.Printf("Total requests: %d\n", metrics.Requests)

	fmt.Println("\n=== Report ===")
	reporter := vegeta.NewTextReporter(&metrics)
	reporter.Report(os.Stdout)
}

// newTargeter alternates a PUT of a fake user with a GET of a key written earlier,
// so reads hit as well as miss.
func newTargeter(baseURL, ttl string) vegeta.Targeter {
	var (
		mu      sync.Mutex
		written []string
		n       int
	)

	return func(tgt *vegeta.Target) error {
		mu.Lock()
		defer mu.Unlock()
		n++

		if n%2 == 0 && len(written) > 0 {
			key := written[gofakeit.Number(0, len(written)-1)]
			tgt.Method = http.MethodGet
			tgt.URL = fmt.Sprintf("%s/api/v1/cache/%s", baseURL, key)
			tgt.Body = nil
			tgt.Header = nil
			return nil
		}

		u := user{ID: uuid.New().String(), Name: gofakeit.Name(), Email: gofakeit.Email()}
		body, err := json.Marshal(u)
		if err != nil {
			return err
		}

		key := "users." + u.ID
		if len(written) < 10_000 {
			written = append(written, key)
		}

		tgt.Method = http.MethodPut
		tgt.URL = fmt.Sprintf("%s/api/v1/cache/%s?ttl=%s", baseURL, key, ttl)
		tgt.Body = body
		tgt.Header = http.Header{"Content-Type": {"application/json"}}
		return nil
	}
}
