package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

type Stats struct {
	TotalRequests     int64
	SuccessRequests   int64
	InsufficientFunds int64
	FailedRequests    int64
	TotalDuration     int64
}

type Config struct {
	BaseURL        string
	Workers        int
	Duration       int
	Portfolios     int
	InitialCash    int64
	RequestsPerSec int
}

type portfolio struct {
	ListName string          `json:"list_name"`
	Cash     decimal.Decimal `json:"cash"`
}

var stats Stats

// Нагрузочный клиент для кассы: параллельные пополнения, снятия и переводы
// между портфелями одного пользователя. В конце проверяет, что баланс не ушёл
// в минус и сумма сошлась с учётом успешных пополнений и снятий.
func main() {
	config := parseFlags()
	log.Printf("Starting ledger load client with config: %+v", config)

	client := &http.Client{Timeout: 10 * time.Second}
	username := "load_" + gofakeit.Username()
	lists, err := setup(client, config, username)
	if err != nil {
		log.Fatal("Setup failed: ", err)
	}

	done := make(chan bool)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	requestsPerWorker := config.RequestsPerSec / config.Workers
	if requestsPerWorker == 0 {
		requestsPerWorker = 1
	}

	var (
		wg       sync.WaitGroup
		netDelta = newLedgerDelta()
	)
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go worker(i, client, config, username, lists, requestsPerWorker, netDelta, done, &wg)
	}

	go printStats()

	var once sync.Once
	stop := func() { once.Do(func() { close(done) }) }
	if config.Duration > 0 {
		go func() {
			time.Sleep(time.Duration(config.Duration) * time.Second)
			stop()
		}()
	}
	go func() {
		<-sigChan
		log.Println("Received interrupt signal, shutting down...")
		stop()
	}()

	wg.Wait()
	printFinalStats()

	if err := verify(client, config, username, netDelta.total()); err != nil {
		log.Fatal("Ledger verification failed: ", err)
	}
	log.Println("Ledger verification passed")
}

func parseFlags() Config {
	config := Config{}

	flag.StringVar(&config.BaseURL, "url", "http://localhost:8080", "Stock social service URL")
	flag.IntVar(&config.Workers, "workers", 10, "Number of concurrent workers")
	flag.IntVar(&config.Duration, "duration", 30, "Test duration in seconds")
	flag.IntVar(&config.Portfolios, "portfolios", 4, "Number of portfolios to move cash between")
	flag.Int64Var(&config.InitialCash, "cash", 1000, "Initial deposit per portfolio")
	flag.IntVar(&config.RequestsPerSec, "rps", 100, "Requests per second target")

	flag.Parse()
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.Portfolios < 2 {
		config.Portfolios = 2
	}
	if config.InitialCash <= 0 {
		config.InitialCash = 1000
	}
	return config
}

// ledgerDelta - сумма успешных пополнений минус снятия
type ledgerDelta struct {
	mu  sync.Mutex
	sum decimal.Decimal
}

func newLedgerDelta() *ledgerDelta {
	return &ledgerDelta{sum: decimal.Zero}
}

func (d *ledgerDelta) add(v decimal.Decimal) {
	d.mu.Lock()
	d.sum = d.sum.Add(v)
	d.mu.Unlock()
}

func (d *ledgerDelta) total() decimal.Decimal {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sum
}

func setup(client *http.Client, config Config, username string) ([]string, error) {
	if _, err := call(client, config.BaseURL+"/api/v1/users", "", map[string]interface{}{"username": username}); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	lists := make([]string, 0, config.Portfolios)
	for i := 0; i < config.Portfolios; i++ {
		name := fmt.Sprintf("load-%d", i)
		if _, err := call(client, config.BaseURL+"/api/v1/stock-lists/create-portfolio", username, map[string]interface{}{"list_name": name}); err != nil {
			return nil, fmt.Errorf("create portfolio %s: %w", name, err)
		}
		body := map[string]interface{}{"list_name": name, "amount": decimal.NewFromInt(config.InitialCash)}
		if _, err := call(client, config.BaseURL+"/api/v1/stock-lists/deposit", username, body); err != nil {
			return nil, fmt.Errorf("deposit %s: %w", name, err)
		}
		lists = append(lists, name)
	}
	return lists, nil
}

func worker(id int, client *http.Client, config Config, username string, lists []string, requestsPerSec int, delta *ledgerDelta, done chan bool, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(time.Second / time.Duration(requestsPerSec))
	defer ticker.Stop()

	for {
		select {
		case <-done:
			log.Printf("Worker %d stopping", id)
			return
		case <-ticker.C:
			amount := decimal.NewFromInt(int64(rand.Intn(int(config.InitialCash)) + 1))
			from := lists[rand.Intn(len(lists))]
			to := lists[rand.Intn(len(lists))]
			for to == from {
				to = lists[rand.Intn(len(lists))]
			}

			operations := []string{"deposit", "withdraw", "transfer", "transfer"}
			operation := operations[rand.Intn(len(operations))]

			start := time.Now()
			var (
				status int
				err    error
			)
			switch operation {
			case "deposit":
				status, err = call(client, config.BaseURL+"/api/v1/stock-lists/deposit", username,
					map[string]interface{}{"list_name": from, "amount": amount})
				if err == nil {
					delta.add(amount)
				}
			case "withdraw":
				status, err = call(client, config.BaseURL+"/api/v1/stock-lists/withdraw", username,
					map[string]interface{}{"list_name": from, "amount": amount})
				if err == nil {
					delta.add(amount.Neg())
				}
			case "transfer":
				status, err = call(client, config.BaseURL+"/api/v1/stock-lists/transfer", username,
					map[string]interface{}{"from_list": from, "to_list": to, "amount": amount})
			}

			atomic.AddInt64(&stats.TotalRequests, 1)
			atomic.AddInt64(&stats.TotalDuration, time.Since(start).Milliseconds())
			switch {
			case err == nil:
				atomic.AddInt64(&stats.SuccessRequests, 1)
			case status == http.StatusUnprocessableEntity:
				atomic.AddInt64(&stats.InsufficientFunds, 1)
			default:
				atomic.AddInt64(&stats.FailedRequests, 1)
				log.Printf("Worker %d: %s failed: %v", id, operation, err)
			}
		}
	}
}

func verify(client *http.Client, config Config, username string, delta decimal.Decimal) error {
	req, err := http.NewRequest(http.MethodGet, config.BaseURL+"/api/v1/stock-lists/portfolios", nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Username", username)
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Portfolios []portfolio `json:"portfolios"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("failed to decode portfolios: %w", err)
	}

	total := decimal.Zero
	for _, p := range payload.Portfolios {
		if p.Cash.IsNegative() {
			return fmt.Errorf("portfolio %s has negative cash %s", p.ListName, p.Cash)
		}
		total = total.Add(p.Cash)
	}
	expected := decimal.NewFromInt(config.InitialCash * int64(config.Portfolios)).Add(delta)
	if !total.Equal(expected) {
		return fmt.Errorf("total cash %s, expected %s", total, expected)
	}
	log.Printf("Total cash %s across %d portfolios", total, len(payload.Portfolios))
	return nil
}

func call(client *http.Client, url, username string, body interface{}) (int, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if username != "" {
		req.Header.Set("X-Username", username)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return resp.StatusCode, nil
}

func printStats() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		total := atomic.LoadInt64(&stats.TotalRequests)
		success := atomic.LoadInt64(&stats.SuccessRequests)
		insufficient := atomic.LoadInt64(&stats.InsufficientFunds)
		failed := atomic.LoadInt64(&stats.FailedRequests)
		totalDuration := atomic.LoadInt64(&stats.TotalDuration)

		var avgLatency int64
		if total > 0 {
			avgLatency = totalDuration / total
		}
		log.Printf("[STATS] Total: %d | Success: %d | Insufficient: %d | Failed: %d | Avg Latency: %dms",
			total, success, insufficient, failed, avgLatency)
	}
}

func printFinalStats() {
	total := atomic.LoadInt64(&stats.TotalRequests)
	success := atomic.LoadInt64(&stats.SuccessRequests)
	insufficient := atomic.LoadInt64(&stats.InsufficientFunds)
	failed := atomic.LoadInt64(&stats.FailedRequests)
	totalDuration := atomic.LoadInt64(&stats.TotalDuration)

	var avgLatency int64
	if total > 0 {
		avgLatency = totalDuration / total
	}

	log.Println("========== FINAL STATISTICS ==========")
	log.Printf("Total Requests:     %d", total)
	log.Printf("Successful:         %d", success)
	log.Printf("Insufficient funds: %d", insufficient)
	log.Printf("Failed:             %d", failed)
	log.Printf("Average Latency:    %dms", avgLatency)
	log.Println("======================================")
}
