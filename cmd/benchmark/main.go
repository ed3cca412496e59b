// Benchmark tool for testing Shrike against labeled watchlist data.
//
// Usage:
//   go run cmd/benchmark/main.go -csv /path/to/watchlist.csv -url http://localhost:8080
//
// This tool:
//   1. Reads labeled entity data (name, country, events, PEP level, high-risk label)
//   2. Sends each entity to Shrike for scoring
//   3. Compares Shrike's severity (Critical/Valuable vs lower) with the labels
//   4. Calculates precision, recall, F1-score, and confusion matrix
//
// Expected CSV columns (header required, case-insensitive):
//   name, type, country, city, birth_year, events, pep, is_high_risk
// where events is a pipe-separated list of category codes (e.g. "SAN|TER")
// and pep is a PEP attribute value (e.g. "HOS:L5") or empty.
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// WatchlistRow represents a labeled row from the benchmark dataset
type WatchlistRow struct {
	Name       string
	Type       string
	Country    string
	City       string
	BirthYear  string
	Events     []string
	PEP        string
	IsHighRisk bool
}

// ScoreRequest is the Shrike API request format
type ScoreRequest struct {
	EntityName string      `json:"entityName"`
	EntityType string      `json:"entityType,omitempty"`
	Events     []Event     `json:"events,omitempty"`
	Addresses  []Address   `json:"addresses,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty"`
}

type Event struct {
	CategoryCode string `json:"categoryCode"`
	Date         string `json:"date,omitempty"`
}

type Address struct {
	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`
}

type Attribute struct {
	CodeType string `json:"codeType"`
	Value    string `json:"value"`
}

// ScoreResponse is the Shrike API response format
type ScoreResponse struct {
	AssessmentID string   `json:"assessmentId"`
	Score        float64  `json:"score"`
	Severity     string   `json:"severity"`
	Reasons      []string `json:"reasons"`
}

// Metrics tracks benchmark results
type Metrics struct {
	TruePositives  int64 // High-risk scored Critical/Valuable
	FalsePositives int64 // Low-risk scored Critical/Valuable
	TrueNegatives  int64 // Low-risk scored below Valuable
	FalseNegatives int64 // High-risk scored below Valuable (missed!)

	TotalProcessed int64
	TotalHighRisk  int64
	TotalLowRisk   int64
	TotalErrors    int64

	ProcessingTimeMs int64
}

func main() {
	// Parse flags
	csvPath := flag.String("csv", "", "Path to labeled watchlist CSV file")
	baseURL := flag.String("url", "http://localhost:8080", "Shrike base URL")
	tenantID := flag.String("tenant", "benchmark-test", "Tenant ID for requests")
	limit := flag.Int("limit", 10000, "Maximum entities to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	highRiskOnly := flag.Bool("high-risk-only", false, "Only test high-risk entities")
	sampleRate := flag.Float64("sample", 1.0, "Sample rate for low-risk rows (0.0-1.0)")
	verbose := flag.Bool("verbose", false, "Print each entity result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: benchmark -csv /path/to/watchlist.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║          SHRIKE BENCHMARK - Watchlist Screening               ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nCSV File:    %s\n", *csvPath)
	fmt.Printf("Shrike URL:  %s\n", *baseURL)
	fmt.Printf("Tenant ID:   %s\n", *tenantID)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Limit:       %d\n", *limit)
	fmt.Printf("High-Risk Only: %v\n", *highRiskOnly)
	fmt.Printf("Sample Rate: %.2f\n", *sampleRate)
	fmt.Println()

	// Check Shrike is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Shrike not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Shrike is running:")
		fmt.Println("  cd shrike && go run cmd/shrike/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Shrike is healthy")

	// Read labeled data
	fmt.Printf("\nReading watchlist data from %s...\n", *csvPath)
	rows, err := readWatchlistCSV(*csvPath, *limit, *highRiskOnly, *sampleRate)
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Loaded %d entities\n", len(rows))

	// Count high-risk vs low-risk
	highRiskCount := 0
	for _, row := range rows {
		if row.IsHighRisk {
			highRiskCount++
		}
	}
	fmt.Printf("  - High-risk: %d (%.2f%%)\n", highRiskCount, 100*float64(highRiskCount)/float64(len(rows)))
	fmt.Printf("  - Low-risk:  %d (%.2f%%)\n", len(rows)-highRiskCount, 100*float64(len(rows)-highRiskCount)/float64(len(rows)))

	// Run benchmark
	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(rows, *baseURL, *tenantID, *workers, *verbose)
	duration := time.Since(startTime)

	// Print results
	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func readWatchlistCSV(path string, limit int, highRiskOnly bool, sampleRate float64) ([]WatchlistRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Read header
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Map column indices
	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	col := func(record []string, name string) string {
		if i, ok := colIndex[name]; ok && i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	var rows []WatchlistRow
	sampleCounter := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}

		isHighRisk := col(record, "is_high_risk") == "1" || strings.EqualFold(col(record, "is_high_risk"), "true")

		// Apply filters
		if highRiskOnly && !isHighRisk {
			continue
		}

		// Sample low-risk rows
		if !isHighRisk && sampleRate < 1.0 {
			sampleCounter++
			if float64(sampleCounter%100)/100.0 >= sampleRate {
				continue
			}
		}

		var events []string
		if raw := col(record, "events"); raw != "" {
			for _, code := range strings.Split(raw, "|") {
				if code = strings.TrimSpace(code); code != "" {
					events = append(events, code)
				}
			}
		}

		row := WatchlistRow{
			Name:       col(record, "name"),
			Type:       col(record, "type"),
			Country:    col(record, "country"),
			City:       col(record, "city"),
			BirthYear:  col(record, "birth_year"),
			Events:     events,
			PEP:        col(record, "pep"),
			IsHighRisk: isHighRisk,
		}
		if row.Name == "" {
			continue
		}

		rows = append(rows, row)

		if limit > 0 && len(rows) >= limit {
			break
		}
	}

	return rows, nil
}

func runBenchmark(rows []WatchlistRow, baseURL, tenantID string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	// Create work channel
	work := make(chan WatchlistRow, 100)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for row := range work {
				start := time.Now()
				result, err := scoreEntity(client, baseURL, tenantID, row)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", row.Name, err)
					}
					continue
				}

				// Track actual labels
				if row.IsHighRisk {
					atomic.AddInt64(&metrics.TotalHighRisk, 1)
				} else {
					atomic.AddInt64(&metrics.TotalLowRisk, 1)
				}

				// Calculate confusion matrix
				predicted := result.Severity == "Critical" || result.Severity == "Valuable"
				actual := row.IsHighRisk

				if predicted && actual {
					atomic.AddInt64(&metrics.TruePositives, 1)
				} else if predicted && !actual {
					atomic.AddInt64(&metrics.FalsePositives, 1)
				} else if !predicted && !actual {
					atomic.AddInt64(&metrics.TrueNegatives, 1)
				} else { // !predicted && actual
					atomic.AddInt64(&metrics.FalseNegatives, 1)
				}

				if verbose {
					status := "✓"
					if (predicted && !actual) || (!predicted && actual) {
						status = "✗"
					}
					name := row.Name
					if len(name) > 20 {
						name = name[:20]
					}
					fmt.Printf("%s %-20s | Country: %-3s | Events: %-12s | High-Risk: %-5v | Shrike: %-13s (%.2f)\n",
						status,
						name,
						row.Country,
						strings.Join(row.Events, "|"),
						row.IsHighRisk,
						result.Severity,
						result.Score,
					)
				}
			}
		}()
	}

	// Send work
	for _, row := range rows {
		work <- row
	}
	close(work)

	// Wait for completion
	wg.Wait()

	return metrics
}

func scoreEntity(client *http.Client, baseURL, tenantID string, row WatchlistRow) (*ScoreResponse, error) {
	// Build request matching Shrike's expected format
	req := ScoreRequest{
		EntityName: row.Name,
		EntityType: row.Type,
	}

	for _, code := range row.Events {
		req.Events = append(req.Events, Event{CategoryCode: code})
	}

	if row.Country != "" || row.City != "" {
		req.Addresses = append(req.Addresses, Address{
			Country: row.Country,
			City:    row.City,
		})
	}

	if row.BirthYear != "" {
		req.Attributes = append(req.Attributes, Attribute{CodeType: "DOB", Value: row.BirthYear})
	}
	if row.PEP != "" {
		req.Attributes = append(req.Attributes, Attribute{CodeType: "PTY", Value: row.PEP})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/api/v1/score", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result ScoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 DATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Total High-Risk:  %d\n", m.TotalHighRisk)
	fmt.Printf("   Total Low-Risk:   %d\n", m.TotalLowRisk)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	fmt.Printf("\n📈 CONFUSION MATRIX\n")
	fmt.Println("                        Predicted")
	fmt.Println("                    HIT         CLEAR")
	fmt.Println("              ┌──────────┬──────────┐")
	fmt.Printf("   Actual  HR │ %8d │ %8d │  (TP, FN)\n", m.TruePositives, m.FalseNegatives)
	fmt.Println("              ├──────────┼──────────┤")
	fmt.Printf("          LR  │ %8d │ %8d │  (FP, TN)\n", m.FalsePositives, m.TrueNegatives)
	fmt.Println("              └──────────┴──────────┘")

	// Calculate metrics
	precision := float64(0)
	if m.TruePositives+m.FalsePositives > 0 {
		precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}

	recall := float64(0)
	if m.TruePositives+m.FalseNegatives > 0 {
		recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}

	f1 := float64(0)
	if precision+recall > 0 {
		f1 = 2 * (precision * recall) / (precision + recall)
	}

	accuracy := float64(0)
	total := m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
	if total > 0 {
		accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(total)
	}

	fmt.Printf("\n🎯 DETECTION METRICS\n")
	fmt.Printf("   Precision:  %.4f  (of hits, how many were actual high-risk)\n", precision)
	fmt.Printf("   Recall:     %.4f  (of high-risk, how many did we catch)\n", recall)
	fmt.Printf("   F1-Score:   %.4f  (harmonic mean of precision & recall)\n", f1)
	fmt.Printf("   Accuracy:   %.4f  (overall correct predictions)\n", accuracy)

	// Detection rate analysis
	fmt.Printf("\n🔍 DETECTION ANALYSIS\n")
	if m.TotalHighRisk > 0 {
		detectionRate := float64(m.TruePositives) / float64(m.TotalHighRisk) * 100
		missRate := float64(m.FalseNegatives) / float64(m.TotalHighRisk) * 100
		fmt.Printf("   High-Risk Detected: %d / %d (%.2f%%)\n", m.TruePositives, m.TotalHighRisk, detectionRate)
		fmt.Printf("   High-Risk Missed:   %d / %d (%.2f%%) ⚠️\n", m.FalseNegatives, m.TotalHighRisk, missRate)
	}
	if m.TotalLowRisk > 0 {
		falseAlarmRate := float64(m.FalsePositives) / float64(m.TotalLowRisk) * 100
		fmt.Printf("   False Alarms:       %d / %d (%.2f%%)\n", m.FalsePositives, m.TotalLowRisk, falseAlarmRate)
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		eps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f entities/sec\n", eps)
	}

	// Interpretation
	fmt.Printf("\n💡 INTERPRETATION\n")
	if recall >= 0.9 {
		fmt.Println("   ✅ Excellent recall - catching most high-risk entities")
	} else if recall >= 0.7 {
		fmt.Println("   ⚠️  Good recall - but missing some high-risk entities")
	} else if recall >= 0.5 {
		fmt.Println("   ⚠️  Moderate recall - significant high-risk volume being missed")
	} else {
		fmt.Println("   ❌ Poor recall - most high-risk entities are being missed!")
	}

	if precision >= 0.5 {
		fmt.Println("   ✅ Good precision - hits are meaningful")
	} else if precision >= 0.2 {
		fmt.Println("   ⚠️  Low precision - many false alarms")
	} else {
		fmt.Println("   ❌ Very low precision - mostly false alarms")
	}

	fmt.Println()
}
