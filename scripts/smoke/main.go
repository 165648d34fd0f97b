package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

type probe struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Critical bool   `json:"critical"`
}

type probeFile struct {
	Probes []probe `json:"probes"`
}

type result struct {
	Probe    probe
	Status   int
	Healthy  bool
	Error    error
	Duration time.Duration
}

// defaultProbes covers the read surface a dashboard polls plus the
// liveness endpoints. Date-bearing paths are filled in at runtime so the
// probe set stays valid on any day.
func defaultProbes(division string) []probe {
	today := time.Now().Format("2006-01-02")
	weekAgo := time.Now().AddDate(0, 0, -6).Format("2006-01-02")
	return []probe{
		{Method: http.MethodGet, Path: "/health", Critical: true},
		{Method: http.MethodGet, Path: "/ready", Critical: true},
		{Method: http.MethodGet, Path: "/metrics", Critical: false},
		{Method: http.MethodGet, Path: "/api/v1/engine/metrics", Critical: false},
		{Method: http.MethodGet, Path: fmt.Sprintf("/api/v1/attendance/summary?divisionId=%s&date=%s", division, today), Critical: true},
		{Method: http.MethodGet, Path: fmt.Sprintf("/api/v1/attendance/trend?divisionId=%s&dateFrom=%s&dateTo=%s", division, weekAgo, today), Critical: false},
		{Method: http.MethodGet, Path: fmt.Sprintf("/api/v1/attendance/present?divisionId=%s", division), Critical: false},
	}
}

func main() {
	var (
		base       string
		division   string
		probesPath string
		timeout    time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "engine base URL")
	flag.StringVar(&division, "division", "div-1", "division id used for the default probe set")
	flag.StringVar(&probesPath, "probes", "", "optional path to a JSON probe file (overrides the default set)")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	probes := defaultProbes(division)
	if probesPath != "" {
		loaded, err := loadProbes(probesPath)
		if err != nil {
			log.Fatalf("failed to load probes: %v", err)
		}
		probes = loaded
	}

	client := &http.Client{Timeout: timeout}
	var (
		results  []result
		breaking int
		degraded int
	)

	for _, p := range probes {
		res := runProbe(client, base, p)
		if !res.Healthy {
			if p.Critical {
				breaking++
			} else {
				degraded++
			}
		}
		results = append(results, res)
	}

	printReport(results)

	fmt.Printf("Critical failures: %d, Degraded: %d\n", breaking, degraded)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadProbes(path string) ([]probe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pf probeFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, err
	}
	if len(pf.Probes) == 0 {
		return nil, fmt.Errorf("no probes defined in %s", path)
	}
	return pf.Probes, nil
}

func runProbe(client *http.Client, base string, p probe) result {
	res := result{Probe: p}

	method := strings.ToUpper(strings.TrimSpace(p.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := p.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	url := strings.TrimRight(base, "/") + path

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		res.Error = err
		return res
	}
	start := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err
		return res
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	res.Status = resp.StatusCode
	res.Healthy = resp.StatusCode >= 200 && resp.StatusCode < 300
	return res
}

func printReport(results []result) {
	fmt.Println("Engine Smoke Report")
	fmt.Println("===================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.Healthy {
			status = "FAIL"
		}
		fmt.Printf("[%s] %s %s\n", status, res.Probe.Method, res.Probe.Path)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		fmt.Printf("  Status: %d (%s) | Critical: %t\n", res.Status, res.Duration, res.Probe.Critical)
	}
}
