package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/banton/medical-patients-sub001/engine"
	"github.com/banton/medical-patients-sub001/engine/models"
)

func main() {
	var (
		days        int
		patients    int
		warfare     string
		intensity   string
		tempo       string
		environment string
		special     string
		baseDate    string
		seed        int64
		formats     string
		compress    bool
		outputDir   string
		catalogPath string
		metricsOn   bool
		showStatus  bool
	)

	flag.IntVar(&days, "days", 8, "Number of days of fighting to simulate")
	flag.IntVar(&patients, "patients", 1440, "Total number of casualties to generate")
	flag.StringVar(&warfare, "warfare", "conventional,artillery,drone", "Comma separated active warfare types")
	flag.StringVar(&intensity, "intensity", "medium", "Combat intensity (low, medium, high, extreme)")
	flag.StringVar(&tempo, "tempo", "sustained", "Operation tempo (sustained, escalating, de-escalating, surge)")
	flag.StringVar(&environment, "environment", "", "Comma separated environmental conditions")
	flag.StringVar(&special, "special-events", "", "Comma separated special events (mass_casualty, major_offensive, ambush)")
	flag.StringVar(&baseDate, "base-date", "2024-01-01", "Scenario start date (YYYY-MM-DD)")
	flag.Int64Var(&seed, "seed", 1, "Random seed for reproducible cohorts")
	flag.StringVar(&formats, "formats", "json", "Comma separated output formats (json, csv)")
	flag.BoolVar(&compress, "compress", false, "Gzip output files")
	flag.StringVar(&outputDir, "output", "output", "Output directory")
	flag.StringVar(&catalogPath, "catalog", "", "Path to a YAML catalog file (empty uses built-in defaults)")
	flag.BoolVar(&metricsOn, "metrics", false, "Enable the Prometheus metrics provider")
	flag.BoolVar(&showStatus, "status", false, "Print the engine snapshot after the run")
	flag.Parse()

	base, err := time.Parse("2006-01-02", baseDate)
	if err != nil {
		log.Fatalf("parse base date: %v", err)
	}

	cfg := engine.Defaults()
	cfg.CatalogPath = catalogPath
	cfg.OutputDir = outputDir
	cfg.MetricsEnabled = metricsOn

	eng, err := engine.New(cfg)
	if err != nil {
		log.Fatalf("create engine: %v", err)
	}
	defer func() { _ = eng.Stop() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		log.Println("signal received; initiating graceful shutdown...")
		cancel()
		<-sigCh
		os.Exit(1)
	}()

	jobID, err := eng.Generate(ctx, engine.Scenario{
		Days:          days,
		TotalPatients: patients,
		WarfareTypes:  splitFlags(warfare),
		Intensity:     intensity,
		Tempo:         tempo,
		Environment:   splitFlags(environment),
		SpecialEvents: splitFlags(special),
		BaseDate:      base,
		Seed:          seed,
		OutputFormats: splitList(formats),
		Compress:      compress,
	})
	if err != nil {
		log.Fatalf("submit generation job: %v", err)
	}
	log.Printf("job %s submitted (%d patients over %d days)", jobID, patients, days)

	job, err := eng.WaitForJob(ctx, jobID)
	if err != nil {
		log.Fatalf("wait for job: %v", err)
	}
	switch job.Status {
	case models.JobCompleted:
		log.Printf("job %s completed", jobID)
		for _, file := range job.ResultFiles {
			fmt.Println(file)
		}
	default:
		log.Printf("job %s ended %s: %s", jobID, job.Status, job.Error)
		os.Exit(1)
	}

	if showStatus {
		snap := eng.Snapshot(ctx)
		data, _ := json.MarshalIndent(snap, "", "  ")
		fmt.Println(string(data))
	}
}

func splitFlags(csv string) map[string]bool {
	out := map[string]bool{}
	for _, item := range splitList(csv) {
		out[item] = true
	}
	return out
}

func splitList(csv string) []string {
	var out []string
	for _, item := range strings.Split(csv, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
