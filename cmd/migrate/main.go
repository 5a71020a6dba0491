// Command migrate maintains a directory of SQL migrations for one project.
//
// Usage:
//
//	migrate [flags] check            validate config and replay migrations
//	migrate [flags] schema           print the projected schema as JSON
//	migrate [flags] generate <name>  write a migration for model changes
//	migrate [flags] apply            apply pending migrations to storage
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ddlsim/internal/config"
	"ddlsim/internal/metrics"
	"ddlsim/internal/metrics/datadog"
	"ddlsim/internal/metrics/prompush"

	// register all backends with the storage factory and type mapper registry.
	_ "ddlsim/internal/storage/all"
)

func main() {
	var (
		cfgPath           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		datadogAddrFlg    string
		dryRun            bool
	)

	flag.StringVar(&cfgPath, "config", "migrate.json", "project config JSON path")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend: none, pushgateway or datadog (env METRICS_BACKEND)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (env PUSHGATEWAY_URL)")
	flag.StringVar(&datadogAddrFlg, "datadog-addr", "", "DogStatsD address (env DD_AGENT_ADDR)")
	flag.BoolVar(&dryRun, "dry-run", false, "apply: list pending migrations without executing them")
	verbose := flag.Bool("v", false, "enable verbose logs")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]

	p, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}
	p.Migrations.Dir = resolveDir(cfgPath, p.Migrations.Dir)

	issues := config.ValidateProject(p)
	for _, iss := range issues {
		fmt.Fprintln(os.Stderr, iss.Error())
	}
	if config.HasErrors(issues) {
		log.Printf("configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}

	setupMetrics(p.Job, metricsBackendFlg, pushGatewayURLFlg, datadogAddrFlg, *verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	r := &runner{project: p, out: os.Stdout, verbose: *verbose, dryRun: dryRun}
	err = r.run(ctx, cmd, args)
	metrics.RecordStep(p.Job, cmd, err, time.Since(start))
	if ferr := metrics.Flush(); ferr != nil {
		log.Printf("metrics: flush error: %v", ferr)
	}
	if err != nil {
		stop()
		fatalf("%s: %v", cmd, err)
	}

	if *verbose {
		log.Printf("migrate: command=%s completed in %s", cmd, time.Since(start).Truncate(time.Millisecond))
	}
}

// setupMetrics installs the selected backend. Failures fall back to the nop
// backend; metrics never stop a migration.
func setupMetrics(job, backendName, gwURL, ddAddr string, verbose bool) {
	// Decide metrics backend: flag → env → default.
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	if job == "" {
		job = "migrate"
	}

	switch backendName {
	case "pushgateway":
		gwURL = firstNonEmpty(gwURL, os.Getenv("PUSHGATEWAY_URL"), "http://localhost:9091")
		b, err := prompush.NewBackend(job, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, job)
		metrics.SetBackend(b)

	case "datadog":
		ddAddr = firstNonEmpty(ddAddr, os.Getenv("DD_AGENT_ADDR"), "127.0.0.1:8125")
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       ddAddr,
			GlobalTags: []string{"job:" + job},
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: addr=%v, backend=%v, job_name=%v", ddAddr, backendName, job)
		metrics.SetBackend(b)

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "usage: %s [flags] <check|schema|generate <name>|apply>\n\nflags:\n", os.Args[0])
	flag.PrintDefaults()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
