package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"poolwatch/internal/enrich"
	"poolwatch/internal/metadata"
	"poolwatch/pkg/config"
	"poolwatch/pkg/rugcheck"
	chain "poolwatch/pkg/solana"
	"poolwatch/pkg/solscan"
)

// inspect resolves one mint the way the service does and prints the result
func main() {
	mintAddr := flag.String("mint", "", "Token mint address to inspect")
	lpMint := flag.String("lp", "", "Optional LP mint address to run the burn check on")
	withReport := flag.Bool("report", false, "Also fetch the risk report")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall timeout")
	flag.Parse()

	if *mintAddr == "" {
		fmt.Println("Usage example: go run ./cmd/inspect -mint EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
		os.Exit(1)
	}

	log.SetLevel(log.WarnLevel)
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := chain.NewClient(cfg.RPCURL, cfg.RPCRate)
	resolver := metadata.NewResolver(client, metadata.NewURIFetcher(), solscan.NewClient(cfg.SolscanAPIKey, cfg.SolscanBaseURL), nil, nil)

	out := map[string]interface{}{
		"mint":     *mintAddr,
		"metadata": resolver.Resolve(ctx, *mintAddr),
	}

	if *lpMint != "" {
		burned, err := enrich.CheckBurn(ctx, client, "", *lpMint)
		if err != nil {
			out["liquidityBurned"] = nil
			out["burnError"] = err.Error()
		} else {
			out["liquidityBurned"] = burned
		}
	}

	if *withReport {
		report, err := rugcheck.NewClient(cfg.RugCheckBaseURL).Report(ctx, *mintAddr)
		if err != nil {
			out["reportError"] = err.Error()
		} else {
			out["report"] = report
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal("Failed to print result: ", err)
	}
}
