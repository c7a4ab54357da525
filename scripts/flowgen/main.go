// Command flowgen writes synthetic version 2 flow log lines for load testing.
package main

import (
	"bufio"
	"fmt"
	"math/rand"
	"net"
	"os"
	"time"

	"github.com/google/gopacket/layers"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var protocols = []layers.IPProtocol{
	layers.IPProtocolTCP,
	layers.IPProtocolTCP,
	layers.IPProtocolTCP,
	layers.IPProtocolUDP,
	layers.IPProtocolICMPv4,
}

var wellKnownPorts = []int{22, 23, 25, 53, 68, 80, 110, 143, 443, 993, 3389}

func main() {
	var (
		outputFile string
		lineCount  int
		seed       int64
	)

	cmd := &cobra.Command{
		Use:   "flowgen",
		Short: "Generate a synthetic flow log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return generate(outputFile, lineCount, seed)
		},
	}
	cmd.Flags().StringVarP(&outputFile, "output", "o", "static/performance_test_flow_logs.txt", "output flow log path")
	cmd.Flags().IntVarP(&lineCount, "count", "c", 100000, "number of lines to generate")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func generate(path string, count int, seed int64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	rng := rand.New(rand.NewSource(seed))
	w := bufio.NewWriter(f)
	start := time.Now().Unix()

	log.Infof("Generating %d flow log lines into %s...", count, path)
	for i := 0; i < count; i++ {
		if (i+1)%100000 == 0 {
			log.Infof("Generated %d lines...", i+1)
		}

		srcIP := net.IPv4(10, byte(rng.Intn(256)), byte(rng.Intn(256)), byte(rng.Intn(254)+1))
		dstIP := net.IPv4(byte(rng.Intn(223)+1), byte(rng.Intn(256)), byte(rng.Intn(256)), byte(rng.Intn(254)+1))
		proto := protocols[rng.Intn(len(protocols))]

		dstPort := rng.Intn(65535-1024) + 1024
		if rng.Intn(2) == 0 {
			dstPort = wellKnownPorts[rng.Intn(len(wellKnownPorts))]
		}
		if proto == layers.IPProtocolICMPv4 {
			dstPort = 0
		}

		packets := rng.Intn(50) + 1
		action := "ACCEPT"
		if rng.Intn(10) == 0 {
			action = "REJECT"
		}
		fmt.Fprintf(w, "2 123456789012 eni-%08x %s %s %d %d %d %d %d %d %d %s OK\n",
			rng.Uint32(), srcIP, dstIP, rng.Intn(65535-1024)+1024, dstPort, uint8(proto),
			packets, packets*(rng.Intn(1400)+40), start, start+60, action)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write flow log: %w", err)
	}
	log.Infof("Successfully generated %d lines into %s.", count, path)
	return nil
}
