package manager

import (
	"context"
	"flowtagger/internal/model"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

type discardWriter struct{}

func (discardWriter) Write(ctx context.Context, r *model.Report) error { return nil }
func (discardWriter) Name() string                                     { return "discard" }

func BenchmarkRun(b *testing.B) {
	log.SetLevel(log.ErrorLevel)
	dir := b.TempDir()

	lookupPath := filepath.Join(dir, "lookup.csv")
	var lb strings.Builder
	for port := 0; port < 10000; port++ {
		fmt.Fprintf(&lb, "%d,tcp,tag_%d\n", port, port%50)
	}
	if err := os.WriteFile(lookupPath, []byte(lb.String()), 0o644); err != nil {
		b.Fatalf("Failed to write lookup: %v", err)
	}

	inputPath := filepath.Join(dir, "flows.log")
	var fb strings.Builder
	protos := []int{1, 6, 17}
	for i := 0; i < 100000; i++ {
		fmt.Fprintf(&fb, "2 123456789012 eni-1 10.0.0.1 10.0.0.2 49152 %d %d 10 5000 1620140661 1620140721 ACCEPT OK\n", i%20000, protos[i%3])
	}
	if err := os.WriteFile(inputPath, []byte(fb.String()), 0o644); err != nil {
		b.Fatalf("Failed to write flow log: %v", err)
	}

	cfg := setupConfig(lookupPath, inputPath, filepath.Join(dir, "output.txt"))
	m, err := NewManager(cfg, WithWriters(discardWriter{}))
	if err != nil {
		b.Fatalf("Failed to create manager: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.Run(context.Background()); err != nil {
			b.Fatalf("Run failed: %v", err)
		}
	}
}
