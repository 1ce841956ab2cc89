package registry

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/caredata-io/school-health-module-encryption/field"
	"github.com/caredata-io/school-health-module-encryption/types"
)

// Benchmark parameters: fixed so results are comparable across runs
const (
	benchmarkRounds      = 250
	benchmarkPayloadSize = 64
)

// BenchmarkEncryption measures encrypt+decrypt throughput for an
// algorithm using a throwaway key. No persistent state is touched.
func (s *Service) BenchmarkEncryption(ctx context.Context, algorithm string) (*types.BenchmarkResult, error) {
	if algorithm == "" {
		algorithm = types.AlgorithmAES256GCM
	}
	size := types.KeySizeForAlgorithm(algorithm)
	if size == 0 {
		return nil, &types.ValidationError{Reason: fmt.Sprintf("unsupported algorithm: %s", algorithm)}
	}

	material := make([]byte, size)
	if _, err := rand.Read(material); err != nil {
		return nil, fmt.Errorf("failed to generate benchmark key: %w", err)
	}
	payload := make([]byte, benchmarkPayloadSize)
	if _, err := rand.Read(payload); err != nil {
		return nil, fmt.Errorf("failed to generate benchmark payload: %w", err)
	}

	start := time.Now()
	for i := 0; i < benchmarkRounds; i++ {
		blob, err := field.Seal(material, payload)
		if err != nil {
			return nil, fmt.Errorf("benchmark encryption failed: %w", err)
		}
		if _, err := field.Open(material, blob); err != nil {
			return nil, fmt.Errorf("benchmark decryption failed: %w", err)
		}
	}
	elapsed := time.Since(start)

	result := &types.BenchmarkResult{
		Algorithm: algorithm,
		Ops:       benchmarkRounds,
		Elapsed:   elapsed,
	}
	if elapsed > 0 {
		result.OpsPerSecond = float64(benchmarkRounds) / elapsed.Seconds()
	}

	s.logger.Info().
		Str("algorithm", algorithm).
		Float64("opsPerSecond", result.OpsPerSecond).
		Msg("Encryption benchmark completed")
	return result, nil
}
