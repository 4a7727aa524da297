package lgbm

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadBuildInfo(t *testing.T) {
	info := ReadBuildInfo()
	assert.Equal(t, runtime.GOOS, info.GOOS)
	assert.Equal(t, runtime.GOARCH, info.GOARCH)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Positive(t, info.NumCPU)
	assert.NotEmpty(t, info.Version)

	report := info.String()
	assert.Contains(t, report, "Hardware threads available")
	assert.Contains(t, report, "Architecture:")
}

func TestBuildInfoArchitecture(t *testing.T) {
	tests := map[string]string{
		"arm64": "aarch64 (ARM 64-bit)",
		"amd64": "x86_64 (Intel/AMD 64-bit)",
		"riscv": "riscv",
	}
	for arch, want := range tests {
		assert.Equal(t, want, BuildInfo{GOARCH: arch}.architecture())
	}

	assert.Contains(t, BuildInfo{GOMAXPROCS: 1}.String(), "Parallelism: DISABLED")
	assert.Contains(t, BuildInfo{GOMAXPROCS: 4, SIMD: []string{"AVX2"}}.String(), "SIMD: AVX2")
}
