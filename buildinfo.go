package lgbm

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// BuildInfo describes the binary and the host it runs on.
type BuildInfo struct {
	Version       string
	GoVersion     string
	GOOS          string
	GOARCH        string
	NumCPU        int
	GOMAXPROCS    int
	CPUBrand      string
	PhysicalCores int
	LogicalCores  int
	SIMD          []string
}

// Parallel reports whether training can use more than one goroutine at once.
func (b BuildInfo) Parallel() bool { return b.GOMAXPROCS > 1 }

// ReadBuildInfo collects build and CPU information.
func ReadBuildInfo() BuildInfo {
	info := BuildInfo{
		Version:       "(devel)",
		GoVersion:     runtime.Version(),
		GOOS:          runtime.GOOS,
		GOARCH:        runtime.GOARCH,
		NumCPU:        runtime.NumCPU(),
		GOMAXPROCS:    runtime.GOMAXPROCS(0),
		CPUBrand:      cpuid.CPU.BrandName,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  cpuid.CPU.LogicalCores,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range bi.Deps {
			if dep.Path == "github.com/YuminosukeSato/lgbm" {
				info.Version = dep.Version
			}
		}
		if bi.Main.Path == "github.com/YuminosukeSato/lgbm" && bi.Main.Version != "" {
			info.Version = bi.Main.Version
		}
	}

	simd := []struct {
		name string
		id   cpuid.FeatureID
	}{
		{"SSE4.2", cpuid.SSE42},
		{"AVX", cpuid.AVX},
		{"AVX2", cpuid.AVX2},
		{"FMA3", cpuid.FMA3},
		{"AVX512F", cpuid.AVX512F},
		{"NEON", cpuid.ASIMD},
		{"SVE", cpuid.SVE},
	}
	for _, s := range simd {
		if cpuid.CPU.Supports(s.id) {
			info.SIMD = append(info.SIMD, s.name)
		}
	}
	return info
}

func (b BuildInfo) architecture() string {
	switch b.GOARCH {
	case "arm64":
		return "aarch64 (ARM 64-bit)"
	case "amd64":
		return "x86_64 (Intel/AMD 64-bit)"
	case "arm":
		return "ARM 32-bit"
	}
	return b.GOARCH
}

// String renders a human readable report.
func (b BuildInfo) String() string {
	var sb strings.Builder
	fmt.Fprintln(&sb, "lgbm Build Information")
	fmt.Fprintln(&sb, "======================")
	fmt.Fprintf(&sb, "Version: %s (%s)\n", b.Version, b.GoVersion)
	fmt.Fprintf(&sb, "Hardware threads available: %d\n", b.NumCPU)
	if b.Parallel() {
		fmt.Fprintf(&sb, "Parallelism: ENABLED (GOMAXPROCS=%d)\n", b.GOMAXPROCS)
	} else {
		fmt.Fprintln(&sb, "Parallelism: DISABLED (GOMAXPROCS=1)")
	}
	fmt.Fprintf(&sb, "Architecture: %s, %s\n", b.architecture(), b.GOOS)
	if b.CPUBrand != "" {
		fmt.Fprintf(&sb, "CPU: %s (%d physical / %d logical cores)\n", b.CPUBrand, b.PhysicalCores, b.LogicalCores)
	}
	if len(b.SIMD) > 0 {
		fmt.Fprintf(&sb, "SIMD: %s\n", strings.Join(b.SIMD, " "))
	} else {
		fmt.Fprintln(&sb, "SIMD: Not detected")
	}
	return sb.String()
}
