package execution

import (
	"runtime"

	"github.com/shirou/gopsutil/v4/mem"
)

// bytesPerWorker is the rough memory headroom reserved per concurrent job,
// sized for a worst-case in-flight blob plus provider client buffers.
const bytesPerWorker = 256 * 1024 * 1024

// ResolveConcurrency returns configured when it is positive, otherwise
// auto-tunes from runtime.NumCPU() capped by available memory headroom
// (SPEC_FULL.md's "concurrency auto-tuning" supplemented feature), the same
// defensive default the teacher applies when sizing its logo-caching worker
// pool (defaultLogoConcurrency).
func ResolveConcurrency(configured int) int {
	if configured > 0 {
		return configured
	}

	cpuBound := runtime.NumCPU()

	vm, err := mem.VirtualMemory()
	if err != nil || vm == nil {
		return cpuBound
	}

	memBound := int(vm.Available / bytesPerWorker)
	if memBound < 1 {
		memBound = 1
	}
	if memBound < cpuBound {
		return memBound
	}
	return cpuBound
}
