// Package sim provides the core discrete-event datacenter simulation engine
// behind the RL training environment.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - cloudlet.go / vm.go / host.go: the entity model (jobs, VM slices, physical hosts)
//   - engine.go: the event loop, virtual clock, and piecewise execution advance
//   - gateway.go: the episode lifecycle (configure → reset → step* → close)
//
// # Architecture
//
// Entities live in arenas keyed by integer ids (HostID, VMID, CloudletID);
// cross-references are id lookups rather than pointers, so there are no
// reference cycles between hosts, VMs, and cloudlets.
//
// The sim package defines the engine and its capability seams; data-driven
// collaborators live in sub-packages:
//   - sim/workload/: cloudlet sources (SWF trace replay, CSV replay)
//   - sim/green/: renewable power provider (time series, forecasts)
//
// # Key Seams
//
// The extension points are small tagged variants or single-method values:
//   - CloudletScheduler: space-shared (default) or time-shared execution on a VM
//   - VmAllocationPolicy: host selection for new VMs (first-fit default)
//   - PowerModel: host power draw as a function of utilization (linear default)
//   - Bus: synchronous typed notifications (cloudlet finished, VM state changed)
//
// A Gateway is single-threaded: one episode per instance, no background
// goroutines, virtual time only. Parallel training runs one Gateway per
// worker and shares nothing.
package sim
