package sim

// CostReport breaks an episode's accumulated cost down by the datacenter's
// characteristic prices: processing time per cloudlet, RAM reservation
// hours per VM, and transferred/stored cloudlet data.
type CostReport struct {
	ProcessingCost float64 `json:"processing_cost"`
	RAMCost        float64 `json:"ram_cost"`
	BandwidthCost  float64 `json:"bandwidth_cost"`
	StorageCost    float64 `json:"storage_cost"`
}

// Total sums the cost components.
func (r CostReport) Total() float64 {
	return r.ProcessingCost + r.RAMCost + r.BandwidthCost + r.StorageCost
}

// ComputeCosts prices the episode so far. Running cloudlets and live VMs
// are charged up to `now`.
func (dc *Datacenter) ComputeCosts(now float64) CostReport {
	chars := dc.Characteristics
	var r CostReport

	for _, c := range dc.Cloudlets() {
		if c.StartTime < 0 {
			continue
		}
		end := c.FinishTime
		if end < 0 {
			end = now
		}
		r.ProcessingCost += (end - c.StartTime) * chars.CostPerSecond
		r.BandwidthCost += float64(c.FileSizeKB+c.OutputSizeKB) * chars.CostPerBW
		r.StorageCost += float64(c.FileSizeKB) * chars.CostPerStorage
	}

	for _, vm := range dc.VMs() {
		end := vm.DestroyedAt
		if end < 0 {
			end = now
		}
		hours := (end - vm.CreatedAt) / 3600.0
		if hours < 0 {
			hours = 0
		}
		r.RAMCost += float64(vm.RAMMB) * hours * chars.CostPerRAM
	}

	return r
}
