package engine

import "fmt"

const (
	scanCostPerGiB    = 0.002
	returnCostPerGiB  = 0.0007
	requestCostPerK   = 0.0004
	bytesPerGiB       = 1 << 30
	filesPerThousand  = 1000
)

// CostEstimate is the end-of-run dollar estimate derived from the
// aggregator's byte and file counters. It mirrors the remote service's
// published per-GiB scan/return pricing and per-thousand-request pricing;
// it is an estimate only, not a billing source of truth.
type CostEstimate struct {
	ScanCost    float64
	ReturnCost  float64
	RequestCost float64
	Total       float64
}

// EstimateCost computes the cost estimate from a run's Summary.
func EstimateCost(sum Summary) CostEstimate {
	scan := scanCostPerGiB * float64(sum.BytesScanned) / bytesPerGiB
	ret := returnCostPerGiB * float64(sum.BytesReturned) / bytesPerGiB
	req := requestCostPerK * float64(sum.FilesDiscovered) / filesPerThousand
	return CostEstimate{
		ScanCost:    scan,
		ReturnCost:  ret,
		RequestCost: req,
		Total:       scan + ret + req,
	}
}

// String renders the estimate as the two-decimal plain-text line printed
// to stderr.
func (c CostEstimate) String() string {
	return fmt.Sprintf("scan_cost=$%.2f return_cost=$%.2f request_cost=$%.2f total=$%.2f",
		c.ScanCost, c.ReturnCost, c.RequestCost, c.Total)
}
