package domain

import (
	"time"

	"github.com/pkg/errors"
)

// ErrShopNotFound is returned when a shop name resolves to no shop id.
var ErrShopNotFound = errors.New("no shop matches the given name")

// Prediction is one churn-prediction row from the warehouse.
// RunDate is always an instant: zoneless source timestamps are decoded as UTC
// at the repository boundary before they reach this type.
type Prediction struct {
	ShopID      int64
	RunDate     time.Time
	ProbaChurn  float64
	GroupNumber int64
}

// GroupCount is one row of the derived aggregate: how many predictions in a
// group exceeded the threshold inside the current day window.
type GroupCount struct {
	GroupNumber int64 `json:"group_number"`
	Count       int   `json:"count"`
}

// ReportParams carries the caller-supplied report arguments.
type ReportParams struct {
	ShopName     string
	ThresholdPct float64
	OutputDir    string
}

// ShopReport records the outcome for one resolved shop id. WriteError holds a
// per-shop artifact failure; it never aborts the remaining shops.
type ShopReport struct {
	ShopID     int64        `json:"shop_id"`
	Counts     []GroupCount `json:"counts,omitempty"`
	ChartPath  string       `json:"chart_path,omitempty"`
	CSVPath    string       `json:"csv_path,omitempty"`
	WriteError string       `json:"write_error,omitempty"`
}

// RunSummary is the per-run manifest persisted next to the artifacts.
type RunSummary struct {
	GeneratedAt  time.Time    `json:"generated_at"`
	ShopName     string       `json:"shop_name"`
	ThresholdPct float64      `json:"threshold_pct"`
	Threshold    float64      `json:"threshold"`
	Shops        []ShopReport `json:"shops"`
}
