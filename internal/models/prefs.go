package models

import "time"

// ModelPrefs is the single persisted row of model defaults: the coefficient
// K applied when a run does not supply its own, and the gas price used for
// the cost column. A calibration may overwrite DefaultK.
type ModelPrefs struct {
	ID              int       `json:"id"`
	DefaultK        float64   `json:"default_k"`
	DefaultGasPrice float64   `json:"default_gas_price"`
	UpdatedAt       time.Time `json:"updated_at"`
}
