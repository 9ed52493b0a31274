package alerts

import "context"

// AlertLevel indicates whether a rule started or stopped breaching.
type AlertLevel string

const (
	AlertTriggered AlertLevel = "triggered" // Reading crossed the threshold
	AlertResolved  AlertLevel = "resolved"  // Reading returned inside the threshold
)

// Alert represents a reading threshold notification.
type Alert struct {
	Level      AlertLevel `json:"level"`
	Rule       string     `json:"rule"`
	Account    string     `json:"account"`
	Sensor     string     `json:"sensor"`
	Comparison string     `json:"comparison"`
	Value      float64    `json:"value"`
	Threshold  float64    `json:"threshold"`
	Unit       string     `json:"unit"`
	Message    string     `json:"message"`
}

// Notifier sends alerts to external systems.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers an alert. Implementations must be safe for concurrent use.
	Send(ctx context.Context, alert Alert) error
}
