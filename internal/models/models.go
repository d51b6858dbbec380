// Package models holds the gorm entities of the service.
package models

// All returns every entity in migration order.
func All() []any {
	return []any{
		// Identity & authorization
		&Permission{},
		&Profile{},
		&User{},
		&ActivityLog{},
		// Supply chain
		&Site{},
		&SiteOperation{},
		&Extraction{},
		&Stock{},
		&Truck{},
		&Transport{},
		&TransportLocation{},
		&Export{},
		&ExportDocument{},
		// Environment
		&EnvironmentMeasure{},
		&EnvironmentThreshold{},
		&EnvironmentAlert{},
		// Notifications & reporting
		&Notification{},
		&EmailNotification{},
		&DashboardMetric{},
		&Report{},
	}
}
