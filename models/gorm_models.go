package models

import "time"

// Vehicle is a configuration record describing a vehicle class that can be
// requested on an indent. Only active vehicles are accepted at input
// validation time; the transition engine itself never reads this table.
type Vehicle struct {
	ID            int       `json:"id" gorm:"primaryKey;autoIncrement"`
	VehicleNumber string    `json:"vehicle_number" gorm:"type:varchar(32);not null;uniqueIndex"`
	VehicleType   string    `json:"vehicle_type" gorm:"type:varchar(64);not null"`
	Capacity      int       `json:"capacity" gorm:"not null;default:0"`
	Status        string    `json:"status" gorm:"type:varchar(16);not null;default:'active';index"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Vehicle) TableName() string {
	return "vehicle_details"
}

// Location is a configuration record for a start/end point or waypoint.
// Restricted locations are flagged for the UI; the flag does not gate any
// status transition.
type Location struct {
	ID         int       `json:"id" gorm:"primaryKey;autoIncrement"`
	Name       string    `json:"name" gorm:"type:varchar(128);not null;uniqueIndex"`
	Restricted bool      `json:"restricted" gorm:"not null;default:false"`
	Active     bool      `json:"active" gorm:"not null;default:true;index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Location) TableName() string {
	return "locations"
}
