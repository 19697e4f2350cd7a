package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the persisted identity record. Email and phone carry unique
// constraints; uniqueness violations surface as pq constraint errors that the
// user repository maps to domain errors.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Email        string     `bun:"email,notnull,unique"`
	Phone        string     `bun:"phone,notnull,unique"`
	PasswordHash string     `bun:"password_hash,notnull"`
	FirstName    *string    `bun:"first_name"`
	LastName     *string    `bun:"last_name"`
	Image        *string    `bun:"image"`
	ProfileSetup bool       `bun:"profile_setup,notnull,default:false"`
	CreatedAt    time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`

	Bookings []*Booking `bun:"rel:has-many,join:id=user_id"`
}

// Booking statuses.
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCompleted = "completed"
	BookingStatusCancelled = "cancelled"
)

// Payment methods accepted on a booking.
const (
	PaymentMethodCash = "cash"
	PaymentMethodUPI  = "UPI"
	PaymentMethodCard = "card"
)

// RouteStop is one waypoint on a booking's route.
type RouteStop struct {
	Location string     `json:"location"`
	Lat      float64    `json:"lat"`
	Lng      float64    `json:"lng"`
	StopTime *time.Time `json:"stopTime,omitempty"`
}

// Booking is a trip record linking a user to a driver. No endpoint mutates
// bookings yet; the schema backs the booking relations on User and Driver.
type Booking struct {
	bun.BaseModel `bun:"table:bookings,alias:b"`

	ID            uuid.UUID   `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserID        uuid.UUID   `bun:"user_id,type:uuid,notnull"`
	DriverID      uuid.UUID   `bun:"driver_id,type:uuid,notnull"`
	StartDate     time.Time   `bun:"start_date,notnull"`
	EndDate       time.Time   `bun:"end_date,notnull"`
	TotalDistance float64     `bun:"total_distance,notnull"`
	TotalCost     float64     `bun:"total_cost,notnull"`
	Status        string      `bun:"status,notnull,default:'pending'"`
	Route         []RouteStop `bun:"route,type:jsonb"`
	PaymentMethod string      `bun:"payment_method,notnull"`
	PaymentPaid   bool        `bun:"payment_paid,notnull,default:false"`
	CreatedAt     time.Time   `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time   `bun:"updated_at,nullzero,notnull,default:current_timestamp"`

	User   *User   `bun:"rel:belongs-to,join:user_id=id"`
	Driver *Driver `bun:"rel:belongs-to,join:driver_id=id"`
}

// Vehicle types a driver can operate.
const (
	VehicleTypeSedan = "sedan"
	VehicleTypeSUV   = "SUV"
	VehicleTypeAuto  = "auto"
	VehicleTypeBike  = "bike"
)

type Driver struct {
	bun.BaseModel `bun:"table:drivers,alias:d"`

	ID            uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Name          string     `bun:"name,notnull"`
	Phone         string     `bun:"phone,notnull,unique"`
	VehicleNumber string     `bun:"vehicle_number,notnull"`
	VehicleType   string     `bun:"vehicle_type,notnull"`
	OperatorID    *uuid.UUID `bun:"operator_id,type:uuid"`
	IsAvailable   bool       `bun:"is_available,notnull,default:true"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`

	Operator *Operator `bun:"rel:belongs-to,join:operator_id=id"`
}

type Operator struct {
	bun.BaseModel `bun:"table:operators,alias:o"`

	ID            uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Name          string    `bun:"name,notnull"`
	Address       *string   `bun:"address"`
	ContactNumber string    `bun:"contact_number,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`

	Drivers []*Driver `bun:"rel:has-many,join:id=operator_id"`
}
