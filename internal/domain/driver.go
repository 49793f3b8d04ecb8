package domain

import (
	"math"
	"strings"
	"time"
)

// Vehicle describes the car a driver operates.
type Vehicle struct {
	Make         string
	Model        string
	Year         int
	LicensePlate string
	Color        string
	Categories   []Category
}

// Normalize trims text fields, upper-cases the plate and defaults the
// category set to economy.
func (v *Vehicle) Normalize() {
	v.Make = strings.TrimSpace(v.Make)
	v.Model = strings.TrimSpace(v.Model)
	v.Color = strings.TrimSpace(v.Color)
	v.LicensePlate = strings.ToUpper(strings.TrimSpace(v.LicensePlate))
	if len(v.Categories) == 0 {
		v.Categories = []Category{CategoryEconomy}
	}
}

// DriverRating is a running mean over all ratings received.
type DriverRating struct {
	Average float64
	Count   int
}

// Add folds one score into the aggregate. The new average is rounded to one
// decimal place.
func (r DriverRating) Add(score int) DriverRating {
	count := r.Count + 1
	sum := float64(r.Average*float64(r.Count)) + float64(score)
	return DriverRating{
		Average: math.Round(sum/float64(count)*10) / 10,
		Count:   count,
	}
}

// Driver represents a driver's operating profile.
type Driver struct {
	ID            string
	AccountID     string
	Vehicle       Vehicle
	LicenseNumber string
	Available     bool
	Location      *Location // nil until the driver reports a position
	Rating        DriverRating
	TotalRides    int
	Earnings      int64
	CreatedAt     time.Time
}

// CanServe reports whether the driver's vehicle is registered for category.
func (d *Driver) CanServe(category Category) bool {
	for _, c := range d.Vehicle.Categories {
		if c == category {
			return true
		}
	}
	return false
}
