package model

// MerchantCategory is the risk bucket of a merchant
type MerchantCategory string

const (
	MerchantHighRisk MerchantCategory = "high_risk"
	MerchantNormal   MerchantCategory = "normal"
)

// Customer is a member of the simulated population. Customers are created once
// and never mutated afterwards.
type Customer struct {
	ID          int64
	CardToken   string
	Devices     []int64
	HomeCountry string
	CardNetwork string
	TwoFactor   bool
	// AttackerDevice is zero unless the customer is an account takeover target
	AttackerDevice int64
}

// PrimaryDevice returns the first trusted device
func (c *Customer) PrimaryDevice() int64 {
	return c.Devices[0]
}

// HasDevice reports whether id is one of the customer's trusted devices
func (c *Customer) HasDevice(id int64) bool {
	for _, d := range c.Devices {
		if d == id {
			return true
		}
	}
	return false
}

// IsATOTarget reports whether the customer was selected for account takeover
func (c *Customer) IsATOTarget() bool {
	return c.AttackerDevice != 0
}

// Merchant is an immutable acceptor of payments
type Merchant struct {
	ID       int64
	MCC      int
	Country  string
	Category MerchantCategory
}
