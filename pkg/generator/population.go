package generator

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
)

// Population is the shared entity universe read by every synthesizer
type Population struct {
	Customers []*model.Customer
	Merchants []*model.Merchant
	// ATOCustomers holds the takeover targets in ascending id order
	ATOCustomers []int64
}

// Customer returns the customer with the given id, or nil
func (p *Population) Customer(id int64) *model.Customer {
	if id < 1 || id > int64(len(p.Customers)) {
		return nil
	}
	return p.Customers[id-1]
}

// Merchant returns the merchant with the given id, or nil
func (p *Population) Merchant(id int64) *model.Merchant {
	if id < 1 || id > int64(len(p.Merchants)) {
		return nil
	}
	return p.Merchants[id-1]
}

// HighRiskMerchants lists high risk merchant ids in ascending order
func (p *Population) HighRiskMerchants() []int64 {
	var ids []int64
	for _, m := range p.Merchants {
		if m.Category == model.MerchantHighRisk {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// CustomerByToken indexes customers by card token
func (p *Population) CustomerByToken() map[string]*model.Customer {
	index := make(map[string]*model.Customer, len(p.Customers))
	for _, c := range p.Customers {
		index[c.CardToken] = c
	}
	return index
}

// BuildPopulation creates customers and merchants. Device ids come from one
// sequence so no id is shared between customers.
func BuildPopulation(p Params, s *Stream) *Population {
	n := p.Customers

	ato := make(map[int64]bool)
	if len(p.ATOCustomers) > 0 {
		for _, id := range p.ATOCustomers {
			ato[id] = true
		}
	} else {
		for _, i := range s.Sample(n, int(float64(n)*p.ATORatio)) {
			ato[int64(i+1)] = true
		}
	}

	twoFactor := make(map[int64]bool)
	for _, i := range s.Sample(n, int(float64(n)*p.TwoFactorRatio)) {
		twoFactor[int64(i+1)] = true
	}

	devices := NewSequence(1)
	pop := &Population{
		Customers: make([]*model.Customer, 0, n),
		Merchants: make([]*model.Merchant, 0, p.Merchants),
	}

	for i := 1; i <= n; i++ {
		id := int64(i)
		c := &model.Customer{
			ID:        id,
			Devices:   []int64{devices.Next()},
			TwoFactor: twoFactor[id],
		}
		if s.Chance(p.MultipleDeviceRatio) {
			c.Devices = append(c.Devices, devices.Next())
		}
		if ato[id] {
			c.AttackerDevice = devices.Next()
		}

		network := Pick(s, cardNetworks)
		c.CardNetwork = network.Name
		c.CardToken = sha256Hex(s.CardNumber(network))
		c.HomeCountry = s.CountryCode()

		pop.Customers = append(pop.Customers, c)
	}

	for id := range ato {
		pop.ATOCustomers = append(pop.ATOCustomers, id)
	}
	sort.Slice(pop.ATOCustomers, func(i, j int) bool { return pop.ATOCustomers[i] < pop.ATOCustomers[j] })

	for i := 1; i <= p.Merchants; i++ {
		m := &model.Merchant{ID: int64(i)}
		if s.Chance(0.1) {
			m.MCC = Pick(s, highRiskMCCs)
			m.Category = model.MerchantHighRisk
		} else {
			m.MCC = Pick(s, normalMCCs)
			m.Category = model.MerchantNormal
		}
		m.Country = s.CountryCode()
		pop.Merchants = append(pop.Merchants, m)
	}

	return pop
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
