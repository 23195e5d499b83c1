package model

import (
	"encoding/json"
	"fmt"
)

// DecodeRecord unmarshals a JSON object into the record type of collection c
func DecodeRecord(c Collection, data []byte) (Record, error) {
	switch c {
	case CollectionPayments:
		var t Transaction
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("failed to decode payment: %w", err)
		}
		return t, nil
	case CollectionAuthLogs:
		var e AuthEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to decode auth event: %w", err)
		}
		return e, nil
	case CollectionDisputes:
		var d Dispute
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("failed to decode dispute: %w", err)
		}
		return d, nil
	case CollectionKYCEvents:
		var k KYCEvent
		if err := json.Unmarshal(data, &k); err != nil {
			return nil, fmt.Errorf("failed to decode kyc event: %w", err)
		}
		return k, nil
	default:
		return nil, fmt.Errorf("unknown collection: %s", c)
	}
}
