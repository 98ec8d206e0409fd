package gateway

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"foodpay/utils"
)

// Decision is the gateway's verdict on a payment. ExternalRef is set only on
// approval, Reason only on decline.
type Decision struct {
	Approved    bool   `json:"approved"`
	ExternalRef string `json:"external_ref,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Gateway is the external settlement collaborator. The ledger calls Decide at
// most once per payment; idempotency on the provider side is not assumed.
type Gateway interface {
	Decide(ctx context.Context, paymentID string) (*Decision, error)
}

const declineReason = "Transaction declined by bank"

// Sandbox simulates a UPI gateway: it approves a configurable fraction of
// payments and mints upi_-prefixed references. All randomness in the payment
// funnel lives here, never in the ledger.
type Sandbox struct {
	approvalRate float64
}

func NewSandbox(approvalRate float64) *Sandbox {
	if approvalRate < 0 {
		approvalRate = 0
	}
	if approvalRate > 1 {
		approvalRate = 1
	}
	return &Sandbox{approvalRate: approvalRate}
}

func (g *Sandbox) Decide(ctx context.Context, paymentID string) (*Decision, error) {
	roll, err := randomFraction()
	if err != nil {
		return nil, fmt.Errorf("gateway roll: %w", err)
	}

	if roll >= g.approvalRate {
		return &Decision{Approved: false, Reason: declineReason}, nil
	}

	ref, err := utils.GenerateCode(4)
	if err != nil {
		return nil, fmt.Errorf("gateway ref: %w", err)
	}

	return &Decision{Approved: true, ExternalRef: fmt.Sprintf("upi_%s", ref)}, nil
}

func randomFraction() (float64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return float64(binary.BigEndian.Uint64(buf[:])>>11) / (1 << 53), nil
}
