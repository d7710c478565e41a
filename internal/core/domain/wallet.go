package domain

import (
	"time"

	"github.com/google/uuid"
)

// OwnerType identifies which kind of marketplace participant owns a wallet.
type OwnerType string

const (
	OwnerTypeFarmer  OwnerType = "FARMER"
	OwnerTypeCompany OwnerType = "COMPANY"
	OwnerTypeBuyer   OwnerType = "BUYER"
)

// WalletTier determines the withdrawal limits applied to a wallet.
type WalletTier string

const (
	TierBronze   WalletTier = "BRONZE"
	TierSilver   WalletTier = "SILVER"
	TierGold     WalletTier = "GOLD"
	TierPlatinum WalletTier = "PLATINUM"
)

// TierLimits holds the fixed limit table for one tier. Amounts are in minor
// currency units.
type TierLimits struct {
	DailyWithdrawLimit     int64 `json:"daily_withdraw_limit"`
	SingleTransactionLimit int64 `json:"single_transaction_limit"`
	PINThreshold           int64 `json:"pin_threshold"`
}

// tierLimitTable is the authoritative tier-to-limit mapping.
var tierLimitTable = map[WalletTier]TierLimits{
	TierBronze:   {DailyWithdrawLimit: 5_000_000, SingleTransactionLimit: 1_000_000, PINThreshold: 200_000},
	TierSilver:   {DailyWithdrawLimit: 20_000_000, SingleTransactionLimit: 5_000_000, PINThreshold: 500_000},
	TierGold:     {DailyWithdrawLimit: 100_000_000, SingleTransactionLimit: 20_000_000, PINThreshold: 2_000_000},
	TierPlatinum: {DailyWithdrawLimit: 500_000_000, SingleTransactionLimit: 100_000_000, PINThreshold: 10_000_000},
}

// LimitsForTier returns the limit table for a tier, falling back to BRONZE
// for unknown tiers.
func LimitsForTier(tier WalletTier) TierLimits {
	if l, ok := tierLimitTable[tier]; ok {
		return l
	}
	return tierLimitTable[TierBronze]
}

// Wallet is a per-user balance record. Balance and EscrowBalance are integer
// minor currency units; Version increments by exactly 1 on every successful
// mutation and backs the optimistic-concurrency check.
type Wallet struct {
	ID                     uuid.UUID  `json:"id"`
	OwnerID                uuid.UUID  `json:"owner_id"`
	OwnerType              OwnerType  `json:"owner_type"`
	Balance                int64      `json:"balance"`
	EscrowBalance          int64      `json:"escrow_balance"`
	Version                int64      `json:"version"`
	Tier                   WalletTier `json:"tier"`
	DailyWithdrawLimit     int64      `json:"daily_withdraw_limit"`
	SingleTransactionLimit int64      `json:"single_transaction_limit"`
	DailyWithdrawnToday    int64      `json:"daily_withdrawn_today"`
	LastWithdrawReset      time.Time  `json:"last_withdraw_reset"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// NewWallet creates a wallet for an owner with tier-default limits.
func NewWallet(ownerID uuid.UUID, ownerType OwnerType, now time.Time) *Wallet {
	limits := LimitsForTier(TierBronze)
	return &Wallet{
		ID:                     uuid.New(),
		OwnerID:                ownerID,
		OwnerType:              ownerType,
		Version:                1,
		Tier:                   TierBronze,
		DailyWithdrawLimit:     limits.DailyWithdrawLimit,
		SingleTransactionLimit: limits.SingleTransactionLimit,
		LastWithdrawReset:      now.UTC().Truncate(24 * time.Hour),
		CreatedAt:              now.UTC(),
		UpdatedAt:              now.UTC(),
	}
}

// NeedsDailyReset reports whether the rolling withdrawal counter belongs to a
// prior calendar day (UTC) and must be zeroed before limit checks.
func (w *Wallet) NeedsDailyReset(now time.Time) bool {
	return w.LastWithdrawReset.UTC().Truncate(24 * time.Hour).
		Before(now.UTC().Truncate(24 * time.Hour))
}

// ApplyDailyReset zeroes the rolling counter and stamps today.
func (w *Wallet) ApplyDailyReset(now time.Time) {
	w.DailyWithdrawnToday = 0
	w.LastWithdrawReset = now.UTC().Truncate(24 * time.Hour)
}

// ApplyTier switches the wallet to a tier and its default limits.
func (w *Wallet) ApplyTier(tier WalletTier) {
	limits := LimitsForTier(tier)
	w.Tier = tier
	w.DailyWithdrawLimit = limits.DailyWithdrawLimit
	w.SingleTransactionLimit = limits.SingleTransactionLimit
}
