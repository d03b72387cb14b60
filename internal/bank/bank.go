// Package bank keeps per-currency account balances and moves funds between
// accounts. It stands in for the settlement layer: escrowed auction funds
// live in a bank account owned by the auction engine until refunded or paid
// out, and marketplace sales move the listed currency from buyer to seller.
//
// Every mutation validates fully before committing; a failed transfer
// leaves both accounts untouched.
package bank

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientFunds is returned when the source account cannot
	// cover the requested amount in the requested currency.
	ErrInsufficientFunds = errors.New("bank: insufficient funds")

	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("bank: amount must be positive")

	// ErrInvalidAccount is returned for empty account identifiers.
	ErrInvalidAccount = errors.New("bank: invalid account")
)

// Bank is an in-memory balance ledger keyed by currency then account.
type Bank struct {
	mu       sync.RWMutex
	balances map[string]map[string]decimal.Decimal
}

// New creates an empty bank.
func New() *Bank {
	return &Bank{
		balances: make(map[string]map[string]decimal.Decimal),
	}
}

// Credit adds funds to an account. Used by the admin faucet to fund
// accounts; there is no corresponding debit outside Transfer.
func (b *Bank) Credit(account, currency string, amount decimal.Decimal) error {
	if account == "" {
		return ErrInvalidAccount
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	cur := b.balances[currency]
	if cur == nil {
		cur = make(map[string]decimal.Decimal)
		b.balances[currency] = cur
	}
	cur[account] = cur[account].Add(amount)
	return nil
}

// Transfer moves amount from one account to another in a single currency.
// Either both balances change or neither does.
func (b *Bank) Transfer(from, to, currency string, amount decimal.Decimal) error {
	if from == "" || to == "" {
		return ErrInvalidAccount
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	cur := b.balances[currency]
	if cur == nil || cur[from].LessThan(amount) {
		return fmt.Errorf("%w: %s needs %s %s", ErrInsufficientFunds, from, amount, currency)
	}

	cur[from] = cur[from].Sub(amount)
	cur[to] = cur[to].Add(amount)
	return nil
}

// BalanceOf returns the account's balance in one currency.
func (b *Bank) BalanceOf(account, currency string) decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if cur := b.balances[currency]; cur != nil {
		return cur[account]
	}
	return decimal.Zero
}

// Balances returns all non-zero balances for an account, keyed by currency.
func (b *Bank) Balances(account string) map[string]decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]decimal.Decimal)
	for currency, accounts := range b.balances {
		if amt, ok := accounts[account]; ok && !amt.IsZero() {
			out[currency] = amt
		}
	}
	return out
}
