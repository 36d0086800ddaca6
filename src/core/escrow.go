package main

// EscrowLedger is the multi-currency balance ledger backing bounty payments.
// Each account holds a free balance and a reserved balance per currency;
// bounty escrow lives in the reserved bucket until it is released or
// repatriated. The ledger carries no lock of its own: every mutation happens
// under the node's state mutex so that an action's escrow movement commits
// together with its registry mutations.
type EscrowLedger struct {
	Free     map[CurrencyId]map[string]uint64 `json:"free"`
	Reserved map[CurrencyId]map[string]uint64 `json:"reserved"`
	Issuance map[CurrencyId]uint64            `json:"issuance"`
}

// NewEscrowLedger creates an empty ledger
func NewEscrowLedger() *EscrowLedger {
	return &EscrowLedger{
		Free:     make(map[CurrencyId]map[string]uint64),
		Reserved: make(map[CurrencyId]map[string]uint64),
		Issuance: make(map[CurrencyId]uint64),
	}
}

func (l *EscrowLedger) freeOf(currency CurrencyId) map[string]uint64 {
	m, ok := l.Free[currency]
	if !ok {
		m = make(map[string]uint64)
		l.Free[currency] = m
	}
	return m
}

func (l *EscrowLedger) reservedOf(currency CurrencyId) map[string]uint64 {
	m, ok := l.Reserved[currency]
	if !ok {
		m = make(map[string]uint64)
		l.Reserved[currency] = m
	}
	return m
}

// Deposit mints new funds into an account's free balance and raises total
// issuance. Used for genesis endowments and session reward payouts.
func (l *EscrowLedger) Deposit(currency CurrencyId, account string, amount uint64) {
	l.freeOf(currency)[account] += amount
	l.Issuance[currency] += amount
}

// FreeBalance returns the spendable balance of an account
func (l *EscrowLedger) FreeBalance(currency CurrencyId, account string) uint64 {
	return l.freeOf(currency)[account]
}

// ReservedBalance returns the escrowed balance of an account
func (l *EscrowLedger) ReservedBalance(currency CurrencyId, account string) uint64 {
	return l.reservedOf(currency)[account]
}

// TotalIssuance returns the total amount of a currency ever minted
func (l *EscrowLedger) TotalIssuance(currency CurrencyId) uint64 {
	return l.Issuance[currency]
}

// CanReserve reports whether the account's free balance covers amount
func (l *EscrowLedger) CanReserve(currency CurrencyId, account string, amount uint64) bool {
	return l.freeOf(currency)[account] >= amount
}

// Reserve moves amount from free to reserved. Fails with ErrCantPay when the
// free balance is short, leaving both buckets untouched.
func (l *EscrowLedger) Reserve(currency CurrencyId, account string, amount uint64) error {
	free := l.freeOf(currency)
	if free[account] < amount {
		return ErrCantPay
	}
	free[account] -= amount
	l.reservedOf(currency)[account] += amount
	return nil
}

// Unreserve moves up to amount back from reserved to free and returns the
// portion that could not be unreserved because the reservation was smaller.
func (l *EscrowLedger) Unreserve(currency CurrencyId, account string, amount uint64) uint64 {
	reserved := l.reservedOf(currency)
	moved := amount
	if reserved[account] < amount {
		moved = reserved[account]
	}
	reserved[account] -= moved
	l.freeOf(currency)[account] += moved
	return amount - moved
}

// Repatriate moves amount out of `from`'s reservation directly into `to`'s
// free balance, with no intermediate unreserve step. Fails with ErrCantPay
// when the reservation is short; on failure nothing moves.
func (l *EscrowLedger) Repatriate(currency CurrencyId, from, to string, amount uint64) error {
	reserved := l.reservedOf(currency)
	if reserved[from] < amount {
		return ErrCantPay
	}
	reserved[from] -= amount
	l.freeOf(currency)[to] += amount
	return nil
}

// BalancesOf returns the free and reserved balances of an account across all
// currencies, for the query API.
func (l *EscrowLedger) BalancesOf(account string) map[CurrencyId]map[string]uint64 {
	out := make(map[CurrencyId]map[string]uint64)
	for currency, accounts := range l.Free {
		if amount, ok := accounts[account]; ok && amount > 0 {
			out[currency] = map[string]uint64{"free": amount}
		}
	}
	for currency, accounts := range l.Reserved {
		if amount, ok := accounts[account]; ok && amount > 0 {
			if _, exists := out[currency]; !exists {
				out[currency] = map[string]uint64{}
			}
			out[currency]["reserved"] = amount
		}
	}
	return out
}
