package model

import "strings"

// Account is one RetailCRM installation (tenant) with its destination
// Telegram channel. Immutable after config load.
type Account struct {
	URLFragment       string
	BaseURL           string
	APIKey            string
	TelegramChannelID string
	Currency          string
}

// Registry resolves a candidate account URL to a configured Account.
// Matching is substring-based: the first account whose URLFragment occurs
// in the candidate wins. An empty or unmatched candidate falls back to the
// default account.
type Registry struct {
	accounts []*Account
	def      *Account
}

func NewRegistry(accounts []*Account, defaultFragment string) *Registry {
	r := &Registry{accounts: accounts}
	for _, a := range accounts {
		if a.URLFragment == defaultFragment {
			r.def = a
			break
		}
	}
	if r.def == nil && len(accounts) > 0 {
		r.def = accounts[0]
	}
	return r
}

// Match returns the account owning candidateURL and whether the match was
// exact (false means the default account was assumed).
func (r *Registry) Match(candidateURL string) (*Account, bool) {
	if candidateURL != "" {
		lower := strings.ToLower(candidateURL)
		for _, a := range r.accounts {
			if a.URLFragment != "" && strings.Contains(lower, strings.ToLower(a.URLFragment)) {
				return a, true
			}
		}
	}
	return r.def, false
}

func (r *Registry) Default() *Account { return r.def }

// All returns every configured account, used for cross-tenant fallback.
func (r *Registry) All() []*Account { return r.accounts }

// Others returns all accounts except the given one, preserving order.
func (r *Registry) Others(except *Account) []*Account {
	out := make([]*Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		if a != except {
			out = append(out, a)
		}
	}
	return out
}
