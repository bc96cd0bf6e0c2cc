// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/domain"
	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/domain/model"
)

// newTestLogger creates a silent logger for tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(nil)
	return &logger
}

// mockCRM is a configurable in-memory CRM gateway. Each method counts its
// calls and dispatches to an optional hook so tests can script lag, site
// errors, and wrong-tenant behavior.
type mockCRM struct {
	mu sync.Mutex

	SearchByNumberFunc func(acc *model.Account, number, site string) (model.ResolvedOrder, error)
	GetOrderFunc       func(acc *model.Account, id int, site string) (model.ResolvedOrder, error)
	ListOrdersFunc     func(acc *model.Account, status string, limit int) ([]model.ResolvedOrder, error)
	SitesFunc          func(acc *model.Account) ([]string, error)
	GetUserFunc        func(acc *model.Account, id int) (model.ResolvedOrder, error)

	searchCalls int
	getCalls    int
	siteCalls   int
	userCalls   int
}

func (m *mockCRM) SearchByNumber(_ context.Context, acc *model.Account, number, site string) (model.ResolvedOrder, error) {
	m.mu.Lock()
	m.searchCalls++
	m.mu.Unlock()
	if m.SearchByNumberFunc != nil {
		return m.SearchByNumberFunc(acc, number, site)
	}
	return nil, domain.ErrOrderNotFound
}

func (m *mockCRM) GetOrder(_ context.Context, acc *model.Account, id int, site string) (model.ResolvedOrder, error) {
	m.mu.Lock()
	m.getCalls++
	m.mu.Unlock()
	if m.GetOrderFunc != nil {
		return m.GetOrderFunc(acc, id, site)
	}
	return nil, domain.ErrOrderNotFound
}

func (m *mockCRM) ListOrders(_ context.Context, acc *model.Account, status string, limit int) ([]model.ResolvedOrder, error) {
	if m.ListOrdersFunc != nil {
		return m.ListOrdersFunc(acc, status, limit)
	}
	return nil, nil
}

func (m *mockCRM) Sites(_ context.Context, acc *model.Account) ([]string, error) {
	m.mu.Lock()
	m.siteCalls++
	m.mu.Unlock()
	if m.SitesFunc != nil {
		return m.SitesFunc(acc)
	}
	return nil, nil
}

func (m *mockCRM) GetUser(_ context.Context, acc *model.Account, id int) (model.ResolvedOrder, error) {
	m.mu.Lock()
	m.userCalls++
	m.mu.Unlock()
	if m.GetUserFunc != nil {
		return m.GetUserFunc(acc, id)
	}
	return nil, domain.ErrOrderNotFound
}

// mockNotifier records every send; fail makes all sends report failure.
type mockNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	fail bool
}

type sentMessage struct {
	Channel string
	Text    string
}

func (m *mockNotifier) Send(_ context.Context, channelID, text string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return false
	}
	m.sent = append(m.sent, sentMessage{Channel: channelID, Text: text})
	return true
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func testAccounts() []*model.Account {
	return []*model.Account{
		{URLFragment: "shop-one", BaseURL: "https://shop-one.retailcrm.example", APIKey: "key-1", TelegramChannelID: "-1001", Currency: "USD"},
		{URLFragment: "shop-two", BaseURL: "https://shop-two.retailcrm.example", APIKey: "key-2", TelegramChannelID: "-1002", Currency: "GHS"},
	}
}

func testRegistry() *model.Registry {
	return model.NewRegistry(testAccounts(), "shop-one")
}

// newTestResolver builds a resolver with no real retry delays.
func newTestResolver(gw CRMGateway, registry *model.Registry) *resolverUC {
	r := NewResolverUseCase(gw, registry, []string{"main"}, newTestLogger())
	r.retryDelay = 0
	return r
}
