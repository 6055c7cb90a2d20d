package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockRepo struct {
	mu      sync.Mutex
	items   map[string][]LineItem
	loadErr error
	saveErr error
	saves   int
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[string][]LineItem)}
}

func (m *mockRepo) Load(_ context.Context, cartID string) ([]LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.items[cartID], nil
}

func (m *mockRepo) Save(_ context.Context, cartID string, items []LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.items[cartID] = items
	m.saves++
	return nil
}

type mockCheckout struct {
	url   string
	err   error
	block chan struct{} // when set, CreateCheckout waits for close or ctx

	mu    sync.Mutex
	calls int
	lines []CheckoutLine
}

func (m *mockCheckout) CreateCheckout(ctx context.Context, lines []CheckoutLine) (string, error) {
	m.mu.Lock()
	m.calls++
	m.lines = lines
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.url, m.err
}

func (m *mockCheckout) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Tests ---

func TestAddItem_RejectsNonPositiveQuantity(t *testing.T) {
	svc := NewService(newMockRepo(), &mockCheckout{})

	for _, quantity := range []int{0, -1} {
		item := newTestItem("v1", "25.00", quantity)
		_, err := svc.AddItem(context.Background(), "c1", item)

		var iqErr *InvalidQuantityError
		require.ErrorAs(t, err, &iqErr)
		assert.Equal(t, "v1", iqErr.VariantID)
	}
}

func TestAddItem_PersistsMergedState(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockCheckout{})

	_, err := svc.AddItem(context.Background(), "c1", newTestItem("v1", "25.00", 1))
	require.NoError(t, err)
	c, err := svc.AddItem(context.Background(), "c1", newTestItem("v1", "25.00", 2))
	require.NoError(t, err)

	assert.Equal(t, 3, c.TotalItems())
	require.Len(t, repo.items["c1"], 1)
	assert.Equal(t, 3, repo.items["c1"][0].Quantity)
	assert.Equal(t, 2, repo.saves)
}

func TestUpdateQuantity_PersistsRemoval(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockCheckout{})

	_, err := svc.AddItem(context.Background(), "c1", newTestItem("v1", "25.00", 2))
	require.NoError(t, err)

	c, err := svc.UpdateQuantity(context.Background(), "c1", "v1", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, repo.items["c1"])
}

func TestRemoveItem_UnknownVariantStillSaves(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockCheckout{})

	c, err := svc.RemoveItem(context.Background(), "c1", "missing")
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestMutate_SaveFailure(t *testing.T) {
	repo := newMockRepo()
	repo.saveErr = errors.New("db down")
	svc := NewService(repo, &mockCheckout{})

	_, err := svc.AddItem(context.Background(), "c1", newTestItem("v1", "25.00", 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save cart")
}

func TestCreateCheckout_Success(t *testing.T) {
	repo := newMockRepo()
	repo.items["c1"] = []LineItem{newTestItem("v1", "25.00", 2)}
	checkout := &mockCheckout{url: "https://shop/co/abc"}
	svc := NewService(repo, checkout)

	url, err := svc.CreateCheckout(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "https://shop/co/abc", url)
	assert.False(t, svc.CheckoutInFlight("c1"))

	require.Len(t, checkout.lines, 1)
	assert.Equal(t, CheckoutLine{VariantID: "v1", Quantity: 2}, checkout.lines[0])
}

func TestCreateCheckout_FailureKeepsCartAndClearsFlag(t *testing.T) {
	repo := newMockRepo()
	repo.items["c1"] = []LineItem{newTestItem("v1", "25.00", 2)}
	checkout := &mockCheckout{err: errors.New("platform unavailable")}
	svc := NewService(repo, checkout)

	_, err := svc.CreateCheckout(context.Background(), "c1")
	require.Error(t, err)

	assert.False(t, svc.CheckoutInFlight("c1"))
	// Cart contents untouched on failure.
	require.Len(t, repo.items["c1"], 1)
	assert.Equal(t, 2, repo.items["c1"][0].Quantity)
}

func TestCreateCheckout_RejectsConcurrentCall(t *testing.T) {
	repo := newMockRepo()
	repo.items["c1"] = []LineItem{newTestItem("v1", "25.00", 1)}
	checkout := &mockCheckout{url: "https://shop/co/abc", block: make(chan struct{})}
	svc := NewService(repo, checkout)

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.CreateCheckout(context.Background(), "c1")
		firstDone <- err
	}()

	// Wait until the first call is holding the in-flight flag.
	require.Eventually(t, func() bool {
		return svc.CheckoutInFlight("c1")
	}, time.Second, time.Millisecond)

	_, err := svc.CreateCheckout(context.Background(), "c1")
	require.ErrorIs(t, err, ErrCheckoutInFlight)
	assert.Equal(t, 1, checkout.callCount())

	// A different cart is not blocked by c1's outstanding checkout.
	repo.items["c2"] = []LineItem{newTestItem("v2", "10.00", 1)}
	assert.False(t, svc.CheckoutInFlight("c2"))

	close(checkout.block)
	require.NoError(t, <-firstDone)
	assert.False(t, svc.CheckoutInFlight("c1"))
}

func TestCreateCheckout_MutationsNotBlockedWhileInFlight(t *testing.T) {
	repo := newMockRepo()
	repo.items["c1"] = []LineItem{newTestItem("v1", "25.00", 1)}
	checkout := &mockCheckout{url: "https://shop/co/abc", block: make(chan struct{})}
	svc := NewService(repo, checkout)

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.CreateCheckout(context.Background(), "c1")
		firstDone <- err
	}()
	require.Eventually(t, func() bool {
		return svc.CheckoutInFlight("c1")
	}, time.Second, time.Millisecond)

	// Add/update/remove stay available while the checkout call is outstanding.
	_, err := svc.AddItem(context.Background(), "c1", newTestItem("v2", "10.00", 1))
	require.NoError(t, err)

	close(checkout.block)
	require.NoError(t, <-firstDone)
}

func TestCreateCheckout_TimeoutClearsFlag(t *testing.T) {
	repo := newMockRepo()
	repo.items["c1"] = []LineItem{newTestItem("v1", "25.00", 1)}
	checkout := &mockCheckout{url: "https://shop/co/abc", block: make(chan struct{})}
	svc := NewService(repo, checkout, WithCheckoutTimeout(10*time.Millisecond))

	_, err := svc.CreateCheckout(context.Background(), "c1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, svc.CheckoutInFlight("c1"))
}

func TestCreateCheckout_EmptyCartNotBlocked(t *testing.T) {
	checkout := &mockCheckout{url: "https://shop/co/empty"}
	svc := NewService(newMockRepo(), checkout)

	url, err := svc.CreateCheckout(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "https://shop/co/empty", url)
	assert.Empty(t, checkout.lines)
}

func TestGet_HydratesPersistedState(t *testing.T) {
	repo := newMockRepo()
	repo.items["c1"] = []LineItem{
		newTestItem("v1", "25.00", 2),
		newTestItem("v2", "10.00", 1),
	}
	svc := NewService(repo, &mockCheckout{})

	c, err := svc.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, c.TotalItems())

	ids := []string{c.Items()[0].VariantID, c.Items()[1].VariantID}
	assert.Equal(t, []string{"v1", "v2"}, ids)
}
