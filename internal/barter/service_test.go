package barter

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Juanes-crypto/grupo-agro-backend/internal/cache"
	"github.com/Juanes-crypto/grupo-agro-backend/internal/config"
	"github.com/Juanes-crypto/grupo-agro-backend/internal/domain"
	"github.com/Juanes-crypto/grupo-agro-backend/internal/events"
	"github.com/Juanes-crypto/grupo-agro-backend/internal/notifications"
	apperrors "github.com/Juanes-crypto/grupo-agro-backend/pkg/errors"
)

type serviceEnv struct {
	*testStore
	service   *Service
	publisher *events.InMemoryPublisher
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()

	store := newTestStore(t)
	logger := zap.NewNop()
	cfg := &config.Config{
		MinReputation:   3,
		FairTradeMaxPct: 20,
		BlockedTradePct: 40,
		CacheTTL:        60,
	}

	publisher := events.NewInMemoryPublisher(logger)
	service := NewService(
		store.proposals, store.products, store.users,
		NewExecutor(store.db, logger),
		publisher,
		notifications.NopDispatcher{},
		cache.NewInMemoryCache(logger),
		cfg, logger,
	)

	return &serviceEnv{testStore: store, service: service, publisher: publisher}
}

func (e *serviceEnv) fairInput(t *testing.T, recipient *domain.User, offered, requested *domain.Product) ProposalInput {
	t.Helper()
	return ProposalInput{
		RecipientID:         recipient.ID,
		OfferedProductIDs:   []uuid.UUID{offered.ID},
		RequestedProductIDs: []uuid.UUID{requested.ID},
		Message:             "te cambio",
	}
}

func TestCreateProposal(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	ana := env.createUser(t, "ana")
	beto := env.createUser(t, "beto")
	papa := env.createProduct(t, ana.ID, "Papa", 10, "kg", 100)
	yuca := env.createProduct(t, beto.ID, "Yuca", 10, "kg", 110)

	proposal, err := env.service.CreateProposal(ctx, ana.ID, env.fairInput(t, beto, papa, yuca))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, proposal.Status)
	assert.True(t, proposal.Equity.IsFair)
	require.Len(t, proposal.OfferedItems, 1)
	assert.Equal(t, domain.Quantity{Value: 10, Unit: "kg"}, proposal.OfferedItems[0].Quantity)

	// Persisted and loadable by both parties.
	mine, err := env.service.ListMyProposals(ctx, beto.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, proposal.ID, mine[0].ID)

	require.Len(t, env.publisher.Events(), 1)
	created, ok := env.publisher.Events()[0].(events.ProposalCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, proposal.ID, created.ProposalID)
}

func TestCreateProposalGuards(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	ana := env.createUser(t, "ana")
	beto := env.createUser(t, "beto")
	papa := env.createProduct(t, ana.ID, "Papa", 10, "kg", 100)
	yuca := env.createProduct(t, beto.ID, "Yuca", 10, "kg", 110)

	t.Run("empty items", func(t *testing.T) {
		input := env.fairInput(t, beto, papa, yuca)
		input.OfferedProductIDs = nil
		_, err := env.service.CreateProposal(ctx, ana.ID, input)
		assert.ErrorIs(t, err, domain.ErrEmptyItems)
	})

	t.Run("self proposal", func(t *testing.T) {
		input := env.fairInput(t, ana, papa, yuca)
		_, err := env.service.CreateProposal(ctx, ana.ID, input)
		assert.ErrorIs(t, err, domain.ErrSelfProposal)
	})

	t.Run("unknown recipient", func(t *testing.T) {
		input := env.fairInput(t, beto, papa, yuca)
		input.RecipientID = uuid.New()
		_, err := env.service.CreateProposal(ctx, ana.ID, input)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("offered not owned by proposer", func(t *testing.T) {
		input := env.fairInput(t, beto, yuca, yuca)
		_, err := env.service.CreateProposal(ctx, ana.ID, input)
		assert.ErrorIs(t, err, domain.ErrNotOwner)
	})

	t.Run("not tradable", func(t *testing.T) {
		cerdo := env.createProduct(t, ana.ID, "Cerdo", 2, "unidades", 100)
		expected := cerdo.Version
		cerdo.Tradable = false
		cerdo.Version++
		require.NoError(t, env.products.Update(ctx, cerdo, expected))

		input := env.fairInput(t, beto, cerdo, yuca)
		_, err := env.service.CreateProposal(ctx, ana.ID, input)
		assert.ErrorIs(t, err, domain.ErrNotTradable)
	})
}

func TestCreateProposalLowReputation(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	ana := env.createUser(t, "ana")
	beto := env.createUser(t, "beto")
	beto.Reputation = 2
	// Reputation is only read at creation, rewrite the row directly.
	_, err := env.db.Exec(`UPDATE users SET reputation = 2 WHERE id = ?`, beto.ID.String())
	require.NoError(t, err)

	papa := env.createProduct(t, ana.ID, "Papa", 10, "kg", 100)
	yuca := env.createProduct(t, beto.ID, "Yuca", 10, "kg", 110)

	_, err = env.service.CreateProposal(ctx, ana.ID, env.fairInput(t, beto, papa, yuca))
	assert.ErrorIs(t, err, domain.ErrLowReputation)
}

func TestCreateProposalPerishableRequiresCertificate(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	ana := env.createUser(t, "ana")
	beto := env.createUser(t, "beto")
	papa := env.createProduct(t, ana.ID, "Papa", 10, "kg", 100)

	leche := env.createProduct(t, beto.ID, "Leche", 10, "litros", 110)
	expected := leche.Version
	leche.Perishable = true
	leche.Version++
	require.NoError(t, env.products.Update(ctx, leche, expected))

	_, err := env.service.CreateProposal(ctx, ana.ID, env.fairInput(t, beto, papa, leche))
	assert.ErrorIs(t, err, domain.ErrNotCertified)

	expected = leche.Version
	leche.FreshnessCertified = true
	leche.Version++
	require.NoError(t, env.products.Update(ctx, leche, expected))

	_, err = env.service.CreateProposal(ctx, ana.ID, env.fairInput(t, beto, papa, leche))
	assert.NoError(t, err)
}

func TestCreateProposalBlockedByEquity(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	ana := env.createUser(t, "ana")
	beto := env.createUser(t, "beto")
	papa := env.createProduct(t, ana.ID, "Papa", 10, "kg", 100)
	cafe := env.createProduct(t, beto.ID, "Cafe", 10, "kg", 1000)

	_, err := env.service.CreateProposal(ctx, ana.ID, env.fairInput(t, beto, papa, cafe))
	require.Error(t, err)

	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, "TradeBlocked", stdErr.Code)

	// Nothing persisted.
	mine, err := env.service.ListMyProposals(ctx, ana.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestAcceptExecutesExchange(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	ana := env.createUser(t, "ana")
	beto := env.createUser(t, "beto")
	papa := env.createProduct(t, ana.ID, "Papa", 10, "kg", 100)
	yuca := env.createProduct(t, beto.ID, "Yuca", 10, "kg", 110)

	proposal, err := env.service.CreateProposal(ctx, ana.ID, env.fairInput(t, beto, papa, yuca))
	require.NoError(t, err)

	updated, err := env.service.UpdateStatus(ctx, proposal.ID, beto.ID, domain.StatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, updated.Status)

	gotPapa, err := env.products.FindByID(ctx, papa.ID)
	require.NoError(t, err)
	assert.Equal(t, beto.ID, gotPapa.OwnerID)

	gotYuca, err := env.products.FindByID(ctx, yuca.ID)
	require.NoError(t, err)
	assert.Equal(t, ana.ID, gotYuca.OwnerID)

	// Create + status change + exchange completed.
	found := false
	for _, ev := range env.publisher.Events() {
		if completed, ok := ev.(events.ExchangeCompletedEvent); ok {
			found = true
			assert.Equal(t, proposal.ID, completed.ProposalID)
			assert.Len(t, completed.Movements, 2)
		}
	}
	assert.True(t, found, "expected an ExchangeCompletedEvent")
}

func TestAcceptByWrongActor(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	ana := env.createUser(t, "ana")
	beto := env.createUser(t, "beto")
	papa := env.createProduct(t, ana.ID, "Papa", 10, "kg", 100)
	yuca := env.createProduct(t, beto.ID, "Yuca", 10, "kg", 110)

	proposal, err := env.service.CreateProposal(ctx, ana.ID, env.fairInput(t, beto, papa, yuca))
	require.NoError(t, err)

	// The proposer cannot accept their own proposal.
	_, err = env.service.UpdateStatus(ctx, proposal.ID, ana.ID, domain.StatusAccepted)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
}

func TestRejectProposal(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	ana := env.createUser(t, "ana")
	beto := env.createUser(t, "beto")
	papa := env.createProduct(t, ana.ID, "Papa", 10, "kg", 100)
	yuca := env.createProduct(t, beto.ID, "Yuca", 10, "kg", 110)

	proposal, err := env.service.CreateProposal(ctx, ana.ID, env.fairInput(t, beto, papa, yuca))
	require.NoError(t, err)

	updated, err := env.service.UpdateStatus(ctx, proposal.ID, beto.ID, domain.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, updated.Status)

	// Rejecting again hits the status guard.
	_, err = env.service.UpdateStatus(ctx, proposal.ID, beto.ID, domain.StatusRejected)
	assert.ErrorIs(t, err, domain.ErrNotActionable)

	// Stock untouched.
	gotPapa, err := env.products.FindByID(ctx, papa.ID)
	require.NoError(t, err)
	assert.Equal(t, ana.ID, gotPapa.OwnerID)
}

func TestCancelProposal(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	ana := env.createUser(t, "ana")
	beto := env.createUser(t, "beto")
	papa := env.createProduct(t, ana.ID, "Papa", 10, "kg", 100)
	yuca := env.createProduct(t, beto.ID, "Yuca", 10, "kg", 110)

	proposal, err := env.service.CreateProposal(ctx, ana.ID, env.fairInput(t, beto, papa, yuca))
	require.NoError(t, err)

	updated, err := env.service.Cancel(ctx, proposal.ID, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, updated.Status)

	_, err = env.service.UpdateStatus(ctx, proposal.ID, beto.ID, domain.StatusAccepted)
	assert.ErrorIs(t, err, domain.ErrNotActionable)
}

func TestCounterLifecycle(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	ana := env.createUser(t, "ana")
	beto := env.createUser(t, "beto")
	papa := env.createProduct(t, ana.ID, "Papa", 10, "kg", 100)
	yuca := env.createProduct(t, beto.ID, "Yuca", 10, "kg", 110)

	proposal, err := env.service.CreateProposal(ctx, ana.ID, env.fairInput(t, beto, papa, yuca))
	require.NoError(t, err)

	counterInput := ProposalInput{
		OfferedProductIDs:   []uuid.UUID{yuca.ID},
		RequestedProductIDs: []uuid.UUID{papa.ID},
		Message:             "mejor asi",
	}
	counter, err := env.service.Counter(ctx, proposal.ID, beto.ID, counterInput)
	require.NoError(t, err)

	assert.Equal(t, beto.ID, counter.ProposerID)
	assert.Equal(t, ana.ID, counter.RecipientID)
	require.NotNil(t, counter.ParentID)
	assert.Equal(t, proposal.ID, *counter.ParentID)

	// Parent flipped to countered.
	parent, err := env.service.GetProposal(ctx, proposal.ID, ana.ID, domain.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCountered, parent.Status)

	// A countered proposal cannot be countered again.
	_, err = env.service.Counter(ctx, proposal.ID, beto.ID, counterInput)
	assert.ErrorIs(t, err, domain.ErrNotActionable)

	// Rejecting the counter puts the original back on the table.
	rejected, err := env.service.RejectCounter(ctx, counter.ID, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Status)

	parent, err = env.service.GetProposal(ctx, proposal.ID, ana.ID, domain.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, parent.Status)
}

func TestAcceptCounterCompletesChain(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	ana := env.createUser(t, "ana")
	beto := env.createUser(t, "beto")
	papa := env.createProduct(t, ana.ID, "Papa", 10, "kg", 100)
	yuca := env.createProduct(t, beto.ID, "Yuca", 10, "kg", 110)

	proposal, err := env.service.CreateProposal(ctx, ana.ID, env.fairInput(t, beto, papa, yuca))
	require.NoError(t, err)

	counter, err := env.service.Counter(ctx, proposal.ID, beto.ID, ProposalInput{
		OfferedProductIDs:   []uuid.UUID{yuca.ID},
		RequestedProductIDs: []uuid.UUID{papa.ID},
	})
	require.NoError(t, err)

	// Only the original proposer may resolve the counter.
	_, err = env.service.AcceptCounter(ctx, counter.ID, beto.ID)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	accepted, err := env.service.AcceptCounter(ctx, counter.ID, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, accepted.Status)

	root, err := env.service.GetProposal(ctx, proposal.ID, ana.ID, domain.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, root.Status)

	// Stock moved per the counter's terms.
	gotYuca, err := env.products.FindByID(ctx, yuca.ID)
	require.NoError(t, err)
	assert.Equal(t, ana.ID, gotYuca.OwnerID)
}

func TestRejectCounterByWrongActor(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	ana := env.createUser(t, "ana")
	beto := env.createUser(t, "beto")
	papa := env.createProduct(t, ana.ID, "Papa", 10, "kg", 100)
	yuca := env.createProduct(t, beto.ID, "Yuca", 10, "kg", 110)

	proposal, err := env.service.CreateProposal(ctx, ana.ID, env.fairInput(t, beto, papa, yuca))
	require.NoError(t, err)

	counter, err := env.service.Counter(ctx, proposal.ID, beto.ID, ProposalInput{
		OfferedProductIDs:   []uuid.UUID{yuca.ID},
		RequestedProductIDs: []uuid.UUID{papa.ID},
	})
	require.NoError(t, err)

	_, err = env.service.RejectCounter(ctx, counter.ID, beto.ID)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	// Rejecting the root as a counter is refused.
	_, err = env.service.RejectCounter(ctx, proposal.ID, ana.ID)
	assert.ErrorIs(t, err, domain.ErrNotCounter)
}

func TestGetProposalAuthorization(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	ana := env.createUser(t, "ana")
	beto := env.createUser(t, "beto")
	carla := env.createUser(t, "carla")
	papa := env.createProduct(t, ana.ID, "Papa", 10, "kg", 100)
	yuca := env.createProduct(t, beto.ID, "Yuca", 10, "kg", 110)

	proposal, err := env.service.CreateProposal(ctx, ana.ID, env.fairInput(t, beto, papa, yuca))
	require.NoError(t, err)

	_, err = env.service.GetProposal(ctx, proposal.ID, carla.ID, domain.RoleUser)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	// Admins see everything.
	_, err = env.service.GetProposal(ctx, proposal.ID, carla.ID, domain.RoleAdmin)
	assert.NoError(t, err)
}

func TestValueComparison(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	ana := env.createUser(t, "ana")
	beto := env.createUser(t, "beto")
	papa := env.createProduct(t, ana.ID, "Papa", 10, "kg", 100)
	yuca := env.createProduct(t, beto.ID, "Yuca", 10, "kg", 110)

	proposal, err := env.service.CreateProposal(ctx, ana.ID, env.fairInput(t, beto, papa, yuca))
	require.NoError(t, err)

	result, err := env.service.ValueComparison(ctx, proposal.ID, ana.ID, domain.RoleUser)
	require.NoError(t, err)
	assert.True(t, result.Comparable)
	assert.InDelta(t, 100, result.OfferedValue, 0.001)
	assert.InDelta(t, 110, result.RequestedValue, 0.001)

	// Price moves are invisible until the cached entry expires.
	expected := papa.Version
	papa.Price = 500
	papa.Version++
	require.NoError(t, env.products.Update(ctx, papa, expected))

	cached, err := env.service.ValueComparison(ctx, proposal.ID, ana.ID, domain.RoleUser)
	require.NoError(t, err)
	assert.InDelta(t, 100, cached.OfferedValue, 0.001)
}

func TestCompareProducts(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	ana := env.createUser(t, "ana")
	beto := env.createUser(t, "beto")
	papa := env.createProduct(t, ana.ID, "Papa", 10, "kg", 100)
	yuca := env.createProduct(t, beto.ID, "Yuca", 10, "kg", 130)

	result, err := env.service.CompareProducts(ctx, papa.ID, yuca.ID)
	require.NoError(t, err)

	// Adjustable range: advisory only, reported but not blocked.
	assert.True(t, result.Comparable)
	assert.False(t, result.IsFair)
	assert.False(t, result.Blocked)
	assert.InDelta(t, 30, result.DifferencePct, 0.001)

	_, err = env.service.CompareProducts(ctx, papa.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestEquityIgnoresStockLevels(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	ana := env.createUser(t, "ana")
	beto := env.createUser(t, "beto")
	// Wildly different stock, near-equal unit prices.
	papa := env.createProduct(t, ana.ID, "Papa", 100, "kg", 100)
	yuca := env.createProduct(t, beto.ID, "Yuca", 1, "kg", 110)

	proposal, err := env.service.CreateProposal(ctx, ana.ID, env.fairInput(t, beto, papa, yuca))
	require.NoError(t, err)

	assert.True(t, proposal.Equity.IsFair)
	assert.InDelta(t, 100, proposal.Equity.OfferedValue, 0.001)
	assert.InDelta(t, 110, proposal.Equity.RequestedValue, 0.001)
}

// failingPublisher stands in for a broker that is down.
type failingPublisher struct{}

func (failingPublisher) Publish(ctx context.Context, event interface{}) error {
	return errors.New("broker unavailable")
}

// failingDispatcher stands in for a notification store that is down.
type failingDispatcher struct{ notifications.NopDispatcher }

func (failingDispatcher) Notify(ctx context.Context, n *domain.Notification) error {
	return errors.New("notification store unavailable")
}

func TestSideEffectFailuresDoNotFailFlow(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	logger := zap.NewNop()
	cfg := &config.Config{
		MinReputation:   3,
		FairTradeMaxPct: 20,
		BlockedTradePct: 40,
		CacheTTL:        60,
	}
	service := NewService(
		env.proposals, env.products, env.users,
		NewExecutor(env.db, logger),
		failingPublisher{},
		failingDispatcher{},
		cache.NewInMemoryCache(logger),
		cfg, logger,
	)

	ana := env.createUser(t, "ana")
	beto := env.createUser(t, "beto")
	papa := env.createProduct(t, ana.ID, "Papa", 10, "kg", 100)
	yuca := env.createProduct(t, beto.ID, "Yuca", 10, "kg", 110)

	proposal, err := service.CreateProposal(ctx, ana.ID, env.fairInput(t, beto, papa, yuca))
	require.NoError(t, err)

	updated, err := service.UpdateStatus(ctx, proposal.ID, beto.ID, domain.StatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, updated.Status)

	// The committed exchange is intact even though every side channel failed.
	gotPapa, err := env.products.FindByID(ctx, papa.ID)
	require.NoError(t, err)
	assert.Equal(t, beto.ID, gotPapa.OwnerID)

	gotYuca, err := env.products.FindByID(ctx, yuca.ID)
	require.NoError(t, err)
	assert.Equal(t, ana.ID, gotYuca.OwnerID)

	// Reject flows through the same swallowing side channels.
	mango := env.createProduct(t, ana.ID, "Mango", 5, "kg", 100)
	lulo := env.createProduct(t, beto.ID, "Lulo", 5, "kg", 105)
	second, err := service.CreateProposal(ctx, ana.ID, env.fairInput(t, beto, mango, lulo))
	require.NoError(t, err)

	rejected, err := service.UpdateStatus(ctx, second.ID, beto.ID, domain.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Status)
}
