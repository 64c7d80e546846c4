package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepacking/backend/internal/domain/prepacking"
)

func TestPrepackingEventModel_RoundTripKeepsOrderAndOutcomes(t *testing.T) {
	lotID := uuid.New()
	first, err := prepacking.NewLineItem(uuid.New(), &lotID, 10, 5)
	require.NoError(t, err)
	second, err := prepacking.NewLineItem(uuid.New(), nil, 20, 2)
	require.NoError(t, err)
	second.MarkInadequateStock(30)

	author := prepacking.Author{UserID: uuid.New(), UserNames: "Jane, Doe"}
	event, err := prepacking.NewPrepackingEvent(uuid.New(), uuid.New(), author, "split", []prepacking.LineItem{first, second})
	require.NoError(t, err)
	require.NoError(t, event.Reject(author.UserID, "wrong lot"))

	model := PrepackingEventModelFromDomain(event)

	assert.Equal(t, event.ID, model.ID)
	assert.Equal(t, "REJECTED", model.Status)
	require.Len(t, model.LineItems, 2)
	assert.Equal(t, 0, model.LineItems[0].Position)
	assert.Equal(t, 1, model.LineItems[1].Position)
	assert.Equal(t, event.ID, model.LineItems[1].PrepackingEventID)
	require.Len(t, model.StatusChanges, 2)
	assert.Equal(t, "wrong lot", model.StatusChanges[1].Message)

	back := model.ToDomain()

	assert.Equal(t, event.ID, back.ID)
	assert.Equal(t, event.Version, back.Version)
	assert.Equal(t, prepacking.StatusRejected, back.Status)
	assert.Equal(t, "Jane, Doe", back.UserNames)
	assert.Equal(t, first.ID, back.LineItems[0].ID)
	assert.Equal(t, &lotID, back.LineItems[0].LotID)
	assert.Equal(t, prepacking.LineItemStatusInadequateStock, back.LineItems[1].Status)
	require.NotNil(t, back.LineItems[1].StockOnHand)
	assert.Equal(t, int64(30), *back.LineItems[1].StockOnHand)
	assert.Empty(t, back.GetDomainEvents())
}
