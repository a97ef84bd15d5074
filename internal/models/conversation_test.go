package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", (&Conversation{FirstName: StringPtr("Ada"), LastName: StringPtr("Lovelace")}).DisplayName())
	assert.Equal(t, "Ada", (&Conversation{FirstName: StringPtr("Ada")}).DisplayName())
	assert.Equal(t, "Stored Name", (&Conversation{CustomerName: "Stored Name"}).DisplayName())
	assert.Equal(t, UnknownCustomer, (&Conversation{}).DisplayName())
}

func TestConversationJSONIncludesFullName(t *testing.T) {
	conv := Conversation{ID: 3, CustomerName: "Ada Lovelace", FirstName: StringPtr("Ada"), LastName: StringPtr("Lovelace")}

	raw, err := json.Marshal(conv)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "Ada Lovelace", out["fullName"])
	assert.Equal(t, float64(3), out["id"])
	assert.Nil(t, out["email"])
}

func TestCustomerSummary(t *testing.T) {
	conv := Conversation{CustomerName: "Ada Lovelace", FirstName: StringPtr("Ada"), Email: StringPtr("")}
	summary := conv.Customer()

	assert.Nil(t, summary.Email)
	assert.Nil(t, summary.LastName)
	assert.Nil(t, summary.Picture)
	require.NotNil(t, summary.Name)
	assert.Equal(t, "Ada Lovelace", *summary.Name)
	assert.Equal(t, "Ada", *summary.FirstName)
}

func TestCustomerNameFor(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", CustomerNameFor("Ada", "Lovelace"))
	assert.Equal(t, "Lovelace", CustomerNameFor("", "Lovelace"))
	assert.Equal(t, UnknownCustomer, CustomerNameFor("", ""))
}

func TestEventTime(t *testing.T) {
	ev := MessagingEvent{Timestamp: 1700000000123}
	assert.Equal(t, int64(1700000000123), ev.Time().UnixMilli())
}
