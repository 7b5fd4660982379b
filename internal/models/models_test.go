package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabels(t *testing.T) {
	tests := []struct {
		name     string
		label    string
		expected string
	}{
		{name: "pending", label: StatusPending.Label(), expected: "Pending"},
		{name: "unknown status", label: ReviewStatus("ON_HOLD").Label(), expected: "On Hold"},
		{name: "lifetime", label: MembershipLifetime.Label(), expected: "Lifetime"},
		{name: "proof", label: ProofMetricCertificate.Label(), expected: "Metric Certificate"},
		{name: "purpose", label: PaymentPurpose("YEARLY_FEE").Label(), expected: "Yearly Fee"},
		{name: "gender", label: GenderFemale.Label(), expected: "Female"},
		{name: "empty", label: PaymentPurpose("").Label(), expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.label)
		})
	}
}

func TestValid(t *testing.T) {
	assert.True(t, StatusRejected.Valid())
	assert.False(t, ReviewStatus("pending").Valid())
	assert.True(t, MembershipAssociate.Valid())
	assert.False(t, MembershipType("GOLD").Valid())
}

func TestUser_IsSuperAdmin(t *testing.T) {
	var nilUser *User
	assert.False(t, nilUser.IsSuperAdmin())
	assert.False(t, (&User{Role: RoleMember}).IsSuperAdmin())
	assert.True(t, (&User{Role: RoleSuperAdmin}).IsSuperAdmin())
}

func TestPage_DecodesLaravelEnvelope(t *testing.T) {
	body := `{
		"data": [{"id": 7, "name": "Rahim", "payment_purpose": "ENTRY_FEE", "payment_amount": 1500.5, "status": "PENDING",
		          "member_id": null, "created_at": "2024-05-01T10:00:00.000000Z", "updated_at": "2024-05-01T10:00:00.000000Z"}],
		"links": {"first": "http://api.test/api/payments?page=1", "last": "http://api.test/api/payments?page=3", "prev": null, "next": "http://api.test/api/payments?page=2"},
		"meta": {"current_page": 1, "from": 1, "to": 15, "last_page": 3, "per_page": 15, "total": 40, "path": "http://api.test/api/payments"}
	}`

	var page Page[Payment]
	require.NoError(t, json.Unmarshal([]byte(body), &page))

	require.Len(t, page.Data, 1)
	assert.Equal(t, int64(7), page.Data[0].ID)
	assert.Nil(t, page.Data[0].MemberID)
	assert.Equal(t, StatusPending, page.Data[0].Status)
	assert.Nil(t, page.Links.Prev)
	require.NotNil(t, page.Links.Next)
	assert.Equal(t, 3, page.Meta.LastPage)
	assert.Equal(t, 40, page.Meta.Total)
}
