package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanManageCalendar(t *testing.T) {
	dentistID := uuid.New()

	tests := []struct {
		name      string
		principal Principal
		target    uuid.UUID
		want      bool
	}{
		{"admin reaches any calendar", Principal{Role: RoleAdmin}, dentistID, true},
		{"receptionist reaches any calendar", Principal{Role: RoleReceptionist}, dentistID, true},
		{"dentist reaches own calendar", Principal{Role: RoleDentist, DentistID: dentistID}, dentistID, true},
		{"dentist blocked from other calendars", Principal{Role: RoleDentist, DentistID: uuid.New()}, dentistID, false},
		{"unknown role blocked", Principal{Role: "intern"}, dentistID, false},
		{"zero principal blocked", Principal{}, dentistID, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.principal.CanManageCalendar(tt.target))
		})
	}
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleAdmin))
	assert.True(t, ValidRole(RoleDentist))
	assert.True(t, ValidRole(RoleReceptionist))
	assert.False(t, ValidRole(""))
	assert.False(t, ValidRole("superuser"))
}

func TestContextRoundTrip(t *testing.T) {
	p := Principal{Role: RoleDentist, DentistID: uuid.New()}

	ctx := NewContext(context.Background(), p)
	got, ok := FromContext(ctx)

	require.True(t, ok)
	assert.Equal(t, p, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}
