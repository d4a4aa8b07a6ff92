package domain

import "testing"

func TestAgent_Allows(t *testing.T) {
	empty := []string{}
	scoped := []string{"int-1", "int-2"}

	tests := []struct {
		name          string
		integrationID string
		allowList     *[]string
		want          bool
	}{
		{"absent list allows everything", "int-9", nil, true},
		{"empty list allows nothing", "int-1", &empty, false},
		{"listed ID allowed", "int-2", &scoped, true},
		{"unlisted ID denied", "int-3", &scoped, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Agent{ID: "agent-1", TenantID: "tenant-1", IntegrationIDs: tt.allowList}
			if got := a.Allows(tt.integrationID); got != tt.want {
				t.Errorf("Allows(%q) = %v, want %v", tt.integrationID, got, tt.want)
			}
		})
	}
}
