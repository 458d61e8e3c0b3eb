package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrincipal_ScopeProjects(t *testing.T) {
	admin := &Principal{Role: RoleAdmin}
	agent := &Principal{Role: RoleAgent, Projects: []string{"north-clinic", "south-clinic"}}
	orphan := &Principal{Role: RoleProjectUser}

	projects, ok := admin.ScopeProjects("")
	assert.True(t, ok)
	assert.Nil(t, projects, "admins are unrestricted")

	projects, ok = agent.ScopeProjects("")
	assert.True(t, ok)
	assert.Equal(t, []string{"north-clinic", "south-clinic"}, projects)

	projects, ok = agent.ScopeProjects("south-clinic")
	assert.True(t, ok)
	assert.Equal(t, []string{"south-clinic"}, projects)

	_, ok = agent.ScopeProjects("west-clinic")
	assert.False(t, ok)

	_, ok = orphan.ScopeProjects("")
	assert.False(t, ok, "a user without project access sees nothing")
}

func TestParsedIntake_Validate(t *testing.T) {
	pain := 14
	p := ParsedIntake{
		ContactInfo: &ParsedContactInfo{Email: strPtr("not-an-email")},
		Pathology:   &ParsedPathology{PainLevel: &pain},
	}
	err := p.Validate()
	assert.ErrorContains(t, err, "contact email")
	assert.ErrorContains(t, err, "pain level 14")

	ok := ParsedIntake{ContactInfo: &ParsedContactInfo{Email: strPtr("pat@example.com")}}
	assert.NoError(t, ok.Validate())
}
