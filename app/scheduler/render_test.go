package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/revendapro/zap-dispatcher/models"
)

func TestRenderTemplateSubstitutesVariables(t *testing.T) {
	contact := &models.Contact{
		Name:        "Maria",
		PhoneNumber: "5511999990000",
	}

	out := RenderTemplate("Olá {{nome}}, confirme pelo {{telefone}}", contact.TemplateVars())
	assert.Equal(t, "Olá Maria, confirme pelo 5511999990000", out)
}

func TestRenderTemplateLeavesUnknownPlaceholders(t *testing.T) {
	out := RenderTemplate("Olá {{nome}}, seu carro {{modelo}} chegou", map[string]string{"nome": "João"})
	assert.Equal(t, "Olá João, seu carro {{modelo}} chegou", out)
}

func TestRenderTemplateHandlesSpacedPlaceholders(t *testing.T) {
	out := RenderTemplate("Olá {{ nome }}", map[string]string{"nome": "Ana"})
	assert.Equal(t, "Olá Ana", out)
}

func TestRenderTemplateExplicitVariableOverrides(t *testing.T) {
	contact := &models.Contact{
		Name:        "Maria",
		PhoneNumber: "5511999990000",
		Variables:   models.ContactVariables{"nome": "Dona Maria", "modelo": "Onix"},
	}

	out := RenderTemplate("{{nome}}: {{modelo}}", contact.TemplateVars())
	assert.Equal(t, "Dona Maria: Onix", out)
}

func TestRenderTemplateNoPlaceholders(t *testing.T) {
	out := RenderTemplate("mensagem fixa", map[string]string{"nome": "x"})
	assert.Equal(t, "mensagem fixa", out)
}

func TestPacingDelayStaysWithinBounds(t *testing.T) {
	for i := 0; i < 200; i++ {
		d := pacingDelay(2, 5)
		assert.GreaterOrEqual(t, d, 2*time.Second)
		assert.LessOrEqual(t, d, 5*time.Second)
	}
}

func TestPacingDelayDefaultsWindow(t *testing.T) {
	for i := 0; i < 200; i++ {
		d := pacingDelay(0, 0)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 3*time.Second)
	}
}

func TestPacingDelayEqualBounds(t *testing.T) {
	assert.Equal(t, 4*time.Second, pacingDelay(4, 4))
}
