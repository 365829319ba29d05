package contract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitleFallbacks(t *testing.T) {
	assert.Equal(t, "Contrato - Parte 1 e Parte 2", Title(Draft{}))
	assert.Equal(t, "Freelance - A e B", Title(Draft{ContractType: "Freelance", ContractorName: "A", ContractedName: "B"}))
}

func TestPreviewUsesPlaceholderForEmptyOptionalTerms(t *testing.T) {
	d := Draft{
		ContractorName: "Ana",
		ContractedName: "Bruno",
		ContractType:   "Prestação de Serviço",
		ContractObject: "Site institucional",
		Value:          "R$ 2.500,00",
	}
	got := Preview(d)

	want := "CONTRATO DE PRESTAÇÃO DE SERVIÇO\n\n" +
		"CONTRATANTE: Ana\n" +
		"CONTRATADO: Bruno\n\n" +
		"OBJETO: Site institucional\n\n" +
		"VALOR: R$ 2.500,00\n" +
		"FORMA DE PAGAMENTO: A definir\n\n" +
		"DURAÇÃO: A definir\n" +
		"LOCAL E DATA: A definir, A definir\n"
	assert.Equal(t, want, got)
}

func TestFallbackOnlyReplacesEmptyValues(t *testing.T) {
	d := Draft{PaymentMethod: " ", Duration: "  ", Location: "\t", Date: " ", ContractorName: " "}
	got := Preview(d)
	assert.Contains(t, got, "FORMA DE PAGAMENTO:  \n")
	assert.Contains(t, got, "DURAÇÃO:   \n")
	assert.Contains(t, got, "LOCAL E DATA: \t,  \n")
	assert.NotContains(t, got, Undefined)
	assert.Equal(t, "Contrato -   e Parte 2", Title(d))
}

func TestPreviewClauseLinesFollowToggles(t *testing.T) {
	lines := map[string]func(*Draft){
		"MULTA POR CANCELAMENTO: 10%":             func(d *Draft) { d.CancellationFine = true; d.CancellationFineValue = "10%" },
		"MULTA POR ATRASO: 2% ao mês":             func(d *Draft) { d.DelayFine = true; d.DelayFineValue = "2% ao mês" },
		"CLÁUSULA DE CONFIDENCIALIDADE: Incluída": func(d *Draft) { d.Confidentiality = true },
		"ASSINATURA ONLINE: Habilitada":           func(d *Draft) { d.OnlineSignature = true },
	}
	for line, enable := range lines {
		d := Draft{CancellationFineValue: "ignored", DelayFineValue: "ignored"}
		assert.NotContains(t, Preview(d), line)

		enable(&d)
		out := Preview(d)
		assert.Contains(t, out, line)
		for other := range lines {
			if other != line {
				assert.NotContains(t, out, other)
			}
		}
	}
}

func TestPreviewClauseOrderIsFixed(t *testing.T) {
	d := Draft{
		OnlineSignature:       true,
		Confidentiality:       true,
		DelayFine:             true,
		DelayFineValue:        "1%",
		CancellationFine:      true,
		CancellationFineValue: "R$ 100",
	}
	out := Preview(d)
	order := []string{"MULTA POR CANCELAMENTO", "MULTA POR ATRASO", "CLÁUSULA DE CONFIDENCIALIDADE", "ASSINATURA ONLINE"}
	last := -1
	for _, marker := range order {
		idx := strings.Index(out, marker)
		require.Greater(t, idx, last, "clause %s out of order", marker)
		last = idx
	}
}

func TestDraftValidateRejectsUnknownType(t *testing.T) {
	assert.NoError(t, Draft{}.Validate())
	assert.NoError(t, Draft{ContractType: "Aluguel"}.Validate())
	assert.ErrorIs(t, Draft{ContractType: "Escambo"}.Validate(), ErrUnknownType)
}
