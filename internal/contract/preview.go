package contract

import (
	"fmt"
	"strings"
)

// Undefined replaces empty optional terms in the preview.
const Undefined = "A definir"

// Title is the record title derived at save time.
func Title(d Draft) string {
	return fmt.Sprintf("%s - %s e %s",
		or(d.ContractType, "Contrato"),
		or(d.ContractorName, "Parte 1"),
		or(d.ContractedName, "Parte 2"),
	)
}

// Preview renders the human-readable contract text for d. Clause lines appear
// only for enabled toggles, always in the same order.
func Preview(d Draft) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CONTRATO DE %s\n\n", strings.ToUpper(d.ContractType))
	fmt.Fprintf(&b, "CONTRATANTE: %s\n", d.ContractorName)
	fmt.Fprintf(&b, "CONTRATADO: %s\n\n", d.ContractedName)
	fmt.Fprintf(&b, "OBJETO: %s\n\n", d.ContractObject)
	fmt.Fprintf(&b, "VALOR: %s\n", d.Value)
	fmt.Fprintf(&b, "FORMA DE PAGAMENTO: %s\n\n", or(d.PaymentMethod, Undefined))
	fmt.Fprintf(&b, "DURAÇÃO: %s\n", or(d.Duration, Undefined))
	fmt.Fprintf(&b, "LOCAL E DATA: %s, %s\n", or(d.Location, Undefined), or(d.Date, Undefined))

	clauses := clauseLines(d)
	if len(clauses) > 0 {
		b.WriteString("\n")
		for _, line := range clauses {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func clauseLines(d Draft) []string {
	var lines []string
	if d.CancellationFine {
		lines = append(lines, "MULTA POR CANCELAMENTO: "+d.CancellationFineValue)
	}
	if d.DelayFine {
		lines = append(lines, "MULTA POR ATRASO: "+d.DelayFineValue)
	}
	if d.Confidentiality {
		lines = append(lines, "CLÁUSULA DE CONFIDENCIALIDADE: Incluída")
	}
	if d.OnlineSignature {
		lines = append(lines, "ASSINATURA ONLINE: Habilitada")
	}
	return lines
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
