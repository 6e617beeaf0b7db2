// Package extract turns the plain text of a Brazilian utility invoice into a
// structured Record using ordered fallback patterns.
package extract

// Extract resolves every Record field from text independently. Fields with
// no matching rule stay nil; Arquivo is left for the caller to set.
func Extract(text string) Record {
	return Record{
		ValorLiquido: resolveAmount(amountRules, text),
		RetencaoLei:  firstAmount(withholdingRules, text),
		CodigoDebito: firstString(debitCodeRules, text),
		Matricula:    firstString(registrationRules, text),
		Referencia:   firstString(referenceRules, text),
		Vencimento:   firstString(dueDateRules, text),
		Emissao:      firstString(issueDateRules, text),
		Apresentacao: firstString(presentationDateRules, text),
	}
}
