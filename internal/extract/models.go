package extract

// Record holds the invoice fields extracted from one PDF attachment.
// Every field is nil until a rule matches; nil fields encode as JSON null.
type Record struct {
	ValorLiquido *float64 `json:"valor_liquido"` // net amount
	RetencaoLei  *float64 `json:"retencao_lei"`  // withholding under Lei 9430/96
	CodigoDebito *string  `json:"codigo_debito"` // automatic debit code
	Matricula    *string  `json:"matricula"`     // registration number
	Referencia   *string  `json:"referencia"`    // MM/YYYY
	Vencimento   *string  `json:"vencimento"`    // due date, DD/MM/YYYY
	Emissao      *string  `json:"emissao"`       // issue date, DD/MM/YYYY
	Apresentacao *string  `json:"apresentacao"`  // presentation date, DD/MM/YYYY
	Arquivo      *string  `json:"arquivo"`       // source attachment filename
}

// WithFilename returns a copy of r with Arquivo set.
func (r Record) WithFilename(name string) Record {
	r.Arquivo = &name
	return r
}
