package extract

import (
	"regexp"
	"strings"
)

// rule captures a field value from document text. The first capture group of
// pattern is the raw value.
type rule struct {
	name    string
	pattern *regexp.Regexp
}

// find returns the trimmed first capture group, or false when the rule does
// not match.
func (r rule) find(text string) (string, bool) {
	m := r.pattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// Whitespace in the patterns is written [\s\p{Zs}] so that the no-break
// spaces pdf text carries (R$\u00a01.234,56) match like ordinary spaces.

// Net amount chain. (?s) lets the keyword anchors skip over the line breaks
// pdf text puts between the label and the starred amount box.
var amountRules = []rule{
	{"grupamento", regexp.MustCompile(`(?is)GRUPAMENTO.*?FEDERAL.*?\*{5,}[\s\p{Zs}]*R?\$?[\s\p{Zs}]*([\d.,]+)`)},
	{"total_a_pagar", regexp.MustCompile(`(?is)TOTAL[\s\p{Zs}]+A[\s\p{Zs}]+PAGAR.*?\*{5,}[\s\p{Zs}]*R?\$?[\s\p{Zs}]*([\d.,]+)`)},
	{"asterisks", regexp.MustCompile(`\*{5,}[\s\p{Zs}]*R?\$?[\s\p{Zs}]*([\d.,]+)`)},
	{"currency", regexp.MustCompile(`R?\$[\s\p{Zs}]*(\d+[.,]\d{2})`)},
}

var dueDateRules = []rule{
	{"vencimento", regexp.MustCompile(`(?i)VENCIMENTO[\s\p{Zs}]+(\d{2}/\d{2}/\d{4})`)},
	{"vencimento_loose", regexp.MustCompile(`(?is)VENCIMENTO.*?(\d{2}/\d{2}/\d{4})`)},
}

var withholdingRules = []rule{
	{"lei_9430", regexp.MustCompile(`(?i)RET\.?[\s\p{Zs}]*LEI[\s\p{Zs}]*9430/96[\s\p{Zs}]+([\d.,]+)[\s\p{Zs}]*-`)},
}

var debitCodeRules = []rule{
	{"keyword", regexp.MustCompile(`(?i)Cód\.[\s\p{Zs}]*débito[\s\p{Zs}]*automático[\s\p{Zs}]*([\d.\-]+)`)},
	{"shape", regexp.MustCompile(`(\d{3}\.\d{2}\.\d{8}-\d)`)},
}

var registrationRules = []rule{
	{"matricula", regexp.MustCompile(`(?i)MATR[IÍ]CULA[\s\p{Zs}]+([\d\s\p{Zs}]+\d)`)},
}

var referenceRules = []rule{
	{"referencia", regexp.MustCompile(`(?i)REFER[EÊ]NCIA.*?(\d{2}/\d{4})`)},
}

var issueDateRules = []rule{
	{"data_emissao", regexp.MustCompile(`(?i)(\d{2}/\d{2}/\d{4})[\s\p{Zs}]*\(data[\s\p{Zs}]+emiss[aã]o\)`)},
}

var presentationDateRules = []rule{
	{"data_apresentacao", regexp.MustCompile(`(?i)Data[\s\p{Zs}]+da[\s\p{Zs}]+apresenta[cç][aã]o[\s\p{Zs}]*(\d{2}/\d{2}/\d{4})`)},
}

// firstString returns the value of the first matching rule.
func firstString(rules []rule, text string) *string {
	for _, r := range rules {
		if v, ok := r.find(text); ok {
			return &v
		}
	}
	return nil
}

// firstAmount returns the normalized value of the first matching rule.
func firstAmount(rules []rule, text string) *float64 {
	for _, r := range rules {
		if v, ok := r.find(text); ok {
			return NormalizeAmount(v)
		}
	}
	return nil
}

// resolveAmount walks the chain until a rule yields a non-zero amount. A
// zero or unparseable capture does not stop the chain, but the value of the
// last matching rule is kept when nothing better turns up.
func resolveAmount(rules []rule, text string) *float64 {
	var amount *float64
	for _, r := range rules {
		v, ok := r.find(text)
		if !ok {
			continue
		}
		amount = NormalizeAmount(v)
		if amount != nil && *amount != 0 {
			return amount
		}
	}
	return amount
}
