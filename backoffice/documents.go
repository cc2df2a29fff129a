package backoffice

import (
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	errCPF   = validation.NewError("validation_cpf", "must be a valid CPF")
	errCNPJ  = validation.NewError("validation_cnpj", "must be a valid CNPJ")
	errTaxID = validation.NewError("validation_tax_id", "must be a valid CPF or CNPJ")

	cepRe   = regexp.MustCompile(`^\d{5}-?\d{3}$`)
	phoneRe = regexp.MustCompile(`^\+?[\d\s().-]{10,20}$`)
	// Old (ABC1234) and Mercosur (ABC1D23) plates.
	plateRe = regexp.MustCompile(`^[A-Z]{3}-?\d[A-Z\d]\d{2}$`)
)

// Rules for Brazilian documents. Masked input ("529.982.247-25") is
// accepted; only the digits are checked. Empty values pass, pair them with
// validation.Required.
var (
	CPF   = validation.By(func(v any) error { return check(v, ValidCPF, errCPF) })
	CNPJ  = validation.By(func(v any) error { return check(v, ValidCNPJ, errCNPJ) })
	TaxID = validation.By(func(v any) error {
		return check(v, func(s string) bool { return ValidCPF(s) || ValidCNPJ(s) }, errTaxID)
	})
)

func check(v any, ok func(string) bool, fail error) error {
	s, isStr := v.(string)
	if !isStr {
		return errors.New("must be a string")
	}
	if s == "" || ok(s) {
		return nil
	}
	return fail
}

// ValidCPF checks the two CPF check digits.
func ValidCPF(s string) bool {
	d := digits(s)
	if len(d) != 11 || repeated(d) {
		return false
	}
	for n := 9; n <= 10; n++ {
		sum := 0
		for i := 0; i < n; i++ {
			sum += d[i] * (n + 1 - i)
		}
		r := sum * 10 % 11
		if r == 10 {
			r = 0
		}
		if r != d[n] {
			return false
		}
	}
	return true
}

var cnpjWeights = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}

// ValidCNPJ checks the two CNPJ check digits.
func ValidCNPJ(s string) bool {
	d := digits(s)
	if len(d) != 14 || repeated(d) {
		return false
	}
	for n := 12; n <= 13; n++ {
		w := cnpjWeights[13-n:]
		sum := 0
		for i := 0; i < n; i++ {
			sum += d[i] * w[i]
		}
		r := sum % 11
		if r < 2 {
			r = 0
		} else {
			r = 11 - r
		}
		if r != d[n] {
			return false
		}
	}
	return true
}

func digits(s string) []int {
	out := make([]int, 0, len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			out = append(out, int(r-'0'))
		}
	}
	return out
}

func repeated(d []int) bool {
	for _, x := range d[1:] {
		if x != d[0] {
			return false
		}
	}
	return true
}
