package core

import "strings"

// DefaultCategory is suggested when no keyword matches.
const DefaultCategory = "Outros"

var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"Higiene", []string{"sabonete", "creme dental", "escova", "shampoo", "absorvente"}},
	{"Limpeza", []string{"sabão", "detergente", "amaciante", "desinfetante", "alvejante"}},
	{"Alimento", []string{"arroz", "feijão", "macarrão", "carne", "leite", "biscoito"}},
}

// SuggestCategory classifies a product name by keyword. Categories are checked
// in a fixed order so the first match wins.
func SuggestCategory(productName string) string {
	name := strings.ToLower(productName)
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(name, kw) {
				return c.category
			}
		}
	}
	return DefaultCategory
}

// ProductRegistration is the payload sent to the external product catalog.
type ProductRegistration struct {
	Barcode  string
	Name     string
	Brand    string
	Category string
}

// Complete reports whether every field required by the catalog is present.
func (p ProductRegistration) Complete() bool {
	return strings.TrimSpace(p.Barcode) != "" &&
		strings.TrimSpace(p.Name) != "" &&
		strings.TrimSpace(p.Brand) != "" &&
		strings.TrimSpace(p.Category) != ""
}

// RegistrationResult is the outcome of a catalog registration. Failures are
// carried as a message, never as an error.
type RegistrationResult struct {
	OK      bool
	Message string
}
