package http

import (
	"net/http"

	"compras/internal/core"
	"compras/internal/log"
	"compras/internal/metrics"
)

// handleLookup fetches product metadata for the typed barcode and shows the
// form again with the product fields replaced. A failed lookup is reported as
// "not found"; the user can always type the data by hand.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Formato de requisição inválido", http.StatusBadRequest)
		return
	}
	form := parseFormState(r.PostForm)

	if form.Barcode == "" {
		s.renderIndex(w, r, http.StatusUnprocessableEntity, form, "", messageFor(core.ErrEmptyBarcode))
		return
	}
	if s.lookup == nil {
		s.renderIndex(w, r, http.StatusOK, form, "", "Consulta de produtos desativada.")
		return
	}

	info, found, err := s.lookup.Lookup(r.Context(), form.Barcode)
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Product lookup failed",
			log.FieldOperation, log.OpLookup,
			log.FieldBarcode, form.Barcode,
			log.FieldError, err)
		found = false
	}
	if !found {
		s.renderIndex(w, r, http.StatusOK, form, "", "Produto não encontrado. Preencha os dados manualmente.")
		return
	}

	form = form.Prefill(info)
	s.renderIndex(w, r, http.StatusOK, form, "Produto encontrado: "+form.Name, "")
}

// handleRegister submits the form's product to the public catalog
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Formato de requisição inválido", http.StatusBadRequest)
		return
	}
	form := parseFormState(r.PostForm)

	if s.registrar == nil {
		s.renderIndex(w, r, http.StatusOK, form, "", "Cadastro de produtos desativado.")
		return
	}

	res := s.registrar.Register(r.Context(), core.ProductRegistration{
		Barcode:  form.Barcode,
		Name:     form.Name,
		Brand:    form.Brand,
		Category: form.Category,
	})
	if !res.OK {
		metrics.Registrations.WithLabelValues(metrics.OutcomeFailure).Inc()
		log.FromContext(r.Context()).WarnContext(r.Context(), "Product registration failed",
			log.FieldOperation, log.OpRegister,
			log.FieldBarcode, form.Barcode,
			"message", res.Message)
		s.renderIndex(w, r, http.StatusOK, form, "", res.Message)
		return
	}

	metrics.Registrations.WithLabelValues(metrics.OutcomeSuccess).Inc()
	if f, ok := s.lookup.(lookupForgetter); ok {
		f.Forget(form.Barcode)
	}
	s.renderIndex(w, r, http.StatusOK, form, res.Message, "")
}
