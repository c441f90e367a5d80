package http

import (
	"bytes"
	"net/http"
	"slices"
	"strconv"

	"github.com/shopspring/decimal"

	"compras/internal/core"
	"compras/internal/ledger"
	"compras/internal/log"
)

type indexPage struct {
	Form       FormState
	Credit     decimal.Decimal
	Report     core.PeriodReport
	Current    core.Period
	Periods    []core.Period
	Bars       []ledger.Bar
	Categories []string
	Flash      string
	Error      string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderIndex(w, r, http.StatusOK, parseFormState(r.URL.Query()), "", "")
}

// renderIndex draws the ledger page for the period and credit carried by form.
// An invalid period or credit falls back to the defaults and turns the
// response into a 422.
func (s *Server) renderIndex(w http.ResponseWriter, r *http.Request, status int, form FormState, flash, errMsg string) {
	ctx := r.Context()
	current := s.ledger.CurrentPeriod()

	period, err := form.SelectedPeriod(current)
	if err != nil {
		status, errMsg = http.StatusUnprocessableEntity, messageFor(err)
		period, form.Period = current, ""
	}
	credit, err := form.CreditCeiling(s.defaultCredit)
	if err != nil {
		status, errMsg = http.StatusUnprocessableEntity, "Crédito inválido. Use um valor como 200,00."
		credit, form.Credit = s.defaultCredit, ""
	}

	page := indexPage{
		Form:    form,
		Credit:  credit,
		Current: current,
		Flash:   flash,
		Error:   errMsg,
	}

	report, err := s.ledger.Report(ctx, period, credit)
	if err != nil {
		s.logFailure(r, "Failed to load period report", err, log.OpRead)
		status, page.Error = http.StatusInternalServerError, messageFor(err)
		report = ledger.Report(period, nil, credit)
	}
	page.Report = report

	periods, err := s.ledger.Periods(ctx)
	if err != nil {
		s.logFailure(r, "Failed to list periods", err, log.OpList)
	}
	for _, p := range []core.Period{current, period} {
		if !slices.Contains(periods, p) {
			periods = append(periods, p)
		}
	}
	slices.Sort(periods)
	slices.Reverse(periods)
	page.Periods = periods

	if summaries, err := s.ledger.Summaries(ctx); err != nil {
		s.logFailure(r, "Failed to summarize periods", err, log.OpList)
	} else {
		page.Bars = ledger.BarScale(summaries)
	}

	if cats, err := s.ledger.Categories(ctx); err != nil {
		s.logFailure(r, "Failed to list categories", err, log.OpList)
	} else {
		page.Categories = cats
	}

	s.render(w, r, status, "index.html", page)
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Formato de requisição inválido", http.StatusBadRequest)
		return
	}
	form := parseFormState(r.PostForm)

	req, err := form.CreateRequest()
	if err != nil {
		s.renderIndex(w, r, http.StatusUnprocessableEntity, form, "", messageFor(err))
		return
	}

	rec, err := s.ledger.Create(r.Context(), req)
	if err != nil {
		s.logFailure(r, "Failed to create purchase", err, log.OpCreate)
		s.renderIndex(w, r, statusFor(err), form, "", messageFor(err))
		return
	}

	http.Redirect(w, r, "/?"+form.ledgerQuery(rec.Period), http.StatusSeeOther)
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Formato de requisição inválido", http.StatusBadRequest)
		return
	}
	form := parseFormState(r.PostForm)

	req, err := form.UpdateRequest()
	if err != nil {
		s.renderIndex(w, r, http.StatusUnprocessableEntity, selection(form), "", messageFor(err))
		return
	}

	rec, err := s.ledger.Update(r.Context(), id, req)
	if err != nil {
		s.logFailure(r, "Failed to update purchase", err, log.OpUpdate)
		s.renderIndex(w, r, statusFor(err), selection(form), "", messageFor(err))
		return
	}

	http.Redirect(w, r, "/?"+form.ledgerQuery(rec.Period), http.StatusSeeOther)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Formato de requisição inválido", http.StatusBadRequest)
		return
	}
	form := selection(parseFormState(r.PostForm))

	rec, err := s.ledger.Get(r.Context(), id)
	if err == nil {
		err = s.ledger.Delete(r.Context(), id)
	}
	if err != nil {
		s.logFailure(r, "Failed to delete purchase", err, log.OpDelete)
		s.renderIndex(w, r, statusFor(err), form, "", messageFor(err))
		return
	}

	http.Redirect(w, r, "/?"+form.ledgerQuery(rec.Period), http.StatusSeeOther)
}

func (s *Server) handleClearPeriod(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Formato de requisição inválido", http.StatusBadRequest)
		return
	}
	form := selection(parseFormState(r.PostForm))

	period, err := core.ParsePeriod(r.PathValue("period"))
	if err != nil {
		s.renderIndex(w, r, http.StatusUnprocessableEntity, form, "", messageFor(err))
		return
	}

	n, err := s.ledger.ClearPeriod(r.Context(), period)
	if err != nil {
		s.logFailure(r, "Failed to clear period", err, log.OpClear)
		s.renderIndex(w, r, statusFor(err), form, "", messageFor(err))
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Period cleared",
		log.FieldPeriod, period.String(), "deleted", n)
	http.Redirect(w, r, "/?"+form.ledgerQuery(period), http.StatusSeeOther)
}

type historyPage struct {
	Name       string
	Category   string
	Period     string
	Records    []core.PurchaseRecord
	TotalSpent decimal.Decimal
	TotalItems int
	Periods    []core.Period
	Categories []string
	Flash      string
	Error      string
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	page := historyPage{
		Name:     sanitizeInput(q.Get("name")),
		Category: sanitizeInput(q.Get("category")),
		Period:   sanitizeInput(q.Get("period")),
	}
	status := http.StatusOK

	filter := core.SearchFilter{Name: page.Name, Category: page.Category, Period: core.Period(page.Period)}
	records, err := s.ledger.Search(ctx, filter)
	if err != nil {
		s.logFailure(r, "Failed to search purchases", err, log.OpList)
		status, page.Error = statusFor(err), messageFor(err)
	}
	page.Records = records
	page.TotalSpent, page.TotalItems = ledger.Totals(records)

	if page.Periods, err = s.ledger.Periods(ctx); err != nil {
		s.logFailure(r, "Failed to list periods", err, log.OpList)
	}
	if page.Categories, err = s.ledger.Categories(ctx); err != nil {
		s.logFailure(r, "Failed to list categories", err, log.OpList)
	}

	s.render(w, r, status, "history.html", page)
}

// selection keeps only the period and credit of a submitted form, so an
// error page does not prefill the create form with an edited row
func selection(f FormState) FormState {
	return FormState{Period: f.Period, Credit: f.Credit}
}

func recordID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// render executes a template into a buffer so a failing template never
// produces a half-written page
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentTemplate)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logFailure(r, "Template execution failed", err, log.OpRender)
		http.Error(w, "Erro ao montar a página", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// logFailure logs server side failures. Input and not-found errors are the
// user's to fix and are only shown on the page.
func (s *Server) logFailure(r *http.Request, msg string, err error, op string) {
	if statusFor(err) != http.StatusInternalServerError {
		return
	}
	log.FromContext(r.Context()).ErrorContext(r.Context(), msg,
		log.FieldError, err,
		log.FieldOperation, op,
		log.FieldPath, r.URL.Path)
}
