package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"compras/internal/core"
)

const (
	msgIncomplete   = "Todos os campos (código, nome, marca e categoria) devem estar preenchidos."
	msgRegistered   = "Produto cadastrado com sucesso na Open Food Facts!"
	msgUnknownError = "Erro desconhecido"
	registerComment = "Cadastro via app de controle de compras"
)

type registerResponse struct {
	Status        int    `json:"status"`
	StatusVerbose string `json:"status_verbose"`
}

// Register submits a new product. It never returns an error: every failure,
// including incomplete input, is reported through the result message.
func (c *Client) Register(ctx context.Context, p core.ProductRegistration) core.RegistrationResult {
	if !p.Complete() {
		return core.RegistrationResult{OK: false, Message: msgIncomplete}
	}

	form := url.Values{}
	form.Set("code", strings.TrimSpace(p.Barcode))
	form.Set("product_name", strings.TrimSpace(p.Name))
	form.Set("brands", strings.TrimSpace(p.Brand))
	form.Set("categories", strings.TrimSpace(p.Category))
	form.Set("lc", "pt")
	form.Set("comment", registerComment)
	form.Set("add", "1")
	if c.userID != "" {
		form.Set("user_id", c.userID)
		form.Set("password", c.password)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cgi/product_jqm2.pl", strings.NewReader(form.Encode()))
	if err != nil {
		return failure(fmt.Sprintf("Falha ao montar a requisição: %v", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return failure(fmt.Sprintf("Falha ao conectar: %v", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return failure(fmt.Sprintf("Falha ao ler a resposta: %v", err))
	}

	var body registerResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return failure(fmt.Sprintf("Falha ao conectar: %s", strings.TrimSpace(string(raw))))
	}
	if body.Status == 1 {
		return core.RegistrationResult{OK: true, Message: msgRegistered}
	}

	verbose := strings.TrimSpace(body.StatusVerbose)
	if verbose == "" {
		verbose = msgUnknownError
	}
	return failure("Erro no cadastro: " + verbose)
}

func failure(msg string) core.RegistrationResult {
	return core.RegistrationResult{OK: false, Message: msg}
}
