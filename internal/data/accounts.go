package data

import (
	"context"
	"fmt"

	"github.com/ponxai/credits-bridge/internal/biz/domain"
	"github.com/ponxai/credits-bridge/internal/biz/repo"
	"github.com/ponxai/credits-bridge/internal/infra/crm"
)

// accountFields maps descriptive context keys to the numbered answer slots
// the back-office API returns. Slots 9-12 and 17 are unused by the bot.
var accountFields = map[string]string{
	"total_debt":                     "answer1",
	"remaining_payment_installments": "answer2",
	"next_payment_due_date":          "answer3",
	"account_summary":                "answer4",
	"cost_of_interest_in_usd":        "answer5",
	"total_loan_including_interest":  "answer6",
	"payment_frequency":              "answer7",
	"account_status":                 "answer8",
	"total_paid_and_total_to_pay":    "answer13",
	"first_payment_date":             "answer14",
	"most_recent_payment":            "answer15",
	"possibility_of_extension":       "answer16",
	"user_next_payment_amount":       "answer18",
}

// accountsRepo implements the account-lookup port over the back-office API.
type accountsRepo struct {
	client *crm.Client
}

// NewAccounts creates a new account-lookup adapter.
func NewAccounts(client *crm.Client) repo.Accounts {
	return &accountsRepo{client: client}
}

// Context looks up the account behind a DNI. An unknown DNI and an upstream
// outage both surface as *domain.LookupError; only the outage escalates.
func (r *accountsRepo) Context(ctx context.Context, dni string) (domain.AccountContext, error) {
	data, err := r.client.Customer(ctx, dni)
	if err != nil {
		fmt.Printf("[Accounts] Lookup failed for %s: %v\n", dni, err)
		return nil, &domain.LookupError{
			UserMessage: "Lo sentimos, algo salió mal de nuestra parte. Te derivaremos a un agente lo antes posible.",
			AgentNote:   "Hubo problemas para conectarse a la API cuando el usuario ingresó su número de DNI.",
		}
	}
	if _, ok := data["error"]; ok {
		return nil, &domain.LookupError{
			UserMessage: "Lo sentimos, no pudimos encontrar ese número de DNI. ¿Podrías verificar si es correcto?",
		}
	}

	account := make(domain.AccountContext, len(accountFields))
	for key, slot := range accountFields {
		if v, ok := data[slot]; ok {
			account[key] = fmt.Sprint(v)
		}
	}
	return account, nil
}
