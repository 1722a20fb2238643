package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gastopro/internal/analytics"
	"gastopro/internal/log"
)

// Chat transcript persistence key.
const assistantChatKey = "assistant.chat"

// ChatMessage is one line of the persisted assistant transcript.
type ChatMessage struct {
	Role string    `json:"role"` // "user" or "assistant"
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Assistant is the scripted chat responder: keyword routing over the
// analytics engines, no NLP and no network. It exists so the dashboard
// numbers can be asked about in plain words.
type Assistant struct {
	store  Store
	logger *log.Logger
	now    func() time.Time
}

func NewAssistant(store Store, logger *log.Logger) *Assistant {
	return &Assistant{
		store:  store,
		logger: logger.WithComponent(log.ComponentAssistant),
		now:    time.Now,
	}
}

// Ask routes the prompt to a scripted reply and appends both sides of
// the exchange to the persisted transcript.
func (a *Assistant) Ask(ctx context.Context, prompt string) (string, error) {
	reply, err := a.answer(ctx, prompt)
	if err != nil {
		return "", err
	}

	if err := a.appendTranscript(ctx, prompt, reply); err != nil {
		// The reply still stands; only history is lost.
		a.logger.ErrorContext(ctx, "Failed to persist chat transcript", log.FieldError, err)
	}
	return reply, nil
}

// Transcript returns the persisted chat history, oldest first.
func (a *Assistant) Transcript(ctx context.Context) ([]ChatMessage, error) {
	raw, ok, err := a.store.GetPreference(ctx, assistantChatKey)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var msgs []ChatMessage
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	return msgs, nil
}

func (a *Assistant) answer(ctx context.Context, prompt string) (string, error) {
	q := strings.ToLower(prompt)
	now := a.now()
	year, month := now.Year(), int(now.Month())

	switch {
	case strings.Contains(q, "resumen") || strings.Contains(q, "cómo voy") || strings.Contains(q, "como voy"):
		return a.monthSummary(ctx, year, month)
	case strings.Contains(q, "comparativa") || strings.Contains(q, "mes pasado"):
		return a.comparison(ctx, year, month)
	case strings.Contains(q, "presupuesto") || strings.Contains(q, "pasé") || strings.Contains(q, "pase"):
		return a.budgetOverruns(ctx, year, month)
	case strings.Contains(q, "ahorro") || strings.Contains(q, "racha"):
		return a.savings(ctx, now)
	default:
		return "Puedo ayudarte con: «resumen del mes», «comparativa con el mes pasado», " +
			"«¿en qué me pasé del presupuesto?» y «¿cómo va mi ahorro?».", nil
	}
}

func (a *Assistant) monthSummary(ctx context.Context, year, month int) (string, error) {
	txs, err := a.store.ListTransactions(ctx)
	if err != nil {
		return "", fmt.Errorf("list transactions: %w", err)
	}
	monthTxs := analytics.FilterMonth(txs, year, month)
	totals := analytics.Summarize(monthTxs)
	breakdown := analytics.CategoryBreakdown(monthTxs)

	reply := fmt.Sprintf("Este mes: ingresos $%s, gastos $%s, saldo $%s.",
		totals.Income.DecimalString(), totals.Expense.DecimalString(), totals.Net.DecimalString())
	if len(breakdown) > 0 {
		reply += fmt.Sprintf(" Tu mayor gasto es %s ($%s).",
			breakdown[0].Category, breakdown[0].Amount.DecimalString())
	}
	return reply, nil
}

func (a *Assistant) comparison(ctx context.Context, year, month int) (string, error) {
	txs, err := a.store.ListTransactions(ctx)
	if err != nil {
		return "", fmt.Errorf("list transactions: %w", err)
	}
	cmp := analytics.CompareExpenses(txs, year, month)

	if cmp.PrevExpense.Cents == 0 {
		return fmt.Sprintf("El mes pasado no registraste gastos; este mes llevas $%s.",
			cmp.Expense.DecimalString()), nil
	}
	direction := "más"
	delta := cmp.DeltaPercent
	if delta < 0 {
		direction = "menos"
		delta = -delta
	}
	return fmt.Sprintf("Este mes llevas $%s en gastos, un %d%% %s que el mes pasado ($%s).",
		cmp.Expense.DecimalString(), delta, direction, cmp.PrevExpense.DecimalString()), nil
}

func (a *Assistant) budgetOverruns(ctx context.Context, year, month int) (string, error) {
	txs, err := a.store.ListTransactions(ctx)
	if err != nil {
		return "", fmt.Errorf("list transactions: %w", err)
	}
	budgets, err := a.store.GetBudgets(ctx)
	if err != nil {
		return "", fmt.Errorf("get budgets: %w", err)
	}

	spent := analytics.SpentByCategory(analytics.FilterMonth(txs, year, month))
	var over []string
	for _, line := range analytics.BudgetReport(spent, budgets) {
		if line.Status == analytics.BudgetOver {
			over = append(over, fmt.Sprintf("%s ($%s de $%s)",
				line.Category, line.Spent.DecimalString(), line.Budget.DecimalString()))
		}
	}
	if len(over) == 0 {
		return "Vas dentro del presupuesto en todas las categorías. 🎉", nil
	}
	return "Te pasaste del presupuesto en: " + strings.Join(over, ", ") + ".", nil
}

func (a *Assistant) savings(ctx context.Context, now time.Time) (string, error) {
	txs, err := a.store.ListTransactions(ctx)
	if err != nil {
		return "", fmt.Errorf("list transactions: %w", err)
	}

	total := analytics.TotalSaved(txs)
	streak := analytics.StreakDays(txs, now)
	challenge := analytics.Challenge(txs, now)

	return fmt.Sprintf("Llevas $%s ahorrados en total. Racha actual: %d día(s). "+
		"Esta semana: $%s de una meta de $%s (%d%%).",
		total.DecimalString(), streak,
		challenge.SavedThisWeek.DecimalString(), challenge.Target.DecimalString(),
		challenge.Percent), nil
}

func (a *Assistant) appendTranscript(ctx context.Context, prompt, reply string) error {
	msgs, err := a.Transcript(ctx)
	if err != nil {
		// Corrupt history should not block new messages.
		a.logger.WarnContext(ctx, "Resetting unreadable chat transcript", log.FieldError, err)
		msgs = nil
	}
	now := a.now()
	msgs = append(msgs,
		ChatMessage{Role: "user", Text: prompt, At: now},
		ChatMessage{Role: "assistant", Text: reply, At: now},
	)
	raw, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	return a.store.SetPreference(ctx, assistantChatKey, raw)
}
