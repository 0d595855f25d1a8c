package handlers

import (
	"io"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/CrypticFlow/SmartExpense/internal/apperr"
	"github.com/CrypticFlow/SmartExpense/internal/models"
	"github.com/CrypticFlow/SmartExpense/internal/vision"

	"github.com/shopspring/decimal"
)

// maxReceiptBytes bounds receipt uploads.
const maxReceiptBytes = 10 << 20

// ExpenseItem represents an expense in the list view.
type ExpenseItem struct {
	models.Expense
	Time          string
	CategoryStyle CategoryStyle
	SubmitterName string
}

// ExpenseGroup groups expenses by date.
type ExpenseGroup struct {
	Title string
	Date  string
	Total decimal.Decimal
	Items []ExpenseItem
}

// ListViewModel is the data passed to the list view template.
type ListViewModel struct {
	Total      decimal.Decimal
	Groups     []ExpenseGroup
	CanApprove bool
}

// ListExpenses renders the team's expenses grouped by date.
func (h *Handlers) ListExpenses(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	expenses, err := h.db.ListTeamExpenses(user.TeamID)
	if err != nil {
		log.Printf("ListTeamExpenses error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	names := h.memberNames(user.TeamID)

	groupsMap := make(map[string]*ExpenseGroup)
	total := decimal.Zero

	for _, e := range expenses {
		dateStr := e.Date.Format("2006-01-02")
		if _, ok := groupsMap[dateStr]; !ok {
			groupsMap[dateStr] = &ExpenseGroup{Date: dateStr, Title: formatGroupTitle(e.Date)}
		}
		group := groupsMap[dateStr]
		if e.Status == models.StatusApproved {
			group.Total = group.Total.Add(e.Amount)
			total = total.Add(e.Amount)
		}

		group.Items = append(group.Items, ExpenseItem{
			Expense:       e,
			Time:          e.Date.Format("15:04"),
			CategoryStyle: getCategoryStyle(e.Category),
			SubmitterName: names[e.SubmittedBy],
		})
	}

	groups := make([]ExpenseGroup, 0, len(groupsMap))
	for _, g := range groupsMap {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Date > groups[j].Date })

	h.render(w, r, "list.html", ListViewModel{
		Total:      total,
		Groups:     groups,
		CanApprove: user.Role.CanApprove(),
	})
}

func (h *Handlers) memberNames(teamID int64) map[int64]string {
	names := make(map[int64]string)
	members, err := h.db.GetTeamMembers(teamID)
	if err != nil {
		log.Printf("GetTeamMembers error: %v", err)
		return names
	}
	for _, m := range members {
		names[m.ID] = m.Name
	}
	return names
}

// FormViewModel is the data passed to the expense form template, optionally
// prefilled from a scanned receipt.
type FormViewModel struct {
	Categories  []CategoryDef
	Amount      string
	Description string
	Category    string
	Date        string
	Merchant    string
	Notice      string
}

// CreateExpenseForm renders the form to submit a new expense.
func (h *Handlers) CreateExpenseForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "create.html", FormViewModel{
		Categories: categories,
		Date:       time.Now().Format("2006-01-02"),
	})
}

// CreateExpense handles the submission of a new expense. New expenses are
// always pending until a manager or admin decides on them.
func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	amount, desc, category, date, merchant, err := parseExpenseForm(r)
	if err != nil {
		h.handleError(w, err)
		return
	}

	_, err = h.db.CreateExpense(&models.Expense{
		Amount:      amount,
		Description: desc,
		Category:    category,
		Date:        date,
		Status:      models.StatusPending,
		SubmittedBy: user.ID,
		TeamID:      user.TeamID,
		Merchant:    merchant,
	})
	if err != nil {
		log.Printf("CreateExpense error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("HX-Location", `{"path":"/expenses", "target":"#content"}`)
}

// ApproveExpense approves a pending expense and applies it to matching
// budgets.
func (h *Handlers) ApproveExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)

	if _, err := h.budgets.Approve(r.Context(), user, id); err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("HX-Location", `{"path":"/expenses", "target":"#content"}`)
}

// RejectExpense rejects a pending expense. No budget is touched.
func (h *Handlers) RejectExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)

	if err := h.budgets.Reject(r.Context(), user, id); err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("HX-Location", `{"path":"/expenses", "target":"#content"}`)
}

// ScanReceipt accepts an uploaded receipt image, runs vision extraction and
// re-renders the expense form prefilled with the result. Extraction failures
// degrade to the manual-entry fallback instead of blocking the submission.
func (h *Handlers) ScanReceipt(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxReceiptBytes); err != nil {
		h.handleError(w, apperr.Invalid("invalid upload"))
		return
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		h.handleError(w, apperr.Invalid("receipt file is required"))
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxReceiptBytes))
	if err != nil {
		log.Printf("ScanReceipt read error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	extracted := vision.Fallback(time.Now())
	notice := "Couldn't read the receipt, fill in the details manually."
	if h.scanner != nil {
		result, err := h.scanner.Extract(r.Context(), image, header.Header.Get("Content-Type"))
		if err != nil {
			log.Printf("Receipt extraction failed: %v", err)
		} else {
			extracted = result
			notice = "Details extracted from receipt, review before submitting."
		}
	}

	vm := FormViewModel{
		Categories:  categories,
		Description: extracted.Description,
		Category:    extracted.Category,
		Date:        extracted.Date,
		Merchant:    extracted.Merchant,
		Notice:      notice,
	}
	if extracted.Amount > 0 {
		vm.Amount = decimal.NewFromFloat(extracted.Amount).StringFixed(2)
	}

	h.render(w, r, "create.html", vm)
}

func parseExpenseForm(r *http.Request) (amount decimal.Decimal, desc, category string, date time.Time, merchant string, err error) {
	if err := r.ParseForm(); err != nil {
		return decimal.Zero, "", "", time.Time{}, "", apperr.Invalid("invalid form submission")
	}

	amount, err = decimal.NewFromString(strings.TrimSpace(r.FormValue("amount")))
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, "", "", time.Time{}, "", apperr.Invalid("amount must be a positive number")
	}

	desc = strings.TrimSpace(r.FormValue("description"))
	if desc == "" {
		desc = "Expense"
	}

	category = r.FormValue("category")
	if category == "" {
		category = "Other"
	}

	dateStr := r.FormValue("date")
	if dateStr == "" {
		return decimal.Zero, "", "", time.Time{}, "", apperr.Invalid("date is required")
	}
	date, err = time.Parse("2006-01-02", dateStr)
	if err != nil {
		return decimal.Zero, "", "", time.Time{}, "", apperr.Invalid("invalid date")
	}

	merchant = strings.TrimSpace(r.FormValue("merchant"))
	return amount, desc, category, date, merchant, nil
}

func formatGroupTitle(date time.Time) string {
	dateStr := date.Format("2006-01-02")
	nowStr := time.Now().Format("2006-01-02")

	if dateStr == nowStr {
		return "TODAY"
	}
	yesterdayStr := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	if dateStr == yesterdayStr {
		return "YESTERDAY"
	}
	return strings.ToUpper(date.Format("Mon, 02 Jan '06"))
}
