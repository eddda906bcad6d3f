package models

import "time"

// Статусы заявки на расчёт цены.
const (
	QuoteStatusPending   = "pending"
	QuoteStatusContacted = "contacted"
	QuoteStatusQuoted    = "quoted"
	QuoteStatusConverted = "converted"
	QuoteStatusClosed    = "closed"
)

// Quote заявка "запросить расчёт цены" с веб-формы.
type Quote struct {
	ID           int        `json:"id"`
	CompanyName  string     `json:"company_name"`
	ContactName  string     `json:"contact_name"`
	Phone        string     `json:"phone"`
	Email        string     `json:"email,omitempty"` // Необязательное поле формы
	CompanyType  string     `json:"company_type"`
	UserCount    string     `json:"user_count,omitempty"` // Диапазон числа пользователей
	Requirements string     `json:"requirements,omitempty"`
	Status       string     `json:"status"`
	AssignedTo   string     `json:"assigned_to,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	QuotedPrice  *float64   `json:"quoted_price,omitempty"`
	QuotedAt     *time.Time `json:"quoted_at,omitempty"`
	IPAddress    string     `json:"ip_address,omitempty"`
	UserAgent    string     `json:"user_agent,omitempty"`
	Referrer     string     `json:"referrer,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// DummyQuoteRequest используется для приёма формы расчёта цены из JSON-запроса.
type DummyQuoteRequest struct {
	CompanyName  string `json:"company_name" validate:"required,min=2,max=100"`
	ContactName  string `json:"contact_name" validate:"required,min=2,max=50"`
	Phone        string `json:"phone" validate:"required,cnmobile"`
	Email        string `json:"email,omitempty" validate:"omitempty,email"`
	CompanyType  string `json:"company_type" validate:"required,oneof=government park enterprise consultant other"`
	UserCount    string `json:"user_count,omitempty" validate:"omitempty,oneof=1-10 11-50 51-100 100+"`
	Requirements string `json:"requirements,omitempty" validate:"omitempty,max=1000"`
}

// DummyQuoteUpdate административное обновление заявки на расчёт цены.
type DummyQuoteUpdate struct {
	Status      string   `json:"status,omitempty" validate:"omitempty,oneof=pending contacted quoted converted closed"`
	AssignedTo  string   `json:"assigned_to,omitempty" validate:"omitempty,max=50"`
	Notes       string   `json:"notes,omitempty" validate:"omitempty,max=1000"`
	QuotedPrice *float64 `json:"quoted_price,omitempty" validate:"omitempty,gte=0"`
}

// QuoteFilter параметры выборки заявок для административного списка.
type QuoteFilter struct {
	Status      string
	CompanyType string
	StartDate   *time.Time
	EndDate     *time.Time
	Search      string
	Limit       int
	Offset      int
}

// MonthCount число заявок за один календарный месяц.
type MonthCount struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Count int `json:"count"`
}

// QuoteOverview сводная статистика по заявкам на расчёт цены.
type QuoteOverview struct {
	TotalQuotes     int            `json:"total_quotes"`
	PendingQuotes   int            `json:"pending_quotes"`
	ConvertedQuotes int            `json:"converted_quotes"`
	TodayQuotes     int            `json:"today_quotes"`
	ConversionRate  float64        `json:"conversion_rate"`
	ByCompanyType   map[string]int `json:"by_company_type"`
	ByMonth         []MonthCount   `json:"by_month"`
}

// QuoteAlertInfo сообщение для письма отделу продаж о новой заявке.
type QuoteAlertInfo struct {
	QuoteID      int       `json:"quote_id"`
	CompanyName  string    `json:"company_name"`
	ContactName  string    `json:"contact_name"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email,omitempty"`
	CompanyType  string    `json:"company_type"`
	UserCount    string    `json:"user_count,omitempty"`
	Requirements string    `json:"requirements,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
